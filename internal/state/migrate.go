package state

// Migrate upgrades a parsed settings document to the current version,
// filling in the fields each version introduced when the document does not
// carry them. Documents without a version field are treated as the oldest
// shape. Returns true when any upgrade step ran.
func (p *Patch) Migrate() bool {
	version := "0.1"
	if p.Version != nil && *p.Version != "" {
		version = *p.Version
	}
	if version == SettingsVersion {
		return false
	}

	if version == "0.1" {
		fillString(&p.ContentSource, SourceReddit)
		fillBool(&p.PunishmentsEnabled, false)
		version = "0.2"
	}
	if version == "0.2" {
		fillBool(&p.AutoCycleEnabled, true)
		fillBool(&p.VideoSoftLimitEnabled, true)
		version = "0.3"
	}
	if version == "0.3" {
		fillStrings(&p.EnabledContentFolders, []string{})
		fillStrings(&p.EnabledPunishmentFolders, []string{})
		fillString(&p.Theme, "light")
		version = "1.0"
	}
	if version == "1.0" {
		fillString(&p.MetronomeSound, "default")
		if p.MetronomeVolume == nil {
			v := 0.7
			p.MetronomeVolume = &v
		}
		version = "1.1"
	}

	// Unknown intermediate versions still land on the current one.
	current := SettingsVersion
	p.Version = &current
	return true
}

func fillString(dst **string, value string) {
	if *dst == nil {
		v := value
		*dst = &v
	}
}

func fillBool(dst **bool, value bool) {
	if *dst == nil {
		v := value
		*dst = &v
	}
}

func fillStrings(dst **[]string, value []string) {
	if *dst == nil {
		v := value
		*dst = &v
	}
}
