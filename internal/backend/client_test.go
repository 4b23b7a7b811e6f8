package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cycleview/internal/state"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestParseBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"full url", "http://127.0.0.1:5000", "http://127.0.0.1:5000", false},
		{"missing scheme", "localhost:5000", "http://localhost:5000", false},
		{"trailing slash trimmed", "http://host:5000/", "http://host:5000", false},
		{"query dropped", "http://host:5000?x=1", "http://host:5000", false},
		{"empty", "", "", true},
		{"whitespace", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := parseBaseURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseBaseURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err == nil && u.String() != tt.want {
				t.Errorf("parseBaseURL(%q) = %q, want %q", tt.raw, u.String(), tt.want)
			}
		})
	}
}

func TestLoadSettingsWrappedShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/load_settings" {
			t.Errorf("path = %q, want /load_settings", r.URL.Path)
		}
		io.WriteString(w, `{"settings": {"theme": "dark", "timerMin": "30"}}`)
	})

	patch, err := client.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if patch.Theme == nil || *patch.Theme != "dark" {
		t.Errorf("Theme = %v, want dark", patch.Theme)
	}
	if patch.TimerMin == nil || patch.TimerMin.Int() != 30 {
		t.Errorf("TimerMin = %v, want 30 from string value", patch.TimerMin)
	}
}

func TestLoadSettingsFlatShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"theme": "dark"}`)
	})

	patch, err := client.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if patch.Theme == nil || *patch.Theme != "dark" {
		t.Errorf("Theme = %v, want dark", patch.Theme)
	}
}

func TestSaveSettingsPostsDocument(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/save_settings" {
			t.Errorf("%s %s, want POST /save_settings", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, `{"status": "success"}`)
	})

	doc := state.Document{Version: state.SettingsVersion}
	doc.Theme = "dark"
	if err := client.SaveSettings(context.Background(), doc); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	if got["theme"] != "dark" || got["version"] != state.SettingsVersion {
		t.Errorf("posted document = %v", got)
	}
}

func TestGetContentKeepsRawBody(t *testing.T) {
	const body = `{"source": "reddit", "post_url": "https://i.redd.it/a.jpg", "timer_seconds": 45}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	})

	payload, err := client.GetContent(context.Background(), ContentRequest{})
	if err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	if payload.PostURL != "https://i.redd.it/a.jpg" || payload.TimerSeconds != 45 {
		t.Errorf("payload = %+v", payload)
	}
	if string(payload.Raw) != body {
		t.Errorf("Raw = %q, want the undecoded body", payload.Raw)
	}
}

func TestGetContentSubredditNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error": "subreddit_not_found", "subreddit": "gone", "message": "r/gone does not exist"}`)
	})

	_, err := client.GetContent(context.Background(), ContentRequest{})
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if !remote.IsSubredditNotFound() {
		t.Errorf("IsSubredditNotFound() = false, code = %q", remote.Code)
	}
	if remote.Subreddit != "gone" {
		t.Errorf("Subreddit = %q, want gone", remote.Subreddit)
	}
	if remote.Error() != "r/gone does not exist" {
		t.Errorf("Error() = %q, want the payload message", remote.Error())
	}
}

func TestErrorPayloadWinsOverStatusOK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Backends sometimes return errors with a 200.
		io.WriteString(w, `{"error": "no_content"}`)
	})

	_, err := client.GetContent(context.Background(), ContentRequest{})
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteError despite 200", err)
	}
	if remote.Error() != "no_content" {
		t.Errorf("Error() = %q, want code fallback", remote.Error())
	}
}

func TestPlainStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.GetContent(context.Background(), ContentRequest{})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error = %v, want status error", err)
	}
}

func TestGetCustomFoldersRefreshParam(t *testing.T) {
	var gotRefresh []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRefresh = append(gotRefresh, r.URL.Query().Get("refresh"))
		io.WriteString(w, `{
			"content_folders": [{"name": "vacation", "file_count": 12}],
			"enabledContentFolders": ["vacation"],
			"cached": true
		}`)
	})

	payload, err := client.GetCustomFolders(context.Background(), false)
	if err != nil {
		t.Fatalf("GetCustomFolders() error = %v", err)
	}
	if len(payload.ContentFolders) != 1 || payload.ContentFolders[0].FileCount != 12 {
		t.Errorf("payload = %+v", payload)
	}
	if !payload.Cached {
		t.Errorf("Cached = false, want true")
	}

	if _, err := client.GetCustomFolders(context.Background(), true); err != nil {
		t.Fatalf("GetCustomFolders(refresh) error = %v", err)
	}
	if len(gotRefresh) != 2 || gotRefresh[0] != "" || gotRefresh[1] != "true" {
		t.Errorf("refresh params = %v, want [\"\" true]", gotRefresh)
	}
}

func TestGenerateCaption(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req CaptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "fast" {
			t.Errorf("Model = %q, want fast", req.Model)
		}
		io.WriteString(w, `{"caption": "a sunny beach"}`)
	})

	caption, err := client.GenerateCaption(context.Background(), CaptionRequest{Model: "fast"})
	if err != nil {
		t.Fatalf("GenerateCaption() error = %v", err)
	}
	if caption != "a sunny beach" {
		t.Errorf("caption = %q", caption)
	}
}

func TestImportSettingsFileMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("settingsFile")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			io.WriteString(w, `{"error": "bad upload"}`)
			return
		}
		defer file.Close()

		if header.Filename != "settings.json" {
			t.Errorf("Filename = %q, want settings.json", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != `{"theme": "dark"}` {
			t.Errorf("uploaded = %q", data)
		}
		io.WriteString(w, `{"message": "imported", "settings": {"theme": "dark"}, "credentials_imported": false}`)
	})

	result, err := client.ImportSettingsFile(context.Background(), "settings.json", strings.NewReader(`{"theme": "dark"}`))
	if err != nil {
		t.Fatalf("ImportSettingsFile() error = %v", err)
	}
	if result.Message != "imported" {
		t.Errorf("Message = %q", result.Message)
	}
	if result.Settings == nil || result.Settings.Theme == nil || *result.Settings.Theme != "dark" {
		t.Errorf("Settings patch = %+v", result.Settings)
	}
}

func TestUpdateCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/update_credentials" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var creds state.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode: %v", err)
		}
		if creds.ClientID != "id" {
			t.Errorf("ClientID = %q", creds.ClientID)
		}
		io.WriteString(w, `{"status": "success"}`)
	})

	err := client.UpdateCredentials(context.Background(), state.Credentials{
		ClientID:     "id",
		ClientSecret: "secret",
	})
	if err != nil {
		t.Fatalf("UpdateCredentials() error = %v", err)
	}
}
