package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultLimit = 50

type Notice struct {
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Center collects user-visible notices for the UI to poll. Bounded; the
// oldest notices fall off.
type Center struct {
	logger zerolog.Logger

	mu      sync.Mutex
	notices []Notice
	limit   int
}

func NewCenter(logger zerolog.Logger) *Center {
	return &Center{
		logger: logger.With().Str("component", "notify").Logger(),
		limit:  defaultLimit,
	}
}

func (c *Center) Notify(message string) {
	c.logger.Info().Str("notice", message).Msg("notification")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, Notice{Message: message, Time: time.Now()})
	if len(c.notices) > c.limit {
		c.notices = c.notices[len(c.notices)-c.limit:]
	}
}

// Recent returns the collected notices, newest last.
func (c *Center) Recent() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

// Drain returns the collected notices and clears them.
func (c *Center) Drain() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	return out
}
