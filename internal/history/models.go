package history

import (
	"time"

	"github.com/google/uuid"
)

// Session is one recorded workout: a span of frame processing between
// agent start (or an explicit new session) and teardown.
type Session struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"` // "camera" or "replay"
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// SessionCount is the last published count for one exercise within a
// session.
type SessionCount struct {
	SessionID string    `json:"session_id"`
	Exercise  string    `json:"exercise"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewID returns a new session identifier.
func NewID() string {
	return uuid.NewString()
}
