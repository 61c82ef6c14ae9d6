package export

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/repmeter/repmeter-agent/internal/history"
)

func TestGenerateSummary(t *testing.T) {
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ended := started.Add(25*time.Minute + 30*time.Second)
	s := &history.Session{
		ID:        "sess-1",
		Source:    "camera",
		StartedAt: started,
		EndedAt:   &ended,
	}
	counts := []*history.SessionCount{
		{SessionID: "sess-1", Exercise: "push_up", Count: 12},
		{SessionID: "sess-1", Exercise: "squat", Count: 20},
		{SessionID: "sess-1", Exercise: "lunge", Count: 12},
	}

	out := GenerateSummary(s, counts)

	if !strings.Contains(out, "SESSION: sess-1") {
		t.Errorf("missing session header: %q", out)
	}
	if !strings.Contains(out, "STARTED: 2025-06-01T10:00:00Z") {
		t.Errorf("missing start time: %q", out)
	}
	if !strings.Contains(out, "LENGTH:  25m30s") {
		t.Errorf("missing length: %q", out)
	}
	if !strings.Contains(out, fmt.Sprintf("%-16s %5d", "TOTAL", 44)) {
		t.Errorf("missing or wrong total: %q", out)
	}

	// Highest count first, name-ordered ties.
	squat := strings.Index(out, "squat")
	lunge := strings.Index(out, "lunge")
	pushup := strings.Index(out, "push_up")
	if !(squat < lunge && lunge < pushup) {
		t.Errorf("rows not ordered by count then name: %q", out)
	}
}

func TestGenerateSummary_OpenSession(t *testing.T) {
	s := &history.Session{
		ID:        "sess-2",
		Source:    "replay",
		StartedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	out := GenerateSummary(s, nil)
	if strings.Contains(out, "ENDED:") {
		t.Errorf("open session rendered an end time: %q", out)
	}
	if !strings.Contains(out, fmt.Sprintf("%-16s %5d", "TOTAL", 0)) {
		t.Errorf("empty session total wrong: %q", out)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{90 * time.Second, "1m30s"},
		{time.Hour + 5*time.Minute + 3*time.Second, "1h05m03s"},
		{2 * time.Second, "0m02s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
