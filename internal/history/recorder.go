package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/repmeter/repmeter-agent/internal/counter"
	"github.com/repmeter/repmeter-agent/internal/detect"
)

// Recorder mirrors published count changes into the session history.
// It is a plain Count Store consumer: it only ever sees values the
// store already published.
type Recorder struct {
	repo      Repository
	sessionID string
	logger    *slog.Logger
}

// NewRecorder creates a recorder bound to one session.
func NewRecorder(repo Repository, sessionID string, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, sessionID: sessionID, logger: logger}
}

// Attach subscribes the recorder to a count store. Every published
// change is upserted as that session's latest count for the exercise.
func (rec *Recorder) Attach(store *counter.Store) {
	store.Subscribe(func(e detect.Exercise, count int) {
		err := rec.repo.UpsertSessionCount(
			context.Background(), rec.sessionID, string(e), count, time.Now())
		if err != nil {
			rec.logger.Error("failed to record count change",
				"exercise", string(e), "count", count, "error", err)
		}
	})
}
