// Package engine drives the detection pipeline: it pulls pose frames
// from a source one at a time, runs them through the keypoint filter
// and the detector registry, and feeds emitted repetitions into the
// count buffer.
package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/repmeter/repmeter-agent/internal/counter"
	"github.com/repmeter/repmeter-agent/internal/detect"
	"github.com/repmeter/repmeter-agent/internal/pose"
)

// FrameSource hands the engine the next available pose frame. Next
// blocks until a frame is available, the context is cancelled, or the
// stream ends (io.EOF). A (nil, nil) return means this tick produced
// nothing usable (estimator not ready, no skeleton detected); the
// engine skips and asks again. The engine never issues a second Next
// before the previous one has returned, so at most one inference is in
// flight by construction.
type FrameSource interface {
	Next(ctx context.Context) (*pose.Frame, error)
}

// Config wires an Engine.
type Config struct {
	Source   FrameSource
	Registry *detect.Registry
	Buffer   *counter.Buffer
	Logger   *slog.Logger
	MinScore float64 // keypoint confidence threshold; <=0 uses the default
}

// Stats is a snapshot of the engine's frame accounting.
type Stats struct {
	FramesProcessed int64 `json:"frames_processed"`
	FramesSkipped   int64 `json:"frames_skipped"`
	RepsDetected    int64 `json:"reps_detected"`
}

// Source error handling: a transient error is retried after a delay so
// a hiccuping estimator cannot hot-loop the scheduler; an unbroken
// error streak means the source is dead and Run returns the error.
// Vars so tests can shorten the retry delay.
var (
	sourceRetryDelay   = 250 * time.Millisecond
	maxSourceErrStreak = 20
)

// Engine is the single-threaded frame scheduler. Frames are processed
// strictly one at a time in arrival order; Reset is atomic with respect
// to frame dispatch.
type Engine struct {
	source   FrameSource
	registry *detect.Registry
	buffer   *counter.Buffer
	logger   *slog.Logger
	minScore float64

	mu sync.Mutex // serializes Step and Reset

	paused    atomic.Bool
	processed atomic.Int64
	skipped   atomic.Int64
	reps      atomic.Int64
}

// New creates an engine. The registry and buffer passed in are owned by
// the engine from this point on.
func New(cfg Config) *Engine {
	minScore := cfg.MinScore
	if minScore <= 0 {
		minScore = pose.DefaultMinScore
	}
	return &Engine{
		source:   cfg.Source,
		registry: cfg.Registry,
		buffer:   cfg.Buffer,
		logger:   cfg.Logger,
		minScore: minScore,
	}
}

// Run consumes frames until the context is cancelled or the source
// reports io.EOF. On exit it performs a final unconditional flush so
// buffered-but-unpublished counts survive teardown.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started")
	defer func() {
		e.buffer.FlushNow(time.Now())
		e.logger.Info("engine stopped",
			"frames_processed", e.processed.Load(),
			"frames_skipped", e.skipped.Load(),
			"reps_detected", e.reps.Load(),
		)
	}()

	errStreak := 0
	for {
		frame, err := e.source.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			e.logger.Info("frame source drained")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			errStreak++
			e.skipped.Add(1)
			if errStreak >= maxSourceErrStreak {
				e.logger.Error("frame source failing persistently, stopping",
					"error", err, "consecutive_errors", errStreak)
				return err
			}
			// Upstream hiccup: skip this tick and retry after a delay.
			e.logger.Warn("frame source error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(sourceRetryDelay):
			}
			continue
		}
		errStreak = 0

		if ctx.Err() != nil {
			return nil
		}

		if frame == nil || e.paused.Load() {
			// Not ready / no skeleton / paused: drain without
			// processing so frame delivery is never blocked.
			e.skipped.Add(1)
			continue
		}

		e.Step(frame)
	}
}

// Step processes exactly one frame through the full pipeline. Exported
// so a test harness can drive the engine with canned frame sequences
// instead of a live source.
func (e *Engine) Step(frame *pose.Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()

	filtered := pose.FilterFrame(frame, e.minScore)
	if filtered == nil {
		// Malformed skeleton (fewer than 17 slots): skip, not an error.
		e.skipped.Add(1)
		return
	}

	events := e.registry.Dispatch(filtered)
	for _, ev := range events {
		e.buffer.RecordEvent(ev.Exercise)
		e.reps.Add(1)
		e.logger.Debug("repetition detected", "exercise", string(ev.Exercise))
	}

	e.buffer.MaybeFlush(frame.Timestamp)
	e.processed.Add(1)
}

// Reset returns every detector to rest and zeroes both the buffer and
// the published store, atomically with respect to frame dispatch.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.registry.Reset()
	e.buffer.Reset()
	e.logger.Info("workout reset")
}

// Pause stops frames from being processed; arriving frames are drained
// and discarded so the source never backs up.
func (e *Engine) Pause() {
	e.paused.Store(true)
	e.logger.Info("engine paused")
}

// Resume re-enables frame processing.
func (e *Engine) Resume() {
	e.paused.Store(false)
	e.logger.Info("engine resumed")
}

// IsPaused reports whether frame processing is currently paused.
func (e *Engine) IsPaused() bool {
	return e.paused.Load()
}

// Stats returns a snapshot of frame accounting.
func (e *Engine) Stats() Stats {
	return Stats{
		FramesProcessed: e.processed.Load(),
		FramesSkipped:   e.skipped.Load(),
		RepsDetected:    e.reps.Load(),
	}
}
