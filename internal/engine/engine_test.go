package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/repmeter/repmeter-agent/internal/counter"
	"github.com/repmeter/repmeter-agent/internal/detect"
	"github.com/repmeter/repmeter-agent/internal/pose"
)

var epoch = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// cannedSource replays a fixed frame slice; nil entries model ticks
// with no skeleton.
type cannedSource struct {
	frames []*pose.Frame
	next   int
}

func (s *cannedSource) Next(ctx context.Context) (*pose.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// fullFrame builds a 17-slot 640x480 frame where every keypoint scores
// high; overrides are normalized coordinates keyed by name.
func fullFrame(at time.Duration, overrides map[string][2]float64) *pose.Frame {
	f := &pose.Frame{Width: 640, Height: 480, Timestamp: epoch.Add(at)}
	for _, name := range pose.Names {
		kp := pose.Keypoint{Name: name, X: 0.5, Y: 0.5, Score: 0.9}
		if xy, ok := overrides[name]; ok {
			kp.X, kp.Y = xy[0], xy[1]
		}
		f.Keypoints = append(f.Keypoints, kp)
	}
	return f
}

// liftFrame positions the left wrist above (or below) the left shoulder.
func liftFrame(at time.Duration, lifted bool) *pose.Frame {
	wristY := 100.0 / 480
	if !lifted {
		wristY = 200.0 / 480
	}
	return fullFrame(at, map[string][2]float64{
		pose.LeftWrist:    {300.0 / 640, wristY},
		pose.LeftShoulder: {300.0 / 640, 150.0 / 480},
		// Keep the face wide so the blink detector stays at rest.
		pose.Nose:     {0.5, 0.2},
		pose.LeftEye:  {0.2, 0.2},
		pose.RightEye: {0.8, 0.2},
	})
}

func newTestEngine(src FrameSource) (*Engine, *counter.Store) {
	store := counter.NewStore()
	return New(Config{
		Source:   src,
		Registry: detect.NewRegistry(detect.DefaultTunables()),
		Buffer:   counter.NewBuffer(store, counter.DefaultFlushInterval),
		Logger:   testLogger(),
	}), store
}

func TestRun_CountsOneHandLiftCycle(t *testing.T) {
	src := &cannedSource{frames: []*pose.Frame{
		nil, // estimator warm-up tick
		liftFrame(0, true),
		liftFrame(33*time.Millisecond, true), // held pose
		liftFrame(66*time.Millisecond, false),
		nil, // dropped skeleton mid-session
		liftFrame(99*time.Millisecond, true),
	}}
	eng, store := newTestEngine(src)

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := store.Count(detect.HandLift); got != 2 {
		t.Errorf("hand_lift count = %d, want 2", got)
	}
	for _, e := range detect.Exercises {
		if e != detect.HandLift && store.Count(e) != 0 {
			t.Errorf("%s count = %d, want 0", e, store.Count(e))
		}
	}

	stats := eng.Stats()
	if stats.FramesProcessed != 4 {
		t.Errorf("frames processed = %d, want 4", stats.FramesProcessed)
	}
	if stats.FramesSkipped != 2 {
		t.Errorf("frames skipped = %d, want 2", stats.FramesSkipped)
	}
	if stats.RepsDetected != 2 {
		t.Errorf("reps detected = %d, want 2", stats.RepsDetected)
	}
}

func TestRun_FinalFlushOnTeardown(t *testing.T) {
	// Two lift cycles 50 ms apart: the second event lands inside the
	// flush interval and must survive via the teardown flush.
	src := &cannedSource{frames: []*pose.Frame{
		liftFrame(0, true),
		liftFrame(20*time.Millisecond, false),
		liftFrame(50*time.Millisecond, true),
	}}
	eng, store := newTestEngine(src)

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := store.Count(detect.HandLift); got != 2 {
		t.Errorf("hand_lift count after teardown = %d, want 2 (final flush lost events)", got)
	}
}

func TestStep_MalformedSkeletonSkipped(t *testing.T) {
	eng, store := newTestEngine(nil)

	short := &pose.Frame{
		Keypoints: make([]pose.Keypoint, 5),
		Width:     640, Height: 480,
		Timestamp: epoch,
	}
	eng.Step(short)

	if stats := eng.Stats(); stats.FramesSkipped != 1 || stats.FramesProcessed != 0 {
		t.Errorf("stats = %+v, want 1 skipped, 0 processed", stats)
	}
	if store.Total() != 0 {
		t.Errorf("counts changed on malformed input: %v", store.Counts())
	}
}

func TestStep_NoValidKeypointsNoCounts(t *testing.T) {
	eng, store := newTestEngine(nil)

	f := &pose.Frame{Width: 640, Height: 480, Timestamp: epoch}
	for _, name := range pose.Names {
		f.Keypoints = append(f.Keypoints, pose.Keypoint{Name: name, X: 0.5, Y: 0.5, Score: 0.01})
	}

	for i := 0; i < 20; i++ {
		f.Timestamp = epoch.Add(time.Duration(i*33) * time.Millisecond)
		eng.Step(f)
	}
	if store.Total() != 0 {
		t.Errorf("counts changed with no valid keypoints: %v", store.Counts())
	}
}

func TestReset_ReplaysFromZero(t *testing.T) {
	eng, store := newTestEngine(nil)

	eng.Step(liftFrame(0, true))
	eng.Step(liftFrame(time.Second, false))
	if got := store.Count(detect.HandLift); got != 1 {
		t.Fatalf("precondition: hand_lift count = %d, want 1", got)
	}

	eng.Reset()
	if store.Total() != 0 {
		t.Fatalf("counts after reset = %v, want all zero", store.Counts())
	}

	// Replaying the single-cycle scenario counts from 0, not a stale
	// value.
	eng.Step(liftFrame(2*time.Second, true))
	if got := store.Count(detect.HandLift); got != 1 {
		t.Errorf("hand_lift count after reset replay = %d, want 1", got)
	}
}

func TestRun_PausedDrainsWithoutCounting(t *testing.T) {
	src := &cannedSource{frames: []*pose.Frame{
		liftFrame(0, true),
		liftFrame(33*time.Millisecond, false),
	}}
	eng, store := newTestEngine(src)
	eng.Pause()

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if store.Total() != 0 {
		t.Errorf("paused engine counted reps: %v", store.Counts())
	}
	if stats := eng.Stats(); stats.FramesSkipped != 2 {
		t.Errorf("frames skipped while paused = %d, want 2", stats.FramesSkipped)
	}
}

// failingSource errors a fixed number of times, then hands off to an
// inner source (nil inner keeps erroring forever).
type failingSource struct {
	err   error
	fails int
	calls int
	inner FrameSource
}

func (s *failingSource) Next(ctx context.Context) (*pose.Frame, error) {
	s.calls++
	if s.inner == nil || s.calls <= s.fails {
		return nil, s.err
	}
	return s.inner.Next(ctx)
}

func TestRun_DeadSourceStopsWithBoundedRetries(t *testing.T) {
	prev := sourceRetryDelay
	sourceRetryDelay = time.Millisecond
	defer func() { sourceRetryDelay = prev }()

	src := &failingSource{err: errors.New("estimator exited")}
	eng, _ := newTestEngine(src)

	done := make(chan error, 1)
	go func() { done <- eng.Run(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Run() = nil, want persistent source error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop on a dead source")
	}

	if src.calls != maxSourceErrStreak {
		t.Errorf("Next() calls = %d, want exactly %d (retries must be bounded)", src.calls, maxSourceErrStreak)
	}
}

func TestRun_TransientSourceErrorRecovers(t *testing.T) {
	prev := sourceRetryDelay
	sourceRetryDelay = time.Millisecond
	defer func() { sourceRetryDelay = prev }()

	src := &failingSource{
		err:   errors.New("camera busy"),
		fails: 3,
		inner: &cannedSource{frames: []*pose.Frame{
			liftFrame(0, true),
			liftFrame(33*time.Millisecond, false),
		}},
	}
	eng, store := newTestEngine(src)

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() after transient errors = %v, want nil", err)
	}
	if got := store.Count(detect.HandLift); got != 1 {
		t.Errorf("hand_lift count = %d, want 1 (recovery lost frames)", got)
	}
	if stats := eng.Stats(); stats.FramesSkipped != 3 {
		t.Errorf("frames skipped = %d, want 3 error ticks", stats.FramesSkipped)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &cannedSource{frames: []*pose.Frame{liftFrame(0, true)}}
	eng, _ := newTestEngine(src)

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() after cancel = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
