package detect

import (
	"testing"
	"time"

	"github.com/repmeter/repmeter-agent/internal/pose"
)

var testStart = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

// frameAt builds a filtered 640x480 frame with the given pixel-space
// points at an offset from the test epoch.
func frameAt(offset time.Duration, points map[string]pose.Point) *pose.Filtered {
	return &pose.Filtered{
		Points:    points,
		Width:     640,
		Height:    480,
		Timestamp: testStart.Add(offset),
	}
}

func TestHandLift_FullCycle(t *testing.T) {
	c := DefaultTunables()
	var s State

	lifted := map[string]pose.Point{
		pose.LeftWrist:    {X: 300, Y: 100},
		pose.LeftShoulder: {X: 300, Y: 150},
	}
	dropped := map[string]pose.Point{
		pose.LeftWrist:    {X: 300, Y: 200},
		pose.LeftShoulder: {X: 300, Y: 150},
	}

	// Frame 1: wrist above shoulder emits immediately.
	s, emitted := stepHandLift(c, s, frameAt(0, lifted))
	if !emitted || !s.Active {
		t.Fatalf("frame 1: emitted=%v active=%v, want true/true", emitted, s.Active)
	}

	// Frame 2: same pose, already active, no second emit.
	s, emitted = stepHandLift(c, s, frameAt(33*time.Millisecond, lifted))
	if emitted {
		t.Fatal("frame 2: held pose re-emitted")
	}

	// Frame 3: wrist drops, back to rest, no emit.
	s, emitted = stepHandLift(c, s, frameAt(66*time.Millisecond, dropped))
	if emitted || s.Active {
		t.Fatalf("frame 3: emitted=%v active=%v, want false/false", emitted, s.Active)
	}

	// Frame 4: lifted again, second rep.
	_, emitted = stepHandLift(c, s, frameAt(99*time.Millisecond, lifted))
	if !emitted {
		t.Fatal("frame 4: second lift did not emit")
	}
}

func TestHandLift_MarginBoundary(t *testing.T) {
	c := DefaultTunables()
	var s State

	// Wrist exactly at shoulder+margin is not lifted.
	atMargin := map[string]pose.Point{
		pose.LeftWrist:    {X: 0, Y: 160},
		pose.LeftShoulder: {X: 0, Y: 150},
	}
	if _, emitted := stepHandLift(c, s, frameAt(0, atMargin)); emitted {
		t.Error("wrist at shoulder+margin counted as lifted")
	}
}

func TestBlink_HysteresisBand(t *testing.T) {
	c := DefaultTunables()
	var s State

	face := func(eyeDist float64) map[string]pose.Point {
		return map[string]pose.Point{
			pose.Nose:     {X: 320, Y: 100},
			pose.LeftEye:  {X: 320 - eyeDist, Y: 100},
			pose.RightEye: {X: 320 + eyeDist, Y: 100},
		}
	}

	s, emitted := stepBlink(c, s, frameAt(0, face(70)))
	if !emitted {
		t.Fatal("closing below the enter threshold did not emit")
	}

	// Distance inside the 80-95 band: still active, no flapping.
	s, emitted = stepBlink(c, s, frameAt(300*time.Millisecond, face(88)))
	if emitted || !s.Active {
		t.Fatalf("inside band: emitted=%v active=%v, want false/true", emitted, s.Active)
	}

	// Past the exit threshold: back to rest.
	s, _ = stepBlink(c, s, frameAt(600*time.Millisecond, face(100)))
	if s.Active {
		t.Fatal("did not return to rest past the exit threshold")
	}

	// Re-enter after the debounce: second rep.
	if _, emitted = stepBlink(c, s, frameAt(900*time.Millisecond, face(70))); !emitted {
		t.Fatal("second blink did not emit")
	}
}

func TestBlink_DebounceSuppresses(t *testing.T) {
	c := DefaultTunables()
	var s State

	face := func(eyeDist float64) map[string]pose.Point {
		return map[string]pose.Point{
			pose.Nose:     {X: 320, Y: 100},
			pose.LeftEye:  {X: 320 - eyeDist, Y: 100},
			pose.RightEye: {X: 320 + eyeDist, Y: 100},
		}
	}

	s, _ = stepBlink(c, s, frameAt(0, face(70)))         // emit
	s, _ = stepBlink(c, s, frameAt(50*time.Millisecond, face(100))) // rest

	// 100 ms after the first emit, inside the 250 ms debounce.
	s, emitted := stepBlink(c, s, frameAt(100*time.Millisecond, face(70)))
	if emitted {
		t.Fatal("blink re-emitted inside the debounce window")
	}
	if s.Active {
		t.Fatal("suppressed transition still changed state")
	}

	// Past the debounce the same pose counts.
	if _, emitted = stepBlink(c, s, frameAt(300*time.Millisecond, face(70))); !emitted {
		t.Fatal("blink after the debounce window did not emit")
	}
}

func TestPushUp_FullCycle(t *testing.T) {
	c := DefaultTunables()
	var s State

	shoulder := func(y float64) map[string]pose.Point {
		return map[string]pose.Point{pose.RightShoulder: {X: 320, Y: y}}
	}

	// 0.45 * 480 = 216: sinking past it arms, no emit.
	s, emitted := stepPushUp(c, s, frameAt(0, shoulder(250)))
	if emitted || !s.Active {
		t.Fatalf("down: emitted=%v active=%v, want false/true", emitted, s.Active)
	}

	// 0.25 * 480 = 120: rising above it emits.
	s, emitted = stepPushUp(c, s, frameAt(100*time.Millisecond, shoulder(100)))
	if !emitted || s.Active {
		t.Fatalf("up: emitted=%v active=%v, want true/false", emitted, s.Active)
	}

	// Re-descent 200 ms after the first down transition is inside the
	// 400 ms down debounce.
	s, _ = stepPushUp(c, s, frameAt(200*time.Millisecond, shoulder(250)))
	if s.Active {
		t.Fatal("down transition accepted inside the debounce window")
	}

	// Past the debounce the descent arms again.
	s, _ = stepPushUp(c, s, frameAt(500*time.Millisecond, shoulder(250)))
	if !s.Active {
		t.Fatal("down transition rejected after the debounce window")
	}
}

func TestHighJump_EmitAndDebounce(t *testing.T) {
	c := DefaultTunables()
	var s State

	ankles := func(y float64) map[string]pose.Point {
		return map[string]pose.Point{
			pose.LeftAnkle:  {X: 300, Y: y},
			pose.RightAnkle: {X: 340, Y: y},
		}
	}

	// Mean ankle y = 50 < 0.24*480 = 115.2: emit, state up.
	s, emitted := stepHighJump(c, s, frameAt(0, ankles(50)))
	if !emitted || !s.Active {
		t.Fatalf("jump: emitted=%v active=%v, want true/true", emitted, s.Active)
	}

	// Landing: 0.66*480 = 316.8, ankles below re-arm.
	s, emitted = stepHighJump(c, s, frameAt(200*time.Millisecond, ankles(400)))
	if emitted || s.Active {
		t.Fatalf("land: emitted=%v active=%v, want false/false", emitted, s.Active)
	}

	// 300 ms after the first emit: inside the 500 ms debounce.
	s, emitted = stepHighJump(c, s, frameAt(300*time.Millisecond, ankles(50)))
	if emitted {
		t.Fatal("jump re-emitted inside the debounce window")
	}

	// 500 ms after the first emit the rep counts.
	if _, emitted = stepHighJump(c, s, frameAt(500*time.Millisecond, ankles(50))); !emitted {
		t.Fatal("jump after the debounce window did not emit")
	}
}

func TestSquat_FullCycle(t *testing.T) {
	c := DefaultTunables()
	var s State

	legs := func(kneeY float64) map[string]pose.Point {
		return map[string]pose.Point{
			pose.LeftKnee: {X: 300, Y: kneeY},
			pose.LeftHip:  {X: 300, Y: 240},
		}
	}

	// Knee 50 px below hip: down, no emit.
	s, emitted := stepSquat(c, s, frameAt(0, legs(290)))
	if emitted || !s.Active {
		t.Fatalf("down: emitted=%v active=%v, want false/true", emitted, s.Active)
	}

	// Knee back within 10 px of the hip: emit.
	s, emitted = stepSquat(c, s, frameAt(800*time.Millisecond, legs(245)))
	if !emitted || s.Active {
		t.Fatalf("up: emitted=%v active=%v, want true/false", emitted, s.Active)
	}

	// Mid-band position neither arms nor emits.
	if _, emitted = stepSquat(c, s, frameAt(1600*time.Millisecond, legs(265))); emitted {
		t.Fatal("mid-band knee position emitted")
	}
}

func TestJumpingJack_SpreadThresholds(t *testing.T) {
	c := DefaultTunables()
	var s State

	spread := func(arm, leg float64) map[string]pose.Point {
		return map[string]pose.Point{
			pose.LeftWrist:  {X: 320 - arm/2, Y: 100},
			pose.RightWrist: {X: 320 + arm/2, Y: 100},
			pose.LeftAnkle:  {X: 320 - leg/2, Y: 460},
			pose.RightAnkle: {X: 320 + leg/2, Y: 460},
		}
	}

	// Open: arms > 0.34*640 = 217.6 and legs > 0.18*640 = 115.2.
	s, emitted := stepJumpingJack(c, s, frameAt(0, spread(250, 140)))
	if !emitted || !s.Active {
		t.Fatalf("open: emitted=%v active=%v, want true/true", emitted, s.Active)
	}

	// Wide arms but closed legs stays open (no transition either way).
	s, emitted = stepJumpingJack(c, s, frameAt(400*time.Millisecond, spread(250, 30)))
	if emitted || !s.Active {
		t.Fatalf("half-closed: emitted=%v active=%v, want false/true", emitted, s.Active)
	}

	// Fully closed: arms < 0.12*640 = 76.8 and legs < 0.06*640 = 38.4.
	s, _ = stepJumpingJack(c, s, frameAt(800*time.Millisecond, spread(50, 20)))
	if s.Active {
		t.Fatal("did not close from a fully closed pose")
	}

	// Second rep past the debounce.
	if _, emitted = stepJumpingJack(c, s, frameAt(1200*time.Millisecond, spread(250, 140))); !emitted {
		t.Fatal("second jack did not emit")
	}
}

func TestLunge_RequiresForwardKnee(t *testing.T) {
	c := DefaultTunables()
	var s State

	pts := func(kneeY, kneeX float64) map[string]pose.Point {
		return map[string]pose.Point{
			pose.RightKnee: {X: kneeX, Y: kneeY},
			pose.RightHip:  {X: 300, Y: 240},
		}
	}

	// Deep drop but knee behind the hip: not a lunge.
	s, _ = stepLunge(c, s, frameAt(0, pts(340, 290)))
	if s.Active {
		t.Fatal("armed without the knee ahead of the hip")
	}

	// Deep drop with the knee forward arms the rep.
	s, emitted := stepLunge(c, s, frameAt(100*time.Millisecond, pts(340, 320)))
	if emitted || !s.Active {
		t.Fatalf("down: emitted=%v active=%v, want false/true", emitted, s.Active)
	}

	// Rising to a small vertical gap emits.
	s, emitted = stepLunge(c, s, frameAt(900*time.Millisecond, pts(260, 320)))
	if !emitted || s.Active {
		t.Fatalf("up: emitted=%v active=%v, want true/false", emitted, s.Active)
	}
}

func TestDetectors_MissingKeypointsNoTransition(t *testing.T) {
	c := DefaultTunables()
	empty := frameAt(0, map[string]pose.Point{})

	for e, step := range steps {
		s, emitted := step(c, State{}, empty)
		if emitted || s.Active || !s.LastGuarded.IsZero() {
			t.Errorf("%s: transitioned on a frame with no valid keypoints", e)
		}
	}
}

func TestDetectors_OscillationBoundedByDebounce(t *testing.T) {
	c := DefaultTunables()
	var s State

	ankles := func(y float64) map[string]pose.Point {
		return map[string]pose.Point{
			pose.LeftAnkle:  {X: 300, Y: y},
			pose.RightAnkle: {X: 340, Y: y},
		}
	}

	// 10 oscillations across both thresholds within 100 ms against a
	// 500 ms debounce: at most one emit.
	emits := 0
	for i := 0; i < 10; i++ {
		at := time.Duration(i*10) * time.Millisecond
		var emitted bool
		s, emitted = stepHighJump(c, s, frameAt(at, ankles(50)))
		if emitted {
			emits++
		}
		s, _ = stepHighJump(c, s, frameAt(at+5*time.Millisecond, ankles(400)))
	}
	if emits > 1 {
		t.Errorf("oscillation produced %d emits, want at most 1 per debounce interval", emits)
	}
}
