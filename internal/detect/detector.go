// Package detect implements the per-exercise repetition detectors.
//
// Each detector is a small two-state machine driven by filtered
// keypoints: a hysteresis band (distinct enter and exit thresholds)
// prevents flapping near a single boundary, and a debounce interval on
// one designated transition prevents a held pose or frame jitter from
// producing more than one repetition per physical movement. Detectors
// never share state and never error: a frame missing a required
// keypoint simply produces no transition.
package detect

import (
	"time"

	"github.com/repmeter/repmeter-agent/internal/pose"
)

// Exercise names the seven supported exercise types.
type Exercise string

const (
	HandLift    Exercise = "hand_lift"
	EyeBlink    Exercise = "eye_blink"
	PushUp      Exercise = "push_up"
	HighJump    Exercise = "high_jump"
	Squat       Exercise = "squat"
	JumpingJack Exercise = "jumping_jack"
	Lunge       Exercise = "lunge"
)

// Exercises lists every exercise in the fixed order the registry
// dispatches frames to them.
var Exercises = []Exercise{
	HandLift, EyeBlink, PushUp, HighJump, Squat, JumpingJack, Lunge,
}

// Valid reports whether e is one of the seven known exercises.
func (e Exercise) Valid() bool {
	for _, known := range Exercises {
		if e == known {
			return true
		}
	}
	return false
}

// State is the persistent per-exercise detector state. Active means the
// detector is in the exercise's active phase (down for push-up/squat/
// lunge, up for high jump, open for jumping jack, lifted/closed for
// hand lift and blink). LastGuarded is when the debounced transition
// last fired; the zero value never suppresses.
type State struct {
	Active      bool
	LastGuarded time.Time
}

// debounced reports whether the guarded transition may fire at now.
func (s State) debounced(now time.Time, interval time.Duration) bool {
	if interval <= 0 || s.LastGuarded.IsZero() {
		return true
	}
	return now.Sub(s.LastGuarded) >= interval
}

// Event is one detected repetition.
type Event struct {
	Exercise Exercise
	At       time.Time
}

// stepFunc advances one detector by one frame. It returns the new state
// and whether a repetition was emitted this frame. Implementations must
// be pure: no side effects beyond the returned state.
type stepFunc func(c Tunables, s State, f *pose.Filtered) (State, bool)

// Tunables holds every geometric threshold and debounce interval.
// Absolute pixel values are calibrated for a 640x480 reference frame;
// fields expressed as fractions scale with the live frame size.
type Tunables struct {
	// Hand lift: wrist above shoulder, edge-triggered.
	HandLiftMargin float64 // pixels added to shoulder y

	// Eye blink: mean eye-to-nose distance band.
	BlinkEnter    float64 // pixels, enter below
	BlinkExit     float64 // pixels, exit above
	BlinkDebounce time.Duration

	// Push-up: shoulder height as a fraction of frame height.
	PushUpDownFrac float64 // enter down below this point (larger y)
	PushUpUpFrac   float64 // emit when back above this point
	PushUpDebounce time.Duration

	// High jump: mean ankle height as a fraction of frame height.
	JumpUpFrac   float64 // emit when ankles rise above this point
	JumpDownFrac float64 // return to rest when ankles drop below
	JumpDebounce time.Duration

	// Squat: knee relative to hip.
	SquatDownMargin float64 // pixels, knee below hip+margin enters down
	SquatUpMargin   float64 // pixels, knee above hip+margin emits
	SquatDebounce   time.Duration

	// Jumping jack: wrist and ankle spread as fractions of frame width.
	JackArmOpenFrac   float64
	JackLegOpenFrac   float64
	JackArmClosedFrac float64
	JackLegClosedFrac float64
	JackDebounce      time.Duration

	// Lunge: right knee relative to right hip.
	LungeDropMin     float64 // pixels, |knee-hip| vertical gap entering down
	LungeRiseMax     float64 // pixels, vertical gap below this emits
	LungeForwardMin  float64 // pixels, knee must be ahead of hip
	LungeDebounce    time.Duration
}

// DefaultTunables returns the production thresholds.
func DefaultTunables() Tunables {
	return Tunables{
		HandLiftMargin: 10,

		BlinkEnter:    80,
		BlinkExit:     95,
		BlinkDebounce: 250 * time.Millisecond,

		PushUpDownFrac: 0.45,
		PushUpUpFrac:   0.25,
		PushUpDebounce: 400 * time.Millisecond,

		JumpUpFrac:   0.24,
		JumpDownFrac: 0.66,
		JumpDebounce: 500 * time.Millisecond,

		SquatDownMargin: 40,
		SquatUpMargin:   10,
		SquatDebounce:   500 * time.Millisecond,

		JackArmOpenFrac:   0.34,
		JackLegOpenFrac:   0.18,
		JackArmClosedFrac: 0.12,
		JackLegClosedFrac: 0.06,
		JackDebounce:      350 * time.Millisecond,

		LungeDropMin:    80,
		LungeRiseMax:    40,
		LungeForwardMin: 10,
		LungeDebounce:   500 * time.Millisecond,
	}
}
