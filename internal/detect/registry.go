package detect

import "github.com/repmeter/repmeter-agent/internal/pose"

// steps binds each exercise to its step function. Order matches
// Exercises and fixes the dispatch order.
var steps = map[Exercise]stepFunc{
	HandLift:    stepHandLift,
	EyeBlink:    stepBlink,
	PushUp:      stepPushUp,
	HighJump:    stepHighJump,
	Squat:       stepSquat,
	JumpingJack: stepJumpingJack,
	Lunge:       stepLunge,
}

// Registry owns the seven detector states and dispatches each incoming
// frame to every detector in fixed order. It is not safe for concurrent
// use; the engine serializes Dispatch and Reset.
type Registry struct {
	tunables Tunables
	states   map[Exercise]State
}

// NewRegistry creates a registry with all detectors in their rest state.
func NewRegistry(tunables Tunables) *Registry {
	r := &Registry{
		tunables: tunables,
		states:   make(map[Exercise]State, len(Exercises)),
	}
	for _, e := range Exercises {
		r.states[e] = State{}
	}
	return r
}

// Dispatch feeds one filtered frame to every detector and collects the
// emitted repetition events. A nil frame produces no transitions.
func (r *Registry) Dispatch(f *pose.Filtered) []Event {
	if f == nil {
		return nil
	}

	var events []Event
	for _, e := range Exercises {
		next, emitted := steps[e](r.tunables, r.states[e], f)
		r.states[e] = next
		if emitted {
			events = append(events, Event{Exercise: e, At: f.Timestamp})
		}
	}
	return events
}

// Reset returns every detector to its rest state and clears debounce
// history.
func (r *Registry) Reset() {
	for _, e := range Exercises {
		r.states[e] = State{}
	}
}

// State returns the current state of one detector.
func (r *Registry) State(e Exercise) State {
	return r.states[e]
}
