package detect

import (
	"math"

	"github.com/repmeter/repmeter-agent/internal/pose"
)

// Image coordinates throughout: y grows downward, so a numerically
// smaller y is physically higher.

// stepHandLift counts a raised left wrist. Edge-triggered with no
// debounce: the emit happens on entering the lifted phase, and the
// detector re-arms once the wrist drops back below the shoulder line.
func stepHandLift(c Tunables, s State, f *pose.Filtered) (State, bool) {
	wrist, ok1 := f.Point(pose.LeftWrist)
	shoulder, ok2 := f.Point(pose.LeftShoulder)
	if !ok1 || !ok2 {
		return s, false
	}

	lifted := wrist.Y < shoulder.Y+c.HandLiftMargin
	switch {
	case !s.Active && lifted:
		s.Active = true
		return s, true
	case s.Active && !lifted:
		s.Active = false
	}
	return s, false
}

// stepBlink counts eye closures from the mean eye-to-nose distance.
// The 80/95 px hysteresis band stops chatter when the face hovers near
// a single threshold; the debounce caps the blink rate.
func stepBlink(c Tunables, s State, f *pose.Filtered) (State, bool) {
	left, ok1 := f.Point(pose.LeftEye)
	right, ok2 := f.Point(pose.RightEye)
	nose, ok3 := f.Point(pose.Nose)
	if !ok1 || !ok2 || !ok3 {
		return s, false
	}

	mean := (dist(left, nose) + dist(right, nose)) / 2
	switch {
	case !s.Active && mean < c.BlinkEnter:
		if !s.debounced(f.Timestamp, c.BlinkDebounce) {
			return s, false
		}
		s.Active = true
		s.LastGuarded = f.Timestamp
		return s, true
	case s.Active && mean > c.BlinkExit:
		s.Active = false
	}
	return s, false
}

// stepPushUp tracks the right shoulder height. Going down (shoulder
// sinking past 0.45 of the frame) arms the detector; rising back above
// 0.25 completes the rep. The debounce sits on the down transition so a
// shoulder bouncing around the lower threshold cannot re-arm instantly.
func stepPushUp(c Tunables, s State, f *pose.Filtered) (State, bool) {
	shoulder, ok := f.Point(pose.RightShoulder)
	if !ok {
		return s, false
	}

	switch {
	case !s.Active && shoulder.Y > c.PushUpDownFrac*f.Height:
		if !s.debounced(f.Timestamp, c.PushUpDebounce) {
			return s, false
		}
		s.Active = true
		s.LastGuarded = f.Timestamp
	case s.Active && shoulder.Y < c.PushUpUpFrac*f.Height:
		s.Active = false
		return s, true
	}
	return s, false
}

// stepHighJump counts jumps from the mean ankle height. The emit fires
// on leaving the ground (ankles above 0.24 of the frame) and the
// detector re-arms only once both ankles come well back down.
func stepHighJump(c Tunables, s State, f *pose.Filtered) (State, bool) {
	left, ok1 := f.Point(pose.LeftAnkle)
	right, ok2 := f.Point(pose.RightAnkle)
	if !ok1 || !ok2 {
		return s, false
	}

	mean := (left.Y + right.Y) / 2
	switch {
	case !s.Active && mean < c.JumpUpFrac*f.Height:
		if !s.debounced(f.Timestamp, c.JumpDebounce) {
			return s, false
		}
		s.Active = true
		s.LastGuarded = f.Timestamp
		return s, true
	case s.Active && mean > c.JumpDownFrac*f.Height:
		s.Active = false
	}
	return s, false
}

// stepSquat compares the left knee to the left hip. Sinking until the
// knee sits 40 px below the hip arms the rep (debounced); standing back
// up to within 10 px emits it.
func stepSquat(c Tunables, s State, f *pose.Filtered) (State, bool) {
	knee, ok1 := f.Point(pose.LeftKnee)
	hip, ok2 := f.Point(pose.LeftHip)
	if !ok1 || !ok2 {
		return s, false
	}

	switch {
	case !s.Active && knee.Y > hip.Y+c.SquatDownMargin:
		if !s.debounced(f.Timestamp, c.SquatDebounce) {
			return s, false
		}
		s.Active = true
		s.LastGuarded = f.Timestamp
	case s.Active && knee.Y < hip.Y+c.SquatUpMargin:
		s.Active = false
		return s, true
	}
	return s, false
}

// stepJumpingJack watches both wrists and both ankles. The emit fires
// on reaching the open position (arms and legs spread wide); the
// detector re-arms when both spreads close well below the open
// thresholds.
func stepJumpingJack(c Tunables, s State, f *pose.Filtered) (State, bool) {
	lw, ok1 := f.Point(pose.LeftWrist)
	rw, ok2 := f.Point(pose.RightWrist)
	la, ok3 := f.Point(pose.LeftAnkle)
	ra, ok4 := f.Point(pose.RightAnkle)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return s, false
	}

	armSpread := math.Abs(lw.X - rw.X)
	legSpread := math.Abs(la.X - ra.X)
	switch {
	case !s.Active && armSpread > c.JackArmOpenFrac*f.Width && legSpread > c.JackLegOpenFrac*f.Width:
		if !s.debounced(f.Timestamp, c.JackDebounce) {
			return s, false
		}
		s.Active = true
		s.LastGuarded = f.Timestamp
		return s, true
	case s.Active && armSpread < c.JackArmClosedFrac*f.Width && legSpread < c.JackLegClosedFrac*f.Width:
		s.Active = false
	}
	return s, false
}

// stepLunge tracks the right knee against the right hip. The down phase
// requires both a large vertical drop and the knee ahead of the hip, so
// a plain squat does not arm it; rising back to a small vertical gap
// emits the rep.
func stepLunge(c Tunables, s State, f *pose.Filtered) (State, bool) {
	knee, ok1 := f.Point(pose.RightKnee)
	hip, ok2 := f.Point(pose.RightHip)
	if !ok1 || !ok2 {
		return s, false
	}

	gap := math.Abs(knee.Y - hip.Y)
	switch {
	case !s.Active && gap > c.LungeDropMin && knee.X > hip.X+c.LungeForwardMin:
		if !s.debounced(f.Timestamp, c.LungeDebounce) {
			return s, false
		}
		s.Active = true
		s.LastGuarded = f.Timestamp
	case s.Active && gap < c.LungeRiseMax:
		s.Active = false
		return s, true
	}
	return s, false
}

func dist(a, b pose.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
