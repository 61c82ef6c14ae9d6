package pose

import "math"

// DefaultMinScore is the confidence below which a keypoint is rejected.
const DefaultMinScore = 0.2

// FilterKeypoint validates a raw keypoint against the frame geometry and
// returns its position rescaled into pixel space. The second return is
// false when the keypoint is unusable this frame: confidence below
// minScore, or a non-finite coordinate after rescale. No smoothing and
// no interpolation happens here.
func FilterKeypoint(kp Keypoint, width, height, minScore float64) (Point, bool) {
	if math.IsNaN(kp.Score) || kp.Score < minScore {
		return Point{}, false
	}

	x := kp.X * width
	y := kp.Y * height

	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return Point{}, false
	}

	return Point{X: x, Y: y}, true
}

// FilterFrame runs every keypoint of a frame through FilterKeypoint and
// returns the surviving points keyed by name. A frame with fewer than
// the full 17 keypoint slots is treated as malformed input and yields
// nil (skip, not an error). Absent entries in a well-formed frame are
// simply left out of the result.
func FilterFrame(f *Frame, minScore float64) *Filtered {
	if f == nil || len(f.Keypoints) < NumKeypoints {
		return nil
	}

	out := &Filtered{
		Points:    make(map[string]Point, NumKeypoints),
		Width:     f.Width,
		Height:    f.Height,
		Timestamp: f.Timestamp,
	}
	for _, kp := range f.Keypoints {
		if p, ok := FilterKeypoint(kp, f.Width, f.Height, minScore); ok {
			out.Points[kp.Name] = p
		}
	}
	return out
}
