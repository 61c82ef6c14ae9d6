// Package pose defines the skeleton data model produced by the external
// pose-estimation collaborator and the keypoint filter that turns a raw
// skeleton into usable pixel-space coordinates.
package pose

import "time"

// The 17 anatomical keypoint names, in the fixed order the estimator
// reports them (COCO convention).
const (
	Nose          = "nose"
	LeftEye       = "left_eye"
	RightEye      = "right_eye"
	LeftEar       = "left_ear"
	RightEar      = "right_ear"
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
	LeftElbow     = "left_elbow"
	RightElbow    = "right_elbow"
	LeftWrist     = "left_wrist"
	RightWrist    = "right_wrist"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
	LeftKnee      = "left_knee"
	RightKnee     = "right_knee"
	LeftAnkle     = "left_ankle"
	RightAnkle    = "right_ankle"
)

// NumKeypoints is the number of keypoint slots in a well-formed skeleton.
const NumKeypoints = 17

// Names lists all keypoint names in estimator order.
var Names = [NumKeypoints]string{
	Nose, LeftEye, RightEye, LeftEar, RightEar,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow,
	LeftWrist, RightWrist, LeftHip, RightHip,
	LeftKnee, RightKnee, LeftAnkle, RightAnkle,
}

// Keypoint is one raw landmark as reported by the estimator.
// X and Y are normalized to [0,1] per axis; Score is in [0,1].
// Keypoints are recreated every frame and never mutated after filtering.
type Keypoint struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Frame is one skeleton estimate plus the coordinate space it was
// produced for. It is owned transiently by the pipeline for the
// duration of a single processing step.
type Frame struct {
	Keypoints []Keypoint `json:"keypoints"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	Timestamp time.Time  `json:"-"`
}

// Point is a validated keypoint position in pixel space.
type Point struct {
	X float64
	Y float64
}

// Filtered is the result of running a frame through the keypoint
// filter: only valid keypoints survive, rescaled into pixel space.
type Filtered struct {
	Points    map[string]Point
	Width     float64
	Height    float64
	Timestamp time.Time
}

// Point returns the named keypoint and whether it passed the filter
// this frame.
func (f *Filtered) Point(name string) (Point, bool) {
	p, ok := f.Points[name]
	return p, ok
}
