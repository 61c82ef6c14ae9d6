package pose

import (
	"math"
	"testing"
	"time"
)

func TestFilterKeypoint_RescalesToPixelSpace(t *testing.T) {
	kp := Keypoint{Name: LeftWrist, X: 0.5, Y: 0.25, Score: 0.9}

	p, ok := FilterKeypoint(kp, 640, 480, DefaultMinScore)
	if !ok {
		t.Fatal("valid keypoint rejected")
	}
	if p.X != 320 || p.Y != 120 {
		t.Errorf("rescaled point = (%v, %v), want (320, 120)", p.X, p.Y)
	}
}

func TestFilterKeypoint_Rejections(t *testing.T) {
	tests := []struct {
		name string
		kp   Keypoint
	}{
		{"low confidence", Keypoint{X: 0.5, Y: 0.5, Score: 0.19}},
		{"missing confidence", Keypoint{X: 0.5, Y: 0.5, Score: math.NaN()}},
		{"nan x", Keypoint{X: math.NaN(), Y: 0.5, Score: 0.9}},
		{"nan y", Keypoint{X: 0.5, Y: math.NaN(), Score: 0.9}},
		{"inf x", Keypoint{X: math.Inf(1), Y: 0.5, Score: 0.9}},
		{"inf y", Keypoint{X: 0.5, Y: math.Inf(-1), Score: 0.9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := FilterKeypoint(tt.kp, 640, 480, DefaultMinScore); ok {
				t.Errorf("keypoint %+v passed filter, want rejected", tt.kp)
			}
		})
	}
}

func TestFilterKeypoint_ScoreAtThresholdPasses(t *testing.T) {
	kp := Keypoint{X: 0.1, Y: 0.1, Score: 0.2}
	if _, ok := FilterKeypoint(kp, 640, 480, DefaultMinScore); !ok {
		t.Error("keypoint at exactly the confidence threshold rejected")
	}
}

func TestFilterFrame_ShortSkeletonIsMalformed(t *testing.T) {
	f := &Frame{
		Keypoints: make([]Keypoint, NumKeypoints-1),
		Width:     640,
		Height:    480,
	}
	if got := FilterFrame(f, DefaultMinScore); got != nil {
		t.Errorf("FilterFrame(short skeleton) = %+v, want nil", got)
	}
	if got := FilterFrame(nil, DefaultMinScore); got != nil {
		t.Errorf("FilterFrame(nil) = %+v, want nil", got)
	}
}

func TestFilterFrame_KeepsOnlyValidKeypoints(t *testing.T) {
	now := time.Now()
	f := &Frame{Width: 640, Height: 480, Timestamp: now}
	for _, name := range Names {
		score := 0.9
		if name == LeftKnee || name == RightKnee {
			score = 0.05
		}
		f.Keypoints = append(f.Keypoints, Keypoint{Name: name, X: 0.5, Y: 0.5, Score: score})
	}

	got := FilterFrame(f, DefaultMinScore)
	if got == nil {
		t.Fatal("well-formed frame filtered to nil")
	}
	if len(got.Points) != NumKeypoints-2 {
		t.Errorf("surviving keypoints = %d, want %d", len(got.Points), NumKeypoints-2)
	}
	if _, ok := got.Point(LeftKnee); ok {
		t.Error("low-confidence keypoint survived the filter")
	}
	if p, ok := got.Point(Nose); !ok || p.X != 320 || p.Y != 240 {
		t.Errorf("nose = %+v (present=%v), want (320, 240)", p, ok)
	}
	if !got.Timestamp.Equal(now) {
		t.Error("frame timestamp not carried through the filter")
	}
}
