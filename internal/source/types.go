// Package source provides pose frame sources: the subprocess-based
// estimator the agent runs in production and an NDJSON replay source
// for canned frame sequences.
package source

import (
	"time"

	"github.com/repmeter/repmeter-agent/internal/pose"
)

// FrameRecord is one line of the estimator's NDJSON stream: a single
// skeleton estimate with the coordinate space it was produced for.
// Keypoint coordinates are normalized [0,1] per axis. An empty keypoint
// list means no person was detected this frame.
type FrameRecord struct {
	TimestampMs int64           `json:"ts_ms"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	Keypoints   []pose.Keypoint `json:"keypoints"`
}

// ToFrame converts a wire record into a pipeline frame. Records with no
// skeleton yield nil (skip this tick).
func (r FrameRecord) ToFrame() *pose.Frame {
	if len(r.Keypoints) == 0 {
		return nil
	}
	return &pose.Frame{
		Keypoints: r.Keypoints,
		Width:     r.Width,
		Height:    r.Height,
		Timestamp: time.UnixMilli(r.TimestampMs),
	}
}

// Capabilities reports what the installed estimator environment can do,
// as returned by the `doctor --json` command.
type Capabilities struct {
	PackageVersion string             `json:"package_version"`
	ModelName      string             `json:"model_name"`
	ModelLoaded    bool               `json:"model_loaded"`
	CameraCount    int                `json:"camera_count"`
	Dependencies   map[string]DepInfo `json:"dependencies"`
	Summary        SummaryInfo        `json:"summary"`

	ProbedAt time.Time `json:"-"`
}

// Ready reports whether the estimator can produce pose frames at all.
func (c *Capabilities) Ready() bool {
	return c.ModelLoaded && c.CameraCount > 0
}

// DepInfo is the availability status of a single Python dependency.
type DepInfo struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SummaryInfo summarises overall dependency status.
type SummaryInfo struct {
	Available int  `json:"available"`
	Total     int  `json:"total"`
	AllOK     bool `json:"all_ok"`
}
