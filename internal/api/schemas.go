package api

import (
	"time"

	"github.com/repmeter/repmeter-agent/internal/history"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State           string                   `json:"state"`
	SessionID       string                   `json:"session_id"`
	Source          string                   `json:"source"`
	FramesProcessed int64                    `json:"frames_processed"`
	FramesSkipped   int64                    `json:"frames_skipped"`
	RepsDetected    int64                    `json:"reps_detected"`
	Estimator       *EstimatorStatusResponse `json:"estimator,omitempty"`
}

type EstimatorStatusResponse struct {
	ModelName   string `json:"model_name"`
	ModelLoaded bool   `json:"model_loaded"`
	CameraCount int    `json:"camera_count"`
	LastProbeAt string `json:"last_probe_at,omitempty"`
	DepsAvail   int    `json:"deps_available"`
	DepsTotal   int    `json:"deps_total"`
}

type CountsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

type CountResponse struct {
	Exercise string `json:"exercise"`
	Count    int    `json:"count"`
}

type ResetResponse struct {
	Status string `json:"status"`
}

type SessionResponse struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
}

type SessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

type SessionCountResponse struct {
	Exercise  string `json:"exercise"`
	Count     int    `json:"count"`
	UpdatedAt string `json:"updated_at"`
}

type SessionDetailResponse struct {
	Session SessionResponse        `json:"session"`
	Counts  []SessionCountResponse `json:"counts"`
	Total   int                    `json:"total"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func SessionToResponse(s *history.Session) SessionResponse {
	resp := SessionResponse{
		ID:        s.ID,
		Source:    s.Source,
		StartedAt: s.StartedAt.Format(time.RFC3339),
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(time.RFC3339)
	}
	return resp
}

func SessionCountToResponse(c *history.SessionCount) SessionCountResponse {
	return SessionCountResponse{
		Exercise:  c.Exercise,
		Count:     c.Count,
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}
