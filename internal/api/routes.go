package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/repmeter/repmeter-agent/internal/config"
	"github.com/repmeter/repmeter-agent/internal/detect"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/counts", countsHandler(cfg))
		r.Get("/counts/{exercise}", countHandler(cfg))
		r.Post("/reset", resetHandler(cfg))
		r.Get("/sessions", listSessionsHandler(cfg))
		r.Get("/sessions/{id}", getSessionHandler(cfg))
		r.Get("/sessions/{id}/export", exportSessionHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := "running"
		if cfg.Engine != nil && cfg.Engine.IsPaused() {
			state = "paused"
		}

		resp := StatusResponse{
			State:     state,
			SessionID: cfg.SessionID,
			Source:    cfg.SourceKind,
		}
		if cfg.Engine != nil {
			stats := cfg.Engine.Stats()
			resp.FramesProcessed = stats.FramesProcessed
			resp.FramesSkipped = stats.FramesSkipped
			resp.RepsDetected = stats.RepsDetected
		}

		if cfg.Doctor != nil {
			caps, err := cfg.Doctor.Get(r.Context())
			if err == nil && caps != nil {
				est := &EstimatorStatusResponse{
					ModelName:   caps.ModelName,
					ModelLoaded: caps.ModelLoaded,
					CameraCount: caps.CameraCount,
					DepsAvail:   caps.Summary.Available,
					DepsTotal:   caps.Summary.Total,
				}
				if !caps.ProbedAt.IsZero() {
					est.LastProbeAt = caps.ProbedAt.Format(time.RFC3339)
				}
				resp.Estimator = est
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func countsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts := cfg.Store.Counts()
		resp := CountsResponse{Counts: make(map[string]int, len(counts))}
		for e, n := range counts {
			resp.Counts[string(e)] = n
			resp.Total += n
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func countHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exercise := detect.Exercise(chi.URLParam(r, "exercise"))
		if !exercise.Valid() {
			WriteError(w, http.StatusNotFound, "unknown exercise", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, CountResponse{
			Exercise: string(exercise),
			Count:    cfg.Store.Count(exercise),
		})
	}
}

func resetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Engine == nil {
			WriteError(w, http.StatusServiceUnavailable, "engine not running", "UNAVAILABLE")
			return
		}
		cfg.Engine.Reset()
		cfg.Logger.Info("counts reset via API")
		WriteJSON(w, http.StatusOK, ResetResponse{Status: "ok"})
	}
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := cfg.Repository.ListSessions(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list sessions", "INTERNAL_ERROR")
			return
		}

		resp := SessionsResponse{Sessions: make([]SessionResponse, len(sessions))}
		for i, s := range sessions {
			resp.Sessions[i] = SessionToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "session id required", "BAD_REQUEST")
			return
		}

		session, err := cfg.Repository.GetSession(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if session == nil {
			WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
			return
		}

		counts, err := cfg.Repository.GetSessionCounts(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := SessionDetailResponse{
			Session: SessionToResponse(session),
			Counts:  make([]SessionCountResponse, len(counts)),
		}
		for i, c := range counts {
			resp.Counts[i] = SessionCountToResponse(c)
			resp.Total += c.Count
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
