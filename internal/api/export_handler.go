package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/repmeter/repmeter-agent/internal/export"
)

// exportSessionHandler serves a plain-text workout summary for one
// recorded session.
func exportSessionHandler(cfg ServerConfig) http.HandlerFunc {
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

		summary := export.GenerateSummary(session, counts)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+session.ID+`.txt"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(summary)); err != nil {
			cfg.Logger.Error("failed to write export", "error", err, "session_id", id)
		}
	}
}
