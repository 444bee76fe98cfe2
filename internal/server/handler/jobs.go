package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skappel/farescout/internal/core"
)

// JobsHandler serves read access to search job rows.
type JobsHandler struct {
	store  core.JobStore
	logger *slog.Logger
}

// NewJobsHandler creates the jobs read handler.
func NewJobsHandler(store core.JobStore, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{store: store, logger: logger}
}

// Get serves GET /api/v1/jobs/{id}. Jobs owned by someone else answer 404,
// the same as jobs that do not exist.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing or invalid session token")
		return
	}

	jobID := chi.URLParam(r, "id")
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("failed to load job", "job_id", jobID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if job.Owner != owner {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// List serves GET /api/v1/jobs, the owner's recent jobs newest first.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing or invalid session token")
		return
	}

	jobs, err := h.store.ListJobsByOwner(r.Context(), owner, 20)
	if err != nil {
		h.logger.Error("failed to list jobs", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}
