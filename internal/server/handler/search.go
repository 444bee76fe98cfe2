// Package handler provides the HTTP handlers for the FareScout API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/skappel/farescout/internal/airports"
	"github.com/skappel/farescout/internal/core"
)

// SearchHandler is the dispatch entry point: it validates search parameters,
// expands metro codes, creates pending jobs, and queues them.
type SearchHandler struct {
	store     core.JobStore
	publisher core.QueuePublisher
	metros    *airports.Index
	logger    *slog.Logger
}

// NewSearchHandler creates the dispatch handler.
func NewSearchHandler(store core.JobStore, publisher core.QueuePublisher, metros *airports.Index, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{store: store, publisher: publisher, metros: metros, logger: logger}
}

type searchRequest struct {
	SearchParams core.SearchParams `json:"searchParams"`
}

type searchResponse struct {
	JobID  string   `json:"job_id,omitempty"`
	JobIDs []string `json:"job_ids,omitempty"`
	Status string   `json:"status"`
}

// Handle processes POST /api/v1/search. It responds 202 with the created job
// ids; the caller observes progress through the job change feed or by
// polling the jobs endpoint.
func (h *SearchHandler) Handle(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing or invalid session token")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := req.SearchParams.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// One job per airport pair; a metro code on either side fans out.
	var jobIDs []string
	for _, origin := range h.metros.Expand(req.SearchParams.Origin) {
		for _, destination := range h.metros.Expand(req.SearchParams.Destination) {
			if origin == destination {
				continue
			}
			params := req.SearchParams
			params.Origin = origin
			params.Destination = destination

			job, err := h.store.CreateJob(r.Context(), owner, params)
			if err != nil {
				h.logger.Error("failed to create search job", "owner", owner, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to create search job")
				return
			}
			if err := h.publisher.Publish(r.Context(), job.ID); err != nil {
				h.logger.Error("failed to queue search job", "job_id", job.ID, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to queue search job")
				return
			}
			jobIDs = append(jobIDs, job.ID)
		}
	}

	if len(jobIDs) == 0 {
		writeError(w, http.StatusBadRequest, "no searchable airport pairs for the given origin and destination")
		return
	}

	resp := searchResponse{Status: string(core.StatusPending)}
	if len(jobIDs) == 1 {
		resp.JobID = jobIDs[0]
	} else {
		resp.JobIDs = jobIDs
	}

	h.logger.Info("search jobs dispatched", "owner", owner, "jobs", len(jobIDs))
	writeJSON(w, http.StatusAccepted, resp)
}

// ownerFromRequest derives the requesting owner from the bearer token. A
// real deployment would validate a session here; the token itself is the
// owner identity for this service.
func ownerFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
