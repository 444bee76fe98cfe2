package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/skappel/farescout/internal/config"
	"github.com/skappel/farescout/internal/core"
	"github.com/skappel/farescout/internal/jobs"
	"github.com/skappel/farescout/internal/queue"
)

// WebhookHandler processes queue deliveries: it authenticates the request
// and hands the job id to the search worker.
type WebhookHandler struct {
	cfg    *config.Config
	worker *jobs.SearchWorker
	logger *slog.Logger
}

// NewWebhookHandler creates the webhook handler.
func NewWebhookHandler(cfg *config.Config, worker *jobs.SearchWorker, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, worker: worker, logger: logger}
}

type webhookBody struct {
	JobID string `json:"job_id"`
}

type webhookResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
}

// Handle processes POST /api/v1/webhook/queue.
//
// Response classes follow the queue contract: 200 acknowledges the delivery
// even when the job resolved to failed (a handled business outcome), 4xx
// tells the queue the message itself is bad, and 5xx asks for redelivery
// after an infrastructure failure.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if !h.verifySignature(r, body) {
		h.logger.Error("rejecting webhook with invalid signature", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var msg webhookBody
	if err := json.Unmarshal(body, &msg); err != nil || msg.JobID == "" {
		writeError(w, http.StatusBadRequest, "malformed webhook body")
		return
	}

	// The webhook's own deadline, not the client request timeout, bounds
	// processing; the queue provider waits longer than a browser would.
	ctx, cancel := context.WithTimeout(r.Context(), 55*time.Second)
	defer cancel()

	if err := h.worker.Process(ctx, msg.JobID); err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			// Redelivery cannot help a message that references no row.
			h.logger.Error("webhook references unknown job", "job_id", msg.JobID)
			writeError(w, http.StatusUnprocessableEntity, "unknown job")
			return
		}
		h.logger.Error("search worker failed", "job_id", msg.JobID, "error", err)
		writeError(w, http.StatusInternalServerError, "job processing failed")
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{Success: true, JobID: msg.JobID})
}

// verifySignature recomputes the HMAC over the raw body with both currently
// valid keys. A missing signature is always fatal. A missing timestamp only
// degrades the freshness log: the queue is trusted transport, so the
// receipt time is substituted rather than rejecting the delivery.
func (h *WebhookHandler) verifySignature(r *http.Request, body []byte) bool {
	signature := r.Header.Get(queue.SignatureHeader)
	if signature == "" {
		return false
	}

	now := time.Now()
	rawTimestamp := r.Header.Get(queue.TimestampHeader)
	if rawTimestamp == "" {
		h.logger.Warn("webhook missing timestamp header, substituting receipt time")
	}
	sentAt := queue.ParseTimestamp(rawTimestamp, now)
	if age := now.Sub(sentAt); age > 10*time.Minute {
		h.logger.Warn("webhook delivery is stale", "age", age.String())
	}

	return queue.Verify(body, signature,
		h.cfg.Queue.SigningKey, h.cfg.Queue.NextSigningKey)
}
