package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skappel/farescout/internal/config"
	"github.com/skappel/farescout/internal/core"
)

// message is one queued webhook delivery. The job id is the payload the
// worker acts on; attempt counts redeliveries by the relay.
type message struct {
	JobID      string    `json:"job_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempt    int       `json:"attempt,omitempty"`
}

type publisher struct {
	rdb    *redis.Client
	queue  string
	logger *slog.Logger
}

// NewPublisher creates a core.QueuePublisher that appends messages to the
// configured redis list. Durability is redis persistence; delivery is the
// relay's job.
func NewPublisher(rdb *redis.Client, cfg *config.QueueConfig, logger *slog.Logger) core.QueuePublisher {
	return &publisher{rdb: rdb, queue: cfg.Name, logger: logger}
}

// Publish enqueues one job id. An error means the message was never queued
// and the job will sit in pending forever; the caller decides how to surface
// that.
func (p *publisher) Publish(ctx context.Context, jobID string) error {
	payload, err := json.Marshal(message{JobID: jobID, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode queue message: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queue, payload).Err(); err != nil {
		p.logger.Error("failed to publish search job", "job_id", jobID, "queue", p.queue, "error", err)
		return fmt.Errorf("failed to publish job %s: %w", jobID, err)
	}

	p.logger.Debug("queued search job", "job_id", jobID, "queue", p.queue)
	return nil
}
