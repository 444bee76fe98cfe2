package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skappel/farescout/internal/config"
)

// popTimeout bounds each blocking pop so Stop is honored promptly.
const popTimeout = time.Second

// Relay drains the queue and delivers each message to the worker webhook as
// a signed HTTP POST. Delivery is at-least-once: a 5xx response or a
// transport failure puts the message back on the queue with a capped
// backoff, a 4xx drops it as poison, anything else acks it.
type Relay struct {
	rdb         *redis.Client
	queue       string
	deadQueue   string
	webhookURL  string
	signingKey  string
	maxAttempts int
	retryDelay  time.Duration
	client      *http.Client
	logger      *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewRelay creates a Relay from the queue configuration. Deliveries are
// always signed with the current key; the worker additionally accepts the
// next key so keys can rotate without a coordinated restart.
func NewRelay(rdb *redis.Client, cfg *config.QueueConfig, logger *slog.Logger) *Relay {
	return &Relay{
		rdb:         rdb,
		queue:       cfg.Name,
		deadQueue:   cfg.Name + ":dead",
		webhookURL:  cfg.WebhookURL,
		signingKey:  cfg.SigningKey,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		client:      &http.Client{Timeout: 45 * time.Second},
		logger:      logger,
		stop:        make(chan struct{}),
	}
}

// Start launches the delivery loop.
func (r *Relay) Start() {
	r.wg.Add(1)
	go r.run()
	r.logger.Info("queue relay started", "queue", r.queue, "webhook", r.webhookURL)
}

// Stop halts the delivery loop and waits for an in-flight delivery to
// finish. Messages still on the queue stay there for the next start.
func (r *Relay) Stop() {
	close(r.stop)
	r.wg.Wait()
	r.logger.Info("queue relay stopped", "queue", r.queue)
}

func (r *Relay) run() {
	defer r.wg.Done()

	for {
		select {
		case <-r.stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), popTimeout+time.Second)
		vals, err := r.rdb.BRPop(ctx, popTimeout, r.queue).Result()
		cancel()
		if err != nil {
			if !errors.Is(err, redis.Nil) && !errors.Is(err, context.DeadlineExceeded) {
				r.logger.Error("queue pop failed", "queue", r.queue, "error", err)
				// Back off instead of hot-looping on a broken connection.
				select {
				case <-time.After(r.retryDelay):
				case <-r.stop:
					return
				}
			}
			continue
		}
		// BRPop returns [key, value].
		r.deliver([]byte(vals[1]))
	}
}

// deliver POSTs one message to the webhook and decides its fate from the
// response class.
func (r *Relay) deliver(payload []byte) {
	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.Error("dropping malformed queue message", "error", err)
		return
	}

	status, err := r.post(payload)
	switch {
	case err == nil && status >= 200 && status <= 299:
		r.logger.Debug("webhook delivery acknowledged", "job_id", msg.JobID, "status", status)

	case err == nil && status >= 400 && status <= 499:
		// The worker refused the message itself; redelivering the same bytes
		// cannot succeed.
		r.logger.Error("dropping rejected queue message", "job_id", msg.JobID, "status", status)
		r.sendToDeadQueue(payload)

	default:
		r.redeliver(msg, status, err)
	}
}

func (r *Relay) post(payload []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TimestampHeader, strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set(SignatureHeader, Sign(payload, r.signingKey))

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return resp.StatusCode, nil
}

// redeliver requeues a message after a server-side or transport failure,
// with linear backoff per attempt. Messages that exhaust their attempts move
// to the dead queue for operator inspection.
func (r *Relay) redeliver(msg message, status int, err error) {
	msg.Attempt++
	r.logger.Warn("webhook delivery failed, scheduling redelivery",
		"job_id", msg.JobID,
		"attempt", msg.Attempt,
		"status", status,
		"error", err,
	)

	payload, encErr := json.Marshal(msg)
	if encErr != nil {
		r.logger.Error("failed to re-encode queue message", "job_id", msg.JobID, "error", encErr)
		return
	}

	if msg.Attempt >= r.maxAttempts {
		r.logger.Error("queue message exhausted delivery attempts", "job_id", msg.JobID, "attempts", msg.Attempt)
		r.sendToDeadQueue(payload)
		return
	}

	select {
	case <-time.After(r.retryDelay * time.Duration(msg.Attempt)):
	case <-r.stop:
		// Requeue immediately so the message survives shutdown.
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if pushErr := r.rdb.LPush(ctx, r.queue, payload).Err(); pushErr != nil {
		r.logger.Error("failed to requeue message", "job_id", msg.JobID, "error", pushErr)
	}
}

func (r *Relay) sendToDeadQueue(payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.rdb.LPush(ctx, r.deadQueue, payload).Err(); err != nil {
		r.logger.Error("failed to move message to dead queue", "queue", r.deadQueue, "error", err)
	}
}
