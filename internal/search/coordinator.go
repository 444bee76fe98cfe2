// Package search implements the client-side fan-out coordinator: one
// logical search becomes N jobs, one per airport pair, whose results are
// merged into a single monotonically growing offer collection.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skappel/farescout/internal/airports"
	"github.com/skappel/farescout/internal/config"
	"github.com/skappel/farescout/internal/core"
)

// DefaultTimeout is the global wall-clock ceiling for one fan-out search.
const DefaultTimeout = 60 * time.Second

// Coordinator fans a search out into jobs and streams merged results back.
type Coordinator struct {
	store     core.JobStore
	publisher core.QueuePublisher
	feed      core.ChangeFeed
	metros    *airports.Index
	timeout   time.Duration
	logger    *slog.Logger
}

// NewCoordinator wires a Coordinator from the application's collaborators.
func NewCoordinator(cfg *config.Config, store core.JobStore, publisher core.QueuePublisher, feed core.ChangeFeed, metros *airports.Index, logger *slog.Logger) *Coordinator {
	timeout := cfg.SearchTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{
		store:     store,
		publisher: publisher,
		feed:      feed,
		metros:    metros,
		timeout:   timeout,
		logger:    logger,
	}
}

// Expand resolves metro codes on either side of the pair into member
// airports and returns one parameter set per combination. Plain airport
// codes pass through as a single set. Pairs that collapse onto the same
// airport are skipped.
func (c *Coordinator) Expand(params core.SearchParams) []core.SearchParams {
	origins := c.metros.Expand(params.Origin)
	destinations := c.metros.Expand(params.Destination)

	out := make([]core.SearchParams, 0, len(origins)*len(destinations))
	for _, origin := range origins {
		for _, destination := range destinations {
			if origin == destination {
				continue
			}
			p := params
			p.Origin = origin
			p.Destination = destination
			out = append(out, p)
		}
	}
	return out
}

// Search validates and expands the parameters, creates one pending job per
// airport pair, dispatches them, and returns a Stream of merged updates.
//
// The call returns once every dispatch has been acknowledged or refused;
// result delivery afterwards is purely event-driven. A failed dispatch does
// not fail the whole search: the affected job is counted as failed on the
// stream immediately, since its row can never leave pending.
func (c *Coordinator) Search(ctx context.Context, owner string, params core.SearchParams) (*Stream, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search parameters: %w", err)
	}

	paramsList := c.Expand(params)
	if len(paramsList) == 0 {
		return nil, fmt.Errorf("no searchable airport pairs for %s-%s", params.Origin, params.Destination)
	}

	jobs := make([]*core.SearchJob, 0, len(paramsList))
	for _, p := range paramsList {
		job, err := c.store.CreateJob(ctx, owner, p)
		if err != nil {
			return nil, fmt.Errorf("failed to create search job for %s-%s: %w", p.Origin, p.Destination, err)
		}
		jobs = append(jobs, job)
	}

	// Subscribe before dispatch so no update can slip between the worker's
	// first write and the subscription.
	stream := newStream(jobs, c.feed, c.timeout, c.logger)

	g, dispatchCtx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := c.publisher.Publish(dispatchCtx, job.ID); err != nil {
				c.logger.Error("dispatch failed, job will never start",
					"job_id", job.ID,
					"origin", job.Params.Origin,
					"destination", job.Params.Destination,
					"error", err,
				)
				stream.markDoomed(job.ID)
			}
			return nil
		})
	}
	// Publish errors are reported through the stream, never through the
	// group.
	_ = g.Wait()

	stream.start()

	c.logger.Info("search dispatched",
		"owner", owner,
		"pair", params.Origin+"-"+params.Destination,
		"jobs", len(jobs),
	)
	return stream, nil
}
