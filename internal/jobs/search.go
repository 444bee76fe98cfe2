// Package jobs defines background tasks, primarily the flight-search worker
// invoked per queue delivery.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skappel/farescout/internal/config"
	"github.com/skappel/farescout/internal/core"
	"github.com/skappel/farescout/internal/duffel"
)

// vendorCallTimeout bounds the two vendor calls for one job.
const vendorCallTimeout = 45 * time.Second

// SearchWorker processes one search job per webhook delivery. It is
// stateless: every invocation loads the row, runs the vendor search, and
// writes a terminal outcome. Duplicate deliveries of the same job id are
// safe no-ops because every status write is a compare-and-swap.
type SearchWorker struct {
	store  core.JobStore
	vendor duffel.Client
	sort   string
	limit  int
	logger *slog.Logger
}

// NewSearchWorker creates a SearchWorker with the configured offer sort
// order and result cap.
func NewSearchWorker(cfg *config.Config, store core.JobStore, vendor duffel.Client, logger *slog.Logger) *SearchWorker {
	if store == nil {
		panic("job store cannot be nil")
	}
	if vendor == nil {
		panic("vendor client cannot be nil")
	}
	return &SearchWorker{
		store:  store,
		vendor: vendor,
		sort:   cfg.Vendor.OfferSort,
		limit:  cfg.Vendor.OfferCap,
		logger: logger,
	}
}

// Process runs the search for one job. A nil return means the delivery is
// acknowledged, including the case where the vendor rejected the search and
// the job was marked failed: that is a handled business outcome, not a
// delivery failure. A non-nil return means infrastructure trouble and asks
// the queue to redeliver.
func (w *SearchWorker) Process(ctx context.Context, jobID string) error {
	job, err := w.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			return fmt.Errorf("job %s: %w", jobID, err)
		}
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	if job.Status != core.StatusPending {
		// At-least-once delivery: another invocation already owns or owned
		// this job.
		w.logger.Info("skipping duplicate delivery", "job_id", jobID, "status", job.Status)
		return nil
	}

	ok, err := w.store.MarkProcessing(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to transition job %s to processing: %w", jobID, err)
	}
	if !ok {
		w.logger.Info("lost claim race, skipping duplicate delivery", "job_id", jobID)
		return nil
	}

	w.logger.Info("processing search job",
		"job_id", jobID,
		"origin", job.Params.Origin,
		"destination", job.Params.Destination,
		"round_trip", job.Params.RoundTrip(),
	)

	vendorCtx, cancel := context.WithTimeout(ctx, vendorCallTimeout)
	defer cancel()

	results, vendorErr := duffel.Search(vendorCtx, w.vendor, job.Params, w.sort, w.limit)
	if vendorErr != nil {
		return w.failJob(ctx, jobID, vendorErr)
	}

	ok, err = w.store.CompleteJob(ctx, jobID, results)
	if err != nil {
		return fmt.Errorf("failed to write results for job %s: %w", jobID, err)
	}
	if !ok {
		w.logger.Warn("job was no longer processing when results arrived", "job_id", jobID)
		return nil
	}

	w.logger.Info("search job completed", "job_id", jobID, "offers", len(results.Offers))
	return nil
}

// failJob records a vendor failure as the job's terminal outcome. Vendor
// rejections and vendor outages are both terminal today; the diagnostic
// keeps them distinguishable.
func (w *SearchWorker) failJob(ctx context.Context, jobID string, vendorErr error) error {
	w.logger.Warn("vendor search failed", "job_id", jobID, "error", vendorErr)

	diagnostic := vendorErr.Error()
	var apiErr *duffel.APIError
	if !errors.As(vendorErr, &apiErr) {
		diagnostic = fmt.Sprintf("duffel: %s: %s", duffel.KindUnavailable, vendorErr.Error())
	}

	ok, err := w.store.FailJob(ctx, jobID, diagnostic)
	if err != nil {
		return fmt.Errorf("failed to record failure for job %s: %w", jobID, err)
	}
	if !ok {
		w.logger.Warn("job was no longer processing when failure arrived", "job_id", jobID)
	}
	return nil
}
