package core

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned by a JobStore when no row matches the given id.
var ErrJobNotFound = errors.New("search job not found")

// JobStore persists search jobs. Status updates are guarded compare-and-swap
// writes: they report false instead of overwriting a row that has already
// moved on, which makes duplicate queue deliveries safe.
type JobStore interface {
	// CreateJob inserts a new pending job for the given owner and returns it.
	CreateJob(ctx context.Context, owner string, params SearchParams) (*SearchJob, error)
	// GetJob loads a job by id, returning ErrJobNotFound when absent.
	GetJob(ctx context.Context, id string) (*SearchJob, error)
	// ListJobsByOwner returns the owner's most recent jobs, newest first.
	ListJobsByOwner(ctx context.Context, owner string, limit int) ([]SearchJob, error)
	// MarkProcessing transitions pending -> processing. It returns false when
	// the job was not pending, which callers treat as a duplicate delivery.
	MarkProcessing(ctx context.Context, id string) (bool, error)
	// CompleteJob transitions processing -> completed and writes results.
	CompleteJob(ctx context.Context, id string, results *SearchResults) (bool, error)
	// FailJob transitions processing -> failed and writes the diagnostic.
	FailJob(ctx context.Context, id string, message string) (bool, error)
}

// QueuePublisher enqueues a job id for asynchronous processing. Publish is
// fire-and-forget: a nil return means the message is durably queued, an
// error means the job was never started.
type QueuePublisher interface {
	Publish(ctx context.Context, jobID string) error
}

// ChangeFeed delivers one event per UPDATE to a subscribed job row.
type ChangeFeed interface {
	// Subscribe returns a channel of row change events for the given job and
	// a cancel function that tears the subscription down. The channel is
	// closed after cancel.
	Subscribe(jobID string) (<-chan JobChange, func())
}
