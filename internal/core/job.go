// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"time"
)

// Status represents the lifecycle state of a search job. Transitions are
// monotonic: pending -> processing -> completed or failed. A job never moves
// back to an earlier state, and terminal jobs never change again.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next respects the
// monotonic lifecycle.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// SearchJob is one unit of asynchronous flight-search work, scoped to a
// single origin/destination/date combination. Rows are created by the
// fan-out coordinator, mutated only by the worker, and read by the
// coordinator through the change feed.
type SearchJob struct {
	ID           string         `db:"id" json:"id"`
	Owner        string         `db:"owner" json:"owner"`
	Params       SearchParams   `db:"params" json:"params"`
	Status       Status         `db:"status" json:"status"`
	Results      *SearchResults `db:"results" json:"results,omitempty"`
	ErrorMessage *string        `db:"error_message" json:"error,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// JobChange is one event on the job change feed: the new row image after an
// UPDATE to a search job.
type JobChange struct {
	JobID  string
	Status Status
	Job    *SearchJob
}
