package storage

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skappel/farescout/internal/core"
)

// staticStore serves fixed job rows for feed delivery tests.
type staticStore struct {
	mu   sync.Mutex
	jobs map[string]*core.SearchJob
}

func (s *staticStore) CreateJob(context.Context, string, core.SearchParams) (*core.SearchJob, error) {
	return nil, nil
}

func (s *staticStore) GetJob(_ context.Context, id string) (*core.SearchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, core.ErrJobNotFound
	}
	return job, nil
}

func (s *staticStore) ListJobsByOwner(context.Context, string, int) ([]core.SearchJob, error) {
	return nil, nil
}

func (s *staticStore) MarkProcessing(context.Context, string) (bool, error) { return false, nil }

func (s *staticStore) CompleteJob(context.Context, string, *core.SearchResults) (bool, error) {
	return false, nil
}

func (s *staticStore) FailJob(context.Context, string, string) (bool, error) { return false, nil }

func newTestFeed(store core.JobStore) *NotificationFeed {
	return &NotificationFeed{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		subs:   make(map[string]map[int]chan core.JobChange),
		done:   make(chan struct{}),
	}
}

func TestFeed_DeliversFreshRowImage(t *testing.T) {
	store := &staticStore{jobs: map[string]*core.SearchJob{
		"job-1": {ID: "job-1", Owner: "alice", Status: core.StatusCompleted,
			Results: &core.SearchResults{Offers: []core.Offer{{ID: "off_1"}}}},
	}}
	feed := newTestFeed(store)

	ch, cancel := feed.Subscribe("job-1")
	defer cancel()

	feed.handle(`{"id":"job-1","status":"completed","updated_at":"2025-07-15T10:00:00Z"}`)

	select {
	case change := <-ch:
		assert.Equal(t, "job-1", change.JobID)
		assert.Equal(t, core.StatusCompleted, change.Status)
		require.NotNil(t, change.Job)
		require.NotNil(t, change.Job.Results)
		assert.Len(t, change.Job.Results.Offers, 1)
	default:
		t.Fatal("no change delivered")
	}
}

func TestFeed_IgnoresMalformedPayload(t *testing.T) {
	feed := newTestFeed(&staticStore{jobs: map[string]*core.SearchJob{}})

	ch, cancel := feed.Subscribe("job-1")
	defer cancel()

	feed.handle(`not-json`)
	assert.Empty(t, ch)
}

func TestFeed_NoDeliveryToOtherJobs(t *testing.T) {
	store := &staticStore{jobs: map[string]*core.SearchJob{
		"job-1": {ID: "job-1", Status: core.StatusProcessing},
	}}
	feed := newTestFeed(store)

	ch, cancel := feed.Subscribe("job-2")
	defer cancel()

	feed.handle(`{"id":"job-1","status":"processing"}`)
	assert.Empty(t, ch)
}

func TestFeed_CancelStopsDelivery(t *testing.T) {
	store := &staticStore{jobs: map[string]*core.SearchJob{
		"job-1": {ID: "job-1", Status: core.StatusProcessing},
	}}
	feed := newTestFeed(store)

	ch, cancel := feed.Subscribe("job-1")
	cancel()

	// The subscriber channel is closed and the feed forgets the job.
	_, open := <-ch
	assert.False(t, open)

	feed.handle(`{"id":"job-1","status":"processing"}`)
}

func TestFeed_RefreshAllReloadsSubscribedJobs(t *testing.T) {
	store := &staticStore{jobs: map[string]*core.SearchJob{
		"job-1": {ID: "job-1", Status: core.StatusFailed},
	}}
	feed := newTestFeed(store)

	ch, cancel := feed.Subscribe("job-1")
	defer cancel()

	feed.refreshAll()

	select {
	case change := <-ch:
		assert.Equal(t, core.StatusFailed, change.Status)
	default:
		t.Fatal("refresh did not deliver the current row")
	}
}
