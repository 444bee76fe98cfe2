package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/skappel/farescout/internal/core"
)

// notifyChannel is the Postgres NOTIFY channel the migration trigger emits on.
const notifyChannel = "search_job_updates"

// subscriber buffer size. A job produces at most three updates over its
// lifetime, so this only overflows if the consumer has stopped reading.
const feedBuffer = 16

// notifyPayload is the small JSON document the trigger attaches to each
// notification. The full row, including results, is reloaded from the store.
type notifyPayload struct {
	ID     string      `json:"id"`
	Status core.Status `json:"status"`
}

// NotificationFeed implements core.ChangeFeed on top of Postgres
// LISTEN/NOTIFY. One listener connection serves all subscriptions; events
// are fanned out per job id.
type NotificationFeed struct {
	listener *pq.Listener
	store    core.JobStore
	logger   *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan core.JobChange
	closed bool
	done   chan struct{}
}

// NewNotificationFeed opens a dedicated listener connection using the given
// DSN and starts routing job change notifications to subscribers.
func NewNotificationFeed(dsn string, store core.JobStore, logger *slog.Logger) (*NotificationFeed, error) {
	f := &NotificationFeed{
		store:  store,
		logger: logger,
		subs:   make(map[string]map[int]chan core.JobChange),
		done:   make(chan struct{}),
	}

	f.listener = pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Error("job change listener event", "event", int(ev), "error", err)
		}
	})
	if err := f.listener.Listen(notifyChannel); err != nil {
		_ = f.listener.Close()
		return nil, err
	}

	go f.run()
	return f, nil
}

// run consumes raw notifications until the feed is closed.
func (f *NotificationFeed) run() {
	for {
		select {
		case <-f.done:
			return
		case n, ok := <-f.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// lib/pq sends nil after a reconnect; subscribers may have
				// missed events, so refresh every watched job.
				f.refreshAll()
				continue
			}
			f.handle(n.Extra)
		}
	}
}

// handle decodes one notification and delivers the fresh row image to the
// job's subscribers.
func (f *NotificationFeed) handle(payload string) {
	var p notifyPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		f.logger.Warn("ignoring malformed job change notification", "payload", payload, "error", err)
		return
	}
	f.deliver(p.ID, p.Status)
}

// refreshAll re-reads every subscribed job. Used after the listener
// reconnects and may have dropped notifications.
func (f *NotificationFeed) refreshAll() {
	f.mu.Lock()
	ids := make([]string, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	f.mu.Unlock()

	for _, id := range ids {
		f.deliver(id, "")
	}
}

func (f *NotificationFeed) deliver(jobID string, status core.Status) {
	f.mu.Lock()
	hasSubs := len(f.subs[jobID]) > 0
	f.mu.Unlock()
	if !hasSubs {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := f.store.GetJob(ctx, jobID)
	if err != nil {
		f.logger.Error("failed to reload job for change event", "job_id", jobID, "error", err)
		return
	}

	change := core.JobChange{JobID: jobID, Status: job.Status, Job: job}
	if status != "" && status != job.Status {
		// The row moved on between NOTIFY and reload; the image we hand out
		// is the newer one, which is fine for a monotonic lifecycle.
		f.logger.Debug("job advanced past notified status", "job_id", jobID, "notified", status, "loaded", job.Status)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[jobID] {
		select {
		case ch <- change:
		default:
			f.logger.Warn("dropping job change event, subscriber not keeping up", "job_id", jobID)
		}
	}
}

// Subscribe registers interest in one job's row updates.
func (f *NotificationFeed) Subscribe(jobID string) (<-chan core.JobChange, func()) {
	ch := make(chan core.JobChange, feedBuffer)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		close(ch)
		return ch, func() {}
	}

	f.nextID++
	id := f.nextID
	if f.subs[jobID] == nil {
		f.subs[jobID] = make(map[int]chan core.JobChange)
	}
	f.subs[jobID][id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[jobID][id]; ok {
			delete(f.subs[jobID], id)
			if len(f.subs[jobID]) == 0 {
				delete(f.subs, jobID)
			}
			close(sub)
		}
	}
	return ch, cancel
}

// Close tears down the listener connection and all subscriptions.
func (f *NotificationFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.done)
	for jobID, subs := range f.subs {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(f.subs, jobID)
	}
	f.mu.Unlock()

	return f.listener.Close()
}
