package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/skappel/farescout/internal/core"
)

var (
	// ErrSearchTimeout means the global ceiling elapsed before any offer
	// arrived.
	ErrSearchTimeout = errors.New("search timed out")
	// ErrAllJobsFailed means every job reached a terminal failure with no
	// offers to show.
	ErrAllJobsFailed = errors.New("search failed")
	// ErrStreamDone is returned by Next after the final update has been
	// consumed.
	ErrStreamDone = errors.New("search stream finished")
)

// Update is one emission of the merged search view. Offers are deduplicated
// by vendor offer id across jobs and sorted by total price ascending. The
// view grows monotonically until Final.
type Update struct {
	Offers       []core.Offer
	JobsTotal    int
	JobsTerminal int
	JobsFailed   int
	Final        bool
	Warning      string
}

type subscription struct {
	jobID  string
	ch     <-chan core.JobChange
	cancel func()
}

// Stream is the pull-based result iterator of one fan-out search. It owns N
// row subscriptions and an aggregator goroutine; the consumer drives it with
// Next until a Final update or a terminal error.
type Stream struct {
	jobIDs  []string
	subs    []subscription
	timeout time.Duration
	logger  *slog.Logger

	events  chan core.JobChange
	updates chan Update
	closed  chan struct{}

	mu     sync.Mutex
	doomed map[string]bool
	err    error

	closeOnce sync.Once
}

// newStream subscribes to every job row. Events buffer in the feed channels
// until start launches the aggregator, so subscribing before dispatch loses
// nothing.
func newStream(jobs []*core.SearchJob, feed core.ChangeFeed, timeout time.Duration, logger *slog.Logger) *Stream {
	s := &Stream{
		jobIDs:  make([]string, 0, len(jobs)),
		timeout: timeout,
		logger:  logger,
		events:  make(chan core.JobChange, 4*len(jobs)+4),
		updates: make(chan Update, len(jobs)+2),
		closed:  make(chan struct{}),
		doomed:  make(map[string]bool),
	}
	for _, job := range jobs {
		s.jobIDs = append(s.jobIDs, job.ID)
		ch, cancel := feed.Subscribe(job.ID)
		s.subs = append(s.subs, subscription{jobID: job.ID, ch: ch, cancel: cancel})
	}
	return s
}

// JobIDs returns the ids of the jobs this search dispatched.
func (s *Stream) JobIDs() []string {
	out := make([]string, len(s.jobIDs))
	copy(out, s.jobIDs)
	return out
}

// markDoomed records a job whose dispatch failed: its row will stay pending
// forever, so the stream counts it as failed up front instead of waiting
// out the ceiling.
func (s *Stream) markDoomed(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doomed[jobID] = true
}

// start launches the fan-in forwarders and the aggregator.
func (s *Stream) start() {
	for _, sub := range s.subs {
		go func(sub subscription) {
			for {
				select {
				case <-s.closed:
					return
				case ev, ok := <-sub.ch:
					if !ok {
						return
					}
					select {
					case s.events <- ev:
					case <-s.closed:
						return
					}
				}
			}
		}(sub)
	}
	go s.run()
}

// Next blocks until the next merged update, the stream's terminal error, or
// ctx is done. The update flagged Final is the last one; the Next after it
// returns ErrStreamDone.
func (s *Stream) Next(ctx context.Context) (Update, error) {
	select {
	case <-ctx.Done():
		return Update{}, ctx.Err()
	case u, ok := <-s.updates:
		if !ok {
			return Update{}, s.finalErr()
		}
		return u, nil
	}
}

// Close tears the stream down early. In-flight workers keep running; their
// late results are simply dropped.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

func (s *Stream) finalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return ErrStreamDone
	}
	return s.err
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// run is the aggregator: it merges job updates into one offer collection
// and decides when the search is finished.
func (s *Stream) run() {
	defer s.teardown()

	offers := make(map[string]core.Offer)
	status := make(map[string]core.Status)
	terminal := 0
	failed := 0
	total := len(s.jobIDs)

	s.mu.Lock()
	for jobID := range s.doomed {
		status[jobID] = core.StatusFailed
		terminal++
		failed++
	}
	s.mu.Unlock()

	snapshot := func(final bool, warning string) Update {
		return Update{
			Offers:       sortedOffers(offers),
			JobsTotal:    total,
			JobsTerminal: terminal,
			JobsFailed:   failed,
			Final:        final,
			Warning:      warning,
		}
	}

	finish := func(u Update, err error) {
		if err != nil {
			s.setErr(err)
			close(s.updates)
			return
		}
		select {
		case s.updates <- u:
		case <-s.closed:
		}
		close(s.updates)
	}

	emit := func(u Update) {
		select {
		case s.updates <- u:
		default:
			// The consumer is behind; it will catch up from a later,
			// strictly larger snapshot.
		}
	}

	complete := func() (Update, error) {
		if len(offers) == 0 && failed == total {
			return Update{}, ErrAllJobsFailed
		}
		return snapshot(true, ""), nil
	}

	if terminal == total {
		// Every dispatch failed before a single worker ran.
		finish(complete())
		return
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for {
		select {
		case <-s.closed:
			close(s.updates)
			return

		case <-timer.C:
			if len(offers) == 0 {
				finish(Update{}, ErrSearchTimeout)
				return
			}
			s.logger.Warn("search hit the global ceiling, reporting partial results",
				"jobs_total", total, "jobs_terminal", terminal, "offers", len(offers))
			finish(snapshot(true, "search timed out, showing partial results"), nil)
			return

		case ev := <-s.events:
			prev := status[ev.JobID]
			if prev.Terminal() {
				// Late or duplicate event after the job already finished.
				continue
			}
			status[ev.JobID] = ev.Status

			merged := false
			if ev.Job != nil && ev.Job.Results != nil {
				for _, offer := range ev.Job.Results.Offers {
					if _, seen := offers[offer.ID]; !seen {
						offers[offer.ID] = offer
						merged = true
					}
				}
			}

			if ev.Status.Terminal() {
				terminal++
				if ev.Status == core.StatusFailed {
					failed++
				}
			}

			if terminal == total {
				finish(complete())
				return
			}
			if merged {
				emit(snapshot(false, ""))
			}
		}
	}
}

func (s *Stream) teardown() {
	for _, sub := range s.subs {
		sub.cancel()
	}
}

// sortedOffers returns the merged collection ordered by total price
// ascending, ties broken by offer id for a stable view.
func sortedOffers(offers map[string]core.Offer) []core.Offer {
	out := make([]core.Offer, 0, len(offers))
	for _, o := range offers {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		a, errA := strconv.ParseFloat(out[i].TotalAmount, 64)
		b, errB := strconv.ParseFloat(out[j].TotalAmount, 64)
		if errA != nil || errB != nil {
			return out[i].ID < out[j].ID
		}
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}
