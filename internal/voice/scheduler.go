package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrSchedulerClosed is returned by Sleep when the owning session has been
// disposed.
var ErrSchedulerClosed = errors.New("scheduler closed")

// Scheduler owns every delayed callback a session schedules: resolver
// retries, listening restarts, and the speak-before-invoke delay. It is
// bound to the session's lifetime; Close cancels everything still pending,
// so no timer can outlive the session that scheduled it.
type Scheduler struct {
	clock clock.Clock

	mu     sync.Mutex
	timers map[uint64]*clock.Timer
	nextID uint64
	closed bool
	done   chan struct{}
}

// NewScheduler creates a scheduler on the given clock. Tests pass
// clock.NewMock() to drive time deterministically.
func NewScheduler(c clock.Clock) *Scheduler {
	return &Scheduler{
		clock:  c,
		timers: make(map[uint64]*clock.Timer),
		done:   make(chan struct{}),
	}
}

// AfterFunc schedules fn after d and returns a cancel function. After Close
// the call is a no-op and the returned cancel does nothing.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}

	id := s.nextID
	s.nextID++

	timer := s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		fn()
	})
	s.timers[id] = timer

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t, ok := s.timers[id]; ok {
			t.Stop()
			delete(s.timers, id)
		}
	}
}

// Pending returns the number of timers not yet fired or cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Sleep blocks for d. It returns early with an error when ctx is cancelled
// or the scheduler closes, so no caller waits on a disposed session.
func (s *Scheduler) Sleep(ctx context.Context, d time.Duration) error {
	fired := make(chan struct{})
	cancel := s.AfterFunc(d, func() { close(fired) })

	select {
	case <-fired:
		return nil
	case <-s.done:
		cancel()
		return ErrSchedulerClosed
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// Close cancels all pending timers and rejects new ones.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
