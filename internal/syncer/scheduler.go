// Package syncer moves reconciliation patches between the local record and
// the transport. Outgoing edits are coalesced per key so rapid changes to
// the same logical field become a single message.
package syncer

import (
	"sync"
	"time"
)

// Scheduler debounces work per key: scheduling an existing key cancels the
// pending timer and starts a new one, so the callback fires exactly once
// after the quiet period elapses. Timers are cancel-and-reschedule, never
// stacked.
type Scheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	fire    func(key string)
	pending map[string]*time.Timer
	stopped bool
}

// NewScheduler constructs a Scheduler firing after the given quiet period.
func NewScheduler(delay time.Duration, fire func(key string)) *Scheduler {
	return &Scheduler{
		delay:   delay,
		fire:    fire,
		pending: make(map[string]*time.Timer),
	}
}

// Schedule arms (or re-arms) the timer for a key.
func (s *Scheduler) Schedule(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if timer, ok := s.pending[key]; ok {
		timer.Stop()
	}
	s.pending[key] = time.AfterFunc(s.delay, func() {
		s.expire(key)
	})
}

func (s *Scheduler) expire(key string) {
	s.mu.Lock()
	_, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	stopped := s.stopped
	s.mu.Unlock()
	if ok && !stopped {
		s.fire(key)
	}
}

// Flush fires every pending key immediately.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.pending))
	for key, timer := range s.pending {
		timer.Stop()
		keys = append(keys, key)
		delete(s.pending, key)
	}
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}
	for _, key := range keys {
		s.fire(key)
	}
}

// Stop cancels all pending timers; the scheduler accepts no further work.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, timer := range s.pending {
		timer.Stop()
		delete(s.pending, key)
	}
}
