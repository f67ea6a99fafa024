package service

import (
	"sync"

	"trafficserver/internal/service/capture"
)

// State is the process-wide view of the pipeline shared with the HTTP surface.
// Every field is read and written under mu; the lock is never held across
// capture or inference.
type State struct {
	mu       sync.Mutex
	running  bool
	selector capture.Selector
	latest   []byte
	count    int
	frames   uint64
}

func (s *State) setRunning(sel capture.Selector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.selector = sel
}

// setIdle leaves latest and count untouched so they stay readable after a stop.
func (s *State) setIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// publish swaps in a fully encoded frame together with its vehicle count.
func (s *State) publish(frame []byte, count int) {
	if count < 0 {
		count = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = frame
	s.count = count
	s.frames++
}

func (s *State) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *State) VehicleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// LatestFrame returns a copy of the most recent encoded frame, or nil if none
// has been produced yet.
func (s *State) LatestFrame() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil
	}
	out := make([]byte, len(s.latest))
	copy(out, s.latest)
	return out
}

type stateSnapshot struct {
	running  bool
	selector capture.Selector
	count    int
	frames   uint64
}

func (s *State) snapshot() stateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stateSnapshot{
		running:  s.running,
		selector: s.selector,
		count:    s.count,
		frames:   s.frames,
	}
}
