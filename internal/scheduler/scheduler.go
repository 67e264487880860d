// Package scheduler rate-limits outgoing frames to a fixed cadence with a
// latest-sample-wins drop policy, decoupling the free-running vision pipeline
// from the serial channel.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tactile-robotics/handlink/internal/link"
	"github.com/tactile-robotics/handlink/internal/monitoring"
	"github.com/tactile-robotics/handlink/internal/wire"
)

// Cadence bounds, in frames per second.
const (
	MinCadenceHz = 1
	MaxCadenceHz = 60
)

// Sink receives the frames the scheduler decides to transmit. *link.Link
// satisfies it.
type Sink interface {
	WriteFrame(wire.Frame) error
}

// Stats counts scheduler outcomes.
type Stats struct {
	Sent    uint64
	Dropped uint64 // frames overwritten in the slot before transmission
}

// Scheduler holds at most one pending frame. Offer overwrites it; the tick
// loop drains it at the configured cadence. Memory and end-to-end latency are
// bounded no matter how bursty the producer is, at the cost of skipping
// intermediate samples.
type Scheduler struct {
	interval time.Duration
	sink     Sink

	mu      sync.Mutex
	pending *wire.Frame
	halted  bool
	stats   Stats
}

// New creates a scheduler transmitting at cadenceHz to sink.
func New(cadenceHz int, sink Sink) (*Scheduler, error) {
	if cadenceHz < MinCadenceHz || cadenceHz > MaxCadenceHz {
		return nil, fmt.Errorf("cadence %d Hz out of range [%d,%d]", cadenceHz, MinCadenceHz, MaxCadenceHz)
	}
	if sink == nil {
		return nil, errors.New("nil sink")
	}
	return &Scheduler{
		interval: time.Second / time.Duration(cadenceHz),
		sink:     sink,
	}, nil
}

// Offer places a frame in the single-slot holding cell, replacing any frame
// already waiting there. It never blocks.
func (s *Scheduler) Offer(f wire.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.stats.Dropped++
	}
	frame := f
	s.pending = &frame
}

// Run drives the tick loop until the context is cancelled. A pending frame
// left in the slot at shutdown is discarded. Run itself always returns the
// context's error; sink failures halt transmission but keep the loop alive so
// a Resume after reopening the link picks up where it left off.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.pending = nil
			s.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.halted || s.pending == nil {
		s.mu.Unlock()
		return
	}
	frame := *s.pending
	s.pending = nil
	s.mu.Unlock()

	if err := s.sink.WriteFrame(frame); err != nil {
		if errors.Is(err, link.ErrLinkDown) {
			s.mu.Lock()
			s.halted = true
			s.mu.Unlock()
			monitoring.Logf("scheduler: link down, transmission halted: %v", err)
			return
		}
		monitoring.Logf("scheduler: frame write failed: %v", err)
		return
	}

	s.mu.Lock()
	s.stats.Sent++
	s.mu.Unlock()
}

// Resume re-enables transmission after the link has been reopened.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted = false
}

// Halted reports whether transmission is stopped pending a link reopen.
func (s *Scheduler) Halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// Stats returns a copy of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
