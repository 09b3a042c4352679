package flapjack

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"
)

// signalPollInterval is how often bounded waits re-check a flag.
const signalPollInterval = 50 * time.Millisecond

// Location is a single-slot spatial mailbox value: last write wins, and the
// generation counter lets a reader tell a fresh value from one it already
// consumed.
type Location struct {
	Point      r3.Vector // camera frame, millimeters
	Generation uint64
	At         time.Time
}

// CycleSignals is the handshake state between the vision loop and the
// cooking orchestrator. Each flag has one writer role per cycle:
//
//	pancake-poured  set by the orchestrator after the pour, cleared by the
//	                vision loop when it publishes a flip location
//	flip-ready      set by the vision loop, consumed by the orchestrator
//	lift-requested  set by the orchestrator, cleared by the vision loop
//	                when it publishes a lift location
//
// All waits are bounded; nothing here blocks forever.
type CycleSignals struct {
	mu sync.Mutex

	pancakePoured bool
	flipReady     bool
	liftRequested bool
	liftReady     bool

	flip Location
	lift Location
}

// NewCycleSignals returns signals in the safe idle state.
func NewCycleSignals() *CycleSignals {
	return &CycleSignals{}
}

// SetPancakePoured marks the pour complete. Orchestrator-only.
func (s *CycleSignals) SetPancakePoured() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pancakePoured = true
}

// PancakePoured reports whether a pour is awaiting detection. Vision-only.
func (s *CycleSignals) PancakePoured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pancakePoured
}

// PublishFlipLocation records a flip decision: the location mailbox is
// overwritten, flip-ready is raised, and pancake-poured is consumed.
// Vision-only.
func (s *CycleSignals) PublishFlipLocation(pt r3.Vector) Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flip = Location{Point: pt, Generation: s.flip.Generation + 1, At: time.Now()}
	s.flipReady = true
	s.pancakePoured = false
	return s.flip
}

// WaitFlipReady blocks until the vision loop raises flip-ready, then
// consumes it and returns the location. The wait is bounded by timeout and
// by ctx. Orchestrator-only.
func (s *CycleSignals) WaitFlipReady(ctx context.Context, timeout time.Duration) (Location, error) {
	return s.waitLocation(ctx, timeout, "flip-ready", func() (Location, bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.flipReady {
			return Location{}, false
		}
		s.flipReady = false
		return s.flip, true
	})
}

// RequestLift asks the vision loop for a refined grasp point. Orchestrator-only.
func (s *CycleSignals) RequestLift() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liftRequested = true
}

// LiftRequested reports whether a lift location is wanted. Vision-only.
func (s *CycleSignals) LiftRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liftRequested
}

// PublishLiftLocation records the refined grasp point and consumes
// lift-requested. Vision-only.
func (s *CycleSignals) PublishLiftLocation(pt r3.Vector) Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lift = Location{Point: pt, Generation: s.lift.Generation + 1, At: time.Now()}
	s.liftReady = true
	s.liftRequested = false
	return s.lift
}

// WaitLiftLocation blocks until the vision loop publishes a lift location,
// then consumes it. Bounded by timeout and ctx. Orchestrator-only.
func (s *CycleSignals) WaitLiftLocation(ctx context.Context, timeout time.Duration) (Location, error) {
	return s.waitLocation(ctx, timeout, "lift location", func() (Location, bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.liftReady {
			return Location{}, false
		}
		s.liftReady = false
		return s.lift, true
	})
}

// Reset returns every flag to the safe idle state. Location generations are
// preserved so staleness detection survives a cycle abort.
func (s *CycleSignals) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pancakePoured = false
	s.flipReady = false
	s.liftRequested = false
	s.liftReady = false
}

func (s *CycleSignals) waitLocation(
	ctx context.Context,
	timeout time.Duration,
	what string,
	take func() (Location, bool),
) (Location, error) {
	if loc, ok := take(); ok {
		return loc, nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(signalPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Location{}, ctx.Err()
		case <-deadline.C:
			return Location{}, fmt.Errorf("timed out after %v waiting for %s", timeout, what)
		case <-ticker.C:
			if loc, ok := take(); ok {
				return loc, nil
			}
		}
	}
}
