package flapjack

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r3"
)

func TestFlipHandshake(t *testing.T) {
	s := NewCycleSignals()
	ctx := context.Background()

	s.SetPancakePoured()
	if !s.PancakePoured() {
		t.Fatal("expected pancake-poured set")
	}

	pt := r3.Vector{X: 10, Y: 20, Z: 500}
	published := s.PublishFlipLocation(pt)
	if published.Generation != 1 {
		t.Errorf("generation = %d, want 1", published.Generation)
	}
	if s.PancakePoured() {
		t.Error("publishing a flip location should consume pancake-poured")
	}

	loc, err := s.WaitFlipReady(ctx, time.Second)
	if err != nil {
		t.Fatalf("WaitFlipReady: %v", err)
	}
	if loc.Point != pt || loc.Generation != 1 {
		t.Errorf("got location %+v, want point %v generation 1", loc, pt)
	}

	// flip-ready is consumed; a second wait must time out.
	if _, err := s.WaitFlipReady(ctx, 120*time.Millisecond); err == nil {
		t.Fatal("expected timeout on consumed flip-ready")
	}
}

func TestLiftHandshake(t *testing.T) {
	s := NewCycleSignals()
	ctx := context.Background()

	s.RequestLift()
	if !s.LiftRequested() {
		t.Fatal("expected lift-requested set")
	}

	pt := r3.Vector{X: -5, Y: 7, Z: 480}
	s.PublishLiftLocation(pt)
	if s.LiftRequested() {
		t.Error("publishing a lift location should consume lift-requested")
	}

	loc, err := s.WaitLiftLocation(ctx, time.Second)
	if err != nil {
		t.Fatalf("WaitLiftLocation: %v", err)
	}
	if loc.Point != pt {
		t.Errorf("got point %v, want %v", loc.Point, pt)
	}
}

func TestWaitSeesConcurrentPublish(t *testing.T) {
	s := NewCycleSignals()
	pt := r3.Vector{X: 1, Y: 2, Z: 3}

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.PublishFlipLocation(pt)
	}()

	loc, err := s.WaitFlipReady(context.Background(), 2*time.Second)
	if err != nil {
		t.Fatalf("WaitFlipReady: %v", err)
	}
	if loc.Point != pt {
		t.Errorf("got point %v, want %v", loc.Point, pt)
	}
}

func TestWaitTimeoutIsBounded(t *testing.T) {
	s := NewCycleSignals()

	start := time.Now()
	_, err := s.WaitFlipReady(context.Background(), 150*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "flip-ready") {
		t.Errorf("error should name what was waited for, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("wait took %v, should be near the 150ms timeout", elapsed)
	}
}

func TestWaitHonorsContextCancel(t *testing.T) {
	s := NewCycleSignals()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if _, err := s.WaitLiftLocation(ctx, time.Minute); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGenerationsSurviveReset(t *testing.T) {
	s := NewCycleSignals()

	s.PublishFlipLocation(r3.Vector{Z: 500})
	s.PublishLiftLocation(r3.Vector{Z: 480})
	s.Reset()

	if s.PancakePoured() || s.LiftRequested() {
		t.Error("reset should clear all flags")
	}

	// The next publish continues the counter so readers can detect
	// staleness across an aborted cycle.
	loc := s.PublishFlipLocation(r3.Vector{Z: 510})
	if loc.Generation != 2 {
		t.Errorf("generation after reset = %d, want 2", loc.Generation)
	}
}
