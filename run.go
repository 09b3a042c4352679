package flapjack

import (
	"context"
	"fmt"
)

// Run executes the main cooking loop: pour → flip → lift, repeating until
// the context is cancelled. A failed cycle resets the workcell and the
// shared signal flags to a safe idle state, then retries from the pour.
func Run(ctx context.Context, r *Robot) error {
	r.logger.Info("Starting cooking loop")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Shutting down")
			return nil
		default:
		}

		if err := runCycle(ctx, r); err != nil {
			r.logger.Errorf("Cycle failed: %v", err)
			if err := ResetCycle(ctx, r); err != nil {
				r.logger.Errorf("Cycle reset failed: %v", err)
			}
			r.logger.Info("Retrying full cycle...")
		}
	}
}

// runCycle executes a single pour-to-plate cooking cycle.
func runCycle(ctx context.Context, r *Robot) error {
	r.resetState()
	r.signals.Reset()

	steps := []struct {
		name string
		fn   func(context.Context, *Robot) error
	}{
		{"Pour", Pour},
		{"Flip", Flip},
		{"Lift", Lift},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Infof("=== %s ===", step.name)
		if err := step.fn(ctx, r); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}
