package flapjack

import (
	"context"
	"fmt"
	"strings"
	"time"

	pancakevision "github.com/biotinker/flapjack/pancake_vision"
)

// WatchGriddle runs the vision loop until the context is cancelled. It
// polls the griddle camera at FramePeriod, replaces the frame store
// contents (latest frame wins, nothing is queued), arms the detector when
// the orchestrator reports a pour, publishes flip decisions, and services
// lift requests. Per-frame failures are logged and skipped; the loop never
// blocks on motion.
func WatchGriddle(ctx context.Context, r *Robot) error {
	if err := r.awaitIntrinsics(ctx); err != nil {
		return err
	}

	r.logger.Info("Watching griddle")
	ticker := time.NewTicker(FramePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.store.Close()
			return ctx.Err()
		case <-ticker.C:
		}

		if err := r.processVisionTick(ctx); err != nil {
			r.logger.Warnf("Vision frame skipped: %v", err)
		}
	}
}

// awaitIntrinsics polls the camera for its intrinsics until they arrive or
// the budget expires. Deprojection is meaningless before this completes.
func (r *Robot) awaitIntrinsics(ctx context.Context) error {
	deadline := time.Now().Add(IntrinsicsWaitBudget)
	for {
		props, err := r.griddleCam.Properties(ctx)
		if err == nil && props.IntrinsicParams != nil {
			in, err := pancakevision.IntrinsicsFromPinhole(props.IntrinsicParams)
			if err != nil {
				return fmt.Errorf("camera intrinsics: %w", err)
			}
			if err := r.store.SetIntrinsics(in); err != nil {
				return err
			}
			r.logger.Infof("Camera intrinsics: %dx%d fx=%.1f fy=%.1f", in.Width, in.Height, in.Fx, in.Fy)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("camera intrinsics not available after %v (last error: %v)", IntrinsicsWaitBudget, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// processVisionTick handles one camera poll: ingest the new frames, then
// run whichever detection stage the cycle signals call for.
func (r *Robot) processVisionTick(ctx context.Context) error {
	images, _, err := r.griddleCam.Images(ctx, nil, nil)
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}

	for i := range images {
		img, err := images[i].Image(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", pancakevision.ErrBadFrameDecode, err)
		}
		if strings.Contains(images[i].SourceName, "depth") {
			err = r.store.IngestDepth(ctx, img)
		} else {
			err = r.store.IngestColor(img)
		}
		if err != nil {
			return err
		}
	}

	// A reported pour arms a fresh detection session.
	if r.signals.PancakePoured() && !r.detector.Armed() {
		r.detector.Arm(time.Now())
	}

	if !r.detector.Armed() && !r.signals.LiftRequested() {
		return nil
	}

	frame, err := r.store.Snapshot()
	if err != nil {
		return err
	}

	if r.detector.Armed() {
		decision, err := r.detector.ProcessFrame(frame, time.Now())
		if err != nil {
			return err
		}
		if decision != nil {
			loc := r.signals.PublishFlipLocation(decision.Point)
			r.logger.Infof("Published flip location generation %d (%s trigger)", loc.Generation, decision.Trigger)
		}
	}

	// A lift request stays pending until a location is published, so a
	// failed attempt here is retried on the next frame. The orchestrator's
	// bounded wait caps how long that can go on.
	if r.signals.LiftRequested() {
		last := r.detector.LastDecision()
		if last == nil {
			return fmt.Errorf("lift requested with no prior flip decision")
		}
		pt, err := r.liftLocator.Locate(frame, last.Pixel)
		if err != nil {
			return fmt.Errorf("lift location: %w", err)
		}
		loc := r.signals.PublishLiftLocation(pt)
		r.logger.Infof("Published lift location generation %d", loc.Generation)
	}

	return nil
}
