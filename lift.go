package flapjack

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"

	viz "github.com/viam-labs/motion-tools/client/client"
	"go.viam.com/rdk/spatialmath"
)

const (
	liftApproachMm  = 120.0
	liftCarryMm     = 100.0
	plateTipRadians = -math.Pi / 2
)

// Lift waits out the second-side cook, asks the vision side for a refined
// pancake location, slides the spatula under, and carries the pancake to
// the plate. The spatula is re-hung afterward.
func Lift(ctx context.Context, r *Robot) error {
	// Let the second side set before disturbing it.
	r.logger.Infof("Cooking second side for %v", DwellAfterFlip)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(DwellAfterFlip):
	}

	r.signals.RequestLift()
	loc, err := r.signals.WaitLiftLocation(ctx, LiftWaitTimeout)
	if err != nil {
		return fmt.Errorf("wait for lift location: %w", err)
	}
	r.state.LiftLocation = loc
	r.logger.Infof("Lift location generation %d: camera frame (%.1f, %.1f, %.1f)mm",
		loc.Generation, loc.Point.X, loc.Point.Y, loc.Point.Z)

	target, err := r.composer.Compose(ObjectFinishedPancake, loc.Point)
	if err != nil {
		return fmt.Errorf("compose lift pose: %w", err)
	}
	if err := viz.DrawPoses([]spatialmath.Pose{target, PlatePose}, []string{"lift_target", "plate"}, true); err != nil {
		return err
	}

	// Same slide-under stroke as the flip, but carrying away instead of
	// flicking.
	pt := target.Point()
	entry := spatialmath.NewPose(
		r3.Vector{X: pt.X - slideEntryMm, Y: pt.Y, Z: pt.Z},
		target.Orientation(),
	)
	if err := r.moveFree(ctx, r.arm.Name().Name, poseAbove(entry, liftApproachMm), nil); err != nil {
		return fmt.Errorf("move to lift approach: %w", err)
	}
	if err := r.moveLinear(ctx, r.arm.Name().Name, entry, nil); err != nil {
		return fmt.Errorf("descend to griddle: %w", err)
	}
	r.logger.Info("Sliding under pancake")
	if err := r.moveLinear(ctx, r.arm.Name().Name, target, nil); err != nil {
		return fmt.Errorf("slide under pancake: %w", err)
	}
	if err := r.moveLinear(ctx, r.arm.Name().Name, poseAbove(target, liftCarryMm), nil); err != nil {
		return fmt.Errorf("lift pancake: %w", err)
	}

	// Carry to the plate and tip the blade to slide the pancake off.
	r.logger.Info("Carrying to plate")
	if err := r.moveFree(ctx, r.arm.Name().Name, PlatePose, nil); err != nil {
		return fmt.Errorf("move to plate: %w", err)
	}
	if err := r.rotateWrist(ctx, plateTipRadians); err != nil {
		return fmt.Errorf("tip onto plate: %w", err)
	}
	if err := r.rotateWrist(ctx, -plateTipRadians); err != nil {
		return fmt.Errorf("level spatula: %w", err)
	}

	if err := r.returnSpatula(ctx); err != nil {
		return fmt.Errorf("return spatula: %w", err)
	}

	r.state.PancakesCooked++
	r.logger.Infof("Pancake %d plated", r.state.PancakesCooked)
	return nil
}
