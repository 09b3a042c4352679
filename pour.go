package flapjack

import (
	"context"
	"fmt"
	"time"

	viz "github.com/viam-labs/motion-tools/client/client"
	"go.viam.com/rdk/spatialmath"
)

const (
	// How long the bottle stays tilted. Tuned for roughly a 100mm pancake
	// with the batter at fridge temperature.
	pourHoldTime = 3 * time.Second
)

// Pour fetches the batter bottle, pours one pancake onto the griddle, and
// returns the bottle to its stand. On success it reports the pour to the
// vision side, which arms a fresh detection session.
func Pour(ctx context.Context, r *Robot) error {
	r.logger.Info("Fetching batter bottle")
	if err := r.gripper.Open(ctx, nil); err != nil {
		return fmt.Errorf("open gripper: %w", err)
	}
	if err := r.moveArmDirectToJoints(ctx, BottleGraspJoints); err != nil {
		return fmt.Errorf("move to bottle: %w", err)
	}
	grabbed, err := r.gripper.Grab(ctx, nil)
	if err != nil {
		return fmt.Errorf("grab bottle: %w", err)
	}
	if !grabbed {
		return fmt.Errorf("gripper did not close on bottle")
	}
	r.state.HoldingBottle = true

	// Carry the bottle to the pour stance over the griddle center.
	if err := viz.DrawPoses([]spatialmath.Pose{PourRestPose, PourPose}, []string{"pour_rest", "pour_tilt"}, true); err != nil {
		return err
	}
	r.logger.Info("Moving bottle over griddle")
	if err := r.moveFree(ctx, r.arm.Name().Name, PourRestPose, nil); err != nil {
		return fmt.Errorf("move to pour stance: %w", err)
	}

	// Tilt, hold while the batter flows, then level off. Both strokes run
	// between the same fixed poses every cycle, so the plans are cached.
	r.logger.Info("Pouring")
	if err := r.cachedLinearMove(ctx, r.arm.Name().Name, PourPose, &r.pourTiltTrajectory, "pour_tilt.json"); err != nil {
		return fmt.Errorf("tilt bottle: %w", err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(pourHoldTime):
	}
	if err := r.cachedLinearMove(ctx, r.arm.Name().Name, PourRestPose, &r.pourLevelTrajectory, "pour_level.json"); err != nil {
		return fmt.Errorf("level bottle: %w", err)
	}

	// Return the bottle to its stand and release it.
	r.logger.Info("Returning bottle")
	if err := r.moveArmDirectToJoints(ctx, BottleReturnJoints); err != nil {
		return fmt.Errorf("return bottle: %w", err)
	}
	if err := r.gripper.Open(ctx, nil); err != nil {
		return fmt.Errorf("release bottle: %w", err)
	}
	r.state.HoldingBottle = false
	if err := r.moveArmDirectToJoints(ctx, GriddleViewingJoints); err != nil {
		return fmt.Errorf("clear griddle view: %w", err)
	}

	r.signals.SetPancakePoured()
	r.logger.Info("Pancake poured")
	return nil
}
