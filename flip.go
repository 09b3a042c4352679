package flapjack

import (
	"context"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	pancakevision "github.com/biotinker/flapjack/pancake_vision"
	viz "github.com/viam-labs/motion-tools/client/client"
	"go.viam.com/rdk/spatialmath"
)

const (
	flipApproachMm   = 120.0
	slideEntryMm     = 60.0
	flipRetreatMm    = 80.0
	flipFlickRadians = math.Pi
)

// Flip waits for the vision side to declare the pancake ready, fetches the
// spatula, slides the blade under the pancake, and flicks it over. The wait
// is bounded by the cook-time budget plus a margin: if the detector never
// publishes, the cycle fails rather than hanging.
func Flip(ctx context.Context, r *Robot) error {
	budget := pancakevision.DefaultConfig().Session.CookTimeBudget + FlipWaitMargin
	r.logger.Infof("Waiting up to %v for the pancake to cook", budget)
	loc, err := r.signals.WaitFlipReady(ctx, budget)
	if err != nil {
		return fmt.Errorf("wait for flip decision: %w", err)
	}
	r.state.FlipLocation = loc
	r.logger.Infof("Flip location generation %d: camera frame (%.1f, %.1f, %.1f)mm",
		loc.Generation, loc.Point.X, loc.Point.Y, loc.Point.Z)

	target, err := r.composer.Compose(ObjectPancake, loc.Point)
	if err != nil {
		return fmt.Errorf("compose flip pose: %w", err)
	}
	if err := viz.DrawPoses([]spatialmath.Pose{target}, []string{"flip_target"}, true); err != nil {
		return err
	}

	if err := r.fetchSpatula(ctx); err != nil {
		return fmt.Errorf("fetch spatula: %w", err)
	}

	// Approach above the entry point, descend to griddle height offset back
	// from the pancake edge, then slide the blade under linearly.
	pt := target.Point()
	entry := spatialmath.NewPose(
		r3.Vector{X: pt.X - slideEntryMm, Y: pt.Y, Z: pt.Z},
		target.Orientation(),
	)
	if err := r.moveFree(ctx, r.arm.Name().Name, poseAbove(entry, flipApproachMm), nil); err != nil {
		return fmt.Errorf("move to flip approach: %w", err)
	}
	if err := r.moveLinear(ctx, r.arm.Name().Name, entry, nil); err != nil {
		return fmt.Errorf("descend to griddle: %w", err)
	}
	r.logger.Info("Sliding under pancake")
	if err := r.moveLinear(ctx, r.arm.Name().Name, target, nil); err != nil {
		return fmt.Errorf("slide under pancake: %w", err)
	}

	// The flick is a fast half-turn of the wrist. Planning a linear path
	// here would fight the motion we actually want.
	r.logger.Info("Flipping")
	if err := r.rotateWrist(ctx, flipFlickRadians); err != nil {
		return fmt.Errorf("flip flick: %w", err)
	}
	if err := r.rotateWrist(ctx, -flipFlickRadians); err != nil {
		return fmt.Errorf("level spatula: %w", err)
	}

	// Retreat up and clear the camera's view of the griddle.
	if err := r.moveLinear(ctx, r.arm.Name().Name, poseAbove(target, flipRetreatMm), nil); err != nil {
		return fmt.Errorf("retreat after flip: %w", err)
	}
	if err := r.moveFree(ctx, r.arm.Name().Name, PourRestPose, nil); err != nil {
		return fmt.Errorf("clear griddle view: %w", err)
	}

	r.logger.Info("Pancake flipped")
	return nil
}

// fetchSpatula grabs the spatula off its hook.
func (r *Robot) fetchSpatula(ctx context.Context) error {
	if err := r.gripper.Open(ctx, nil); err != nil {
		return fmt.Errorf("open gripper: %w", err)
	}
	if err := r.moveArmDirectToJoints(ctx, SpatulaGraspJoints); err != nil {
		return fmt.Errorf("move to spatula: %w", err)
	}
	grabbed, err := r.gripper.Grab(ctx, nil)
	if err != nil {
		return fmt.Errorf("grab spatula: %w", err)
	}
	if !grabbed {
		return fmt.Errorf("gripper did not close on spatula")
	}
	r.state.HoldingSpatula = true
	return nil
}

// returnSpatula re-hangs the spatula on its hook and retreats to the
// griddle viewing position.
func (r *Robot) returnSpatula(ctx context.Context) error {
	if err := r.moveArmDirectToJoints(ctx, SpatulaGraspJoints); err != nil {
		return fmt.Errorf("move to spatula hook: %w", err)
	}
	if err := r.gripper.Open(ctx, nil); err != nil {
		return fmt.Errorf("release spatula: %w", err)
	}
	r.state.HoldingSpatula = false

	retreat := SpatulaReturnJoints
	if retreat == nil {
		retreat = GriddleViewingJoints
	}
	if err := r.moveArmDirectToJoints(ctx, retreat); err != nil {
		return fmt.Errorf("retreat from spatula hook: %w", err)
	}
	return nil
}
