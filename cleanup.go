package flapjack

import (
	"context"
)

// ResetCycle returns the workcell to a safe idle state after a failed or
// interrupted cycle: re-racks whatever tool is in the gripper, disarms the
// detector, clears the shared signal flags, and parks the arm at the
// griddle viewing position. Every step is best-effort; a reset must not
// itself wedge the loop.
func ResetCycle(ctx context.Context, r *Robot) error {
	switch {
	case r.state.HoldingSpatula:
		if err := r.returnSpatula(ctx); err != nil {
			r.logger.Warnf("Spatula return: %v", err)
			if err := r.gripper.Open(ctx, nil); err != nil {
				r.logger.Warnf("Open gripper: %v", err)
			}
			r.state.HoldingSpatula = false
		}
	case r.state.HoldingBottle:
		if err := r.moveArmDirectToJoints(ctx, BottleReturnJoints); err != nil {
			r.logger.Warnf("Bottle return: %v", err)
		}
		if err := r.gripper.Open(ctx, nil); err != nil {
			r.logger.Warnf("Open gripper: %v", err)
		}
		r.state.HoldingBottle = false
	default:
		if err := r.gripper.Open(ctx, nil); err != nil {
			r.logger.Warnf("Open gripper: %v", err)
		}
	}

	if err := r.moveArmDirectToJoints(ctx, GriddleViewingJoints); err != nil {
		r.logger.Warnf("Return to viewing position: %v", err)
	}

	r.detector.Disarm()
	r.signals.Reset()
	r.resetState()
	r.logger.Info("Cycle reset complete")
	return nil
}
