package flapjack

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"google.golang.org/protobuf/encoding/protojson"

	pancakevision "github.com/biotinker/flapjack/pancake_vision"
	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/components/gripper"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/motionplan"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/robot"
	"go.viam.com/rdk/services/motion"
	"go.viam.com/rdk/spatialmath"
)

// motionServiceName is the resource name of the builtin motion service.
const motionServiceName = "builtin"

// Timing configuration for the cook cycle. Package variables so a
// deployment can override them before Run.
var (
	// DwellAfterFlip is how long the second side cooks before the lift.
	DwellAfterFlip = 20 * time.Second

	// FlipWaitMargin is added to the detector's cook-time budget to bound
	// the orchestrator's wait for the flip-ready signal.
	FlipWaitMargin = 15 * time.Second

	// LiftWaitTimeout bounds the wait for a lift location after requesting one.
	LiftWaitTimeout = 10 * time.Second

	// FramePeriod is the camera polling interval of the vision loop.
	FramePeriod = 200 * time.Millisecond

	// IntrinsicsWaitBudget bounds the startup wait for camera intrinsics.
	IntrinsicsWaitBudget = 30 * time.Second

	// PoseLookupBudget bounds the startup camera-pose lookup.
	PoseLookupBudget = 10 * time.Second
)

// Robot holds all hardware references, services, and state for the
// pancake-cooking pipeline.
type Robot struct {
	logger  logging.Logger
	machine robot.Robot

	arm        arm.Arm
	gripper    gripper.Gripper
	griddleCam camera.Camera
	motion     motion.Service

	// Vision pipeline.
	store       *pancakevision.FrameStore
	detector    *pancakevision.Detector
	liftLocator *pancakevision.LiftLocator

	// Cross-loop handshake and frame transforms.
	signals  *CycleSignals
	composer *Composer

	state *CookState

	// PlansDir, when set, is a directory for persisting cached
	// trajectories to disk. If empty, plans are cached in memory only.
	PlansDir string

	// Cached trajectories for the fixed pour strokes that repeat every
	// cycle between the same two poses: planned once via DoPlan, replayed
	// via DoExecute. Flip and lift strokes depend on where the pancake
	// landed, so they are planned fresh every cycle.
	pourTiltTrajectory  motionplan.Trajectory
	pourLevelTrajectory motionplan.Trajectory
}

// CookState tracks the state of the current cooking cycle.
type CookState struct {
	// FlipLocation is the consumed flip mailbox value for this cycle.
	FlipLocation Location

	// LiftLocation is the consumed lift mailbox value for this cycle.
	LiftLocation Location

	// HoldingSpatula is set while the spatula is off its hook, so cleanup
	// knows whether to re-hang it.
	HoldingSpatula bool

	// HoldingBottle is the same for the batter bottle.
	HoldingBottle bool

	// PancakesCooked is the total completed this session.
	PancakesCooked int
}

// NewRobot creates a Robot by looking up all hardware resources from the
// machine and resolving the camera's base-frame pose for the transform
// composer. All resources are required.
func NewRobot(ctx context.Context, machine robot.Robot, logger logging.Logger) (*Robot, error) {
	r := &Robot{
		logger:  logger,
		machine: machine,
		state:   &CookState{},
		signals: NewCycleSignals(),
	}

	armComponent, err := arm.FromProvider(machine, "xarm6")
	if err != nil {
		return nil, fmt.Errorf("arm (xarm6): %w", err)
	}
	r.arm = armComponent

	toolGripper, err := gripper.FromProvider(machine, "tool-gripper")
	if err != nil {
		return nil, fmt.Errorf("tool gripper: %w", err)
	}
	r.gripper = toolGripper

	griddleCam, err := camera.FromProvider(machine, "griddle-cam")
	if err != nil {
		return nil, fmt.Errorf("griddle camera: %w", err)
	}
	r.griddleCam = griddleCam

	motionSvc, err := motion.FromProvider(machine, motionServiceName)
	if err != nil {
		return nil, fmt.Errorf("motion service: %w", err)
	}
	r.motion = motionSvc

	r.store = pancakevision.NewFrameStore()
	r.detector = pancakevision.NewDetector(nil, logger)
	r.liftLocator = pancakevision.NewLiftLocator(nil, logger)

	cameraPose, err := lookupCameraPose(ctx, r.motion, r.griddleCam.Name(), PoseLookupBudget, logger)
	if err != nil {
		return nil, fmt.Errorf("griddle camera pose: %w", err)
	}
	r.composer = NewComposer(cameraPose, GriddleMountCalibration, ObjectGraspCalibrations)
	logger.Infof("Camera mount correction: (%.1f, %.1f, %.1f)mm",
		r.composer.Correction().X, r.composer.Correction().Y, r.composer.Correction().Z)

	return r, nil
}

// Signals exposes the cycle handshake state, chiefly for the CLI.
func (r *Robot) Signals() *CycleSignals {
	return r.signals
}

// moveLinear moves a component to the destination pose using a linear
// constraint. The path stays within 1mm of a straight line and 2 degrees
// of orientation. Used for the slide-under strokes where the blade must
// skim the griddle surface.
func (r *Robot) moveLinear(ctx context.Context, componentName string, dest spatialmath.Pose, worldState *referenceframe.WorldState) error {
	constraints := motionplan.NewConstraints(
		[]motionplan.LinearConstraint{{
			LineToleranceMm:          1.0,
			OrientationToleranceDegs: 2.0,
		}},
		nil, nil, nil,
	)

	_, err := r.motion.Move(ctx, motion.MoveReq{
		ComponentName: componentName,
		Destination:   referenceframe.NewPoseInFrame("world", dest),
		WorldState:    worldState,
		Constraints:   constraints,
	})
	return err
}

// moveFree moves a component to the destination pose with no path
// constraints; the motion planner chooses a collision-free path.
func (r *Robot) moveFree(ctx context.Context, componentName string, dest spatialmath.Pose, worldState *referenceframe.WorldState) error {
	_, err := r.motion.Move(ctx, motion.MoveReq{
		ComponentName: componentName,
		Destination:   referenceframe.NewPoseInFrame("world", dest),
		WorldState:    worldState,
	})
	return err
}

// moveArmDirectToJoints moves the arm directly to joint positions without
// the motion service. Used for the recorded waypoints, which were taught
// with the workspace clear.
func (r *Robot) moveArmDirectToJoints(ctx context.Context, joints []referenceframe.Input) error {
	if joints == nil {
		return fmt.Errorf("cannot move to nil joint positions (position not yet recorded)")
	}
	return r.arm.MoveToJointPositions(ctx, joints, nil)
}

// rotateWrist turns the final arm joint by the given angle in radians while
// holding every other joint fixed. The flip flick and the plate tip both
// come down to a fast wrist rotation.
func (r *Robot) rotateWrist(ctx context.Context, radians float64) error {
	joints, err := r.arm.JointPositions(ctx, nil)
	if err != nil {
		return fmt.Errorf("read joint positions: %w", err)
	}
	if len(joints) == 0 {
		return fmt.Errorf("arm reported no joints")
	}
	turned := make([]referenceframe.Input, len(joints))
	copy(turned, joints)
	turned[len(turned)-1] = referenceframe.Input{Value: joints[len(joints)-1].Value + radians}
	return r.arm.MoveToJointPositions(ctx, turned, nil)
}

// doPlan calls the motion service's DoPlan DoCommand to generate a
// trajectory without executing it, so fixed strokes can be cached.
func (r *Robot) doPlan(ctx context.Context, req motion.MoveReq) (motionplan.Trajectory, error) {
	proto, err := req.ToProto(motionServiceName)
	if err != nil {
		return nil, fmt.Errorf("build plan proto: %w", err)
	}
	reqBytes, err := protojson.Marshal(proto)
	if err != nil {
		return nil, fmt.Errorf("marshal plan request: %w", err)
	}
	resp, err := r.motion.DoCommand(ctx, map[string]interface{}{
		"plan": string(reqBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("DoPlan: %w", err)
	}
	raw, ok := resp["plan"]
	if !ok {
		return nil, fmt.Errorf("DoPlan response missing 'plan' key")
	}
	var trajectory motionplan.Trajectory
	if err := mapstructure.Decode(raw, &trajectory); err != nil {
		return nil, fmt.Errorf("decode trajectory: %w", err)
	}
	return trajectory, nil
}

// doExecute calls the motion service's DoExecute DoCommand to replay a
// cached trajectory.
func (r *Robot) doExecute(ctx context.Context, trajectory motionplan.Trajectory) error {
	r.logger.Debugf("doExecute: %d trajectory steps", len(trajectory))
	resp, err := r.motion.DoCommand(ctx, map[string]interface{}{
		"execute": trajectory,
	})
	if err != nil {
		return fmt.Errorf("DoExecute: %w", err)
	}
	if ok, _ := resp["execute"].(bool); !ok {
		return fmt.Errorf("DoExecute returned non-true response: %v", resp["execute"])
	}
	return nil
}

// cachedLinearMove plans (or replays from cache) a linear-constrained move
// to dest. traj must point to a trajectory field on Robot; it is populated
// on first call and reused thereafter. The pour strokes are identical every
// cycle, so replanning them is wasted time.
func (r *Robot) cachedLinearMove(ctx context.Context, componentName string, dest spatialmath.Pose, traj *motionplan.Trajectory, cacheFile string) error {
	if *traj == nil {
		*traj = r.loadCachedTrajectory(cacheFile)
	}
	if *traj == nil {
		r.logger.Infof("Planning %s (first run; will be cached)", cacheFile)
		req := motion.MoveReq{
			ComponentName: componentName,
			Destination:   referenceframe.NewPoseInFrame("world", dest),
			Constraints: motionplan.NewConstraints(
				[]motionplan.LinearConstraint{{
					LineToleranceMm:          1.0,
					OrientationToleranceDegs: 2.0,
				}},
				nil, nil, nil,
			),
		}
		planned, err := r.doPlan(ctx, req)
		if err != nil {
			return err
		}
		*traj = planned
		r.saveCachedTrajectory(cacheFile, planned)
	}
	return r.doExecute(ctx, *traj)
}

// loadCachedTrajectory loads a trajectory from PlansDir/filename. Returns
// nil if PlansDir is unset, the file doesn't exist, or parsing fails.
func (r *Robot) loadCachedTrajectory(filename string) motionplan.Trajectory {
	if r.PlansDir == "" {
		return nil
	}
	path := filepath.Join(r.PlansDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var traj motionplan.Trajectory
	if err := json.Unmarshal(data, &traj); err != nil {
		r.logger.Warnf("Failed to parse cached trajectory %s: %v", path, err)
		return nil
	}
	r.logger.Infof("Loaded cached trajectory from %s (%d steps)", path, len(traj))
	return traj
}

// saveCachedTrajectory writes a trajectory to PlansDir/filename as JSON.
// No-op if PlansDir is unset; logs a warning on write failure.
func (r *Robot) saveCachedTrajectory(filename string, traj motionplan.Trajectory) {
	if r.PlansDir == "" {
		return
	}
	if err := os.MkdirAll(r.PlansDir, 0o755); err != nil {
		r.logger.Warnf("Failed to create plans dir %s: %v", r.PlansDir, err)
		return
	}
	path := filepath.Join(r.PlansDir, filename)
	data, err := json.Marshal(traj)
	if err != nil {
		r.logger.Warnf("Failed to serialize trajectory for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.logger.Warnf("Failed to write trajectory to %s: %v", path, err)
		return
	}
	r.logger.Infof("Saved trajectory to %s (%d steps)", path, len(traj))
}

// poseAbove returns a new pose shifted upward (+Z) by the given offset in mm.
func poseAbove(base spatialmath.Pose, offsetMm float64) spatialmath.Pose {
	pt := base.Point()
	return spatialmath.NewPose(
		r3.Vector{X: pt.X, Y: pt.Y, Z: pt.Z + offsetMm},
		base.Orientation(),
	)
}

// resetState clears cycle state for the next pancake.
func (r *Robot) resetState() {
	r.state = &CookState{
		PancakesCooked: r.state.PancakesCooked,
	}
}
