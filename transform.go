package flapjack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/motion"
	"go.viam.com/rdk/spatialmath"
)

var (
	// ErrUnknownObjectKind is returned when a goal pose is requested for an
	// object the composer has no calibration for.
	ErrUnknownObjectKind = errors.New("unknown object kind")

	// ErrTransformLookupTimeout is returned when a bounded wait for a
	// spatial reference expires.
	ErrTransformLookupTimeout = errors.New("transform lookup timed out")
)

// ObjectKind names the graspable objects on the station.
type ObjectKind string

const (
	ObjectPancake         ObjectKind = "pancake"
	ObjectFinishedPancake ObjectKind = "finished_pancake"
	ObjectSpatula         ObjectKind = "spatula"
	ObjectBottle          ObjectKind = "bottle"
)

// GraspCalibration is the fixed grasp data for one object kind: a
// calibrated approach orientation and the offset from the perceived
// position (an AprilTag or a detected centroid) to the true grip point.
// Neither is computed at runtime; both were measured on the live station.
type GraspCalibration struct {
	Orientation spatialmath.Orientation
	GripOffset  r3.Vector // millimeters, base frame
}

// MountCalibration corrects for camera mounting error. TruePoint is the
// measured base-frame position of a reference object; PerceivedPoint is
// where the camera pipeline reported that same object in the camera frame.
// Their base-frame difference is applied to every subsequent lookup.
type MountCalibration struct {
	TruePoint      r3.Vector // base frame, millimeters
	PerceivedPoint r3.Vector // camera frame, millimeters
}

// Composer maps camera-frame object positions to goal poses in the robot
// base frame. After construction it is pure: identical inputs always
// compose to the identical pose.
type Composer struct {
	cameraPose spatialmath.Pose
	correction r3.Vector
	objects    map[ObjectKind]GraspCalibration
}

// NewComposer builds a Composer around the camera's pose in the base frame.
// The mounting correction delta is computed here, once.
func NewComposer(cameraPose spatialmath.Pose, mount MountCalibration, objects map[ObjectKind]GraspCalibration) *Composer {
	perceivedInBase := transformPoint(cameraPose, mount.PerceivedPoint)
	return &Composer{
		cameraPose: cameraPose,
		correction: mount.TruePoint.Sub(perceivedInBase),
		objects:    objects,
	}
}

// Correction returns the mounting correction delta, base frame millimeters.
func (c *Composer) Correction() r3.Vector {
	return c.correction
}

// Compose maps a camera-frame position to the base-frame goal pose for the
// named object: camera mounting transform, then the mount correction, then
// the object's grip offset, with the object's fixed grasp orientation.
func (c *Composer) Compose(kind ObjectKind, cameraPt r3.Vector) (spatialmath.Pose, error) {
	cal, ok := c.objects[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectKind, kind)
	}
	basePt := transformPoint(c.cameraPose, cameraPt).Add(c.correction).Add(cal.GripOffset)
	return spatialmath.NewPose(basePt, cal.Orientation), nil
}

// transformPoint maps a point through a pose: compose the pose with the
// point treated as an orientation-free pose, then read the position back.
func transformPoint(pose spatialmath.Pose, pt r3.Vector) r3.Vector {
	return spatialmath.Compose(pose, spatialmath.NewPoseFromPoint(pt)).Point()
}

// lookupCameraPose resolves the camera's pose in the base frame through the
// motion service, retrying with exponential backoff under a hard budget.
// The cook-time budget is the model here: every wait in the system is
// bounded, including this one.
func lookupCameraPose(
	ctx context.Context,
	m motion.Service,
	cameraName resource.Name,
	budget time.Duration,
	logger logging.Logger,
) (spatialmath.Pose, error) {
	deadline := time.Now().Add(budget)
	backoff := 100 * time.Millisecond
	var lastErr error

	for attempt := 1; ; attempt++ {
		pif, err := m.GetPose(ctx, cameraName, "", nil, nil)
		if err == nil {
			return pif.Pose(), nil
		}
		lastErr = err

		if time.Now().Add(backoff).After(deadline) {
			return nil, fmt.Errorf("%w: %s after %d attempts: %v",
				ErrTransformLookupTimeout, cameraName.Name, attempt, lastErr)
		}
		logger.Debugf("Camera pose lookup attempt %d failed, retrying in %v: %v", attempt, backoff, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 2*time.Second {
			backoff = 2 * time.Second
		}
	}
}
