package flapjack

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"go.viam.com/rdk/spatialmath"
)

func vecAlmostEqual(t *testing.T, got, want r3.Vector, tol float64) {
	t.Helper()
	if math.Abs(got.X-want.X) > tol || math.Abs(got.Y-want.Y) > tol || math.Abs(got.Z-want.Z) > tol {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestComposerCorrection(t *testing.T) {
	// With an identity camera pose the perceived point maps to itself, so
	// the correction is simply the true-minus-perceived delta.
	mount := MountCalibration{
		TruePoint:      r3.Vector{X: 396, Y: -120.5, Z: 212},
		PerceivedPoint: r3.Vector{},
	}
	c := NewComposer(spatialmath.NewZeroPose(), mount, ObjectGraspCalibrations)
	vecAlmostEqual(t, c.Correction(), mount.TruePoint, 1e-9)
}

func TestComposeAppliesCameraPoseAndOffsets(t *testing.T) {
	cameraPose := spatialmath.NewPoseFromPoint(r3.Vector{X: 100, Y: 0, Z: 50})
	perceived := r3.Vector{X: 1, Y: 2, Z: 3}

	// Calibrate so the correction comes out zero: the true point is exactly
	// where the camera pose places the perceived point.
	mount := MountCalibration{
		TruePoint:      r3.Vector{X: 101, Y: 2, Z: 53},
		PerceivedPoint: perceived,
	}
	objects := map[ObjectKind]GraspCalibration{
		ObjectPancake: {
			Orientation: &spatialmath.OrientationVectorDegrees{OZ: -1},
			GripOffset:  r3.Vector{X: 5, Y: 0, Z: -2},
		},
	}

	c := NewComposer(cameraPose, mount, objects)
	vecAlmostEqual(t, c.Correction(), r3.Vector{}, 1e-9)

	pose, err := c.Compose(ObjectPancake, perceived)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	vecAlmostEqual(t, pose.Point(), r3.Vector{X: 106, Y: 2, Z: 51}, 1e-9)
	if !spatialmath.OrientationAlmostEqual(pose.Orientation(), objects[ObjectPancake].Orientation) {
		t.Error("composed pose should carry the calibrated orientation")
	}
}

func TestComposeIsPure(t *testing.T) {
	cameraPose := spatialmath.NewPose(
		r3.Vector{X: 250, Y: -40, Z: 600},
		&spatialmath.OrientationVectorDegrees{OZ: -1, Theta: 15},
	)
	c := NewComposer(cameraPose, GriddleMountCalibration, ObjectGraspCalibrations)

	pt := r3.Vector{X: -162.5, Y: 92.5, Z: 500}
	first, err := c.Compose(ObjectPancake, pt)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	second, err := c.Compose(ObjectPancake, pt)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !spatialmath.PoseAlmostEqual(first, second) {
		t.Errorf("identical inputs composed to different poses: %v vs %v", first, second)
	}
}

func TestComposeUnknownKind(t *testing.T) {
	c := NewComposer(spatialmath.NewZeroPose(), GriddleMountCalibration, ObjectGraspCalibrations)
	_, err := c.Compose(ObjectKind("waffle"), r3.Vector{Z: 500})
	if !errors.Is(err, ErrUnknownObjectKind) {
		t.Fatalf("expected ErrUnknownObjectKind, got %v", err)
	}
}

func TestComposeAllCalibratedObjects(t *testing.T) {
	c := NewComposer(spatialmath.NewZeroPose(), GriddleMountCalibration, ObjectGraspCalibrations)
	pt := r3.Vector{X: 10, Y: 10, Z: 480}

	for kind, cal := range ObjectGraspCalibrations {
		pose, err := c.Compose(kind, pt)
		if err != nil {
			t.Errorf("Compose(%q): %v", kind, err)
			continue
		}
		if !spatialmath.OrientationAlmostEqual(pose.Orientation(), cal.Orientation) {
			t.Errorf("Compose(%q) orientation does not match calibration", kind)
		}
	}
}
