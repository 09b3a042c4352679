package pancakevision

import (
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/rdk/rimage/transform"
)

// Intrinsics holds the pinhole camera parameters used for deprojection.
// The distortion model is none; the camera driver is expected to deliver
// rectified frames. The math is written out here rather than delegated to a
// camera SDK so the pipeline stays portable across sensors.
type Intrinsics struct {
	Width  int
	Height int
	Ppx    float64 // principal point X
	Ppy    float64 // principal point Y
	Fx     float64 // focal length X
	Fy     float64 // focal length Y
}

// IntrinsicsFromPinhole converts RDK pinhole parameters into an Intrinsics.
func IntrinsicsFromPinhole(p *transform.PinholeCameraIntrinsics) (Intrinsics, error) {
	if p == nil {
		return Intrinsics{}, ErrNoIntrinsics
	}
	in := Intrinsics{
		Width:  p.Width,
		Height: p.Height,
		Ppx:    p.Ppx,
		Ppy:    p.Ppy,
		Fx:     p.Fx,
		Fy:     p.Fy,
	}
	if err := in.CheckValid(); err != nil {
		return Intrinsics{}, err
	}
	return in, nil
}

// CheckValid reports whether the intrinsics describe a usable camera model.
func (in Intrinsics) CheckValid() error {
	if in.Width <= 0 || in.Height <= 0 {
		return fmt.Errorf("%w: invalid size (%d, %d)", ErrNoIntrinsics, in.Width, in.Height)
	}
	if in.Fx <= 0 || in.Fy <= 0 {
		return fmt.Errorf("%w: invalid focal lengths (%f, %f)", ErrNoIntrinsics, in.Fx, in.Fy)
	}
	return nil
}

// Deproject back-projects a pixel with a depth sample to a 3D point in the
// camera frame, in millimeters. A zero or negative depth is bad sensor data,
// not a point at the camera origin, and fails with ErrInvalidDepth.
func (in Intrinsics) Deproject(x, y, depthMm float64) (r3.Vector, error) {
	if err := in.CheckValid(); err != nil {
		return r3.Vector{}, err
	}
	if depthMm <= 0 {
		return r3.Vector{}, fmt.Errorf("%w: depth=%f at pixel (%.0f, %.0f)", ErrInvalidDepth, depthMm, x, y)
	}
	return r3.Vector{
		X: (x - in.Ppx) / in.Fx * depthMm,
		Y: (y - in.Ppy) / in.Fy * depthMm,
		Z: depthMm,
	}, nil
}

// Project is the forward pinhole projection of a camera-frame point back to
// a pixel and depth. It is the inverse of Deproject and exists so calibration
// can be checked round-trip.
func (in Intrinsics) Project(pt r3.Vector) (x, y, depthMm float64, err error) {
	if err := in.CheckValid(); err != nil {
		return 0, 0, 0, err
	}
	if pt.Z <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: point behind camera (z=%f)", ErrInvalidDepth, pt.Z)
	}
	x = pt.X/pt.Z*in.Fx + in.Ppx
	y = pt.Y/pt.Z*in.Fy + in.Ppy
	return x, y, pt.Z, nil
}
