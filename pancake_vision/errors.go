package pancakevision

import "errors"

var (
	// ErrBadFrameDecode is returned when a camera image cannot be decoded into a usable frame.
	ErrBadFrameDecode = errors.New("bad frame decode")

	// ErrInvalidDepth is returned when the depth sample at the target pixel is zero or negative.
	ErrInvalidDepth = errors.New("invalid depth at target pixel")

	// ErrNoCandidateContour is returned when the region contains too few hulls to pick a pancake.
	ErrNoCandidateContour = errors.New("no candidate pancake contour")

	// ErrNoIntrinsics is returned when deprojection is attempted before intrinsics are known.
	ErrNoIntrinsics = errors.New("camera intrinsics not available")

	// ErrNoDepthFrame is returned when no depth frame has been ingested yet.
	ErrNoDepthFrame = errors.New("no depth frame available")

	// ErrNoColorFrame is returned when no color frame has been ingested yet.
	ErrNoColorFrame = errors.New("no color frame available")
)
