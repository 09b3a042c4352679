package flapjack

import (
	"github.com/golang/geo/r3"

	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/spatialmath"
)

// Joint positions recorded from the live station on 2026-07-14.
var (
	// GriddleViewingJoints is the joint position from which the wrist camera
	// sees the whole griddle. The arm parks here while a pancake cooks.
	GriddleViewingJoints = referenceframe.FloatsToInputs([]float64{
		0.214806, -0.988143, -0.103751, 1.429984, 0.052361, 1.167316,
	})

	// BottleGraspJoints is the joint position for grasping the batter bottle
	// in its holster.
	BottleGraspJoints = referenceframe.FloatsToInputs([]float64{
		-1.113378, -0.421539, -0.865127, 2.310945, 0.488613, -0.196350,
	})

	// BottleReturnJoints re-holsters the bottle after a pour. Recorded
	// separately from BottleGraspJoints: the approach comes from above.
	BottleReturnJoints = referenceframe.FloatsToInputs([]float64{
		-1.101542, -0.512904, -0.791432, 2.279851, 0.501176, -0.203918,
	})

	// SpatulaGraspJoints is the joint position for picking the spatula off
	// its hook.
	SpatulaGraspJoints = referenceframe.FloatsToInputs([]float64{
		1.742551, -0.358863, -1.027465, 1.903274, -0.412001, 0.871418,
	})

	// SpatulaReturnJoints re-hangs the spatula. STUB: needs a recording
	// session with the new hook bracket.
	SpatulaReturnJoints []referenceframe.Input
)

// World-frame poses for key locations. Recorded 2026-07-14 unless noted.
var (
	// PourPose holds the bottle mouth over the griddle center, tipped for
	// the pour stroke.
	PourPose = spatialmath.NewPose(
		r3.Vector{X: 412.336018, Y: -87.441205, Z: 318.749611},
		&spatialmath.OrientationVectorDegrees{OX: 0.183012, OY: 0.089144, OZ: -0.979058, Theta: 112.483370},
	)

	// PourRestPose holds the bottle upright above the griddle edge before
	// and after the tilt, so drips land on the griddle.
	PourRestPose = spatialmath.NewPose(
		r3.Vector{X: 412.336018, Y: -87.441205, Z: 402.190330},
		&spatialmath.OrientationVectorDegrees{OZ: -1, Theta: 0},
	)

	// PlatePose is where a finished pancake is deposited. Recorded 2026-07-16.
	PlatePose = spatialmath.NewPose(
		r3.Vector{X: 131.704562, Y: 343.882317, Z: 247.015926},
		&spatialmath.OrientationVectorDegrees{OX: 0.041377, OY: -0.062899, OZ: -0.997162, Theta: 24.118206},
	)
)

// Per-object grasp calibrations: fixed approach orientations (quaternions
// measured on the live station, not computed) and offsets from the
// perceived position to the true grip point. The pancake offsets account
// for sliding the spatula blade under the edge rather than gripping the
// centroid itself.
var ObjectGraspCalibrations = map[ObjectKind]GraspCalibration{
	ObjectPancake: {
		Orientation: &spatialmath.Quaternion{Real: 0.051, Imag: 0.713, Jmag: 0.699, Kmag: -0.006},
		GripOffset:  r3.Vector{X: -58.0, Y: 0.0, Z: 12.5},
	},
	ObjectFinishedPancake: {
		Orientation: &spatialmath.Quaternion{Real: 0.048, Imag: 0.709, Jmag: 0.703, Kmag: -0.011},
		GripOffset:  r3.Vector{X: -58.0, Y: 0.0, Z: 9.0},
	},
	ObjectSpatula: {
		Orientation: &spatialmath.Quaternion{Real: 0.705, Imag: -0.044, Jmag: 0.707, Kmag: 0.038},
		GripOffset:  r3.Vector{X: 0.0, Y: -21.0, Z: 104.0},
	},
	ObjectBottle: {
		Orientation: &spatialmath.Quaternion{Real: 0.999, Imag: 0.009, Jmag: -0.031, Kmag: 0.002},
		GripOffset:  r3.Vector{X: 0.0, Y: 0.0, Z: 96.5},
	},
}

// GriddleMountCalibration pairs the measured base-frame position of the
// griddle's front AprilTag with where the camera pipeline perceived it
// during calibration on 2026-07-15. The composer turns the difference into
// the mounting correction applied to every lookup.
var GriddleMountCalibration = MountCalibration{
	TruePoint:      r3.Vector{X: 396.0, Y: -120.5, Z: 212.0},
	PerceivedPoint: r3.Vector{X: -41.337891, Y: 67.082550, Z: 486.250000},
}
