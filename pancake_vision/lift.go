package pancakevision

import (
	"fmt"
	"image"

	"github.com/golang/geo/r3"

	"go.viam.com/rdk/logging"
)

// LiftLocator refines the pancake position after a flip. It re-runs the
// contour search in a circle of the same radius as the cook-readiness
// region, but centered on the last known flip pixel instead of the fixed
// griddle calibration point.
type LiftLocator struct {
	cfg      Config
	logger   logging.Logger
	analyzer RegionAnalyzer
}

// NewLiftLocator creates a LiftLocator with the given configuration.
func NewLiftLocator(cfg *Config, logger logging.Logger) *LiftLocator {
	if cfg == nil {
		c := DefaultConfig()
		cfg = &c
	}
	return &LiftLocator{
		cfg:      *cfg,
		logger:   logger,
		analyzer: NewRegionAnalyzer(cfg.Contour),
	}
}

// Locate finds the grasp point for the lift. seed is the pixel of the flip
// decision. Unlike flip selection, the largest hull wins here: without the
// fixed region boundary in frame the cooked pancake is the dominant shape.
func (l *LiftLocator) Locate(frame Frame, seed image.Point) (r3.Vector, error) {
	analysis, err := l.analyzer.Analyze(frame.Gray, seed, l.cfg.Region.Radius)
	if err != nil {
		return r3.Vector{}, fmt.Errorf("lift region analysis: %w", err)
	}

	candidate, err := selectLiftCandidate(analysis)
	if err != nil {
		return r3.Vector{}, err
	}

	depthMm, err := frame.DepthAt(candidate.Centroid)
	if err != nil {
		return r3.Vector{}, err
	}
	pt, err := frame.Intr.Deproject(float64(candidate.Centroid.X), float64(candidate.Centroid.Y), depthMm)
	if err != nil {
		return r3.Vector{}, err
	}

	l.logger.Infof("Lift location: pixel (%d, %d), camera point (%.1f, %.1f, %.1f)mm",
		candidate.Centroid.X, candidate.Centroid.Y, pt.X, pt.Y, pt.Z)
	return pt, nil
}
