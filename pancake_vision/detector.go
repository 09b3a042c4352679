package pancakevision

import (
	"fmt"
	"image"
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/rdk/logging"
)

// Trigger identifies what fired a flip decision.
type Trigger int

const (
	// TriggerNone means no decision has been made.
	TriggerNone Trigger = iota
	// TriggerOrganic means the contour count grew past baseline and then
	// settled back down: the batter spread, bubbled, and set.
	TriggerOrganic
	// TriggerTimeout means the cook-time budget elapsed before the batter
	// visibly set. The flip happens anyway so the pancake does not burn.
	TriggerTimeout
)

func (tr Trigger) String() string {
	switch tr {
	case TriggerOrganic:
		return "organic"
	case TriggerTimeout:
		return "timeout"
	default:
		return "none"
	}
}

// Decision is the outcome of a detection session: where the pancake is and
// why the detector decided it is ready.
type Decision struct {
	// Point is the pancake centroid in the camera frame, millimeters.
	Point r3.Vector
	// Pixel is the centroid in image coordinates; the lift search is
	// seeded from it after the flip.
	Pixel image.Point
	// Trigger records whether the decision was organic or forced.
	Trigger Trigger
	// Generation increments with each decision so readers can tell a
	// fresh location from a stale one.
	Generation uint64
	// DecidedAt is when the trigger fired.
	DecidedAt time.Time
}

type detectorState int

const (
	stateIdle detectorState = iota
	stateArmed
	stateWatching
)

// session tracks one detection cycle from pour-complete to flip decision.
// The baseline is fixed by the first frame processed while armed and never
// recomputed.
type session struct {
	startedAt  time.Time
	budget     time.Duration
	baseline   int
	growthSeen bool
}

// Detector is the frame-driven cook-readiness state machine. It is not safe
// for concurrent use; a single vision goroutine arms it and feeds it frames.
type Detector struct {
	cfg      Config
	logger   logging.Logger
	analyzer RegionAnalyzer

	state    detectorState
	sess     session
	lastGen  uint64
	lastDone *Decision
}

// NewDetector creates a Detector with the given configuration.
func NewDetector(cfg *Config, logger logging.Logger) *Detector {
	if cfg == nil {
		c := DefaultConfig()
		cfg = &c
	}
	return &Detector{
		cfg:      *cfg,
		logger:   logger,
		analyzer: NewRegionAnalyzer(cfg.Contour),
	}
}

// Arm starts a detection session. Called when the pour is reported
// complete. Arming while a session is in progress restarts it.
func (d *Detector) Arm(now time.Time) {
	d.state = stateArmed
	d.sess = session{
		startedAt: now,
		budget:    d.cfg.Session.CookTimeBudget,
	}
	d.logger.Infof("Detector armed; cook-time budget %v", d.sess.budget)
}

// Armed reports whether a detection session is in progress.
func (d *Detector) Armed() bool {
	return d.state != stateIdle
}

// Disarm abandons the current session, returning the detector to idle.
func (d *Detector) Disarm() {
	d.state = stateIdle
}

// LastDecision returns the most recent flip decision, or nil.
func (d *Detector) LastDecision() *Decision {
	return d.lastDone
}

// ProcessFrame evaluates one frame. While idle it does nothing. The first
// armed frame fixes the session's contour-count baseline. Subsequent frames
// watch for the organic trigger (growth past baseline, then settling below
// it) or the cook-time timeout. On either trigger the second-largest hull
// is selected as the pancake, its centroid deprojected through the depth
// frame, and a Decision returned.
//
// Failures on the trigger path (no candidate hull, empty depth sample) keep
// the session alive and are retried on the next frame; the orchestrator's
// bounded wait is what ultimately ends a cycle that never produces a
// decision.
func (d *Detector) ProcessFrame(frame Frame, now time.Time) (*Decision, error) {
	if d.state == stateIdle {
		return nil, nil
	}

	analysis, err := d.analyzer.Analyze(frame.Gray, d.regionCenter(), d.cfg.Region.Radius)
	if err != nil {
		return nil, fmt.Errorf("region analysis: %w", err)
	}

	if d.state == stateArmed {
		d.sess.baseline = analysis.ContourCount
		d.state = stateWatching
		d.logger.Infof("Session baseline fixed at %d contours", d.sess.baseline)
		return nil, nil
	}

	n := analysis.ContourCount
	if !d.sess.growthSeen && float64(n) > float64(d.sess.baseline)*d.cfg.Session.GrowthRatio {
		d.sess.growthSeen = true
		d.logger.Infof("Contour growth: %d > %.1f (baseline %d)",
			n, float64(d.sess.baseline)*d.cfg.Session.GrowthRatio, d.sess.baseline)
	}

	organic := d.sess.growthSeen && float64(n) < float64(d.sess.baseline)*d.cfg.Session.SettleRatio
	elapsed := now.Sub(d.sess.startedAt)
	timedOut := !organic && elapsed >= d.sess.budget

	if !organic && !timedOut {
		return nil, nil
	}

	trigger := TriggerOrganic
	if timedOut {
		trigger = TriggerTimeout
		d.logger.Warnf("Cook-time budget elapsed (%v >= %v); forcing flip", elapsed, d.sess.budget)
	}

	candidate, err := selectFlipCandidate(analysis)
	if err != nil {
		return nil, fmt.Errorf("%s trigger: %w", trigger, err)
	}

	depthMm, err := frame.DepthAt(candidate.Centroid)
	if err != nil {
		return nil, fmt.Errorf("%s trigger at pixel (%d, %d): %w",
			trigger, candidate.Centroid.X, candidate.Centroid.Y, err)
	}
	pt, err := frame.Intr.Deproject(float64(candidate.Centroid.X), float64(candidate.Centroid.Y), depthMm)
	if err != nil {
		return nil, fmt.Errorf("%s trigger: %w", trigger, err)
	}

	d.state = stateIdle
	d.lastGen++
	decision := &Decision{
		Point:      pt,
		Pixel:      candidate.Centroid,
		Trigger:    trigger,
		Generation: d.lastGen,
		DecidedAt:  now,
	}
	d.lastDone = decision
	d.logger.Infof("Flip decided (%s): pixel (%d, %d), camera point (%.1f, %.1f, %.1f)mm",
		trigger, decision.Pixel.X, decision.Pixel.Y, pt.X, pt.Y, pt.Z)
	return decision, nil
}

func (d *Detector) regionCenter() image.Point {
	return image.Point{X: d.cfg.Region.CenterX, Y: d.cfg.Region.CenterY}
}
