package pancakevision

import (
	"errors"
	"image"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/rimage"
)

// scriptedAnalyzer replays a fixed sequence of region analyses, one per
// frame, so detector sessions can be driven without OpenCV.
type scriptedAnalyzer struct {
	frames []RegionAnalysis
	next   int
}

func (s *scriptedAnalyzer) Analyze(gocv.Mat, image.Point, int) (RegionAnalysis, error) {
	i := s.next
	if i >= len(s.frames) {
		i = len(s.frames) - 1
	}
	s.next++
	return s.frames[i], nil
}

// withCount builds an analysis with the given raw contour count and two
// hulls: the region boundary (rank 0) and the pancake (rank 1).
func withCount(n int) RegionAnalysis {
	return RegionAnalysis{
		ContourCount: n,
		Hulls: []HullStat{
			{Area: 145000, Centroid: image.Point{X: 727, Y: 394}},
			{Area: 21000, Centroid: image.Point{X: 700, Y: 410}},
		},
	}
}

func newTestDetector(t *testing.T, frames []RegionAnalysis) *Detector {
	t.Helper()
	cfg := DefaultConfig()
	return &Detector{
		cfg:      cfg,
		logger:   logging.NewTestLogger(t),
		analyzer: &scriptedAnalyzer{frames: frames},
	}
}

func testFrame(t *testing.T, depthPixel image.Point, depthMm int) Frame {
	t.Helper()
	dm := rimage.NewEmptyDepthMap(1280, 720)
	if depthMm > 0 {
		dm.Set(depthPixel.X, depthPixel.Y, rimage.Depth(depthMm))
	}
	return Frame{Depth: dm, Intr: testIntrinsics()}
}

func TestDetector_OrganicTrigger(t *testing.T) {
	// Baseline 10, growth to 14 (>13), then settle to 6 (<7).
	d := newTestDetector(t, []RegionAnalysis{
		withCount(10),
		withCount(11),
		withCount(14),
		withCount(12),
		withCount(6),
	})
	frame := testFrame(t, image.Point{X: 700, Y: 410}, 500)

	start := time.Now()
	d.Arm(start)

	var decision *Decision
	for i := 0; i < 5; i++ {
		var err error
		decision, err = d.ProcessFrame(frame, start.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if i < 4 && decision != nil {
			t.Fatalf("frame %d: premature decision %+v", i, decision)
		}
	}

	if decision == nil {
		t.Fatal("expected a decision on the settle frame")
	}
	if decision.Trigger != TriggerOrganic {
		t.Errorf("trigger = %v, want organic", decision.Trigger)
	}
	if decision.Pixel != (image.Point{X: 700, Y: 410}) {
		t.Errorf("pixel = %v, want (700, 410)", decision.Pixel)
	}
	if decision.Point.Z != 500 {
		t.Errorf("point Z = %f, want 500", decision.Point.Z)
	}
	if decision.Generation != 1 {
		t.Errorf("generation = %d, want 1", decision.Generation)
	}
	if d.Armed() {
		t.Error("detector should return to idle after a decision")
	}
}

func TestDetector_OrganicRequiresPriorGrowth(t *testing.T) {
	// Count drops below the settle ratio immediately, but growth was never
	// seen, so the organic trigger must not fire.
	d := newTestDetector(t, []RegionAnalysis{
		withCount(10),
		withCount(6),
		withCount(5),
		withCount(4),
	})
	frame := testFrame(t, image.Point{X: 700, Y: 410}, 500)

	start := time.Now()
	d.Arm(start)
	for i := 0; i < 4; i++ {
		decision, err := d.ProcessFrame(frame, start.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if decision != nil {
			t.Fatalf("frame %d: organic trigger fired without growth: %+v", i, decision)
		}
	}
	if !d.Armed() {
		t.Error("detector should still be watching")
	}
}

func TestDetector_TimeoutTrigger(t *testing.T) {
	// Cook-time budget is 45s; no growth ever. At 46s elapsed the timeout
	// trigger fires regardless of contour state.
	d := newTestDetector(t, []RegionAnalysis{
		withCount(10),
		withCount(10),
		withCount(11),
	})
	frame := testFrame(t, image.Point{X: 700, Y: 410}, 500)

	start := time.Now()
	d.Arm(start)
	if _, err := d.ProcessFrame(frame, start); err != nil {
		t.Fatalf("baseline frame: %v", err)
	}
	decision, err := d.ProcessFrame(frame, start.Add(10*time.Second))
	if err != nil {
		t.Fatalf("mid-cook frame: %v", err)
	}
	if decision != nil {
		t.Fatalf("decision before budget elapsed: %+v", decision)
	}

	decision, err = d.ProcessFrame(frame, start.Add(46*time.Second))
	if err != nil {
		t.Fatalf("timeout frame: %v", err)
	}
	if decision == nil {
		t.Fatal("expected timeout decision")
	}
	if decision.Trigger != TriggerTimeout {
		t.Errorf("trigger = %v, want timeout", decision.Trigger)
	}
}

func TestDetector_OrganicWinsOverTimeout(t *testing.T) {
	// If the settle frame arrives past the budget, it is still the organic
	// trigger that fires, not the timeout.
	d := newTestDetector(t, []RegionAnalysis{
		withCount(10),
		withCount(14),
		withCount(6),
	})
	frame := testFrame(t, image.Point{X: 700, Y: 410}, 500)

	start := time.Now()
	d.Arm(start)
	if _, err := d.ProcessFrame(frame, start); err != nil {
		t.Fatalf("baseline frame: %v", err)
	}
	if _, err := d.ProcessFrame(frame, start.Add(20*time.Second)); err != nil {
		t.Fatalf("growth frame: %v", err)
	}
	decision, err := d.ProcessFrame(frame, start.Add(50*time.Second))
	if err != nil {
		t.Fatalf("settle frame: %v", err)
	}
	if decision == nil || decision.Trigger != TriggerOrganic {
		t.Fatalf("decision = %+v, want organic trigger", decision)
	}
}

func TestDetector_NoCandidateContour(t *testing.T) {
	// Timeout fires over an empty griddle: only the region boundary hull is
	// present, so selection must fail typed instead of dividing by zero.
	boundaryOnly := RegionAnalysis{
		ContourCount: 1,
		Hulls:        []HullStat{{Area: 145000, Centroid: image.Point{X: 727, Y: 394}}},
	}
	d := newTestDetector(t, []RegionAnalysis{
		boundaryOnly,
		boundaryOnly,
		withCount(10),
	})
	frame := testFrame(t, image.Point{X: 700, Y: 410}, 500)

	start := time.Now()
	d.Arm(start)
	if _, err := d.ProcessFrame(frame, start); err != nil {
		t.Fatalf("baseline frame: %v", err)
	}

	_, err := d.ProcessFrame(frame, start.Add(46*time.Second))
	if !errors.Is(err, ErrNoCandidateContour) {
		t.Fatalf("got %v, want ErrNoCandidateContour", err)
	}
	if !d.Armed() {
		t.Error("session should survive a failed selection and retry")
	}

	// A pancake appears on the next frame; the retry succeeds.
	decision, err := d.ProcessFrame(frame, start.Add(47*time.Second))
	if err != nil {
		t.Fatalf("retry frame: %v", err)
	}
	if decision == nil {
		t.Fatal("expected decision on retry")
	}
}

func TestDetector_InvalidDepthRetriesNextFrame(t *testing.T) {
	d := newTestDetector(t, []RegionAnalysis{
		withCount(10),
		withCount(14),
		withCount(6),
		withCount(6),
	})
	// No depth at the candidate pixel on the first attempt.
	emptyDepth := testFrame(t, image.Point{X: 700, Y: 410}, 0)
	goodDepth := testFrame(t, image.Point{X: 700, Y: 410}, 480)

	start := time.Now()
	d.Arm(start)
	for i := 0; i < 2; i++ {
		if _, err := d.ProcessFrame(emptyDepth, start.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	_, err := d.ProcessFrame(emptyDepth, start.Add(2*time.Second))
	if !errors.Is(err, ErrInvalidDepth) {
		t.Fatalf("got %v, want ErrInvalidDepth", err)
	}
	if !d.Armed() {
		t.Error("session should survive a bad depth sample")
	}

	decision, err := d.ProcessFrame(goodDepth, start.Add(3*time.Second))
	if err != nil {
		t.Fatalf("retry frame: %v", err)
	}
	if decision == nil || decision.Point.Z != 480 {
		t.Fatalf("decision = %+v, want point at 480mm", decision)
	}
}

func TestDetector_IdleIgnoresFrames(t *testing.T) {
	d := newTestDetector(t, []RegionAnalysis{withCount(10)})
	frame := testFrame(t, image.Point{X: 700, Y: 410}, 500)

	decision, err := d.ProcessFrame(frame, time.Now())
	if err != nil {
		t.Fatalf("idle frame: %v", err)
	}
	if decision != nil {
		t.Fatalf("idle detector produced a decision: %+v", decision)
	}
}
