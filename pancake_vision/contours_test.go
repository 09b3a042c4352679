package pancakevision

import (
	"errors"
	"image"
	"testing"
)

func hullsByArea(areas ...float64) RegionAnalysis {
	a := RegionAnalysis{ContourCount: len(areas)}
	for i, area := range areas {
		a.Hulls = append(a.Hulls, HullStat{Area: area, Centroid: image.Point{X: i, Y: i}})
	}
	return a
}

func TestSelectFlipCandidate_PicksSecondLargest(t *testing.T) {
	cases := [][]float64{
		{145000, 21000},
		{145000, 21000, 900, 450},
		{90000, 89999, 88000},
	}
	for _, areas := range cases {
		analysis := hullsByArea(areas...)
		got, err := selectFlipCandidate(analysis)
		if err != nil {
			t.Fatalf("hulls %v: %v", areas, err)
		}
		// Rank 1, never rank 0: the largest hull is the region boundary.
		if got.Area != areas[1] {
			t.Errorf("hulls %v: selected area %f, want %f", areas, got.Area, areas[1])
		}
	}
}

func TestSelectFlipCandidate_TooFewHulls(t *testing.T) {
	for _, analysis := range []RegionAnalysis{hullsByArea(), hullsByArea(145000)} {
		if _, err := selectFlipCandidate(analysis); !errors.Is(err, ErrNoCandidateContour) {
			t.Errorf("%d hulls: got %v, want ErrNoCandidateContour", len(analysis.Hulls), err)
		}
	}
}

func TestSelectLiftCandidate_PicksLargest(t *testing.T) {
	analysis := hullsByArea(34000, 1200, 800)
	got, err := selectLiftCandidate(analysis)
	if err != nil {
		t.Fatalf("selectLiftCandidate: %v", err)
	}
	if got.Area != 34000 {
		t.Errorf("selected area %f, want 34000", got.Area)
	}
}

func TestSelectLiftCandidate_Empty(t *testing.T) {
	if _, err := selectLiftCandidate(hullsByArea()); !errors.Is(err, ErrNoCandidateContour) {
		t.Errorf("got %v, want ErrNoCandidateContour", err)
	}
}
