package pancakevision

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"gocv.io/x/gocv"
)

// HullStat summarizes one convex hull found inside the region of interest.
type HullStat struct {
	Area     float64
	Centroid image.Point
}

// RegionAnalysis is the per-frame result of contour extraction inside a
// circular region: the raw contour count and the hulls sorted by area,
// largest first.
type RegionAnalysis struct {
	ContourCount int
	Hulls        []HullStat
}

// RegionAnalyzer extracts contours and convex hulls from a grayscale frame
// restricted to a circular region.
type RegionAnalyzer interface {
	Analyze(gray gocv.Mat, center image.Point, radius int) (RegionAnalysis, error)
}

type contourAnalyzer struct {
	cfg ContourConfig
}

// NewRegionAnalyzer returns the OpenCV-backed RegionAnalyzer.
func NewRegionAnalyzer(cfg ContourConfig) RegionAnalyzer {
	return &contourAnalyzer{cfg: cfg}
}

// Analyze thresholds the grayscale frame, masks it to the circular region,
// runs edge detection, and extracts contours and their convex hulls.
// Noisy edges fragment one physical pancake into several small contours;
// the hulls recombine them, which is why selection works on hulls.
func (a *contourAnalyzer) Analyze(gray gocv.Mat, center image.Point, radius int) (RegionAnalysis, error) {
	if gray.Empty() {
		return RegionAnalysis{}, ErrNoColorFrame
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, a.cfg.GrayThreshold, 255, gocv.ThresholdBinary)

	mask := gocv.NewMatWithSize(gray.Rows(), gray.Cols(), gocv.MatTypeCV8U)
	defer mask.Close()
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.Circle(&mask, center, radius, white, -1)

	masked := gocv.NewMat()
	defer masked.Close()
	gocv.BitwiseAnd(binary, mask, &masked)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(masked, &edges, a.cfg.CannyLow, a.cfg.CannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	analysis := RegionAnalysis{ContourCount: contours.Size()}
	for i := 0; i < contours.Size(); i++ {
		stat, err := hullStat(contours.At(i), gray.Rows(), gray.Cols())
		if err != nil {
			// Degenerate hull (collinear points); it cannot be the pancake.
			continue
		}
		analysis.Hulls = append(analysis.Hulls, stat)
	}

	sort.Slice(analysis.Hulls, func(i, j int) bool {
		return analysis.Hulls[i].Area > analysis.Hulls[j].Area
	})
	return analysis, nil
}

// hullStat computes the convex hull of one contour plus its area and
// centroid. The centroid comes from the first-order image moments of the
// filled hull: cx = m10/m00, cy = m01/m00, with m00 guarded so an empty
// hull fails instead of dividing by zero.
func hullStat(contour gocv.PointVector, rows, cols int) (HullStat, error) {
	hullMat := gocv.NewMat()
	defer hullMat.Close()
	gocv.ConvexHull(contour, &hullMat, true, true)

	hull := gocv.NewPointVectorFromMat(hullMat)
	defer hull.Close()
	if hull.Size() < 3 {
		return HullStat{}, fmt.Errorf("%w: degenerate hull (%d points)", ErrNoCandidateContour, hull.Size())
	}

	canvas := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8U)
	defer canvas.Close()
	fill := gocv.NewPointsVector()
	defer fill.Close()
	fill.Append(hull)
	gocv.FillPoly(&canvas, fill, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	m := gocv.Moments(canvas, true)
	m00 := m["m00"]
	if m00 <= 0 {
		return HullStat{}, fmt.Errorf("%w: zero-area hull", ErrNoCandidateContour)
	}
	return HullStat{
		Area:     gocv.ContourArea(hull),
		Centroid: image.Point{X: int(m["m10"] / m00), Y: int(m["m01"] / m00)},
	}, nil
}

// selectFlipCandidate picks the pancake hull at flip time. The largest hull
// inside the region is always the region boundary itself, so the pancake is
// the second largest by area. Fewer than two hulls means there is nothing
// on the griddle to flip.
func selectFlipCandidate(analysis RegionAnalysis) (HullStat, error) {
	if len(analysis.Hulls) < 2 {
		return HullStat{}, fmt.Errorf("%w: need 2 hulls for flip selection, found %d",
			ErrNoCandidateContour, len(analysis.Hulls))
	}
	return analysis.Hulls[1], nil
}

// selectLiftCandidate picks the pancake hull at lift time. The search is
// seeded on the pancake itself and the fixed region boundary is gone, so
// the pancake is the dominant shape: largest hull wins.
func selectLiftCandidate(analysis RegionAnalysis) (HullStat, error) {
	if len(analysis.Hulls) == 0 {
		return HullStat{}, fmt.Errorf("%w: no hulls in lift region", ErrNoCandidateContour)
	}
	return analysis.Hulls[0], nil
}
