package pancakevision

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"go.viam.com/rdk/rimage"
)

// Frame is a read-only view of the latest camera state: the color-derived
// mats, the depth map, and the intrinsics in effect when it was captured.
// The mats reference FrameStore-owned memory and are valid until the next
// ingest; callers must not hold a Frame across ingest calls.
type Frame struct {
	RGB        gocv.Mat
	Gray       gocv.Mat
	HSV        gocv.Mat
	Depth      *rimage.DepthMap
	Intr       Intrinsics
	Generation uint64
	CapturedAt time.Time
}

// DepthAt returns the depth sample in millimeters at the given pixel.
// A zero sample means the sensor had no return there and fails with
// ErrInvalidDepth rather than reading as a zero-distance point.
func (f Frame) DepthAt(p image.Point) (float64, error) {
	if f.Depth == nil {
		return 0, ErrNoDepthFrame
	}
	if p.X < 0 || p.Y < 0 || p.X >= f.Depth.Width() || p.Y >= f.Depth.Height() {
		return 0, fmt.Errorf("%w: pixel (%d, %d) outside depth frame", ErrInvalidDepth, p.X, p.Y)
	}
	d := float64(f.Depth.GetDepth(p.X, p.Y))
	if d <= 0 {
		return 0, fmt.Errorf("%w: empty depth sample at (%d, %d)", ErrInvalidDepth, p.X, p.Y)
	}
	return d, nil
}

// FrameStore holds the most recent depth frame, the color frame and its
// grayscale/HSV derivatives, and the camera intrinsics. It is a pure state
// holder: each ingest replaces prior state wholesale, no history is kept.
// All methods are safe for concurrent use, though in practice a single
// vision goroutine both writes and reads.
type FrameStore struct {
	mu sync.Mutex

	rgb      gocv.Mat
	gray     gocv.Mat
	hsv      gocv.Mat
	hasColor bool

	depth *rimage.DepthMap

	intr          Intrinsics
	hasIntrinsics bool

	generation uint64
	capturedAt time.Time
}

// NewFrameStore returns an empty FrameStore.
func NewFrameStore() *FrameStore {
	return &FrameStore{}
}

// IngestColor decodes a color image and replaces the stored RGB, grayscale,
// and HSV mats. Decode failures are reported as ErrBadFrameDecode so the
// caller can skip the frame without tearing down the pipeline.
func (s *FrameStore) IngestColor(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil color image", ErrBadFrameDecode)
	}
	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadFrameDecode, err)
	}
	gray := gocv.NewMat()
	gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)
	hsv := gocv.NewMat()
	gocv.CvtColor(rgb, &hsv, gocv.ColorRGBToHSV)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeColorLocked()
	s.rgb = rgb
	s.gray = gray
	s.hsv = hsv
	s.hasColor = true
	s.generation++
	s.capturedAt = time.Now()
	return nil
}

// IngestDepth decodes a depth image and replaces the stored depth map.
func (s *FrameStore) IngestDepth(ctx context.Context, img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil depth image", ErrBadFrameDecode)
	}
	dm, err := rimage.ConvertImageToDepthMap(ctx, img)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadFrameDecode, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depth = dm
	return nil
}

// SetIntrinsics records the camera intrinsics. They are set once per camera
// and immutable thereafter; later calls with identical values are no-ops.
func (s *FrameStore) SetIntrinsics(in Intrinsics) error {
	if err := in.CheckValid(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasIntrinsics {
		if s.intr != in {
			return fmt.Errorf("intrinsics already set (%dx%d); refusing to replace", s.intr.Width, s.intr.Height)
		}
		return nil
	}
	s.intr = in
	s.hasIntrinsics = true
	return nil
}

// HasIntrinsics reports whether intrinsics have been recorded.
func (s *FrameStore) HasIntrinsics() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasIntrinsics
}

// Snapshot returns a Frame view of the current state. It fails if any of
// the color frame, depth frame, or intrinsics are still missing.
func (s *FrameStore) Snapshot() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasColor {
		return Frame{}, ErrNoColorFrame
	}
	if s.depth == nil {
		return Frame{}, ErrNoDepthFrame
	}
	if !s.hasIntrinsics {
		return Frame{}, ErrNoIntrinsics
	}
	return Frame{
		RGB:        s.rgb,
		Gray:       s.gray,
		HSV:        s.hsv,
		Depth:      s.depth,
		Intr:       s.intr,
		Generation: s.generation,
		CapturedAt: s.capturedAt,
	}, nil
}

// Close releases the stored mats.
func (s *FrameStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeColorLocked()
	s.depth = nil
}

func (s *FrameStore) closeColorLocked() {
	if !s.hasColor {
		return
	}
	s.rgb.Close()
	s.gray.Close()
	s.hsv.Close()
	s.hasColor = false
}
