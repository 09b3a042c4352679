package pancakevision

import (
	"errors"
	"image"
	"testing"

	"go.viam.com/rdk/rimage"
)

func TestFrameStore_SnapshotRequiresFrames(t *testing.T) {
	s := NewFrameStore()
	if _, err := s.Snapshot(); !errors.Is(err, ErrNoColorFrame) {
		t.Errorf("empty store: got %v, want ErrNoColorFrame", err)
	}
}

func TestFrameStore_IntrinsicsSetOnce(t *testing.T) {
	s := NewFrameStore()
	in := testIntrinsics()

	if err := s.SetIntrinsics(in); err != nil {
		t.Fatalf("first set: %v", err)
	}
	if !s.HasIntrinsics() {
		t.Fatal("HasIntrinsics = false after set")
	}

	// Same values again is a no-op.
	if err := s.SetIntrinsics(in); err != nil {
		t.Errorf("idempotent set: %v", err)
	}

	// Different values must be refused.
	other := in
	other.Fx = 610
	if err := s.SetIntrinsics(other); err == nil {
		t.Error("expected error replacing intrinsics with different values")
	}
}

func TestFrameStore_RejectsInvalidIntrinsics(t *testing.T) {
	s := NewFrameStore()
	if err := s.SetIntrinsics(Intrinsics{}); !errors.Is(err, ErrNoIntrinsics) {
		t.Errorf("got %v, want ErrNoIntrinsics", err)
	}
}

func TestFrame_DepthAt(t *testing.T) {
	dm := rimage.NewEmptyDepthMap(640, 480)
	dm.Set(100, 200, rimage.Depth(734))
	frame := Frame{Depth: dm, Intr: testIntrinsics()}

	d, err := frame.DepthAt(image.Point{X: 100, Y: 200})
	if err != nil {
		t.Fatalf("DepthAt: %v", err)
	}
	if d != 734 {
		t.Errorf("depth = %f, want 734", d)
	}

	// A zero sample is missing data, not a zero-distance point.
	if _, err := frame.DepthAt(image.Point{X: 5, Y: 5}); !errors.Is(err, ErrInvalidDepth) {
		t.Errorf("zero sample: got %v, want ErrInvalidDepth", err)
	}

	// Out-of-bounds pixels fail the same way.
	if _, err := frame.DepthAt(image.Point{X: 9999, Y: 5}); !errors.Is(err, ErrInvalidDepth) {
		t.Errorf("out of bounds: got %v, want ErrInvalidDepth", err)
	}

	// No depth frame at all.
	if _, err := (Frame{}).DepthAt(image.Point{X: 0, Y: 0}); !errors.Is(err, ErrNoDepthFrame) {
		t.Errorf("nil depth: got %v, want ErrNoDepthFrame", err)
	}
}
