package pancakevision

import "time"

// Config holds all configuration for the cook-readiness detection pipeline.
type Config struct {
	Region  RegionConfig
	Contour ContourConfig
	Session SessionConfig
}

// RegionConfig describes the fixed circular region of interest over the griddle.
// Center and radius are tied to the physical griddle mounting and are calibrated,
// not derived from input frames.
type RegionConfig struct {
	CenterX int // ROI center pixel X
	CenterY int // ROI center pixel Y
	Radius  int // ROI radius in pixels
}

// ContourConfig holds parameters for the per-frame contour extraction.
type ContourConfig struct {
	GrayThreshold float32 // Binary threshold applied to the grayscale frame
	CannyLow      float32 // Lower hysteresis bound for edge detection
	CannyHigh     float32 // Upper hysteresis bound for edge detection
}

// SessionConfig holds parameters for a single detection session (pour to flip).
type SessionConfig struct {
	GrowthRatio    float64       // Contour count must exceed baseline*GrowthRatio to mark growth
	SettleRatio    float64       // After growth, count below baseline*SettleRatio fires the organic trigger
	CookTimeBudget time.Duration // Hard ceiling on cook time before the timeout trigger fires
}

// DefaultConfig returns a Config with the calibrated griddle defaults.
func DefaultConfig() Config {
	return Config{
		Region: RegionConfig{
			CenterX: 727,
			CenterY: 394,
			Radius:  215,
		},
		Contour: ContourConfig{
			GrayThreshold: 115,
			CannyLow:      30,
			CannyHigh:     130,
		},
		Session: SessionConfig{
			GrowthRatio:    1.3,
			SettleRatio:    0.7,
			CookTimeBudget: 45 * time.Second,
		},
	}
}
