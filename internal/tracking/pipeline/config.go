package pipeline

import (
	"fmt"
	"math"

	"github.com/banshee-data/radartrack/internal/config"
	"github.com/banshee-data/radartrack/internal/tracking/batch"
	"github.com/banshee-data/radartrack/internal/tracking/kalman"
)

// Config controls one tracking run.
type Config struct {
	MaxWindow float64 // Group window, in measurement time units
	Filter    kalman.Config
}

// DefaultConfig returns the production pipeline configuration.
func DefaultConfig() Config {
	return Config{
		MaxWindow: batch.DefaultMaxWindow,
		Filter:    kalman.DefaultConfig(),
	}
}

// ConfigFromTuning builds a Config from a tuning file. A nil tuning config
// yields DefaultConfig. When gate_confidence is set it replaces
// gate_threshold with the chi-square quantile for three degrees of freedom.
func ConfigFromTuning(tc *config.TuningConfig) Config {
	if tc == nil {
		return DefaultConfig()
	}

	threshold := tc.GetGateThreshold()
	if c, ok := tc.GetGateConfidence(); ok {
		threshold = kalman.GateThresholdFor(c, kalman.MeasDim)
	}

	return Config{
		MaxWindow: tc.GetMaxWindow(),
		Filter: kalman.Config{
			PlantNoise:         tc.GetPlantNoise(),
			MeasurementNoise:   tc.GetMeasurementNoise(),
			InitialCovariance:  tc.GetInitialCovariance(),
			GateThreshold:      threshold,
			GateEnabled:        tc.GetGateEnabled(),
			LegacyVelocitySign: tc.GetLegacyVelocitySign(),
		},
	}
}

// Validate rejects windows the batcher cannot use.
func (c Config) Validate() error {
	if math.IsNaN(c.MaxWindow) || c.MaxWindow < 0 {
		return fmt.Errorf("max window must be non-negative, got %v", c.MaxWindow)
	}
	return nil
}
