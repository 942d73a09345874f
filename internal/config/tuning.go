package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Defaults returned by the Get* accessors when a field is unset.
const (
	DefaultMaxWindow             = 50.0
	DefaultPlantNoise            = 20.0
	DefaultMeasurementNoise      = 1.0
	DefaultInitialCovariance     = 1.0
	DefaultGateThreshold         = 9.21
	DefaultReferenceRangeDivisor = 1000.0
	DefaultSerialBaudRate        = 115200
)

// TuningConfig represents the root configuration for tracker tuning.
// Every field is optional; nil fields fall back to the defaults above.
type TuningConfig struct {
	// Batching
	MaxWindow *float64 `json:"max_window,omitempty"`

	// Filter params
	PlantNoise         *float64 `json:"plant_noise,omitempty"`
	MeasurementNoise   *float64 `json:"measurement_noise,omitempty"`
	InitialCovariance  *float64 `json:"initial_covariance,omitempty"`
	LegacyVelocitySign *bool    `json:"legacy_velocity_sign,omitempty"`

	// Gate params. gate_confidence, when set, takes precedence over
	// gate_threshold and is turned into a chi-square quantile.
	GateThreshold  *float64 `json:"gate_threshold,omitempty"`
	GateConfidence *float64 `json:"gate_confidence,omitempty"`
	GateEnabled    *bool    `json:"gate_enabled,omitempty"`

	// Adapters
	ReferenceRangeDivisor *float64 `json:"reference_range_divisor,omitempty"`
	SerialBaudRate        *int     `json:"serial_baud_rate,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		MaxWindow:             ptrFloat64(DefaultMaxWindow),
		PlantNoise:            ptrFloat64(DefaultPlantNoise),
		MeasurementNoise:      ptrFloat64(DefaultMeasurementNoise),
		InitialCovariance:     ptrFloat64(DefaultInitialCovariance),
		LegacyVelocitySign:    ptrBool(false),
		GateThreshold:         ptrFloat64(DefaultGateThreshold),
		GateEnabled:           ptrBool(true),
		ReferenceRangeDivisor: ptrFloat64(DefaultReferenceRangeDivisor),
		SerialBaudRate:        ptrInt(DefaultSerialBaudRate),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/tracking/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if err := nonNegative("max_window", c.MaxWindow); err != nil {
		return err
	}
	if err := nonNegative("plant_noise", c.PlantNoise); err != nil {
		return err
	}
	if err := nonNegative("measurement_noise", c.MeasurementNoise); err != nil {
		return err
	}
	if err := nonNegative("initial_covariance", c.InitialCovariance); err != nil {
		return err
	}

	if c.GateThreshold != nil {
		if v := *c.GateThreshold; math.IsNaN(v) || v <= 0 {
			return fmt.Errorf("gate_threshold must be positive, got %f", v)
		}
	}
	if c.GateConfidence != nil {
		if v := *c.GateConfidence; math.IsNaN(v) || v <= 0 || v >= 1 {
			return fmt.Errorf("gate_confidence must be between 0 and 1 (exclusive), got %f", v)
		}
	}

	if c.ReferenceRangeDivisor != nil {
		if v := *c.ReferenceRangeDivisor; math.IsNaN(v) || v == 0 {
			return fmt.Errorf("reference_range_divisor must be non-zero, got %f", v)
		}
	}
	if c.SerialBaudRate != nil && *c.SerialBaudRate <= 0 {
		return fmt.Errorf("serial_baud_rate must be positive, got %d", *c.SerialBaudRate)
	}

	return nil
}

func nonNegative(name string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return fmt.Errorf("%s must be a non-negative number, got %f", name, *v)
	}
	return nil
}

// GetMaxWindow returns the max_window value or the default.
func (c *TuningConfig) GetMaxWindow() float64 {
	if c.MaxWindow == nil {
		return DefaultMaxWindow
	}
	return *c.MaxWindow
}

// GetPlantNoise returns the plant_noise value or the default.
func (c *TuningConfig) GetPlantNoise() float64 {
	if c.PlantNoise == nil {
		return DefaultPlantNoise
	}
	return *c.PlantNoise
}

// GetMeasurementNoise returns the measurement_noise value or the default.
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return DefaultMeasurementNoise
	}
	return *c.MeasurementNoise
}

// GetInitialCovariance returns the initial_covariance value or the default.
func (c *TuningConfig) GetInitialCovariance() float64 {
	if c.InitialCovariance == nil {
		return DefaultInitialCovariance
	}
	return *c.InitialCovariance
}

// GetLegacyVelocitySign returns the legacy_velocity_sign value or the default.
func (c *TuningConfig) GetLegacyVelocitySign() bool {
	if c.LegacyVelocitySign == nil {
		return false // default: velocity along the direction of travel
	}
	return *c.LegacyVelocitySign
}

// GetGateThreshold returns the gate_threshold value or the default.
// It does not consult gate_confidence.
func (c *TuningConfig) GetGateThreshold() float64 {
	if c.GateThreshold == nil {
		return DefaultGateThreshold
	}
	return *c.GateThreshold
}

// GetGateConfidence returns the gate_confidence value and whether it is set.
func (c *TuningConfig) GetGateConfidence() (float64, bool) {
	if c.GateConfidence == nil {
		return 0, false
	}
	return *c.GateConfidence, true
}

// GetGateEnabled returns the gate_enabled value or the default.
func (c *TuningConfig) GetGateEnabled() bool {
	if c.GateEnabled == nil {
		return true
	}
	return *c.GateEnabled
}

// GetReferenceRangeDivisor returns the reference_range_divisor value or the default.
func (c *TuningConfig) GetReferenceRangeDivisor() float64 {
	if c.ReferenceRangeDivisor == nil {
		return DefaultReferenceRangeDivisor
	}
	return *c.ReferenceRangeDivisor
}

// GetSerialBaudRate returns the serial_baud_rate value or the default.
func (c *TuningConfig) GetSerialBaudRate() int {
	if c.SerialBaudRate == nil {
		return DefaultSerialBaudRate
	}
	return *c.SerialBaudRate
}
