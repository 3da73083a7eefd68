// Package config loads estimator tuning overlays from JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/attitude.report/internal/ekf"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the JSON overlay applied on top of ekf.DefaultParams.
// Every field is optional; the schema matches the /api/ekf/params endpoint
// so the same JSON serves startup configuration and runtime inspection.
type TuningConfig struct {
	// Sensor propagation delays, ms
	MinDelayMS      *int32 `json:"min_delay_ms,omitempty"`
	MagDelayMS      *int32 `json:"mag_delay_ms,omitempty"`
	BaroDelayMS     *int32 `json:"baro_delay_ms,omitempty"`
	GPSDelayMS      *int32 `json:"gps_delay_ms,omitempty"`
	AirspeedDelayMS *int32 `json:"airspeed_delay_ms,omitempty"`
	FlowDelayMS     *int32 `json:"flow_delay_ms,omitempty"`
	RangeDelayMS    *int32 `json:"range_delay_ms,omitempty"`
	EVDelayMS       *int32 `json:"ev_delay_ms,omitempty"`
	AuxVelDelayMS   *int32 `json:"auxvel_delay_ms,omitempty"`

	SensorIntervalMinMS *int32 `json:"sensor_interval_min_ms,omitempty"`

	FusionMode      *int32 `json:"fusion_mode,omitempty"`
	VDistSensorType *int32 `json:"vdist_sensor_type,omitempty"`

	FlowQualMin *uint8   `json:"flow_qual_min,omitempty"`
	FlowRateMax *float32 `json:"flow_rate_max,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and stay under the max file size. Fields omitted from
// the JSON keep their defaults, so partial overlays are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

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

// Validate checks that the configured values are usable.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*int32{
		"min_delay_ms":      c.MinDelayMS,
		"mag_delay_ms":      c.MagDelayMS,
		"baro_delay_ms":     c.BaroDelayMS,
		"gps_delay_ms":      c.GPSDelayMS,
		"airspeed_delay_ms": c.AirspeedDelayMS,
		"flow_delay_ms":     c.FlowDelayMS,
		"range_delay_ms":    c.RangeDelayMS,
		"ev_delay_ms":       c.EVDelayMS,
		"auxvel_delay_ms":   c.AuxVelDelayMS,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, *v)
		}
	}

	if c.SensorIntervalMinMS != nil && *c.SensorIntervalMinMS < 1 {
		return fmt.Errorf("sensor_interval_min_ms must be at least 1, got %d", *c.SensorIntervalMinMS)
	}

	if c.FlowRateMax != nil && *c.FlowRateMax <= 0 {
		return fmt.Errorf("flow_rate_max must be positive, got %f", *c.FlowRateMax)
	}

	if c.VDistSensorType != nil {
		switch *c.VDistSensorType {
		case ekf.VDistSensorBaro, ekf.VDistSensorGPS, ekf.VDistSensorRange, ekf.VDistSensorEV:
		default:
			return fmt.Errorf("vdist_sensor_type out of range: %d", *c.VDistSensorType)
		}
	}

	return nil
}

// ApplyTo overlays the set fields onto params.
func (c *TuningConfig) ApplyTo(params *ekf.Params) {
	if c.MinDelayMS != nil {
		params.MinDelayMS = *c.MinDelayMS
	}
	if c.MagDelayMS != nil {
		params.MagDelayMS = *c.MagDelayMS
	}
	if c.BaroDelayMS != nil {
		params.BaroDelayMS = *c.BaroDelayMS
	}
	if c.GPSDelayMS != nil {
		params.GPSDelayMS = *c.GPSDelayMS
	}
	if c.AirspeedDelayMS != nil {
		params.AirspeedDelayMS = *c.AirspeedDelayMS
	}
	if c.FlowDelayMS != nil {
		params.FlowDelayMS = *c.FlowDelayMS
	}
	if c.RangeDelayMS != nil {
		params.RangeDelayMS = *c.RangeDelayMS
	}
	if c.EVDelayMS != nil {
		params.EVDelayMS = *c.EVDelayMS
	}
	if c.AuxVelDelayMS != nil {
		params.AuxVelDelayMS = *c.AuxVelDelayMS
	}
	if c.SensorIntervalMinMS != nil {
		params.SensorIntervalMinMS = *c.SensorIntervalMinMS
	}
	if c.FusionMode != nil {
		params.FusionMode = *c.FusionMode
	}
	if c.VDistSensorType != nil {
		params.VDistSensorType = *c.VDistSensorType
	}
	if c.FlowQualMin != nil {
		params.FlowQualMin = *c.FlowQualMin
	}
	if c.FlowRateMax != nil {
		params.FlowRateMax = *c.FlowRateMax
	}
}

// Params returns ekf.DefaultParams with this overlay applied.
func (c *TuningConfig) Params() ekf.Params {
	params := ekf.DefaultParams()
	c.ApplyTo(&params)
	return params
}
