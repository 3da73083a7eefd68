package ekf

// FilterUpdatePeriodMS is the nominal EKF prediction step in milliseconds.
// Buffer sizing and observation back-dating are derived from it.
const FilterUpdatePeriodMS = 12

// filterUpdateHalfUS centres observations on the middle of the filter update
// interval when back-dating their timestamps.
const filterUpdateHalfUS = FilterUpdatePeriodMS * 1000 / 2

// Fusion mode mask bits for Params.FusionMode.
const (
	MaskUseGPS   = 1 << 0 // fuse GPS position and velocity
	MaskUseFlow  = 1 << 1 // fuse optical flow
	MaskUseEVPos = 1 << 3 // fuse external vision position
	MaskUseEVYaw = 1 << 4 // fuse external vision yaw
	MaskUseDrag  = 1 << 5 // fuse body drag specific force
)

// Primary source of height data for Params.VDistSensorType.
const (
	VDistSensorBaro = iota
	VDistSensorGPS
	VDistSensorRange
	VDistSensorEV
)

// Params holds the per-sensor delay, gating and fusion-mode configuration.
// Delays are the measured propagation time from the physical event to the
// driver callback; observation timestamps are back-dated by them. Params is
// read-only during intake; tuning updates must be applied while the
// estimator task is quiescent.
type Params struct {
	// Delays relative to IMU, ms
	MinDelayMS      int32
	MagDelayMS      int32
	BaroDelayMS     int32
	GPSDelayMS      int32
	AirspeedDelayMS int32
	FlowDelayMS     int32
	RangeDelayMS    int32
	EVDelayMS       int32
	AuxVelDelayMS   int32

	// Minimum expected interval between observations, ms. Sizes the
	// observation buffers together with the worst-case delay.
	SensorIntervalMinMS int32

	FusionMode      int32 // bitmask of MaskUse*
	VDistSensorType int32 // VDistSensor*

	// Optical flow gates
	FlowQualMin uint8   // minimum acceptable quality score
	FlowRateMax float32 // maximum acceptable flow rate, rad/s
}

// DefaultParams returns the stock tuning for a small multirotor.
func DefaultParams() Params {
	return Params{
		MinDelayMS:          0,
		MagDelayMS:          20,
		BaroDelayMS:         0,
		GPSDelayMS:          110,
		AirspeedDelayMS:     100,
		FlowDelayMS:         5,
		RangeDelayMS:        5,
		EVDelayMS:           175,
		AuxVelDelayMS:       0,
		SensorIntervalMinMS: 20,
		FusionMode:          MaskUseGPS,
		VDistSensorType:     VDistSensorBaro,
		FlowQualMin:         1,
		FlowRateMax:         2.5,
	}
}

// maxTimeDelayMS returns the largest configured sensor delay; buffers are
// sized so a sample older than this can still meet its IMU neighbour.
func (p *Params) maxTimeDelayMS() int32 {
	m := p.MinDelayMS
	for _, d := range []int32{
		p.MagDelayMS, p.RangeDelayMS, p.GPSDelayMS, p.FlowDelayMS,
		p.EVDelayMS, p.AuxVelDelayMS, p.AirspeedDelayMS, p.BaroDelayMS,
	} {
		if d > m {
			m = d
		}
	}
	return m
}
