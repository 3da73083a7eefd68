package ekf

import "github.com/banshee-data/attitude.report/internal/geo"

// IMUCollector down-samples the raw IMU stream to the filter prediction rate.
// Collect accumulates the given sample and, when a down-sampled sample is
// ready, replaces *imu with it and returns true.
type IMUCollector interface {
	Collect(imu *IMUSample) bool
}

// GPSCollector decides whether the WGS-84 origin reference is usable for
// projecting a fix into local NE coordinates, latching it when appropriate.
type GPSCollector interface {
	Collect(ref *geo.Reference, timeUS uint64, gps *GpsMessage) bool
}

// VehicleStatus is the outer control-state view consulted by the optical
// flow conditioner. On ground, degraded flow samples are still admitted so
// the filter keeps running through handling and takeoff.
type VehicleStatus interface {
	InAir() bool
}

// GroundedStatus is the default VehicleStatus: always on ground.
type GroundedStatus struct{}

func (GroundedStatus) InAir() bool { return false }

// DownsampleCollector is the default IMUCollector. It sums angular and
// velocity increments until the accumulated integration time spans the filter
// update period, then emits the summed sample stamped with the newest input
// time.
type DownsampleCollector struct {
	targetDT float32
	acc      IMUSample
	ticks    int
}

// NewDownsampleCollector builds a collector targeting targetDT seconds per
// down-sampled output. Pass FilterUpdatePeriodMS * 1e-3 for the stock rate.
func NewDownsampleCollector(targetDT float32) *DownsampleCollector {
	return &DownsampleCollector{targetDT: targetDT}
}

func (c *DownsampleCollector) Collect(imu *IMUSample) bool {
	for i := 0; i < 3; i++ {
		c.acc.DeltaAng[i] += imu.DeltaAng[i]
		c.acc.DeltaVel[i] += imu.DeltaVel[i]
	}
	c.acc.DeltaAngDT += imu.DeltaAngDT
	c.acc.DeltaVelDT += imu.DeltaVelDT
	c.acc.TimeUS = imu.TimeUS
	c.ticks++

	// Emit half an input interval early rather than overshooting the target
	// period by a whole sample.
	margin := float32(0)
	if c.ticks > 0 {
		margin = 0.5 * c.acc.DeltaAngDT / float32(c.ticks)
	}
	if c.acc.DeltaAngDT < c.targetDT-margin {
		return false
	}

	*imu = c.acc
	c.acc = IMUSample{}
	c.ticks = 0
	return true
}

// PassthroughCollector emits every raw sample unchanged. Used by replay
// tooling and tests that want buffer pushes on every call.
type PassthroughCollector struct{}

func (PassthroughCollector) Collect(*IMUSample) bool { return true }

// OriginCollector is the default GPSCollector. It latches the origin
// reference on the first sufficiently accurate 3D fix and reports whether
// the origin is set.
type OriginCollector struct {
	// Accuracy gates a fix must pass before it may seed the origin.
	MaxEPH float32
	MaxEPV float32
}

// NewOriginCollector returns an OriginCollector with the stock accuracy gates.
func NewOriginCollector() *OriginCollector {
	return &OriginCollector{MaxEPH: 5, MaxEPV: 8}
}

func (c *OriginCollector) Collect(ref *geo.Reference, _ uint64, gps *GpsMessage) bool {
	if !ref.IsSet() && gps.FixType > 2 && gps.EPH < c.MaxEPH && gps.EPV < c.MaxEPV {
		ref.Init(float64(gps.Lat)*1e-7, float64(gps.Lon)*1e-7)
	}
	return ref.IsSet()
}
