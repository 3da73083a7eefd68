package ekf

import "github.com/banshee-data/attitude.report/internal/monitoring"

// Buffer accessors for the filter core. The facade retains ownership; callers
// must not allocate or unallocate through these.

func (e *Estimator) IMUBuffer() *RingBuffer[IMUSample] { return &e.imuBuffer }

func (e *Estimator) MagBuffer() *RingBuffer[MagSample] { return &e.magBuffer }

func (e *Estimator) GPSBuffer() *RingBuffer[GPSSample] { return &e.gpsBuffer }

func (e *Estimator) BaroBuffer() *RingBuffer[BaroSample] { return &e.baroBuffer }

func (e *Estimator) RangeBuffer() *RingBuffer[RangeSample] { return &e.rangeBuffer }

func (e *Estimator) AirspeedBuffer() *RingBuffer[AirspeedSample] { return &e.airspeedBuffer }

func (e *Estimator) FlowBuffer() *RingBuffer[FlowSample] { return &e.flowBuffer }

func (e *Estimator) ExtVisionBuffer() *RingBuffer[ExtVisionSample] { return &e.extVisionBuffer }

func (e *Estimator) AuxVelBuffer() *RingBuffer[AuxVelSample] { return &e.auxVelBuffer }

func (e *Estimator) DragBuffer() *RingBuffer[DragSample] { return &e.dragBuffer }

func (e *Estimator) OutputBuffer() *RingBuffer[OutputSample] { return &e.outputBuffer }

func (e *Estimator) OutputVertBuffer() *RingBuffer[OutputVertSample] {
	return &e.outputVertBuffer
}

// IMUSampleDelayed returns the IMU reading at the fusion time horizon (the
// oldest retained IMU sample).
func (e *Estimator) IMUSampleDelayed() IMUSample { return e.imuSampleDelayed }

// IMUUpdated reports whether the last SetIMUData call pushed a down-sampled
// sample.
func (e *Estimator) IMUUpdated() bool { return e.imuUpdated }

// DtIMUAvg returns the smoothed raw IMU sampling interval in seconds.
func (e *Estimator) DtIMUAvg() float32 { return e.dtIMUAvg }

// MinObsIntervalUS returns the current per-sensor minimum arrival spacing.
func (e *Estimator) MinObsIntervalUS() uint64 { return e.minObsIntervalUS }

// VibrationMetrics returns the coning, gyro HF and accel HF metrics.
func (e *Estimator) VibrationMetrics() [3]float32 { return e.vibe.Values() }

// GPSSpeedValid mirrors the velocity validity flag from the last accepted fix.
func (e *Estimator) GPSSpeedValid() bool { return e.gpsSpeedValid }

// OriginSet reports whether the WGS-84 origin reference has been latched.
func (e *Estimator) OriginSet() bool { return e.posRef.IsSet() }

// Origin returns the latched WGS-84 origin in degrees, zero when unset.
func (e *Estimator) Origin() (latDeg, lonDeg float64) { return e.posRef.Origin() }

// LocalPositionIsValid reports whether the local position estimate is usable:
// true while the filter is not doing unconstrained free inertial navigation.
func (e *Estimator) LocalPositionIsValid() bool {
	return !e.deadReckonTimeExceeded
}

// GlobalPositionIsValid reports whether the global position estimate is
// usable: an origin must be set and dead reckoning must be constrained.
func (e *Estimator) GlobalPositionIsValid() bool {
	return e.posRef.IsSet() && !e.deadReckonTimeExceeded
}

// Status returns a snapshot for the HTTP surface and the flight recorder.
func (e *Estimator) Status() Status {
	return Status{
		Initialised:      e.initialised,
		IMUBufferLength:  e.imuBufferLength,
		ObsBufferLength:  e.obsBufferLength,
		MinObsIntervalUS: e.minObsIntervalUS,
		DtIMUAvg:         e.dtIMUAvg,
		TimeLastIMUUS:    e.timeLastIMU,
		Vibe:             e.vibe.Values(),
		Counters:         e.counters,
		OriginSet:        e.posRef.IsSet(),
		GPSSpeedValid:    e.gpsSpeedValid,
	}
}

// Counters returns the per-sensor acceptance counters.
func (e *Estimator) Counters() Counters { return e.counters }

// Params returns a copy of the active tuning.
func (e *Estimator) Params() Params { return e.params }

// PrintStatus dumps buffer occupancy and validity through the monitoring log.
func (e *Estimator) PrintStatus() {
	yesNo := func(v bool) string {
		if v {
			return "yes"
		}
		return "no"
	}
	monitoring.Logf("local position valid: %s", yesNo(e.LocalPositionIsValid()))
	monitoring.Logf("global position valid: %s", yesNo(e.GlobalPositionIsValid()))

	monitoring.Logf("imu buffer: %d (%d Bytes)", e.imuBuffer.GetLength(), e.imuBuffer.GetTotalSize())
	monitoring.Logf("gps buffer: %d (%d Bytes)", e.gpsBuffer.GetLength(), e.gpsBuffer.GetTotalSize())
	monitoring.Logf("mag buffer: %d (%d Bytes)", e.magBuffer.GetLength(), e.magBuffer.GetTotalSize())
	monitoring.Logf("baro buffer: %d (%d Bytes)", e.baroBuffer.GetLength(), e.baroBuffer.GetTotalSize())
	monitoring.Logf("range buffer: %d (%d Bytes)", e.rangeBuffer.GetLength(), e.rangeBuffer.GetTotalSize())
	monitoring.Logf("airspeed buffer: %d (%d Bytes)", e.airspeedBuffer.GetLength(), e.airspeedBuffer.GetTotalSize())
	monitoring.Logf("flow buffer: %d (%d Bytes)", e.flowBuffer.GetLength(), e.flowBuffer.GetTotalSize())
	monitoring.Logf("ext vision buffer: %d (%d Bytes)", e.extVisionBuffer.GetLength(), e.extVisionBuffer.GetTotalSize())
	monitoring.Logf("output buffer: %d (%d Bytes)", e.outputBuffer.GetLength(), e.outputBuffer.GetTotalSize())
	monitoring.Logf("output vert buffer: %d (%d Bytes)", e.outputVertBuffer.GetLength(), e.outputVertBuffer.GetTotalSize())
	monitoring.Logf("drag buffer: %d (%d Bytes)", e.dragBuffer.GetLength(), e.dragBuffer.GetTotalSize())
}
