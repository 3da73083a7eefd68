package ekf

import (
	"github.com/banshee-data/attitude.report/internal/geo"
	"github.com/banshee-data/attitude.report/internal/monitoring"
)

// Counters tracks how many samples each intake has accepted and pushed since
// initialisation. Rate-limited and gated drops are not counted.
type Counters struct {
	IMU      uint64 `json:"imu"`
	Mag      uint64 `json:"mag"`
	GPS      uint64 `json:"gps"`
	Baro     uint64 `json:"baro"`
	Range    uint64 `json:"range"`
	Airspeed uint64 `json:"airspeed"`
	Flow     uint64 `json:"flow"`
	EV       uint64 `json:"ext_vision"`
	AuxVel   uint64 `json:"aux_vel"`
	Drag     uint64 `json:"drag"`
}

// Status is a point-in-time snapshot of the facade for the HTTP surface and
// the flight recorder.
type Status struct {
	Initialised      bool       `json:"initialised"`
	IMUBufferLength  int        `json:"imu_buffer_length"`
	ObsBufferLength  int        `json:"obs_buffer_length"`
	MinObsIntervalUS uint64     `json:"min_obs_interval_us"`
	DtIMUAvg         float32    `json:"dt_imu_avg"`
	TimeLastIMUUS    uint64     `json:"time_last_imu_us"`
	Vibe             [3]float32 `json:"vibration_metrics"`
	Counters         Counters   `json:"counters"`
	OriginSet        bool       `json:"origin_set"`
	GPSSpeedValid    bool       `json:"gps_speed_valid"`
}

// Estimator is the sensor ingestion facade. It exclusively owns the sample
// buffers; the filter core reads them through the accessor methods. All
// intake runs on a single estimator task, so there is no internal locking.
// Drivers on other contexts must hand samples over via their own queues.
type Estimator struct {
	params Params

	initialised bool

	imuBuffer        RingBuffer[IMUSample]
	outputBuffer     RingBuffer[OutputSample]
	outputVertBuffer RingBuffer[OutputVertSample]
	gpsBuffer        RingBuffer[GPSSample]
	magBuffer        RingBuffer[MagSample]
	baroBuffer       RingBuffer[BaroSample]
	rangeBuffer      RingBuffer[RangeSample]
	airspeedBuffer   RingBuffer[AirspeedSample]
	flowBuffer       RingBuffer[FlowSample]
	extVisionBuffer  RingBuffer[ExtVisionSample]
	auxVelBuffer     RingBuffer[AuxVelSample]
	dragBuffer       RingBuffer[DragSample]

	imuBufferLength  int
	obsBufferLength  int
	minObsIntervalUS uint64

	dtIMUAvg         float32
	imuSampleDelayed IMUSample
	imuUpdated       bool

	vibe VibrationMetrics
	drag DragDownsampler

	timeLastIMU       uint64
	timeLastMag       uint64
	timeLastGPS       uint64
	timeLastBaro      uint64
	timeLastRange     uint64
	timeLastAirspeed  uint64
	timeLastOptFlow   uint64
	timeLastExtVision uint64
	timeLastAuxVel    uint64

	magBufferFail      bool
	gpsBufferFail      bool
	baroBufferFail     bool
	rangeBufferFail    bool
	airspeedBufferFail bool
	flowBufferFail     bool
	evBufferFail       bool
	auxVelBufferFail   bool
	dragBufferFail     bool

	gpsSpeedValid          bool
	faultStatus            uint32
	deadReckonTimeExceeded bool

	posRef geo.Reference

	counters Counters

	imuCollector IMUCollector
	gpsCollector GPSCollector
	status       VehicleStatus
}

// NewEstimator builds a facade with the default collectors and a grounded
// vehicle status. Buffers stay unallocated until the first IMU sample
// triggers initialisation (or InitialiseInterface is called directly).
func NewEstimator(params Params) *Estimator {
	return &Estimator{
		params:       params,
		imuCollector: NewDownsampleCollector(float32(FilterUpdatePeriodMS) * 1e-3),
		gpsCollector: NewOriginCollector(),
		status:       GroundedStatus{},
	}
}

// SetIMUCollector replaces the IMU down-sampler. Must be called before the
// first sample arrives.
func (e *Estimator) SetIMUCollector(c IMUCollector) { e.imuCollector = c }

// SetGPSCollector replaces the origin-latching policy.
func (e *Estimator) SetGPSCollector(c GPSCollector) { e.gpsCollector = c }

// SetVehicleStatus injects the outer control-state view.
func (e *Estimator) SetVehicleStatus(s VehicleStatus) { e.status = s }

// SetDeadReckoningExceeded is called by the filter core when inertial
// navigation has run unconstrained for too long.
func (e *Estimator) SetDeadReckoningExceeded(v bool) { e.deadReckonTimeExceeded = v }

// InitialiseInterface sizes and allocates the IMU and output buffers from the
// delay parameters. Per-sensor observation buffers are deferred to first use
// so unused sensors cost no memory. Returns false and unallocates everything
// when the core allocation fails; buffer capacities are fixed afterwards.
func (e *Estimator) InitialiseInterface(timestamp uint64) bool {
	maxTimeDelayMS := e.params.maxTimeDelayMS()

	// IMU buffer length to accommodate the maximum delay with allowance for jitter
	e.imuBufferLength = int(maxTimeDelayMS/FilterUpdatePeriodMS) + 1

	// worst case 50% extension of the fusion horizon delay due to timing jitter
	ekfDelayMS := maxTimeDelayMS + (maxTimeDelayMS+1)/2
	e.obsBufferLength = int(ekfDelayMS/e.params.SensorIntervalMinMS) + 1

	// no point processing observations faster than the prediction rate
	if e.obsBufferLength > e.imuBufferLength {
		e.obsBufferLength = e.imuBufferLength
	}

	if !(e.imuBuffer.Allocate(e.imuBufferLength) &&
		e.outputBuffer.Allocate(e.imuBufferLength) &&
		e.outputVertBuffer.Allocate(e.imuBufferLength)) {
		monitoring.Errorf("EKF buffer allocation failed!")
		e.UnallocateBuffers()
		return false
	}

	e.drag.SetRatio(e.imuBufferLength, e.obsBufferLength)
	e.drag.Reset()

	e.dtIMUAvg = 0
	e.imuSampleDelayed = IMUSample{TimeUS: timestamp}
	e.imuUpdated = false
	e.vibe.Reset()
	e.counters = Counters{}

	e.initialised = false

	e.timeLastIMU = 0
	e.timeLastGPS = 0
	e.timeLastMag = 0
	e.timeLastBaro = 0
	e.timeLastRange = 0
	e.timeLastAirspeed = 0
	e.timeLastOptFlow = 0
	e.timeLastExtVision = 0
	e.timeLastAuxVel = 0
	e.faultStatus = 0
	return true
}

// UnallocateBuffers releases every buffer.
func (e *Estimator) UnallocateBuffers() {
	e.imuBuffer.Unallocate()
	e.gpsBuffer.Unallocate()
	e.magBuffer.Unallocate()
	e.baroBuffer.Unallocate()
	e.rangeBuffer.Unallocate()
	e.airspeedBuffer.Unallocate()
	e.flowBuffer.Unallocate()
	e.extVisionBuffer.Unallocate()
	e.outputBuffer.Unallocate()
	e.outputVertBuffer.Unallocate()
	e.dragBuffer.Unallocate()
	e.auxVelBuffer.Unallocate()
}

// ensureObsBuffer lazily allocates a per-sensor observation buffer, latching
// the failure flag permanently when allocation fails. Failed sensors stay
// disabled until the interface is re-initialised.
func ensureObsBuffer[T Sample](e *Estimator, buf *RingBuffer[T], failed *bool, name string) bool {
	if buf.GetLength() > 0 && buf.GetLength() >= e.obsBufferLength {
		return true
	}
	if !buf.Allocate(e.obsBufferLength) {
		*failed = true
		monitoring.Errorf("EKF %s buffer allocation failed", name)
		return false
	}
	return true
}

// SetIMUData accumulates raw IMU data, updates the vibration metrics and,
// when the down-sampler emits, pushes to the IMU buffer and refreshes the
// delayed sample and the minimum observation interval. The first call
// initialises the interface.
func (e *Estimator) SetIMUData(timeUS, deltaAngDTus, deltaVelDTus uint64, deltaAng, deltaVel [3]float32) {
	if !e.initialised {
		e.InitialiseInterface(timeUS)
		e.initialised = true
	}

	dt := constrain(float32(timeUS-e.timeLastIMU)/1e6, 1e-4, 0.02)
	e.timeLastIMU = timeUS

	if e.timeLastIMU > 0 {
		e.dtIMUAvg = 0.8*e.dtIMUAvg + 0.2*dt
	}

	sample := IMUSample{
		TimeUS:     timeUS,
		DeltaAng:   deltaAng,
		DeltaVel:   deltaVel,
		DeltaAngDT: float32(deltaAngDTus) * 1e-6,
		DeltaVelDT: float32(deltaVelDTus) * 1e-6,
	}

	// vibration metrics run on the raw stream, before down-sampling
	e.vibe.Update(deltaAng, deltaVel)

	if !e.imuCollector.Collect(&sample) {
		e.imuUpdated = false
		return
	}

	e.imuBuffer.Push(sample)
	e.imuUpdated = true
	e.counters.IMU++

	e.imuSampleDelayed = e.imuBuffer.GetOldest()

	// the minimum observation spacing that guarantees a sample is not
	// overwritten before its stamp falls behind the fusion horizon
	if e.obsBufferLength > 1 {
		newest := e.imuBuffer.GetNewest()
		e.minObsIntervalUS = (newest.TimeUS - e.imuSampleDelayed.TimeUS) / uint64(e.obsBufferLength-1)
	}

	if e.params.FusionMode&MaskUseDrag != 0 && !e.dragBufferFail {
		if !ensureObsBuffer(e, &e.dragBuffer, &e.dragBufferFail, "drag") {
			return
		}
		if drag, ok := e.drag.Add(sample); ok {
			e.dragBuffer.Push(drag)
			e.counters.Drag++
		}
	}
}

// SetMagData queues a magnetometer sample, back-dated by the mag delay and
// half the filter update period.
func (e *Estimator) SetMagData(timeUS uint64, mag [3]float32) {
	if !e.initialised || e.magBufferFail {
		return
	}
	if !ensureObsBuffer(e, &e.magBuffer, &e.magBufferFail, "mag") {
		return
	}

	if timeUS-e.timeLastMag > e.minObsIntervalUS {
		e.timeLastMag = timeUS
		e.magBuffer.Push(MagSample{
			TimeUS: timeUS - uint64(e.params.MagDelayMS)*1000 - filterUpdateHalfUS,
			Mag:    mag,
		})
		e.counters.Mag++
	}
}

// SetGpsData queues a GPS sample. Fixes are ignored unless GPS fusion or GPS
// height is requested and the receiver reports a 3D fix. The NE position is
// projected against the origin reference once the collector confirms the
// origin is set; until then position reads (0, 0) but the sample is still
// queued for velocity and height.
func (e *Estimator) SetGpsData(timeUS uint64, gps *GpsMessage) {
	if !e.initialised || e.gpsBufferFail {
		return
	}
	if !ensureObsBuffer(e, &e.gpsBuffer, &e.gpsBufferFail, "GPS") {
		return
	}

	needGPS := e.params.FusionMode&MaskUseGPS != 0 || e.params.VDistSensorType == VDistSensorGPS
	if timeUS-e.timeLastGPS <= e.minObsIntervalUS || !needGPS || gps.FixType <= 2 {
		return
	}

	sample := GPSSample{
		TimeUS: gps.TimeUS - uint64(e.params.GPSDelayMS)*1000 - filterUpdateHalfUS,
	}
	e.timeLastGPS = timeUS

	if sample.TimeUS < e.imuSampleDelayed.TimeUS {
		sample.TimeUS = e.imuSampleDelayed.TimeUS
	}

	sample.Vel = gps.VelNED
	e.gpsSpeedValid = gps.VelNEDValid
	sample.SAcc = gps.SAcc
	sample.HAcc = gps.EPH
	sample.VAcc = gps.EPV
	sample.Hgt = float32(gps.Alt) * 1e-3

	// only compute the relative position once the WGS-84 origin is set
	if e.gpsCollector.Collect(&e.posRef, timeUS, gps) {
		north, east := e.posRef.Project(float64(gps.Lat)*1e-7, float64(gps.Lon)*1e-7)
		sample.Pos[0] = north
		sample.Pos[1] = east
	}

	e.gpsBuffer.Push(sample)
	e.counters.GPS++
}

// SetBaroData queues a barometric height sample.
func (e *Estimator) SetBaroData(timeUS uint64, hgt float32) {
	if !e.initialised || e.baroBufferFail {
		return
	}
	if !ensureObsBuffer(e, &e.baroBuffer, &e.baroBufferFail, "baro") {
		return
	}

	if timeUS-e.timeLastBaro > e.minObsIntervalUS {
		sample := BaroSample{
			TimeUS: timeUS - uint64(e.params.BaroDelayMS)*1000 - filterUpdateHalfUS,
			Hgt:    hgt,
		}
		e.timeLastBaro = timeUS

		if sample.TimeUS < e.imuSampleDelayed.TimeUS {
			sample.TimeUS = e.imuSampleDelayed.TimeUS
		}

		e.baroBuffer.Push(sample)
		e.counters.Baro++
	}
}

// SetAirspeedData queues a true airspeed sample.
func (e *Estimator) SetAirspeedData(timeUS uint64, trueAirspeed, eas2tas float32) {
	if !e.initialised || e.airspeedBufferFail {
		return
	}
	if !ensureObsBuffer(e, &e.airspeedBuffer, &e.airspeedBufferFail, "airspeed") {
		return
	}

	if timeUS-e.timeLastAirspeed > e.minObsIntervalUS {
		e.timeLastAirspeed = timeUS
		e.airspeedBuffer.Push(AirspeedSample{
			TimeUS:       timeUS - uint64(e.params.AirspeedDelayMS)*1000 - filterUpdateHalfUS,
			TrueAirspeed: trueAirspeed,
			EAS2TAS:      eas2tas,
		})
		e.counters.Airspeed++
	}
}

// SetRangeData queues a range finder sample. Range back-dates by the sensor
// delay only, without the half-update-period centring the other sensors
// apply; long-standing behaviour the downstream tuning depends on.
func (e *Estimator) SetRangeData(timeUS uint64, rng float32) {
	if !e.initialised || e.rangeBufferFail {
		return
	}
	if !ensureObsBuffer(e, &e.rangeBuffer, &e.rangeBufferFail, "range finder") {
		return
	}

	if timeUS-e.timeLastRange > e.minObsIntervalUS {
		e.timeLastRange = timeUS
		e.rangeBuffer.Push(RangeSample{
			TimeUS: timeUS - uint64(e.params.RangeDelayMS)*1000,
			Rng:    rng,
		})
		e.counters.Range++
	}
}

// SetOpticalFlowData validates, gyro-compensates and queues an optical flow
// sample. See flow.go for the conditioning rules.
func (e *Estimator) SetOpticalFlowData(timeUS uint64, flow *FlowMessage) {
	if !e.initialised || e.flowBufferFail {
		return
	}
	if !ensureObsBuffer(e, &e.flowBuffer, &e.flowBufferFail, "optical flow") {
		return
	}

	if timeUS-e.timeLastOptFlow > e.minObsIntervalUS {
		sample, ok := e.conditionFlow(timeUS, flow)
		if !ok {
			return
		}
		e.timeLastOptFlow = timeUS
		e.flowBuffer.Push(sample)
		e.counters.Flow++
	}
}

// SetExtVisionData queues an external vision sample, back-dated by the vision
// delay only.
func (e *Estimator) SetExtVisionData(timeUS uint64, ev *ExtVisionMessage) {
	if !e.initialised || e.evBufferFail {
		return
	}
	if !ensureObsBuffer(e, &e.extVisionBuffer, &e.evBufferFail, "external vision") {
		return
	}

	if timeUS-e.timeLastExtVision > e.minObsIntervalUS {
		e.timeLastExtVision = timeUS
		e.extVisionBuffer.Push(ExtVisionSample{
			TimeUS: timeUS - uint64(e.params.EVDelayMS)*1000,
			Quat:   ev.Quat,
			PosNED: ev.PosNED,
			AngErr: ev.AngErr,
			PosErr: ev.PosErr,
		})
		e.counters.EV++
	}
}

// SetAuxVelData queues an auxiliary NE velocity sample.
func (e *Estimator) SetAuxVelData(timeUS uint64, velNE, varNE [2]float32) {
	if !e.initialised || e.auxVelBufferFail {
		return
	}
	if !ensureObsBuffer(e, &e.auxVelBuffer, &e.auxVelBufferFail, "aux vel") {
		return
	}

	if timeUS-e.timeLastAuxVel > e.minObsIntervalUS {
		sample := AuxVelSample{
			TimeUS:   timeUS - uint64(e.params.AuxVelDelayMS)*1000 - filterUpdateHalfUS,
			VelNE:    velNE,
			VelVarNE: varNE,
		}
		e.timeLastAuxVel = timeUS

		if sample.TimeUS < e.imuSampleDelayed.TimeUS {
			sample.TimeUS = e.imuSampleDelayed.TimeUS
		}

		e.auxVelBuffer.Push(sample)
		e.counters.AuxVel++
	}
}
