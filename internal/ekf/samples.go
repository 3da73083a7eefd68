package ekf

// Sample is the constraint shared by every buffered record. Each record
// carries the system time in microseconds at which the measurement physically
// occurred (after back-dating by the sensor delay).
type Sample interface {
	SampleTime() uint64
}

// IMUSample holds angular and velocity increments integrated by the IMU
// driver over its reporting interval.
type IMUSample struct {
	TimeUS     uint64
	DeltaAng   [3]float32 // rad
	DeltaVel   [3]float32 // m/s
	DeltaAngDT float32    // s
	DeltaVelDT float32    // s
}

func (s IMUSample) SampleTime() uint64 { return s.TimeUS }

// MagSample holds a magnetometer field measurement in gauss.
type MagSample struct {
	TimeUS uint64
	Mag    [3]float32
}

func (s MagSample) SampleTime() uint64 { return s.TimeUS }

// GPSSample holds a projected GPS fix. Pos is the local NE position in
// metres relative to the WGS-84 origin reference, Vel is NED in m/s.
type GPSSample struct {
	TimeUS uint64
	Pos    [2]float32
	Hgt    float32 // m MSL
	Vel    [3]float32
	SAcc   float32 // speed accuracy, m/s
	HAcc   float32 // horizontal position accuracy, m
	VAcc   float32 // vertical position accuracy, m
}

func (s GPSSample) SampleTime() uint64 { return s.TimeUS }

// BaroSample holds a barometric height in metres.
type BaroSample struct {
	TimeUS uint64
	Hgt    float32
}

func (s BaroSample) SampleTime() uint64 { return s.TimeUS }

// AirspeedSample holds true airspeed plus the EAS-to-TAS scale factor.
type AirspeedSample struct {
	TimeUS       uint64
	TrueAirspeed float32 // m/s
	EAS2TAS      float32
}

func (s AirspeedSample) SampleTime() uint64 { return s.TimeUS }

// RangeSample holds a range finder distance in metres.
type RangeSample struct {
	TimeUS uint64
	Rng    float32
}

func (s RangeSample) SampleTime() uint64 { return s.TimeUS }

// FlowSample holds a conditioned optical flow measurement. FlowRadXY is the
// measured LOS rate or delta angle, GyroXYZ the gyro increments spanning the
// same interval, FlowRadXYComp the body-motion compensated LOS delta.
type FlowSample struct {
	TimeUS        uint64
	Quality       uint8
	FlowRadXY     [2]float32
	GyroXYZ       [3]float32
	FlowRadXYComp [2]float32
	DT            float32 // s
}

func (s FlowSample) SampleTime() uint64 { return s.TimeUS }

// ExtVisionSample holds attitude and position from an external vision system.
type ExtVisionSample struct {
	TimeUS uint64
	Quat   [4]float32
	PosNED [3]float32
	AngErr float32 // 1-sigma attitude error, rad
	PosErr float32 // 1-sigma position error, m
}

func (s ExtVisionSample) SampleTime() uint64 { return s.TimeUS }

// AuxVelSample holds an auxiliary NE velocity observation with variances.
type AuxVelSample struct {
	TimeUS   uint64
	VelNE    [2]float32
	VelVarNE [2]float32
}

func (s AuxVelSample) SampleTime() uint64 { return s.TimeUS }

// DragSample holds the down-sampled mean horizontal specific force used for
// body drag fusion.
type DragSample struct {
	TimeUS  uint64
	AccelXY [2]float32 // m/s^2
}

func (s DragSample) SampleTime() uint64 { return s.TimeUS }

// OutputSample is the filter core's forward-predicted output state.
type OutputSample struct {
	TimeUS uint64
	Quat   [4]float32
	Vel    [3]float32 // NED, m/s
	Pos    [3]float32 // NED, m
}

func (s OutputSample) SampleTime() uint64 { return s.TimeUS }

// OutputVertSample is the filter core's vertical-only output state, kept in a
// separate buffer so height can be predicted at a higher rate.
type OutputVertSample struct {
	TimeUS       uint64
	VertVel      float32 // m/s
	VertVelInteg float32 // m
	DT           float32 // s
}

func (s OutputVertSample) SampleTime() uint64 { return s.TimeUS }

// GpsMessage is the raw fix as reported by the GPS driver.
type GpsMessage struct {
	TimeUS      uint64
	Lat         int32 // 1e-7 deg
	Lon         int32 // 1e-7 deg
	Alt         int32 // mm MSL
	FixType     uint8 // 0-1: none, 2: 2D, 3: 3D, 4+: differential
	EPH         float32
	EPV         float32
	SAcc        float32
	VelNED      [3]float32
	VelNEDValid bool
}

// FlowMessage is the raw optical flow report from the driver. FlowData and
// GyroData are integrated over the same DT microsecond window.
type FlowMessage struct {
	FlowData [2]float32 // rad
	GyroData [3]float32 // rad
	DT       uint32     // us
	Quality  uint8
}

// ExtVisionMessage is the raw external vision report from the driver.
type ExtVisionMessage struct {
	Quat   [4]float32
	PosNED [3]float32
	AngErr float32
	PosErr float32
}
