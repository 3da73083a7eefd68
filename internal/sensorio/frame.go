package sensorio

import (
	"encoding/binary"
	"math"

	"github.com/banshee-data/attitude.report/internal/ekf"
)

// Sensor frame wire format (little-endian):
//
//	├── Header (4 bytes)
//	│   ├── magic   uint16  0xEB90 sync word
//	│   ├── version uint8   format version (currently 1)
//	│   └── kind    uint8   sensor kind
//	└── Payload (kind-specific, fixed size, starts with time_us uint64)
//
// Every payload leads with the sensor timestamp in microseconds so partial
// decoders can route frames without knowing the full layout. Multi-byte
// fields are little-endian throughout, matching the flight controller side.
const (
	FrameMagic   = 0xEB90
	FrameVersion = 1
	HeaderSize   = 4
)

// Kind identifies the sensor a frame carries data for.
type Kind uint8

const (
	KindIMU Kind = 1 + iota
	KindMag
	KindGPS
	KindBaro
	KindAirspeed
	KindRange
	KindFlow
	KindExtVision
	KindAuxVel
)

func (k Kind) String() string {
	switch k {
	case KindIMU:
		return "imu"
	case KindMag:
		return "mag"
	case KindGPS:
		return "gps"
	case KindBaro:
		return "baro"
	case KindAirspeed:
		return "airspeed"
	case KindRange:
		return "range"
	case KindFlow:
		return "flow"
	case KindExtVision:
		return "ext_vision"
	case KindAuxVel:
		return "aux_vel"
	}
	return "unknown"
}

// payloadSize returns the fixed payload length for a kind, or -1 when the
// kind is unknown.
func payloadSize(k Kind) int {
	switch k {
	case KindIMU:
		return 8 + 4 + 4 + 12 + 12
	case KindMag:
		return 8 + 12
	case KindGPS:
		return 8 + 4 + 4 + 4 + 1 + 1 + 4 + 4 + 4 + 12
	case KindBaro:
		return 8 + 4
	case KindAirspeed:
		return 8 + 4 + 4
	case KindRange:
		return 8 + 4
	case KindFlow:
		return 8 + 8 + 12 + 4 + 1
	case KindExtVision:
		return 8 + 16 + 12 + 4 + 4
	case KindAuxVel:
		return 8 + 8 + 8
	}
	return -1
}

type frameWriter struct {
	buf []byte
}

func newFrameWriter(kind Kind) *frameWriter {
	w := &frameWriter{buf: make([]byte, 0, HeaderSize+payloadSize(kind))}
	w.buf = binary.LittleEndian.AppendUint16(w.buf, FrameMagic)
	w.buf = append(w.buf, FrameVersion, byte(kind))
	return w
}

func (w *frameWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *frameWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *frameWriter) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *frameWriter) i32(v int32)  { w.u32(uint32(v)) }

func (w *frameWriter) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *frameWriter) vec2(v [2]float32) {
	w.f32(v[0])
	w.f32(v[1])
}

func (w *frameWriter) vec3(v [3]float32) {
	w.f32(v[0])
	w.f32(v[1])
	w.f32(v[2])
}

// MarshalIMU encodes an IMU increment frame.
func MarshalIMU(timeUS, deltaAngDTus, deltaVelDTus uint64, deltaAng, deltaVel [3]float32) []byte {
	w := newFrameWriter(KindIMU)
	w.u64(timeUS)
	w.u32(uint32(deltaAngDTus))
	w.u32(uint32(deltaVelDTus))
	w.vec3(deltaAng)
	w.vec3(deltaVel)
	return w.buf
}

// MarshalMag encodes a magnetometer frame, field in Gauss.
func MarshalMag(timeUS uint64, mag [3]float32) []byte {
	w := newFrameWriter(KindMag)
	w.u64(timeUS)
	w.vec3(mag)
	return w.buf
}

// MarshalGPS encodes a GPS fix frame.
func MarshalGPS(timeUS uint64, gps *ekf.GpsMessage) []byte {
	w := newFrameWriter(KindGPS)
	w.u64(timeUS)
	w.i32(gps.Lat)
	w.i32(gps.Lon)
	w.i32(gps.Alt)
	w.u8(gps.FixType)
	if gps.VelNEDValid {
		w.u8(1)
	} else {
		w.u8(0)
	}
	w.f32(gps.EPH)
	w.f32(gps.EPV)
	w.f32(gps.SAcc)
	w.vec3(gps.VelNED)
	return w.buf
}

// MarshalBaro encodes a barometric height frame, metres.
func MarshalBaro(timeUS uint64, hgt float32) []byte {
	w := newFrameWriter(KindBaro)
	w.u64(timeUS)
	w.f32(hgt)
	return w.buf
}

// MarshalAirspeed encodes a true airspeed frame.
func MarshalAirspeed(timeUS uint64, trueAirspeed, eas2tas float32) []byte {
	w := newFrameWriter(KindAirspeed)
	w.u64(timeUS)
	w.f32(trueAirspeed)
	w.f32(eas2tas)
	return w.buf
}

// MarshalRange encodes a range finder frame, metres.
func MarshalRange(timeUS uint64, rng float32) []byte {
	w := newFrameWriter(KindRange)
	w.u64(timeUS)
	w.f32(rng)
	return w.buf
}

// MarshalFlow encodes an optical flow frame.
func MarshalFlow(timeUS uint64, flow *ekf.FlowMessage) []byte {
	w := newFrameWriter(KindFlow)
	w.u64(timeUS)
	w.vec2(flow.FlowData)
	w.vec3(flow.GyroData)
	w.u32(flow.DT)
	w.u8(flow.Quality)
	return w.buf
}

// MarshalExtVision encodes an external vision pose frame.
func MarshalExtVision(timeUS uint64, ev *ekf.ExtVisionMessage) []byte {
	w := newFrameWriter(KindExtVision)
	w.u64(timeUS)
	w.f32(ev.Quat[0])
	w.f32(ev.Quat[1])
	w.f32(ev.Quat[2])
	w.f32(ev.Quat[3])
	w.vec3(ev.PosNED)
	w.f32(ev.AngErr)
	w.f32(ev.PosErr)
	return w.buf
}

// MarshalAuxVel encodes an auxiliary NE velocity frame.
func MarshalAuxVel(timeUS uint64, velNE, varNE [2]float32) []byte {
	w := newFrameWriter(KindAuxVel)
	w.u64(timeUS)
	w.vec2(velNE)
	w.vec2(varNE)
	return w.buf
}
