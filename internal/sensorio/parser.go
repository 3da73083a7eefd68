package sensorio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/banshee-data/attitude.report/internal/ekf"
)

// Sink receives decoded sensor frames. *ekf.Estimator satisfies it directly;
// tests substitute a recorder.
type Sink interface {
	SetIMUData(timeUS, deltaAngDTus, deltaVelDTus uint64, deltaAng, deltaVel [3]float32)
	SetMagData(timeUS uint64, mag [3]float32)
	SetGpsData(timeUS uint64, gps *ekf.GpsMessage)
	SetBaroData(timeUS uint64, hgt float32)
	SetAirspeedData(timeUS uint64, trueAirspeed, eas2tas float32)
	SetRangeData(timeUS uint64, rng float32)
	SetOpticalFlowData(timeUS uint64, flow *ekf.FlowMessage)
	SetExtVisionData(timeUS uint64, ev *ekf.ExtVisionMessage)
	SetAuxVelData(timeUS uint64, velNE, varNE [2]float32)
}

// Parser validates sensor frames and dispatches them to a sink.
type Parser struct {
	sink Sink
}

// NewParser creates a parser feeding the given sink.
func NewParser(sink Sink) *Parser {
	return &Parser{sink: sink}
}

type frameReader struct {
	buf []byte
	off int
}

func (r *frameReader) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *frameReader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *frameReader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *frameReader) i32() int32 { return int32(r.u32()) }

func (r *frameReader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *frameReader) vec2() [2]float32 { return [2]float32{r.f32(), r.f32()} }

func (r *frameReader) vec3() [3]float32 { return [3]float32{r.f32(), r.f32(), r.f32()} }

// HandleFrame decodes a single sensor frame and forwards it to the sink.
// Returns the decoded kind so callers can keep per-sensor statistics.
func (p *Parser) HandleFrame(frame []byte) (Kind, error) {
	if len(frame) < HeaderSize {
		return 0, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	if magic := binary.LittleEndian.Uint16(frame); magic != FrameMagic {
		return 0, fmt.Errorf("bad frame magic 0x%04X", magic)
	}
	if v := frame[2]; v != FrameVersion {
		return 0, fmt.Errorf("unsupported frame version %d", v)
	}

	kind := Kind(frame[3])
	want := payloadSize(kind)
	if want < 0 {
		return 0, fmt.Errorf("unknown sensor kind %d", frame[3])
	}
	if len(frame) != HeaderSize+want {
		return 0, fmt.Errorf("%s frame payload is %d bytes, want %d", kind, len(frame)-HeaderSize, want)
	}

	r := &frameReader{buf: frame, off: HeaderSize}
	timeUS := r.u64()

	switch kind {
	case KindIMU:
		deltaAngDT := uint64(r.u32())
		deltaVelDT := uint64(r.u32())
		deltaAng := r.vec3()
		deltaVel := r.vec3()
		p.sink.SetIMUData(timeUS, deltaAngDT, deltaVelDT, deltaAng, deltaVel)

	case KindMag:
		p.sink.SetMagData(timeUS, r.vec3())

	case KindGPS:
		gps := ekf.GpsMessage{TimeUS: timeUS}
		gps.Lat = r.i32()
		gps.Lon = r.i32()
		gps.Alt = r.i32()
		gps.FixType = r.u8()
		gps.VelNEDValid = r.u8() != 0
		gps.EPH = r.f32()
		gps.EPV = r.f32()
		gps.SAcc = r.f32()
		gps.VelNED = r.vec3()
		p.sink.SetGpsData(timeUS, &gps)

	case KindBaro:
		p.sink.SetBaroData(timeUS, r.f32())

	case KindAirspeed:
		tas := r.f32()
		p.sink.SetAirspeedData(timeUS, tas, r.f32())

	case KindRange:
		p.sink.SetRangeData(timeUS, r.f32())

	case KindFlow:
		flow := ekf.FlowMessage{}
		flow.FlowData = r.vec2()
		flow.GyroData = r.vec3()
		flow.DT = r.u32()
		flow.Quality = r.u8()
		p.sink.SetOpticalFlowData(timeUS, &flow)

	case KindExtVision:
		ev := ekf.ExtVisionMessage{}
		ev.Quat = [4]float32{r.f32(), r.f32(), r.f32(), r.f32()}
		ev.PosNED = r.vec3()
		ev.AngErr = r.f32()
		ev.PosErr = r.f32()
		p.sink.SetExtVisionData(timeUS, &ev)

	case KindAuxVel:
		velNE := r.vec2()
		p.sink.SetAuxVelData(timeUS, velNE, r.vec2())
	}

	return kind, nil
}
