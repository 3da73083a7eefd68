package serialmux

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/attitude.report/internal/ekf"
)

// Sentence types emitted by the serial sensor bridge. The bridge firmware
// forwards slow sensors as comma separated ASCII sentences, one per line:
//
//	$GPS,<time_us>,<lat_1e7>,<lon_1e7>,<alt_mm>,<fix>,<eph>,<epv>,<sacc>,<vn>,<ve>,<vd>,<vel_valid>
//	$ASPD,<time_us>,<tas>,<eas2tas>
//	$BARO,<time_us>,<hgt_m>
const (
	SentenceTypeGPS      = "gps"
	SentenceTypeAirspeed = "airspeed"
	SentenceTypeBaro     = "baro"
	SentenceTypeUnknown  = "unknown"
)

// AirspeedSentence is a decoded $ASPD line.
type AirspeedSentence struct {
	TimeUS       uint64
	TrueAirspeed float32
	EAS2TAS      float32
}

// BaroSentence is a decoded $BARO line.
type BaroSentence struct {
	TimeUS uint64
	Height float32
}

// ClassifySentence inspects a bridge line and returns its sentence type token
// without fully decoding it.
func ClassifySentence(line string) string {
	switch {
	case strings.HasPrefix(line, "$GPS,"):
		return SentenceTypeGPS
	case strings.HasPrefix(line, "$ASPD,"):
		return SentenceTypeAirspeed
	case strings.HasPrefix(line, "$BARO,"):
		return SentenceTypeBaro
	default:
		return SentenceTypeUnknown
	}
}

func splitSentence(line, prefix string, fields int) ([]string, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, prefix) {
		return nil, fmt.Errorf("not a %s sentence: %q", prefix, line)
	}
	parts := strings.Split(line, ",")
	if len(parts) != fields {
		return nil, fmt.Errorf("%s sentence has %d fields, want %d", prefix, len(parts), fields)
	}
	return parts[1:], nil
}

func parseF32(s string) (float32, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	return float32(v), err
}

// ParseGPSSentence decodes a $GPS line into the raw fix message the estimator
// consumes. Lat/lon are 1e-7 degrees and altitude is millimetres, matching the
// driver wire convention.
func ParseGPSSentence(line string) (*ekf.GpsMessage, error) {
	parts, err := splitSentence(line, "$GPS,", 13)
	if err != nil {
		return nil, err
	}

	timeUS, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid gps time_us %q: %w", parts[0], err)
	}

	var ints [3]int32
	for i, s := range parts[1:4] {
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid gps field %q: %w", s, err)
		}
		ints[i] = int32(v)
	}

	fix, err := strconv.ParseUint(parts[4], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid gps fix %q: %w", parts[4], err)
	}

	var floats [6]float32
	for i, s := range parts[5:11] {
		v, err := parseF32(s)
		if err != nil {
			return nil, fmt.Errorf("invalid gps field %q: %w", s, err)
		}
		floats[i] = v
	}

	valid, err := strconv.ParseUint(parts[11], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid gps vel_valid %q: %w", parts[11], err)
	}

	return &ekf.GpsMessage{
		TimeUS:      timeUS,
		Lat:         ints[0],
		Lon:         ints[1],
		Alt:         ints[2],
		FixType:     uint8(fix),
		EPH:         floats[0],
		EPV:         floats[1],
		SAcc:        floats[2],
		VelNED:      [3]float32{floats[3], floats[4], floats[5]},
		VelNEDValid: valid != 0,
	}, nil
}

// ParseAirspeedSentence decodes an $ASPD line.
func ParseAirspeedSentence(line string) (*AirspeedSentence, error) {
	parts, err := splitSentence(line, "$ASPD,", 4)
	if err != nil {
		return nil, err
	}

	timeUS, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid airspeed time_us %q: %w", parts[0], err)
	}
	tas, err := parseF32(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid airspeed tas %q: %w", parts[1], err)
	}
	eas2tas, err := parseF32(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid airspeed eas2tas %q: %w", parts[2], err)
	}

	return &AirspeedSentence{TimeUS: timeUS, TrueAirspeed: tas, EAS2TAS: eas2tas}, nil
}

// ParseBaroSentence decodes a $BARO line.
func ParseBaroSentence(line string) (*BaroSentence, error) {
	parts, err := splitSentence(line, "$BARO,", 3)
	if err != nil {
		return nil, err
	}

	timeUS, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid baro time_us %q: %w", parts[0], err)
	}
	hgt, err := parseF32(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid baro height %q: %w", parts[1], err)
	}

	return &BaroSentence{TimeUS: timeUS, Height: hgt}, nil
}
