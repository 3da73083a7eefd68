// Package geo provides the WGS-84 to local-tangent-plane projection primitive
// consumed by the estimator's GPS intake.
package geo

import "math"

// earthRadiusM is the spherical earth radius used by the azimuthal
// equidistant projection, metres.
const earthRadiusM = 6371000.0

// Reference is an origin-anchored azimuthal equidistant projection. Project
// maps a WGS-84 coordinate to north/east metres relative to the origin. The
// zero value is unset; Init latches the origin once.
type Reference struct {
	latRad    float64
	lonRad    float64
	sinLatRef float64
	cosLatRef float64
	set       bool
}

// Init anchors the projection at the given WGS-84 origin, degrees.
func (r *Reference) Init(latDeg, lonDeg float64) {
	r.latRad = latDeg * math.Pi / 180
	r.lonRad = lonDeg * math.Pi / 180
	r.sinLatRef = math.Sin(r.latRad)
	r.cosLatRef = math.Cos(r.latRad)
	r.set = true
}

// IsSet reports whether the origin has been anchored.
func (r *Reference) IsSet() bool { return r.set }

// Origin returns the anchored origin in degrees. Zero when unset.
func (r *Reference) Origin() (latDeg, lonDeg float64) {
	return r.latRad * 180 / math.Pi, r.lonRad * 180 / math.Pi
}

// Project maps a WGS-84 coordinate (degrees) to local north/east metres
// relative to the origin. Results are zero when the origin is unset.
// Intermediate trig runs in double precision; results narrow to float32 to
// match the estimator's working precision.
func (r *Reference) Project(latDeg, lonDeg float64) (north, east float32) {
	if !r.set {
		return 0, 0
	}

	latRad := latDeg * math.Pi / 180
	lonRad := lonDeg * math.Pi / 180

	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)
	cosDLon := math.Cos(lonRad - r.lonRad)

	arg := r.sinLatRef*sinLat + r.cosLatRef*cosLat*cosDLon
	if arg > 1 {
		arg = 1
	} else if arg < -1 {
		arg = -1
	}
	c := math.Acos(arg)

	k := 1.0
	if math.Abs(c) > 0 {
		k = c / math.Sin(c)
	}

	north = float32(k * (r.cosLatRef*sinLat - r.sinLatRef*cosLat*cosDLon) * earthRadiusM)
	east = float32(k * cosLat * math.Sin(lonRad-r.lonRad) * earthRadiusM)
	return north, east
}
