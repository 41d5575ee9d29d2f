// Package transform provides the coordinate frame conversions behind
// ground-track geometry: TEME (the SGP4 output frame) to ECEF via the
// sidereal angle, and ECEF to geodetic latitude/longitude.
//
// The TEME→ECEF rotation uses GMST only (TEME → PEF ≈ ECEF), ignoring polar
// motion and the equation of equinoxes. The resulting error is under ~50m,
// which is irrelevant at footprint scale.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"
	"time"
)

// j2000 is the Julian Date of the J2000.0 epoch.
const j2000 = 2451545.0

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// TEME is a position/velocity in the True Equator Mean Equinox frame (km, km/s).
type TEME struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// ECEF is a position/velocity in the Earth-Centered Earth-Fixed frame (m, m/s).
type ECEF struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// JulianDate converts a UTC time to Julian Date using the standard
// astronomical algorithm.
func JulianDate(t time.Time) float64 {
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Jan/Feb count as months 13/14 of the previous year.
	if m <= 2 {
		y -= 1
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0
	return jd
}

// GMST returns Greenwich Mean Sidereal Time in radians for a UTC time,
// per the IAU-82 model (Vallado Eq 3-47).
func GMST(t time.Time) float64 {
	tUT1 := (JulianDate(t.UTC()) - j2000) / 36525.0

	// Seconds of time; 876600h = 3155760000s.
	sec := 67310.54841 +
		(3155760000.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return sec / 86400.0 * 2.0 * math.Pi
}

// TEMEToECEF rotates a TEME state into ECEF at the given UTC time.
func TEMEToECEF(teme TEME, t time.Time) ECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST rotates TEME into ECEF using a precomputed GMST angle.
// Position: r_ECEF = R3(θ)·r_TEME. Velocity: v_ECEF = R3(θ)·v_TEME − ω×r_ECEF.
func TEMEToECEFWithGMST(teme TEME, gmst float64) ECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	x := teme.X*cosG + teme.Y*sinG
	y := -teme.X*sinG + teme.Y*cosG
	z := teme.Z

	vx := teme.VX*cosG + teme.VY*sinG + OmegaEarth*y
	vy := -teme.VX*sinG + teme.VY*cosG - OmegaEarth*x
	vz := teme.VZ

	// km → m.
	return ECEF{
		X: x * 1000.0, Y: y * 1000.0, Z: z * 1000.0,
		VX: vx * 1000.0, VY: vy * 1000.0, VZ: vz * 1000.0,
	}
}

// ValidateECEF reports whether an ECEF position is physically plausible for
// an Earth-orbiting satellite: finite, with magnitude between ~6200km
// (just under LEO) and ~50000km (beyond GEO).
func ValidateECEF(pos ECEF) bool {
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) {
		return false
	}
	if math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return false
	}

	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	const minRadius = 6200.0e3
	const maxRadius = 50000.0e3
	return mag >= minRadius && mag <= maxRadius
}
