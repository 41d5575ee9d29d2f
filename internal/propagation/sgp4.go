// Package propagation wraps the SGP4 model and samples satellite positions
// across a time window in the surface-fixed (ECEF) frame.
package propagation

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/chocolat0w0/globe-3d-tle/internal/tle"
	"github.com/chocolat0w0/globe-3d-tle/internal/transform"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Pure Go, no CGO, explicit TEME output. Propagate() takes Satellite by value
// so SGP4 error codes are not visible to the caller; propagation failures are
// detected by checking the output for NaN/Inf and unreasonable magnitudes.

// SGP4 wraps an initialized SGP4 propagation state for one element pair.
// Immutable after construction; safe for concurrent use because Propagate
// receives the state by value.
type SGP4 struct {
	sat    satellite.Satellite
	catnum int
}

// NewSGP4 initializes the SGP4 model from an element pair.
// The pair has already passed tle.NewPair format validation, which matters
// because the library calls log.Fatal on lines it cannot parse.
func NewSGP4(pair tle.Pair) (*SGP4, error) {
	sat := satellite.TLEToSat(pair.Line1, pair.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for catalog %d: code=%d %s",
			pair.CatalogNumber(), sat.Error, sat.ErrorStr)
	}
	return &SGP4{sat: sat, catnum: pair.CatalogNumber()}, nil
}

// At propagates to the given UTC instant and returns the TEME state (km, km/s).
// A degenerate or decayed orbit at this instant returns an error; callers
// decide whether that is a skip or a hard failure.
//
// Propagate accepts whole seconds only, so the state is computed at the
// floor second and the position advanced along the velocity vector for the
// sub-second remainder. Over less than a second of coasting the linear term
// is within a few meters of the true arc, versus kilometers of error if the
// remainder were dropped.
func (p *SGP4) At(t time.Time) (transform.TEME, error) {
	t = t.UTC()
	base := t.Truncate(time.Second)
	pos, vel := satellite.Propagate(p.sat, base.Year(), int(base.Month()), base.Day(),
		base.Hour(), base.Minute(), base.Second())

	if !finite3(pos.X, pos.Y, pos.Z) || !finite3(vel.X, vel.Y, vel.Z) {
		return transform.TEME{}, fmt.Errorf("sgp4 output not finite for catalog %d", p.catnum)
	}

	// Magnitude sanity: between just under LEO and beyond GEO.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return transform.TEME{}, fmt.Errorf("sgp4 position magnitude %.1f km unreasonable for catalog %d", mag, p.catnum)
	}

	if frac := t.Sub(base).Seconds(); frac > 0 {
		pos.X += vel.X * frac
		pos.Y += vel.Y * frac
		pos.Z += vel.Z * frac
	}

	return transform.TEME{
		X: pos.X, Y: pos.Y, Z: pos.Z,
		VX: vel.X, VY: vel.Y, VZ: vel.Z,
	}, nil
}

// AtECEF propagates to the instant and rotates the state into ECEF.
func (p *SGP4) AtECEF(t time.Time) (transform.ECEF, error) {
	teme, err := p.At(t)
	if err != nil {
		return transform.ECEF{}, err
	}
	return transform.TEMEToECEF(teme, t), nil
}

func finite3(a, b, c float64) bool {
	for _, v := range [3]float64{a, b, c} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
