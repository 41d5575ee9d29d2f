package geometry

import (
	"fmt"

	"github.com/chocolat0w0/globe-3d-tle/internal/propagation"
	"github.com/chocolat0w0/globe-3d-tle/internal/tle"
)

// SwathParams describes swept-coverage generation: the off-nadir ranges to
// sweep and the number of edge points per window edge. Subdivisions <= 0
// falls back to DefaultSwathSubdivisions.
type SwathParams struct {
	Ranges       []OffnadirRange
	Subdivisions int
}

// DefaultSwathSubdivisions is the edge sample count used when the caller
// does not specify one.
const DefaultSwathSubdivisions = 64

// Swath computes the coverage region swept across the whole window for each
// non-zero-width off-nadir range, antimeridian-splitting each resulting
// ring.
//
// Unlike footprint generation, any propagation or projection failure is a
// hard error for the whole call: a partially swept aggregate shape would be
// silently wrong. Ranges of zero width contribute nothing; if every range is
// zero-width the result is empty without error.
func Swath(pair tle.Pair, startMs, durationMs int64, stepSec float64, params SwathParams) (SwathResult, error) {
	if err := ValidateOffnadirRanges(params.Ranges); err != nil {
		return SwathResult{}, err
	}
	if _, err := propagation.CheckStep(durationMs, stepSec); err != nil {
		return SwathResult{}, err
	}

	var active []OffnadirRange
	for _, r := range params.Ranges {
		if !r.ZeroWidth() {
			active = append(active, r)
		}
	}
	var out SwathResult
	if len(active) == 0 {
		return out, nil
	}

	subdiv := params.Subdivisions
	if subdiv <= 0 {
		subdiv = DefaultSwathSubdivisions
	}

	prop, err := propagation.NewSGP4(pair)
	if err != nil {
		return SwathResult{}, err
	}

	// One frame per edge sample, shared by all ranges.
	frames := make([]orbitFrame, subdiv+1)
	for i := 0; i <= subdiv; i++ {
		tMs := float64(startMs) + float64(i)/float64(subdiv)*float64(durationMs)
		state, err := prop.AtECEF(msToTime(tMs))
		if err != nil {
			return SwathResult{}, fmt.Errorf("swath propagation at %fms: %w", tMs, err)
		}
		frames[i], err = newOrbitFrame(state)
		if err != nil {
			return SwathResult{}, fmt.Errorf("swath frame at %fms: %w", tMs, err)
		}
	}

	for _, r := range active {
		ring, err := swathRing(frames, r)
		if err != nil {
			return SwathResult{}, err
		}
		for _, part := range SplitAntimeridian(ring) {
			out.Rings.Append(part)
		}
	}
	return out, nil
}

// swathRing joins the ground track of the range's near edge (walked forward
// in time) with the far edge (walked backward) into one closed ring.
func swathRing(frames []orbitFrame, r OffnadirRange) ([]float64, error) {
	ring := make([]float64, 0, 4*len(frames))

	for _, f := range frames {
		lon, lat, err := f.groundPoint(r.MinDeg, 0)
		if err != nil {
			return nil, fmt.Errorf("swath near edge: %w", err)
		}
		ring = append(ring, lon, lat)
	}
	for i := len(frames) - 1; i >= 0; i-- {
		lon, lat, err := frames[i].groundPoint(r.MaxDeg, 0)
		if err != nil {
			return nil, fmt.Errorf("swath far edge: %w", err)
		}
		ring = append(ring, lon, lat)
	}
	return ring, nil
}
