// Package geometry generates instrument ground footprints and swept-coverage
// swaths from propagated satellite states, including antimeridian-aware
// polygon splitting and the packed flat-buffer output format consumed by the
// rendering collaborator.
package geometry

import (
	"fmt"
	"math"
)

// OffnadirRange is an instrument look-angle interval off nadir, in degrees.
// A zero-width range (Min == Max) denotes no coverage and contributes
// nothing to swath generation.
type OffnadirRange struct {
	MinDeg float64
	MaxDeg float64
}

// ZeroWidth reports whether the range covers no angle.
func (r OffnadirRange) ZeroWidth() bool {
	return r.MinDeg == r.MaxDeg
}

// ValidateOffnadirRanges checks a list of off-nadir ranges before any
// propagation work begins. The error names the offending index and the
// violated bound. An empty list is invalid.
func ValidateOffnadirRanges(ranges []OffnadirRange) error {
	if len(ranges) == 0 {
		return fmt.Errorf("off-nadir ranges: list is empty")
	}
	for i, r := range ranges {
		if !finite(r.MinDeg) || !finite(r.MaxDeg) {
			return fmt.Errorf("off-nadir range %d: bounds must be finite, got [%v, %v]", i, r.MinDeg, r.MaxDeg)
		}
		if r.MinDeg > r.MaxDeg {
			return fmt.Errorf("off-nadir range %d: min %v exceeds max %v", i, r.MinDeg, r.MaxDeg)
		}
		if r.MinDeg < -90 || r.MinDeg > 90 {
			return fmt.Errorf("off-nadir range %d: min %v outside [-90, 90]", i, r.MinDeg)
		}
		if r.MaxDeg < -90 || r.MaxDeg > 90 {
			return fmt.Errorf("off-nadir range %d: max %v outside [-90, 90]", i, r.MaxDeg)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
