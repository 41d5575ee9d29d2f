// Package interp answers continuous-time queries over a cached footprint
// result: binary search to the bracketing samples, vertex-wise interpolation
// with an antimeridian-aware longitude path, and snapping across topology
// changes where interpolation is undefined.
package interp

import (
	"github.com/chocolat0w0/globe-3d-tle/internal/geometry"
)

// Lookup is a read-only index over one footprint result: cumulative
// polygon-start offsets per time sample. It is rebuilt whenever the
// underlying result changes, never mutated in place.
type Lookup struct {
	res *geometry.FootprintResult
	// starts[k] is the index of sample k's first ring in res.Rings;
	// starts[len(Times)] closes the final sample.
	starts []uint32
}

// NewLookup builds the polygon-start index in one O(n) pass.
func NewLookup(res *geometry.FootprintResult) *Lookup {
	starts := make([]uint32, len(res.TimeSizes)+1)
	var sum uint32
	for i, n := range res.TimeSizes {
		starts[i] = sum
		sum += n
	}
	starts[len(res.TimeSizes)] = sum
	return &Lookup{res: res, starts: starts}
}

// Bisect returns the index of the latest sample at or before t, clamped to
// [0, len(times)-1]; there is no extrapolation past either end. An empty
// times slice returns -1.
func Bisect(times []float64, t float64) int {
	if len(times) == 0 {
		return -1
	}
	if t <= times[0] {
		return 0
	}
	if t >= times[len(times)-1] {
		return len(times) - 1
	}

	lo, hi := 0, len(times)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if times[mid] <= t {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// PolygonCountAt returns the ring count (1 or 2) of the nearest sample at or
// before t, or 0 for an empty result.
func (l *Lookup) PolygonCountAt(t float64) int {
	i := Bisect(l.res.Times, t)
	if i < 0 {
		return 0
	}
	return int(l.res.TimeSizes[i])
}

// polygon returns ring j of sample i, aliasing the result's vertex buffer.
func (l *Lookup) polygon(i, j int) []float64 {
	return l.res.Rings.Ring(int(l.starts[i]) + j)
}

// Interpolate returns the footprint ring for polygonIndex at continuous time
// t. The second return is false when no such polygon exists at the resolved
// sample, which hides a secondary dateline ring while the track is not split.
//
// At or past the last sample the sample's ring is returned unmodified
// (aliasing the cached buffer). When the bracketing samples disagree on
// polygon count or on the requested ring's vertex count, the temporally
// nearer sample's ring is returned unmodified: interpolating across a
// topology change is undefined. Otherwise every vertex is interpolated,
// latitude linearly and longitude along the shorter wrap-around path.
func (l *Lookup) Interpolate(t float64, polygonIndex int) ([]float64, bool) {
	times := l.res.Times
	i := Bisect(times, t)
	if i < 0 || polygonIndex < 0 {
		return nil, false
	}

	snap := func(k int) ([]float64, bool) {
		if polygonIndex >= int(l.res.TimeSizes[k]) {
			return nil, false
		}
		return l.polygon(k, polygonIndex), true
	}

	// Clamped at the ends: no bracket exists.
	if i == len(times)-1 || t <= times[0] {
		return snap(i)
	}

	j := i + 1
	if l.res.TimeSizes[i] != l.res.TimeSizes[j] {
		return snap(nearer(times, i, j, t))
	}
	if polygonIndex >= int(l.res.TimeSizes[i]) {
		return nil, false
	}

	a := l.polygon(i, polygonIndex)
	b := l.polygon(j, polygonIndex)
	if len(a) != len(b) {
		return snap(nearer(times, i, j, t))
	}

	f := (t - times[i]) / (times[j] - times[i])
	out := make([]float64, len(a))
	for k := 0; k < len(a); k += 2 {
		out[k] = LerpLon(a[k], b[k], f)
		out[k+1] = a[k+1] + f*(b[k+1]-a[k+1])
	}
	return out, true
}

// nearer picks whichever bracketing sample is temporally closer to t.
func nearer(times []float64, i, j int, t float64) int {
	if t-times[i] <= times[j]-t {
		return i
	}
	return j
}

// LerpLon interpolates a longitude along the shorter wrap-around path: the
// signed delta is wrapped into (-180, 180] before interpolating and the
// result re-wrapped into [-180, 180].
func LerpLon(a, b, f float64) float64 {
	return geometry.WrapLon(a + f*geometry.WrapDelta(b-a))
}
