package geometry

import "math"

// WrapLon normalizes a longitude into [-180, 180].
func WrapLon(lon float64) float64 {
	lon = math.Mod(lon+180.0, 360.0)
	if lon < 0 {
		lon += 360.0
	}
	return lon - 180.0
}

// WrapDelta normalizes a longitude difference into (-180, 180].
func WrapDelta(d float64) float64 {
	d = math.Mod(d, 360.0)
	if d > 180.0 {
		d -= 360.0
	} else if d <= -180.0 {
		d += 360.0
	}
	return d
}

// SplitAntimeridian cuts a closed ring of (lon, lat) pairs at every ±180°
// crossing and returns one or more closed rings whose longitudes all lie in
// [-180, 180]. Each edge is taken along the shorter great-circle direction
// in longitude; a ring that never crosses comes back unchanged (normalized).
//
// The cut inserts a vertex at ±180 with linearly interpolated latitude on
// both sides, so adjacent rings share the boundary without overlap.
//
// Each crossing opens a new chain, so a ring crossing 2k times yields up to
// 2k parts. A pole-enclosing ring (odd crossing count) is not handled: its
// parts are stitched without closing over the pole, which downstream
// consumers render as-is rather than reject.
func SplitAntimeridian(ring []float64) [][]float64 {
	n := len(ring) / 2
	if n < 3 {
		return nil
	}

	var chains [][]float64
	chain := []float64{WrapLon(ring[0]), ring[1]}

	for i := 0; i < n; i++ {
		lon1 := chain[len(chain)-2]
		lat1 := chain[len(chain)-1]
		j := (i + 1) % n
		lat2 := ring[2*j+1]
		d := WrapDelta(WrapLon(ring[2*j]) - lon1)
		target := lon1 + d

		switch {
		case target > 180.0:
			f := (180.0 - lon1) / d
			latX := lat1 + f*(lat2-lat1)
			chain = append(chain, 180.0, latX)
			chains = append(chains, chain)
			chain = []float64{-180.0, latX}
			if j != 0 {
				chain = append(chain, target-360.0, lat2)
			}
		case target < -180.0:
			f := (-180.0 - lon1) / d
			latX := lat1 + f*(lat2-lat1)
			chain = append(chain, -180.0, latX)
			chains = append(chains, chain)
			chain = []float64{180.0, latX}
			if j != 0 {
				chain = append(chain, target+360.0, lat2)
			}
		default:
			if j != 0 {
				chain = append(chain, target, lat2)
			}
		}
	}

	if len(chains) == 0 {
		return [][]float64{chain}
	}

	// The walk ended back at the start vertex, so the trailing open chain is
	// the beginning of the first chain: stitch them together.
	chains[0] = append(chain, chains[0]...)

	out := make([][]float64, 0, len(chains))
	for _, c := range chains {
		if len(c)/2 >= 3 {
			out = append(out, c)
		}
	}
	return out
}
