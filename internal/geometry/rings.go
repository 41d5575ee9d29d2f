package geometry

// FlatRings is the packed polygon representation shared by footprint and
// swath results: one vertex buffer of (lon, lat) degree pairs with parallel
// per-ring offset/count arrays.
//
// Invariants: Offsets[0] == 0; Offsets[i] is the running sum of prior
// Counts; len(Vertices) == 2*sum(Counts). Rings are implicitly closed (the
// first vertex is not repeated).
type FlatRings struct {
	Vertices []float64
	Offsets  []uint32
	Counts   []uint32
}

// Append packs one ring (lon,lat pairs) onto the buffer.
func (f *FlatRings) Append(ring []float64) {
	f.Offsets = append(f.Offsets, uint32(len(f.Vertices)/2))
	f.Counts = append(f.Counts, uint32(len(ring)/2))
	f.Vertices = append(f.Vertices, ring...)
}

// RingCount returns the number of packed rings.
func (f *FlatRings) RingCount() int {
	return len(f.Counts)
}

// Ring returns the vertex slice of ring i, aliasing the shared buffer.
func (f *FlatRings) Ring(i int) []float64 {
	off := int(f.Offsets[i]) * 2
	return f.Vertices[off : off+int(f.Counts[i])*2]
}

// FootprintResult packs per-instant footprint rings. TimeSizes[k] is the
// ring count for time sample k, so sum(TimeSizes) == len(Rings.Offsets).
// Typically 1, or 2 when the ring straddles the antimeridian; a very wide
// ring crossing the boundary more than twice contributes one part per
// crossing pair, so consumers must index through TimeSizes rather than
// assume a fixed count. Times is the authoritative instant list: instants
// where propagation or projection failed carry no entry.
type FootprintResult struct {
	Rings     FlatRings
	TimeSizes []uint32
	Times     []float64 // epoch milliseconds
}

// SwathResult packs whole-window coverage rings, one or more per
// non-zero-width off-nadir range after antimeridian splitting.
type SwathResult struct {
	Rings FlatRings
}
