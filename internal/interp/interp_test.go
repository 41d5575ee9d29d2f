package interp

import (
	"math"
	"testing"

	"github.com/chocolat0w0/globe-3d-tle/internal/geometry"
)

// makeResult packs rings into a FootprintResult: one entry per time sample,
// each a list of rings.
func makeResult(times []float64, samples [][][]float64) *geometry.FootprintResult {
	res := &geometry.FootprintResult{Times: times}
	for _, rings := range samples {
		for _, ring := range rings {
			res.Rings.Append(ring)
		}
		res.TimeSizes = append(res.TimeSizes, uint32(len(rings)))
	}
	return res
}

func triangle(lonShift, latShift float64) []float64 {
	return []float64{
		0 + lonShift, 0 + latShift,
		10 + lonShift, 0 + latShift,
		5 + lonShift, 8 + latShift,
	}
}

func TestBisect(t *testing.T) {
	times := []float64{100, 200, 300, 400}
	cases := []struct {
		t    float64
		want int
	}{
		{50, 0},   // clamped low
		{100, 0},  // exact first
		{150, 0},  // between
		{200, 1},  // exact middle
		{399, 2},  // just before
		{400, 3},  // exact last
		{1000, 3}, // clamped high
	}
	for _, tc := range cases {
		if got := Bisect(times, tc.t); got != tc.want {
			t.Errorf("Bisect(%v) = %d, want %d", tc.t, got, tc.want)
		}
	}
	if got := Bisect(nil, 5); got != -1 {
		t.Errorf("Bisect(empty) = %d, want -1", got)
	}
}

func TestLerpLon(t *testing.T) {
	if got := LerpLon(0, 10, 0.5); got != 5 {
		t.Errorf("LerpLon(0,10,0.5) = %v, want 5", got)
	}
	if got := LerpLon(20, -20, 0.5); got != 0 {
		t.Errorf("LerpLon(20,-20,0.5) = %v, want 0", got)
	}
	// Across the dateline the short path passes ±180.
	if got := math.Abs(LerpLon(170, -170, 0.5)); math.Abs(got-180) > 1e-9 {
		t.Errorf("|LerpLon(170,-170,0.5)| = %v, want 180", got)
	}
	if got := LerpLon(170, -170, 0.25); math.Abs(got-175) > 1e-9 {
		t.Errorf("LerpLon(170,-170,0.25) = %v, want 175", got)
	}
}

func TestInterpolateMidpoint(t *testing.T) {
	res := makeResult(
		[]float64{0, 1000},
		[][][]float64{
			{triangle(0, 0)},
			{triangle(10, 4)},
		},
	)
	l := NewLookup(res)

	ring, ok := l.Interpolate(500, 0)
	if !ok {
		t.Fatal("expected a polygon")
	}
	want := triangle(5, 2)
	for i := range want {
		if math.Abs(ring[i]-want[i]) > 1e-9 {
			t.Errorf("vertex %d = %v, want %v", i, ring[i], want[i])
		}
	}
}

func TestInterpolateAtOrAfterLastSampleReturnsVerbatim(t *testing.T) {
	last := triangle(10, 4)
	res := makeResult(
		[]float64{0, 1000},
		[][][]float64{{triangle(0, 0)}, {last}},
	)
	l := NewLookup(res)

	for _, tm := range []float64{1000, 5000} {
		ring, ok := l.Interpolate(tm, 0)
		if !ok {
			t.Fatalf("t=%v: expected a polygon", tm)
		}
		for i := range last {
			if ring[i] != last[i] {
				t.Fatalf("t=%v: vertex %d = %v, want verbatim %v", tm, i, ring[i], last[i])
			}
		}
	}
}

func TestInterpolateSnapsAcrossTopologyChange(t *testing.T) {
	// Sample 0 has one ring, sample 1 is dateline-split into two.
	res := makeResult(
		[]float64{0, 1000},
		[][][]float64{
			{triangle(0, 0)},
			{triangle(160, 0), triangle(-175, 0)},
		},
	)
	l := NewLookup(res)

	// Closer to sample 0: its single ring, unmodified.
	ring, ok := l.Interpolate(200, 0)
	if !ok {
		t.Fatal("expected a polygon near sample 0")
	}
	want := triangle(0, 0)
	for i := range want {
		if ring[i] != want[i] {
			t.Fatalf("vertex %d = %v, want unmodified %v", i, ring[i], want[i])
		}
	}

	// Closer to sample 1: its first ring.
	ring, ok = l.Interpolate(800, 0)
	if !ok {
		t.Fatal("expected a polygon near sample 1")
	}
	want = triangle(160, 0)
	for i := range want {
		if ring[i] != want[i] {
			t.Fatalf("vertex %d = %v, want unmodified %v", i, ring[i], want[i])
		}
	}

	// Secondary ring exists only at sample 1.
	if _, ok := l.Interpolate(200, 1); ok {
		t.Error("secondary ring should be hidden near the unsplit sample")
	}
	if _, ok := l.Interpolate(800, 1); !ok {
		t.Error("secondary ring should appear near the split sample")
	}
}

func TestInterpolateSnapsOnVertexCountChange(t *testing.T) {
	square := []float64{0, 0, 10, 0, 10, 10, 0, 10}
	res := makeResult(
		[]float64{0, 1000},
		[][][]float64{{triangle(0, 0)}, {square}},
	)
	l := NewLookup(res)

	ring, ok := l.Interpolate(900, 0)
	if !ok {
		t.Fatal("expected a polygon")
	}
	if len(ring) != len(square) {
		t.Fatalf("snap returned %d values, want the nearer sample's %d", len(ring), len(square))
	}
}

func TestPolygonCountAt(t *testing.T) {
	res := makeResult(
		[]float64{0, 1000},
		[][][]float64{
			{triangle(0, 0)},
			{triangle(160, 0), triangle(-175, 0)},
		},
	)
	l := NewLookup(res)

	if got := l.PolygonCountAt(0); got != 1 {
		t.Errorf("PolygonCountAt(0) = %d, want 1", got)
	}
	if got := l.PolygonCountAt(999); got != 1 {
		t.Errorf("PolygonCountAt(999) = %d, want 1 (latest at-or-before)", got)
	}
	if got := l.PolygonCountAt(1000); got != 2 {
		t.Errorf("PolygonCountAt(1000) = %d, want 2", got)
	}
}

func TestInterpolateMissingPolygonIndex(t *testing.T) {
	res := makeResult([]float64{0, 1000}, [][][]float64{{triangle(0, 0)}, {triangle(1, 1)}})
	l := NewLookup(res)
	if _, ok := l.Interpolate(500, 1); ok {
		t.Error("nonexistent polygon index should return no polygon")
	}
	if _, ok := l.Interpolate(500, -1); ok {
		t.Error("negative polygon index should return no polygon")
	}
}
