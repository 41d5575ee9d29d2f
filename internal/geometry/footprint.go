package geometry

import (
	"fmt"
	"math"
	"time"

	"github.com/chocolat0w0/globe-3d-tle/internal/propagation"
	"github.com/chocolat0w0/globe-3d-tle/internal/tle"
	"github.com/chocolat0w0/globe-3d-tle/internal/transform"
)

// FootprintParams describes the instrument geometry for footprint
// generation: field-of-view half-widths in degrees and the off-nadir
// coverage ranges. Subdivisions adds intermediate vertices per ring edge to
// follow surface curvature (0 means corner points only).
type FootprintParams struct {
	CrossTrackDeg float64 // FOV half-width across the ground track
	AlongTrackDeg float64 // FOV half-width along the ground track
	Ranges        []OffnadirRange
	Subdivisions  int
}

// vec3 is a small ECEF vector helper local to this package.
type vec3 struct{ x, y, z float64 }

func (v vec3) add(o vec3) vec3      { return vec3{v.x + o.x, v.y + o.y, v.z + o.z} }
func (v vec3) scale(s float64) vec3 { return vec3{v.x * s, v.y * s, v.z * s} }
func (v vec3) dot(o vec3) float64   { return v.x*o.x + v.y*o.y + v.z*o.z }
func (v vec3) norm() float64        { return math.Sqrt(v.dot(v)) }

func (v vec3) unit() (vec3, bool) {
	n := v.norm()
	if n < 1e-12 {
		return vec3{}, false
	}
	return v.scale(1 / n), true
}

func cross(a, b vec3) vec3 {
	return vec3{
		a.y*b.z - a.z*b.y,
		a.z*b.x - a.x*b.z,
		a.x*b.y - a.y*b.x,
	}
}

// orbitFrame is the nadir-pointing local frame at one orbit state:
// along points down-track, crossT completes the right-handed triad.
type orbitFrame struct {
	pos    vec3 // satellite ECEF position
	radial vec3 // unit vector away from Earth's center
	along  vec3 // unit along-track (from ECEF velocity)
	crossT vec3 // unit cross-track
}

// newOrbitFrame builds the local frame from a propagated ECEF state.
// Fails when the state is degenerate (zero position or velocity parallel to
// the radial direction).
func newOrbitFrame(state transform.ECEF) (orbitFrame, error) {
	pos := vec3{state.X, state.Y, state.Z}
	radial, ok := pos.unit()
	if !ok {
		return orbitFrame{}, fmt.Errorf("degenerate position")
	}

	vel := vec3{state.VX, state.VY, state.VZ}
	// Remove the radial component so along-track is tangent to the sphere.
	along, ok := vel.add(radial.scale(-vel.dot(radial))).unit()
	if !ok {
		return orbitFrame{}, fmt.Errorf("degenerate velocity")
	}

	crossT, ok := cross(radial, along).unit()
	if !ok {
		return orbitFrame{}, fmt.Errorf("degenerate frame")
	}

	return orbitFrame{pos: pos, radial: radial, along: along, crossT: crossT}, nil
}

// groundPoint projects the look direction tilted crossDeg off nadir in the
// cross-track direction and alongDeg in the along-track direction onto the
// spherical Earth, returning (lon, lat) in degrees. Angles at or beyond 90°
// and rays that miss the Earth fail.
func (f orbitFrame) groundPoint(crossDeg, alongDeg float64) (float64, float64, error) {
	if math.Abs(crossDeg) >= 90 || math.Abs(alongDeg) >= 90 {
		return 0, 0, fmt.Errorf("look angle beyond 90 degrees off nadir")
	}

	nadir := f.radial.scale(-1)
	dir, ok := nadir.
		add(f.crossT.scale(math.Tan(crossDeg * math.Pi / 180))).
		add(f.along.scale(math.Tan(alongDeg * math.Pi / 180))).
		unit()
	if !ok {
		return 0, 0, fmt.Errorf("degenerate look direction")
	}

	// Ray/sphere intersection: |pos + t*dir| = Re, nearest positive root.
	re := transform.MeanEarthRadiusM
	b := f.pos.dot(dir)
	c := f.pos.dot(f.pos) - re*re
	disc := b*b - c
	if disc < 0 {
		return 0, 0, fmt.Errorf("look ray misses the Earth")
	}
	t := -b - math.Sqrt(disc)
	if t <= 0 {
		return 0, 0, fmt.Errorf("surface intersection behind the instrument")
	}

	p := f.pos.add(dir.scale(t))
	g := transform.ECEFToGeodetic(p.x, p.y, p.z)
	return g.LonDeg, g.LatDeg, nil
}

// footprintRing walks the rectangular field-of-view perimeter in look-angle
// space and projects each vertex to the ground. cMin/cMax are the cross-track
// angular extent, aHalf the along-track half-width, all in degrees.
func (f orbitFrame) footprintRing(cMin, cMax, aHalf float64, subdiv int) ([]float64, error) {
	segs := subdiv + 1
	corners := [4][2]float64{
		{cMin, -aHalf},
		{cMax, -aHalf},
		{cMax, aHalf},
		{cMin, aHalf},
	}

	ring := make([]float64, 0, 2*4*segs)
	for e := 0; e < 4; e++ {
		c0 := corners[e]
		c1 := corners[(e+1)%4]
		for s := 0; s < segs; s++ {
			frac := float64(s) / float64(segs)
			lon, lat, err := f.groundPoint(c0[0]+frac*(c1[0]-c0[0]), c0[1]+frac*(c1[1]-c0[1]))
			if err != nil {
				return nil, err
			}
			ring = append(ring, lon, lat)
		}
	}
	return ring, nil
}

// Footprints generates a per-instant ground footprint across the window.
//
// The off-nadir ranges are validated first; the ring at each instant covers
// the combined cross-track extent of all ranges widened by the field-of-view
// half-widths. Instants where propagation or projection fails are omitted,
// so Times is the authoritative index. Element pairs that fail on every
// instant yield an empty result, not an error.
func Footprints(pair tle.Pair, startMs, durationMs int64, stepSec float64, params FootprintParams) (FootprintResult, error) {
	if err := ValidateOffnadirRanges(params.Ranges); err != nil {
		return FootprintResult{}, err
	}
	count, err := propagation.CheckStep(durationMs, stepSec)
	if err != nil {
		return FootprintResult{}, err
	}
	subdiv := params.Subdivisions
	if subdiv < 0 {
		subdiv = 0
	}

	prop, err := propagation.NewSGP4(pair)
	if err != nil {
		return FootprintResult{}, err
	}

	cMin := params.Ranges[0].MinDeg
	cMax := params.Ranges[0].MaxDeg
	for _, r := range params.Ranges[1:] {
		cMin = math.Min(cMin, r.MinDeg)
		cMax = math.Max(cMax, r.MaxDeg)
	}
	cMin -= params.CrossTrackDeg
	cMax += params.CrossTrackDeg

	var out FootprintResult
	stepMs := stepSec * 1000.0
	for i := 0; i < count; i++ {
		tMs := float64(startMs) + float64(i)*stepMs
		state, err := prop.AtECEF(msToTime(tMs))
		if err != nil {
			continue
		}
		frame, err := newOrbitFrame(state)
		if err != nil {
			continue
		}
		ring, err := frame.footprintRing(cMin, cMax, params.AlongTrackDeg, subdiv)
		if err != nil {
			continue
		}

		parts := SplitAntimeridian(ring)
		if len(parts) == 0 {
			continue
		}
		for _, part := range parts {
			out.Rings.Append(part)
		}
		out.TimeSizes = append(out.TimeSizes, uint32(len(parts)))
		out.Times = append(out.Times, tMs)
	}
	return out, nil
}

// msToTime converts epoch milliseconds to a UTC time.
func msToTime(ms float64) time.Time {
	sec := int64(ms) / 1000
	nsec := (int64(ms) % 1000) * int64(time.Millisecond)
	return time.Unix(sec, nsec).UTC()
}
