package session

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/chocolat0w0/globe-3d-tle/internal/compute"
	"github.com/chocolat0w0/globe-3d-tle/internal/geometry"
	"github.com/chocolat0w0/globe-3d-tle/internal/tle"
)

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

var windowStart = time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC).UnixMilli()

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(Config{CacheCapacity: 16, PoolSize: 2}, testLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func footprintRequest(t *testing.T) compute.Request {
	t.Helper()
	pair, err := tle.NewPair(issLine1, issLine2)
	if err != nil {
		t.Fatalf("NewPair failed: %v", err)
	}
	return compute.Request{
		TargetID:      "iss",
		Pair:          pair,
		WindowStartMs: windowStart,
		DurationMs:    120_000,
		StepSec:       60,
		Outputs:       compute.OutputsWanted{Orbit: true, Footprint: true},
		FootprintParams: &geometry.FootprintParams{
			CrossTrackDeg: 5,
			AlongTrackDeg: 3,
			Ranges:        []geometry.OffnadirRange{{MinDeg: -20, MaxDeg: 20}},
		},
	}
}

func computeSync(t *testing.T, s *Session, req compute.Request) compute.Result {
	t.Helper()
	done := make(chan compute.Result, 1)
	s.Compute(req, func(r compute.Result) { done <- r })
	select {
	case r := <-done:
		return r
	case <-time.After(30 * time.Second):
		t.Fatal("computation timed out")
		return compute.Result{}
	}
}

func TestComputeMissThenHit(t *testing.T) {
	s := testSession(t)
	req := footprintRequest(t)

	r := computeSync(t, s, req)
	if r.Err != nil {
		t.Fatalf("compute failed: %v", r.Err)
	}
	if r.Response.Orbit == nil || r.Response.Footprint == nil {
		t.Fatal("missing products in response")
	}

	stats := s.CacheStats()
	if stats.Entries != 2 {
		t.Errorf("cache entries = %d, want 2 (orbit + footprint)", stats.Entries)
	}
	if stats.EstimatedBytes <= 0 {
		t.Error("estimated bytes should be positive after stores")
	}

	// Second identical request resolves from cache: same product pointers.
	r2 := computeSync(t, s, req)
	if r2.Err != nil {
		t.Fatalf("cached compute failed: %v", r2.Err)
	}
	if r2.Response.Orbit != r.Response.Orbit {
		t.Error("orbit not served from cache")
	}
	if r2.Response.Footprint != r.Response.Footprint {
		t.Error("footprint not served from cache")
	}
}

func TestComputeAssignsRequestID(t *testing.T) {
	s := testSession(t)
	req := footprintRequest(t)
	req.Outputs = compute.OutputsWanted{Orbit: true}
	req.FootprintParams = nil

	r := computeSync(t, s, req)
	if r.Err != nil {
		t.Fatalf("compute failed: %v", r.Err)
	}
	if r.Response.RequestID == "" {
		t.Error("response carries no request id")
	}
}

func TestParamsChangeMissesCache(t *testing.T) {
	s := testSession(t)
	req := footprintRequest(t)
	req.Outputs = compute.OutputsWanted{Footprint: true}

	r := computeSync(t, s, req)
	if r.Err != nil {
		t.Fatalf("compute failed: %v", r.Err)
	}

	wider := *req.FootprintParams
	wider.CrossTrackDeg = 10
	req2 := req
	req2.FootprintParams = &wider

	r2 := computeSync(t, s, req2)
	if r2.Err != nil {
		t.Fatalf("compute failed: %v", r2.Err)
	}
	if r2.Response.Footprint == r.Response.Footprint {
		t.Error("different parameters must not share a cache entry")
	}
	if s.CacheStats().Entries != 2 {
		t.Errorf("cache entries = %d, want 2 distinct footprint windows", s.CacheStats().Entries)
	}
}

func TestInvalidateTarget(t *testing.T) {
	s := testSession(t)
	req := footprintRequest(t)
	if r := computeSync(t, s, req); r.Err != nil {
		t.Fatalf("compute failed: %v", r.Err)
	}

	if removed := s.InvalidateTarget("iss"); removed != 2 {
		t.Errorf("removed %d entries, want 2", removed)
	}
	if s.CacheStats().Entries != 0 {
		t.Errorf("cache entries = %d after invalidation, want 0", s.CacheStats().Entries)
	}
}

func TestFootprintLookupFromCache(t *testing.T) {
	s := testSession(t)
	req := footprintRequest(t)
	if r := computeSync(t, s, req); r.Err != nil {
		t.Fatalf("compute failed: %v", r.Err)
	}

	l, ok := s.FootprintLookup("iss", req.WindowStartMs, req.StepSec, *req.FootprintParams)
	if !ok {
		t.Fatal("lookup miss for a just-computed window")
	}
	if n := l.PolygonCountAt(float64(req.WindowStartMs)); n < 1 {
		t.Errorf("PolygonCountAt(start) = %d, want >= 1", n)
	}

	if _, ok := s.FootprintLookup("other", req.WindowStartMs, req.StepSec, *req.FootprintParams); ok {
		t.Error("lookup hit for an uncached target")
	}
}

func TestComputeErrorRouting(t *testing.T) {
	s := testSession(t)
	req := footprintRequest(t)
	req.Outputs = compute.OutputsWanted{Swath: true}
	req.SwathParams = &geometry.SwathParams{
		Ranges: []geometry.OffnadirRange{{MinDeg: 30, MaxDeg: -10}},
	}
	req.RequestID = "bad-swath"

	r := computeSync(t, s, req)
	if r.Err == nil {
		t.Fatal("expected swath validation error")
	}
	if r.Err.RequestID != "bad-swath" {
		t.Errorf("error routed to %s, want bad-swath", r.Err.RequestID)
	}
	if s.CacheStats().Entries != 0 {
		t.Error("failed computation must not populate the cache")
	}
}

func TestKeyFormats(t *testing.T) {
	if got := OrbitKey("iss", 1700000000000, 5); got != "iss:1700000000000:5" {
		t.Errorf("OrbitKey = %q", got)
	}
	if got := OrbitKey("iss", 0, 0.5); got != "iss:0:0.5" {
		t.Errorf("OrbitKey fractional = %q", got)
	}

	p := geometry.FootprintParams{Ranges: []geometry.OffnadirRange{{MinDeg: 0, MaxDeg: 10}}}
	k1 := FootprintKey("iss", 0, 5, p)
	p.CrossTrackDeg = 1
	k2 := FootprintKey("iss", 0, 5, p)
	if k1 == k2 {
		t.Error("parameter change must change the footprint key")
	}
}
