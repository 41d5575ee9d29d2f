package compute

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

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

func issPair(t *testing.T) tle.Pair {
	t.Helper()
	pair, err := tle.NewPair(issLine1, issLine2)
	if err != nil {
		t.Fatalf("NewPair failed: %v", err)
	}
	return pair
}

func orbitRequest(t *testing.T, id string) Request {
	return Request{
		RequestID:     id,
		TargetID:      "iss",
		Pair:          issPair(t),
		WindowStartMs: windowStart,
		DurationMs:    60_000,
		StepSec:       30,
		Outputs:       OutputsWanted{Orbit: true},
	}
}

func TestPoolComputesOrbit(t *testing.T) {
	p := NewPool(2, testLogger())
	defer p.Close()

	results := make(chan Result, 1)
	p.Post(orbitRequest(t, NewRequestID()), func(r Result) { results <- r })

	r := <-results
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if r.Response.Orbit == nil {
		t.Fatal("orbit output missing")
	}
	if len(r.Response.Orbit.Positions) != 3*len(r.Response.Orbit.Times) {
		t.Errorf("positions/times mismatch: %d vs %d",
			len(r.Response.Orbit.Positions), len(r.Response.Orbit.Times))
	}
}

func TestPoolFIFOQueueOrder(t *testing.T) {
	// A single unit makes completion order fully deterministic: every job
	// after the first queues, and the queue must drain in arrival order.
	p := NewPool(1, testLogger())

	const n = 6
	ids := make([]string, n)
	order := make(chan string, n)
	for i := 0; i < n; i++ {
		ids[i] = NewRequestID()
		p.Post(orbitRequest(t, ids[i]), func(r Result) {
			if r.Response != nil {
				order <- r.Response.RequestID
			} else {
				order <- r.Err.RequestID
			}
		})
	}
	p.Close()
	close(order)

	i := 0
	for id := range order {
		if id != ids[i] {
			t.Fatalf("completion %d = %s, want %s (FIFO violated)", i, id, ids[i])
		}
		i++
	}
	if i != n {
		t.Fatalf("completed %d jobs, want %d", i, n)
	}
	if p.QueueDepth() != 0 {
		t.Errorf("queue depth after drain = %d, want 0", p.QueueDepth())
	}
}

func TestPoolReleasesUnitAfterError(t *testing.T) {
	p := NewPool(1, testLogger())
	defer p.Close()

	results := make(chan Result, 2)

	bad := orbitRequest(t, "bad-step")
	bad.StepSec = 0
	p.Post(bad, func(r Result) { results <- r })
	p.Post(orbitRequest(t, "good"), func(r Result) { results <- r })

	first := <-results
	if first.Err == nil {
		t.Fatal("expected error for zero step")
	}
	if first.Err.RequestID != "bad-step" {
		t.Errorf("error routed to %s, want bad-step", first.Err.RequestID)
	}

	second := <-results
	if second.Err != nil {
		t.Fatalf("unit did not recover after failed job: %v", second.Err)
	}
	if second.Response.RequestID != "good" {
		t.Errorf("response routed to %s, want good", second.Response.RequestID)
	}
}

func TestPoolRecoversPanicAndReleasesUnit(t *testing.T) {
	p := NewPool(1, testLogger())
	defer p.Close()

	results := make(chan Result, 2)

	// A zero-value element pair bypasses format validation, and the SGP4
	// library panics slicing lines shorter than the fixed TLE columns.
	// The unit must convert that into an error response and keep running.
	bad := orbitRequest(t, "panics")
	bad.Pair = tle.Pair{}
	p.Post(bad, func(r Result) { results <- r })
	p.Post(orbitRequest(t, "good"), func(r Result) { results <- r })

	first := <-results
	if first.Err == nil {
		t.Fatal("expected error from panicking job")
	}
	if first.Err.RequestID != "panics" {
		t.Errorf("error routed to %s, want panics", first.Err.RequestID)
	}
	if !strings.HasPrefix(first.Err.Message, "internal error") {
		t.Errorf("message %q does not mark a recovered failure", first.Err.Message)
	}

	second := <-results
	if second.Err != nil {
		t.Fatalf("unit did not re-enter rotation after panic: %v", second.Err)
	}
	if second.Response.RequestID != "good" {
		t.Errorf("response routed to %s, want good", second.Response.RequestID)
	}
}

func TestPoolSwathErrorScopedToRequest(t *testing.T) {
	p := NewPool(2, testLogger())
	defer p.Close()

	results := make(chan Result, 2)

	swathReq := orbitRequest(t, "swath-bad")
	swathReq.Outputs = OutputsWanted{Swath: true}
	swathReq.SwathParams = &geometry.SwathParams{
		Ranges: []geometry.OffnadirRange{{MinDeg: 30, MaxDeg: -10}},
	}
	p.Post(swathReq, func(r Result) { results <- r })
	p.Post(orbitRequest(t, "ok"), func(r Result) { results <- r })

	var sawErr, sawOK bool
	for i := 0; i < 2; i++ {
		r := <-results
		if r.Err != nil {
			if r.Err.RequestID != "swath-bad" {
				t.Errorf("error for %s, want swath-bad", r.Err.RequestID)
			}
			sawErr = true
		} else {
			if r.Response.RequestID != "ok" {
				t.Errorf("response for %s, want ok", r.Response.RequestID)
			}
			sawOK = true
		}
	}
	if !sawErr || !sawOK {
		t.Error("expected one error and one success")
	}
}

func TestDefaultPoolSizeBounded(t *testing.T) {
	n := DefaultPoolSize()
	if n < 1 || n > 6 {
		t.Errorf("DefaultPoolSize = %d, want within [1, 6]", n)
	}
}

func TestRequestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewRequestID()
		if seen[id] {
			t.Fatalf("duplicate request id %s", id)
		}
		seen[id] = true
	}
}
