// Package session orchestrates the computation flow: callers build a
// request, the session consults the result cache, posts misses to the
// worker pool, stores completed products back, and hands out interpolator
// lookups over cached footprints.
//
// The session holds the one cache instance of the process. Every completion
// path writes to it; identical keys always recompute to equivalent values,
// so out-of-order completions are safe without extra synchronization.
package session

import (
	"log/slog"
	"time"

	"github.com/chocolat0w0/globe-3d-tle/internal/cache"
	"github.com/chocolat0w0/globe-3d-tle/internal/compute"
	"github.com/chocolat0w0/globe-3d-tle/internal/geometry"
	"github.com/chocolat0w0/globe-3d-tle/internal/interp"
	"github.com/chocolat0w0/globe-3d-tle/internal/metrics"
	"github.com/chocolat0w0/globe-3d-tle/internal/propagation"
)

// Config sizes the session's cache and pool.
type Config struct {
	CacheCapacity int // entries; default 256
	PoolSize      int // worker units; <=0 means min(parallelism, 6)
}

// DefaultCacheCapacity bounds cached windows across all targets.
const DefaultCacheCapacity = 256

// Session owns the computation cache and worker pool for one process.
type Session struct {
	logger *slog.Logger
	cache  *cache.LRU[any]
	pool   *compute.Pool
}

// New constructs a session. The cache is created once here and lives until
// Close.
func New(cfg Config, logger *slog.Logger) (*Session, error) {
	capacity := cfg.CacheCapacity
	if capacity == 0 {
		capacity = DefaultCacheCapacity
	}
	c, err := cache.New[any](capacity, nil)
	if err != nil {
		return nil, err
	}

	s := &Session{
		logger: logger,
		cache:  c,
		pool:   compute.NewPool(cfg.PoolSize, logger),
	}
	logger.Info("session started", "cache_capacity", capacity)
	return s, nil
}

// Close drains the pool and releases every cached result.
func (s *Session) Close() {
	s.pool.Close()
	s.cache.Clear()
	s.logger.Info("session closed")
}

// CacheStats exposes current cache counters.
func (s *Session) CacheStats() cache.Stats {
	return s.cache.Snapshot()
}

// InvalidateTarget releases every cached window belonging to one target,
// e.g. when the target is disabled or its element set changes.
func (s *Session) InvalidateTarget(targetID string) int {
	removed := s.cache.DeletePrefix(TargetPrefix(targetID))
	if removed > 0 {
		s.logger.Debug("target invalidated", "target_id", targetID, "entries_removed", removed)
	}
	s.publishGauges()
	return removed
}

// Compute resolves a request through the cache and pool. fn receives the
// result exactly once: synchronously when every wanted product is cached,
// otherwise from a worker unit on completion. Stale responses are the
// caller's concern — compare RequestID on arrival.
func (s *Session) Compute(req compute.Request, fn func(compute.Result)) {
	if req.RequestID == "" {
		req.RequestID = compute.NewRequestID()
	}
	start := time.Now()

	resp := &compute.Response{
		RequestID:     req.RequestID,
		TargetID:      req.TargetID,
		WindowStartMs: req.WindowStartMs,
		StepSec:       req.StepSec,
	}

	// Pull whatever is already cached and strip it from the posted request.
	missing := req.Outputs
	if req.Outputs.Orbit {
		if v, ok := s.cache.Get(OrbitKey(req.TargetID, req.WindowStartMs, req.StepSec)); ok {
			resp.Orbit = v.(*propagation.Samples)
			missing.Orbit = false
			metrics.IncCacheHits()
		} else {
			metrics.IncCacheMisses()
		}
	}
	if req.Outputs.Footprint {
		if v, ok := s.cache.Get(s.footprintKey(req)); ok {
			resp.Footprint = v.(*geometry.FootprintResult)
			missing.Footprint = false
			metrics.IncCacheHits()
		} else {
			metrics.IncCacheMisses()
		}
	}
	if req.Outputs.Swath {
		if v, ok := s.cache.Get(s.swathKey(req)); ok {
			resp.Swath = v.(*geometry.SwathResult)
			missing.Swath = false
			metrics.IncCacheHits()
		} else {
			metrics.IncCacheMisses()
		}
	}

	if !missing.Orbit && !missing.Footprint && !missing.Swath {
		metrics.ObserveComputeDuration(time.Since(start), "cached")
		fn(compute.Result{Response: resp})
		return
	}

	posted := req
	posted.Outputs = missing
	s.pool.Post(posted, func(r compute.Result) {
		defer s.publishGauges()

		if r.Err != nil {
			metrics.ObserveComputeDuration(time.Since(start), "error")
			fn(r)
			return
		}

		s.store(posted, r.Response)

		// Merge cached products back in; computed ones win where both exist.
		if r.Response.Orbit == nil {
			r.Response.Orbit = resp.Orbit
		}
		if r.Response.Footprint == nil {
			r.Response.Footprint = resp.Footprint
		}
		if r.Response.Swath == nil {
			r.Response.Swath = resp.Swath
		}

		metrics.ObserveComputeDuration(time.Since(start), "ok")
		fn(r)
	})
	s.publishGauges()
}

// store writes computed products into the cache. Last writer wins; since
// equal keys recompute to equivalent values this is idempotent.
func (s *Session) store(req compute.Request, resp *compute.Response) {
	if resp.Orbit != nil {
		s.cache.Set(OrbitKey(req.TargetID, req.WindowStartMs, req.StepSec), resp.Orbit)
	}
	if resp.Footprint != nil {
		s.cache.Set(s.footprintKey(req), resp.Footprint)
	}
	if resp.Swath != nil {
		s.cache.Set(s.swathKey(req), resp.Swath)
	}
}

// FootprintLookup builds an interpolator over the cached footprint result
// for the given window and parameters. Returns false on a cache miss; the
// lookup must be rebuilt after the underlying window is recomputed.
func (s *Session) FootprintLookup(targetID string, windowStartMs int64, stepSec float64, params geometry.FootprintParams) (*interp.Lookup, bool) {
	v, ok := s.cache.Get(FootprintKey(targetID, windowStartMs, stepSec, params))
	if !ok {
		return nil, false
	}
	return interp.NewLookup(v.(*geometry.FootprintResult)), true
}

func (s *Session) footprintKey(req compute.Request) string {
	params := geometry.FootprintParams{}
	if req.FootprintParams != nil {
		params = *req.FootprintParams
	}
	return FootprintKey(req.TargetID, req.WindowStartMs, req.StepSec, params)
}

func (s *Session) swathKey(req compute.Request) string {
	params := geometry.SwathParams{}
	if req.SwathParams != nil {
		params = *req.SwathParams
	}
	return SwathKey(req.TargetID, req.WindowStartMs, req.StepSec, params)
}

func (s *Session) publishGauges() {
	st := s.cache.Snapshot()
	metrics.SetCacheState(st.Entries, st.EstimatedBytes, st.Evictions)
	metrics.SetPoolState(s.pool.QueueDepth(), s.pool.BusyUnits())
}
