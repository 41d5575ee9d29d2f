package compute

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/chocolat0w0/globe-3d-tle/internal/geometry"
	"github.com/chocolat0w0/globe-3d-tle/internal/propagation"
)

// maxPoolSize bounds the pool regardless of available parallelism.
const maxPoolSize = 6

// DefaultPoolSize is min(available parallelism, 6).
func DefaultPoolSize() int {
	n := runtime.GOMAXPROCS(0)
	if n > maxPoolSize {
		return maxPoolSize
	}
	if n < 1 {
		return 1
	}
	return n
}

type job struct {
	req Request
	fn  func(Result)
}

// Pool dispatches computation requests across a fixed set of isolated
// worker units. Units share no mutable state; communication is
// message-passing only. When every unit is busy, excess requests queue in
// strict arrival order, and each unit completion dispatches the next queued
// request before the unit returns to the idle set.
type Pool struct {
	logger *slog.Logger
	units  []chan job
	posts  chan job
	done   chan int
	wg     sync.WaitGroup

	queueDepth atomic.Int64
	busyUnits  atomic.Int64
}

// NewPool starts a pool with the given unit count; size <= 0 uses
// DefaultPoolSize.
func NewPool(size int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = DefaultPoolSize()
	}
	p := &Pool{
		logger: logger,
		units:  make([]chan job, size),
		posts:  make(chan job, size),
		done:   make(chan int, size),
	}

	for i := range p.units {
		p.units[i] = make(chan job)
		p.wg.Add(1)
		go p.runUnit(i, p.units[i])
	}

	p.wg.Add(1)
	go p.dispatch()

	logger.Info("worker pool started", "units", size)
	return p
}

// Post hands a request to the pool and returns without blocking on the
// computation; fn runs on a worker unit when the job completes, with either
// a response or an error. The pool guarantees delivery, not relevance:
// callers detect stale completions by RequestID. Post must not be called
// after Close.
func (p *Pool) Post(req Request, fn func(Result)) {
	p.posts <- job{req: req, fn: fn}
}

// Close stops intake, drains queued work, and waits for in-flight jobs.
func (p *Pool) Close() {
	close(p.posts)
	p.wg.Wait()
}

// QueueDepth returns the number of requests waiting for a free unit.
func (p *Pool) QueueDepth() int {
	return int(p.queueDepth.Load())
}

// BusyUnits returns the number of units currently executing a job.
func (p *Pool) BusyUnits() int {
	return int(p.busyUnits.Load())
}

// dispatch owns the idle set and the FIFO overflow queue. Jobs go straight
// to an idle unit when one exists; otherwise they queue in arrival order. A
// completing unit takes the queue head before idling, so queued work drains
// in strict FIFO order across all callers.
func (p *Pool) dispatch() {
	defer p.wg.Done()

	idle := make([]int, len(p.units))
	for i := range idle {
		idle[i] = i
	}
	var queue []job
	posts := p.posts

	for {
		select {
		case j, ok := <-posts:
			if !ok {
				posts = nil
				break
			}
			if len(idle) > 0 {
				i := idle[len(idle)-1]
				idle = idle[:len(idle)-1]
				p.busyUnits.Add(1)
				p.units[i] <- j
			} else {
				queue = append(queue, j)
				p.queueDepth.Add(1)
			}
		case i := <-p.done:
			if len(queue) > 0 {
				j := queue[0]
				queue = queue[1:]
				p.queueDepth.Add(-1)
				p.units[i] <- j
			} else {
				p.busyUnits.Add(-1)
				idle = append(idle, i)
			}
		}

		if posts == nil && len(queue) == 0 && len(idle) == len(p.units) {
			for _, ch := range p.units {
				close(ch)
			}
			return
		}
	}
}

// runUnit executes jobs for one worker unit. A failing job (error or
// recovered panic) still releases the unit back into rotation; pool
// capacity is never lost to a single bad job.
func (p *Pool) runUnit(id int, jobs chan job) {
	defer p.wg.Done()
	for j := range jobs {
		j.fn(p.executeSafe(j.req))
		p.done <- id
	}
}

// executeSafe runs one request, converting panics into protocol errors.
func (p *Pool) executeSafe(req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker unit recovered from panic",
				"request_id", req.RequestID, "panic", fmt.Sprint(r))
			res = Result{Err: &Error{
				RequestID: req.RequestID,
				TargetID:  req.TargetID,
				Message:   fmt.Sprintf("internal error: %v", r),
			}}
		}
	}()
	return execute(req)
}

// execute runs the requested products in order. Validation failures and
// whole-window swath failures abort the request with a protocol error;
// per-sample skips inside orbit and footprint generation are not errors.
func execute(req Request) Result {
	fail := func(err error) Result {
		return Result{Err: &Error{
			RequestID: req.RequestID,
			TargetID:  req.TargetID,
			Message:   err.Error(),
		}}
	}

	resp := &Response{
		RequestID:     req.RequestID,
		TargetID:      req.TargetID,
		WindowStartMs: req.WindowStartMs,
		StepSec:       req.StepSec,
	}

	if req.Outputs.Orbit {
		s, err := propagation.Sample(req.Pair, req.WindowStartMs, req.DurationMs, req.StepSec)
		if err != nil {
			return fail(err)
		}
		resp.Orbit = &s
	}

	if req.Outputs.Footprint {
		params := geometry.FootprintParams{}
		if req.FootprintParams != nil {
			params = *req.FootprintParams
		}
		fp, err := geometry.Footprints(req.Pair, req.WindowStartMs, req.DurationMs, req.StepSec, params)
		if err != nil {
			return fail(err)
		}
		resp.Footprint = &fp
	}

	if req.Outputs.Swath {
		params := geometry.SwathParams{}
		if req.SwathParams != nil {
			params = *req.SwathParams
		}
		sw, err := geometry.Swath(req.Pair, req.WindowStartMs, req.DurationMs, req.StepSec, params)
		if err != nil {
			return fail(err)
		}
		resp.Swath = &sw
	}

	return Result{Response: resp}
}
