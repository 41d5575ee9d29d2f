// Package compute defines the request/response protocol between callers and
// the worker pool, and the pool itself.
//
// Payload buffers (position arrays, vertex buffers, offsets/counts) cross
// the worker boundary by ownership transfer, never by copy: once a request
// is posted its input belongs to the pool, and once the completion callback
// fires the response buffers belong to the caller. With tens of
// window×target jobs in flight this is a load-bearing contract, not a style
// preference.
package compute

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chocolat0w0/globe-3d-tle/internal/geometry"
	"github.com/chocolat0w0/globe-3d-tle/internal/propagation"
	"github.com/chocolat0w0/globe-3d-tle/internal/tle"
)

// OutputsWanted selects which products a request computes.
type OutputsWanted struct {
	Orbit     bool
	Footprint bool
	Swath     bool
}

// Request is one unit of computation work for the pool.
type Request struct {
	RequestID     string
	TargetID      string
	Pair          tle.Pair
	WindowStartMs int64
	DurationMs    int64
	StepSec       float64
	Outputs       OutputsWanted

	FootprintParams *geometry.FootprintParams
	SwathParams     *geometry.SwathParams
}

// NewRequestID returns a unique request identifier. Responses are routed
// back to callers purely by this ID; a caller that supersedes its own
// pending request discards stale arrivals by comparing it.
func NewRequestID() string {
	return uuid.NewString()
}

// Response carries the computed products, keyed back to its request.
type Response struct {
	RequestID     string
	TargetID      string
	WindowStartMs int64
	StepSec       float64

	Orbit     *propagation.Samples
	Footprint *geometry.FootprintResult
	Swath     *geometry.SwathResult
}

// Error is a computation failure scoped to a single request. It never
// affects other in-flight requests sharing the pool.
type Error struct {
	RequestID string
	TargetID  string
	Message   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("computation %s (target %s): %s", e.RequestID, e.TargetID, e.Message)
}

// Result is what a completion callback receives: exactly one of Response or
// Err is set.
type Result struct {
	Response *Response
	Err      *Error
}
