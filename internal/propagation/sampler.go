package propagation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chocolat0w0/globe-3d-tle/internal/tle"
	"github.com/chocolat0w0/globe-3d-tle/internal/transform"
)

// MaxSamples caps the number of instants a single request may sample.
// The cap is checked before any propagation runs.
const MaxSamples = 100000

// ErrTooManySamples is returned when a window/step combination would exceed
// MaxSamples.
var ErrTooManySamples = errors.New("sample count exceeds cap")

// Samples is a windowed orbit result: parallel time and position arrays in
// the surface-fixed frame.
//
// Times is the authoritative index. Instants where propagation failed are
// omitted entirely, so len(Times) may be shorter than the nominal grid and
// consumers must resolve instants by searching Times, never by grid index.
type Samples struct {
	Times     []float64 // epoch milliseconds
	Positions []float64 // ECEF meters, x,y,z per sample; len == 3*len(Times)
}

// CheckStep validates a sampling interval and returns the nominal sample
// count for the window. Fails on non-finite or non-positive steps and on
// windows exceeding MaxSamples.
func CheckStep(durationMs int64, stepSec float64) (int, error) {
	if math.IsNaN(stepSec) || math.IsInf(stepSec, 0) || stepSec <= 0 {
		return 0, fmt.Errorf("sampling interval must be finite and positive, got %v", stepSec)
	}
	if durationMs < 0 {
		return 0, fmt.Errorf("window duration must be non-negative, got %dms", durationMs)
	}

	stepMs := stepSec * 1000.0
	count := int(math.Floor(float64(durationMs)/stepMs)) + 1
	if count > MaxSamples {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManySamples, count, MaxSamples)
	}
	return count, nil
}

// Sample propagates the element pair across [startMs, startMs+durationMs] at
// stepSec intervals and returns surface-fixed positions.
//
// An unparseable or uninitializable element pair is a hard error. A failure
// at an individual instant silently drops that sample.
func Sample(pair tle.Pair, startMs, durationMs int64, stepSec float64) (Samples, error) {
	count, err := CheckStep(durationMs, stepSec)
	if err != nil {
		return Samples{}, err
	}

	prop, err := NewSGP4(pair)
	if err != nil {
		return Samples{}, err
	}

	out := Samples{
		Times:     make([]float64, 0, count),
		Positions: make([]float64, 0, 3*count),
	}
	stepMs := stepSec * 1000.0
	for i := 0; i < count; i++ {
		tMs := float64(startMs) + float64(i)*stepMs
		ecef, err := prop.AtECEF(msToTime(tMs))
		if err != nil || !transform.ValidateECEF(ecef) {
			continue
		}
		out.Times = append(out.Times, tMs)
		out.Positions = append(out.Positions, ecef.X, ecef.Y, ecef.Z)
	}
	return out, nil
}

// msToTime converts epoch milliseconds to a UTC time.
func msToTime(ms float64) time.Time {
	sec := int64(ms) / 1000
	nsec := (int64(ms) % 1000) * int64(time.Millisecond)
	return time.Unix(sec, nsec).UTC()
}
