package session

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"strconv"

	"github.com/chocolat0w0/globe-3d-tle/internal/geometry"
)

// Cache keys follow "{targetID}:{windowStartMs}:{stepSec}", with a parameter
// hash appended for products whose geometry depends on observation
// parameters. The target prefix makes per-target bulk invalidation a prefix
// delete.

// OrbitKey returns the cache key for an orbit sample window.
func OrbitKey(targetID string, windowStartMs int64, stepSec float64) string {
	return fmt.Sprintf("%s:%d:%s", targetID, windowStartMs, formatStep(stepSec))
}

// FootprintKey returns the cache key for a footprint window with the given
// observation parameters.
func FootprintKey(targetID string, windowStartMs int64, stepSec float64, params geometry.FootprintParams) string {
	h := fnv.New64a()
	hashFloat(h, params.CrossTrackDeg)
	hashFloat(h, params.AlongTrackDeg)
	for _, r := range params.Ranges {
		hashFloat(h, r.MinDeg)
		hashFloat(h, r.MaxDeg)
	}
	hashInt(h, int64(params.Subdivisions))
	return fmt.Sprintf("%s:%d:%s:fp%x", targetID, windowStartMs, formatStep(stepSec), h.Sum64())
}

// SwathKey returns the cache key for a swath window with the given
// observation parameters.
func SwathKey(targetID string, windowStartMs int64, stepSec float64, params geometry.SwathParams) string {
	h := fnv.New64a()
	for _, r := range params.Ranges {
		hashFloat(h, r.MinDeg)
		hashFloat(h, r.MaxDeg)
	}
	hashInt(h, int64(params.Subdivisions))
	return fmt.Sprintf("%s:%d:%s:sw%x", targetID, windowStartMs, formatStep(stepSec), h.Sum64())
}

// TargetPrefix returns the key prefix shared by every cached window of one
// target.
func TargetPrefix(targetID string) string {
	return targetID + ":"
}

func formatStep(stepSec float64) string {
	return strconv.FormatFloat(stepSec, 'g', -1, 64)
}

func hashFloat(h interface{ Write([]byte) (int, error) }, v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	h.Write(buf[:])
}

func hashInt(h interface{ Write([]byte) (int, error) }, v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	h.Write(buf[:])
}
