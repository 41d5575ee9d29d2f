// Package tle holds the two-line element pair type and its format validation.
//
// A Pair is immutable input: it is validated once on construction and parsed
// into SGP4 propagation state once per computation. Validation here is strict
// about line structure because the underlying SGP4 library calls log.Fatal on
// malformed input, which would kill the process.
package tle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lineLen is the fixed width of a standard catalog element line.
const lineLen = 69

// Pair is a satellite's two-line element set at a reference epoch.
type Pair struct {
	Line1 string
	Line2 string
}

// NewPair validates the two element lines and returns an immutable Pair.
func NewPair(line1, line2 string) (Pair, error) {
	line1 = strings.TrimRight(line1, "\r\n ")
	line2 = strings.TrimRight(line2, "\r\n ")

	if len(line1) != lineLen {
		return Pair{}, fmt.Errorf("element line1 length %d, expected %d", len(line1), lineLen)
	}
	if len(line2) != lineLen {
		return Pair{}, fmt.Errorf("element line2 length %d, expected %d", len(line2), lineLen)
	}
	if line1[0] != '1' {
		return Pair{}, fmt.Errorf("element line1 must start with '1', got %q", line1[0])
	}
	if line2[0] != '2' {
		return Pair{}, fmt.Errorf("element line2 must start with '2', got %q", line2[0])
	}

	// Catalog number occupies cols 3-7 on both lines and must agree.
	n1 := strings.TrimSpace(line1[2:7])
	n2 := strings.TrimSpace(line2[2:7])
	if n1 != n2 {
		return Pair{}, fmt.Errorf("catalog number mismatch between lines: %q vs %q", n1, n2)
	}
	if _, err := strconv.Atoi(n1); err != nil {
		return Pair{}, fmt.Errorf("invalid catalog number %q: %w", n1, err)
	}

	return Pair{Line1: line1, Line2: line2}, nil
}

// CatalogNumber returns the satellite catalog number encoded in the pair.
func (p Pair) CatalogNumber() int {
	n, _ := strconv.Atoi(strings.TrimSpace(p.Line1[2:7]))
	return n
}

// Epoch returns the element-set epoch from line1 cols 19-32
// (YYDDD.DDDDDDDD). Years 00-56 map to the 2000s, 57-99 to the 1900s.
func (p Pair) Epoch() (time.Time, error) {
	if len(p.Line1) < 32 {
		return time.Time{}, fmt.Errorf("line1 too short for epoch field")
	}
	s := strings.TrimSpace(p.Line1[18:32])
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// Day-of-year is 1-based: day 1 = Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
