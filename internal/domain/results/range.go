package results

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Range is a parsed reference range. AlwaysGreen marks a range string that
// was present but unparseable: the value is displayed but never flagged.
type Range struct {
	Low         float64
	High        float64
	AlwaysGreen bool
}

// Severity classifies a measurement relative to its reference range.
type Severity string

const (
	SeverityIn     Severity = "in"
	SeveritySlight Severity = "slight"
	SeverityFar    Severity = "far"
)

// slightRatio is the distance-to-span ratio at or below which an
// out-of-range value is only slightly out.
const slightRatio = 0.25

// NoRange is the sentinel stored when a report carries no usable range.
const NoRange = "NO_RANGE"

var (
	rangePattern   = regexp.MustCompile(`(?i)\s*([+-]?\d*\.?\d+)\s*<\s*x\s*<\s*([+-]?\d*\.?\d+)`)
	leadingFloatRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// ParseLeadingFloat parses the longest numeric prefix of s, ignoring
// leading whitespace. Returns NaN when s has no numeric prefix, so
// "5.2 (high)" parses as 5.2 and "positive" parses as NaN.
func ParseLeadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	m := leadingFloatRe.FindString(s)
	if m == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParseRange interprets a reference-range string.
//
// Returns nil when there is no usable bound (empty, NO_RANGE, or a matched
// pattern with a non-finite number): the value is treated as always in
// range. A present but unrecognized range string returns the AlwaysGreen
// sentinel instead, so bad range text fails open rather than flagging.
func ParseRange(s string) *Range {
	s = strings.TrimSpace(s)
	if s == "" || s == NoRange {
		return nil
	}
	s = strings.TrimSuffix(s, "*")

	m := rangePattern.FindStringSubmatch(s)
	if m == nil {
		return &Range{Low: -1, High: -1, AlwaysGreen: true}
	}

	low, errLow := strconv.ParseFloat(m[1], 64)
	high, errHigh := strconv.ParseFloat(m[2], 64)
	if errLow != nil || errHigh != nil || !isFinite(low) || !isFinite(high) {
		return nil
	}
	return &Range{Low: low, High: high}
}

// RangeSeverity classifies a value string against a reference-range string.
// Unassessable values (non-numeric value, no range, unparseable range) are
// reported as in range rather than raising a false alarm.
func RangeSeverity(value, referenceRange string) Severity {
	v := ParseLeadingFloat(value)
	if !isFinite(v) {
		return SeverityIn
	}
	rng := ParseRange(referenceRange)
	if rng == nil || rng.AlwaysGreen {
		return SeverityIn
	}
	// Open interval: boundary values count as out of range.
	if v > rng.Low && v < rng.High {
		return SeverityIn
	}

	span := rng.High - rng.Low
	if span == 0 {
		span = 1
	}
	var distRatio float64
	if v <= rng.Low {
		distRatio = (rng.Low - v) / span
	} else {
		distRatio = (v - rng.High) / span
	}
	if distRatio <= slightRatio {
		return SeveritySlight
	}
	return SeverityFar
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
