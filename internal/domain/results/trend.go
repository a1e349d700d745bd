package results

import (
	"fmt"
	"math"
)

// Trend is a display-ready summary of how a test's values are moving.
type Trend struct {
	Arrow string `json:"arrow"`
	Color string `json:"color"`
	Title string `json:"title"`
}

const (
	arrowFlat = "→"
	arrowUp   = "↑"
	arrowDown = "↓"

	colorNeutral  = "#64748b"
	colorPositive = "#16a34a"
	colorNegative = "#dc2626"
)

// trendFlatFraction and trendMagnitudeFraction size the dead zone below
// which a change is reported as flat.
const (
	trendFlatFraction      = 0.1
	trendMagnitudeFraction = 0.001
	trendEpsilon           = 1e-6
)

// steepFraction is the share of the observed value range that a full-series
// drift must exceed to be considered steep.
const steepFraction = 0.5

// linearSlope fits an ordinary least-squares slope of ys against a 0-based
// integer index. Index spacing is uniform regardless of actual elapsed
// time between measurements.
func linearSlope(ys []float64) float64 {
	n := float64(len(ys))
	if n < 2 {
		return 0
	}
	meanX := (n - 1) / 2
	var meanY float64
	for _, y := range ys {
		meanY += y
	}
	meanY /= n

	var num, den float64
	for i, y := range ys {
		dx := float64(i) - meanX
		num += dx * (y - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// arrowForChange maps a computed change to an arrow and color, treating
// changes inside the dead zone as flat.
func arrowForChange(change float64, ys []float64) (string, string) {
	minY, maxY := ys[0], ys[0]
	for _, y := range ys[1:] {
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	spread := maxY - minY
	thresh := math.Max(spread*trendFlatFraction, math.Max(math.Abs(maxY)*trendMagnitudeFraction, trendEpsilon))

	if spread == 0 || math.Abs(change) < thresh {
		return arrowFlat, colorNeutral
	}
	if change > 0 {
		return arrowUp, colorPositive
	}
	return arrowDown, colorNegative
}

// TrendAll computes the all-history trend for a sorted series of values.
// Returns nil when fewer than 2 points are available.
func TrendAll(ys []float64) *Trend {
	if len(ys) < 2 {
		return nil
	}
	w := linearSlope(ys)
	change := w * float64(len(ys)-1)
	arrow, color := arrowForChange(change, ys)
	return &Trend{
		Arrow: arrow,
		Color: color,
		Title: fmt.Sprintf("Trend across all (%d) values: change=%.4f", len(ys), change),
	}
}

// TrendLast2 computes the trend between the two most recent values.
// Returns nil when fewer than 2 points are available.
func TrendLast2(ys []float64) *Trend {
	if len(ys) < 2 {
		return nil
	}
	last2 := ys[len(ys)-2:]
	change := last2[1] - last2[0]
	arrow, color := arrowForChange(change, last2)
	return &Trend{
		Arrow: arrow,
		Color: color,
		Title: fmt.Sprintf("Change last 2: Δ=%.4f", change),
	}
}

// IsSteepTrend reports whether the full-series drift exceeds half the
// observed value range. Requires at least 3 points.
func IsSteepTrend(ys []float64) bool {
	if len(ys) < 3 {
		return false
	}
	w := linearSlope(ys)
	change := w * float64(len(ys)-1)

	minY, maxY := ys[0], ys[0]
	for _, y := range ys[1:] {
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	spread := maxY - minY
	if spread == 0 {
		spread = 1
	}
	return math.Abs(change) > steepFraction*spread
}
