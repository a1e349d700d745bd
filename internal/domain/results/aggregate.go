package results

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// maxChartSeries caps how many tests a category chart plots at once.
const maxChartSeries = 6

// chartPalette is the line color cycle for category charts.
var chartPalette = []string{
	"#2563eb", "#dc2626", "#16a34a", "#9333ea",
	"#d97706", "#0891b2", "#be185d",
}

// ColorForIndex returns the chart line color for the i-th series.
func ColorForIndex(i int) string {
	return chartPalette[i%len(chartPalette)]
}

// qualitative units never chart as numbers.
func isQualitativeUnit(unit string) bool {
	u := strings.ToLower(strings.TrimSpace(unit))
	return u == "" || u == "qualitative" || u == "text"
}

var nonNumericChars = regexp.MustCompile(`[^0-9.+-]`)

// ParseNumeric returns the chartable numeric value of a row, or nil when
// the row is qualitative or its value has no usable number. Non-numeric
// rows stay in tabular views but are excluded from chart series.
func ParseNumeric(value, unit string) *float64 {
	if isQualitativeUnit(unit) {
		return nil
	}
	cleaned := nonNumericChars.ReplaceAllString(value, "")
	v := ParseLeadingFloat(cleaned)
	if !isFinite(v) {
		return nil
	}
	return &v
}

var trailingZeros = regexp.MustCompile(`(\.\d*?[1-9])0+$`)
var allZeroFraction = regexp.MustCompile(`\.0+$`)

// FormatValue renders a value string for display: numeric values are
// shown with up to four decimal places and no trailing zeros, anything
// non-numeric passes through unchanged.
func FormatValue(value string) string {
	v := ParseLeadingFloat(value)
	if !isFinite(v) {
		return value
	}
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = allZeroFraction.ReplaceAllString(s, "")
	s = trailingZeros.ReplaceAllString(s, "$1")
	return s
}

// ChartPoint is one date-keyed row of a merged chart series. The "_date"
// key holds the day; every other key is a test name mapped to its numeric
// value, or nil when the measurement that day was non-numeric.
type ChartPoint map[string]any

// TestTrends bundles the two trend variants computed per test.
type TestTrends struct {
	All   *Trend `json:"all,omitempty"`
	Last2 *Trend `json:"last2,omitempty"`
}

// OutOfRangeRow is a flagged measurement ready for display.
type OutOfRangeRow struct {
	TestName       string   `json:"test_name"`
	Category       string   `json:"category"`
	Value          string   `json:"value"`
	Unit           string   `json:"unit"`
	Date           string   `json:"date"`
	ReferenceRange string   `json:"reference_range"`
	Severity       Severity `json:"severity"`
}

// CategoryView is everything needed to render one category's dashboard:
// the merged chart series, per-test trends, and latest/historical/flagged
// row partitions.
type CategoryView struct {
	Category     string                `json:"category"`
	ChartData    []ChartPoint          `json:"chart_data"`
	TestNames    []string              `json:"test_names"`
	TestHasRange map[string]bool       `json:"test_has_range"`
	SeriesColors map[string]string     `json:"series_colors"`
	YDomain      [2]float64            `json:"y_domain"`
	LatestDate   string                `json:"latest_date"`
	Latest       []LabResult           `json:"latest"`
	Historical   []LabResult           `json:"historical"`
	OutOfRange   []OutOfRangeRow       `json:"out_of_range"`
	Trends       map[string]TestTrends `json:"trends"`
}

// categoryKey lowercases a row's category, defaulting empty to
// "uncategorized".
func categoryKey(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return "uncategorized"
	}
	return c
}

// GroupByCategory splits rows into category buckets in first-seen
// category order.
func GroupByCategory(rows []LabResult) (map[string][]LabResult, []string) {
	groups := make(map[string][]LabResult)
	var order []string
	for _, r := range rows {
		key := categoryKey(r.Category)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	return groups, order
}

// BuildCategoryView aggregates one category's rows into a chart-ready view.
// Rows are expected to already belong to the category; they are re-sorted
// ascending by effective date here.
func BuildCategoryView(category string, rows []LabResult) CategoryView {
	sorted := make([]LabResult, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp() < sorted[j].Timestamp()
	})

	view := CategoryView{
		Category:     categoryKey(category),
		TestHasRange: make(map[string]bool),
		SeriesColors: make(map[string]string),
		Trends:       make(map[string]TestTrends),
	}

	// Merge rows into one chart point per day, in first-seen day order.
	pointByDate := make(map[string]ChartPoint)
	var dateOrder []string
	// Test names grouped case-sensitively, in row order, capped for
	// chart legibility.
	seenTest := make(map[string]bool)

	for _, r := range sorted {
		day := r.DateKey()
		p, ok := pointByDate[day]
		if !ok {
			p = ChartPoint{"_date": day}
			pointByDate[day] = p
			dateOrder = append(dateOrder, day)
		}

		num := ParseNumeric(r.Value, r.Unit)
		if num != nil {
			p[r.TestName] = *num
		} else {
			p[r.TestName] = nil
		}

		if !seenTest[r.TestName] {
			seenTest[r.TestName] = true
			if len(view.TestNames) < maxChartSeries {
				view.TestNames = append(view.TestNames, r.TestName)
			}
		}
		if ParseRange(r.ReferenceRange) != nil {
			view.TestHasRange[r.TestName] = true
		}
		if view.LatestDate == "" || day > view.LatestDate {
			view.LatestDate = day
		}
	}

	for i, name := range view.TestNames {
		view.SeriesColors[name] = ColorForIndex(i)
	}

	view.ChartData = make([]ChartPoint, 0, len(dateOrder))
	for _, day := range dateOrder {
		view.ChartData = append(view.ChartData, pointByDate[day])
	}
	view.YDomain = computeYDomain(view.ChartData)

	// Latest partition: rows sharing the maximum date string exactly.
	for _, r := range sorted {
		if r.DateKey() == view.LatestDate {
			view.Latest = append(view.Latest, r)
		} else {
			view.Historical = append(view.Historical, r)
		}
	}
	sort.SliceStable(view.Historical, func(i, j int) bool {
		return view.Historical[i].DateKey() > view.Historical[j].DateKey()
	})

	// Out-of-range rows: only rows with a parseable range that classify
	// outside it, most recent first.
	for _, r := range sorted {
		if ParseRange(r.ReferenceRange) == nil {
			continue
		}
		sev := RangeSeverity(r.Value, r.ReferenceRange)
		if sev == SeverityIn {
			continue
		}
		view.OutOfRange = append(view.OutOfRange, OutOfRangeRow{
			TestName:       r.TestName,
			Category:       view.Category,
			Value:          FormatValue(r.Value),
			Unit:           r.Unit,
			Date:           r.DateKey(),
			ReferenceRange: r.ReferenceRange,
			Severity:       sev,
		})
	}
	sort.SliceStable(view.OutOfRange, func(i, j int) bool {
		return view.OutOfRange[i].Date > view.OutOfRange[j].Date
	})

	// Per-test trends over dated, numeric points.
	for _, name := range view.TestNames {
		ys := SeriesValues(sorted, name)
		t := TestTrends{All: TrendAll(ys), Last2: TrendLast2(ys)}
		if t.All != nil || t.Last2 != nil {
			view.Trends[name] = t
		}
	}

	return view
}

// SeriesValues extracts the usable numeric history of one test from
// category rows, sorted ascending by date. Matching is case-sensitive;
// rows without a positive timestamp or a parseable leading number are
// excluded. The qualitative-unit gate does not apply here: trends
// consider any row whose value parses, so censored values like "<5"
// drop out while unitless numbers stay in.
func SeriesValues(rows []LabResult, testName string) []float64 {
	type point struct {
		t int64
		y float64
	}
	var pts []point
	for _, r := range rows {
		if r.TestName != testName {
			continue
		}
		ts := r.Timestamp()
		if ts <= 0 {
			continue
		}
		v := ParseLeadingFloat(r.Value)
		if !isFinite(v) {
			continue
		}
		pts = append(pts, point{t: ts, y: v})
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].t < pts[j].t })

	ys := make([]float64, len(pts))
	for i, p := range pts {
		ys[i] = p.y
	}
	return ys
}

// computeYDomain derives the chart Y-axis bounds from every numeric
// value in the merged points, including tests beyond the series cap. A
// single distinct value is padded by 10% of its magnitude (or ±1 at
// zero); otherwise both ends get 5% of the span.
func computeYDomain(points []ChartPoint) [2]float64 {
	var values []float64
	for _, p := range points {
		for key, v := range p {
			if key == "_date" {
				continue
			}
			if f, ok := v.(float64); ok {
				values = append(values, f)
			}
		}
	}
	if len(values) == 0 {
		return [2]float64{0, 1}
	}

	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	if minV == maxV {
		pad := math.Abs(minV) * 0.1
		if pad == 0 {
			pad = 1
		}
		return [2]float64{minV - pad, maxV + pad}
	}
	pad := (maxV - minV) * 0.05
	return [2]float64{minV - pad, maxV + pad}
}

// Overview summarizes a user's whole dataset for the landing view.
type Overview struct {
	TotalTests      int             `json:"total_tests"`
	OutOfRange      []OutOfRangeRow `json:"out_of_range"`
	TotalOutOfRange int             `json:"total_out_of_range"`
	Categories      []string        `json:"categories"`
}

// BuildOverview computes the cross-category summary: the latest row per
// test name with its severity, plus whole-dataset counts.
func BuildOverview(rows []LabResult) Overview {
	ov := Overview{TotalTests: len(rows)}

	_, order := GroupByCategory(rows)
	sort.Strings(order)
	ov.Categories = order

	// Latest row per test name across all categories: strictly later
	// timestamps win, first-seen retained on ties. Names are matched
	// case-sensitively, so case variants are each assessed.
	latestByTest := make(map[string]LabResult)
	var testOrder []string
	for _, r := range rows {
		prev, ok := latestByTest[r.TestName]
		if !ok {
			latestByTest[r.TestName] = r
			testOrder = append(testOrder, r.TestName)
			continue
		}
		if r.Timestamp() > prev.Timestamp() {
			latestByTest[r.TestName] = r
		}
	}

	for _, name := range testOrder {
		r := latestByTest[name]
		sev := RangeSeverity(r.Value, r.ReferenceRange)
		if sev == SeverityIn {
			continue
		}
		ov.OutOfRange = append(ov.OutOfRange, OutOfRangeRow{
			TestName:       r.TestName,
			Category:       categoryKey(r.Category),
			Value:          FormatValue(r.Value),
			Unit:           r.Unit,
			Date:           r.DateKey(),
			ReferenceRange: r.ReferenceRange,
			Severity:       sev,
		})
	}
	sort.SliceStable(ov.OutOfRange, func(i, j int) bool {
		return ov.OutOfRange[i].TestName < ov.OutOfRange[j].TestName
	})

	for _, r := range rows {
		if RangeSeverity(r.Value, r.ReferenceRange) != SeverityIn {
			ov.TotalOutOfRange++
		}
	}

	return ov
}
