package results

import (
	"math"
	"testing"
)

func TestParseRange_Basic(t *testing.T) {
	rng := ParseRange("7<x<56")
	if rng == nil || rng.AlwaysGreen {
		t.Fatalf("expected parsed range, got %+v", rng)
	}
	if rng.Low != 7 || rng.High != 56 {
		t.Errorf("expected bounds 7/56, got %v/%v", rng.Low, rng.High)
	}
}

func TestParseRange_WhitespaceAndCase(t *testing.T) {
	rng := ParseRange("  3.5 < X < 5.5 ")
	if rng == nil || rng.AlwaysGreen {
		t.Fatalf("expected parsed range, got %+v", rng)
	}
	if rng.Low != 3.5 || rng.High != 5.5 {
		t.Errorf("expected bounds 3.5/5.5, got %v/%v", rng.Low, rng.High)
	}
}

func TestParseRange_TrailingStar(t *testing.T) {
	rng := ParseRange("7<x<56*")
	if rng == nil || rng.Low != 7 || rng.High != 56 {
		t.Errorf("expected star stripped, got %+v", rng)
	}
}

func TestParseRange_Negative(t *testing.T) {
	rng := ParseRange("-2.5<x<-0.5")
	if rng == nil || rng.Low != -2.5 || rng.High != -0.5 {
		t.Errorf("expected negative bounds, got %+v", rng)
	}
}

func TestParseRange_NoRange(t *testing.T) {
	if ParseRange("") != nil {
		t.Error("expected nil for empty string")
	}
	if ParseRange("NO_RANGE") != nil {
		t.Error("expected nil for NO_RANGE sentinel")
	}
}

func TestParseRange_UnparseableFailsOpen(t *testing.T) {
	rng := ParseRange("see notes")
	if rng == nil || !rng.AlwaysGreen {
		t.Fatalf("expected always-green sentinel, got %+v", rng)
	}
	if RangeSeverity("9999", "see notes") != SeverityIn {
		t.Error("unparseable range must never flag a value")
	}
}

func TestRangeSeverity_Examples(t *testing.T) {
	// span 49: 60 is 4/49 above high, 200 is 144/49 above high.
	cases := []struct {
		value string
		want  Severity
	}{
		{"32", SeverityIn},
		{"60", SeveritySlight},
		{"200", SeverityFar},
	}
	for _, tc := range cases {
		if got := RangeSeverity(tc.value, "7<x<56"); got != tc.want {
			t.Errorf("value %s: expected %s, got %s", tc.value, tc.want, got)
		}
	}
}

func TestRangeSeverity_OpenInterval(t *testing.T) {
	// Boundary values count as out of range.
	if RangeSeverity("7", "7<x<56") == SeverityIn {
		t.Error("low boundary must not be in range")
	}
	if RangeSeverity("56", "7<x<56") == SeverityIn {
		t.Error("high boundary must not be in range")
	}
}

func TestRangeSeverity_SlightBoundary(t *testing.T) {
	// span 10, so 0.25 ratio is exactly 2.5 beyond a bound.
	if got := RangeSeverity("22.5", "10<x<20"); got != SeveritySlight {
		t.Errorf("distRatio exactly 0.25 must be slight, got %s", got)
	}
	if got := RangeSeverity("22.51", "10<x<20"); got != SeverityFar {
		t.Errorf("distRatio just above 0.25 must be far, got %s", got)
	}
	if got := RangeSeverity("7.5", "10<x<20"); got != SeveritySlight {
		t.Errorf("below-low at 0.25 must be slight, got %s", got)
	}
}

func TestRangeSeverity_ZeroSpan(t *testing.T) {
	// Degenerate 5<x<5 range: span falls back to 1.
	if got := RangeSeverity("5.2", "5<x<5"); got != SeveritySlight {
		t.Errorf("expected slight with unit span fallback, got %s", got)
	}
	if got := RangeSeverity("6.5", "5<x<5"); got != SeverityFar {
		t.Errorf("expected far with unit span fallback, got %s", got)
	}
}

func TestRangeSeverity_NonNumericValue(t *testing.T) {
	if got := RangeSeverity("positive", "0<x<1"); got != SeverityIn {
		t.Errorf("non-numeric value cannot be assessed, got %s", got)
	}
}

func TestParseLeadingFloat(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"5.2", 5.2},
		{"5.2 (high)", 5.2},
		{"  -3.5 mg/dL", -3.5},
		{"+.5", 0.5},
		{"1e3 units", 1000},
	}
	for _, tc := range cases {
		if got := ParseLeadingFloat(tc.in); got != tc.want {
			t.Errorf("ParseLeadingFloat(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if !math.IsNaN(ParseLeadingFloat("positive")) {
		t.Error("expected NaN for non-numeric input")
	}
	if !math.IsNaN(ParseLeadingFloat("")) {
		t.Error("expected NaN for empty input")
	}
}
