package results

import (
	"time"

	"github.com/google/uuid"
)

// LabResult is a single analyte measurement extracted from a lab report.
// All measurement fields are strings as extracted; numeric interpretation
// happens at aggregation time.
type LabResult struct {
	TestName       string `json:"test_name"`
	Value          string `json:"value"`
	Unit           string `json:"unit"`
	ReferenceRange string `json:"reference_range"`
	Category       string `json:"category"`
	TestDate       string `json:"test_date,omitempty"`
	DateAdded      string `json:"dateAdded,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// Report is a stored lab report: one upload, many results.
type Report struct {
	ID        uuid.UUID   `json:"id"`
	UserID    string      `json:"-"`
	TestDate  *string     `json:"test_date"`
	Results   []LabResult `json:"results"`
	CreatedAt time.Time   `json:"created_at"`
}

// Extraction is the structured output of parsing raw report text.
type Extraction struct {
	TestDate string      `json:"test_date,omitempty"`
	Results  []LabResult `json:"results"`
}

// EffectiveDate returns the best available date string for a result:
// the test date if present, otherwise the date it was added, otherwise
// the record creation time.
func (r LabResult) EffectiveDate() string {
	if r.TestDate != "" {
		return r.TestDate
	}
	if r.DateAdded != "" {
		return r.DateAdded
	}
	return r.CreatedAt
}

// DateKey returns the calendar-day portion of the effective date, used to
// merge measurements from the same day into one chart row.
func (r LabResult) DateKey() string {
	d := r.EffectiveDate()
	if len(d) > 10 {
		return d[:10]
	}
	return d
}

// dateLayouts are tried in order when interpreting result date strings.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp returns the effective date as Unix milliseconds, or 0 if the
// date string cannot be interpreted. Rows with a zero timestamp are
// excluded from trend math but still shown in listings.
func (r LabResult) Timestamp() int64 {
	s := r.EffectiveDate()
	if s == "" {
		return 0
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
