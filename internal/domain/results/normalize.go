package results

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// degenerateRange matches the "0<x<0" sentinel some reports carry instead
// of an absent range.
var degenerateRange = regexp.MustCompile(`(?i)^\s*0\s*<\s*x\s*<\s*0\s*$`)

// Normalize parses raw extraction output into canonical rows. It accepts
// either an object with a "results" array or a bare array, tolerates the
// legacy key aliases older extractions used, and back-fills each row's
// category from the first-seen category of the same test name in the
// user's prior rows. A missing or malformed results array is a hard error;
// there is no partial recovery.
//
// Normalize is idempotent: feeding its own output back in yields the same
// rows.
func Normalize(raw []byte, history []LabResult) (*Extraction, error) {
	var top map[string]json.RawMessage
	var rawResults json.RawMessage
	testDate := ""

	if err := json.Unmarshal(raw, &top); err == nil {
		if r, ok := top["results"]; ok {
			rawResults = r
		}
		if d, ok := top["test_date"]; ok {
			testDate = coerceRawString(d)
		} else if d, ok := top["date"]; ok {
			testDate = coerceRawString(d)
		}
	} else {
		// Not an object; try a bare array of rows.
		rawResults = raw
	}

	var rows []map[string]any
	if rawResults == nil {
		return nil, fmt.Errorf("extraction has no results array")
	}
	if err := json.Unmarshal(rawResults, &rows); err != nil {
		return nil, fmt.Errorf("extraction results is not an array of objects: %w", err)
	}
	// JSON null unmarshals into a nil slice without error; a present but
	// null results key is still a missing array.
	if rows == nil {
		return nil, fmt.Errorf("extraction has no results array")
	}

	// First-seen category per lowercased test name from prior rows.
	// Later disagreements never override the original assignment, so a
	// test stays in the category it was first filed under.
	knownCategory := make(map[string]string, len(history))
	for _, h := range history {
		key := strings.ToLower(h.TestName)
		if _, ok := knownCategory[key]; !ok {
			knownCategory[key] = h.Category
		}
	}

	out := make([]LabResult, 0, len(rows))
	for _, row := range rows {
		r := LabResult{
			TestName:       firstString(row, "test_name", "name"),
			Value:          firstString(row, "value", "val"),
			Unit:           firstString(row, "unit"),
			Category:       firstString(row, "category", "group"),
			ReferenceRange: firstString(row, "reference_range", "ref"),
		}

		r.ReferenceRange = strings.TrimSpace(r.ReferenceRange)
		if degenerateRange.MatchString(r.ReferenceRange) {
			r.ReferenceRange = NoRange
		}
		if r.ReferenceRange == "" {
			r.ReferenceRange = NoRange
		}

		if cat, ok := knownCategory[strings.ToLower(r.TestName)]; ok {
			r.Category = cat
		}

		out = append(out, r)
	}

	return &Extraction{TestDate: testDate, Results: out}, nil
}

// firstString returns the first present key's value coerced to a string.
func firstString(row map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok {
			return coerceString(v)
		}
	}
	return ""
}

// coerceString renders a decoded JSON value as a string. Numbers are
// common where strings are expected ("value": 5.2), so they are formatted
// without a trailing exponent.
func coerceString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", x)
	}
}

func coerceRawString(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return coerceString(v)
}
