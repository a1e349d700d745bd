package results

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AIClient produces a model completion for a system/user prompt pair.
type AIClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// extractionPrompt instructs the model to emit only the JSON contract the
// Normalizer understands.
const extractionPrompt = `You are a medical lab report parser. Extract every test result from the report text.
Respond with ONLY a JSON object, no prose, in this exact shape:
{"test_date":"YYYY-MM-DD","results":[{"test_name":"...","value":"...","unit":"...","reference_range":"...","category":"..."}]}
Rules:
- value and reference_range are strings exactly as printed.
- reference_range must be formatted as "low<x<high" (for example "3.5<x<5.5"); use "NO_RANGE" when the report gives no range.
- unit is "qualitative" for non-numeric results.
- category groups related tests (for example "blood", "kidney", "liver", "thyroid").
- Omit test_date if the report has no collection date.`

// ExtractionError is a hard parse failure of the model's output. RawText
// carries the offending model reply for diagnostics.
type ExtractionError struct {
	RawText string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction output unusable: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Service owns report ingestion and aggregation for the results domain.
type Service struct {
	repo Repository
	ai   AIClient
}

func NewService(repo Repository, ai AIClient) *Service {
	return &Service{repo: repo, ai: ai}
}

// Extract runs the report text through the model and normalizes its reply
// against the user's existing rows. No rows are persisted; the caller
// reviews and saves separately.
func (s *Service) Extract(ctx context.Context, userID, text string) (*Extraction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	reply, err := s.ai.Complete(ctx, extractionPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	history, err := s.Rows(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading prior rows: %w", err)
	}

	cleaned := stripCodeFence(reply)
	extraction, err := Normalize([]byte(cleaned), history)
	if err != nil {
		return nil, &ExtractionError{RawText: reply, Err: err}
	}
	return extraction, nil
}

// SaveReport persists a normalized extraction as one report.
func (s *Service) SaveReport(ctx context.Context, userID string, extraction *Extraction) (*Report, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if len(extraction.Results) == 0 {
		return nil, fmt.Errorf("report has no results")
	}
	for i, r := range extraction.Results {
		if strings.TrimSpace(r.TestName) == "" {
			return nil, fmt.Errorf("result %d has no test name", i)
		}
	}

	// Best effort: fill categories the caller left blank from the user's
	// history, so manually corrected rows still land in the category the
	// test was first filed under. Edited categories are left alone.
	if history, err := s.Rows(ctx, userID); err == nil {
		known := make(map[string]string, len(history))
		for _, h := range history {
			key := strings.ToLower(h.TestName)
			if _, ok := known[key]; !ok {
				known[key] = h.Category
			}
		}
		for i := range extraction.Results {
			if extraction.Results[i].Category != "" {
				continue
			}
			if cat, ok := known[strings.ToLower(extraction.Results[i].TestName)]; ok {
				extraction.Results[i].Category = cat
			}
		}
	}

	report := &Report{
		UserID:  userID,
		Results: extraction.Results,
	}
	if extraction.TestDate != "" {
		td := extraction.TestDate
		report.TestDate = &td
	}
	if err := s.repo.Insert(ctx, report); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}
	return report, nil
}

// ListReports returns the user's reports, most recent first.
func (s *Service) ListReports(ctx context.Context, userID string) ([]Report, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListReportsPaged returns one page of the user's reports plus the total
// count.
func (s *Service) ListReportsPaged(ctx context.Context, userID string, limit, offset int) ([]Report, int, error) {
	return s.repo.ListByUserPaged(ctx, userID, limit, offset)
}

// DeleteReport removes a single report.
func (s *Service) DeleteReport(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repo.DeleteReport(ctx, userID, id)
}

// ClearResults removes every report for the user and returns how many
// were deleted.
func (s *Service) ClearResults(ctx context.Context, userID string) (int64, error) {
	return s.repo.DeleteByUser(ctx, userID)
}

// Rows flattens the user's reports into a single row list. Each row gains
// the report-level test date and creation time as date fallbacks.
func (s *Service) Rows(ctx context.Context, userID string) ([]LabResult, error) {
	reports, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var rows []LabResult
	for _, rep := range reports {
		created := rep.CreatedAt.Format(time.RFC3339)
		for _, r := range rep.Results {
			if r.TestDate == "" && rep.TestDate != nil {
				r.TestDate = *rep.TestDate
			}
			if r.CreatedAt == "" {
				r.CreatedAt = created
			}
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// Dashboard builds the cross-category overview for the user.
func (s *Service) Dashboard(ctx context.Context, userID string) (*Overview, error) {
	rows, err := s.Rows(ctx, userID)
	if err != nil {
		return nil, err
	}
	ov := BuildOverview(rows)
	return &ov, nil
}

// Category builds one category's aggregated view. Returns nil when the
// user has no rows in that category.
func (s *Service) Category(ctx context.Context, userID, category string) (*CategoryView, error) {
	rows, err := s.Rows(ctx, userID)
	if err != nil {
		return nil, err
	}
	groups, _ := GroupByCategory(rows)
	key := categoryKey(category)
	catRows, ok := groups[key]
	if !ok {
		return nil, nil
	}
	view := BuildCategoryView(key, catRows)
	return &view, nil
}

// stripCodeFence removes a markdown code fence wrapper from a model reply,
// tolerating a language tag after the opening backticks.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		first := strings.TrimSpace(s[:i])
		// A language tag like "json" sits on the opening fence line.
		if first == "" || !strings.ContainsAny(first, "{}[]") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
