package results

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRepo struct {
	reports    []Report
	failInsert bool
	failList   bool
}

func (m *mockRepo) Insert(ctx context.Context, report *Report) error {
	if m.failInsert {
		return fmt.Errorf("insert failed")
	}
	report.ID = uuid.New()
	report.CreatedAt = time.Now()
	// Most recent first, matching store ordering.
	m.reports = append([]Report{*report}, m.reports...)
	return nil
}

func (m *mockRepo) ListByUser(ctx context.Context, userID string) ([]Report, error) {
	if m.failList {
		return nil, fmt.Errorf("list failed")
	}
	var out []Report
	for _, r := range m.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepo) ListByUserPaged(ctx context.Context, userID string, limit, offset int) ([]Report, int, error) {
	all, err := m.ListByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	var kept []Report
	var deleted int64
	for _, r := range m.reports {
		if r.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.reports = kept
	return deleted, nil
}

func (m *mockRepo) DeleteReport(ctx context.Context, userID string, id uuid.UUID) error {
	for i, r := range m.reports {
		if r.UserID == userID && r.ID == id {
			m.reports = append(m.reports[:i], m.reports[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type stubAI struct {
	reply string
	err   error
}

func (s *stubAI) Complete(ctx context.Context, system, user string) (string, error) {
	return s.reply, s.err
}

func TestExtract_ParsesFencedReply(t *testing.T) {
	ai := &stubAI{reply: "```json\n{\"test_date\":\"2026-01-15\",\"results\":[{\"test_name\":\"Glucose\",\"value\":\"95\",\"unit\":\"mg/dL\",\"reference_range\":\"70<x<100\",\"category\":\"blood\"}]}\n```"}
	svc := NewService(&mockRepo{}, ai)

	ex, err := svc.Extract(context.Background(), "user-1", "Glucose 95 mg/dL (70-100)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.TestDate != "2026-01-15" || len(ex.Results) != 1 {
		t.Errorf("unexpected extraction: %+v", ex)
	}
}

func TestExtract_BackfillsCategoryFromHistory(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, &stubAI{reply: `{"results":[{"test_name":"Creatinine","value":"1.1","unit":"mg/dL","reference_range":"0.7<x<1.3","category":"metabolic"}]}`})

	_, err := svc.SaveReport(context.Background(), "user-1", &Extraction{
		Results: []LabResult{{TestName: "Creatinine", Value: "1.0", Unit: "mg/dL", ReferenceRange: "0.7<x<1.3", Category: "kidney"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ex, err := svc.Extract(context.Background(), "user-1", "Creatinine 1.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Results[0].Category != "kidney" {
		t.Errorf("expected historical category kidney, got %q", ex.Results[0].Category)
	}
}

func TestExtract_UnusableReplyCarriesRawText(t *testing.T) {
	ai := &stubAI{reply: "Sorry, I cannot parse this report."}
	svc := NewService(&mockRepo{}, ai)

	_, err := svc.Extract(context.Background(), "user-1", "some text")
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if exErr.RawText != ai.reply {
		t.Errorf("expected raw reply preserved, got %q", exErr.RawText)
	}
}

func TestExtract_RequiresText(t *testing.T) {
	svc := NewService(&mockRepo{}, &stubAI{})
	if _, err := svc.Extract(context.Background(), "user-1", "   "); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestExtract_AIFailure(t *testing.T) {
	svc := NewService(&mockRepo{}, &stubAI{err: fmt.Errorf("service down")})
	_, err := svc.Extract(context.Background(), "user-1", "text")
	if err == nil {
		t.Fatal("expected error")
	}
	var exErr *ExtractionError
	if errors.As(err, &exErr) {
		t.Error("transport failure must not be an extraction error")
	}
}

func TestSaveReport_BackfillsBlankCategory(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, &stubAI{})

	_, err := svc.SaveReport(context.Background(), "user-1", &Extraction{
		Results: []LabResult{{TestName: "TSH", Value: "2.1", Unit: "mIU/L", Category: "thyroid"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rep, err := svc.SaveReport(context.Background(), "user-1", &Extraction{
		Results: []LabResult{
			{TestName: "tsh", Value: "2.4", Unit: "mIU/L"},
			{TestName: "TSH", Value: "2.5", Unit: "mIU/L", Category: "endocrine"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Results[0].Category != "thyroid" {
		t.Errorf("expected blank category back-filled, got %q", rep.Results[0].Category)
	}
	if rep.Results[1].Category != "endocrine" {
		t.Errorf("expected edited category kept, got %q", rep.Results[1].Category)
	}
}

func TestSaveReport_Validation(t *testing.T) {
	svc := NewService(&mockRepo{}, &stubAI{})

	if _, err := svc.SaveReport(context.Background(), "user-1", &Extraction{}); err == nil {
		t.Error("expected error for empty results")
	}
	if _, err := svc.SaveReport(context.Background(), "user-1", &Extraction{
		Results: []LabResult{{Value: "5"}},
	}); err == nil {
		t.Error("expected error for missing test name")
	}
	if _, err := svc.SaveReport(context.Background(), "", &Extraction{
		Results: []LabResult{{TestName: "A", Value: "5"}},
	}); err == nil {
		t.Error("expected error for missing user")
	}
}

func TestRows_FlattensWithDateFallbacks(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, &stubAI{})

	td := "2026-01-15"
	_, err := svc.SaveReport(context.Background(), "user-1", &Extraction{
		TestDate: td,
		Results: []LabResult{
			{TestName: "Glucose", Value: "95", Unit: "mg/dL", ReferenceRange: "70<x<100", Category: "blood"},
			{TestName: "ALT", Value: "42", Unit: "U/L", ReferenceRange: "7<x<56", Category: "liver", TestDate: "2026-01-10"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := svc.Rows(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].TestDate != "2026-01-15" {
		t.Errorf("expected report test date inherited, got %q", rows[0].TestDate)
	}
	if rows[1].TestDate != "2026-01-10" {
		t.Errorf("expected row test date kept, got %q", rows[1].TestDate)
	}
	if rows[0].CreatedAt == "" {
		t.Error("expected created_at fallback populated")
	}
}

func TestDashboardAndCategory(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, &stubAI{})

	_, err := svc.SaveReport(context.Background(), "user-1", &Extraction{
		TestDate: "2026-02-01",
		Results: []LabResult{
			{TestName: "Glucose", Value: "200", Unit: "mg/dL", ReferenceRange: "70<x<100", Category: "Blood"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ov, err := svc.Dashboard(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ov.TotalTests != 1 || len(ov.OutOfRange) != 1 {
		t.Errorf("unexpected overview: %+v", ov)
	}

	view, err := svc.Category(context.Background(), "user-1", "BLOOD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view == nil || view.Category != "blood" {
		t.Errorf("unexpected view: %+v", view)
	}

	missing, err := svc.Category(context.Background(), "user-1", "thyroid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown category, got %+v", missing)
	}
}

func TestClearResults(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, &stubAI{})

	for i := 0; i < 2; i++ {
		_, err := svc.SaveReport(context.Background(), "user-1", &Extraction{
			Results: []LabResult{{TestName: "Glucose", Value: "95"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	deleted, err := svc.ClearResults(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}
	rows, _ := svc.Rows(context.Background(), "user-1")
	if len(rows) != 0 {
		t.Errorf("expected no rows after clear, got %d", len(rows))
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
