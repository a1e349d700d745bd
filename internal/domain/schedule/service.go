package schedule

import (
	"context"
	"fmt"
	"strings"

	"github.com/lablog/lablog/internal/domain/results"
)

// Service builds a fresh tracker around the persisted schedule for each
// operation, so every request works against current store state.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) tracker(ctx context.Context, userID string) (*Tracker, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	t := NewTracker(s.repo, userID)
	if err := t.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading schedule: %w", err)
	}
	return t, nil
}

// List returns the user's deduplicated follow-up entries.
func (s *Service) List(ctx context.Context, userID string) ([]Item, error) {
	t, err := s.tracker(ctx, userID)
	if err != nil {
		return nil, err
	}
	return t.Items(), nil
}

// AddManual creates a user-requested follow-up entry, subject to the same
// dedup rule as triggered entries.
func (s *Service) AddManual(ctx context.Context, userID, testName, category string, doctor *string) ([]Item, error) {
	if strings.TrimSpace(testName) == "" {
		return nil, fmt.Errorf("test_name is required")
	}
	t, err := s.tracker(ctx, userID)
	if err != nil {
		return nil, err
	}
	t.Add(ctx, testName, category, ReasonManual, doctor)
	return t.Items(), nil
}

// Toggle flips one entry between pending and done. Reports whether the
// entry existed.
func (s *Service) Toggle(ctx context.Context, userID, testName string) ([]Item, bool, error) {
	t, err := s.tracker(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	found := t.Toggle(ctx, testName)
	return t.Items(), found, nil
}

// Remove deletes one entry. Reports whether the entry existed.
func (s *Service) Remove(ctx context.Context, userID, testName string) ([]Item, bool, error) {
	t, err := s.tracker(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	found := t.Remove(ctx, testName)
	return t.Items(), found, nil
}

// Sync runs the follow-up triggers over the user's result rows and
// returns the schedule afterwards.
func (s *Service) Sync(ctx context.Context, userID string, rows []results.LabResult) ([]Item, error) {
	t, err := s.tracker(ctx, userID)
	if err != nil {
		return nil, err
	}
	t.Sync(ctx, rows)
	return t.Items(), nil
}
