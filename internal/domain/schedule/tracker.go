package schedule

import (
	"context"
	"sort"
	"strings"

	"github.com/lablog/lablog/internal/domain/results"
)

// Tracker holds a user's follow-up entries as optimistic local state: the
// in-memory list is the source of truth for responses, the store catches
// up best-effort. Mutations before Load succeeds are ignored so a failed
// initial fetch cannot trigger duplicate creation.
//
// The dedup check reads local state at call time, so two concurrent
// triggers for the same test can both pass it and create duplicate store
// rows. The loader collapses such duplicates on the next fetch.
type Tracker struct {
	repo   Repository
	userID string
	items  []Item
	loaded bool
}

func NewTracker(repo Repository, userID string) *Tracker {
	return &Tracker{repo: repo, userID: userID}
}

// Load fetches the user's persisted entries, keeping only the first (most
// recently created) entry per lowercased test name.
func (t *Tracker) Load(ctx context.Context) error {
	stored, err := t.repo.ListByUser(ctx, t.userID)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(stored))
	items := make([]Item, 0, len(stored))
	for _, it := range stored {
		key := strings.ToLower(it.TestName)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, it)
	}
	t.items = items
	t.loaded = true
	return nil
}

// Items returns the current local entries.
func (t *Tracker) Items() []Item {
	return t.items
}

func (t *Tracker) exists(testName string) bool {
	key := strings.ToLower(testName)
	for _, it := range t.items {
		if strings.ToLower(it.TestName) == key {
			return true
		}
	}
	return false
}

// Add creates a pending follow-up for the test unless one already exists
// (case-insensitive) or the tracker has no user or never loaded. The
// entry is inserted locally first; a persistence failure rolls the insert
// back and is not surfaced. Returns whether the entry is present locally
// after the call.
func (t *Tracker) Add(ctx context.Context, testName, category string, reason Reason, doctor *string) bool {
	if !t.loaded || t.userID == "" || strings.TrimSpace(testName) == "" {
		return false
	}
	if t.exists(testName) {
		return true
	}

	item := Item{
		TestName: testName,
		Category: category,
		Reason:   reason,
		Status:   StatusPending,
		Doctor:   doctor,
	}
	t.items = append([]Item{item}, t.items...)

	id, err := t.repo.Insert(ctx, t.userID, &item)
	if err != nil {
		// Roll back the optimistic insert.
		t.removeLocal(testName)
		return false
	}
	t.items[0].ID = &id
	return true
}

// Toggle flips an entry between pending and done. The local flip always
// sticks; the store update is best-effort and a failure is ignored.
func (t *Tracker) Toggle(ctx context.Context, testName string) bool {
	key := strings.ToLower(testName)
	for i := range t.items {
		if strings.ToLower(t.items[i].TestName) != key {
			continue
		}
		t.items[i].Status = t.items[i].Status.Toggled()
		if t.items[i].ID != nil {
			_ = t.repo.UpdateStatus(ctx, t.userID, *t.items[i].ID, t.items[i].Status)
		}
		return true
	}
	return false
}

// Remove deletes an entry locally first, then best-effort from the store.
func (t *Tracker) Remove(ctx context.Context, testName string) bool {
	key := strings.ToLower(testName)
	for _, it := range t.items {
		if strings.ToLower(it.TestName) != key {
			continue
		}
		t.removeLocal(testName)
		if it.ID != nil {
			_ = t.repo.Delete(ctx, t.userID, *it.ID)
		}
		return true
	}
	return false
}

func (t *Tracker) removeLocal(testName string) {
	key := strings.ToLower(testName)
	kept := t.items[:0]
	for _, it := range t.items {
		if strings.ToLower(it.TestName) != key {
			kept = append(kept, it)
		}
	}
	t.items = kept
}

// Sync walks the user's results and requests follow-ups: one per test
// whose latest value classifies far out of range, and one per test whose
// full history trends steeply. Categories are visited in sorted order,
// tests in first-seen row order.
func (t *Tracker) Sync(ctx context.Context, rows []results.LabResult) {
	if !t.loaded {
		return
	}

	groups, order := results.GroupByCategory(rows)
	sort.Strings(order)

	for _, category := range order {
		catRows := groups[category]

		// Latest row per test, matched case-sensitively so a newer
		// case variant never masks another spelling's latest value:
		// first-seen retained unless a strictly later timestamp
		// appears. Add still dedups case-insensitively.
		latest := make(map[string]results.LabResult)
		var testOrder []string
		for _, r := range catRows {
			prev, ok := latest[r.TestName]
			if !ok {
				latest[r.TestName] = r
				testOrder = append(testOrder, r.TestName)
				continue
			}
			if r.Timestamp() > prev.Timestamp() {
				latest[r.TestName] = r
			}
		}

		for _, name := range testOrder {
			r := latest[name]
			if results.RangeSeverity(r.Value, r.ReferenceRange) == results.SeverityFar {
				t.Add(ctx, r.TestName, category, ReasonOutOfRange, nil)
			}
			if results.IsSteepTrend(results.SeriesValues(catRows, r.TestName)) {
				t.Add(ctx, r.TestName, category, ReasonTrend, nil)
			}
		}
	}
}
