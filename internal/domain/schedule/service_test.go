package schedule

import (
	"context"
	"testing"
)

func TestService_List(t *testing.T) {
	repo := newMockRepo(
		Item{ID: id(2), TestName: "Glucose", Status: StatusPending},
		Item{ID: id(1), TestName: "ALT", Status: StatusDone},
	)
	svc := NewService(repo)

	items, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
}

func TestService_RequiresUser(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.List(context.Background(), ""); err == nil {
		t.Error("expected error for missing user")
	}
}

func TestService_AddManual(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	doctor := "Dr. Osei"
	items, err := svc.AddManual(context.Background(), "user-1", "Ferritin", "blood", &doctor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Reason != ReasonManual {
		t.Fatalf("unexpected items: %+v", items)
	}
	if items[0].Doctor == nil || *items[0].Doctor != "Dr. Osei" {
		t.Errorf("expected doctor carried through, got %+v", items[0].Doctor)
	}
}

func TestService_AddManual_RequiresTestName(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.AddManual(context.Background(), "user-1", "  ", "blood", nil); err == nil {
		t.Error("expected error for blank test name")
	}
}

func TestService_Toggle_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())
	_, found, err := svc.Toggle(context.Background(), "user-1", "Nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected not found")
	}
}

func TestService_Remove(t *testing.T) {
	repo := newMockRepo(Item{ID: id(5), TestName: "Glucose", Status: StatusPending})
	svc := NewService(repo)

	items, found, err := svc.Remove(context.Background(), "user-1", "glucose")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || len(items) != 0 {
		t.Errorf("expected removal, found=%v items=%+v", found, items)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != 5 {
		t.Errorf("expected store delete for id 5, got %v", repo.deleted)
	}
}

func TestService_ListFailure(t *testing.T) {
	repo := newMockRepo()
	repo.failList = true
	svc := NewService(repo)
	if _, err := svc.List(context.Background(), "user-1"); err == nil {
		t.Error("expected error when load fails")
	}
}
