package schedule

import "context"

// Repository persists follow-up entries. Every method is scoped to one
// user.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Item, error)
	Insert(ctx context.Context, userID string, item *Item) (int64, error)
	UpdateStatus(ctx context.Context, userID string, id int64, status Status) error
	Delete(ctx context.Context, userID string, id int64) error
}
