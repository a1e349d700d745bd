package results

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists lab reports. Every method is scoped to one user.
type Repository interface {
	Insert(ctx context.Context, report *Report) error
	ListByUser(ctx context.Context, userID string) ([]Report, error)
	ListByUserPaged(ctx context.Context, userID string, limit, offset int) ([]Report, int, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteReport(ctx context.Context, userID string, id uuid.UUID) error
}
