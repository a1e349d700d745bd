package schedule

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ db queryable }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{db: pool}
}

func (r *repoPG) ListByUser(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, test_name, category, reason, status, doctor, created_at
		FROM lab_schedule
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var id int64
		if err := rows.Scan(&id, &it.TestName, &it.Category, &it.Reason, &it.Status, &it.Doctor, &it.CreatedAt); err != nil {
			return nil, err
		}
		it.ID = &id
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repoPG) Insert(ctx context.Context, userID string, item *Item) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO lab_schedule (user_id, test_name, category, reason, status, doctor)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		userID, item.TestName, item.Category, item.Reason, item.Status, item.Doctor).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, userID string, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE lab_schedule SET status = $3
		WHERE user_id = $1 AND id = $2`, userID, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, userID string, id int64) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM lab_schedule
		WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
