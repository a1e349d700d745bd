package results

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
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

const reportCols = `id, user_id, test_date, data_json, created_at`

func (r *repoPG) scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	var data []byte
	if err := row.Scan(&rep.ID, &rep.UserID, &rep.TestDate, &data, &rep.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &rep.Results); err != nil {
		return nil, fmt.Errorf("decoding report %s data: %w", rep.ID, err)
	}
	return &rep, nil
}

func (r *repoPG) Insert(ctx context.Context, report *Report) error {
	report.ID = uuid.New()
	data, err := json.Marshal(report.Results)
	if err != nil {
		return fmt.Errorf("encoding report data: %w", err)
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO lab_report (id, user_id, test_date, data_json)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		report.ID, report.UserID, report.TestDate, data)
	return row.Scan(&report.CreatedAt)
}

func (r *repoPG) ListByUser(ctx context.Context, userID string) ([]Report, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reportCols+` FROM lab_report
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		rep, err := r.scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}
	return reports, rows.Err()
}

func (r *repoPG) ListByUserPaged(ctx context.Context, userID string, limit, offset int) ([]Report, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM lab_report WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+reportCols+` FROM lab_report
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		rep, err := r.scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, *rep)
	}
	return reports, total, rows.Err()
}

func (r *repoPG) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM lab_report WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) DeleteReport(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM lab_report WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
