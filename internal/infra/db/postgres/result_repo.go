package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/vision-assist/internal/domain/analysis"
)

type ResultRepository struct{ db *sql.DB }

func NewResultRepository(db *sql.DB) *ResultRepository { return &ResultRepository{db: db} }

// Append inserts one analysis record; the log is append-only
func (r *ResultRepository) Append(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO analysis_results
  (id, command, result_json, image_url, created_at)
VALUES ($1,$2,$3,$4,$5);
`
	result := string(rec.Result)
	if strings.TrimSpace(result) == "" {
		result = "{}"
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q, rec.ID, rec.Command, result, rec.ImageURL, createdAt)
	return err
}

// Latest returns the most recent records, newest first
func (r *ResultRepository) Latest(ctx context.Context, limit int) ([]*domain.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, command, result_json, image_url, created_at
FROM analysis_results
ORDER BY created_at DESC, id DESC
LIMIT $1;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var rec domain.Record
		var result string
		if err := rows.Scan(&rec.ID, &rec.Command, &result, &rec.ImageURL, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Result = []byte(result)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
