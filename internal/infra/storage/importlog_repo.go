package storage

import (
	"context"
	"database/sql"
)

type ImportLogRepo struct{ db *sql.DB }

func NewImportLogRepo(db *sql.DB) *ImportLogRepo { return &ImportLogRepo{db: db} }

func (r *ImportLogRepo) Create(ctx context.Context, l ImportLog) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO import_logs
  (import_type, start_time, end_time, items_processed, items_updated, items_skipped,
   api_request_count, success, error_message)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, l.ImportType, l.StartTime, l.EndTime, l.ItemsProcessed, l.ItemsUpdated, l.ItemsSkipped,
		l.APIRequestCount, l.Success, l.ErrorMessage)
	return err
}

func (r *ImportLogRepo) Recent(ctx context.Context, limit int) ([]ImportLog, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, import_type, start_time, end_time, items_processed, items_updated, items_skipped,
       api_request_count, success, error_message
  FROM import_logs
 ORDER BY start_time DESC
 LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ImportLog
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.ImportType, &l.StartTime, &l.EndTime, &l.ItemsProcessed,
			&l.ItemsUpdated, &l.ItemsSkipped, &l.APIRequestCount, &l.Success, &l.ErrorMessage); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
