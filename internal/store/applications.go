package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ApplicationRow is one workflow instance in the local history, so the UI
// can list past applications without asking the backend.
type ApplicationRow struct {
	ID            string    `json:"id"`
	JobTitle      string    `json:"job_title"`
	Location      string    `json:"location"`
	Phase         string    `json:"phase"`
	Error         string    `json:"error,omitempty"`
	SelectedCount int       `json:"selected_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func Migrate(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS applications (
  id TEXT PRIMARY KEY,
  job_title TEXT NOT NULL,
  location TEXT NOT NULL,
  phase TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  selected_count INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_applications_created ON applications(created_at DESC);
`)
	return err
}

// UpsertApplication records the latest state of a workflow instance.
// Called on every committed phase transition that has an application id.
func UpsertApplication(ctx context.Context, db *sql.DB, row ApplicationRow) error {
	now := time.Now().UTC().Format(time.RFC3339)
	created := now
	if !row.CreatedAt.IsZero() {
		created = row.CreatedAt.UTC().Format(time.RFC3339)
	}

	_, err := db.ExecContext(ctx, `
INSERT INTO applications (id, job_title, location, phase, error, selected_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  phase = excluded.phase,
  error = excluded.error,
  selected_count = excluded.selected_count,
  updated_at = excluded.updated_at;`,
		row.ID, row.JobTitle, row.Location, row.Phase, row.Error, row.SelectedCount, created, now,
	)
	if err != nil {
		return fmt.Errorf("upsert application: %w", err)
	}
	return nil
}

func ListApplications(ctx context.Context, db *sql.DB, limit int) ([]ApplicationRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, job_title, location, phase, error, selected_count, created_at, updated_at
FROM applications
ORDER BY created_at DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApplicationRow
	for rows.Next() {
		var r ApplicationRow
		var createdStr, updatedStr string
		if err := rows.Scan(&r.ID, &r.JobTitle, &r.Location, &r.Phase, &r.Error, &r.SelectedCount, &createdStr, &updatedStr); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
		out = append(out, r)
	}
	return out, rows.Err()
}
