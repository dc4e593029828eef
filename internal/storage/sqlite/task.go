package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/envup/internal/model"
)

// CreateTaskRecords stores task records for a run in a single transaction.
// Records without an ID get a fresh ULID assigned.
func (r *Repository) CreateTaskRecords(ctx context.Context, records []model.TaskRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO task_records (id, run_id, phase, sequence, name, status, exit_code, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = ulid.Make().String()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}

		_, err := tx.ExecContext(ctx, query,
			rec.ID, rec.RunID, rec.Phase, rec.Sequence, rec.Name,
			string(rec.Status), rec.ExitCode, rec.Duration.Milliseconds(),
			rec.Error, rec.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("could not insert task record %q: %w", rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit task records: %w", err)
	}

	r.logger.Debugf("Stored %d task records", len(records))
	return nil
}

// ListTaskRecords lists the task records of a run in sequence order.
func (r *Repository) ListTaskRecords(ctx context.Context, runID string) ([]model.TaskRecord, error) {
	query := `
		SELECT id, run_id, phase, sequence, name, status, exit_code, duration_ms, error, created_at
		FROM task_records WHERE run_id = ? ORDER BY sequence ASC`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("could not list task records: %w", err)
	}
	defer rows.Close()

	records := []model.TaskRecord{}
	for rows.Next() {
		var rec model.TaskRecord
		var status string
		var durationMS, createdAt int64

		err := rows.Scan(&rec.ID, &rec.RunID, &rec.Phase, &rec.Sequence, &rec.Name,
			&status, &rec.ExitCode, &durationMS, &rec.Error, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("could not scan task record: %w", err)
		}

		rec.Status = model.TaskStatus(status)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate task records: %w", err)
	}

	return records, nil
}
