package attendance

import (
	"context"
	"database/sql"

	"rollcall/internal/apperr"
)

// PostgresRepository persists attendance events in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertEvent appends one event for the student with the database clock.
func (r *PostgresRepository) InsertEvent(ctx context.Context, studentID int64) (Event, error) {
	evt := Event{StudentID: studentID}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_events (student_id)
		VALUES ($1)
		RETURNING id, occurred_at
	`, studentID)
	if err := row.Scan(&evt.ID, &evt.Timestamp); err != nil {
		return Event{}, apperr.Wrap(apperr.Unexpected, "event insert failed", err)
	}
	return evt, nil
}

// ListEvents returns events newest first. studentID 0 means no filter.
func (r *PostgresRepository) ListEvents(ctx context.Context, studentID int64, limit, offset int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, student_id, occurred_at FROM attendance_events`
	args := []any{}
	if studentID > 0 {
		query += ` WHERE student_id = $1`
		args = append(args, studentID)
	}
	query += ` ORDER BY occurred_at DESC, id DESC`
	if studentID > 0 {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "event list failed", err)
	}
	defer rows.Close()

	var res []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.StudentID, &evt.Timestamp); err != nil {
			return nil, apperr.Wrap(apperr.Unexpected, "event scan failed", err)
		}
		res = append(res, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "event list failed", err)
	}
	return res, nil
}
