package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema note: email uniqueness is scoped per table, and the event FK
// carries the cascade that removes a deleted student's events.
// Statements run one at a time; pgx's extended protocol rejects
// multi-statement batches.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id            BIGSERIAL PRIMARY KEY,
		full_name     TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		qr_code       BYTEA,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS teachers (
		id            BIGSERIAL PRIMARY KEY,
		full_name     TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_events (
		id          BIGSERIAL PRIMARY KEY,
		student_id  BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_events_student
		ON attendance_events (student_id, occurred_at DESC)`,
}

// Migrate applies the schema. Statements are idempotent, so running it
// on every startup is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
