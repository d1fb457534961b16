package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"rollcall/internal/apperr"
)

// PostgresRepository persists accounts in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateStudent inserts a student and their identity code in one
// transaction. The code is derived after the insert assigns the id, so
// a failure in either step rolls back both.
func (r *PostgresRepository) CreateStudent(ctx context.Context, fullName, email, passwordHash string, code CodeFunc) (Student, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Student{}, apperr.Wrap(apperr.Unexpected, "begin transaction failed", err)
	}
	defer func() { _ = tx.Rollback() }()

	var st Student
	st.FullName = fullName
	st.Email = email
	row := tx.QueryRowContext(ctx, `
		INSERT INTO students (full_name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, fullName, email, passwordHash)
	if err := row.Scan(&st.ID, &st.CreatedAt); err != nil {
		return Student{}, mapWriteErr(err)
	}

	payload, err := code(st.ID, st.Email)
	if err != nil {
		return Student{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE students SET qr_code = $2 WHERE id = $1`, st.ID, payload); err != nil {
		return Student{}, mapWriteErr(err)
	}
	st.QRCode = payload

	if err := tx.Commit(); err != nil {
		return Student{}, apperr.Wrap(apperr.Unexpected, "commit failed", err)
	}
	return st, nil
}

const studentCols = `id, full_name, email, password_hash, qr_code, created_at`

func scanStudent(row *sql.Row) (*Student, error) {
	var st Student
	if err := row.Scan(&st.ID, &st.FullName, &st.Email, &st.PasswordHash, &st.QRCode, &st.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Unexpected, "student lookup failed", err)
	}
	return &st, nil
}

// StudentByEmail returns the student with the given email, or nil.
func (r *PostgresRepository) StudentByEmail(ctx context.Context, email string) (*Student, error) {
	return scanStudent(r.db.QueryRowContext(ctx,
		`SELECT `+studentCols+` FROM students WHERE email = $1`, email))
}

// StudentByID returns the student with the given id, or nil.
func (r *PostgresRepository) StudentByID(ctx context.Context, id int64) (*Student, error) {
	return scanStudent(r.db.QueryRowContext(ctx,
		`SELECT `+studentCols+` FROM students WHERE id = $1`, id))
}

// ListStudents returns all students ordered by id.
func (r *PostgresRepository) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+studentCols+` FROM students ORDER BY id`)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "student list failed", err)
	}
	defer rows.Close()

	var res []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.FullName, &st.Email, &st.PasswordHash, &st.QRCode, &st.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Unexpected, "student scan failed", err)
		}
		res = append(res, st)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "student list failed", err)
	}
	return res, nil
}

// UpdateStudent writes name and email for an existing student.
func (r *PostgresRepository) UpdateStudent(ctx context.Context, s Student) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET full_name = $2, email = $3 WHERE id = $1
	`, s.ID, s.FullName, s.Email)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "student not found")
	}
	return nil
}

// DeleteStudent removes a student; the FK cascade removes their events.
func (r *PostgresRepository) DeleteStudent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.Unexpected, "student delete failed", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "student not found")
	}
	return nil
}

// SetStudentCode persists a lazily generated identity code.
func (r *PostgresRepository) SetStudentCode(ctx context.Context, id int64, code []byte) error {
	_, err := r.db.ExecContext(ctx, `UPDATE students SET qr_code = $2 WHERE id = $1`, id, code)
	if err != nil {
		return apperr.Wrap(apperr.Unexpected, "code update failed", err)
	}
	return nil
}

// CreateTeacher inserts a teacher account.
func (r *PostgresRepository) CreateTeacher(ctx context.Context, fullName, email, passwordHash string) (Teacher, error) {
	t := Teacher{FullName: fullName, Email: email}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO teachers (full_name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, fullName, email, passwordHash)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		return Teacher{}, mapWriteErr(err)
	}
	return t, nil
}

// TeacherByEmail returns the teacher with the given email, or nil.
func (r *PostgresRepository) TeacherByEmail(ctx context.Context, email string) (*Teacher, error) {
	var t Teacher
	row := r.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, password_hash, created_at
		FROM teachers WHERE email = $1
	`, email)
	if err := row.Scan(&t.ID, &t.FullName, &t.Email, &t.PasswordHash, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Unexpected, "teacher lookup failed", err)
	}
	return &t, nil
}

// mapWriteErr converts a unique-constraint violation to Conflict so the
// store stays the final arbiter of racing writes.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.New(apperr.Conflict, "email already registered")
	}
	return apperr.Wrap(apperr.Unexpected, "write failed", err)
}
