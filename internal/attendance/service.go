package attendance

import (
	"context"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/identity"
	"rollcall/internal/qrcode"
)

// Event is one recorded attendance, append-only. Events have no update
// path and disappear only when their student is deleted.
type Event struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"student_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Repository persists attendance events.
type Repository interface {
	InsertEvent(ctx context.Context, studentID int64) (Event, error)
	ListEvents(ctx context.Context, studentID int64, limit, offset int) ([]Event, error)
}

// StudentDirectory resolves scanned ids to student records. The
// identity service satisfies it.
type StudentDirectory interface {
	Student(ctx context.Context, id int64) (identity.Student, error)
}

// Service records scans against the student directory.
type Service struct {
	repo     Repository
	students StudentDirectory
}

// NewService creates a service backed by a repository and directory.
func NewService(repo Repository, students StudentDirectory) *Service {
	return &Service{repo: repo, students: students}
}

// ScanAndRecord resolves a scanned payload and appends one event with
// the server's clock. Repeated scans are not deduplicated: two scans of
// the same code are two events.
func (s *Service) ScanAndRecord(ctx context.Context, payload string) (Event, string, error) {
	if payload == "" {
		return Event{}, "", apperr.New(apperr.Validation, "QR code data is required")
	}

	studentID, err := qrcode.ParseStudentID(payload)
	if err != nil {
		return Event{}, "", err
	}

	st, err := s.students.Student(ctx, studentID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return Event{}, "", apperr.New(apperr.NotFound, "invalid QR code")
		}
		return Event{}, "", err
	}

	evt, err := s.repo.InsertEvent(ctx, st.ID)
	if err != nil {
		return Event{}, "", err
	}
	return evt, st.FullName, nil
}

// ListEvents returns recorded events, newest first, optionally filtered
// by student.
func (s *Service) ListEvents(ctx context.Context, studentID int64, limit, offset int) ([]Event, error) {
	return s.repo.ListEvents(ctx, studentID, limit, offset)
}
