package identity

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"rollcall/internal/apperr"
	"rollcall/internal/qrcode"
)

// CodeFunc derives the identity-code image for a freshly assigned
// student id. It runs inside the same transaction as the insert so a
// student never exists without a code.
type CodeFunc func(id int64, email string) ([]byte, error)

// Repository is the durable store for accounts. Lookups return nil
// (not an error) when no row matches; uniqueness violations surface as
// apperr Conflict regardless of any pre-check the service performed.
type Repository interface {
	CreateStudent(ctx context.Context, fullName, email, passwordHash string, code CodeFunc) (Student, error)
	StudentByEmail(ctx context.Context, email string) (*Student, error)
	StudentByID(ctx context.Context, id int64) (*Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	UpdateStudent(ctx context.Context, s Student) error
	DeleteStudent(ctx context.Context, id int64) error
	SetStudentCode(ctx context.Context, id int64, code []byte) error
	CreateTeacher(ctx context.Context, fullName, email, passwordHash string) (Teacher, error)
	TeacherByEmail(ctx context.Context, email string) (*Teacher, error)
}

// Service owns account lifecycle and the role-based access rules.
type Service struct {
	repo       Repository
	bcryptCost int
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, bcryptCost: bcryptCost}
}

// SignupInput carries the four signup fields; all are required.
type SignupInput struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Signup registers a new student and attaches their identity code in a
// single durable write.
func (s *Service) Signup(ctx context.Context, in SignupInput) (Student, error) {
	if in.FullName == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return Student{}, apperr.New(apperr.Validation, "all fields are required")
	}
	if in.Password != in.ConfirmPassword {
		return Student{}, apperr.New(apperr.Validation, "passwords do not match")
	}

	if existing, err := s.repo.StudentByEmail(ctx, in.Email); err != nil {
		return Student{}, err
	} else if existing != nil {
		return Student{}, apperr.New(apperr.Conflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return Student{}, apperr.Wrap(apperr.Unexpected, "password hashing failed", err)
	}

	return s.repo.CreateStudent(ctx, in.FullName, in.Email, string(hash), deriveCode)
}

func deriveCode(id int64, email string) ([]byte, error) {
	return qrcode.Encode(qrcode.Payload(id, email))
}

// Login verifies credentials for the given role and returns the acting
// principal. The failure message is identical for an unknown email and
// a wrong password.
func (s *Service) Login(ctx context.Context, email, password string, role Role) (Principal, error) {
	if email == "" || password == "" {
		return Principal{}, apperr.New(apperr.Validation, "email and password are required")
	}

	var id int64
	var hash string
	switch role {
	case RoleTeacher:
		t, err := s.repo.TeacherByEmail(ctx, email)
		if err != nil {
			return Principal{}, err
		}
		if t != nil {
			id, hash = t.ID, t.PasswordHash
		}
	default:
		st, err := s.repo.StudentByEmail(ctx, email)
		if err != nil {
			return Principal{}, err
		}
		if st != nil {
			id, hash = st.ID, st.PasswordHash
		}
	}

	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Principal{}, apperr.New(apperr.Authentication, "invalid email or password")
	}
	return Principal{Role: role, ID: id}, nil
}

// CreateTeacher registers a new teacher account. Callers must already
// have passed the teacher-role guard.
func (s *Service) CreateTeacher(ctx context.Context, fullName, email, password string) (Teacher, error) {
	if fullName == "" || email == "" || password == "" {
		return Teacher{}, apperr.New(apperr.Validation, "all fields are required")
	}

	if existing, err := s.repo.TeacherByEmail(ctx, email); err != nil {
		return Teacher{}, err
	} else if existing != nil {
		return Teacher{}, apperr.New(apperr.Conflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Teacher{}, apperr.Wrap(apperr.Unexpected, "password hashing failed", err)
	}
	return s.repo.CreateTeacher(ctx, fullName, email, string(hash))
}

// ListStudents returns every student, id ascending.
func (s *Service) ListStudents(ctx context.Context) ([]Student, error) {
	return s.repo.ListStudents(ctx)
}

// Student returns one student by id.
func (s *Service) Student(ctx context.Context, id int64) (Student, error) {
	st, err := s.repo.StudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if st == nil {
		return Student{}, apperr.New(apperr.NotFound, "student not found")
	}
	return *st, nil
}

// UpdateInput carries the optional fields of a partial student update.
type UpdateInput struct {
	FullName *string
	Email    *string
}

// UpdateStudent applies a partial update. Changing the email re-checks
// uniqueness; the store's constraint remains the final arbiter.
func (s *Service) UpdateStudent(ctx context.Context, id int64, in UpdateInput) (Student, error) {
	st, err := s.repo.StudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if st == nil {
		return Student{}, apperr.New(apperr.NotFound, "student not found")
	}

	if in.FullName != nil {
		if *in.FullName == "" {
			return Student{}, apperr.New(apperr.Validation, "name must not be empty")
		}
		st.FullName = *in.FullName
	}
	if in.Email != nil && *in.Email != st.Email {
		if *in.Email == "" {
			return Student{}, apperr.New(apperr.Validation, "email must not be empty")
		}
		if other, err := s.repo.StudentByEmail(ctx, *in.Email); err != nil {
			return Student{}, err
		} else if other != nil {
			return Student{}, apperr.New(apperr.Conflict, "email already registered")
		}
		st.Email = *in.Email
	}

	if err := s.repo.UpdateStudent(ctx, *st); err != nil {
		return Student{}, err
	}
	return *st, nil
}

// DeleteStudent removes a student and, transitively, all of their
// attendance events.
func (s *Service) DeleteStudent(ctx context.Context, id int64) error {
	st, err := s.repo.StudentByID(ctx, id)
	if err != nil {
		return err
	}
	if st == nil {
		return apperr.New(apperr.NotFound, "student not found")
	}
	return s.repo.DeleteStudent(ctx, id)
}

// IdentityCode returns the student's code image, generating and
// persisting it first if an older record predates code derivation.
// Only the owning student or a teacher may fetch it.
func (s *Service) IdentityCode(ctx context.Context, caller Principal, studentID int64) ([]byte, error) {
	if !caller.IsTeacher() && !(caller.Role == RoleStudent && caller.ID == studentID) {
		return nil, apperr.New(apperr.Authorization, "access denied")
	}

	st, err := s.repo.StudentByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, apperr.New(apperr.NotFound, "student not found")
	}

	if len(st.QRCode) == 0 {
		code, err := deriveCode(st.ID, st.Email)
		if err != nil {
			return nil, err
		}
		if err := s.repo.SetStudentCode(ctx, st.ID, code); err != nil {
			return nil, err
		}
		return code, nil
	}
	return st.QRCode, nil
}
