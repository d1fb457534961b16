package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"rollcall/internal/apperr"
)

type fakeRepo struct {
	students      map[int64]*Student
	teachers      map[int64]*Teacher
	nextStudentID int64
	nextTeacherID int64
	codeWrites    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{students: map[int64]*Student{}, teachers: map[int64]*Teacher{}}
}

func (r *fakeRepo) CreateStudent(_ context.Context, fullName, email, passwordHash string, code CodeFunc) (Student, error) {
	for _, st := range r.students {
		if st.Email == email {
			return Student{}, apperr.New(apperr.Conflict, "email already registered")
		}
	}
	r.nextStudentID++
	st := Student{ID: r.nextStudentID, FullName: fullName, Email: email, PasswordHash: passwordHash}
	payload, err := code(st.ID, st.Email)
	if err != nil {
		return Student{}, err
	}
	st.QRCode = payload
	r.students[st.ID] = &st
	return st, nil
}

func (r *fakeRepo) StudentByEmail(_ context.Context, email string) (*Student, error) {
	for _, st := range r.students {
		if st.Email == email {
			cp := *st
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) StudentByID(_ context.Context, id int64) (*Student, error) {
	st, ok := r.students[id]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (r *fakeRepo) ListStudents(_ context.Context) ([]Student, error) {
	var res []Student
	for id := int64(1); id <= r.nextStudentID; id++ {
		if st, ok := r.students[id]; ok {
			res = append(res, *st)
		}
	}
	return res, nil
}

func (r *fakeRepo) UpdateStudent(_ context.Context, s Student) error {
	st, ok := r.students[s.ID]
	if !ok {
		return apperr.New(apperr.NotFound, "student not found")
	}
	st.FullName = s.FullName
	st.Email = s.Email
	return nil
}

func (r *fakeRepo) DeleteStudent(_ context.Context, id int64) error {
	if _, ok := r.students[id]; !ok {
		return apperr.New(apperr.NotFound, "student not found")
	}
	delete(r.students, id)
	return nil
}

func (r *fakeRepo) SetStudentCode(_ context.Context, id int64, code []byte) error {
	r.codeWrites++
	if st, ok := r.students[id]; ok {
		st.QRCode = code
	}
	return nil
}

func (r *fakeRepo) CreateTeacher(_ context.Context, fullName, email, passwordHash string) (Teacher, error) {
	for _, t := range r.teachers {
		if t.Email == email {
			return Teacher{}, apperr.New(apperr.Conflict, "email already registered")
		}
	}
	r.nextTeacherID++
	t := Teacher{ID: r.nextTeacherID, FullName: fullName, Email: email, PasswordHash: passwordHash}
	r.teachers[t.ID] = &t
	return t, nil
}

func (r *fakeRepo) TeacherByEmail(_ context.Context, email string) (*Teacher, error) {
	for _, t := range r.teachers {
		if t.Email == email {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, bcrypt.MinCost)
}

func validSignup() SignupInput {
	return SignupInput{FullName: "Ann", Email: "ann@x.com", Password: "pw1", ConfirmPassword: "pw1"}
}

func TestSignup(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	st, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ID)
	assert.NotEmpty(t, st.QRCode, "identity code must be present after signup")
	assert.NotEqual(t, "pw1", st.PasswordHash, "plaintext must never be stored")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte("pw1")))
}

func TestSignupMissingFields(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	for _, in := range []SignupInput{
		{Email: "a@x.com", Password: "p", ConfirmPassword: "p"},
		{FullName: "A", Password: "p", ConfirmPassword: "p"},
		{FullName: "A", Email: "a@x.com", ConfirmPassword: "p"},
		{FullName: "A", Email: "a@x.com", Password: "p"},
	} {
		_, err := svc.Signup(ctx, in)
		assert.True(t, apperr.Is(err, apperr.Validation))
	}
}

func TestSignupPasswordMismatch(t *testing.T) {
	svc := newTestService(newFakeRepo())
	in := validSignup()
	in.ConfirmPassword = "other"
	_, err := svc.Signup(context.Background(), in)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	in := validSignup()
	in.FullName = "Someone Else"
	in.Password, in.ConfirmPassword = "different", "different"
	_, err = svc.Signup(ctx, in)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestLogin(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	p, err := svc.Login(ctx, "ann@x.com", "pw1", RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, Principal{Role: RoleStudent, ID: 1}, p)
	assert.Equal(t, "student_1", p.Key())
}

func TestLoginNeverRevealsAccountExistence(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	_, wrongPwd := svc.Login(ctx, "ann@x.com", "nope", RoleStudent)
	_, noAccount := svc.Login(ctx, "ghost@x.com", "nope", RoleStudent)
	require.Error(t, wrongPwd)
	require.Error(t, noAccount)
	assert.Equal(t, wrongPwd.Error(), noAccount.Error())
	assert.True(t, apperr.Is(wrongPwd, apperr.Authentication))
	assert.True(t, apperr.Is(noAccount, apperr.Authentication))
}

func TestLoginRoleScoping(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	// Same email registered as both kinds; the role picks the account.
	_, err := svc.Signup(ctx, SignupInput{FullName: "Ann", Email: "ann@x.com", Password: "studentpw", ConfirmPassword: "studentpw"})
	require.NoError(t, err)
	_, err = svc.CreateTeacher(ctx, "Ann", "ann@x.com", "teacherpw")
	require.NoError(t, err)

	p, err := svc.Login(ctx, "ann@x.com", "teacherpw", RoleTeacher)
	require.NoError(t, err)
	assert.True(t, p.IsTeacher())

	_, err = svc.Login(ctx, "ann@x.com", "teacherpw", RoleStudent)
	assert.True(t, apperr.Is(err, apperr.Authentication))
}

func TestCreateTeacherDuplicate(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.CreateTeacher(ctx, "Mr K", "k@x.com", "pw")
	require.NoError(t, err)
	_, err = svc.CreateTeacher(ctx, "Other", "k@x.com", "pw2")
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestListStudentsOrderedByID(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_, err := svc.Signup(ctx, SignupInput{FullName: "S", Email: email, Password: "p", ConfirmPassword: "p"})
		require.NoError(t, err)
	}

	students, err := svc.ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, students, 3)
	for i, st := range students {
		assert.Equal(t, int64(i+1), st.ID)
	}
}

func TestUpdateStudentPartial(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	st, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	name := "Ann B"
	updated, err := svc.UpdateStudent(ctx, st.ID, UpdateInput{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ann B", updated.FullName)
	assert.Equal(t, "ann@x.com", updated.Email, "unset fields keep their value")
}

func TestUpdateStudentEmailConflict(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	st2, err := svc.Signup(ctx, SignupInput{FullName: "Bob", Email: "bob@x.com", Password: "p", ConfirmPassword: "p"})
	require.NoError(t, err)

	taken := "ann@x.com"
	_, err = svc.UpdateStudent(ctx, st2.ID, UpdateInput{Email: &taken})
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestUpdateStudentNotFound(t *testing.T) {
	svc := newTestService(newFakeRepo())
	name := "X"
	_, err := svc.UpdateStudent(context.Background(), 99, UpdateInput{FullName: &name})
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestDeleteStudentNotFound(t *testing.T) {
	svc := newTestService(newFakeRepo())
	err := svc.DeleteStudent(context.Background(), 12)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestIdentityCodeAuthorization(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	st, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	owner := Principal{Role: RoleStudent, ID: st.ID}
	otherStudent := Principal{Role: RoleStudent, ID: st.ID + 1}
	teacher := Principal{Role: RoleTeacher, ID: 1}

	code, err := svc.IdentityCode(ctx, owner, st.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, code)

	_, err = svc.IdentityCode(ctx, teacher, st.ID)
	assert.NoError(t, err)

	_, err = svc.IdentityCode(ctx, otherStudent, st.ID)
	assert.True(t, apperr.Is(err, apperr.Authorization))
}

func TestIdentityCodeLazyGeneration(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	st, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	// Simulate a record that predates code derivation.
	repo.students[st.ID].QRCode = nil

	code, err := svc.IdentityCode(ctx, Principal{Role: RoleTeacher, ID: 1}, st.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, 1, repo.codeWrites, "regenerated code must be persisted")

	// Second fetch reuses the stored code.
	_, err = svc.IdentityCode(ctx, Principal{Role: RoleTeacher, ID: 1}, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.codeWrites)
}

func TestIdentityCodeNotFound(t *testing.T) {
	svc := newTestService(newFakeRepo())
	_, err := svc.IdentityCode(context.Background(), Principal{Role: RoleTeacher, ID: 1}, 5)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
