package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aulalink/gradebook-api/internal/models"
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"
)

type mockAdminRepo struct {
	admin       *models.Admin
	findErr     error
	exists      bool
	existsErr   error
	created     *models.Admin
	createErr   error
	lookupCalls int
}

func (m *mockAdminRepo) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	m.lookupCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.admin == nil {
		return nil, sql.ErrNoRows
	}
	return m.admin, nil
}

func (m *mockAdminRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockAdminRepo) Create(ctx context.Context, admin *models.Admin) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = admin
	return nil
}

type mockTeacherAuthRepo struct {
	teacher     *models.Teacher
	findErr     error
	exists      bool
	existsErr   error
	created     *models.Teacher
	createErr   error
	lookupCalls int
}

func (m *mockTeacherAuthRepo) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	m.lookupCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.teacher == nil {
		return nil, sql.ErrNoRows
	}
	return m.teacher, nil
}

func (m *mockTeacherAuthRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockTeacherAuthRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = teacher
	return nil
}

type mockStudentAuthRepo struct {
	student     *models.Student
	findErr     error
	exists      bool
	existsErr   error
	created     *models.Student
	createErr   error
	lookupCalls int
}

func (m *mockStudentAuthRepo) FindByUsername(ctx context.Context, username string) (*models.Student, error) {
	m.lookupCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.student == nil {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

func (m *mockStudentAuthRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockStudentAuthRepo) Create(ctx context.Context, student *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = student
	return nil
}

func newTestAuthService(admins *mockAdminRepo, teachers *mockTeacherAuthRepo, students *mockStudentAuthRepo) *AuthService {
	return NewAuthService(admins, teachers, students, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "gradebook-api",
	})
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginAdmin(t *testing.T) {
	admins := &mockAdminRepo{admin: &models.Admin{ID: "a1", Name: "Root", Email: "root@example.com", PasswordHash: hashOf(t, "password")}}
	teachers := &mockTeacherAuthRepo{}
	students := &mockStudentAuthRepo{}
	svc := newTestAuthService(admins, teachers, students)

	session, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "root@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, models.RoleAdmin, session.Principal.Role)
	assert.Zero(t, teachers.lookupCalls, "teacher lookup should not run once an admin matched")
	assert.Zero(t, students.lookupCalls)
}

func TestAuthServiceLoginDisabledTeacher(t *testing.T) {
	teachers := &mockTeacherAuthRepo{teacher: &models.Teacher{ID: "t1", Email: "t@example.com", PasswordHash: hashOf(t, "password"), Active: false}}
	svc := newTestAuthService(&mockAdminRepo{}, teachers, &mockStudentAuthRepo{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "t@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountDisabled.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginDisabledTeacherWrongPassword(t *testing.T) {
	teachers := &mockTeacherAuthRepo{teacher: &models.Teacher{ID: "t1", Email: "t@example.com", PasswordHash: hashOf(t, "password"), Active: false}}
	svc := newTestAuthService(&mockAdminRepo{}, teachers, &mockStudentAuthRepo{})

	// The disabled state must not leak to callers that never proved
	// possession of the password.
	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "t@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginMismatchIsTerminal(t *testing.T) {
	teachers := &mockTeacherAuthRepo{teacher: &models.Teacher{ID: "t1", Email: "shared", PasswordHash: hashOf(t, "teacherpass"), Active: true}}
	students := &mockStudentAuthRepo{student: &models.Student{ID: "s1", Username: "shared", PasswordHash: hashOf(t, "studentpass"), TeacherID: "t1"}}
	svc := newTestAuthService(&mockAdminRepo{}, teachers, students)

	// A teacher match with the wrong password fails outright; the same
	// identifier is never retried as a student credential.
	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "shared", Password: "studentpass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Zero(t, students.lookupCalls)
}

func TestAuthServiceLoginStudent(t *testing.T) {
	students := &mockStudentAuthRepo{student: &models.Student{ID: "s1", Name: "Ana", Username: "ana2024", PasswordHash: hashOf(t, "password"), TeacherID: "t1", GradeLevel: "5"}}
	svc := newTestAuthService(&mockAdminRepo{}, &mockTeacherAuthRepo{}, students)

	session, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "ana2024", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, session.Principal.Role)
	assert.Equal(t, "t1", session.Principal.TeacherID)
}

func TestAuthServiceLoginStoreUnavailable(t *testing.T) {
	// An unreachable store must not masquerade as a rejected credential:
	// the client retries on STORE_UNAVAILABLE but gives up on
	// INVALID_CREDENTIALS.
	dialErr := fmt.Errorf("find teacher by email: %w", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})
	teachers := &mockTeacherAuthRepo{findErr: dialErr}
	students := &mockStudentAuthRepo{}
	svc := newTestAuthService(&mockAdminRepo{}, teachers, students)

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "t@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
	assert.Zero(t, students.lookupCalls, "resolution must stop at the failed class")
}

func TestAuthServiceLoginUnknownIdentifier(t *testing.T) {
	svc := newTestAuthService(&mockAdminRepo{}, &mockTeacherAuthRepo{}, &mockStudentAuthRepo{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "nobody", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterTeacher(t *testing.T) {
	teachers := &mockTeacherAuthRepo{}
	svc := newTestAuthService(&mockAdminRepo{}, teachers, &mockStudentAuthRepo{})

	teacher, err := svc.RegisterTeacher(context.Background(), models.RegisterTeacherRequest{Name: "New", Email: "new@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, teacher.Active)
	assert.NotEqual(t, "secret1", teacher.PasswordHash)
	require.NotNil(t, teachers.created)
}

func TestAuthServiceRegisterTeacherDuplicate(t *testing.T) {
	teachers := &mockTeacherAuthRepo{exists: true}
	svc := newTestAuthService(&mockAdminRepo{}, teachers, &mockStudentAuthRepo{})

	_, err := svc.RegisterTeacher(context.Background(), models.RegisterTeacherRequest{Name: "New", Email: "new@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateCredential.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterStudentRejectsEmailLikeUsername(t *testing.T) {
	students := &mockStudentAuthRepo{}
	svc := newTestAuthService(&mockAdminRepo{}, &mockTeacherAuthRepo{}, students)

	_, err := svc.RegisterStudent(context.Background(), models.RegisterStudentRequest{Name: "Ana", Username: "ana@school.com", Password: "secret1"}, "t1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidUsername.Code, appErrors.FromError(err).Code)
	assert.Nil(t, students.created)
}

func TestAuthServiceRegisterStudentDuplicateUsername(t *testing.T) {
	students := &mockStudentAuthRepo{exists: true}
	svc := newTestAuthService(&mockAdminRepo{}, &mockTeacherAuthRepo{}, students)

	_, err := svc.RegisterStudent(context.Background(), models.RegisterStudentRequest{Name: "Ana", Username: "ana2024", Password: "secret1"}, "t1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateCredential.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterStudentOwnedByTeacher(t *testing.T) {
	students := &mockStudentAuthRepo{}
	svc := newTestAuthService(&mockAdminRepo{}, &mockTeacherAuthRepo{}, students)

	student, err := svc.RegisterStudent(context.Background(), models.RegisterStudentRequest{Name: "Ana", Username: " ana2024 ", Password: "secret1", GradeLevel: "5"}, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", student.TeacherID)
	assert.Equal(t, "ana2024", student.Username)
}

func TestAuthServiceValidateTokenRoundTrip(t *testing.T) {
	admins := &mockAdminRepo{admin: &models.Admin{ID: "a1", Name: "Root", Email: "root@example.com", PasswordHash: hashOf(t, "password")}}
	svc := newTestAuthService(admins, &mockTeacherAuthRepo{}, &mockStudentAuthRepo{})

	session, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "root@example.com", Password: "password"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.PrincipalID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = svc.ValidateToken(session.AccessToken + "tampered")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceClaimsCarryPrincipalSnapshot(t *testing.T) {
	students := &mockStudentAuthRepo{student: &models.Student{ID: "s1", Name: "Ana", Username: "ana2024", PasswordHash: hashOf(t, "password"), TeacherID: "t1", GradeLevel: "5"}}
	svc := newTestAuthService(&mockAdminRepo{}, &mockTeacherAuthRepo{}, students)

	session, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "ana2024", Password: "password"})
	require.NoError(t, err)

	// The principal rebuilt from the token must match the login snapshot,
	// so /me never answers with a thinner view than login did.
	claims, err := svc.ValidateToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.Principal, claims.Principal())
	assert.Equal(t, "ana2024", claims.Username)
	assert.Equal(t, "t1", claims.TeacherID)
	assert.Equal(t, "5", claims.GradeLevel)
}
