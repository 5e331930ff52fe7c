package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aulalink/gradebook-api/internal/models"
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"
)

type adminAuthRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, admin *models.Admin) error
}

type teacherAuthRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
}

type studentAuthRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Student, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService resolves credential pairs against the three principal
// classes and performs principal registration.
type AuthService struct {
	admins    adminAuthRepository
	teachers  teacherAuthRepository
	students  studentAuthRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(admins adminAuthRepository, teachers teacherAuthRepository, students studentAuthRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{admins: admins, teachers: teachers, students: students, validator: validate, logger: logger, config: config}
}

// Login resolves the identifier against admins, then teachers, then
// students. The first class whose lookup finds a record is terminal: a
// password mismatch there fails the whole login instead of retrying the
// identifier as a different role.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	admin, err := s.admins.FindByEmail(ctx, req.Identifier)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storeFailure(err, "failed to look up admin")
	}
	if admin != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return s.newSession(models.Principal{ID: admin.ID, Name: admin.Name, Role: models.RoleAdmin, Email: admin.Email})
	}

	teacher, err := s.teachers.FindByEmail(ctx, req.Identifier)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storeFailure(err, "failed to look up teacher")
	}
	if teacher != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(req.Password)); err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		if !teacher.Active {
			return nil, appErrors.Clone(appErrors.ErrAccountDisabled, "")
		}
		return s.newSession(models.Principal{ID: teacher.ID, Name: teacher.Name, Role: models.RoleTeacher, Email: teacher.Email})
	}

	student, err := s.students.FindByUsername(ctx, req.Identifier)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storeFailure(err, "failed to look up student")
	}
	if student != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte(req.Password)); err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return s.newSession(models.Principal{
			ID:         student.ID,
			Name:       student.Name,
			Role:       models.RoleStudent,
			Username:   student.Username,
			TeacherID:  student.TeacherID,
			GradeLevel: student.GradeLevel,
		})
	}

	return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
}

// RegisterTeacher creates a teacher account. The store unique constraint
// on email is the authority; the pre-check only short-circuits the common
// case.
func (s *AuthService) RegisterTeacher(ctx context.Context, req models.RegisterTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	exists, err := s.teachers.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, storeFailure(err, "failed to check teacher email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateCredential, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	teacher := &models.Teacher{Name: req.Name, Email: req.Email, PasswordHash: string(hash), Active: true}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return nil, createFailure(err, "email already registered", "failed to create teacher")
	}

	s.logger.Info("teacher registered", zap.String("teacher_id", teacher.ID))
	return teacher, nil
}

// RegisterAdmin creates an administrator account.
func (s *AuthService) RegisterAdmin(ctx context.Context, req models.RegisterAdminRequest) (*models.Admin, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}

	exists, err := s.admins.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, storeFailure(err, "failed to check admin email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateCredential, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	admin := &models.Admin{Name: req.Name, Email: req.Email, PasswordHash: string(hash)}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, createFailure(err, "email already registered", "failed to create admin")
	}

	s.logger.Info("admin registered", zap.String("admin_id", admin.ID))
	return admin, nil
}

// RegisterStudent creates a student owned by the given teacher. Usernames
// must not contain "@" so they remain distinguishable from email
// credentials during login resolution.
func (s *AuthService) RegisterStudent(ctx context.Context, req models.RegisterStudentRequest, ownerTeacherID string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	username := strings.TrimSpace(req.Username)
	if strings.Contains(username, "@") {
		return nil, appErrors.Clone(appErrors.ErrInvalidUsername, "")
	}

	exists, err := s.students.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, storeFailure(err, "failed to check student username")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateCredential, "username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	student := &models.Student{
		Name:         req.Name,
		Username:     username,
		PasswordHash: string(hash),
		TeacherID:    ownerTeacherID,
		GradeLevel:   req.GradeLevel,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, createFailure(err, "username already taken", "failed to create student")
	}

	s.logger.Info("student registered", zap.String("student_id", student.ID), zap.String("teacher_id", ownerTeacherID))
	return student, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) newSession(principal models.Principal) (*models.Session, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		PrincipalID: principal.ID,
		Role:        principal.Role,
		Name:        principal.Name,
		Email:       principal.Email,
		Username:    principal.Username,
		TeacherID:   principal.TeacherID,
		GradeLevel:  principal.GradeLevel,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   principal.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}

	return &models.Session{
		AccessToken: signed,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		Principal:   principal,
	}, nil
}
