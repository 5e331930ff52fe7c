package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aulalink/gradebook-api/internal/models"
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"
)

type teacherAdminRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	List(ctx context.Context) ([]models.TeacherOverview, error)
	SetActive(ctx context.Context, id string, active bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	DeleteCascade(ctx context.Context, id string) error
}

// SetTeacherActiveRequest toggles the account-active flag.
type SetTeacherActiveRequest struct {
	Active bool `json:"active"`
}

// UpdateTeacherPasswordRequest resets a teacher's password.
type UpdateTeacherPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// TeacherService handles admin-panel teacher management.
type TeacherService struct {
	teachers  teacherAdminRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs the teacher service.
func NewTeacherService(teachers teacherAdminRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{teachers: teachers, validator: validate, logger: logger}
}

// List returns all teachers with roster counts.
func (s *TeacherService) List(ctx context.Context) ([]models.TeacherOverview, error) {
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, storeFailure(err, "failed to list teachers")
	}
	return teachers, nil
}

// SetActive enables or disables a teacher account. A disabled teacher
// cannot log in even with correct credentials.
func (s *TeacherService) SetActive(ctx context.Context, id string, req SetTeacherActiveRequest) (*models.Teacher, error) {
	if err := s.teachers.SetActive(ctx, id, req.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, storeFailure(err, "failed to update teacher state")
	}
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "failed to reload teacher")
	}
	s.logger.Info("teacher active flag changed", zap.String("teacher_id", id), zap.Bool("active", req.Active))
	return teacher, nil
}

// UpdatePassword resets the teacher's credential secret.
func (s *TeacherService) UpdatePassword(ctx context.Context, id string, req UpdateTeacherPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.teachers.UpdatePassword(ctx, id, string(hash)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return storeFailure(err, "failed to update teacher password")
	}
	s.logger.Info("teacher password updated", zap.String("teacher_id", id))
	return nil
}

// Delete removes a teacher and cascades to owned students, their subjects
// and grades in a single transaction.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if err := s.teachers.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return storeFailure(err, "failed to delete teacher")
	}
	s.logger.Info("teacher deleted", zap.String("teacher_id", id))
	return nil
}
