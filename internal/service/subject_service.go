package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aulalink/gradebook-api/internal/models"
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"
)

type subjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Subject, error)
	ExistsByName(ctx context.Context, studentID, name string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	DeleteCascade(ctx context.Context, id string) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// AssignSubjectRequest attaches a subject to a student.
type AssignSubjectRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
}

// SubjectService handles subject assignment and removal.
type SubjectService struct {
	subjects  subjectRepository
	students  studentReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs the subject service.
func NewSubjectService(subjects subjectRepository, students studentReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{subjects: subjects, students: students, cache: cache, validator: validate, logger: logger}
}

// Assign creates a subject for an owned student. Subject names are unique
// per student; the name is trimmed but compared case-sensitively, so
// "Historia" and "historia" are distinct subjects. The store unique
// constraint on (student_id, name) is the authority; the pre-check only
// short-circuits the common case.
func (s *SubjectService) Assign(ctx context.Context, claims *models.JWTClaims, req AssignSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject name required")
	}

	student, err := s.loadOwnedStudent(ctx, claims, req.StudentID)
	if err != nil {
		return nil, err
	}

	exists, err := s.subjects.ExistsByName(ctx, student.ID, name)
	if err != nil {
		return nil, storeFailure(err, "failed to check subject name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject already assigned to this student")
	}

	subject := &models.Subject{Name: name, StudentID: student.ID, TeacherID: student.TeacherID}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, conflictFailure(err, "subject already assigned to this student", "failed to create subject")
	}

	s.invalidateReports(ctx, student.ID)
	return subject, nil
}

// ListByStudent returns the subjects of an owned student.
func (s *SubjectService) ListByStudent(ctx context.Context, claims *models.JWTClaims, studentID string) ([]models.Subject, error) {
	student, err := s.loadOwnedStudent(ctx, claims, studentID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.subjects.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, storeFailure(err, "failed to list subjects")
	}
	return subjects, nil
}

// Remove deletes the subject and all its grades.
func (s *SubjectService) Remove(ctx context.Context, claims *models.JWTClaims, subjectID string) error {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return storeFailure(err, "failed to load subject")
	}
	if _, err := s.loadOwnedStudent(ctx, claims, subject.StudentID); err != nil {
		return err
	}
	if err := s.subjects.DeleteCascade(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return storeFailure(err, "failed to delete subject")
	}
	s.logger.Info("subject removed", zap.String("subject_id", subjectID), zap.String("student_id", subject.StudentID))
	s.invalidateReports(ctx, subject.StudentID)
	return nil
}

func (s *SubjectService) loadOwnedStudent(ctx context.Context, claims *models.JWTClaims, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeFailure(err, "failed to load student")
	}
	if !canAccessStudent(claims, student) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another teacher")
	}
	return student, nil
}

func (s *SubjectService) invalidateReports(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("report:%s:*", studentID)); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}
