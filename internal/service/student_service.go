package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aulalink/gradebook-api/internal/models"
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	CountDependents(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
	Transfer(ctx context.Context, studentID, newTeacherID string) error
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// UpdateStudentRequest holds mutable student fields.
type UpdateStudentRequest struct {
	Name       string `json:"name" validate:"required"`
	GradeLevel string `json:"grade_level"`
}

// TransferStudentRequest reassigns a student to a new owning teacher.
type TransferStudentRequest struct {
	NewTeacherID string `json:"new_teacher_id" validate:"required"`
}

// StudentService handles student roster use-cases for teachers and admins.
type StudentService struct {
	students  studentRepository
	teachers  teacherReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(students studentRepository, teachers teacherReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, teachers: teachers, validator: validate, logger: logger}
}

// List returns the students owned by the teacher.
func (s *StudentService) List(ctx context.Context, teacherID string) ([]models.Student, error) {
	students, err := s.students.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, storeFailure(err, "failed to list students")
	}
	return students, nil
}

// Get returns one student, enforcing owner scoping for teachers.
func (s *StudentService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Student, error) {
	student, err := s.loadOwned(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	return student, nil
}

// Update mutates name and grade level of an owned student.
func (s *StudentService) Update(ctx context.Context, claims *models.JWTClaims, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.loadOwned(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	student.Name = req.Name
	student.GradeLevel = req.GradeLevel
	if err := s.students.Update(ctx, student); err != nil {
		return nil, storeFailure(err, "failed to update student")
	}
	return student, nil
}

// Delete removes a student, refusing while dependent subject or grade
// rows exist. The caller must remove those first; the guard prevents
// silently cascading away recorded grades.
func (s *StudentService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	if _, err := s.loadOwned(ctx, claims, id); err != nil {
		return err
	}
	dependents, err := s.students.CountDependents(ctx, id)
	if err != nil {
		return storeFailure(err, "failed to count student dependents")
	}
	if dependents > 0 {
		return appErrors.Clone(appErrors.ErrHasDependents, "")
	}
	if err := s.students.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return storeFailure(err, "failed to delete student")
	}
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

// Transfer reassigns the student and all their subjects to the new owner
// atomically.
func (s *StudentService) Transfer(ctx context.Context, claims *models.JWTClaims, studentID string, req TransferStudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	if _, err := s.loadOwned(ctx, claims, studentID); err != nil {
		return err
	}
	if _, err := s.teachers.FindByID(ctx, req.NewTeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "recipient teacher not found")
		}
		return storeFailure(err, "failed to load recipient teacher")
	}
	if err := s.students.Transfer(ctx, studentID, req.NewTeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return storeFailure(err, "failed to transfer student")
	}
	s.logger.Info("student transferred", zap.String("student_id", studentID), zap.String("new_teacher_id", req.NewTeacherID))
	return nil
}

func (s *StudentService) loadOwned(ctx context.Context, claims *models.JWTClaims, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
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

// canAccessStudent implements the ownership rule: admins see every
// student, teachers only their own, students only themselves.
func canAccessStudent(claims *models.JWTClaims, student *models.Student) bool {
	if claims == nil {
		return false
	}
	switch claims.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return student.TeacherID == claims.PrincipalID
	case models.RoleStudent:
		return student.ID == claims.PrincipalID
	default:
		return false
	}
}
