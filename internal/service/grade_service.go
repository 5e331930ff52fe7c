package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aulalink/gradebook-api/internal/grading"
	"github.com/aulalink/gradebook-api/internal/models"
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"
)

type gradeRepository interface {
	ListByPeriod(ctx context.Context, subjectID, year, period string) ([]models.Grade, error)
	ListPeriods(ctx context.Context, subjectID string) ([]models.GradePeriod, error)
	ReplaceGrid(ctx context.Context, upserts []models.Grade, clears []models.Grade) error
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// SaveGradesRequest carries one editor save of the full slot grid. A nil
// slot clears any previously stored value for that slot.
type SaveGradesRequest struct {
	SubjectID string           `json:"subject_id" validate:"required"`
	Year      string           `json:"year" validate:"required"`
	Period    string           `json:"period" validate:"required"`
	Grades    models.GradeGrid `json:"grades"`
}

// PeriodGrades is the grid plus its derived summary for one subject term.
type PeriodGrades struct {
	SubjectID string           `json:"subject_id"`
	Year      string           `json:"year"`
	Period    string           `json:"period"`
	Grades    models.GradeGrid `json:"grades"`
	Summary   grading.Summary  `json:"summary"`
}

// GradeService handles grade entry and retrieval for subject periods.
type GradeService struct {
	grades    gradeRepository
	subjects  subjectReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs the grade service.
func NewGradeService(grades gradeRepository, subjects subjectReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{grades: grades, subjects: subjects, cache: cache, validator: validate, logger: logger}
}

// GetPeriod returns the full slot grid with its computed summary.
func (s *GradeService) GetPeriod(ctx context.Context, claims *models.JWTClaims, subjectID, year, period string) (*PeriodGrades, error) {
	if subjectID == "" || year == "" || period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject, year and period required")
	}
	subject, err := s.loadAccessibleSubject(ctx, claims, subjectID)
	if err != nil {
		return nil, err
	}
	rows, err := s.grades.ListByPeriod(ctx, subject.ID, year, period)
	if err != nil {
		return nil, storeFailure(err, "failed to load grades")
	}
	grid := gridFromRows(rows)
	return &PeriodGrades{
		SubjectID: subject.ID,
		Year:      year,
		Period:    period,
		Grades:    grid,
		Summary:   grading.Summarize(grid.Tasks, grid.Exams, grid.Presentations),
	}, nil
}

// ListPeriods returns the grading terms a subject has stored grades for.
func (s *GradeService) ListPeriods(ctx context.Context, claims *models.JWTClaims, subjectID string) ([]models.GradePeriod, error) {
	subject, err := s.loadAccessibleSubject(ctx, claims, subjectID)
	if err != nil {
		return nil, err
	}
	periods, err := s.grades.ListPeriods(ctx, subject.ID)
	if err != nil {
		return nil, storeFailure(err, "failed to list grade periods")
	}
	return periods, nil
}

// Save diffs the submitted grid against the stored slots and applies the
// result in one transaction: filled slots are upserted, cleared slots are
// deleted. Only the owning teacher (or an admin) may write.
func (s *GradeService) Save(ctx context.Context, claims *models.JWTClaims, req SaveGradesRequest) (*PeriodGrades, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grades payload")
	}
	if err := validateGrid(req.Grades); err != nil {
		return nil, err
	}

	subject, err := s.loadAccessibleSubject(ctx, claims, req.SubjectID)
	if err != nil {
		return nil, err
	}
	if claims.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot edit grades")
	}

	existing, err := s.grades.ListByPeriod(ctx, subject.ID, req.Year, req.Period)
	if err != nil {
		return nil, storeFailure(err, "failed to load stored grades")
	}
	filled := make(map[string]bool, len(existing))
	for _, row := range existing {
		filled[slotKey(row.Category, row.SlotIndex)] = true
	}

	var upserts, clears []models.Grade
	collect := func(category models.GradeCategory, values []*float64) {
		for i, value := range values {
			grade := models.Grade{SubjectID: subject.ID, Year: req.Year, Period: req.Period, Category: category, SlotIndex: i}
			if value != nil {
				grade.Value = *value
				upserts = append(upserts, grade)
			} else if filled[slotKey(category, i)] {
				clears = append(clears, grade)
			}
		}
	}
	collect(models.CategoryTasks, req.Grades.Tasks)
	collect(models.CategoryExams, req.Grades.Exams)
	collect(models.CategoryPresentations, req.Grades.Presentations)

	if err := s.grades.ReplaceGrid(ctx, upserts, clears); err != nil {
		return nil, storeFailure(err, "failed to save grades")
	}
	s.logger.Info("grades saved",
		zap.String("subject_id", subject.ID),
		zap.String("year", req.Year),
		zap.String("period", req.Period),
		zap.Int("upserts", len(upserts)),
		zap.Int("clears", len(clears)),
	)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, fmt.Sprintf("report:%s:*", subject.StudentID)); err != nil {
			s.logger.Warn("report cache invalidation failed", zap.String("student_id", subject.StudentID), zap.Error(err))
		}
	}

	return s.GetPeriod(ctx, claims, subject.ID, req.Year, req.Period)
}

func (s *GradeService) loadAccessibleSubject(ctx context.Context, claims *models.JWTClaims, subjectID string) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, storeFailure(err, "failed to load subject")
	}
	if !canAccessSubject(claims, subject) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another principal")
	}
	return subject, nil
}

// canAccessSubject mirrors the student ownership rule at subject level.
func canAccessSubject(claims *models.JWTClaims, subject *models.Subject) bool {
	if claims == nil {
		return false
	}
	switch claims.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return subject.TeacherID == claims.PrincipalID
	case models.RoleStudent:
		return subject.StudentID == claims.PrincipalID
	default:
		return false
	}
}

func validateGrid(grid models.GradeGrid) error {
	if len(grid.Tasks) != grading.TaskSlots || len(grid.Exams) != grading.ExamSlots || len(grid.Presentations) != grading.PresentationSlots {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grid must have %d task, %d exam and %d presentation slots", grading.TaskSlots, grading.ExamSlots, grading.PresentationSlots))
	}
	check := func(values []*float64) error {
		for _, v := range values {
			if v != nil && (*v < 0 || *v > 10) {
				return appErrors.Clone(appErrors.ErrValidation, "grade values must be between 0 and 10")
			}
		}
		return nil
	}
	if err := check(grid.Tasks); err != nil {
		return err
	}
	if err := check(grid.Exams); err != nil {
		return err
	}
	return check(grid.Presentations)
}

func slotKey(category models.GradeCategory, index int) string {
	return fmt.Sprintf("%s:%d", category, index)
}

func gridFromRows(rows []models.Grade) models.GradeGrid {
	grid := models.GradeGrid{
		Tasks:         make([]*float64, grading.TaskSlots),
		Exams:         make([]*float64, grading.ExamSlots),
		Presentations: make([]*float64, grading.PresentationSlots),
	}
	for _, row := range rows {
		value := row.Value
		switch row.Category {
		case models.CategoryTasks:
			if row.SlotIndex >= 0 && row.SlotIndex < grading.TaskSlots {
				grid.Tasks[row.SlotIndex] = &value
			}
		case models.CategoryExams:
			if row.SlotIndex >= 0 && row.SlotIndex < grading.ExamSlots {
				grid.Exams[row.SlotIndex] = &value
			}
		case models.CategoryPresentations:
			if row.SlotIndex >= 0 && row.SlotIndex < grading.PresentationSlots {
				grid.Presentations[row.SlotIndex] = &value
			}
		}
	}
	return grid
}
