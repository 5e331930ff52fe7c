package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aulalink/gradebook-api/internal/grading"
	"github.com/aulalink/gradebook-api/internal/models"
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"
	"github.com/aulalink/gradebook-api/pkg/export"
)

type subjectLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Subject, error)
}

type gradeReader interface {
	ListByPeriod(ctx context.Context, subjectID, year, period string) ([]models.Grade, error)
}

// Exporter renders a dataset into a downloadable document.
type Exporter interface {
	Render(data export.Dataset) ([]byte, error)
}

// ReportService assembles per-period report cards and exports them.
type ReportService struct {
	students studentReader
	subjects subjectLister
	grades   gradeReader
	cache    *CacheService
	cacheTTL time.Duration
	csv      Exporter
	pdf      Exporter
	logger   *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(students studentReader, subjects subjectLister, grades gradeReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		students: students,
		subjects: subjects,
		grades:   grades,
		cache:    cache,
		cacheTTL: cacheTTL,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Get builds the report card for one student and grading term. Results are
// cached per student and term; grade or subject writes invalidate the
// student's report keys.
func (s *ReportService) Get(ctx context.Context, claims *models.JWTClaims, studentID, year, period string) (*models.ReportCard, error) {
	if year == "" || period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year and period required")
	}
	student, err := s.loadAccessibleStudent(ctx, claims, studentID)
	if err != nil {
		return nil, err
	}

	key := reportCacheKey(student.ID, year, period)
	if s.cache.Enabled() {
		var cached models.ReportCard
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	card, err := s.build(ctx, student, year, period)
	if err != nil {
		return nil, err
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, card, s.cacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return card, nil
}

// ExportCSV renders the report card as a CSV document.
func (s *ReportService) ExportCSV(ctx context.Context, claims *models.JWTClaims, studentID, year, period string) ([]byte, string, error) {
	return s.export(ctx, claims, studentID, year, period, s.csv, "csv")
}

// ExportPDF renders the report card as a PDF document.
func (s *ReportService) ExportPDF(ctx context.Context, claims *models.JWTClaims, studentID, year, period string) ([]byte, string, error) {
	return s.export(ctx, claims, studentID, year, period, s.pdf, "pdf")
}

func (s *ReportService) export(ctx context.Context, claims *models.JWTClaims, studentID, year, period string, exporter Exporter, extension string) ([]byte, string, error) {
	card, err := s.Get(ctx, claims, studentID, year, period)
	if err != nil {
		return nil, "", err
	}
	payload, err := exporter.Render(reportDataset(card))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	filename := fmt.Sprintf("report_%s_%s_%s.%s", card.StudentID, year, period, extension)
	return payload, filename, nil
}

func (s *ReportService) build(ctx context.Context, student *models.Student, year, period string) (*models.ReportCard, error) {
	subjects, err := s.subjects.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, storeFailure(err, "failed to list subjects")
	}

	card := &models.ReportCard{
		StudentID:   student.ID,
		StudentName: student.Name,
		GradeLevel:  student.GradeLevel,
		Year:        year,
		Period:      period,
		Subjects:    make([]models.SubjectReport, 0, len(subjects)),
	}
	for _, subject := range subjects {
		rows, err := s.grades.ListByPeriod(ctx, subject.ID, year, period)
		if err != nil {
			return nil, storeFailure(err, "failed to load grades")
		}
		grid := gridFromRows(rows)
		card.Subjects = append(card.Subjects, models.SubjectReport{
			SubjectID:   subject.ID,
			SubjectName: subject.Name,
			Summary:     grading.Summarize(grid.Tasks, grid.Exams, grid.Presentations),
		})
	}
	return card, nil
}

func (s *ReportService) loadAccessibleStudent(ctx context.Context, claims *models.JWTClaims, studentID string) (*models.Student, error) {
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

func reportCacheKey(studentID, year, period string) string {
	return fmt.Sprintf("report:%s:%s:%s", studentID, year, period)
}

func reportDataset(card *models.ReportCard) export.Dataset {
	headers := []string{"Subject", "Tasks Avg", "Exams Avg", "Presentations Avg", "Final Grade", "Status"}
	rows := make([]map[string]string, 0, len(card.Subjects))
	for _, subject := range card.Subjects {
		rows = append(rows, map[string]string{
			"Subject":           subject.SubjectName,
			"Tasks Avg":         formatGrade(subject.Summary.TaskAverage),
			"Exams Avg":         formatGrade(subject.Summary.ExamAverage),
			"Presentations Avg": formatGrade(subject.Summary.PresentationAverage),
			"Final Grade":       formatGrade(subject.Summary.FinalGrade),
			"Status":            subject.Summary.Status.Label,
		})
	}
	title := fmt.Sprintf("Report Card %s %s/%s", card.StudentName, card.Year, card.Period)
	return export.Dataset{Title: title, Headers: headers, Rows: rows}
}

func formatGrade(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
