package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aulalink/gradebook-api/internal/grading"
	"github.com/aulalink/gradebook-api/internal/models"
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"
)

type mockGradeRepo struct {
	rows         []models.Grade
	listErr      error
	lastUpserts  []models.Grade
	lastClears   []models.Grade
	replaceCalls int
	periods      []models.GradePeriod
}

func (m *mockGradeRepo) ListByPeriod(ctx context.Context, subjectID, year, period string) ([]models.Grade, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.rows, nil
}

func (m *mockGradeRepo) ListPeriods(ctx context.Context, subjectID string) ([]models.GradePeriod, error) {
	return m.periods, nil
}

func (m *mockGradeRepo) ReplaceGrid(ctx context.Context, upserts []models.Grade, clears []models.Grade) error {
	m.replaceCalls++
	m.lastUpserts = upserts
	m.lastClears = clears

	kept := m.rows[:0]
	for _, row := range m.rows {
		cleared := false
		for _, c := range clears {
			if c.Category == row.Category && c.SlotIndex == row.SlotIndex {
				cleared = true
				break
			}
		}
		if !cleared {
			kept = append(kept, row)
		}
	}
	m.rows = kept
	for _, up := range upserts {
		replaced := false
		for i, row := range m.rows {
			if row.Category == up.Category && row.SlotIndex == up.SlotIndex {
				m.rows[i] = up
				replaced = true
				break
			}
		}
		if !replaced {
			m.rows = append(m.rows, up)
		}
	}
	return nil
}

func fullGrid(values ...float64) models.GradeGrid {
	grid := models.GradeGrid{
		Tasks:         make([]*float64, grading.TaskSlots),
		Exams:         make([]*float64, grading.ExamSlots),
		Presentations: make([]*float64, grading.PresentationSlots),
	}
	for i := range values {
		v := values[i]
		switch {
		case i < grading.TaskSlots:
			grid.Tasks[i] = &v
		case i < grading.TaskSlots+grading.ExamSlots:
			grid.Exams[i-grading.TaskSlots] = &v
		default:
			grid.Presentations[i-grading.TaskSlots-grading.ExamSlots] = &v
		}
	}
	return grid
}

func newTestGradeService(grades *mockGradeRepo, subjects *mockSubjectRepo) *GradeService {
	return NewGradeService(grades, subjects, nil, validator.New(), zap.NewNop())
}

func testSubject() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: map[string]*models.Subject{
		"sub1": {ID: "sub1", Name: "Historia", StudentID: "s1", TeacherID: "t1"},
	}}
}

func TestGradeServiceSaveDiffsUpsertsAndClears(t *testing.T) {
	nine := 9.0
	grades := &mockGradeRepo{rows: []models.Grade{
		{SubjectID: "sub1", Year: "2024", Period: "1", Category: models.CategoryTasks, SlotIndex: 0, Value: 5},
		{SubjectID: "sub1", Year: "2024", Period: "1", Category: models.CategoryExams, SlotIndex: 2, Value: 6},
	}}
	svc := newTestGradeService(grades, testSubject())

	grid := models.GradeGrid{
		Tasks:         []*float64{&nine, nil, nil, nil},
		Exams:         []*float64{nil, nil, nil},
		Presentations: []*float64{nil, nil, nil},
	}
	result, err := svc.Save(context.Background(), teacherClaims("t1"), SaveGradesRequest{SubjectID: "sub1", Year: "2024", Period: "1", Grades: grid})
	require.NoError(t, err)

	require.Len(t, grades.lastUpserts, 1)
	assert.Equal(t, models.CategoryTasks, grades.lastUpserts[0].Category)
	assert.Equal(t, 9.0, grades.lastUpserts[0].Value)

	// Only the previously stored exam slot produces a delete; absent
	// slots that were never filled are not touched.
	require.Len(t, grades.lastClears, 1)
	assert.Equal(t, models.CategoryExams, grades.lastClears[0].Category)
	assert.Equal(t, 2, grades.lastClears[0].SlotIndex)

	require.NotNil(t, result.Grades.Tasks[0])
	assert.Equal(t, 9.0, *result.Grades.Tasks[0])
	assert.Nil(t, result.Grades.Exams[2])
}

func TestGradeServiceSaveRejectsOutOfRange(t *testing.T) {
	grades := &mockGradeRepo{}
	svc := newTestGradeService(grades, testSubject())

	bad := 10.5
	grid := models.GradeGrid{
		Tasks:         []*float64{&bad, nil, nil, nil},
		Exams:         []*float64{nil, nil, nil},
		Presentations: []*float64{nil, nil, nil},
	}
	_, err := svc.Save(context.Background(), teacherClaims("t1"), SaveGradesRequest{SubjectID: "sub1", Year: "2024", Period: "1", Grades: grid})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, grades.replaceCalls)
}

func TestGradeServiceSaveRejectsWrongShape(t *testing.T) {
	svc := newTestGradeService(&mockGradeRepo{}, testSubject())

	grid := models.GradeGrid{Tasks: []*float64{nil, nil}, Exams: []*float64{nil, nil, nil}, Presentations: []*float64{nil, nil, nil}}
	_, err := svc.Save(context.Background(), teacherClaims("t1"), SaveGradesRequest{SubjectID: "sub1", Year: "2024", Period: "1", Grades: grid})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceSaveForbiddenForStudents(t *testing.T) {
	svc := newTestGradeService(&mockGradeRepo{}, testSubject())

	grid := fullGrid()
	_, err := svc.Save(context.Background(), &models.JWTClaims{PrincipalID: "s1", Role: models.RoleStudent}, SaveGradesRequest{SubjectID: "sub1", Year: "2024", Period: "1", Grades: grid})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceSaveForbiddenForForeignTeacher(t *testing.T) {
	svc := newTestGradeService(&mockGradeRepo{}, testSubject())

	_, err := svc.Save(context.Background(), teacherClaims("t2"), SaveGradesRequest{SubjectID: "sub1", Year: "2024", Period: "1", Grades: fullGrid()})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceGetPeriodSummarizes(t *testing.T) {
	grades := &mockGradeRepo{rows: []models.Grade{
		{Category: models.CategoryTasks, SlotIndex: 0, Value: 10},
		{Category: models.CategoryTasks, SlotIndex: 1, Value: 8},
		{Category: models.CategoryExams, SlotIndex: 0, Value: 7},
		{Category: models.CategoryPresentations, SlotIndex: 0, Value: 6},
	}}
	svc := newTestGradeService(grades, testSubject())

	result, err := svc.GetPeriod(context.Background(), teacherClaims("t1"), "sub1", "2024", "1")
	require.NoError(t, err)
	assert.Equal(t, 9.0, result.Summary.TaskAverage)
	assert.Equal(t, 7.0, result.Summary.ExamAverage)
	assert.Equal(t, 6.0, result.Summary.PresentationAverage)
	assert.Equal(t, 7.6, result.Summary.FinalGrade)
	assert.Equal(t, "Good", result.Summary.Status.Label)
}

func TestGradeServiceGetPeriodVisibleToOwningStudent(t *testing.T) {
	svc := newTestGradeService(&mockGradeRepo{}, testSubject())

	_, err := svc.GetPeriod(context.Background(), &models.JWTClaims{PrincipalID: "s1", Role: models.RoleStudent}, "sub1", "2024", "1")
	require.NoError(t, err)

	_, err = svc.GetPeriod(context.Background(), &models.JWTClaims{PrincipalID: "s2", Role: models.RoleStudent}, "sub1", "2024", "1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceListPeriods(t *testing.T) {
	grades := &mockGradeRepo{periods: []models.GradePeriod{{Year: "2024", Period: "1"}, {Year: "2024", Period: "2"}}}
	svc := newTestGradeService(grades, testSubject())

	periods, err := svc.ListPeriods(context.Background(), teacherClaims("t1"), "sub1")
	require.NoError(t, err)
	assert.Len(t, periods, 2)
}
