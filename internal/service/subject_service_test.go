package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aulalink/gradebook-api/internal/models"
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"
)

type mockSubjectRepo struct {
	subjects  map[string]*models.Subject
	names     map[string]bool
	created   *models.Subject
	createErr error
	deleted   []string
}

func (m *mockSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := m.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return subject, nil
}

func (m *mockSubjectRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Subject, error) {
	var out []models.Subject
	for _, subject := range m.subjects {
		if subject.StudentID == studentID {
			out = append(out, *subject)
		}
	}
	return out, nil
}

func (m *mockSubjectRepo) ExistsByName(ctx context.Context, studentID, name string) (bool, error) {
	return m.names[studentID+"/"+name], nil
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	if m.createErr != nil {
		return m.createErr
	}
	subject.ID = "sub-new"
	m.created = subject
	return nil
}

func (m *mockSubjectRepo) DeleteCascade(ctx context.Context, id string) error {
	if _, ok := m.subjects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.subjects, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func newTestSubjectService(subjects *mockSubjectRepo, students *mockStudentRepo) *SubjectService {
	return NewSubjectService(subjects, students, nil, validator.New(), zap.NewNop())
}

func TestSubjectServiceAssignInheritsOwner(t *testing.T) {
	subjects := &mockSubjectRepo{subjects: map[string]*models.Subject{}, names: map[string]bool{}}
	students := &mockStudentRepo{students: map[string]*models.Student{"s1": {ID: "s1", TeacherID: "t1"}}}
	svc := newTestSubjectService(subjects, students)

	subject, err := svc.Assign(context.Background(), teacherClaims("t1"), AssignSubjectRequest{StudentID: "s1", Name: "  Historia "})
	require.NoError(t, err)
	assert.Equal(t, "Historia", subject.Name)
	assert.Equal(t, "t1", subject.TeacherID)
	assert.Equal(t, "s1", subject.StudentID)
}

func TestSubjectServiceAssignDuplicateName(t *testing.T) {
	subjects := &mockSubjectRepo{subjects: map[string]*models.Subject{}, names: map[string]bool{"s1/Historia": true}}
	students := &mockStudentRepo{students: map[string]*models.Student{"s1": {ID: "s1", TeacherID: "t1"}}}
	svc := newTestSubjectService(subjects, students)

	_, err := svc.Assign(context.Background(), teacherClaims("t1"), AssignSubjectRequest{StudentID: "s1", Name: "Historia"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceAssignLostRaceHitsConstraint(t *testing.T) {
	// A concurrent assign can slip between the name pre-check and the
	// insert; the (student_id, name) unique constraint catches it and the
	// violation must surface as CONFLICT, not as an internal failure.
	subjects := &mockSubjectRepo{
		subjects:  map[string]*models.Subject{},
		names:     map[string]bool{},
		createErr: fmt.Errorf("create subject: %w", &pq.Error{Code: "23505"}),
	}
	students := &mockStudentRepo{students: map[string]*models.Student{"s1": {ID: "s1", TeacherID: "t1"}}}
	svc := newTestSubjectService(subjects, students)

	_, err := svc.Assign(context.Background(), teacherClaims("t1"), AssignSubjectRequest{StudentID: "s1", Name: "Historia"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, subjects.created)
}

func TestSubjectServiceAssignCaseSensitiveNames(t *testing.T) {
	subjects := &mockSubjectRepo{subjects: map[string]*models.Subject{}, names: map[string]bool{"s1/Historia": true}}
	students := &mockStudentRepo{students: map[string]*models.Student{"s1": {ID: "s1", TeacherID: "t1"}}}
	svc := newTestSubjectService(subjects, students)

	subject, err := svc.Assign(context.Background(), teacherClaims("t1"), AssignSubjectRequest{StudentID: "s1", Name: "historia"})
	require.NoError(t, err)
	assert.Equal(t, "historia", subject.Name)
}

func TestSubjectServiceAssignForeignStudent(t *testing.T) {
	subjects := &mockSubjectRepo{subjects: map[string]*models.Subject{}, names: map[string]bool{}}
	students := &mockStudentRepo{students: map[string]*models.Student{"s1": {ID: "s1", TeacherID: "t1"}}}
	svc := newTestSubjectService(subjects, students)

	_, err := svc.Assign(context.Background(), teacherClaims("t2"), AssignSubjectRequest{StudentID: "s1", Name: "Historia"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceRemove(t *testing.T) {
	subjects := &mockSubjectRepo{subjects: map[string]*models.Subject{"sub1": {ID: "sub1", StudentID: "s1", TeacherID: "t1"}}}
	students := &mockStudentRepo{students: map[string]*models.Student{"s1": {ID: "s1", TeacherID: "t1"}}}
	svc := newTestSubjectService(subjects, students)

	err := svc.Remove(context.Background(), teacherClaims("t1"), "sub1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sub1"}, subjects.deleted)
}

func TestSubjectServiceRemoveUnknown(t *testing.T) {
	svc := newTestSubjectService(&mockSubjectRepo{subjects: map[string]*models.Subject{}}, &mockStudentRepo{students: map[string]*models.Student{}})

	err := svc.Remove(context.Background(), adminClaims(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
