package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aulalink/gradebook-api/internal/models"
)

// SubjectRepository provides database access for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new instance of SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID returns a subject by identifier.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, student_id, teacher_id, created_at FROM subjects WHERE id = $1 LIMIT 1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subject by id: %w", err)
	}
	return &subject, nil
}

// ListByStudent returns the student's subjects ordered by name.
func (r *SubjectRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Subject, error) {
	const query = `SELECT id, name, student_id, teacher_id, created_at FROM subjects WHERE student_id = $1 ORDER BY name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, studentID); err != nil {
		return nil, fmt.Errorf("list subjects by student: %w", err)
	}
	return subjects, nil
}

// ExistsByName reports whether the student already has a subject with the
// exact name. Comparison is case-sensitive; the caller trims whitespace.
func (r *SubjectRepository) ExistsByName(ctx context.Context, studentID, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subjects WHERE student_id = $1 AND name = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, name); err != nil {
		return false, fmt.Errorf("check subject name: %w", err)
	}
	return exists, nil
}

// Create inserts a new subject record.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO subjects (id, name, student_id, teacher_id, created_at) VALUES (:id, :name, :student_id, :teacher_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// DeleteCascade removes the subject and all its grades in one transaction.
func (r *SubjectRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin subject delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const deleteGrades = `DELETE FROM grades WHERE subject_id = $1`
	if _, err := tx.ExecContext(ctx, deleteGrades, id); err != nil {
		return fmt.Errorf("delete subject grades: %w", err)
	}

	const deleteSubject = `DELETE FROM subjects WHERE id = $1`
	res, err := tx.ExecContext(ctx, deleteSubject, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit subject delete: %w", err)
	}
	return nil
}
