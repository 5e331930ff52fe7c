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

// TeacherRepository provides database access for teacher accounts.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new instance of TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByEmail returns a teacher by email address.
func (r *TeacherRepository) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	const query = `SELECT id, name, email, password_hash, active, created_at, updated_at FROM teachers WHERE email = $1 LIMIT 1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher by email: %w", err)
	}
	return &teacher, nil
}

// FindByID returns a teacher by identifier.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, name, email, password_hash, active, created_at, updated_at FROM teachers WHERE id = $1 LIMIT 1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher by id: %w", err)
	}
	return &teacher, nil
}

// ExistsByEmail reports whether a teacher already uses the email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM teachers WHERE email = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return exists, nil
}

// List returns every teacher with a count of owned students.
func (r *TeacherRepository) List(ctx context.Context) ([]models.TeacherOverview, error) {
	const query = `SELECT t.id, t.name, t.email, t.password_hash, t.active, t.created_at, t.updated_at, COUNT(s.id) AS student_count
		FROM teachers t LEFT JOIN students s ON s.teacher_id = t.id
		GROUP BY t.id ORDER BY t.created_at DESC`
	var teachers []models.TeacherOverview
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// Create inserts a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, name, email, password_hash, active, created_at, updated_at) VALUES (:id, :name, :email, :password_hash, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// SetActive flips the account-active flag.
func (r *TeacherRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE teachers SET active = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set teacher active: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *TeacherRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE teachers SET password_hash = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update teacher password: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCascade removes a teacher together with every owned student and,
// through them, their subjects and grades. All deletes run in one
// transaction so a partial cascade can never be observed.
func (r *TeacherRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin teacher delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const deleteGrades = `DELETE FROM grades WHERE subject_id IN (
		SELECT sub.id FROM subjects sub JOIN students s ON s.id = sub.student_id WHERE s.teacher_id = $1)`
	if _, err := tx.ExecContext(ctx, deleteGrades, id); err != nil {
		return fmt.Errorf("delete teacher grades: %w", err)
	}

	const deleteSubjects = `DELETE FROM subjects WHERE student_id IN (SELECT id FROM students WHERE teacher_id = $1)`
	if _, err := tx.ExecContext(ctx, deleteSubjects, id); err != nil {
		return fmt.Errorf("delete teacher subjects: %w", err)
	}

	const deleteStudents = `DELETE FROM students WHERE teacher_id = $1`
	if _, err := tx.ExecContext(ctx, deleteStudents, id); err != nil {
		return fmt.Errorf("delete teacher students: %w", err)
	}

	const deleteTeacher = `DELETE FROM teachers WHERE id = $1`
	res, err := tx.ExecContext(ctx, deleteTeacher, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit teacher delete: %w", err)
	}
	return nil
}
