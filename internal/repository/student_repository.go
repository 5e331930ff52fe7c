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

// StudentRepository provides database access for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new instance of StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByUsername returns a student by username.
func (r *StudentRepository) FindByUsername(ctx context.Context, username string) (*models.Student, error) {
	const query = `SELECT id, name, username, password_hash, teacher_id, grade_level, created_at, updated_at FROM students WHERE username = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by username: %w", err)
	}
	return &student, nil
}

// FindByID returns a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, name, username, password_hash, teacher_id, grade_level, created_at, updated_at FROM students WHERE id = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// ExistsByUsername reports whether a student already uses the username.
func (r *StudentRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM students WHERE username = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, username); err != nil {
		return false, fmt.Errorf("check student username: %w", err)
	}
	return exists, nil
}

// ListByTeacher returns every student owned by the teacher.
func (r *StudentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Student, error) {
	const query = `SELECT id, name, username, password_hash, teacher_id, grade_level, created_at, updated_at FROM students WHERE teacher_id = $1 ORDER BY name ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, teacherID); err != nil {
		return nil, fmt.Errorf("list students by teacher: %w", err)
	}
	return students, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, name, username, password_hash, teacher_id, grade_level, created_at, updated_at) VALUES (:id, :name, :username, :password_hash, :teacher_id, :grade_level, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update updates mutable fields of a student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, grade_level = :grade_level, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// CountDependents returns how many subject and grade rows reference the
// student. Deletion is refused while this is non-zero.
func (r *StudentRepository) CountDependents(ctx context.Context, id string) (int, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM subjects WHERE student_id = $1) +
		(SELECT COUNT(*) FROM grades g JOIN subjects sub ON sub.id = g.subject_id WHERE sub.student_id = $1)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count student dependents: %w", err)
	}
	return count, nil
}

// Delete removes a student row.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM students WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Transfer reassigns the student and every one of their subjects to the
// new owner in one transaction. Either both updates land or neither does.
func (r *StudentRepository) Transfer(ctx context.Context, studentID, newTeacherID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student transfer: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const updateStudent = `UPDATE students SET teacher_id = $2, updated_at = $3 WHERE id = $1`
	res, err := tx.ExecContext(ctx, updateStudent, studentID, newTeacherID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("transfer student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	const updateSubjects = `UPDATE subjects SET teacher_id = $2 WHERE student_id = $1`
	if _, err := tx.ExecContext(ctx, updateSubjects, studentID, newTeacherID); err != nil {
		return fmt.Errorf("transfer student subjects: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student transfer: %w", err)
	}
	return nil
}
