package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aulalink/gradebook-api/internal/models"
)

// GradeRepository provides database access for grade slots.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new instance of GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListByPeriod returns every filled slot for one subject period.
func (r *GradeRepository) ListByPeriod(ctx context.Context, subjectID, year, period string) ([]models.Grade, error) {
	const query = `SELECT id, subject_id, year, period, category, slot_index, value, created_at, updated_at
		FROM grades WHERE subject_id = $1 AND year = $2 AND period = $3
		ORDER BY category, slot_index`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, subjectID, year, period); err != nil {
		return nil, fmt.Errorf("list grades by period: %w", err)
	}
	return grades, nil
}

// ListPeriods returns the distinct grading terms a subject has grades for.
func (r *GradeRepository) ListPeriods(ctx context.Context, subjectID string) ([]models.GradePeriod, error) {
	const query = `SELECT DISTINCT year, period FROM grades WHERE subject_id = $1 ORDER BY year, period`
	var periods []models.GradePeriod
	if err := r.db.SelectContext(ctx, &periods, query, subjectID); err != nil {
		return nil, fmt.Errorf("list grade periods: %w", err)
	}
	return periods, nil
}

// ReplaceGrid applies one editor save as a single transaction: filled
// slots are upserted against the composite unique key and cleared slots
// are deleted. Clearing a slot removes the row entirely, it never stores
// an empty value.
func (r *GradeRepository) ReplaceGrid(ctx context.Context, upserts []models.Grade, clears []models.Grade) error {
	if len(upserts) == 0 && len(clears) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grade save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const upsertQuery = `INSERT INTO grades (id, subject_id, year, period, category, slot_index, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (subject_id, year, period, category, slot_index)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for _, grade := range upserts {
		id := grade.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, upsertQuery, id, grade.SubjectID, grade.Year, grade.Period, grade.Category, grade.SlotIndex, grade.Value, now); err != nil {
			return fmt.Errorf("upsert grade slot: %w", err)
		}
	}

	const deleteQuery = `DELETE FROM grades WHERE subject_id = $1 AND year = $2 AND period = $3 AND category = $4 AND slot_index = $5`
	for _, grade := range clears {
		if _, err := tx.ExecContext(ctx, deleteQuery, grade.SubjectID, grade.Year, grade.Period, grade.Category, grade.SlotIndex); err != nil {
			return fmt.Errorf("clear grade slot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grade save: %w", err)
	}
	return nil
}
