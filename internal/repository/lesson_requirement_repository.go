package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// LessonRequirementRepository reads the weekly teaching demand of a term.
type LessonRequirementRepository struct {
	db *sqlx.DB
}

// NewLessonRequirementRepository creates a new lesson requirement repository.
func NewLessonRequirementRepository(db *sqlx.DB) *LessonRequirementRepository {
	return &LessonRequirementRepository{db: db}
}

// ListByTerm returns every requirement of a term in a stable order.
func (r *LessonRequirementRepository) ListByTerm(ctx context.Context, termID string) ([]models.LessonRequirement, error) {
	const query = `SELECT id, term_id, class_id, subject_id, teacher_id, lessons_per_week, duration_minutes, student_count, required_equipment, created_at FROM lesson_requirements WHERE term_id = $1 ORDER BY class_id ASC, subject_id ASC, id ASC`
	var requirements []models.LessonRequirement
	if err := r.db.SelectContext(ctx, &requirements, query, termID); err != nil {
		return nil, fmt.Errorf("list lesson requirements: %w", err)
	}
	return requirements, nil
}
