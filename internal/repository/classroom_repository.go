package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// ClassroomRepository reads bookable rooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// ListBySchool returns the rooms of a school ordered by name.
func (r *ClassroomRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Classroom, error) {
	const query = `SELECT id, school_id, name, capacity, equipment, created_at, updated_at FROM classrooms WHERE school_id = $1 ORDER BY name ASC`
	var rooms []models.Classroom
	if err := r.db.SelectContext(ctx, &rooms, query, schoolID); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return rooms, nil
}
