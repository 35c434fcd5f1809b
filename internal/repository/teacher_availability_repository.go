package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/noah-isme/sma-timetable/internal/models"
)

type teacherAvailabilityRow struct {
	ID          string    `db:"id"`
	TeacherID   string    `db:"teacher_id"`
	DayOfWeek   int       `db:"day_of_week"`
	StartMinute int       `db:"start_minute"`
	EndMinute   int       `db:"end_minute"`
	Available   bool      `db:"available"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r teacherAvailabilityRow) model() models.TeacherAvailability {
	return models.TeacherAvailability{
		ID:        r.ID,
		TeacherID: r.TeacherID,
		Interval: models.TimeInterval{
			Day:   models.DayOfWeek(r.DayOfWeek),
			Start: models.TimeOfDay(r.StartMinute),
			End:   models.TimeOfDay(r.EndMinute),
		},
		Available: r.Available,
		UpdatedAt: r.UpdatedAt,
	}
}

// TeacherAvailabilityRepository reads availability windows of teachers.
type TeacherAvailabilityRepository struct {
	db *sqlx.DB
}

// NewTeacherAvailabilityRepository creates a new availability repository.
func NewTeacherAvailabilityRepository(db *sqlx.DB) *TeacherAvailabilityRepository {
	return &TeacherAvailabilityRepository{db: db}
}

// ListByTeachers returns the windows recorded for any of the given teachers.
func (r *TeacherAvailabilityRepository) ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.TeacherAvailability, error) {
	teacherIDs = lo.Uniq(lo.Compact(teacherIDs))
	if len(teacherIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT id, teacher_id, day_of_week, start_minute, end_minute, available, updated_at FROM teacher_availability WHERE teacher_id IN (?) ORDER BY teacher_id ASC, day_of_week ASC, start_minute ASC`, teacherIDs)
	if err != nil {
		return nil, fmt.Errorf("build availability query: %w", err)
	}

	var rows []teacherAvailabilityRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list teacher availability: %w", err)
	}
	return lo.Map(rows, func(row teacherAvailabilityRow, _ int) models.TeacherAvailability {
		return row.model()
	}), nil
}
