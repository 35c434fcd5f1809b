package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable/internal/models"
)

const scheduleEntryColumns = "id, schedule_id, class_id, subject_id, teacher_id, classroom_id, day_of_week, start_minute, end_minute, created_at, updated_at"

// scheduleEntryRow is the flat table shape of a schedule entry.
type scheduleEntryRow struct {
	ID          string    `db:"id"`
	ScheduleID  string    `db:"schedule_id"`
	ClassID     string    `db:"class_id"`
	SubjectID   string    `db:"subject_id"`
	TeacherID   string    `db:"teacher_id"`
	ClassroomID string    `db:"classroom_id"`
	DayOfWeek   int       `db:"day_of_week"`
	StartMinute int       `db:"start_minute"`
	EndMinute   int       `db:"end_minute"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func newScheduleEntryRow(entry models.ScheduleEntry, now time.Time) scheduleEntryRow {
	return scheduleEntryRow{
		ID:          entry.ID,
		ScheduleID:  entry.ScheduleID,
		ClassID:     entry.ClassID,
		SubjectID:   entry.SubjectID,
		TeacherID:   entry.TeacherID,
		ClassroomID: entry.ClassroomID,
		DayOfWeek:   int(entry.Interval.Day),
		StartMinute: int(entry.Interval.Start),
		EndMinute:   int(entry.Interval.End),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (r scheduleEntryRow) model() models.ScheduleEntry {
	return models.ScheduleEntry{
		ID:          r.ID,
		ScheduleID:  r.ScheduleID,
		ClassID:     r.ClassID,
		SubjectID:   r.SubjectID,
		TeacherID:   r.TeacherID,
		ClassroomID: r.ClassroomID,
		Interval: models.TimeInterval{
			Day:   models.DayOfWeek(r.DayOfWeek),
			Start: models.TimeOfDay(r.StartMinute),
			End:   models.TimeOfDay(r.EndMinute),
		},
	}
}

// ScheduleRepository provides persistence for schedules and their entries.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// FindByID loads a schedule header by id. sql.ErrNoRows is returned unchanged.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	const query = `SELECT id, academic_year_id, term_id, school_id, status, created_at, updated_at FROM timetable_schedules WHERE id = $1`
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// ListEntries returns every entry of a schedule ordered by day and start.
func (r *ScheduleRepository) ListEntries(ctx context.Context, scheduleID string) ([]models.ScheduleEntry, error) {
	query := `SELECT ` + scheduleEntryColumns + ` FROM timetable_entries WHERE schedule_id = $1 ORDER BY day_of_week ASC, start_minute ASC`
	var rows []scheduleEntryRow
	if err := r.db.SelectContext(ctx, &rows, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}
	entries := make([]models.ScheduleEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.model()
	}
	return entries, nil
}

// FindEntry loads one entry. sql.ErrNoRows is returned unchanged.
func (r *ScheduleRepository) FindEntry(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	query := `SELECT ` + scheduleEntryColumns + ` FROM timetable_entries WHERE id = $1`
	var row scheduleEntryRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	entry := row.model()
	return &entry, nil
}

const insertScheduleEntry = `INSERT INTO timetable_entries (id, schedule_id, class_id, subject_id, teacher_id, classroom_id, day_of_week, start_minute, end_minute, created_at, updated_at) VALUES (:id, :schedule_id, :class_id, :subject_id, :teacher_id, :classroom_id, :day_of_week, :start_minute, :end_minute, :created_at, :updated_at)`

// CreateEntry stores a new entry, assigning an id when missing.
func (r *ScheduleRepository) CreateEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	row := newScheduleEntryRow(*entry, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertScheduleEntry, row); err != nil {
		return fmt.Errorf("create schedule entry: %w", err)
	}
	return nil
}

// UpdateEntry rewrites the placement of an existing entry.
func (r *ScheduleRepository) UpdateEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	row := newScheduleEntryRow(*entry, time.Now().UTC())
	const query = `UPDATE timetable_entries SET class_id = :class_id, subject_id = :subject_id, teacher_id = :teacher_id, classroom_id = :classroom_id, day_of_week = :day_of_week, start_minute = :start_minute, end_minute = :end_minute, updated_at = :updated_at WHERE id = :id AND schedule_id = :schedule_id`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("update schedule entry: %w", err)
	}
	return nil
}

// DeleteEntry removes an entry of a schedule.
func (r *ScheduleRepository) DeleteEntry(ctx context.Context, scheduleID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = $1 AND schedule_id = $2`, id, scheduleID); err != nil {
		return fmt.Errorf("delete schedule entry: %w", err)
	}
	return nil
}

// ReplaceEntries swaps every entry of a schedule for entries within one transaction.
func (r *ScheduleRepository) ReplaceEntries(ctx context.Context, scheduleID string, entries []models.ScheduleEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace schedule entries: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_entries WHERE schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("clear schedule entries: %w", err)
	}
	now := time.Now().UTC()
	for _, entry := range entries {
		entry.ScheduleID = scheduleID
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if _, err = sqlx.NamedExecContext(ctx, tx, insertScheduleEntry, newScheduleEntryRow(entry, now)); err != nil {
			return fmt.Errorf("insert schedule entry: %w", err)
		}
	}
	if _, err = tx.ExecContext(ctx, `UPDATE timetable_schedules SET updated_at = $1 WHERE id = $2`, now, scheduleID); err != nil {
		return fmt.Errorf("touch schedule: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace schedule entries: %w", err)
	}
	return nil
}
