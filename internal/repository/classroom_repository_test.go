package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable/internal/models"
)

func TestClassroomRepositoryListBySchool(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, name, capacity, equipment, created_at, updated_at FROM classrooms WHERE school_id = $1 ORDER BY name ASC")).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "name", "capacity", "equipment", "created_at", "updated_at"}).
			AddRow("lab-1", "school-1", "Chemistry Lab", 24, "{fume-hood,sink}", now, now).
			AddRow("room-1", "school-1", "Room 1", 32, "{}", now, now))

	rooms, err := repo.ListBySchool(context.Background(), "school-1")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.True(t, rooms[0].HasEquipment([]string{"fume-hood"}))
	assert.Empty(t, rooms[1].Equipment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRequirementRepositoryListByTerm(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewLessonRequirementRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM lesson_requirements WHERE term_id = \\$1").
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "term_id", "class_id", "subject_id", "teacher_id", "lessons_per_week", "duration_minutes", "student_count", "required_equipment", "created_at"}).
			AddRow("req-1", "term-1", "class-10a", "chemistry", "teacher-1", 2, 90, 28, "{fume-hood}", now))

	requirements, err := repo.ListByTerm(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, requirements, 1)
	assert.Equal(t, models.LessonRequirement{
		ID:                "req-1",
		TermID:            "term-1",
		ClassID:           "class-10a",
		SubjectID:         "chemistry",
		TeacherID:         "teacher-1",
		LessonsPerWeek:    2,
		DurationMinutes:   90,
		StudentCount:      28,
		RequiredEquipment: []string{"fume-hood"},
		CreatedAt:         now,
	}, requirements[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAvailabilityRepositoryListByTeachers(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTeacherAvailabilityRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_availability WHERE teacher_id IN ($1, $2)")).
		WithArgs("teacher-1", "teacher-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "day_of_week", "start_minute", "end_minute", "available", "updated_at"}).
			AddRow("av-1", "teacher-1", 1, 420, 720, false, now))

	records, err := repo.ListByTeachers(context.Background(), []string{"teacher-1", "", "teacher-2", "teacher-1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.TimeInterval{Day: models.Monday, Start: 420, End: 720}, records[0].Interval)
	assert.False(t, records[0].Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAvailabilityRepositorySkipsEmptyLookup(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTeacherAvailabilityRepository(db)

	records, err := repo.ListByTeachers(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}
