package timetable

import (
	"sync"
	"time"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// steppingClock advances by step every time it is read, so a time budget becomes
// an iteration budget.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newSteppingClock(step time.Duration) *steppingClock {
	return &steppingClock{now: time.Date(2024, 7, 15, 7, 0, 0, 0, time.UTC), step: step}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func slot(day models.DayOfWeek, startHour, startMinute, minutes int) models.TimeInterval {
	start := models.NewTimeOfDay(startHour, startMinute)
	return models.TimeInterval{Day: day, Start: start, End: start + models.TimeOfDay(minutes)}
}

// weekGrid builds perDay consecutive 45 minute slots from 07:00 on each day.
func weekGrid(days []models.DayOfWeek, perDay int) []models.TimeInterval {
	var grid []models.TimeInterval
	for _, day := range days {
		for i := 0; i < perDay; i++ {
			start := models.NewTimeOfDay(7, 0) + models.TimeOfDay(i*45)
			grid = append(grid, models.TimeInterval{Day: day, Start: start, End: start + 45})
		}
	}
	return grid
}

func weekdays() []models.DayOfWeek {
	return []models.DayOfWeek{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday}
}

func entry(id, class, teacher, room string, interval models.TimeInterval) models.ScheduleEntry {
	return models.ScheduleEntry{
		ID:          id,
		ScheduleID:  "schedule-1",
		ClassID:     class,
		SubjectID:   "subject-" + class,
		TeacherID:   teacher,
		ClassroomID: room,
		Interval:    interval,
	}
}

func requirement(id, class, subject, teacher string, lessons int) models.LessonRequirement {
	return models.LessonRequirement{
		ID:             id,
		ClassID:        class,
		SubjectID:      subject,
		TeacherID:      teacher,
		LessonsPerWeek: lessons,
		StudentCount:   30,
	}
}

func room(id string, capacity int, equipment ...string) models.Classroom {
	return models.Classroom{ID: id, Name: id, Capacity: capacity, Equipment: equipment}
}
