package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/timetable"
)

// ScheduleEntryRequest places or moves one lesson in a schedule.
type ScheduleEntryRequest struct {
	ClassID     string           `json:"class_id" validate:"required"`
	SubjectID   string           `json:"subject_id" validate:"required"`
	TeacherID   string           `json:"teacher_id" validate:"required"`
	ClassroomID string           `json:"classroom_id"`
	DayOfWeek   models.DayOfWeek `json:"day_of_week"`
	StartTime   models.TimeOfDay `json:"start_time"`
	EndTime     models.TimeOfDay `json:"end_time"`
}

// Entry builds the candidate entry for scheduleID.
func (r ScheduleEntryRequest) Entry(scheduleID, entryID string) models.ScheduleEntry {
	return models.ScheduleEntry{
		ID:          entryID,
		ScheduleID:  scheduleID,
		ClassID:     r.ClassID,
		SubjectID:   r.SubjectID,
		TeacherID:   r.TeacherID,
		ClassroomID: r.ClassroomID,
		Interval:    models.TimeInterval{Day: r.DayOfWeek, Start: r.StartTime, End: r.EndTime},
	}
}

// CheckEntryResponse reports the conflicts a candidate would introduce.
type CheckEntryResponse struct {
	Valid     bool              `json:"valid"`
	Conflicts []models.Conflict `json:"conflicts"`
}

// SolveTimetableRequest submits a batch solve. Requirements and classrooms are
// loaded for TermID and SchoolID when omitted.
type SolveTimetableRequest struct {
	ScheduleID   string                       `json:"schedule_id" mapstructure:"schedule_id"`
	TermID       string                       `json:"term_id" mapstructure:"term_id" validate:"required_without=Requirements"`
	SchoolID     string                       `json:"school_id" mapstructure:"school_id"`
	Requirements []models.LessonRequirement   `json:"requirements" mapstructure:"requirements"`
	Classrooms   []models.Classroom           `json:"classrooms" mapstructure:"classrooms"`
	Availability []models.TeacherAvailability `json:"availability" mapstructure:"availability"`
	Grid         []models.TimeInterval        `json:"grid" mapstructure:"grid" validate:"required,min=1"`
	TimeBudgetMS int64                        `json:"time_budget_ms" mapstructure:"time_budget_ms" validate:"gte=0"`
	// Seed fixes the order of random moves. The solver stops on the wall clock, so equal seeds
	// can still finish after different iteration counts and return different timetables.
	// Zero picks a seed, reported back on the job.
	Seed         int64                        `json:"seed" mapstructure:"seed"`
	ClosedWorld  *bool                        `json:"closed_world,omitempty" mapstructure:"closed_world"`
}

// TimeBudget converts the millisecond budget.
func (r SolveTimetableRequest) TimeBudget() time.Duration {
	return time.Duration(r.TimeBudgetMS) * time.Millisecond
}

// SolveJobStatus tracks a submitted solve.
type SolveJobStatus string

const (
	SolveJobQueued    SolveJobStatus = "QUEUED"
	SolveJobRunning   SolveJobStatus = "RUNNING"
	SolveJobCompleted SolveJobStatus = "COMPLETED"
	SolveJobTimedOut  SolveJobStatus = "TIMED_OUT"
	SolveJobCancelled SolveJobStatus = "CANCELLED"
	SolveJobFailed    SolveJobStatus = "FAILED"
)

// Terminal reports whether the job will not change any more.
func (s SolveJobStatus) Terminal() bool {
	switch s {
	case SolveJobCompleted, SolveJobTimedOut, SolveJobCancelled, SolveJobFailed:
		return true
	}
	return false
}

// SolveJobStatusOf maps a finished solver state onto a job status.
func SolveJobStatusOf(state timetable.SolverState) SolveJobStatus {
	switch state {
	case timetable.StateCompleted:
		return SolveJobCompleted
	case timetable.StateTimedOut:
		return SolveJobTimedOut
	case timetable.StateCancelled:
		return SolveJobCancelled
	case timetable.StateRunning:
		return SolveJobRunning
	}
	return SolveJobQueued
}

// SolveProgress is the best score seen so far by a running job.
type SolveProgress struct {
	Iteration int64           `json:"iteration"`
	ElapsedMS int64           `json:"elapsed_ms"`
	Score     timetable.Score `json:"score"`
}

// SolveJob is the externally visible state of a submitted solve.
type SolveJob struct {
	ID           string            `json:"id"`
	ScheduleID   string            `json:"schedule_id"`
	Status       SolveJobStatus    `json:"status"`
	TimeBudgetMS int64             `json:"time_budget_ms"`
	Seed         int64             `json:"seed"`
	Progress     *SolveProgress    `json:"progress,omitempty"`
	Result       *timetable.Result `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
	SubmittedAt  time.Time         `json:"submitted_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
}

// ApplySolveRequest writes a finished job's timetable into its schedule.
type ApplySolveRequest struct {
	AllowInfeasible bool `json:"allow_infeasible"`
}

// ProblemDocument is the file format read by the command line tools.
type ProblemDocument struct {
	SolveTimetableRequest `mapstructure:",squash"`
	Names                 map[string]string      `mapstructure:"names"`
	Entries               []models.ScheduleEntry `mapstructure:"entries"`
	Candidate             *models.ScheduleEntry  `mapstructure:"candidate"`
}
