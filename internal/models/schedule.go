package models

import "time"

// ScheduleStatus represents lifecycle phases of a timetable.
type ScheduleStatus string

const (
	ScheduleStatusDraft    ScheduleStatus = "DRAFT"
	ScheduleStatusActive   ScheduleStatus = "ACTIVE"
	ScheduleStatusArchived ScheduleStatus = "ARCHIVED"
)

// Editable reports whether entries may still be added or removed.
func (s ScheduleStatus) Editable() bool {
	return s == ScheduleStatusDraft || s == ScheduleStatusActive
}

// Schedule is the unit of validation scope: entries only conflict within one schedule.
type Schedule struct {
	ID             string          `db:"id" json:"id"`
	AcademicYearID string          `db:"academic_year_id" json:"academic_year_id"`
	TermID         string          `db:"term_id" json:"term_id"`
	SchoolID       string          `db:"school_id" json:"school_id"`
	Status         ScheduleStatus  `db:"status" json:"status"`
	Entries        []ScheduleEntry `db:"-" json:"entries,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// ScheduleEntry is one committed or candidate lesson occurrence.
type ScheduleEntry struct {
	ID          string       `json:"id" yaml:"id" mapstructure:"id"`
	ScheduleID  string       `json:"schedule_id" yaml:"schedule_id" mapstructure:"schedule_id"`
	ClassID     string       `json:"class_id" yaml:"class_id" mapstructure:"class_id"`
	SubjectID   string       `json:"subject_id" yaml:"subject_id" mapstructure:"subject_id"`
	TeacherID   string       `json:"teacher_id" yaml:"teacher_id" mapstructure:"teacher_id"`
	ClassroomID string       `json:"classroom_id" yaml:"classroom_id" mapstructure:"classroom_id"`
	Interval    TimeInterval `json:"interval" yaml:"interval" mapstructure:"interval"`
}

// ConflictKind classifies a placement problem.
type ConflictKind string

const (
	ConflictTeacher            ConflictKind = "TEACHER_CONFLICT"
	ConflictClassroom          ConflictKind = "CLASSROOM_CONFLICT"
	ConflictClass              ConflictKind = "CLASS_CONFLICT"
	ConflictTeacherUnavailable ConflictKind = "TEACHER_UNAVAILABLE"

	// Solver diagnostics only; the validator never emits these.
	ConflictUnplaced            ConflictKind = "UNPLACED_LESSON"
	ConflictClassroomUnsuitable ConflictKind = "CLASSROOM_UNSUITABLE"
)

// Conflict describes one reason a placement cannot be committed.
type Conflict struct {
	Kind               ConflictKind    `json:"kind"`
	Message            string          `json:"message"`
	Entry              *ScheduleEntry  `json:"entry,omitempty"`
	ConflictingEntries []ScheduleEntry `json:"conflicting_entries,omitempty"`
}

// ScheduleConflictError is returned when a placement collides with the committed schedule.
type ScheduleConflictError struct {
	Message   string     `json:"message"`
	Conflicts []Conflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
