package models

import (
	"time"

	"github.com/lib/pq"
)

// LessonRequirement is the unit of demand: place this class/subject/teacher
// LessonsPerWeek times.
type LessonRequirement struct {
	ID                string         `db:"id" json:"id" yaml:"id" mapstructure:"id"`
	TermID            string         `db:"term_id" json:"term_id" yaml:"term_id" mapstructure:"term_id"`
	ClassID           string         `db:"class_id" json:"class_id" yaml:"class_id" mapstructure:"class_id"`
	SubjectID         string         `db:"subject_id" json:"subject_id" yaml:"subject_id" mapstructure:"subject_id"`
	TeacherID         string         `db:"teacher_id" json:"teacher_id" yaml:"teacher_id" mapstructure:"teacher_id"`
	LessonsPerWeek    int            `db:"lessons_per_week" json:"lessons_per_week" yaml:"lessons_per_week" mapstructure:"lessons_per_week"`
	DurationMinutes   int            `db:"duration_minutes" json:"duration_minutes" yaml:"duration_minutes" mapstructure:"duration_minutes"`
	StudentCount      int            `db:"student_count" json:"student_count" yaml:"student_count" mapstructure:"student_count"`
	RequiredEquipment pq.StringArray `db:"required_equipment" json:"required_equipment" yaml:"required_equipment" mapstructure:"required_equipment"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at" yaml:"-" mapstructure:"-"`
}
