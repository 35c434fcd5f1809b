package models

import "time"

// TeacherAvailability marks a window as available or blocked for a teacher.
// Absence of any record for a window means "unknown".
type TeacherAvailability struct {
	ID        string       `json:"id" yaml:"id" mapstructure:"id"`
	TeacherID string       `json:"teacher_id" yaml:"teacher_id" mapstructure:"teacher_id"`
	Interval  TimeInterval `json:"interval" yaml:"interval" mapstructure:"interval"`
	Available bool         `json:"available" yaml:"available" mapstructure:"available"`
	UpdatedAt time.Time    `json:"updated_at" yaml:"-" mapstructure:"-"`
}
