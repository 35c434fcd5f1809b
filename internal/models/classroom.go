package models

import (
	"time"

	"github.com/lib/pq"
)

// Classroom is a bookable room. It is immutable for the duration of a solve.
type Classroom struct {
	ID        string         `db:"id" json:"id" yaml:"id" mapstructure:"id"`
	SchoolID  string         `db:"school_id" json:"school_id" yaml:"school_id" mapstructure:"school_id"`
	Name      string         `db:"name" json:"name" yaml:"name" mapstructure:"name"`
	Capacity  int            `db:"capacity" json:"capacity" yaml:"capacity" mapstructure:"capacity"`
	Equipment pq.StringArray `db:"equipment" json:"equipment" yaml:"equipment" mapstructure:"equipment"`
	CreatedAt time.Time      `db:"created_at" json:"created_at" yaml:"-" mapstructure:"-"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at" yaml:"-" mapstructure:"-"`
}

// HasEquipment reports whether every tag in required is installed.
func (c Classroom) HasEquipment(required []string) bool {
	for _, tag := range required {
		found := false
		for _, have := range c.Equipment {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Suits reports whether the room can host the requirement.
func (c Classroom) Suits(req LessonRequirement) bool {
	if req.StudentCount > 0 && c.Capacity < req.StudentCount {
		return false
	}
	return c.HasEquipment(req.RequiredEquipment)
}
