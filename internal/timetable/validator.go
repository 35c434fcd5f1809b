package timetable

import (
	"fmt"

	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

// ValidatePlacement checks one candidate entry against the committed entries of scheduleID.
func ValidatePlacement(scheduleID string, existing []models.ScheduleEntry, candidate models.ScheduleEntry, availability Availability) ([]models.Conflict, error) {
	if candidate.ScheduleID != scheduleID {
		return nil, appErrors.Clone(appErrors.ErrScopeMismatch, fmt.Sprintf("candidate belongs to schedule %q, not %q", candidate.ScheduleID, scheduleID))
	}
	return Validate(existing, candidate, availability)
}

// Validate returns every conflict the candidate would introduce. An entry with the
// candidate's id is skipped so an edited entry can be re-validated in place.
// Inputs are never mutated.
func Validate(existing []models.ScheduleEntry, candidate models.ScheduleEntry, availability Availability) ([]models.Conflict, error) {
	if err := candidate.Interval.Validate(); err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.ScheduleID != candidate.ScheduleID {
			return nil, appErrors.Clone(appErrors.ErrScopeMismatch, fmt.Sprintf("entry %s belongs to schedule %q, candidate to %q", e.ID, e.ScheduleID, candidate.ScheduleID))
		}
	}

	var conflicts []models.Conflict
	for _, e := range existing {
		if e.ID == candidate.ID {
			continue
		}
		for _, kind := range clashKinds(e, candidate) {
			conflicts = append(conflicts, newEntryConflict(kind, candidate, e))
		}
	}

	if availability != nil && !availability.IsAvailable(candidate.TeacherID, candidate.Interval) {
		cand := candidate
		conflicts = append(conflicts, models.Conflict{
			Kind:    models.ConflictTeacherUnavailable,
			Message: fmt.Sprintf("teacher %s is not available on %s", candidate.TeacherID, candidate.Interval),
			Entry:   &cand,
		})
	}
	return conflicts, nil
}

// clashKinds is the pairwise rule shared by the validator and the score function.
// Kinds are returned in the fixed order teacher, classroom, class.
func clashKinds(a, b models.ScheduleEntry) []models.ConflictKind {
	if !a.Interval.Overlaps(b.Interval) {
		return nil
	}
	var kinds []models.ConflictKind
	if a.TeacherID == b.TeacherID {
		kinds = append(kinds, models.ConflictTeacher)
	}
	if a.ClassroomID != "" && a.ClassroomID == b.ClassroomID {
		kinds = append(kinds, models.ConflictClassroom)
	}
	if a.ClassID == b.ClassID {
		kinds = append(kinds, models.ConflictClass)
	}
	return kinds
}

func newEntryConflict(kind models.ConflictKind, candidate, existing models.ScheduleEntry) models.Conflict {
	var message string
	switch kind {
	case models.ConflictTeacher:
		message = fmt.Sprintf("teacher %s already scheduled on %s", existing.TeacherID, existing.Interval)
	case models.ConflictClassroom:
		message = fmt.Sprintf("classroom %s already booked on %s", existing.ClassroomID, existing.Interval)
	case models.ConflictClass:
		message = fmt.Sprintf("class %s already has a lesson on %s", existing.ClassID, existing.Interval)
	}
	return models.Conflict{
		Kind:               kind,
		Message:            message,
		Entry:              &candidate,
		ConflictingEntries: []models.ScheduleEntry{existing},
	}
}
