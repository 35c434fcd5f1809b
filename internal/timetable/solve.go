package timetable

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// Input is everything one solve needs.
type Input struct {
	ScheduleID   string
	Requirements []models.LessonRequirement
	Classrooms   []models.Classroom
	Availability Availability
	Grid         []models.TimeInterval
}

// Options configures SolveTimetable.
type Options struct {
	SolverConfig
	// Diagnostics attaches the remaining conflicts of the best timetable to the result.
	Diagnostics bool
}

// SolveTimetable seeds a naive timetable from the input and improves it until the
// budget is spent. An empty ScheduleID gets a fresh one.
func SolveTimetable(ctx context.Context, in Input, opts Options) (*Result, error) {
	problem, err := NewProblem(in.Requirements, in.Classrooms, in.Availability, in.Grid)
	if err != nil {
		return nil, err
	}
	problem.Seed()
	return Run(ctx, problem, in.ScheduleID, opts)
}

// Run improves the current assignment of p and renders the best one as entries of
// scheduleID. An empty scheduleID gets a fresh one.
func Run(ctx context.Context, p *Problem, scheduleID string, opts Options) (*Result, error) {
	result, err := NewSolver(opts.SolverConfig).Solve(ctx, p)
	if err != nil {
		return nil, err
	}

	if scheduleID == "" {
		scheduleID = uuid.NewString()
	}
	result.ScheduleID = scheduleID
	result.Entries = p.Entries(scheduleID)
	if opts.Diagnostics {
		result.Conflicts = Diagnose(p, scheduleID)
	}
	return &result, nil
}

// Diagnose lists every conflict left in the problem's current assignment. A clash
// between two lessons is reported once from each side.
func Diagnose(p *Problem, scheduleID string) []models.Conflict {
	entries := p.Entries(scheduleID)
	var conflicts []models.Conflict
	for _, entry := range entries {
		found, err := Validate(entries, entry, p.availability)
		if err != nil {
			continue
		}
		conflicts = append(conflicts, found...)
	}

	for o := 0; o < p.Len(); o++ {
		req := p.Requirement(o)
		entry, placed := p.Entry(scheduleID, o)
		if !placed {
			conflicts = append(conflicts, models.Conflict{
				Kind: models.ConflictUnplaced,
				Message: fmt.Sprintf("lesson %d of subject %s for class %s with teacher %s has no time slot",
					p.occurrences[o].Index+1, req.SubjectID, req.ClassID, req.TeacherID),
			})
			continue
		}
		if p.roomSuits(o) {
			continue
		}
		message := fmt.Sprintf("no classroom assigned for class %s on %s", entry.ClassID, entry.Interval)
		if entry.ClassroomID != "" {
			message = fmt.Sprintf("classroom %s does not fit class %s (students %d, equipment %v)",
				entry.ClassroomID, entry.ClassID, req.StudentCount, []string(req.RequiredEquipment))
		}
		conflicts = append(conflicts, models.Conflict{
			Kind:    models.ConflictClassroomUnsuitable,
			Message: message,
			Entry:   &entry,
		})
	}
	return conflicts
}
