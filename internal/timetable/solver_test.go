package timetable

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

func schoolWeek() Input {
	lab := requirement("chem-11a", "class-11a", "chemistry", "teacher-chem", 2)
	lab.RequiredEquipment = []string{"fume-hood"}
	return Input{
		ScheduleID: "schedule-1",
		Requirements: []models.LessonRequirement{
			requirement("math-10a", "class-10a", "math", "teacher-math", 4),
			requirement("math-10b", "class-10b", "math", "teacher-math", 4),
			requirement("math-11a", "class-11a", "math", "teacher-math", 3),
			requirement("eng-10a", "class-10a", "english", "teacher-eng", 3),
			requirement("eng-10b", "class-10b", "english", "teacher-eng", 3),
			requirement("eng-11a", "class-11a", "english", "teacher-eng", 3),
			requirement("hist-10a", "class-10a", "history", "teacher-hist", 2),
			requirement("hist-10b", "class-10b", "history", "teacher-hist", 2),
			lab,
		},
		Classrooms: []models.Classroom{room("room-1", 32), room("room-2", 32), room("lab-1", 32, "fume-hood")},
		Grid:       weekGrid(weekdays(), 5),
	}
}

func TestSolveTimetableWithoutRequirements(t *testing.T) {
	in := Input{ScheduleID: "schedule-1", Grid: weekGrid(weekdays(), 5)}
	result, err := SolveTimetable(context.Background(), in, Options{SolverConfig: SolverConfig{TimeBudget: time.Second, Clock: newSteppingClock(time.Millisecond)}})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.Status)
	assert.Empty(t, result.Entries)
	assert.Equal(t, Score{}, result.Score)
	assert.Zero(t, result.Iterations)
}

func TestSolveTimetableGeneratesScheduleID(t *testing.T) {
	in := schoolWeek()
	in.ScheduleID = ""
	result, err := SolveTimetable(context.Background(), in, Options{SolverConfig: SolverConfig{TimeBudget: 50 * time.Millisecond, Clock: newSteppingClock(time.Millisecond)}})
	require.NoError(t, err)
	require.NotEmpty(t, result.ScheduleID)
	for _, e := range result.Entries {
		assert.Equal(t, result.ScheduleID, e.ScheduleID)
	}
}

func TestSolveTimetableUnavoidableTeacherClash(t *testing.T) {
	in := Input{
		ScheduleID: "schedule-1",
		Requirements: []models.LessonRequirement{
			requirement("math-10a", "class-10a", "math", "teacher-1", 1),
			requirement("math-10b", "class-10b", "math", "teacher-1", 1),
		},
		Classrooms: []models.Classroom{room("room-1", 32), room("room-2", 32)},
		Grid:       []models.TimeInterval{slot(models.Monday, 8, 0, 45)},
	}
	opts := Options{
		SolverConfig: SolverConfig{TimeBudget: 500 * time.Millisecond, Seed: 3, Clock: newSteppingClock(time.Millisecond)},
		Diagnostics:  true,
	}

	result, err := SolveTimetable(context.Background(), in, opts)
	require.NoError(t, err)

	assert.Equal(t, StateTimedOut, result.Status)
	assert.Equal(t, int64(-1), result.Score.Hard)
	require.Len(t, result.Entries, 2)
	require.Len(t, result.Conflicts, 2)
	reported := map[string]bool{}
	for _, c := range result.Conflicts {
		assert.Equal(t, models.ConflictTeacher, c.Kind)
		require.NotNil(t, c.Entry)
		reported[c.Entry.ID] = true
	}
	assert.True(t, reported[result.Entries[0].ID])
	assert.True(t, reported[result.Entries[1].ID])
}

func TestSolveTimetableTeacherAndClassroomClash(t *testing.T) {
	in := Input{
		ScheduleID: "schedule-1",
		Requirements: []models.LessonRequirement{
			requirement("math-10a", "class-10a", "math", "teacher-1", 1),
			requirement("math-10b", "class-10b", "math", "teacher-1", 1),
		},
		Classrooms: []models.Classroom{room("room-1", 32)},
		Grid:       []models.TimeInterval{slot(models.Monday, 8, 0, 45)},
	}

	result, err := SolveTimetable(context.Background(), in, Options{
		SolverConfig: SolverConfig{TimeBudget: 300 * time.Millisecond, Seed: 5, Clock: newSteppingClock(time.Millisecond)},
		Diagnostics:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, StateTimedOut, result.Status)
	assert.Equal(t, int64(-2), result.Score.Hard)
	require.Len(t, result.Entries, 2)
	assert.NotEqual(t, result.Entries[0].ID, result.Entries[1].ID)
	assert.Equal(t, []models.ConflictKind{
		models.ConflictTeacher, models.ConflictClassroom,
		models.ConflictTeacher, models.ConflictClassroom,
	}, conflictKinds(result.Conflicts))
}

func TestSolveTimetableDisjointProblemFillsGrid(t *testing.T) {
	in := Input{
		ScheduleID: "schedule-1",
		Requirements: []models.LessonRequirement{
			requirement("math-10a", "class-10a", "math", "teacher-1", 2),
			requirement("bio-10b", "class-10b", "biology", "teacher-2", 2),
		},
		Classrooms: []models.Classroom{room("room-1", 32), room("room-2", 32)},
		Grid:       []models.TimeInterval{slot(models.Monday, 7, 0, 45), slot(models.Monday, 7, 45, 45)},
	}
	budget := time.Second
	clock := newSteppingClock(time.Millisecond)

	result, err := SolveTimetable(context.Background(), in, Options{
		SolverConfig: SolverConfig{TimeBudget: budget, Seed: 9, Clock: clock},
		Diagnostics:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), result.Score.Hard)
	assert.True(t, result.Score.Feasible())
	assert.Empty(t, result.Conflicts)
	assert.LessOrEqual(t, result.Elapsed, budget+time.Millisecond)

	require.Len(t, result.Entries, 4)
	used := map[models.TimeInterval]int{}
	for _, e := range result.Entries {
		used[e.Interval]++
	}
	assert.Equal(t, map[models.TimeInterval]int{in.Grid[0]: 2, in.Grid[1]: 2}, used)
}

func TestSolveTimetableUnsatisfiableAvailability(t *testing.T) {
	availability, err := NewAvailabilityIndex([]models.TeacherAvailability{
		{TeacherID: "teacher-1", Interval: models.TimeInterval{Day: models.Monday, Start: 0, End: models.MinutesPerDay}, Available: false},
	}, OpenWorld)
	require.NoError(t, err)
	in := Input{
		ScheduleID:   "schedule-1",
		Requirements: []models.LessonRequirement{requirement("math-10a", "class-10a", "math", "teacher-1", 2)},
		Classrooms:   []models.Classroom{room("room-1", 32)},
		Availability: availability,
		Grid:         weekGrid([]models.DayOfWeek{models.Monday}, 3),
	}

	result, err := SolveTimetable(context.Background(), in, Options{
		SolverConfig: SolverConfig{TimeBudget: 300 * time.Millisecond, Clock: newSteppingClock(time.Millisecond)},
		Diagnostics:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, StateTimedOut, result.Status)
	assert.Equal(t, int64(-2), result.Score.Hard)
	assert.Len(t, result.Entries, 2)
	assert.Equal(t, []models.ConflictKind{models.ConflictTeacherUnavailable, models.ConflictTeacherUnavailable}, conflictKinds(result.Conflicts))
}

func TestSolverReachesFeasibleTimetable(t *testing.T) {
	in := schoolWeek()
	p, err := NewProblem(in.Requirements, in.Classrooms, nil, in.Grid)
	require.NoError(t, err)
	// worst possible start: everything in the first slot and room
	for o := 0; o < p.Len(); o++ {
		require.NoError(t, p.Place(o, 0, 0))
	}

	solver := NewSolver(SolverConfig{TimeBudget: 20 * time.Second, Seed: 11, Clock: newSteppingClock(time.Millisecond)})
	result, err := solver.Solve(context.Background(), p)
	require.NoError(t, err)

	assert.True(t, result.Score.Feasible(), "score %s", result.Score)
	assert.Equal(t, Evaluate(p, ScoreConfig{}), result.Score)
	assert.True(t, solver.State().Terminal())
	assert.Equal(t, result.Status, solver.State())

	entries := p.Entries("schedule-1")
	for i := range entries {
		conflicts, err := Validate(entries[:i], entries[i], nil)
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	}
}

func TestSolveTimetableIsDeterministic(t *testing.T) {
	run := func() *Result {
		result, err := SolveTimetable(context.Background(), schoolWeek(), Options{SolverConfig: SolverConfig{
			TimeBudget: 2 * time.Second,
			Seed:       99,
			Clock:      newSteppingClock(time.Millisecond),
		}})
		require.NoError(t, err)
		return result
	}

	first, second := run(), run()
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Iterations, second.Iterations)
	assert.Equal(t, first.Accepted, second.Accepted)
}

func TestSolverImprovementsAreMonotonic(t *testing.T) {
	in := schoolWeek()
	p, err := NewProblem(in.Requirements, in.Classrooms, nil, in.Grid)
	require.NoError(t, err)
	for o := 0; o < p.Len(); o++ {
		require.NoError(t, p.Place(o, o%2, 0))
	}

	var seen []Score
	solver := NewSolver(SolverConfig{
		TimeBudget:    3 * time.Second,
		Seed:          5,
		Clock:         newSteppingClock(time.Millisecond),
		OnImprovement: func(i Improvement) { seen = append(seen, i.Score) },
	})
	result, err := solver.Solve(context.Background(), p)
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.True(t, seen[i].Better(seen[i-1]), "%s then %s", seen[i-1], seen[i])
	}
	assert.Equal(t, seen[len(seen)-1], result.Score)
	assert.Equal(t, int64(len(seen)), result.Improvements)
}

func TestSolverCancellation(t *testing.T) {
	in := schoolWeek()
	p, err := NewProblem(in.Requirements, in.Classrooms, nil, in.Grid)
	require.NoError(t, err)
	for o := 0; o < p.Len(); o++ {
		require.NoError(t, p.Place(o, 0, 0))
	}
	start := Evaluate(p, ScoreConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	solver := NewSolver(SolverConfig{TimeBudget: time.Hour})
	result, err := solver.Solve(ctx, p)
	require.NoError(t, err)

	assert.Equal(t, StateCancelled, result.Status)
	assert.Equal(t, StateCancelled, solver.State())
	assert.Zero(t, result.Iterations)
	assert.Equal(t, start, result.Score)
	assert.Len(t, p.Entries("schedule-1"), p.Len(), "best-so-far is returned")
}

func TestSolverRunsOnce(t *testing.T) {
	p, err := NewProblem(nil, nil, nil, nil)
	require.NoError(t, err)
	solver := NewSolver(SolverConfig{TimeBudget: time.Millisecond})
	assert.Equal(t, StateIdle, solver.State())

	_, err = solver.Solve(context.Background(), p)
	require.NoError(t, err)
	_, err = solver.Solve(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
}

func TestSolverStopsWithinBudget(t *testing.T) {
	in := schoolWeek()
	budget := 150 * time.Millisecond
	started := time.Now()
	result, err := SolveTimetable(context.Background(), in, Options{SolverConfig: SolverConfig{TimeBudget: budget, Seed: 1}})
	require.NoError(t, err)

	assert.Less(t, time.Since(started), budget+time.Second)
	assert.Contains(t, []SolverState{StateCompleted, StateTimedOut}, result.Status)
	assert.Len(t, result.Entries, 26)
}
