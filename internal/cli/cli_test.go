package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/timetable"
)

const problemYAML = `
schedule_id: term-1-draft
time_budget_ms: 150
seed: 11
names:
  teacher-1: Bu Sari
requirements:
  - id: math-10a
    class_id: class-10a
    subject_id: math
    teacher_id: teacher-1
    lessons_per_week: 2
  - id: bio-10a
    class_id: class-10a
    subject_id: bio
    teacher_id: teacher-2
    lessons_per_week: 1
    required_equipment: [microscope]
classrooms:
  - id: room-1
    capacity: 32
  - id: lab-1
    capacity: 30
    equipment: [microscope]
availability:
  - teacher_id: teacher-2
    available: false
    interval: {day: TUESDAY, start: "07:00", end: "12:00"}
grid:
  - {day: MONDAY, start: "07:00", end: "07:45"}
  - {day: MONDAY, start: "07:45", end: "08:30"}
  - {day: TUESDAY, start: "07:00", end: "07:45"}
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(args ...string) (string, error) {
	cmd := BuildCLI()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildCLICommands(t *testing.T) {
	cmd := BuildCLI()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["solve"])
	assert.True(t, names["validate"])

	solve, _, err := cmd.Find([]string{"solve"})
	require.NoError(t, err)
	for _, flag := range []string{"file", "budget", "seed", "out", "format", "closed-world", "parallel"} {
		assert.NotNil(t, solve.Flags().Lookup(flag), flag)
	}
}

func TestDecodeDocument(t *testing.T) {
	doc, err := decodeDocument([]byte(problemYAML))
	require.NoError(t, err)

	assert.Equal(t, "term-1-draft", doc.ScheduleID)
	assert.Equal(t, int64(150), doc.TimeBudgetMS)
	assert.Equal(t, int64(11), doc.Seed)
	assert.Equal(t, "Bu Sari", doc.Names["teacher-1"])
	require.Len(t, doc.Requirements, 2)
	assert.Equal(t, 2, doc.Requirements[0].LessonsPerWeek)
	assert.Equal(t, []string{"microscope"}, []string(doc.Requirements[1].RequiredEquipment))
	require.Len(t, doc.Classrooms, 2)
	assert.Equal(t, 32, doc.Classrooms[0].Capacity)
	require.Len(t, doc.Availability, 1)
	assert.False(t, doc.Availability[0].Available)
	assert.Equal(t, models.Tuesday, doc.Availability[0].Interval.Day)
	require.Len(t, doc.Grid, 3)
	assert.Equal(t, models.NewTimeOfDay(7, 45), doc.Grid[1].Start)
	assert.Nil(t, doc.Candidate)
}

func TestDecodeDocumentAcceptsJSON(t *testing.T) {
	doc, err := decodeDocument([]byte(`{"schedule_id": "s1", "grid": [{"day": 1, "start": "08:00", "end": "08:45"}]}`))
	require.NoError(t, err)
	require.Len(t, doc.Grid, 1)
	assert.Equal(t, models.Monday, doc.Grid[0].Day)
}

func TestDecodeDocumentRejectsBadTime(t *testing.T) {
	_, err := decodeDocument([]byte("grid:\n  - {day: MONDAY, start: \"7h\", end: \"08:00\"}\n"))
	assert.Error(t, err)
}

func TestSolveCommandWritesResults(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "first.yaml", problemYAML)
	second := writeFile(t, dir, "second.yaml", strings.Replace(problemYAML, "term-1-draft", "term-2-draft", 1))
	outDir := filepath.Join(dir, "out")

	out, err := execute("solve", "-f", first, "-f", second, "--out", outDir, "--budget", "100ms")
	require.NoError(t, err)
	assert.Contains(t, out, "first.yaml")
	assert.Contains(t, out, "second.yaml")

	raw, err := os.ReadFile(filepath.Join(outDir, "first.json"))
	require.NoError(t, err)
	var result timetable.Result
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, "term-1-draft", result.ScheduleID)
	assert.Len(t, result.Entries, 3)
	assert.True(t, result.Score.Feasible(), "score %s", result.Score)
	for _, entry := range result.Entries {
		if entry.SubjectID == "bio" {
			assert.Equal(t, "lab-1", entry.ClassroomID)
			assert.Equal(t, models.Monday, entry.Interval.Day)
		}
	}
}

func TestSolveCommandCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "problem.yaml", problemYAML)

	_, err := execute("solve", "-f", path, "--out", dir, "--format", "csv", "--budget", "100ms")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "problem.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, string(raw), "Bu Sari")
}

func TestSolveCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute("solve", "-f", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := writeFile(t, dir, "empty.yaml", "grid:\n  - {day: MONDAY, start: \"07:00\", end: \"07:45\"}\nrequirements: []\nterm_id: t1\n")
	_, err = execute("solve", "-f", empty)
	assert.Error(t, err)

	path := writeFile(t, dir, "problem.yaml", problemYAML)
	_, err = execute("solve", "-f", path, "--format", "xml")
	assert.Error(t, err)
}

const scheduleYAML = `
schedule_id: s1
availability:
  - teacher_id: teacher-2
    available: false
    interval: {day: MONDAY, start: "07:00", end: "12:00"}
entries:
  - id: e1
    class_id: class-10a
    subject_id: math
    teacher_id: teacher-1
    classroom_id: room-1
    interval: {day: MONDAY, start: "08:00", end: "08:45"}
`

func TestValidateCommandReportsConflicts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "schedule.yaml", scheduleYAML+`
candidate:
  id: new
  class_id: class-10b
  subject_id: bio
  teacher_id: teacher-2
  classroom_id: room-1
  interval: {day: MONDAY, start: "08:30", end: "09:15"}
`)

	out, err := execute("validate", "-f", path)
	require.ErrorIs(t, err, ErrConflictsFound)
	assert.Contains(t, out, string(models.ConflictClassroom))
	assert.Contains(t, out, string(models.ConflictTeacherUnavailable))
	assert.Contains(t, out, "2 conflict(s)")
}

func TestValidateCommandValidPlacement(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "schedule.yaml", scheduleYAML+`
candidate:
  class_id: class-10a
  subject_id: bio
  teacher_id: teacher-1
  classroom_id: room-1
  interval: {day: MONDAY, start: "08:45", end: "09:30"}
`)

	out, err := execute("validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "no conflicts")
}

func TestValidateCommandWholeSchedule(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "schedule.yaml", scheduleYAML+`
  - id: e2
    class_id: class-10b
    subject_id: bio
    teacher_id: teacher-1
    classroom_id: room-2
    interval: {day: MONDAY, start: "08:15", end: "09:00"}
`)
	doc, err := loadDocument(path)
	require.NoError(t, err)
	require.Len(t, doc.Entries, 2)

	conflicts, err := validateDocument(doc, false)
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, models.ConflictTeacher, conflicts[0].Kind)
	assert.Equal(t, models.ConflictTeacher, conflicts[1].Kind)
}
