package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// Renderer turns a document into bytes of one format.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	ContentType() string
	Extension() string
}

// Timetable column headers.
const (
	ColumnDay       = "Day"
	ColumnStart     = "Start"
	ColumnEnd       = "End"
	ColumnClass     = "Class"
	ColumnSubject   = "Subject"
	ColumnTeacher   = "Teacher"
	ColumnClassroom = "Classroom"
)

// ForFormat returns the renderer for "csv" or "pdf".
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		return NewCSVExporter(), nil
	case "pdf":
		return NewPDFExporter(ColumnDay), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// Names resolves ids to display names; unknown ids are printed as is.
type Names map[string]string

func (n Names) of(id string) string {
	if name, ok := n[id]; ok && name != "" {
		return name
	}
	return id
}

// TimetableDataset lays entries out one row per lesson ordered by day, start and class.
func TimetableDataset(entries []models.ScheduleEntry, names Names) Dataset {
	sorted := append([]models.ScheduleEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Interval, sorted[j].Interval
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return names.of(sorted[i].ClassID) < names.of(sorted[j].ClassID)
	})

	return Dataset{
		Headers: []string{ColumnDay, ColumnStart, ColumnEnd, ColumnClass, ColumnSubject, ColumnTeacher, ColumnClassroom},
		Rows: lo.Map(sorted, func(e models.ScheduleEntry, _ int) map[string]string {
			return map[string]string{
				ColumnDay:       e.Interval.Day.String(),
				ColumnStart:     e.Interval.Start.String(),
				ColumnEnd:       e.Interval.End.String(),
				ColumnClass:     names.of(e.ClassID),
				ColumnSubject:   names.of(e.SubjectID),
				ColumnTeacher:   names.of(e.TeacherID),
				ColumnClassroom: names.of(e.ClassroomID),
			}
		}),
	}
}
