package timetable

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

// Unassigned marks an empty slot or classroom in a Placement.
const Unassigned = -1

// Occurrence is one weekly instance of a requirement.
type Occurrence struct {
	Requirement int
	Index       int
}

// Placement is the mutable part of an occurrence: grid slot and classroom, by index.
type Placement struct {
	Slot int
	Room int
}

// Placed reports whether the occurrence has a time slot.
func (p Placement) Placed() bool {
	return p.Slot != Unassigned
}

// assignmentListener is notified around every change of an occurrence's placement.
type assignmentListener interface {
	detach(o int)
	attach(o int)
}

// Problem is the planning problem of one solver run plus its current assignment.
// A Problem is not safe for concurrent use.
type Problem struct {
	requirements []models.LessonRequirement
	classrooms   []models.Classroom
	availability Availability
	grid         []models.TimeInterval
	days         []models.DayOfWeek
	dayOf        map[models.DayOfWeek]int

	occurrences []Occurrence
	placements  []Placement
	intervals   []models.TimeInterval

	teacherOf []int
	classOf   []int
	teachers  int
	classes   int
	slotsFor  [][]int
	roomsFor  [][]int
	suits     [][]bool

	listener assignmentListener
}

// NewProblem validates the grid and expands requirements into occurrences.
// Every occurrence starts unplaced; call Seed for a naive starting point.
func NewProblem(requirements []models.LessonRequirement, classrooms []models.Classroom, availability Availability, grid []models.TimeInterval) (*Problem, error) {
	for i, slot := range grid {
		if err := slot.Validate(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidInterval.Code, appErrors.ErrInvalidInterval.Status, fmt.Sprintf("time slot grid entry %d is invalid", i))
		}
	}

	p := &Problem{
		requirements: make([]models.LessonRequirement, len(requirements)),
		classrooms:   append([]models.Classroom(nil), classrooms...),
		availability: availability,
		grid:         append([]models.TimeInterval(nil), grid...),
		dayOf:        make(map[models.DayOfWeek]int),
	}
	copy(p.requirements, requirements)
	for i := range p.classrooms {
		if p.classrooms[i].ID == "" {
			p.classrooms[i].ID = "classroom-" + strconv.Itoa(i)
		}
	}

	p.days = lo.Uniq(lo.Map(p.grid, func(slot models.TimeInterval, _ int) models.DayOfWeek { return slot.Day }))
	sort.Slice(p.days, func(i, j int) bool { return p.days[i] < p.days[j] })
	for i, day := range p.days {
		p.dayOf[day] = i
	}

	teacherIdx := make(map[string]int)
	classIdx := make(map[string]int)
	seen := make(map[string]int, len(p.requirements))
	p.teacherOf = make([]int, len(p.requirements))
	p.classOf = make([]int, len(p.requirements))
	p.slotsFor = make([][]int, len(p.requirements))
	p.roomsFor = make([][]int, len(p.requirements))
	p.suits = make([][]bool, len(p.requirements))

	for r := range p.requirements {
		req := &p.requirements[r]
		if req.LessonsPerWeek < 0 || req.DurationMinutes < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("requirement %d has negative lessons or duration", r))
		}
		if req.ID == "" {
			req.ID = "requirement-" + strconv.Itoa(r)
		}
		// entry ids derive from the requirement id
		if first, dup := seen[req.ID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("requirements %d and %d share id %q", first, r, req.ID))
		}
		seen[req.ID] = r
		if _, ok := teacherIdx[req.TeacherID]; !ok {
			teacherIdx[req.TeacherID] = len(teacherIdx)
		}
		if _, ok := classIdx[req.ClassID]; !ok {
			classIdx[req.ClassID] = len(classIdx)
		}
		p.teacherOf[r] = teacherIdx[req.TeacherID]
		p.classOf[r] = classIdx[req.ClassID]

		for s := range p.grid {
			if _, ok := p.intervalFor(r, s); ok {
				p.slotsFor[r] = append(p.slotsFor[r], s)
			}
		}
		p.suits[r] = make([]bool, len(p.classrooms))
		for c, room := range p.classrooms {
			if room.Suits(*req) {
				p.suits[r][c] = true
				p.roomsFor[r] = append(p.roomsFor[r], c)
			}
		}
		if len(p.roomsFor[r]) == 0 {
			// nothing suits: still let the solver try every room, the score penalises it
			p.roomsFor[r] = lo.Range(len(p.classrooms))
		}

		for i := 0; i < req.LessonsPerWeek; i++ {
			p.occurrences = append(p.occurrences, Occurrence{Requirement: r, Index: i})
		}
	}
	p.teachers = len(teacherIdx)
	p.classes = len(classIdx)

	p.placements = make([]Placement, len(p.occurrences))
	p.intervals = make([]models.TimeInterval, len(p.occurrences))
	for o := range p.placements {
		p.placements[o] = Placement{Slot: Unassigned, Room: Unassigned}
	}
	return p, nil
}

// intervalFor returns the interval a requirement occupies when started at grid slot s.
func (p *Problem) intervalFor(r, s int) (models.TimeInterval, bool) {
	slot := p.grid[s]
	duration := p.requirements[r].DurationMinutes
	if duration == 0 {
		return slot, true
	}
	interval := models.TimeInterval{Day: slot.Day, Start: slot.Start, End: slot.Start + models.TimeOfDay(duration)}
	return interval, interval.End <= models.MinutesPerDay
}

// Len returns the number of occurrences.
func (p *Problem) Len() int { return len(p.occurrences) }

// Occurrence returns occurrence o.
func (p *Problem) Occurrence(o int) Occurrence { return p.occurrences[o] }

// Requirement returns the requirement occurrence o instantiates.
func (p *Problem) Requirement(o int) models.LessonRequirement {
	return p.requirements[p.occurrences[o].Requirement]
}

// Placement returns the current placement of occurrence o.
func (p *Problem) Placement(o int) Placement { return p.placements[o] }

// Interval returns the interval of a placed occurrence.
func (p *Problem) Interval(o int) (models.TimeInterval, bool) {
	if !p.placements[o].Placed() {
		return models.TimeInterval{}, false
	}
	return p.intervals[o], true
}

// Grid returns the time-slot grid.
func (p *Problem) Grid() []models.TimeInterval { return p.grid }

// Classrooms returns the classroom pool.
func (p *Problem) Classrooms() []models.Classroom { return p.classrooms }

// Days returns the distinct grid days in ascending order.
func (p *Problem) Days() []models.DayOfWeek { return p.days }

// PlaceableSlots returns the grid slots occurrence o may start at.
func (p *Problem) PlaceableSlots(o int) []int {
	return p.slotsFor[p.occurrences[o].Requirement]
}

// Seed places every occurrence round-robin over the grid and the classroom pool,
// skipping slots that would overlap a lesson already seeded for the same class or
// teacher while any alternative remains. Occurrences without a placeable slot stay
// unplaced.
func (p *Problem) Seed() {
	cursor := 0
	roomCursor := 0
	for o, occ := range p.occurrences {
		slots := p.slotsFor[occ.Requirement]
		if len(slots) == 0 {
			p.assign(o, Placement{Slot: Unassigned, Room: Unassigned})
			continue
		}
		chosen := slots[cursor%len(slots)]
		for k := 0; k < len(slots); k++ {
			candidate := slots[(cursor+k)%len(slots)]
			if !p.seedClashes(o, candidate) {
				chosen = candidate
				break
			}
		}
		cursor++

		room := p.seedRoom(o, chosen, roomCursor)
		roomCursor++
		p.assign(o, Placement{Slot: chosen, Room: room})
	}
}

func (p *Problem) seedClashes(o, slot int) bool {
	r := p.occurrences[o].Requirement
	interval, _ := p.intervalFor(r, slot)
	for other := 0; other < o; other++ {
		if !p.placements[other].Placed() {
			continue
		}
		or := p.occurrences[other].Requirement
		if p.classOf[or] != p.classOf[r] && p.teacherOf[or] != p.teacherOf[r] {
			continue
		}
		if p.intervals[other].Overlaps(interval) {
			return true
		}
	}
	return false
}

func (p *Problem) seedRoom(o, slot, cursor int) int {
	r := p.occurrences[o].Requirement
	rooms := p.roomsFor[r]
	if len(rooms) == 0 {
		return Unassigned
	}
	interval, _ := p.intervalFor(r, slot)
	for k := 0; k < len(rooms); k++ {
		candidate := rooms[(cursor+k)%len(rooms)]
		busy := false
		for other := 0; other < o; other++ {
			if p.placements[other].Room == candidate && p.placements[other].Placed() && p.intervals[other].Overlaps(interval) {
				busy = true
				break
			}
		}
		if !busy {
			return candidate
		}
	}
	return rooms[cursor%len(rooms)]
}

// MoveTimeSlot moves occurrence o to grid slot. An occurrence without a classroom
// receives the first suitable one.
func (p *Problem) MoveTimeSlot(o, slot int) error {
	if err := p.checkOccurrence(o); err != nil {
		return err
	}
	if slot < 0 || slot >= len(p.grid) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slot %d out of range", slot))
	}
	if _, ok := p.intervalFor(p.occurrences[o].Requirement, slot); !ok {
		return appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("lesson does not fit in slot %d", slot))
	}
	next := p.placements[o]
	next.Slot = slot
	if next.Room == Unassigned {
		if rooms := p.roomsFor[p.occurrences[o].Requirement]; len(rooms) > 0 {
			next.Room = rooms[0]
		}
	}
	p.assign(o, next)
	return nil
}

// MoveClassroom changes the classroom of occurrence o.
func (p *Problem) MoveClassroom(o, room int) error {
	if err := p.checkOccurrence(o); err != nil {
		return err
	}
	if room < 0 || room >= len(p.classrooms) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("classroom %d out of range", room))
	}
	next := p.placements[o]
	next.Room = room
	p.assign(o, next)
	return nil
}

// Swap exchanges the slot and classroom of two occurrences.
func (p *Problem) Swap(a, b int) error {
	if err := p.checkOccurrence(a); err != nil {
		return err
	}
	if err := p.checkOccurrence(b); err != nil {
		return err
	}
	if !p.swap(a, b) {
		return appErrors.Clone(appErrors.ErrInvalidInterval, "lessons do not fit in each other's slots")
	}
	return nil
}

// Place sets both slot and classroom of occurrence o.
func (p *Problem) Place(o, slot, room int) error {
	if err := p.MoveTimeSlot(o, slot); err != nil {
		return err
	}
	return p.MoveClassroom(o, room)
}

// Unplace removes occurrence o from the timetable.
func (p *Problem) Unplace(o int) error {
	if err := p.checkOccurrence(o); err != nil {
		return err
	}
	p.assign(o, Placement{Slot: Unassigned, Room: p.placements[o].Room})
	return nil
}

func (p *Problem) checkOccurrence(o int) error {
	if o < 0 || o >= len(p.occurrences) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("occurrence %d out of range", o))
	}
	return nil
}

// swap exchanges two placements; it is a no-op returning false when either lesson
// would not fit in the other's slot.
func (p *Problem) swap(a, b int) bool {
	if a == b {
		return true
	}
	pa, pb := p.placements[a], p.placements[b]
	ra, rb := p.occurrences[a].Requirement, p.occurrences[b].Requirement
	if pb.Placed() {
		if _, ok := p.intervalFor(ra, pb.Slot); !ok {
			return false
		}
	}
	if pa.Placed() {
		if _, ok := p.intervalFor(rb, pa.Slot); !ok {
			return false
		}
	}
	if p.listener != nil {
		p.listener.detach(a)
		p.listener.detach(b)
	}
	p.set(a, pb)
	p.set(b, pa)
	if p.listener != nil {
		p.listener.attach(a)
		p.listener.attach(b)
	}
	return true
}

// assign replaces the placement of o without bounds checks.
func (p *Problem) assign(o int, next Placement) {
	if p.listener != nil {
		p.listener.detach(o)
	}
	p.set(o, next)
	if p.listener != nil {
		p.listener.attach(o)
	}
}

func (p *Problem) set(o int, next Placement) {
	p.placements[o] = next
	if next.Placed() {
		p.intervals[o], _ = p.intervalFor(p.occurrences[o].Requirement, next.Slot)
	} else {
		p.intervals[o] = models.TimeInterval{}
	}
}

// snapshot copies the current assignment.
func (p *Problem) snapshot() []Placement {
	return append([]Placement(nil), p.placements...)
}

// restore reinstates a snapshot taken from this problem.
func (p *Problem) restore(placements []Placement) {
	for o, pl := range placements {
		if p.placements[o] != pl {
			p.assign(o, pl)
		}
	}
}

// Entry materialises occurrence o as a schedule entry. ok is false when unplaced.
func (p *Problem) Entry(scheduleID string, o int) (models.ScheduleEntry, bool) {
	pl := p.placements[o]
	if !pl.Placed() {
		return models.ScheduleEntry{}, false
	}
	occ := p.occurrences[o]
	req := p.requirements[occ.Requirement]
	entry := models.ScheduleEntry{
		ID:         entryID(scheduleID, req.ID, occ.Index),
		ScheduleID: scheduleID,
		ClassID:    req.ClassID,
		SubjectID:  req.SubjectID,
		TeacherID:  req.TeacherID,
		Interval:   p.intervals[o],
	}
	if pl.Room != Unassigned {
		entry.ClassroomID = p.classrooms[pl.Room].ID
	}
	return entry, true
}

// Entries materialises every placed occurrence, ordered by occurrence.
func (p *Problem) Entries(scheduleID string) []models.ScheduleEntry {
	entries := make([]models.ScheduleEntry, 0, len(p.occurrences))
	for o := range p.occurrences {
		if entry, ok := p.Entry(scheduleID, o); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// entryID is stable for a schedule, requirement and occurrence index so repeated
// solves produce comparable entries.
func entryID(scheduleID, requirementID string, index int) string {
	name := scheduleID + "/" + requirementID + "/" + strconv.Itoa(index)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
