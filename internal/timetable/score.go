package timetable

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// DefaultGapThresholdMinutes is the idle time between two lessons of a class that is
// not penalised.
const DefaultGapThresholdMinutes = 15

// Score is compared lexicographically: Hard, then Soft, then Balance. Every level is
// zero or negative; zero is perfect.
type Score struct {
	Hard    int64 `json:"hard"`
	Soft    int64 `json:"soft"`
	Balance int64 `json:"balance"`
}

// Compare returns -1, 0 or +1 when s is worse than, equal to or better than other.
func (s Score) Compare(other Score) int {
	switch {
	case s.Hard != other.Hard:
		return sign(s.Hard - other.Hard)
	case s.Soft != other.Soft:
		return sign(s.Soft - other.Soft)
	default:
		return sign(s.Balance - other.Balance)
	}
}

// Better reports whether s is strictly better than other.
func (s Score) Better(other Score) bool {
	return s.Compare(other) > 0
}

// Feasible reports whether no hard constraint is violated.
func (s Score) Feasible() bool {
	return s.Hard == 0
}

// Perfect reports whether nothing can be improved.
func (s Score) Perfect() bool {
	return s == Score{}
}

func (s Score) String() string {
	return fmt.Sprintf("%dhard/%dsoft/%dbalance", s.Hard, s.Soft, s.Balance)
}

func sign(v int64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// ScoreConfig tunes the soft level.
type ScoreConfig struct {
	GapThresholdMinutes int
}

func (c ScoreConfig) withDefaults() ScoreConfig {
	if c.GapThresholdMinutes < 0 {
		c.GapThresholdMinutes = 0
	}
	return c
}

// Evaluate recomputes the score of the current assignment from scratch.
func Evaluate(p *Problem, cfg ScoreConfig) Score {
	cfg = cfg.withDefaults()
	var hard int64

	type placed struct {
		entry models.ScheduleEntry
		class int
		o     int
	}
	entries := make([]placed, 0, p.Len())
	for o := 0; o < p.Len(); o++ {
		entry, ok := p.Entry("", o)
		if !ok {
			hard--
			continue
		}
		entries = append(entries, placed{entry: entry, class: p.classOf[p.occurrences[o].Requirement], o: o})
	}

	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			hard -= int64(len(clashKinds(entries[i].entry, entries[j].entry)))
		}
		e := entries[i]
		if p.availability != nil && !p.availability.IsAvailable(e.entry.TeacherID, e.entry.Interval) {
			hard--
		}
		if !p.roomSuits(e.o) {
			hard--
		}
	}

	perClassDay := make([][][]models.TimeInterval, p.classes)
	for c := range perClassDay {
		perClassDay[c] = make([][]models.TimeInterval, len(p.days))
	}
	for _, e := range entries {
		d := p.dayOf[e.entry.Interval.Day]
		perClassDay[e.class][d] = append(perClassDay[e.class][d], e.entry.Interval)
	}

	var soft, balance int64
	days := int64(len(p.days))
	for _, byDay := range perClassDay {
		var sum, sumSq int64
		for _, intervals := range byDay {
			soft -= gapPenalty(intervals, cfg.GapThresholdMinutes)
			x := int64(len(intervals))
			sum += x
			sumSq += x * x
		}
		balance -= days*sumSq - sum*sum
	}
	return Score{Hard: hard, Soft: soft, Balance: balance}
}

// roomSuits reports whether a placed occurrence sits in a classroom that fits it.
func (p *Problem) roomSuits(o int) bool {
	room := p.placements[o].Room
	if room == Unassigned {
		return false
	}
	return p.suits[p.occurrences[o].Requirement][room]
}

// gapPenalty sums, over consecutive lessons ordered by start, the idle minutes
// beyond threshold. The slice is reordered in place.
func gapPenalty(intervals []models.TimeInterval, threshold int) int64 {
	if len(intervals) < 2 {
		return 0
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })
	var penalty int64
	end := intervals[0].End
	for _, next := range intervals[1:] {
		if gap := int(next.Start - end); gap > threshold {
			penalty += int64(gap - threshold)
		}
		if next.End > end {
			end = next.End
		}
	}
	return penalty
}

// Scorer keeps the score of a Problem current as occurrences move. Only the buckets
// touched by a move are revisited, so a move costs time proportional to the lessons
// sharing its teacher, classroom or class on that day.
type Scorer struct {
	p   *Problem
	cfg ScoreConfig

	teacherDay [][][]int
	roomDay    [][][]int
	classDay   [][][]int

	available []bool
	gapCell   [][]int64
	dayCount  [][]int64
	sum       []int64
	sumSq     []int64

	pairs       int64
	unavailable int64
	unsuitable  int64
	unplaced    int64
	soft        int64

	scratch []models.TimeInterval
}

// NewScorer attaches a scorer to p. Any previously attached scorer stops receiving
// updates.
func NewScorer(p *Problem, cfg ScoreConfig) *Scorer {
	s := &Scorer{p: p, cfg: cfg.withDefaults()}
	s.Reset()
	p.listener = s
	return s
}

// Reset rebuilds every bucket from the problem's current assignment.
func (s *Scorer) Reset() {
	p := s.p
	days := len(p.days)
	s.teacherDay = grid3(p.teachers, days)
	s.roomDay = grid3(len(p.classrooms), days)
	s.classDay = grid3(p.classes, days)
	s.available = make([]bool, p.Len())
	s.gapCell = make([][]int64, p.classes)
	s.dayCount = make([][]int64, p.classes)
	for c := 0; c < p.classes; c++ {
		s.gapCell[c] = make([]int64, days)
		s.dayCount[c] = make([]int64, days)
	}
	s.sum = make([]int64, p.classes)
	s.sumSq = make([]int64, p.classes)
	s.pairs, s.unavailable, s.unsuitable, s.unplaced, s.soft = 0, 0, 0, 0, 0
	for o := 0; o < p.Len(); o++ {
		s.attach(o)
	}
}

func grid3(n, days int) [][][]int {
	out := make([][][]int, n)
	for i := range out {
		out[i] = make([][]int, days)
	}
	return out
}

// Score returns the current score.
func (s *Scorer) Score() Score {
	days := int64(len(s.p.days))
	var balance int64
	for c := range s.sum {
		balance -= days*s.sumSq[c] - s.sum[c]*s.sum[c]
	}
	return Score{
		Hard:    -(s.pairs + s.unavailable + s.unsuitable + s.unplaced),
		Soft:    -s.soft,
		Balance: balance,
	}
}

func (s *Scorer) attach(o int) {
	p := s.p
	pl := p.placements[o]
	if !pl.Placed() {
		s.unplaced++
		return
	}
	r := p.occurrences[o].Requirement
	interval := p.intervals[o]
	d := p.dayOf[interval.Day]
	t, c := p.teacherOf[r], p.classOf[r]

	s.pairs += s.overlapping(s.teacherDay[t][d], o)
	s.teacherDay[t][d] = append(s.teacherDay[t][d], o)
	if pl.Room != Unassigned {
		s.pairs += s.overlapping(s.roomDay[pl.Room][d], o)
		s.roomDay[pl.Room][d] = append(s.roomDay[pl.Room][d], o)
	}
	s.pairs += s.overlapping(s.classDay[c][d], o)
	s.classDay[c][d] = append(s.classDay[c][d], o)

	s.available[o] = p.availability == nil || p.availability.IsAvailable(p.requirements[r].TeacherID, interval)
	if !s.available[o] {
		s.unavailable++
	}
	if !p.roomSuits(o) {
		s.unsuitable++
	}

	x := s.dayCount[c][d]
	s.dayCount[c][d] = x + 1
	s.sum[c]++
	s.sumSq[c] += 2*x + 1
	s.refreshGap(c, d)
}

func (s *Scorer) detach(o int) {
	p := s.p
	pl := p.placements[o]
	if !pl.Placed() {
		s.unplaced--
		return
	}
	r := p.occurrences[o].Requirement
	d := p.dayOf[p.intervals[o].Day]
	t, c := p.teacherOf[r], p.classOf[r]

	s.teacherDay[t][d] = remove(s.teacherDay[t][d], o)
	s.pairs -= s.overlapping(s.teacherDay[t][d], o)
	if pl.Room != Unassigned {
		s.roomDay[pl.Room][d] = remove(s.roomDay[pl.Room][d], o)
		s.pairs -= s.overlapping(s.roomDay[pl.Room][d], o)
	}
	s.classDay[c][d] = remove(s.classDay[c][d], o)
	s.pairs -= s.overlapping(s.classDay[c][d], o)

	if !s.available[o] {
		s.unavailable--
	}
	if !p.roomSuits(o) {
		s.unsuitable--
	}

	x := s.dayCount[c][d]
	s.dayCount[c][d] = x - 1
	s.sum[c]--
	s.sumSq[c] -= 2*x - 1
	s.refreshGap(c, d)
}

// overlapping counts the occurrences in bucket, other than o, whose interval
// overlaps o's.
func (s *Scorer) overlapping(bucket []int, o int) int64 {
	interval := s.p.intervals[o]
	var n int64
	for _, other := range bucket {
		if other != o && s.p.intervals[other].Overlaps(interval) {
			n++
		}
	}
	return n
}

func (s *Scorer) refreshGap(c, d int) {
	s.scratch = s.scratch[:0]
	for _, o := range s.classDay[c][d] {
		s.scratch = append(s.scratch, s.p.intervals[o])
	}
	penalty := gapPenalty(s.scratch, s.cfg.GapThresholdMinutes)
	s.soft += penalty - s.gapCell[c][d]
	s.gapCell[c][d] = penalty
}

func remove(bucket []int, o int) []int {
	for i, v := range bucket {
		if v == o {
			last := len(bucket) - 1
			bucket[i] = bucket[last]
			return bucket[:last]
		}
	}
	return bucket
}
