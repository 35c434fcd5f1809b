package timetable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

// Availability answers whether a teacher may teach during an interval.
type Availability interface {
	IsAvailable(teacherID string, interval models.TimeInterval) bool
}

// AvailabilityPolicy decides how windows without any record are treated.
type AvailabilityPolicy int

const (
	// OpenWorld treats unknown windows as available.
	OpenWorld AvailabilityPolicy = iota
	// ClosedWorld requires an explicit available record covering the whole interval.
	ClosedWorld
)

func (p AvailabilityPolicy) String() string {
	if p == ClosedWorld {
		return "closed-world"
	}
	return "open-world"
}

// ParseAvailabilityPolicy maps configuration strings to a policy.
func ParseAvailabilityPolicy(raw string) (AvailabilityPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "open", "open-world", "open_world":
		return OpenWorld, nil
	case "closed", "closed-world", "closed_world":
		return ClosedWorld, nil
	}
	return OpenWorld, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown availability policy %q", raw))
}

type availabilityWindow struct {
	interval  models.TimeInterval
	available bool
}

// AvailabilityIndex buckets availability records per teacher and day.
// It is safe for concurrent reads once built; Add must not race with readers.
type AvailabilityIndex struct {
	policy  AvailabilityPolicy
	windows map[string]map[models.DayOfWeek][]availabilityWindow
}

// NewAvailabilityIndex indexes the given records.
func NewAvailabilityIndex(records []models.TeacherAvailability, policy AvailabilityPolicy) (*AvailabilityIndex, error) {
	idx := &AvailabilityIndex{
		policy:  policy,
		windows: make(map[string]map[models.DayOfWeek][]availabilityWindow),
	}
	for _, record := range records {
		if err := idx.Add(record); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Policy returns the configured policy.
func (idx *AvailabilityIndex) Policy() AvailabilityPolicy {
	if idx == nil {
		return OpenWorld
	}
	return idx.policy
}

// Add indexes one record, keeping the day bucket ordered by start.
func (idx *AvailabilityIndex) Add(record models.TeacherAvailability) error {
	if err := record.Interval.Validate(); err != nil {
		return err
	}
	days := idx.windows[record.TeacherID]
	if days == nil {
		days = make(map[models.DayOfWeek][]availabilityWindow)
		idx.windows[record.TeacherID] = days
	}
	bucket := append(days[record.Interval.Day], availabilityWindow{interval: record.Interval, available: record.Available})
	sort.SliceStable(bucket, func(i, j int) bool {
		return bucket[i].interval.Start < bucket[j].interval.Start
	})
	days[record.Interval.Day] = bucket
	return nil
}

// IsAvailable returns false when a blocking record overlaps the interval, or under
// the closed-world policy when available records do not cover it entirely.
func (idx *AvailabilityIndex) IsAvailable(teacherID string, interval models.TimeInterval) bool {
	if idx == nil {
		return true
	}
	bucket := idx.windows[teacherID][interval.Day]
	for _, w := range bucket {
		if w.interval.Start >= interval.End {
			break
		}
		if !w.available && w.interval.Overlaps(interval) {
			return false
		}
	}
	if idx.policy == OpenWorld {
		return true
	}

	cursor := interval.Start
	for _, w := range bucket {
		if !w.available {
			continue
		}
		if w.interval.Start > cursor {
			break
		}
		if w.interval.End > cursor {
			cursor = w.interval.End
		}
		if cursor >= interval.End {
			return true
		}
	}
	return false
}
