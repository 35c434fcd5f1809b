package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

// DayOfWeek is an ISO weekday, Monday = 1 through Sunday = 7.
type DayOfWeek int

const (
	Monday DayOfWeek = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = map[DayOfWeek]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
	Sunday:    "SUNDAY",
}

var dayIndex = map[string]DayOfWeek{
	"MONDAY":    Monday,
	"TUESDAY":   Tuesday,
	"WEDNESDAY": Wednesday,
	"THURSDAY":  Thursday,
	"FRIDAY":    Friday,
	"SATURDAY":  Saturday,
	"SUNDAY":    Sunday,
}

// Valid reports whether d is one of the seven weekdays.
func (d DayOfWeek) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d DayOfWeek) String() string {
	if name, ok := dayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DAY(%d)", int(d))
}

// ParseDayOfWeek accepts day names in any case or the numeric 1-7 form.
func ParseDayOfWeek(raw string) (DayOfWeek, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if day, ok := dayIndex[raw]; ok {
		return day, nil
	}
	if n, err := strconv.Atoi(raw); err == nil && DayOfWeek(n).Valid() {
		return DayOfWeek(n), nil
	}
	return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day of week %q", raw))
}

// MarshalText renders the day name.
func (d DayOfWeek) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses day names or numbers.
func (d *DayOfWeek) UnmarshalText(text []byte) error {
	day, err := ParseDayOfWeek(string(text))
	if err != nil {
		return err
	}
	*d = day
	return nil
}

// UnmarshalJSON accepts both "MONDAY" and 1.
func (d *DayOfWeek) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if !DayOfWeek(n).Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day of week %d out of range", n))
		}
		*d = DayOfWeek(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// MinutesPerDay bounds TimeOfDay; 24:00 is a valid end of day.
const MinutesPerDay = 24 * 60

// TimeOfDay is minutes since midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("time %q must be HH:MM", raw))
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("time %q has invalid hour", raw))
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("time %q has invalid minute", raw))
	}
	t := NewTimeOfDay(hour, minute)
	if hour < 0 || t > MinutesPerDay {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("time %q is outside the day", raw))
	}
	return t, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText renders "HH:MM".
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses "HH:MM".
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeInterval is a half-open [Start, End) window on one weekday.
type TimeInterval struct {
	Day   DayOfWeek `json:"day" yaml:"day" mapstructure:"day"`
	Start TimeOfDay `json:"start" yaml:"start" mapstructure:"start"`
	End   TimeOfDay `json:"end" yaml:"end" mapstructure:"end"`
}

// NewInterval builds and validates an interval.
func NewInterval(day DayOfWeek, start, end TimeOfDay) (TimeInterval, error) {
	interval := TimeInterval{Day: day, Start: start, End: end}
	if err := interval.Validate(); err != nil {
		return TimeInterval{}, err
	}
	return interval, nil
}

// Validate rejects empty or inverted intervals and ones that leave the day.
func (i TimeInterval) Validate() error {
	if !i.Day.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("invalid day %d", int(i.Day)))
	}
	if i.Start < 0 || i.End > MinutesPerDay {
		return appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("interval %s is outside the day", i))
	}
	if i.Start >= i.End {
		return appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("interval %s must start before it ends", i))
	}
	return nil
}

// Overlaps reports whether both intervals share at least one minute.
// Touching boundaries do not overlap.
func (i TimeInterval) Overlaps(other TimeInterval) bool {
	if i.Day != other.Day {
		return false
	}
	return i.Start < other.End && other.Start < i.End
}

// Covers reports whether other lies entirely inside i.
func (i TimeInterval) Covers(other TimeInterval) bool {
	return i.Day == other.Day && i.Start <= other.Start && other.End <= i.End
}

// Minutes returns the interval length in minutes.
func (i TimeInterval) Minutes() int {
	return int(i.End - i.Start)
}

// Duration returns the interval length.
func (i TimeInterval) Duration() time.Duration {
	return time.Duration(i.Minutes()) * time.Minute
}

func (i TimeInterval) String() string {
	return fmt.Sprintf("%s %s-%s", i.Day, i.Start, i.End)
}
