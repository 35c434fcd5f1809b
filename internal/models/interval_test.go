package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

func TestTimeIntervalOverlaps(t *testing.T) {
	at := func(day DayOfWeek, start, end int) TimeInterval {
		return TimeInterval{Day: day, Start: TimeOfDay(start), End: TimeOfDay(end)}
	}

	cases := []struct {
		name string
		a, b TimeInterval
		want bool
	}{
		{"identical", at(Monday, 480, 525), at(Monday, 480, 525), true},
		{"partial", at(Monday, 480, 525), at(Monday, 500, 560), true},
		{"contained", at(Monday, 480, 600), at(Monday, 500, 510), true},
		{"touching end", at(Monday, 480, 525), at(Monday, 525, 570), false},
		{"touching start", at(Monday, 525, 570), at(Monday, 480, 525), false},
		{"disjoint", at(Monday, 480, 525), at(Monday, 600, 645), false},
		{"other day", at(Monday, 480, 525), at(Tuesday, 480, 525), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.want, tc.b.Overlaps(tc.a), "overlap must be symmetric")
		})
	}
}

func TestTimeIntervalOverlapsMatchesMinuteSets(t *testing.T) {
	bounds := []int{0, 30, 45, 60, 90}
	for _, s1 := range bounds {
		for _, e1 := range bounds {
			if e1 <= s1 {
				continue
			}
			for _, s2 := range bounds {
				for _, e2 := range bounds {
					if e2 <= s2 {
						continue
					}
					a := TimeInterval{Day: Friday, Start: TimeOfDay(s1), End: TimeOfDay(e1)}
					b := TimeInterval{Day: Friday, Start: TimeOfDay(s2), End: TimeOfDay(e2)}
					shared := false
					for m := s1; m < e1; m++ {
						if m >= s2 && m < e2 {
							shared = true
							break
						}
					}
					assert.Equal(t, shared, a.Overlaps(b), "%s vs %s", a, b)
				}
			}
		}
	}
}

func TestTimeIntervalValidate(t *testing.T) {
	_, err := NewInterval(Monday, NewTimeOfDay(8, 0), NewTimeOfDay(8, 45))
	require.NoError(t, err)

	_, err = NewInterval(Monday, NewTimeOfDay(23, 0), MinutesPerDay)
	require.NoError(t, err, "24:00 is a valid end")

	invalid := []TimeInterval{
		{Day: Monday, Start: 600, End: 600},
		{Day: Monday, Start: 600, End: 540},
		{Day: Monday, Start: -1, End: 60},
		{Day: Monday, Start: 1400, End: 1441},
		{Day: 0, Start: 480, End: 525},
		{Day: 8, Start: 480, End: 525},
	}
	for _, interval := range invalid {
		err := interval.Validate()
		require.Error(t, err, "%+v", interval)
		assert.True(t, errors.Is(err, appErrors.ErrInvalidInterval))
	}
}

func TestParseDayOfWeek(t *testing.T) {
	day, err := ParseDayOfWeek("wednesday")
	require.NoError(t, err)
	assert.Equal(t, Wednesday, day)

	day, err = ParseDayOfWeek("5")
	require.NoError(t, err)
	assert.Equal(t, Friday, day)

	_, err = ParseDayOfWeek("funday")
	assert.Error(t, err)
	_, err = ParseDayOfWeek("9")
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("07:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(450), tod)
	assert.Equal(t, "07:30", tod.String())

	tod, err = ParseTimeOfDay("24:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(MinutesPerDay), tod)

	for _, raw := range []string{"7", "25:00", "10:60", "ab:cd", "24:01"} {
		_, err := ParseTimeOfDay(raw)
		assert.Error(t, err, raw)
	}
}

func TestTimeIntervalJSON(t *testing.T) {
	var interval TimeInterval
	require.NoError(t, json.Unmarshal([]byte(`{"day":"TUESDAY","start":"09:00","end":"09:45"}`), &interval))
	assert.Equal(t, TimeInterval{Day: Tuesday, Start: 540, End: 585}, interval)

	require.NoError(t, json.Unmarshal([]byte(`{"day":2,"start":"09:00","end":"09:45"}`), &interval))
	assert.Equal(t, Tuesday, interval.Day)

	out, err := json.Marshal(interval)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"TUESDAY","start":"09:00","end":"09:45"}`, string(out))
}
