package availability

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdays(t *testing.T) Window {
	t.Helper()
	w, err := ParseWindow(1, 5, "08:00:00", "17:00:00")
	require.NoError(t, err)
	return w
}

func TestParseLocalTime(t *testing.T) {
	lt, err := ParseLocalTime("08:30:15")
	require.NoError(t, err)
	assert.Equal(t, 8, lt.Hour())
	assert.Equal(t, 30, lt.Minute())
	assert.Equal(t, 15, lt.Second())
	assert.Equal(t, "08:30:15", lt.String())
	assert.Equal(t, "08:30", lt.Short())

	for _, bad := range []string{"8:30:00", "08:30", "24:00:00", "12:60:00", "12:00:60", "", "noon"} {
		_, err := ParseLocalTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestLocalTimeJSONAndScan(t *testing.T) {
	var lt LocalTime
	require.NoError(t, json.Unmarshal([]byte(`"09:15:00"`), &lt))
	out, err := json.Marshal(lt)
	require.NoError(t, err)
	assert.JSONEq(t, `"09:15:00"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`"9:15"`), &lt))

	var scanned LocalTime
	require.NoError(t, scanned.Scan([]byte("17:00:00.000000")))
	assert.Equal(t, "17:00:00", scanned.String())
	require.NoError(t, scanned.Scan(time.Date(0, 1, 1, 6, 45, 0, 0, time.UTC)))
	assert.Equal(t, "06:45:00", scanned.String())
	assert.Error(t, scanned.Scan(nil))
}

func TestParseWindowAcceptsOrderedTimes(t *testing.T) {
	pairs := [][2]string{
		{"00:00:00", "00:00:01"},
		{"08:00:00", "17:00:00"},
		{"23:59:58", "23:59:59"},
	}
	for _, p := range pairs {
		_, err := ParseWindow(1, 5, p[0], p[1])
		assert.NoError(t, err, p)
	}
}

func TestParseWindowRejectsUnorderedTimesOnToField(t *testing.T) {
	pairs := [][2]string{
		{"17:00:00", "08:00:00"},
		{"08:00:00", "08:00:00"},
		{"23:59:59", "00:00:00"},
	}
	for _, p := range pairs {
		_, err := ParseWindow(1, 5, p[0], p[1])
		require.Error(t, err, p)
		assert.True(t, apperrors.IsValidation(err))
		fields := apperrors.FieldsOf(err)
		assert.Contains(t, fields, FieldToTime)
		assert.NotContains(t, fields, FieldFromTime)
	}
}

func TestParseWindowRejectsWeekdaysOutOfRange(t *testing.T) {
	for _, d := range []int{-1, 7, 42} {
		_, err := ParseWindow(d, 3, "08:00:00", "17:00:00")
		assert.Contains(t, apperrors.FieldsOf(err), FieldFromWeekday)

		_, err = ParseWindow(3, d, "08:00:00", "17:00:00")
		assert.Contains(t, apperrors.FieldsOf(err), FieldToWeekday)
	}
}

func TestParseWindowReportsEveryField(t *testing.T) {
	_, err := ParseWindow(9, -2, "8am", "5pm")
	assert.Equal(t, []string{FieldFromTime, FieldFromWeekday, FieldToTime, FieldToWeekday},
		sortedKeys(apperrors.FieldsOf(err)))
}

func TestWindowWeekdayRange(t *testing.T) {
	w := weekdays(t)
	assert.False(t, w.Wraps())
	assert.True(t, w.IncludesWeekday(time.Wednesday))
	assert.False(t, w.IncludesWeekday(time.Saturday))
	assert.Len(t, w.Weekdays(), 5)

	wrap, err := ParseWindow(5, 1, "08:00:00", "12:00:00")
	require.NoError(t, err)
	assert.True(t, wrap.Wraps())
	assert.Equal(t, []time.Weekday{time.Friday, time.Saturday, time.Sunday, time.Monday}, wrap.Weekdays())
	assert.True(t, wrap.IncludesWeekday(time.Sunday))
	assert.False(t, wrap.IncludesWeekday(time.Wednesday))

	single, err := ParseWindow(3, 3, "08:00:00", "12:00:00")
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Wednesday}, single.Weekdays())
	assert.False(t, single.IncludesWeekday(time.Thursday))
}

func TestCheckExamples(t *testing.T) {
	w := weekdays(t)
	loc := time.UTC

	// 2024-05-15 is a Wednesday.
	wed := time.Date(2024, 5, 15, 9, 0, 0, 0, loc)
	sat := time.Date(2024, 5, 18, 9, 0, 0, 0, loc)
	monClose := time.Date(2024, 5, 13, 17, 0, 0, 0, loc)

	assert.Equal(t, Decision{Bookable: true}, Check(w, loc, wed, 30*time.Minute, nil))
	assert.Equal(t, Decision{Reason: ReasonDayUnavailable}, Check(w, loc, sat, 30*time.Minute, nil))
	assert.Equal(t, Decision{Reason: ReasonOutsideHours}, Check(w, loc, monClose, 30*time.Minute, nil))
}

func TestCheckBoundaries(t *testing.T) {
	w := weekdays(t)
	loc := time.UTC
	open := time.Date(2024, 5, 13, 8, 0, 0, 0, loc)
	late := time.Date(2024, 5, 13, 16, 45, 0, 0, loc)

	assert.True(t, Check(w, loc, open, 30*time.Minute, nil).Bookable)
	assert.True(t, Check(w, loc, late, 15*time.Minute, nil).Bookable)
	assert.Equal(t, ReasonRunsPastHours, Check(w, loc, late, 30*time.Minute, nil).Reason)
}

func TestCheckUsesClinicZone(t *testing.T) {
	w := weekdays(t)
	loc := time.FixedZone("BRT", -3*3600)

	// 11:00 UTC on a Wednesday is 08:00 local.
	start := time.Date(2024, 5, 15, 11, 0, 0, 0, time.UTC)
	assert.True(t, Check(w, loc, start, time.Hour, nil).Bookable)

	// 10:30 UTC is 07:30 local, before opening.
	early := time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)
	assert.False(t, Check(w, loc, early, time.Hour, nil).Bookable)
}

func TestCheckOverlaps(t *testing.T) {
	w := weekdays(t)
	loc := time.UTC
	at := func(h, m int) time.Time { return time.Date(2024, 5, 15, h, m, 0, 0, loc) }
	booked := []Interval{{Start: at(10, 0), End: at(10, 30)}}

	assert.Equal(t, ReasonSlotTaken, Check(w, loc, at(10, 0), 30*time.Minute, booked).Reason)
	assert.Equal(t, ReasonSlotTaken, Check(w, loc, at(9, 45), 30*time.Minute, booked).Reason)
	assert.Equal(t, ReasonSlotTaken, Check(w, loc, at(10, 15), 30*time.Minute, booked).Reason)
	assert.True(t, Check(w, loc, at(9, 30), 30*time.Minute, booked).Bookable)
	assert.True(t, Check(w, loc, at(10, 30), 30*time.Minute, booked).Bookable)
}

func TestDescribe(t *testing.T) {
	w := weekdays(t)
	loc := time.FixedZone("BRT", -3*3600)
	// Saturday: the next Monday is two days later, the next Friday after it four more.
	now := time.Date(2024, 5, 18, 12, 0, 0, 0, loc)

	d := Describe(w, now, loc, "en")
	assert.Equal(t, "Monday", d.From.Day)
	assert.Equal(t, "08:00", d.From.Time)
	assert.Equal(t, time.Date(2024, 5, 20, 8, 0, 0, 0, loc), d.From.At)
	assert.Equal(t, "Friday", d.To.Day)
	assert.Equal(t, "17:00", d.To.Time)
	assert.Equal(t, time.Date(2024, 5, 24, 17, 0, 0, 0, loc), d.To.At)
	assert.Equal(t, "BRT", d.Timezone)

	pt := Describe(w, now, loc, "pt-BR")
	assert.Equal(t, "segunda-feira", pt.From.Day)
	assert.Equal(t, "sexta-feira", pt.To.Day)
}

func TestDescribeIncludesTodayAndWraps(t *testing.T) {
	wrap, err := ParseWindow(5, 1, "09:00:00", "12:00:00")
	require.NoError(t, err)
	// 2024-05-17 is a Friday.
	now := time.Date(2024, 5, 17, 7, 0, 0, 0, time.UTC)

	d := Describe(wrap, now, time.UTC, "en")
	assert.Equal(t, time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC), d.From.At)
	assert.Equal(t, time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC), d.To.At)
}

func TestResolveLocationFallsBack(t *testing.T) {
	fallback := time.FixedZone("X", 3600)
	assert.Equal(t, fallback, ResolveLocation("", fallback))
	assert.Equal(t, fallback, ResolveLocation("Not/AZone", fallback))
	assert.Equal(t, time.UTC, ResolveLocation("", nil))
	assert.Equal(t, "UTC", ResolveLocation("UTC", fallback).String())
}

func TestParseInstant(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)

	abs, err := ParseInstant("2024-05-15T12:00:00Z", loc)
	require.NoError(t, err)
	assert.True(t, abs.Equal(time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)))

	wall, err := ParseInstant("2024-05-15T09:00:00", loc)
	require.NoError(t, err)
	assert.True(t, wall.Equal(abs))

	_, err = ParseInstant("15/05/2024", loc)
	assert.Error(t, err)
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	start, end := DayBounds(time.Date(2024, 5, 15, 2, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, loc), end)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestTimeOfDayRule(t *testing.T) {
	v := validator.New(TimeOfDayRule())
	type shift struct {
		From string `json:"from_time" validate:"required,timeofday"`
	}

	fields, err := v.Fields(&shift{From: "8:00"})
	require.NoError(t, err)
	assert.Equal(t, "time must use the HH:mm:ss format", fields["from_time"])
	assert.NoError(t, v.Validate(&shift{From: "08:00:00"}))
}
