package availability

import (
	"fmt"
	"time"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Input field names, shared with the request payloads so that errors land on
// the offending form field.
const (
	FieldFromWeekday = "available_from_weekday"
	FieldToWeekday   = "available_to_weekday"
	FieldFromTime    = "available_from_time"
	FieldToTime      = "available_to_time"
)

// Window is a weekly recurring availability: a weekday range plus a
// time-of-day range applied to every day inside it.
//
// FromWeekday > ToWeekday wraps across the end of the week (Friday to
// Monday). Equal weekdays describe a single day.
type Window struct {
	FromWeekday time.Weekday `json:"from_weekday"`
	ToWeekday   time.Weekday `json:"to_weekday"`
	FromTime    LocalTime    `json:"from_time"`
	ToTime      LocalTime    `json:"to_time"`
}

// ValidWeekday reports whether d is in [0,6], Sunday being 0.
func ValidWeekday(d int) bool {
	return d >= 0 && d <= 6
}

// ParseWindow validates raw form input and returns the canonical window. All
// failing fields are reported together; the ordering check only runs when
// both times parsed, and is attached to the "to" field.
func ParseWindow(fromDay, toDay int, fromTime, toTime string) (Window, error) {
	fields := apperrors.FieldErrors{}

	if !ValidWeekday(fromDay) {
		fields.Add(FieldFromWeekday, "weekday must be between 0 (Sunday) and 6 (Saturday)")
	}
	if !ValidWeekday(toDay) {
		fields.Add(FieldToWeekday, "weekday must be between 0 (Sunday) and 6 (Saturday)")
	}

	from, fromErr := ParseLocalTime(fromTime)
	if fromErr != nil {
		fields.Add(FieldFromTime, "time must use the HH:mm:ss format")
	}
	to, toErr := ParseLocalTime(toTime)
	if toErr != nil {
		fields.Add(FieldToTime, "time must use the HH:mm:ss format")
	}
	if fromErr == nil && toErr == nil && !from.Before(to) {
		fields.Add(FieldToTime, "end time must be later than start time")
	}

	if err := fields.Err(); err != nil {
		return Window{}, err
	}
	return Window{
		FromWeekday: time.Weekday(fromDay),
		ToWeekday:   time.Weekday(toDay),
		FromTime:    from,
		ToTime:      to,
	}, nil
}

// Wraps reports whether the weekday range crosses Saturday into Sunday.
func (w Window) Wraps() bool {
	return w.FromWeekday > w.ToWeekday
}

// IncludesWeekday reports whether d falls inside the weekday range.
func (w Window) IncludesWeekday(d time.Weekday) bool {
	if w.Wraps() {
		return d >= w.FromWeekday || d <= w.ToWeekday
	}
	return d >= w.FromWeekday && d <= w.ToWeekday
}

// Weekdays lists the days covered, starting at FromWeekday.
func (w Window) Weekdays() []time.Weekday {
	days := []time.Weekday{w.FromWeekday}
	for d := w.FromWeekday; d != w.ToWeekday; {
		d = (d + 1) % 7
		days = append(days, d)
	}
	return days
}

// IncludesTime reports whether t is inside [FromTime, ToTime).
func (w Window) IncludesTime(t LocalTime) bool {
	return !t.Before(w.FromTime) && t.Before(w.ToTime)
}

// DailyLength is the length of the window on each available day.
func (w Window) DailyLength() time.Duration {
	return w.ToTime.SinceMidnight() - w.FromTime.SinceMidnight()
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s %s-%s", w.FromWeekday, w.ToWeekday, w.FromTime, w.ToTime)
}

// ResolveLocation loads an IANA zone name, falling back when name is empty
// or unknown.
func ResolveLocation(name string, fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	if name == "" {
		return fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return loc
}

// DayBounds returns the start of t's local calendar day in loc and the start
// of the next one.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	d := t.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// ParseInstant accepts RFC 3339 timestamps, or a zone-less
// "2006-01-02T15:04:05" which is read as wall-clock time in loc.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected RFC 3339 or 2006-01-02T15:04:05", s)
	}
	return t, nil
}
