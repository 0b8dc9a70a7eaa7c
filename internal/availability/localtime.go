// Package availability models a doctor's weekly recurring availability and
// decides whether a proposed appointment fits into it.
//
// Times of day are zone-naive LocalTime values. A zone is attached only when
// a window is displayed or checked against an instant, using the clinic's
// configured location.
package availability

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jwalitptl/clinic-api/pkg/validator"
)

// Layout is the canonical wire and storage format of a LocalTime.
const Layout = "15:04:05"

var localTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9]):([0-5][0-9])$`)

// LocalTime is a wall-clock time of day with second precision and no zone.
type LocalTime struct {
	sec int
}

// NewLocalTime builds a LocalTime, panicking on out of range components.
func NewLocalTime(hour, min, sec int) LocalTime {
	if hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 {
		panic(fmt.Sprintf("availability: invalid time of day %02d:%02d:%02d", hour, min, sec))
	}
	return LocalTime{sec: hour*3600 + min*60 + sec}
}

// ParseLocalTime accepts exactly HH:mm:ss, 24-hour and zero padded.
func ParseLocalTime(s string) (LocalTime, error) {
	m := localTimePattern.FindStringSubmatch(s)
	if m == nil {
		return LocalTime{}, fmt.Errorf("invalid time of day %q: expected HH:mm:ss", s)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	se, _ := strconv.Atoi(m[3])
	return NewLocalTime(h, mi, se), nil
}

// IsLocalTime reports whether s is a well-formed HH:mm:ss value.
func IsLocalTime(s string) bool {
	return localTimePattern.MatchString(s)
}

// TimeOfDayRule registers the "timeofday" tag used by request payloads.
func TimeOfDayRule() validator.Option {
	return validator.WithRule("timeofday", "time must use the HH:mm:ss format", IsLocalTime)
}

// LocalTimeOf returns the time of day of t in t's own location.
func LocalTimeOf(t time.Time) LocalTime {
	h, m, s := t.Clock()
	return LocalTime{sec: h*3600 + m*60 + s}
}

func (t LocalTime) Hour() int   { return t.sec / 3600 }
func (t LocalTime) Minute() int { return t.sec % 3600 / 60 }
func (t LocalTime) Second() int { return t.sec % 60 }

// SinceMidnight is the offset of t from the start of the day.
func (t LocalTime) SinceMidnight() time.Duration {
	return time.Duration(t.sec) * time.Second
}

func (t LocalTime) Before(u LocalTime) bool { return t.sec < u.sec }
func (t LocalTime) After(u LocalTime) bool  { return t.sec > u.sec }

func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// Short renders HH:mm for display.
func (t LocalTime) Short() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On attaches t to the calendar date of day, interpreted in loc.
func (t LocalTime) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to parse time of day: %w", err)
	}
	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the literal HH:mm:ss text into a Postgres time column.
func (t LocalTime) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan reads a Postgres time column. lib/pq hands time columns over as a
// time.Time on 0000-01-01; other drivers use text.
func (t *LocalTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = LocalTimeOf(v)
		return nil
	case []byte:
		return t.scanText(string(v))
	case string:
		return t.scanText(v)
	case nil:
		return fmt.Errorf("cannot scan NULL into LocalTime")
	default:
		return fmt.Errorf("cannot scan %T into LocalTime", src)
	}
}

func (t *LocalTime) scanText(s string) error {
	// Postgres may append fractional seconds.
	if len(s) > len(Layout) {
		s = s[:len(Layout)]
	}
	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
