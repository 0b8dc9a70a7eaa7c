package availability

import (
	"strings"
	"time"
)

// Boundary is one end of a window rendered for display.
type Boundary struct {
	Weekday time.Weekday `json:"weekday"`
	Day     string       `json:"day"`
	Time    string       `json:"time"`
	At      time.Time    `json:"at"`
}

// Display is the read-path rendition of a window in a concrete zone.
type Display struct {
	From     Boundary `json:"from"`
	To       Boundary `json:"to"`
	Timezone string   `json:"timezone"`
}

var dayNames = map[string][7]string{
	"en": {"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	"pt-BR": {"domingo", "segunda-feira", "terça-feira", "quarta-feira",
		"quinta-feira", "sexta-feira", "sábado"},
}

// DayName returns the weekday name for locale, falling back to English.
func DayName(d time.Weekday, locale string) string {
	names, ok := dayNames[locale]
	if !ok {
		names, ok = dayNames[strings.SplitN(locale, "-", 2)[0]]
	}
	if !ok {
		names = dayNames["en"]
	}
	return names[d]
}

// Describe attaches the window to concrete dates in loc: the "from" boundary
// is the next occurrence of FromWeekday on or after now, and the "to"
// boundary the next occurrence of ToWeekday on or after that date.
func Describe(w Window, now time.Time, loc *time.Location, locale string) Display {
	if loc == nil {
		loc = time.UTC
	}
	fromDate := nextWeekday(now.In(loc), w.FromWeekday)
	toDate := nextWeekday(fromDate, w.ToWeekday)

	return Display{
		From: Boundary{
			Weekday: w.FromWeekday,
			Day:     DayName(w.FromWeekday, locale),
			Time:    w.FromTime.Short(),
			At:      w.FromTime.On(fromDate, loc),
		},
		To: Boundary{
			Weekday: w.ToWeekday,
			Day:     DayName(w.ToWeekday, locale),
			Time:    w.ToTime.Short(),
			At:      w.ToTime.On(toDate, loc),
		},
		Timezone: loc.String(),
	}
}

func nextWeekday(from time.Time, d time.Weekday) time.Time {
	delta := (int(d) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, delta)
}
