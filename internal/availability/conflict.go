package availability

import (
	"time"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Rejection reasons returned in a Decision.
const (
	ReasonDayUnavailable = "doctor does not attend on this weekday"
	ReasonOutsideHours   = "time is outside the doctor's working hours"
	ReasonRunsPastHours  = "appointment would end after the doctor's working hours"
	ReasonSlotTaken      = apperrors.MsgSlotTaken
)

// Interval is a half-open span [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether a and b share any instant. Touching intervals do
// not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Decision is the outcome of a bookability check.
type Decision struct {
	Bookable bool   `json:"bookable"`
	Reason   string `json:"reason,omitempty"`
}

func reject(reason string) Decision {
	return Decision{Reason: reason}
}

// Check decides whether an appointment starting at start and lasting d fits
// into w, evaluated in loc, without colliding with any of booked.
//
// The start must fall on a covered weekday with its time of day inside
// [FromTime, ToTime), and the appointment must end no later than ToTime on
// the same day.
func Check(w Window, loc *time.Location, start time.Time, d time.Duration, booked []Interval) Decision {
	if loc == nil {
		loc = time.UTC
	}
	local := start.In(loc)

	if !w.IncludesWeekday(local.Weekday()) {
		return reject(ReasonDayUnavailable)
	}
	tod := LocalTimeOf(local)
	if !w.IncludesTime(tod) {
		return reject(ReasonOutsideHours)
	}
	if tod.SinceMidnight()+d > w.ToTime.SinceMidnight() {
		return reject(ReasonRunsPastHours)
	}

	slot := Interval{Start: start, End: start.Add(d)}
	for _, b := range booked {
		if slot.Overlaps(b) {
			return reject(ReasonSlotTaken)
		}
	}
	return Decision{Bookable: true}
}
