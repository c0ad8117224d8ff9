package domain

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for slots and exams.
const DateLayout = "2006-01-02"

// ErrInvalidTimeOfDay is returned for anything that is not a zero-padded 24-hour HH:mm.
var ErrInvalidTimeOfDay = errors.New("time must be in HH:mm 24-hour format")

// ErrInvalidDate is returned for anything that is not a YYYY-MM-DD calendar date.
var ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")

// TimeOfDay is minutes since midnight. Comparing two values compares wall-clock order.
type TimeOfDay int

// ParseTimeOfDay accepts exactly "HH:mm" with 00 <= HH <= 23 and 00 <= mm <= 59.
// "9:00" and "24:00" are rejected so stored strings always sort like the times they name.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidTimeOfDay
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidTimeOfDay
		}
	}
	hours := int(s[0]-'0')*10 + int(s[1]-'0')
	minutes := int(s[3]-'0')*10 + int(s[4]-'0')
	if hours > 23 || minutes > 59 {
		return 0, ErrInvalidTimeOfDay
	}
	return TimeOfDay(hours*60 + minutes), nil
}

// String formats the value as zero-padded HH:mm.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Interval is a half-open [Start, End) range within one day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// ParseInterval parses both ends and requires start < end.
func ParseInterval(start, end string) (Interval, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Interval{}, fmt.Errorf("startTime: %w", err)
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Interval{}, fmt.Errorf("endTime: %w", err)
	}
	return Interval{Start: s, End: e}, nil
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.Start < i.End
}

// Overlaps reports whether two half-open intervals share any instant.
// Touching endpoints do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i.Start, i.End, other.Start, other.End)
}

// Overlaps reports whether [s1,e1) and [s2,e2) intersect.
func Overlaps(s1, e1, s2, e2 TimeOfDay) bool {
	return s1 < e2 && s2 < e1
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Clock supplies the current time. Services take one so tests can pin it.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct{ T time.Time }

// Now implements Clock.
func (c FixedClock) Now() time.Time { return c.T }
