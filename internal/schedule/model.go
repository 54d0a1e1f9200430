package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRuleNotFound  = errors.New("schedule rule not found")
	ErrBlockNotFound = errors.New("time block not found")
	ErrInvalidRule   = errors.New("invalid schedule rule")
	ErrInvalidBlock  = errors.New("invalid time block")
	ErrInvalidDate   = errors.New("date must be formatted as YYYY-MM-DD")
)

// TimeOfDay is a wall clock time expressed in minutes after midnight.
type TimeOfDay int

// ParseTimeOfDay accepts "HH:mm" and "HH:mm:ss" (seconds are dropped).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On returns the instant this wall clock time falls on for the given day.
func (t TimeOfDay) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, t.Hour(), t.Minute(), 0, 0, loc)
}

// Rule is a recurring weekly availability window.
type Rule struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	Weekday        time.Weekday // Sunday = 0
	StartTime      TimeOfDay
	EndTime        TimeOfDay
	SlotMinutes    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Block is a one-off unavailability window.
type Block struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	Start          time.Time
	End            time.Time
	Reason         *string
	AllDay         bool
	CreatedAt      time.Time
}

// Covers reports whether t falls inside [Start, End).
func (b Block) Covers(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// DayBounds returns midnight of the calendar day of date and midnight of the
// next day, both in loc. The calendar fields of date are used as given.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// AllDayBounds normalizes an all-day block to [00:00:00, 23:59:59] of the day.
func AllDayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), time.Date(y, m, d, 23, 59, 59, 0, loc)
}
