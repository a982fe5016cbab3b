package model

import (
	"fmt"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

// Weekday codes used in stored rules: 1=Sunday .. 7=Saturday.
const (
	WeekdaySunday    = 1
	WeekdayMonday    = 2
	WeekdayTuesday   = 3
	WeekdayWednesday = 4
	WeekdayThursday  = 5
	WeekdayFriday    = 6
	WeekdaySaturday  = 7
)

// RecurrenceRule is an immutable repeat pattern. DaysOfWeek is only
// meaningful for weekly rules; empty means "every Interval weeks on the
// anchor weekday".
type RecurrenceRule struct {
	Frequency  Frequency  `bson:"frequency" json:"frequency"`
	Interval   int        `bson:"interval" json:"interval"`
	DaysOfWeek []int      `bson:"days_of_week,omitempty" json:"days_of_week,omitempty"`
	EndDate    *time.Time `bson:"end_date,omitempty" json:"end_date,omitempty"`
}

// Preset constructors

func Daily() RecurrenceRule {
	return RecurrenceRule{Frequency: FrequencyDaily, Interval: 1}
}

func Weekly() RecurrenceRule {
	return RecurrenceRule{Frequency: FrequencyWeekly, Interval: 1}
}

func Biweekly() RecurrenceRule {
	return RecurrenceRule{Frequency: FrequencyWeekly, Interval: 2}
}

func Monthly() RecurrenceRule {
	return RecurrenceRule{Frequency: FrequencyMonthly, Interval: 1}
}

func Yearly() RecurrenceRule {
	return RecurrenceRule{Frequency: FrequencyYearly, Interval: 1}
}

func Weekdays() RecurrenceRule {
	return RecurrenceRule{
		Frequency: FrequencyWeekly,
		Interval:  1,
		DaysOfWeek: []int{
			WeekdayMonday, WeekdayTuesday, WeekdayWednesday,
			WeekdayThursday, WeekdayFriday,
		},
	}
}

func Weekends() RecurrenceRule {
	return RecurrenceRule{
		Frequency:  FrequencyWeekly,
		Interval:   1,
		DaysOfWeek: []int{WeekdaySunday, WeekdaySaturday},
	}
}

// Every builds a weekly rule firing on a single weekday.
func Every(day time.Weekday) RecurrenceRule {
	return RecurrenceRule{
		Frequency:  FrequencyWeekly,
		Interval:   1,
		DaysOfWeek: []int{WeekdayCode(day)},
	}
}

// WeekdayCode converts a time.Weekday (0=Sunday) to the stored 1..7 code.
func WeekdayCode(day time.Weekday) int {
	return int(day) + 1
}

func (r RecurrenceRule) interval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

func (r RecurrenceRule) containsWeekday(day time.Weekday) bool {
	code := WeekdayCode(day)
	for _, d := range r.DaysOfWeek {
		if d == code {
			return true
		}
	}
	return false
}

// NextOccurrence returns the next instant the rule fires strictly after the
// given one. It never fails; if the frequency is unknown it returns the
// input unchanged.
func (r RecurrenceRule) NextOccurrence(after time.Time) time.Time {
	switch r.Frequency {
	case FrequencyDaily:
		return after.AddDate(0, 0, r.interval())
	case FrequencyWeekly:
		if len(r.DaysOfWeek) > 0 {
			// Chronological scan; a non-empty set always hits within 7
			// days, the 14-day cap is defensive only.
			for i := 1; i <= 14; i++ {
				candidate := after.AddDate(0, 0, i)
				if r.containsWeekday(candidate.Weekday()) {
					return candidate
				}
			}
			return after.AddDate(0, 0, 14)
		}
		return after.AddDate(0, 0, 7*r.interval())
	case FrequencyMonthly:
		return addMonthsClamped(after, r.interval())
	case FrequencyYearly:
		return addMonthsClamped(after, 12*r.interval())
	}
	return after
}

// Equal reports structural equality. Day order matters only for display,
// not membership, so the sets compare order-insensitively.
func (r RecurrenceRule) Equal(other RecurrenceRule) bool {
	if r.Frequency != other.Frequency || r.interval() != other.interval() {
		return false
	}
	if len(r.DaysOfWeek) != len(other.DaysOfWeek) {
		return false
	}
	for _, d := range r.DaysOfWeek {
		found := false
		for _, o := range other.DaysOfWeek {
			if d == o {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if (r.EndDate == nil) != (other.EndDate == nil) {
		return false
	}
	if r.EndDate != nil && !r.EndDate.Equal(*other.EndDate) {
		return false
	}
	return true
}

// DisplayName derives the human-readable label for a rule.
func (r RecurrenceRule) DisplayName() string {
	if r.Frequency == FrequencyWeekly && len(r.DaysOfWeek) > 0 {
		if r.Equal(Weekdays()) {
			return "Weekdays"
		}
		if r.Equal(Weekends()) {
			return "Weekends"
		}
		if len(r.DaysOfWeek) == 1 {
			return "Every " + weekdayName(r.DaysOfWeek[0])
		}
	}

	n := r.interval()
	switch r.Frequency {
	case FrequencyDaily:
		if n == 1 {
			return "Daily"
		}
		return fmt.Sprintf("Every %d days", n)
	case FrequencyWeekly:
		if n == 1 {
			return "Weekly"
		}
		return fmt.Sprintf("Every %d weeks", n)
	case FrequencyMonthly:
		if n == 1 {
			return "Monthly"
		}
		return fmt.Sprintf("Every %d months", n)
	case FrequencyYearly:
		if n == 1 {
			return "Yearly"
		}
		return fmt.Sprintf("Every %d years", n)
	}
	return ""
}

func weekdayName(code int) string {
	if code < WeekdaySunday || code > WeekdaySaturday {
		return ""
	}
	return time.Weekday(code - 1).String()
}

// addMonthsClamped shifts by whole months, clamping the day-of-month to the
// last valid day of the target month (Jan 31 + 1 month = end of February).
// time.AddDate would normalize the overflow into March instead.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	shifted := first.AddDate(0, months, 0)

	last := daysInMonth(shifted.Year(), shifted.Month())
	if day > last {
		day = last
	}
	return time.Date(shifted.Year(), shifted.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
