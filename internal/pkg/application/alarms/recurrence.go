package alarms

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses a wall clock "HH:MM" string.
func ParseClock(clock string) (hour, minute int, err error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q", clock)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in clock time %q", clock)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in clock time %q", clock)
	}

	return hour, minute, nil
}

// NextFireInstant computes the next instant an alarm at hour:minute
// should fire, given the set of active weekdays (0=Sunday). An empty
// set means one-shot semantics: today if the time is still ahead,
// otherwise tomorrow. All calculations are wall clock local, no time
// zone conversion is performed.
func NextFireInstant(hour, minute int, repeatDays []int, now time.Time) time.Time {
	candidate := atClock(now, hour, minute)

	if len(repeatDays) == 0 {
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate
	}

	active := map[int]bool{}
	for _, d := range repeatDays {
		active[d] = true
	}

	today := int(now.Weekday())

	for offset := 0; offset < 7; offset++ {
		day := (today + offset) % 7
		if !active[day] {
			continue
		}
		if offset == 0 && !candidate.After(now) {
			// Today, but the time already passed.
			continue
		}
		return candidate.AddDate(0, 0, offset)
	}

	// Unreachable for a non-empty set, but guard against it anyway:
	// the earliest active weekday, a full week out.
	earliest := 7
	for d := range active {
		if d < earliest {
			earliest = d
		}
	}

	offset := (earliest-today+7)%7 + 7

	return candidate.AddDate(0, 0, offset)
}

// daysUntilWeekday returns how many days ahead the first occurrence of
// weekday at hour:minute lies. 0 only when that is today and the time
// is still ahead of now.
func daysUntilWeekday(weekday, hour, minute int, now time.Time) int {
	today := int(now.Weekday())

	if weekday == today {
		if atClock(now, hour, minute).After(now) {
			return 0
		}
		return 7
	}

	if weekday > today {
		return weekday - today
	}

	return 7 - today + weekday
}

// TimeUntil renders the delay until target in coarse human buckets:
// minutes below one hour, hours and minutes below a day, the weekday
// name within a week, a day count beyond that.
func TimeUntil(target, now time.Time) string {
	d := target.Sub(now)

	switch {
	case d < time.Hour:
		minutes := int(d.Minutes())
		if minutes <= 1 {
			return "in 1 minute"
		}
		return fmt.Sprintf("in %d minutes", minutes)

	case d < 24*time.Hour:
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		return fmt.Sprintf("in %dh %dm", hours, minutes)

	case d < 7*24*time.Hour:
		return fmt.Sprintf("on %s", target.Weekday().String())

	default:
		days := int(d.Hours() / 24)
		return fmt.Sprintf("in %d days", days)
	}
}

func atClock(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}
