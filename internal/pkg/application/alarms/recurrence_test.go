package alarms

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

// Monday, January 6th 2025.
var monday = time.Date(2025, time.January, 6, 0, 0, 0, 0, time.Local)

func TestParseClock(t *testing.T) {
	is := is.New(t)

	h, m, err := ParseClock("07:30")
	is.NoErr(err)
	is.Equal(h, 7)
	is.Equal(m, 30)

	for _, bad := range []string{"", "7", "24:00", "12:60", "ab:cd", "12:34:56"} {
		_, _, err := ParseClock(bad)
		is.True(err != nil)
	}
}

func TestOneShotFiresWithin24Hours(t *testing.T) {
	is := is.New(t)

	for hour := 0; hour < 24; hour++ {
		for _, minute := range []int{0, 29, 59} {
			now := monday.Add(9*time.Hour + 41*time.Minute)
			next := NextFireInstant(hour, minute, nil, now)

			is.True(next.After(now))
			is.True(!next.After(now.Add(24 * time.Hour)))
		}
	}
}

func TestOneShotPassedTimeRollsToTomorrow(t *testing.T) {
	is := is.New(t)

	now := monday.Add(8 * time.Hour) // Monday 08:00
	next := NextFireInstant(7, 0, nil, now)

	is.Equal(next, monday.AddDate(0, 0, 1).Add(7*time.Hour)) // Tuesday 07:00
}

func TestOneShotFutureTimeFiresToday(t *testing.T) {
	is := is.New(t)

	now := monday.Add(6 * time.Hour) // Monday 06:00
	next := NextFireInstant(7, 0, nil, now)

	is.Equal(next, monday.Add(7*time.Hour))
}

func TestRepeatingTodayStillAhead(t *testing.T) {
	is := is.New(t)

	now := monday.Add(6 * time.Hour) // Monday 06:00
	next := NextFireInstant(7, 0, []int{1}, now)

	is.Equal(next, monday.Add(7*time.Hour)) // today 07:00
}

func TestRepeatingTodayAlreadyPassed(t *testing.T) {
	is := is.New(t)

	now := monday.Add(8 * time.Hour) // Monday 08:00
	next := NextFireInstant(7, 0, []int{1}, now)

	is.Equal(next, monday.AddDate(0, 0, 7).Add(7*time.Hour)) // next Monday 07:00
}

func TestRepeatingPicksEarliestActiveDay(t *testing.T) {
	is := is.New(t)

	// Monday 12:00, alarm on Wednesday and Friday.
	now := monday.Add(12 * time.Hour)
	next := NextFireInstant(9, 15, []int{3, 5}, now)

	is.Equal(next.Weekday(), time.Wednesday)
	is.Equal(next, monday.AddDate(0, 0, 2).Add(9*time.Hour+15*time.Minute))
}

func TestRepeatingFallsOnAnActiveDay(t *testing.T) {
	is := is.New(t)

	days := []int{0, 2, 6}
	active := map[time.Weekday]bool{time.Sunday: true, time.Tuesday: true, time.Saturday: true}

	for offset := 0; offset < 7; offset++ {
		now := monday.AddDate(0, 0, offset).Add(13 * time.Hour)
		next := NextFireInstant(6, 30, days, now)

		is.True(next.After(now))
		is.True(active[next.Weekday()])
	}
}

func TestTimeUntilBuckets(t *testing.T) {
	is := is.New(t)

	now := monday.Add(12 * time.Hour)

	is.Equal(TimeUntil(now.Add(45*time.Second), now), "in 1 minute")
	is.Equal(TimeUntil(now.Add(30*time.Minute), now), "in 30 minutes")
	is.Equal(TimeUntil(now.Add(5*time.Hour+20*time.Minute), now), "in 5h 20m")
	is.Equal(TimeUntil(now.Add(3*24*time.Hour), now), "on Thursday")
	is.Equal(TimeUntil(now.Add(10*24*time.Hour), now), "in 10 days")
}
