package alarms

import (
	"testing"
	"time"

	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
	"github.com/matryer/is"
)

func TestMaterializeOneShot(t *testing.T) {
	is := is.New(t)

	alarm := repeatingAlarm(nil)
	now := monday.Add(8 * time.Hour)

	records, err := Materialize(alarm, now)
	is.NoErr(err)
	is.Equal(len(records), 1)
	is.Equal(records[0].FireAt, monday.AddDate(0, 0, 1).Add(7*time.Hour))
}

func TestMaterializeRepeatingCoversFourWeeksPerDay(t *testing.T) {
	is := is.New(t)

	alarm := repeatingAlarm([]int{1, 3, 5})
	now := monday.Add(8 * time.Hour)

	records, err := Materialize(alarm, now)
	is.NoErr(err)
	is.Equal(len(records), 12) // 3 days x 4 weeks

	// Records for the same weekday are spaced exactly 7 days apart.
	byDay := map[time.Weekday][]types.TriggerRecord{}
	for _, r := range records {
		byDay[r.FireAt.Weekday()] = append(byDay[r.FireAt.Weekday()], r)
	}

	is.Equal(len(byDay), 3)

	for _, dayRecords := range byDay {
		is.Equal(len(dayRecords), 4)
		for i := 1; i < len(dayRecords); i++ {
			is.Equal(dayRecords[i].FireAt.Sub(dayRecords[i-1].FireAt), 7*24*time.Hour)
		}
	}
}

func TestMaterializeTodayPassedStartsNextWeek(t *testing.T) {
	is := is.New(t)

	alarm := repeatingAlarm([]int{1}) // Mondays only
	now := monday.Add(8 * time.Hour)  // Monday 08:00, alarm time 07:00

	records, err := Materialize(alarm, now)
	is.NoErr(err)
	is.Equal(len(records), 4)
	is.Equal(records[0].FireAt, monday.AddDate(0, 0, 7).Add(7*time.Hour))
}

func TestMaterializeIsIdempotent(t *testing.T) {
	is := is.New(t)

	alarm := repeatingAlarm([]int{2, 4})
	now := monday.Add(3 * time.Hour)

	first, err := Materialize(alarm, now)
	is.NoErr(err)
	second, err := Materialize(alarm, now)
	is.NoErr(err)

	is.Equal(len(first), len(second))
	for i := range first {
		is.Equal(first[i].FireAt, second[i].FireAt)
		is.Equal(first[i].Payload, second[i].Payload)
	}
}

func TestMaterializedPayloadIsSelfSufficient(t *testing.T) {
	is := is.New(t)

	alarm := repeatingAlarm([]int{6})
	alarm.Vibrate = true

	records, err := Materialize(alarm, monday)
	is.NoErr(err)

	for _, r := range records {
		is.Equal(r.Payload.AlarmID, alarm.ID)
		is.Equal(r.Payload.StationURL, alarm.Station.StreamURL)
		is.Equal(r.Payload.StationName, alarm.Station.Name)
		is.Equal(r.Payload.Vibrate, true)
		is.Equal(r.Payload.FireAt, r.FireAt.UnixMilli())
	}
}

func TestMaterializeRejectsBadClockTime(t *testing.T) {
	is := is.New(t)

	alarm := repeatingAlarm(nil)
	alarm.Time = "25:99"

	_, err := Materialize(alarm, monday)
	is.True(err != nil)
}

func repeatingAlarm(days []int) types.Alarm {
	return types.Alarm{
		ID:   "alarm-01",
		Time: "07:00",
		Station: types.RadioStation{
			ID:        "5",
			Name:      "France Inter",
			StreamURL: "https://icecast.radiofrance.fr/franceinter-midfi.mp3",
		},
		RepeatDays: days,
		IsActive:   true,
	}
}
