package alarms

import (
	"fmt"
	"sort"
	"time"

	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
)

// scheduleWeeks is the rolling window of pre-scheduled firings per
// active weekday. The platform cannot natively repeat weekly, so each
// weekday gets this many one-shot registrations, replenished by the
// watchdog and on every edit.
const scheduleWeeks = 4

// Materialize expands an alarm into the concrete set of trigger records
// that cover its schedule from now on. Records are unregistered: they
// carry no identity or platform handle yet, both are assigned when the
// selected mechanism registers them. The expansion itself is
// deterministic, the same (alarm, now) pair always yields the same
// fire instants and payloads.
func Materialize(alarm types.Alarm, now time.Time) ([]types.TriggerRecord, error) {
	hour, minute, err := ParseClock(alarm.Time)
	if err != nil {
		return nil, fmt.Errorf("alarm %s: %w", alarm.ID, err)
	}

	if !alarm.IsRepeating() {
		fireAt := NextFireInstant(hour, minute, nil, now)
		return []types.TriggerRecord{newRecord(alarm, fireAt)}, nil
	}

	days := append([]int{}, alarm.RepeatDays...)
	sort.Ints(days)

	records := make([]types.TriggerRecord, 0, len(days)*scheduleWeeks)

	for _, day := range days {
		first := atClock(now, hour, minute).AddDate(0, 0, daysUntilWeekday(day, hour, minute, now))

		for week := 0; week < scheduleWeeks; week++ {
			records = append(records, newRecord(alarm, first.AddDate(0, 0, week*7)))
		}
	}

	return records, nil
}

func newRecord(alarm types.Alarm, fireAt time.Time) types.TriggerRecord {
	return types.TriggerRecord{
		AlarmID: alarm.ID,
		FireAt:  fireAt,
		Payload: types.TriggerPayload{
			AlarmID:     alarm.ID,
			StationURL:  alarm.Station.StreamURL,
			StationName: alarm.Station.Name,
			Vibrate:     alarm.Vibrate,
			FireAt:      fireAt.UnixMilli(),
		},
	}
}
