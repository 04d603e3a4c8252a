package storage

import (
	"context"
	"testing"

	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
	"github.com/matryer/is"
)

func TestReadReturnsNotFoundForUnknownKey(t *testing.T) {
	is, s := testSetup(t)

	_, err := s.store.Read(context.Background(), "no-such-key")
	is.Equal(err, ErrNotFound)
}

func TestLoadAlarmsOnEmptyStoreReturnsEmptySlice(t *testing.T) {
	is, s := testSetup(t)

	alarms, err := s.LoadAlarms(context.Background())
	is.NoErr(err)
	is.Equal(len(alarms), 0)
}

func TestAddAndGetAlarm(t *testing.T) {
	is, s := testSetup(t)
	ctx := context.Background()

	err := s.AddAlarm(ctx, testAlarm("alarm-01"))
	is.NoErr(err)

	alarm, err := s.GetAlarm(ctx, "alarm-01")
	is.NoErr(err)
	is.Equal(alarm.Time, "07:00")
	is.Equal(alarm.Station.Name, "Radio Paradise")
}

func TestUpdateAlarmReplacesExisting(t *testing.T) {
	is, s := testSetup(t)
	ctx := context.Background()

	err := s.AddAlarm(ctx, testAlarm("alarm-01"))
	is.NoErr(err)

	updated := testAlarm("alarm-01")
	updated.Time = "08:30"
	is.NoErr(s.UpdateAlarm(ctx, updated))

	alarm, err := s.GetAlarm(ctx, "alarm-01")
	is.NoErr(err)
	is.Equal(alarm.Time, "08:30")

	alarms, err := s.LoadAlarms(ctx)
	is.NoErr(err)
	is.Equal(len(alarms), 1)
}

func TestUpdateUnknownAlarmFails(t *testing.T) {
	is, s := testSetup(t)

	err := s.UpdateAlarm(context.Background(), testAlarm("alarm-99"))
	is.Equal(err, ErrAlarmNotFound)
}

func TestDeleteAlarm(t *testing.T) {
	is, s := testSetup(t)
	ctx := context.Background()

	is.NoErr(s.AddAlarm(ctx, testAlarm("alarm-01")))
	is.NoErr(s.AddAlarm(ctx, testAlarm("alarm-02")))

	is.NoErr(s.DeleteAlarm(ctx, "alarm-01"))

	_, err := s.GetAlarm(ctx, "alarm-01")
	is.Equal(err, ErrAlarmNotFound)

	alarms, err := s.LoadAlarms(ctx)
	is.NoErr(err)
	is.Equal(len(alarms), 1)
}

func TestTriggerRegistryRoundTrip(t *testing.T) {
	is, s := testSetup(t)
	ctx := context.Background()

	records := []types.TriggerRecord{
		{ID: "alarm-01-1", AlarmID: "alarm-01", Handle: "h1", Mechanism: types.MechanismExact},
		{ID: "alarm-01-2", AlarmID: "alarm-01", Handle: "h2", Mechanism: types.MechanismExact},
	}

	is.NoErr(s.AddTriggers(ctx, records))

	record, err := s.GetTrigger(ctx, "alarm-01-2")
	is.NoErr(err)
	is.Equal(record.Handle, "h2")

	is.NoErr(s.RemoveTriggers(ctx, []string{"alarm-01-1"}))

	registry, err := s.LoadTriggers(ctx)
	is.NoErr(err)
	is.Equal(len(registry), 1)
}

func testSetup(t *testing.T) (*is.I, *AlarmStorage) {
	is := is.New(t)

	store, err := New(NewSQLiteConnector(""))
	is.NoErr(err)

	return is, NewAlarmStorage(store)
}

func testAlarm(id string) types.Alarm {
	return types.Alarm{
		ID:   id,
		Time: "07:00",
		Station: types.RadioStation{
			ID:        "9",
			Name:      "Radio Paradise",
			StreamURL: "https://stream.radioparadise.com/aac-320",
		},
		IsActive: true,
	}
}
