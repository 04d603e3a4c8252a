package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
)

const (
	alarmsKey   = "radio-alarm/alarms"
	triggersKey = "radio-alarm/triggers"
)

var ErrAlarmNotFound = fmt.Errorf("alarm not found")

// AlarmStorage persists the alarm collection and the trigger record
// registry, each as one serialized document under a fixed key.
type AlarmStorage struct {
	store *Store
}

func NewAlarmStorage(store *Store) *AlarmStorage {
	return &AlarmStorage{store: store}
}

func (a *AlarmStorage) LoadAlarms(ctx context.Context) ([]types.Alarm, error) {
	b, err := a.store.Read(ctx, alarmsKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []types.Alarm{}, nil
		}
		return nil, err
	}

	var alarms []types.Alarm
	err = json.Unmarshal(b, &alarms)
	if err != nil {
		return nil, err
	}

	return alarms, nil
}

func (a *AlarmStorage) SaveAlarms(ctx context.Context, alarms []types.Alarm) error {
	b, err := json.Marshal(alarms)
	if err != nil {
		return err
	}

	return a.store.Write(ctx, alarmsKey, b)
}

func (a *AlarmStorage) GetAlarm(ctx context.Context, alarmID string) (types.Alarm, error) {
	alarms, err := a.LoadAlarms(ctx)
	if err != nil {
		return types.Alarm{}, err
	}

	for _, alarm := range alarms {
		if alarm.ID == alarmID {
			return alarm, nil
		}
	}

	return types.Alarm{}, ErrAlarmNotFound
}

func (a *AlarmStorage) AddAlarm(ctx context.Context, alarm types.Alarm) error {
	alarms, err := a.LoadAlarms(ctx)
	if err != nil {
		return err
	}

	return a.SaveAlarms(ctx, append(alarms, alarm))
}

func (a *AlarmStorage) UpdateAlarm(ctx context.Context, alarm types.Alarm) error {
	alarms, err := a.LoadAlarms(ctx)
	if err != nil {
		return err
	}

	for i := range alarms {
		if alarms[i].ID == alarm.ID {
			alarms[i] = alarm
			return a.SaveAlarms(ctx, alarms)
		}
	}

	return ErrAlarmNotFound
}

func (a *AlarmStorage) DeleteAlarm(ctx context.Context, alarmID string) error {
	alarms, err := a.LoadAlarms(ctx)
	if err != nil {
		return err
	}

	kept := make([]types.Alarm, 0, len(alarms))
	for _, alarm := range alarms {
		if alarm.ID != alarmID {
			kept = append(kept, alarm)
		}
	}

	if len(kept) == len(alarms) {
		return ErrAlarmNotFound
	}

	return a.SaveAlarms(ctx, kept)
}

// Trigger registry operations. Records are kept in a map keyed by
// record id so that a lookup during cancellation is cheap.

func (a *AlarmStorage) LoadTriggers(ctx context.Context) (map[string]types.TriggerRecord, error) {
	b, err := a.store.Read(ctx, triggersKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return map[string]types.TriggerRecord{}, nil
		}
		return nil, err
	}

	var records map[string]types.TriggerRecord
	err = json.Unmarshal(b, &records)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *AlarmStorage) saveTriggers(ctx context.Context, records map[string]types.TriggerRecord) error {
	b, err := json.Marshal(records)
	if err != nil {
		return err
	}

	return a.store.Write(ctx, triggersKey, b)
}

func (a *AlarmStorage) AddTriggers(ctx context.Context, records []types.TriggerRecord) error {
	registry, err := a.LoadTriggers(ctx)
	if err != nil {
		return err
	}

	for _, r := range records {
		registry[r.ID] = r
	}

	return a.saveTriggers(ctx, registry)
}

func (a *AlarmStorage) RemoveTriggers(ctx context.Context, recordIDs []string) error {
	registry, err := a.LoadTriggers(ctx)
	if err != nil {
		return err
	}

	for _, id := range recordIDs {
		delete(registry, id)
	}

	return a.saveTriggers(ctx, registry)
}

func (a *AlarmStorage) GetTrigger(ctx context.Context, recordID string) (types.TriggerRecord, error) {
	registry, err := a.LoadTriggers(ctx)
	if err != nil {
		return types.TriggerRecord{}, err
	}

	record, ok := registry[recordID]
	if !ok {
		return types.TriggerRecord{}, ErrNotFound
	}

	return record, nil
}
