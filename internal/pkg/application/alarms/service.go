package alarms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/infrastructure/logging"
	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
)

var (
	ErrAlarmNotFound = fmt.Errorf("alarm not found")
	ErrInvalidAlarm  = fmt.Errorf("invalid alarm")
)

// snoozeDelay is how far out a snoozed alarm rings again.
const snoozeDelay = 10 * time.Minute

type AlarmService interface {
	Get(ctx context.Context) ([]types.Alarm, error)
	GetByID(ctx context.Context, alarmID string) (types.Alarm, error)
	Create(ctx context.Context, alarm types.Alarm) (types.Alarm, error)
	Update(ctx context.Context, alarm types.Alarm) (types.Alarm, error)
	Toggle(ctx context.Context, alarmID string) (types.Alarm, error)
	Delete(ctx context.Context, alarmID string) error

	Snooze(ctx context.Context, payload types.TriggerPayload) (types.TriggerRecord, error)
	Replenish(ctx context.Context) error

	Stations() []types.RadioStation
}

type AlarmStorage interface {
	LoadAlarms(ctx context.Context) ([]types.Alarm, error)
	GetAlarm(ctx context.Context, alarmID string) (types.Alarm, error)
	AddAlarm(ctx context.Context, alarm types.Alarm) error
	UpdateAlarm(ctx context.Context, alarm types.Alarm) error
	DeleteAlarm(ctx context.Context, alarmID string) error

	AddTriggers(ctx context.Context, records []types.TriggerRecord) error
	RemoveTriggers(ctx context.Context, recordIDs []string) error
	GetTrigger(ctx context.Context, recordID string) (types.TriggerRecord, error)
}

type svc struct {
	storage  AlarmStorage
	selector *MechanismSelector
	stations []types.RadioStation

	now func() time.Time
}

func New(storage AlarmStorage, selector *MechanismSelector, stations []types.RadioStation) AlarmService {
	return &svc{
		storage:  storage,
		selector: selector,
		stations: stations,
		now:      time.Now,
	}
}

func (s *svc) Get(ctx context.Context) ([]types.Alarm, error) {
	return s.storage.LoadAlarms(ctx)
}

func (s *svc) GetByID(ctx context.Context, alarmID string) (types.Alarm, error) {
	alarm, err := s.storage.GetAlarm(ctx, alarmID)
	if err != nil {
		return types.Alarm{}, ErrAlarmNotFound
	}

	return alarm, nil
}

func (s *svc) Stations() []types.RadioStation {
	return s.stations
}

func (s *svc) Create(ctx context.Context, alarm types.Alarm) (types.Alarm, error) {
	if alarm.ID == "" {
		alarm.ID = uuid.NewString()
	}
	alarm.TriggerIDs = nil

	if err := validateAlarm(alarm); err != nil {
		return types.Alarm{}, err
	}

	err := s.storage.AddAlarm(ctx, alarm)
	if err != nil {
		return types.Alarm{}, err
	}

	if !alarm.IsActive {
		return alarm, nil
	}

	return s.schedule(ctx, alarm)
}

func (s *svc) Update(ctx context.Context, alarm types.Alarm) (types.Alarm, error) {
	// A rejected update must leave the previous version fully armed, so
	// validation comes before any trigger is touched.
	if err := validateAlarm(alarm); err != nil {
		return types.Alarm{}, err
	}

	previous, err := s.storage.GetAlarm(ctx, alarm.ID)
	if err != nil {
		return types.Alarm{}, ErrAlarmNotFound
	}

	// Stale triggers must be gone, or at least attempted gone, before
	// any new ones are registered. Otherwise both generations could
	// ring for the same alarm.
	s.cancelTriggers(ctx, previous)

	alarm.TriggerIDs = nil
	err = s.storage.UpdateAlarm(ctx, alarm)
	if err != nil {
		return types.Alarm{}, err
	}

	if !alarm.IsActive {
		return alarm, nil
	}

	return s.schedule(ctx, alarm)
}

func (s *svc) Toggle(ctx context.Context, alarmID string) (types.Alarm, error) {
	alarm, err := s.storage.GetAlarm(ctx, alarmID)
	if err != nil {
		return types.Alarm{}, ErrAlarmNotFound
	}

	if alarm.IsActive {
		s.cancelTriggers(ctx, alarm)

		alarm.IsActive = false
		alarm.TriggerIDs = nil

		return alarm, s.storage.UpdateAlarm(ctx, alarm)
	}

	// Reactivation always derives a fresh trigger set. Whatever ids the
	// alarm carried before it was switched off are dead by definition.
	alarm.IsActive = true
	alarm.TriggerIDs = nil

	err = s.storage.UpdateAlarm(ctx, alarm)
	if err != nil {
		return types.Alarm{}, err
	}

	return s.schedule(ctx, alarm)
}

func (s *svc) Delete(ctx context.Context, alarmID string) error {
	alarm, err := s.storage.GetAlarm(ctx, alarmID)
	if err != nil {
		return ErrAlarmNotFound
	}

	s.cancelTriggers(ctx, alarm)

	return s.storage.DeleteAlarm(ctx, alarmID)
}

// Snooze registers exactly one one-shot trigger carrying the same
// payload, ten minutes out.
func (s *svc) Snooze(ctx context.Context, payload types.TriggerPayload) (types.TriggerRecord, error) {
	fireAt := s.now().Add(snoozeDelay)
	payload.FireAt = fireAt.UnixMilli()

	record := types.TriggerRecord{
		AlarmID: payload.AlarmID,
		FireAt:  fireAt,
		Payload: payload,
	}

	registered, err := s.selector.Probe().Register(ctx, []types.TriggerRecord{record})
	if err != nil && len(registered) == 0 {
		return types.TriggerRecord{}, err
	}

	record = registered[0]

	err = s.storage.AddTriggers(ctx, registered)
	if err != nil {
		return types.TriggerRecord{}, err
	}

	// When the owning alarm still exists, account for the snooze
	// trigger so a later edit or delete releases it too.
	alarm, err := s.storage.GetAlarm(ctx, payload.AlarmID)
	if err == nil {
		alarm.TriggerIDs = append(alarm.TriggerIDs, record.ID)
		err = s.storage.UpdateAlarm(ctx, alarm)
		if err != nil {
			return types.TriggerRecord{}, err
		}
	}

	return record, nil
}

// Replenish re-materializes the trigger window of every active
// repeating alarm. Run periodically and at startup, so a device that
// stays untouched for weeks does not silently run out of pre-scheduled
// firings.
func (s *svc) Replenish(ctx context.Context) error {
	alarms, err := s.storage.LoadAlarms(ctx)
	if err != nil {
		return err
	}

	var errs []error

	now := s.now()

	for _, alarm := range alarms {
		if alarm.IsRepeating() {
			if !alarm.IsActive {
				continue
			}

			s.cancelTriggers(ctx, alarm)

			alarm.TriggerIDs = nil

			_, err := s.schedule(ctx, alarm)
			if err != nil {
				errs = append(errs, fmt.Errorf("alarm %s: %w", alarm.ID, err))
			}

			continue
		}

		err := s.pruneFired(ctx, alarm, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("alarm %s: %w", alarm.ID, err))
		}
	}

	return errors.Join(errs...)
}

// pruneFired drops a one-shot alarm's trigger records once their fire
// instant has passed. A one-shot alarm whose last record fired is
// switched off rather than left pointing at dead registrations.
func (s *svc) pruneFired(ctx context.Context, alarm types.Alarm, now time.Time) error {
	log := logging.GetFromContext(ctx)

	var expired []string
	remaining := make([]string, 0, len(alarm.TriggerIDs))

	for _, recordID := range alarm.TriggerIDs {
		record, err := s.storage.GetTrigger(ctx, recordID)
		if err != nil {
			log.Warn().Str("trigger_id", recordID).Msg("trigger record missing from registry")
			expired = append(expired, recordID)
			continue
		}

		if record.FireAt.After(now) {
			remaining = append(remaining, recordID)
			continue
		}

		expired = append(expired, recordID)
	}

	if len(expired) == 0 {
		return nil
	}

	err := s.storage.RemoveTriggers(ctx, expired)
	if err != nil {
		return err
	}

	alarm.TriggerIDs = remaining
	if alarm.IsActive && len(remaining) == 0 {
		alarm.IsActive = false
	}

	return s.storage.UpdateAlarm(ctx, alarm)
}

// validateAlarm rejects malformed drafts before anything is persisted
// or any trigger is touched.
func validateAlarm(alarm types.Alarm) error {
	if _, _, err := ParseClock(alarm.Time); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAlarm, err.Error())
	}

	for _, day := range alarm.RepeatDays {
		if day < 0 || day > 6 {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidAlarm, day)
		}
	}

	return nil
}

// schedule runs the full pipeline for an already persisted alarm:
// materialize, select a mechanism, register, store the outcome.
func (s *svc) schedule(ctx context.Context, alarm types.Alarm) (types.Alarm, error) {
	records, err := Materialize(alarm, s.now())
	if err != nil {
		return types.Alarm{}, err
	}

	registered, registrationErr := s.selector.Probe().Register(ctx, records)
	if registrationErr != nil && len(registered) == 0 {
		// The alarm stays persisted in its requested state even though
		// nothing could be registered; the caller surfaces a warning.
		return alarm, registrationErr
	}

	err = s.storage.AddTriggers(ctx, registered)
	if err != nil {
		return types.Alarm{}, err
	}

	alarm.TriggerIDs = lo.Map(registered, func(r types.TriggerRecord, _ int) string {
		return r.ID
	})

	err = s.storage.UpdateAlarm(ctx, alarm)
	if err != nil {
		return types.Alarm{}, err
	}

	return alarm, registrationErr
}

// cancelTriggers releases every trigger record the alarm still owns.
// Failures are logged and otherwise ignored: a stale or already fired
// handle must never wedge an edit or delete.
func (s *svc) cancelTriggers(ctx context.Context, alarm types.Alarm) {
	log := logging.GetFromContext(ctx)

	for _, recordID := range alarm.TriggerIDs {
		record, err := s.storage.GetTrigger(ctx, recordID)
		if err != nil {
			log.Warn().Str("trigger_id", recordID).Msg("trigger record missing from registry")
			continue
		}

		err = s.selector.Cancel(ctx, record)
		if err != nil {
			log.Warn().Err(err).Str("trigger_id", recordID).Msg("failed to cancel trigger, treating as already absent")
		}
	}

	err := s.storage.RemoveTriggers(ctx, alarm.TriggerIDs)
	if err != nil {
		log.Error().Err(err).Str("alarm_id", alarm.ID).Msg("failed to remove trigger records")
	}
}
