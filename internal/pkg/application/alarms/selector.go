package alarms

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/infrastructure/logging"
	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
)

var (
	// ErrCapabilityUnavailable means no trigger mechanism could be
	// selected at all. The alarm is still saved; the caller should
	// surface a warning that it may not ring reliably.
	ErrCapabilityUnavailable = errors.New("no trigger mechanism available")

	// ErrRegistrationFailed means one or more records in a batch could
	// not be registered. The remaining records were still attempted.
	ErrRegistrationFailed = errors.New("trigger registration failed")
)

// ExactScheduler is the platform's exact alarm capability.
type ExactScheduler interface {
	CanScheduleExact() bool
	ScheduleExact(id string, fireInstantMillis int64, payload types.TriggerPayload) bool
	Cancel(id string) error
}

// NotificationScheduler is the best effort notification channel.
type NotificationScheduler interface {
	Available() bool
	ScheduleAt(id string, fireAt time.Time, payload types.TriggerPayload, channel string) (string, error)
	Cancel(handle string) error
}

// AlarmChannel is the notification channel alarms are delivered on.
const AlarmChannel = "system-alarm-channel"

type SelectionState string

const (
	StateProbing    SelectionState = "probing"
	StateSelected   SelectionState = "selected"
	StateRegistered SelectionState = "registered"
	StateFailed     SelectionState = "failed"
)

// MechanismSelector probes the available trigger mechanisms in fixed
// priority order (exact before notification) and registers record
// batches with the best one. Availability is re-evaluated on every
// materialization, never retroactively for already registered records.
type MechanismSelector struct {
	exact        ExactScheduler
	notification NotificationScheduler
}

func NewMechanismSelector(exact ExactScheduler, notification NotificationScheduler) *MechanismSelector {
	return &MechanismSelector{
		exact:        exact,
		notification: notification,
	}
}

// Selection is one per-activation pass through the state machine.
type Selection struct {
	State     SelectionState
	Mechanism types.Mechanism

	selector *MechanismSelector
}

// Probe walks Probing -> Selected (or Failed) for one activation.
func (s *MechanismSelector) Probe() *Selection {
	sel := &Selection{State: StateProbing, selector: s}

	if s.exact != nil && s.exact.CanScheduleExact() {
		sel.State = StateSelected
		sel.Mechanism = types.MechanismExact
		return sel
	}

	if s.notification != nil && s.notification.Available() {
		sel.State = StateSelected
		sel.Mechanism = types.MechanismNotification
		return sel
	}

	sel.State = StateFailed
	return sel
}

// Register hands the record batch to the selected mechanism. A single
// failed record does not abort the batch: it is logged and skipped,
// and the successfully registered remainder is returned alongside
// ErrRegistrationFailed.
func (sel *Selection) Register(ctx context.Context, records []types.TriggerRecord) ([]types.TriggerRecord, error) {
	if sel.State == StateFailed {
		return nil, ErrCapabilityUnavailable
	}
	if sel.State != StateSelected {
		return nil, errors.New("selection is not in a registrable state")
	}

	log := logging.GetFromContext(ctx)

	registered := make([]types.TriggerRecord, 0, len(records))
	failures := 0

	for _, record := range records {
		record.ID = uuid.NewString()
		record.Mechanism = sel.Mechanism

		switch sel.Mechanism {
		case types.MechanismExact:
			if !sel.selector.exact.ScheduleExact(record.ID, record.FireAt.UnixMilli(), record.Payload) {
				log.Error().Str("trigger_id", record.ID).Msg("exact registration refused")
				failures++
				continue
			}
			// The exact mechanism addresses registrations by our own
			// record id, so that doubles as the handle.
			record.Handle = record.ID

		case types.MechanismNotification:
			handle, err := sel.selector.notification.ScheduleAt(record.ID, record.FireAt, record.Payload, AlarmChannel)
			if err != nil {
				log.Error().Err(err).Str("trigger_id", record.ID).Msg("notification registration failed")
				failures++
				continue
			}
			record.Handle = handle
		}

		registered = append(registered, record)
	}

	sel.State = StateRegistered

	if failures > 0 {
		return registered, ErrRegistrationFailed
	}

	return registered, nil
}

// Cancel releases a registered record with the mechanism that owns it.
func (s *MechanismSelector) Cancel(ctx context.Context, record types.TriggerRecord) error {
	switch record.Mechanism {
	case types.MechanismExact:
		return s.exact.Cancel(record.Handle)
	case types.MechanismNotification:
		return s.notification.Cancel(record.Handle)
	}

	return nil
}
