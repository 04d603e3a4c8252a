package types

import (
	"time"
)

type RadioStation struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	StreamURL string `json:"streamUrl" yaml:"streamUrl"`
}

// Alarm is a user configured alarm. Time is wall clock local time in
// "HH:MM" format and is never converted between time zones.
type Alarm struct {
	ID         string       `json:"id"`
	Time       string       `json:"time"`
	Station    RadioStation `json:"station"`
	RepeatDays []int        `json:"repeatDays"`
	IsActive   bool         `json:"isActive"`
	Label      string       `json:"label,omitempty"`
	Vibrate    bool         `json:"vibrate"`

	// TriggerIDs reference the trigger records currently registered
	// for this alarm. An inactive alarm has none.
	TriggerIDs []string `json:"triggerIds,omitempty"`
}

// IsRepeating reports whether the alarm recurs on one or more weekdays.
// An empty RepeatDays set means one-shot semantics.
func (a Alarm) IsRepeating() bool {
	return len(a.RepeatDays) > 0
}

type Mechanism string

const (
	// MechanismExact is the platform's exact alarm capability.
	MechanismExact Mechanism = "exact"
	// MechanismNotification is the best effort notification channel fallback.
	MechanismNotification Mechanism = "notification"
)

// TriggerPayload travels with every scheduled trigger and is delivered
// back verbatim when it fires. It carries everything needed to start
// ringing without consulting the alarm store.
type TriggerPayload struct {
	AlarmID     string `json:"alarmId"`
	StationURL  string `json:"stationUrl"`
	StationName string `json:"stationName"`
	Vibrate     bool   `json:"vibrate"`
	FireAt      int64  `json:"fireAt"` // epoch millis
}

// TriggerRecord is one concrete future firing registered with a
// scheduling mechanism.
type TriggerRecord struct {
	ID        string         `json:"id"`
	AlarmID   string         `json:"alarmId"`
	FireAt    time.Time      `json:"fireAt"`
	Mechanism Mechanism      `json:"mechanism"`
	Handle    string         `json:"handle,omitempty"`
	Payload   TriggerPayload `json:"payload"`
}
