package scheduling

import (
	"context"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/infrastructure/logging"
	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
)

// DefaultChannel is the high priority alarm channel triggers are posted
// on unless the caller asks for another one.
const DefaultChannel = "system-alarm-channel"

const triggerEventType = "radioalarm.triggerFired"

// NotificationScheduler is the best effort fallback mechanism. Firing
// is delivered to the local trigger handler and, when a subscriber
// endpoint is configured, forwarded as a CloudEvent so an external
// notification surface can present it.
type NotificationScheduler struct {
	queue    *timerQueue
	endpoint string
	enabled  bool
}

func NewNotificationScheduler(handler TriggerHandlerFunc, subscriberEndpoint string, notificationsAllowed bool) *NotificationScheduler {
	s := &NotificationScheduler{
		endpoint: subscriberEndpoint,
		enabled:  notificationsAllowed,
	}

	s.queue = newTimerQueue(func(ctx context.Context, e queueEntry) {
		s.forward(ctx, e)
		handler(ctx, e.payload, false)
	})

	return s
}

func (s *NotificationScheduler) Start(ctx context.Context) {
	go s.queue.run(ctx)
}

// Available reports whether the notification channel can be used at
// all, i.e. the notification permission was granted.
func (s *NotificationScheduler) Available() bool {
	return s.enabled
}

// ScheduleAt registers a future notification on the given channel and
// returns an opaque handle to cancel it with.
func (s *NotificationScheduler) ScheduleAt(id string, fireAt time.Time, payload types.TriggerPayload, channel string) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("notification channel %s is not available", channel)
	}

	handle := uuid.NewString()

	s.queue.add(queueEntry{
		id:      handle,
		fireAt:  fireAt,
		payload: payload,
	})

	return handle, nil
}

func (s *NotificationScheduler) Cancel(handle string) error {
	if !s.queue.remove(handle) {
		return ErrUnknownHandle
	}
	return nil
}

func (s *NotificationScheduler) forward(ctx context.Context, e queueEntry) {
	if s.endpoint == "" {
		return
	}

	log := logging.GetFromContext(ctx)

	c, err := cloudevents.NewClientHTTP()
	if err != nil {
		log.Error().Err(err).Msg("failed to create cloudevents client")
		return
	}

	event := cloudevents.NewEvent()
	event.SetID(fmt.Sprintf("%s:%d", e.payload.AlarmID, e.payload.FireAt))
	event.SetTime(e.fireAt)
	event.SetSource("github.com/RemiAsselin42/radio-alarm-app")
	event.SetType(triggerEventType)

	err = event.SetData(cloudevents.ApplicationJSON, e.payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode trigger payload")
		return
	}

	ctxWithTarget := cloudevents.ContextWithTarget(ctx, s.endpoint)

	result := c.Send(ctxWithTarget, event)
	if cloudevents.IsUndelivered(result) {
		log.Error().Err(result).Msgf("failed to send trigger event to %s", s.endpoint)
	}
}
