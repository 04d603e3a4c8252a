package scheduling

import (
	"context"
	"time"

	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
)

// ExactScheduler is the preferred trigger mechanism. It mirrors the
// platform's exact alarm service: a registration either succeeds with a
// guaranteed-precise firing or is refused outright when the capability
// has not been granted.
type ExactScheduler struct {
	queue   *timerQueue
	allowed bool
}

func NewExactScheduler(handler TriggerHandlerFunc, exactAlarmsAllowed bool) *ExactScheduler {
	s := &ExactScheduler{allowed: exactAlarmsAllowed}
	s.queue = newTimerQueue(func(ctx context.Context, e queueEntry) {
		handler(ctx, e.payload, false)
	})
	return s
}

// Start runs the timer loop until ctx is cancelled.
func (s *ExactScheduler) Start(ctx context.Context) {
	go s.queue.run(ctx)
}

// CanScheduleExact reports whether the exact alarm capability has been
// granted. Re-probed by the selector on every materialization.
func (s *ExactScheduler) CanScheduleExact() bool {
	return s.allowed
}

func (s *ExactScheduler) ScheduleExact(id string, fireInstantMillis int64, payload types.TriggerPayload) bool {
	if !s.allowed {
		return false
	}

	s.queue.add(queueEntry{
		id:      id,
		fireAt:  time.UnixMilli(fireInstantMillis),
		payload: payload,
	})

	return true
}

func (s *ExactScheduler) Cancel(id string) error {
	if !s.queue.remove(id) {
		return ErrUnknownHandle
	}
	return nil
}
