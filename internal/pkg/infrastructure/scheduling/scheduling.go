package scheduling

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/infrastructure/logging"
	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
)

var ErrUnknownHandle = errors.New("unknown trigger handle")

// TriggerHandlerFunc is the single delivery entry point for fired
// triggers. userInitiated distinguishes a trigger the platform fired on
// its own (auto start ringing) from one the user tapped.
type TriggerHandlerFunc func(ctx context.Context, payload types.TriggerPayload, userInitiated bool)

type queueEntry struct {
	id      string
	fireAt  time.Time
	payload types.TriggerPayload
}

// timerQueue drives a set of pending trigger entries off a single
// timer. Delivery order is by fire instant; entries are dropped once
// fired. Cancellation by entry id is supported at any time.
type timerQueue struct {
	Now func() time.Time

	mu      sync.Mutex
	pending map[string]queueEntry
	wake    chan struct{}
	deliver func(ctx context.Context, e queueEntry)
}

func newTimerQueue(deliver func(ctx context.Context, e queueEntry)) *timerQueue {
	return &timerQueue{
		Now:     time.Now,
		pending: map[string]queueEntry{},
		wake:    make(chan struct{}, 1),
		deliver: deliver,
	}
}

func (q *timerQueue) add(e queueEntry) {
	q.mu.Lock()
	q.pending[e.id] = e
	q.mu.Unlock()
	q.wakeup()
}

func (q *timerQueue) remove(id string) bool {
	q.mu.Lock()
	_, ok := q.pending[id]
	delete(q.pending, id)
	q.mu.Unlock()
	q.wakeup()
	return ok
}

func (q *timerQueue) wakeup() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *timerQueue) next() (queueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var earliest queueEntry
	found := false

	for _, e := range q.pending {
		if !found || e.fireAt.Before(earliest.fireAt) {
			earliest = e
			found = true
		}
	}

	return earliest, found
}

func (q *timerQueue) run(ctx context.Context) {
	log := logging.GetFromContext(ctx)

	timer := time.NewTimer(time.Duration(1<<63 - 1))
	timer.Stop()

	for {
		e, ok := q.next()
		if ok {
			timer.Reset(e.fireAt.Sub(q.Now()))
		}

		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case <-q.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}

		case <-timer.C:
			if q.Now().Before(e.fireAt) {
				// Timer drift. Go around and sleep again.
				continue
			}

			q.mu.Lock()
			_, stillPending := q.pending[e.id]
			delete(q.pending, e.id)
			q.mu.Unlock()

			if stillPending {
				log.Debug().Str("trigger_id", e.id).Msg("trigger fired")
				q.deliver(ctx, e)
			}
		}
	}
}
