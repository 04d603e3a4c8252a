package watchdog

import (
	"context"
	"time"

	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/infrastructure/logging"
)

// Replenisher re-materializes trigger windows for active repeating
// alarms.
type Replenisher interface {
	Replenish(ctx context.Context) error
}

const defaultInterval = 6 * time.Hour

// Watchdog keeps the pre-scheduled trigger window topped up. Without
// it, a device left untouched would run out of registered firings a
// few weeks after the last edit.
type Watchdog interface {
	Start(ctx context.Context)
	Stop()
}

type watchdogImpl struct {
	alarms   Replenisher
	interval time.Duration
	done     chan struct{}
}

func New(alarms Replenisher, interval time.Duration) Watchdog {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &watchdogImpl{
		alarms:   alarms,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (w *watchdogImpl) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *watchdogImpl) Stop() {
	close(w.done)
}

func (w *watchdogImpl) run(ctx context.Context) {
	// One pass right away so a freshly started process catches up on
	// windows that aged out while it was down.
	w.replenish(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.replenish(ctx)
		}
	}
}

func (w *watchdogImpl) replenish(ctx context.Context) {
	log := logging.GetFromContext(ctx)

	err := w.alarms.Replenish(ctx)
	if err != nil {
		log.Error().Err(err).Msg("trigger replenishment failed")
		return
	}

	log.Debug().Msg("trigger window replenished")
}
