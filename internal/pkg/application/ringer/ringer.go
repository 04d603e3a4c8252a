package ringer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/infrastructure/logging"
	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
)

var ErrNoActiveSession = errors.New("no active ring session")

// Player controls one audio stream. Volume is in [0, 1].
type Player interface {
	SetVolume(volume float64)
	Play() error
	Pause()
	Release()
}

// PlayerFactory opens a stream by URL. NewPlayer may block on network
// I/O; callers bound it with a timeout.
type PlayerFactory interface {
	NewPlayer(streamURL string) (Player, error)
}

// Vibrator drives the device vibration motor.
type Vibrator interface {
	Vibrate(pulse time.Duration, repeat bool)
	VibratePattern(pattern []time.Duration, repeat bool)
	Cancel()
}

// SnoozeFunc reschedules a fired trigger a fixed delay out.
type SnoozeFunc func(ctx context.Context, payload types.TriggerPayload) (types.TriggerRecord, error)

// Timings holds every duration the ring session is built from. The
// defaults match the product behavior; tests shrink them.
type Timings struct {
	LoadTimeout  time.Duration
	FadeDuration time.Duration
	FadeSteps    int
	RampDuration time.Duration
	RampCadence  time.Duration
	MinPulse     time.Duration
	MaxPulse     time.Duration
	SteadyPause  time.Duration
	SteadyPulse  time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		LoadTimeout:  5 * time.Second,
		FadeDuration: 30 * time.Second,
		FadeSteps:    60,
		RampDuration: 30 * time.Second,
		RampCadence:  2 * time.Second,
		MinPulse:     50 * time.Millisecond,
		MaxPulse:     time.Second,
		SteadyPause:  500 * time.Millisecond,
		SteadyPulse:  time.Second,
	}
}

// Ringer turns fired triggers into ring sessions. At most one session
// is live at a time; a new firing displaces the previous one.
type Ringer struct {
	Timings Timings

	players  PlayerFactory
	vibrator Vibrator
	snooze   SnoozeFunc

	mu     sync.Mutex
	active *Session
}

func New(players PlayerFactory, vibrator Vibrator, snooze SnoozeFunc) *Ringer {
	return &Ringer{
		Timings:  DefaultTimings(),
		players:  players,
		vibrator: vibrator,
		snooze:   snooze,
	}
}

// Ring starts a session for the fired trigger, stopping whatever was
// ringing before.
func (r *Ringer) Ring(ctx context.Context, payload types.TriggerPayload) *Session {
	log := logging.GetFromContext(ctx)

	session := newSession(payload, r.vibrator, r.Timings)

	r.mu.Lock()
	previous := r.active
	r.active = session
	r.mu.Unlock()

	if previous != nil {
		log.Info().Str("alarm_id", previous.payload.AlarmID).Msg("displacing active ring session")
		previous.shutdown(StateDismissed)
	}

	log.Info().Str("alarm_id", payload.AlarmID).Str("station", payload.StationName).Msg("ringing")
	session.start(ctx, r.players)

	return session
}

// Active returns the live session, or nil.
func (r *Ringer) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Dismiss ends the live session. It succeeds no matter how far the
// session got, including when playback never started.
func (r *Ringer) Dismiss(ctx context.Context) error {
	session := r.release()
	if session == nil {
		return ErrNoActiveSession
	}

	session.shutdown(StateDismissed)

	log := logging.GetFromContext(ctx)
	log.Info().Str("alarm_id", session.payload.AlarmID).Msg("ring session dismissed")

	return nil
}

// Snooze ends the live session and reschedules its trigger. Playback
// and vibration are fully stopped before the reschedule happens.
func (r *Ringer) Snooze(ctx context.Context) (types.TriggerRecord, error) {
	session := r.release()
	if session == nil {
		return types.TriggerRecord{}, ErrNoActiveSession
	}

	session.shutdown(StateSnoozed)

	record, err := r.snooze(ctx, session.payload)
	if err != nil {
		return types.TriggerRecord{}, err
	}

	log := logging.GetFromContext(ctx)
	log.Info().Str("alarm_id", session.payload.AlarmID).Time("fire_at", record.FireAt).Msg("ring session snoozed")

	return record, nil
}

func (r *Ringer) release() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.active
	r.active = nil

	return session
}
