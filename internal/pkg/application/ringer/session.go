package ringer

import (
	"context"
	"sync"
	"time"

	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/infrastructure/logging"
	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
)

type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateLoading   SessionState = "loading"
	StatePlaying   SessionState = "playing"
	StateSnoozed   SessionState = "snoozed"
	StateDismissed SessionState = "dismissed"
)

// Session is one ringing episode for a single fired trigger. It owns
// the audio player and the vibration ramp until it is dismissed or
// snoozed.
type Session struct {
	payload  types.TriggerPayload
	vibrator Vibrator
	timings  Timings

	mu      sync.Mutex
	state   SessionState
	player  Player
	stopped bool
	stop    chan struct{}
}

func newSession(payload types.TriggerPayload, vibrator Vibrator, timings Timings) *Session {
	return &Session{
		payload:  payload,
		vibrator: vibrator,
		timings:  timings,
		state:    StateIdle,
		stop:     make(chan struct{}),
	}
}

func (s *Session) Payload() types.TriggerPayload {
	return s.payload
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

func (s *Session) start(ctx context.Context, players PlayerFactory) {
	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	if s.payload.Vibrate && s.vibrator != nil {
		go s.vibrationRamp(ctx)
	}

	go s.startAudio(ctx, players)
}

// startAudio creates and starts the stream player. Initialization is
// bounded by the load timeout; when the stream cannot be opened in time
// the session keeps ringing silently rather than aborting.
func (s *Session) startAudio(ctx context.Context, players PlayerFactory) {
	log := logging.GetFromContext(ctx)

	result := make(chan playerOutcome, 1)

	go func() {
		p, err := players.NewPlayer(s.payload.StationURL)
		result <- playerOutcome{player: p, err: err}
	}()

	select {
	case <-s.stop:
		go drainPlayer(result)
		return

	case <-time.After(s.timings.LoadTimeout):
		log.Warn().Str("station", s.payload.StationName).Msg("audio initialization timed out, ringing without sound")
		go drainPlayer(result)
		s.markPlaying(nil)
		return

	case r := <-result:
		if r.err != nil {
			log.Warn().Err(r.err).Str("station", s.payload.StationName).Msg("failed to open stream, ringing without sound")
			s.markPlaying(nil)
			return
		}

		if !s.markPlaying(r.player) {
			r.player.Release()
			return
		}

		// Volume must hit zero before the stream is audible, or the
		// first moments blast at whatever level the player woke up at.
		r.player.SetVolume(0)

		err := r.player.Play()
		if err != nil {
			log.Warn().Err(err).Str("station", s.payload.StationName).Msg("playback failed to start")
			return
		}

		go s.fadeIn(ctx, r.player)
	}
}

// markPlaying transitions Loading -> Playing, adopting the player when
// one exists. Returns false when the session was stopped in the
// meantime.
func (s *Session) markPlaying(player Player) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	s.player = player
	s.state = StatePlaying

	return true
}

// fadeIn ramps the volume from silent to full in fixed steps.
func (s *Session) fadeIn(ctx context.Context, player Player) {
	interval := s.timings.FadeDuration / time.Duration(s.timings.FadeSteps)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for step := 1; step <= s.timings.FadeSteps; step++ {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		if !s.alive() {
			return
		}

		player.SetVolume(float64(step) / float64(s.timings.FadeSteps))
	}
}

// vibrationRamp pulses with growing intensity for the ramp duration,
// then settles into a steady repeating pattern until cancelled.
func (s *Session) vibrationRamp(ctx context.Context) {
	steps := int(s.timings.RampDuration / s.timings.RampCadence)

	ticker := time.NewTicker(s.timings.RampCadence)
	defer ticker.Stop()

	for step := 0; step < steps; step++ {
		if !s.alive() {
			return
		}

		progress := float64(step) / float64(steps-1)
		pulse := s.timings.MinPulse + time.Duration(progress*float64(s.timings.MaxPulse-s.timings.MinPulse))

		s.vibrator.Vibrate(pulse, false)

		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
	}

	if !s.alive() {
		return
	}

	s.vibrator.VibratePattern([]time.Duration{s.timings.SteadyPause, s.timings.SteadyPulse}, true)
}

// shutdown stops playback and vibration exactly once and records the
// terminal state. Safe to call regardless of how far startup got.
func (s *Session) shutdown(terminal SessionState) {
	s.mu.Lock()

	if s.stopped {
		s.mu.Unlock()
		return
	}

	s.stopped = true
	s.state = terminal
	player := s.player
	s.player = nil

	close(s.stop)
	s.mu.Unlock()

	if s.vibrator != nil {
		s.vibrator.Cancel()
	}

	if player != nil {
		player.Pause()
		player.Release()
	}
}

type playerOutcome struct {
	player Player
	err    error
}

// drainPlayer releases a player that finished initializing after the
// session stopped waiting for it.
func drainPlayer(result chan playerOutcome) {
	r := <-result
	if r.player != nil {
		r.player.Release()
	}
}
