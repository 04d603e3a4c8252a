package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/application/alarms"
	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/application/ringer"
	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/infrastructure/logging"
	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
)

var tracer = otel.Tracer("radio-alarm-app/api")

func RegisterHandlers(ctx context.Context, router *chi.Mux, alarmSvc alarms.AlarmService, ring *ringer.Ringer) *chi.Mux {

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	log := logging.GetFromContext(ctx)

	router.Route("/api/v0", func(r chi.Router) {
		r.Route("/alarms", func(r chi.Router) {
			r.Get("/", listAlarmsHandler(log, alarmSvc))
			r.Post("/", createAlarmHandler(log, alarmSvc))
			r.Get("/{alarmID}", getAlarmHandler(log, alarmSvc))
			r.Put("/{alarmID}", updateAlarmHandler(log, alarmSvc))
			r.Delete("/{alarmID}", deleteAlarmHandler(log, alarmSvc))
			r.Post("/{alarmID}/toggle", toggleAlarmHandler(log, alarmSvc))
		})

		r.Get("/stations", listStationsHandler(log, alarmSvc))

		r.Route("/ring", func(r chi.Router) {
			r.Post("/dismiss", dismissHandler(log, ring))
			r.Post("/snooze", snoozeHandler(log, ring))
		})

		r.Post("/triggers/delivered", triggerDeliveredHandler(log, ring))
	})

	return router
}

func listAlarmsHandler(log zerolog.Logger, svc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "list-alarms")
		defer func() { endSpan(err, span) }()
		ctx, requestLogger := requestLogging(ctx, log, span)

		all, err := svc.Get(ctx)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to load alarms")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, all)
	}
}

func createAlarmHandler(log zerolog.Logger, svc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "create-alarm")
		defer func() { endSpan(err, span) }()
		ctx, requestLogger := requestLogging(ctx, log, span)

		alarm, ok := decodeAlarm(w, r.Body, requestLogger)
		if !ok {
			return
		}

		created, err := svc.Create(ctx, alarm)
		if err != nil && !isSchedulingWarning(err) {
			requestLogger.Error().Err(err).Msg("unable to create alarm")
			w.WriteHeader(statusFromError(err))
			return
		}

		if err != nil {
			// The alarm exists but may not ring reliably. The client
			// decides how to surface that.
			requestLogger.Warn().Err(err).Str("alarm_id", created.ID).Msg("alarm created with degraded scheduling")
			err = nil
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

func getAlarmHandler(log zerolog.Logger, svc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "get-alarm")
		defer func() { endSpan(err, span) }()
		ctx, requestLogger := requestLogging(ctx, log, span)

		alarmID := chi.URLParam(r, "alarmID")

		alarm, err := svc.GetByID(ctx, alarmID)
		if errors.Is(err, alarms.ErrAlarmNotFound) {
			requestLogger.Debug().Str("alarm_id", alarmID).Msg("alarm not found")
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to fetch alarm")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, alarm)
	}
}

func updateAlarmHandler(log zerolog.Logger, svc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "update-alarm")
		defer func() { endSpan(err, span) }()
		ctx, requestLogger := requestLogging(ctx, log, span)

		alarm, ok := decodeAlarm(w, r.Body, requestLogger)
		if !ok {
			return
		}

		alarm.ID = chi.URLParam(r, "alarmID")

		updated, err := svc.Update(ctx, alarm)
		if errors.Is(err, alarms.ErrAlarmNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil && !isSchedulingWarning(err) {
			requestLogger.Error().Err(err).Msg("unable to update alarm")
			w.WriteHeader(statusFromError(err))
			return
		}

		if err != nil {
			requestLogger.Warn().Err(err).Str("alarm_id", updated.ID).Msg("alarm updated with degraded scheduling")
			err = nil
		}

		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteAlarmHandler(log zerolog.Logger, svc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "delete-alarm")
		defer func() { endSpan(err, span) }()
		ctx, requestLogger := requestLogging(ctx, log, span)

		alarmID := chi.URLParam(r, "alarmID")

		err = svc.Delete(ctx, alarmID)
		if errors.Is(err, alarms.ErrAlarmNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to delete alarm")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func toggleAlarmHandler(log zerolog.Logger, svc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "toggle-alarm")
		defer func() { endSpan(err, span) }()
		ctx, requestLogger := requestLogging(ctx, log, span)

		alarmID := chi.URLParam(r, "alarmID")

		toggled, err := svc.Toggle(ctx, alarmID)
		if errors.Is(err, alarms.ErrAlarmNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil && !isSchedulingWarning(err) {
			requestLogger.Error().Err(err).Msg("unable to toggle alarm")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		if err != nil {
			requestLogger.Warn().Err(err).Str("alarm_id", toggled.ID).Msg("alarm toggled with degraded scheduling")
			err = nil
		}

		writeJSON(w, http.StatusOK, toggled)
	}
}

func listStationsHandler(log zerolog.Logger, svc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "list-stations")
		defer span.End()

		writeJSON(w, http.StatusOK, svc.Stations())
	}
}

func dismissHandler(log zerolog.Logger, ring *ringer.Ringer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "dismiss-ring")
		defer func() { endSpan(err, span) }()
		ctx, _ = requestLogging(ctx, log, span)

		err = ring.Dismiss(ctx)
		if errors.Is(err, ringer.ErrNoActiveSession) {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func snoozeHandler(log zerolog.Logger, ring *ringer.Ringer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "snooze-ring")
		defer func() { endSpan(err, span) }()
		ctx, requestLogger := requestLogging(ctx, log, span)

		record, err := ring.Snooze(ctx)
		if errors.Is(err, ringer.ErrNoActiveSession) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to snooze")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, record)
	}
}

// triggerDeliveredHandler is the entry point for fired triggers coming
// back from the notification channel, including user-tapped ones.
func triggerDeliveredHandler(log zerolog.Logger, ring *ringer.Ringer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "trigger-delivered")
		defer func() { endSpan(err, span) }()
		ctx, requestLogger := requestLogging(ctx, log, span)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var payload types.TriggerPayload
		err = json.Unmarshal(body, &payload)
		if err != nil || payload.AlarmID == "" {
			requestLogger.Error().Err(err).Msg("malformed trigger payload")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		ring.Ring(ctx, payload)

		w.WriteHeader(http.StatusAccepted)
	}
}

func decodeAlarm(w http.ResponseWriter, body io.Reader, log zerolog.Logger) (types.Alarm, bool) {
	b, err := io.ReadAll(body)
	if err != nil {
		log.Error().Err(err).Msg("unable to read body")
		w.WriteHeader(http.StatusBadRequest)
		return types.Alarm{}, false
	}

	var alarm types.Alarm
	err = json.Unmarshal(b, &alarm)
	if err != nil {
		log.Error().Err(err).Msg("unable to unmarshal body")
		w.WriteHeader(http.StatusBadRequest)
		return types.Alarm{}, false
	}

	return alarm, true
}

// isSchedulingWarning reports whether the alarm write itself succeeded
// and only trigger registration degraded.
func isSchedulingWarning(err error) bool {
	return errors.Is(err, alarms.ErrCapabilityUnavailable) || errors.Is(err, alarms.ErrRegistrationFailed)
}

// statusFromError keeps 400 for requests the caller got wrong and 500
// for failures on our side of the line, persistence included.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, alarms.ErrInvalidAlarm):
		return http.StatusBadRequest
	case errors.Is(err, alarms.ErrAlarmNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func requestLogging(ctx context.Context, log zerolog.Logger, span trace.Span) (context.Context, zerolog.Logger) {
	if span.SpanContext().HasTraceID() {
		log = log.With().Str("traceID", span.SpanContext().TraceID().String()).Logger()
	}

	return logging.NewContextWithLogger(ctx, log), log
}

func endSpan(err error, span trace.Span) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}
