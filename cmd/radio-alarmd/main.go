package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/application/alarms"
	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/application/ringer"
	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/application/watchdog"
	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/infrastructure/logging"
	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/infrastructure/router"
	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/infrastructure/scheduling"
	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/infrastructure/storage"
	"github.com/RemiAsselin42/radio-alarm-app/internal/pkg/presentation/api"
	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
)

const serviceName string = "radio-alarmd"

type flagType int

const (
	listenAddress flagType = iota
	servicePort
	dbFile
	stationsFile
	exactAlarmsAllowed
	notificationsAllowed
	subscriberEndpoint
	replenishInterval
)

type flagMap map[flagType]string

func defaultFlags() flagMap {
	return flagMap{
		listenAddress: "0.0.0.0",
		servicePort:   "8080",

		dbFile:       "/var/lib/radio-alarmd/alarms.db",
		stationsFile: "",

		exactAlarmsAllowed:   "true",
		notificationsAllowed: "true",
		subscriberEndpoint:   "",

		replenishInterval: "6h",
	}
}

func main() {
	serviceVersion := version()

	logger := newLogger(serviceName, serviceVersion)
	logger.Info().Msg("starting up ...")

	ctx := logging.NewContextWithLogger(context.Background(), logger)
	flags := parseExternalConfig(defaultFlags())

	stations, err := loadStations(flags[stationsFile])
	exitIf(err, logger, "could not load station presets")

	store, err := storage.New(storage.NewSQLiteConnector(flags[dbFile]))
	exitIf(err, logger, "could not open alarm database")

	interval, err := time.ParseDuration(flags[replenishInterval])
	exitIf(err, logger, "invalid replenish interval")

	// The ring manager has to exist before the schedulers, whose fired
	// triggers it consumes, and its snooze path needs the service built
	// from those same schedulers. The handler closure breaks the cycle.
	var ring *ringer.Ringer

	onTriggerFired := func(ctx context.Context, payload types.TriggerPayload, userInitiated bool) {
		ring.Ring(ctx, payload)
	}

	exact := scheduling.NewExactScheduler(onTriggerFired, flags[exactAlarmsAllowed] == "true")
	notification := scheduling.NewNotificationScheduler(onTriggerFired, flags[subscriberEndpoint], flags[notificationsAllowed] == "true")

	svc := alarms.New(
		storage.NewAlarmStorage(store),
		alarms.NewMechanismSelector(exact, notification),
		stations,
	)

	ring = ringer.New(logPlayerFactory{}, nil, svc.Snooze)

	exact.Start(ctx)
	notification.Start(ctx)

	wd := watchdog.New(svc, interval)
	wd.Start(ctx)
	defer wd.Stop()

	r := router.New(serviceName)
	api.RegisterHandlers(ctx, r, svc, ring)

	apiAddress := flags[listenAddress] + ":" + flags[servicePort]
	logger.Info().Str("address", apiAddress).Msg("listening")

	err = http.ListenAndServe(apiAddress, r)
	exitIf(err, logger, "failed to start request router")
}

func loadStations(filePath string) ([]types.RadioStation, error) {
	if filePath == "" {
		return alarms.DefaultStations(), nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return alarms.LoadStationsConfig(f)
}

func parseExternalConfig(flags flagMap) flagMap {
	// Allow environment variables to override certain defaults
	envOrDef := func(name, def string) string {
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return def
	}

	flags[listenAddress] = envOrDef("LISTEN_ADDRESS", flags[listenAddress])
	flags[servicePort] = envOrDef("SERVICE_PORT", flags[servicePort])
	flags[dbFile] = envOrDef("DB_FILE", flags[dbFile])
	flags[stationsFile] = envOrDef("STATIONS_FILE", flags[stationsFile])
	flags[exactAlarmsAllowed] = envOrDef("EXACT_ALARMS_ALLOWED", flags[exactAlarmsAllowed])
	flags[notificationsAllowed] = envOrDef("NOTIFICATIONS_ALLOWED", flags[notificationsAllowed])
	flags[subscriberEndpoint] = envOrDef("SUBSCRIBER_ENDPOINT", flags[subscriberEndpoint])
	flags[replenishInterval] = envOrDef("REPLENISH_INTERVAL", flags[replenishInterval])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("db", "path to the alarm database file", apply(dbFile))
	flag.Func("stations", "station presets configuration file", apply(stationsFile))
	flag.Func("port", "service port", apply(servicePort))
	flag.Parse()

	return flags
}

func newLogger(serviceName, serviceVersion string) zerolog.Logger {
	logger := log.With().Str("service", strings.ToLower(serviceName)).Str("version", serviceVersion).Logger()
	return logger
}

func version() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	buildSettings := buildInfo.Settings
	infoMap := map[string]string{}
	for _, s := range buildSettings {
		infoMap[s.Key] = s.Value
	}

	sha := infoMap["vcs.revision"]
	if infoMap["vcs.modified"] == "true" {
		sha += "+"
	}

	return sha
}

func exitIf(err error, logger zerolog.Logger, msg string) {
	if err != nil {
		logger.Error().Err(err).Msg(msg)
		time.Sleep(2 * time.Second)
		os.Exit(1)
	}
}

// logPlayerFactory stands in where a platform audio backend plugs in.
// It logs playback transitions instead of producing sound.
type logPlayerFactory struct{}

func (logPlayerFactory) NewPlayer(streamURL string) (ringer.Player, error) {
	return &logPlayer{streamURL: streamURL}, nil
}

type logPlayer struct {
	streamURL string
}

func (p *logPlayer) SetVolume(volume float64) {
	log.Debug().Str("stream", p.streamURL).Float64("volume", volume).Msg("volume")
}

func (p *logPlayer) Play() error {
	log.Info().Str("stream", p.streamURL).Msg("playback started")
	return nil
}

func (p *logPlayer) Pause() {
	log.Info().Str("stream", p.streamURL).Msg("playback paused")
}

func (p *logPlayer) Release() {
	log.Debug().Str("stream", p.streamURL).Msg("player released")
}
