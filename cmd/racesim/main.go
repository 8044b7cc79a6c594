// cmd/racesim/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/go-racer/pkg/breaker"
	"github.com/opd-ai/go-racer/pkg/config"
	"github.com/opd-ai/go-racer/pkg/engine"
	"github.com/opd-ai/go-racer/pkg/event"
	"github.com/opd-ai/go-racer/pkg/health"
	"github.com/opd-ai/go-racer/pkg/logging"
	"github.com/opd-ai/go-racer/pkg/render"
	"github.com/opd-ai/go-racer/pkg/results"
	"github.com/opd-ai/go-racer/pkg/telemetry"
)

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID())

	configPath := flag.String("config", "", "Path to configuration file")
	createDefault := flag.Bool("default", false, "Write the default configuration to -config and exit")
	maxTicks := flag.Uint64("ticks", 0, "Stop after this many ticks (overrides session.maxTicks)")
	trackName := flag.String("track", "", "Track template to race on (overrides track.template)")
	renderEvery := flag.Int("render", 0, "Draw the track to stdout every N ticks (0 disables)")
	flag.Parse()

	if *createDefault {
		path := *configPath
		if path == "" {
			path = "racer.json"
		}
		if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err, "config_path", path)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file", "config_path", path)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
		os.Exit(1)
	}
	if *maxTicks > 0 {
		cfg.Session.MaxTicks = *maxTicks
	}
	if *trackName != "" {
		if err := config.ApplyTrackTemplate(cfg, *trackName); err != nil {
			logger.Error(ctx, "Unknown track template", err, "track", *trackName)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error(ctx, "Invalid configuration", err)
		os.Exit(1)
	}

	logger = logging.NewLoggerTo(os.Stdout, cfg.LogLevel)
	if err := run(ctx, cfg, logger, *renderEvery); err != nil {
		logger.Error(ctx, "Race failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.RaceConfig, logger *logging.Logger, renderEvery int) error {
	raceID := logging.GetCorrelationID(ctx)

	grid, err := cfg.LoadTrack()
	if err != nil {
		return fmt.Errorf("failed to load track: %w", err)
	}
	controllers, err := buildControllers(cfg.Controllers, grid)
	if err != nil {
		return err
	}

	bus := event.NewEventBus()
	opts := []engine.Option{engine.WithLogger(logger), engine.WithEventBus(bus)}
	if cfg.Metrics.Enabled {
		opts = append(opts, engine.WithInstruments(cfg.Metrics.Meter))
	}
	if renderEvery > 0 {
		view := render.NewTerminalRenderer(grid, os.Stdout, renderEvery)
		view.ClearScreen = true
		opts = append(opts, engine.WithSink(view))
	}
	if cfg.Influx.Enabled {
		sink := telemetry.NewInfluxSink(cfg.Influx, raceID, nil, logger)
		sink.Attach(bus)
		defer sink.Close()
		opts = append(opts, engine.WithSink(sink))
	}

	session, err := engine.NewSession(cfg, grid, controllers, opts...)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	var store *results.Store
	if cfg.Results.Enabled {
		store, err = results.Open(cfg.Results.DSN, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		rec := newRecorder(cfg, store, raceID, session, logger)
		rec.Attach(bus)
		defer rec.Detach()
	}

	if cfg.Health.Enabled {
		healthServer := startHealthServer(ctx, cfg.Health, session, store, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthServer.Shutdown(shutdownCtx); err != nil {
				logger.Error(ctx, "Health check server shutdown failed", err)
			}
		}()
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting race",
		"race_id", raceID,
		"track", trackLabel(cfg),
		"cars", session.CarCount(),
		"fps", cfg.Session.FPS,
	)
	runErr := session.Run(runCtx)

	state := session.State()
	logger.Info(ctx, "Race ended",
		"ticks", state.Tick,
		"elapsed", state.Elapsed,
		"finishers", state.Finishers,
	)
	for _, line := range session.Standings() {
		fmt.Println(line)
	}
	return runErr
}

// newRecorder stamps race and lap rows with the session clock so fixed-step
// runs record simulated time.
func newRecorder(cfg *config.RaceConfig, store *results.Store, raceID string, session *engine.Session, logger *logging.Logger) *results.Recorder {
	rec := results.NewRecorder(store, raceID, trackLabel(cfg), session.Clock(), logger)
	rec.UseBreaker(breaker.New("results", cfg.Results.Breaker, logger))
	return rec
}

func startHealthServer(ctx context.Context, cfg config.HealthConfig, session *engine.Session, store *results.Store, logger *logging.Logger) *http.Server {
	healthChecker := health.NewHealthChecker()
	healthChecker.AddCheck(health.NewSessionHealthCheck(func() bool {
		return session.Status() == engine.StatusActive
	}))
	healthChecker.AddCheck(health.NewTickProgressHealthCheck(cfg.StallTimeout, session.LastTick, session.Clock().Now))
	if store != nil {
		healthChecker.AddCheck(health.NewStoreHealthCheck(store.Ping))
	}
	healthChecker.AddCheck(health.NewMemoryHealthCheck(cfg.MaxMemoryMB, health.CurrentMemoryMB))

	server := health.NewServer(cfg.Address, healthChecker)
	go func() {
		logger.Info(ctx, "Starting health check server", "address", cfg.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Health check server failed", err)
		}
	}()
	return server
}

func trackLabel(cfg *config.RaceConfig) string {
	if cfg.Track.Path != "" {
		return cfg.Track.Path
	}
	return cfg.Track.Template
}
