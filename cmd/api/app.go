package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"commute.trackapp.dev/commutedb"
	"commute.trackapp.dev/internal/app"
	"commute.trackapp.dev/internal/appconf"
	"commute.trackapp.dev/internal/clock"
	"commute.trackapp.dev/internal/commute"
	"commute.trackapp.dev/internal/events"
	"commute.trackapp.dev/internal/logging"
	"commute.trackapp.dev/internal/metrics"
	"commute.trackapp.dev/internal/restapi"
	"commute.trackapp.dev/internal/tracking"
	"commute.trackapp.dev/internal/transit"
	"commute.trackapp.dev/internal/webui"
)

// PinnedTimeEnv, when set, freezes the server clock at the given instant.
const PinnedTimeEnv = "COMMUTE_PINNED_TIME"

const (
	sessionSweepInterval = time.Minute
	dbStatsInterval      = 15 * time.Second
	eventConnectTimeout  = 5 * time.Second
)

// BuildApplication opens the store, connects the event sinks and wires the
// engine, tracking manager and stop directory into one Application.
func BuildApplication(cfg appconf.Config) (*app.Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(os.Stdout, cfg.Env.String(), cfg.Verbose)
	slog.SetDefault(logger)

	var clk clock.Clock = clock.RealClock{}
	if os.Getenv(PinnedTimeEnv) != "" {
		clk = clock.NewEnvironmentClock(PinnedTimeEnv, "", loc)
	}

	db, err := commutedb.NewClient(commutedb.NewConfig(cfg.DatabaseDriver, cfg.DatabaseDSN, cfg.Env, cfg.Verbose))
	if err != nil {
		return nil, fmt.Errorf("failed to open commute store: %w", err)
	}

	m := metrics.NewWithLogger(logger)

	publisher, err := buildPublisher(cfg)
	if err != nil {
		logging.SafeCloseWithLogging(db, logger, "commute store")
		return nil, err
	}
	emitter := events.NewEmitter(publisher, m)

	var stops *transit.StopDirectory
	if cfg.GTFSStaticPath != "" {
		stops, err = transit.LoadStopDirectory(cfg.GTFSStaticPath)
		if err != nil {
			logging.SafeCloseWithLogging(emitter, logger, "event emitter")
			logging.SafeCloseWithLogging(db, logger, "commute store")
			return nil, fmt.Errorf("failed to load transit feed: %w", err)
		}
		logging.LogOperation(logger, "transit_feed_loaded",
			slog.String("path", cfg.GTFSStaticPath),
			slog.Int("stops", stops.Len()))
	}

	engine := commute.NewEngine(db.Queries, db.Queries, clk, commute.Config{
		MatchRadiusMeters: cfg.MatchRadiusMeters,
		Location:          loc,
		RankByRecency:     cfg.RankByRecency,
	}, m, emitter)

	return &app.Application{
		Config:  cfg,
		Logger:  logger,
		Clock:   clk,
		Metrics: m,
		DB:      db,
		Engine:  engine,
		Tracking: tracking.NewManager(tracking.ManagerConfig{
			StopPassedThresholdMeters: cfg.StopPassedThresholdMeters,
			SessionTTL:                cfg.TrackingSessionTTL,
		}, clk, m, emitter),
		Stops:  stops,
		Events: emitter,
	}, nil
}

// buildPublisher connects every configured event sink. With none configured
// events are dropped.
func buildPublisher(cfg appconf.Config) (events.Publisher, error) {
	var sinks events.MultiPublisher
	if cfg.NATSURL != "" {
		p, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		sinks = append(sinks, p)
	}
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), eventConnectTimeout)
		defer cancel()
		p, err := events.NewRedisPublisher(ctx, cfg.RedisURL, cfg.RedisChannel)
		if err != nil {
			_ = sinks.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		sinks = append(sinks, p)
	}

	switch len(sinks) {
	case 0:
		return events.NoopPublisher{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

// CreateServer builds the HTTP server with the REST routes, the Prometheus
// endpoint and the debug pages behind the shared middleware chain.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(coreApp.Metrics.Registry, promhttp.HandlerOpts{}))

	ui := &webui.WebUI{Application: coreApp}
	ui.SetWebUIRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.WithMiddleware(mux),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv, api
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then drains
// connections and releases every resource the application holds.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger.With(slog.String("component", "server"))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go coreApp.Tracking.Run(ctx, sessionSweepInterval)
	coreApp.Metrics.StartDBStatsCollector(coreApp.DB.DB.DB, dbStatsInterval)

	serveErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "server_starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logging.LogOperation(logger, "server_shutting_down")
	case err := <-serveErr:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "server shutdown failed", err)
		runErr = errors.Join(runErr, err)
	}

	api.Shutdown()
	coreApp.Metrics.Shutdown()
	logging.SafeCloseWithLogging(coreApp.Events, logger, "event emitter")
	logging.SafeCloseWithLogging(coreApp.DB, logger, "commute store")

	if runErr == nil {
		logging.LogOperation(logger, "server_stopped")
	}
	return runErr
}
