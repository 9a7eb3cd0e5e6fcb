package app

import (
	"log/slog"

	"commute.trackapp.dev/commutedb"
	"commute.trackapp.dev/internal/appconf"
	"commute.trackapp.dev/internal/clock"
	"commute.trackapp.dev/internal/commute"
	"commute.trackapp.dev/internal/events"
	"commute.trackapp.dev/internal/metrics"
	"commute.trackapp.dev/internal/tracking"
	"commute.trackapp.dev/internal/transit"
)

// Application holds the dependencies shared by the HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config   appconf.Config
	Logger   *slog.Logger
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	DB       *commutedb.Client
	Engine   *commute.Engine
	Tracking *tracking.Manager
	// Stops is nil when no GTFS feed is configured; stop lookups then fail
	// with 503.
	Stops  *transit.StopDirectory
	Events *events.Emitter
}
