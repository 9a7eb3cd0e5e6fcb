package restapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"

	"commute.trackapp.dev/internal/app"
)

// Cache tiers in seconds. Zero disables caching.
const (
	cacheStatic   = 300
	cacheRealtime = 30
	cacheNone     = 0
)

type RestAPI struct {
	*app.Application
	rateLimiter   *RateLimitMiddleware
	staleDetector *StaleDetector
	upgrader      websocket.Upgrader
}

func NewRestAPI(app *app.Application) *RestAPI {
	limiter := NewRateLimitMiddleware(app.Config.RateLimit, time.Second, app.Config.RateLimitExemptKeys, app.Clock).
		WithKeyCheck(app.IsInvalidAPIKey)

	return &RestAPI{
		Application:   app,
		rateLimiter:   limiter,
		staleDetector: NewStaleDetector(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The rider's own device is the only client and is not a browser.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Shutdown stops background work owned by the API.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}

// SetRoutes registers every endpoint on mux.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", api.healthHandler)

	api.handle(mux, "GET /api/current-time", cacheRealtime, api.currentTimeHandler)

	api.handle(mux, "POST /api/trips", cacheNone, api.beginTripHandler)
	api.handle(mux, "POST /api/trips/{id}/end", cacheNone, api.endTripHandler)

	api.handle(mux, "GET /api/delays/historic", cacheNone, api.historicDelaysHandler)
	api.handle(mux, "GET /api/delays/stats", cacheNone, api.delayStatsHandler)
	api.handle(mux, "POST /api/real-feel", cacheNone, api.realFeelHandler)

	api.handle(mux, "POST /api/patterns", cacheNone, api.recordPatternHandler)
	api.handle(mux, "DELETE /api/patterns", cacheNone, api.forgetPatternsHandler)

	api.handle(mux, "GET /api/suggestion", cacheNone, api.suggestionHandler)
	api.handle(mux, "GET /api/suggestion/ambient", cacheNone, api.ambientSuggestionHandler)

	api.handle(mux, "GET /api/stops/nearby", cacheStatic, api.nearbyStopsHandler)
	api.handle(mux, "GET /api/routes/{id}/stops", cacheStatic, api.routeStopsHandler)

	api.handle(mux, "POST /api/tracking", cacheNone, api.startTrackingHandler)
	api.handle(mux, "POST /api/tracking/{id}/fixes", cacheNone, api.trackingFixHandler)
	api.handle(mux, "GET /api/tracking/{id}", cacheNone, api.trackingSnapshotHandler)
	api.handle(mux, "DELETE /api/tracking/{id}", cacheNone, api.endTrackingHandler)

	// The stream hijacks the connection, so it skips compression and caching.
	mux.Handle("GET /api/tracking/{id}/stream",
		api.rateLimiter.Handler()(api.requireAPIKey(http.HandlerFunc(api.trackingStreamHandler))))
}

// handle wraps h in rate limit, key check, gzip and cache headers, outermost first.
func (api *RestAPI) handle(mux *http.ServeMux, pattern string, cacheSeconds int, h http.HandlerFunc) {
	var handler http.Handler = CacheControlMiddleware(cacheSeconds, h)
	handler = gzhttp.GzipHandler(handler)
	handler = api.requireAPIKey(handler)
	handler = api.rateLimiter.Handler()(handler)
	mux.Handle(pattern, handler)
}

func (api *RestAPI) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.sendUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithMiddleware wraps the routed mux in the request id, logging and metrics
// middleware, outermost first.
func (api *RestAPI) WithMiddleware(h http.Handler) http.Handler {
	h = MetricsHandler(api.Metrics)(h)
	h = NewRequestLoggingMiddleware(api.Logger)(h)
	return RequestIDMiddleware(h)
}
