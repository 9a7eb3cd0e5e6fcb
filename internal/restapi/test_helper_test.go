package restapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/stretchr/testify/require"

	"commute.trackapp.dev/commutedb"
	"commute.trackapp.dev/internal/app"
	"commute.trackapp.dev/internal/appconf"
	"commute.trackapp.dev/internal/clock"
	"commute.trackapp.dev/internal/commute"
	"commute.trackapp.dev/internal/events"
	"commute.trackapp.dev/internal/metrics"
	"commute.trackapp.dev/internal/tracking"
	"commute.trackapp.dev/internal/transit"
)

const testAPIKey = "TEST"

// testNow is Tuesday 3 March 2026, 08:15 UTC: weekday rush hour.
var testNow = time.Date(2026, 3, 3, 8, 15, 0, 0, time.UTC)

// Bedford Av, 1 Av and 8 Av on the L.
var (
	bedfordAv = [2]float64{40.717304, -73.956872}
	firstAv   = [2]float64{40.730953, -73.981628}
	eighthAv  = [2]float64{40.739777, -74.002578}
)

func ptr[T any](v T) *T { return &v }

func lineFeed() *gtfs.Static {
	stops := []gtfs.Stop{
		{Id: "L08", Name: "Bedford Av", Latitude: ptr(bedfordAv[0]), Longitude: ptr(bedfordAv[1])},
		{Id: "L06", Name: "1 Av", Latitude: ptr(firstAv[0]), Longitude: ptr(firstAv[1])},
		{Id: "L01", Name: "8 Av", Latitude: ptr(eighthAv[0]), Longitude: ptr(eighthAv[1])},
	}
	route := &gtfs.Route{Id: "L"}
	return &gtfs.Static{
		Routes: []gtfs.Route{*route},
		Stops:  stops,
		Trips: []gtfs.ScheduledTrip{
			{ID: "west", Route: route, Headsign: "8 Av", StopTimes: []gtfs.ScheduledStopTime{{Stop: &stops[0], StopSequence: 1}, {Stop: &stops[1], StopSequence: 2}, {Stop: &stops[2], StopSequence: 3}}},
			{ID: "east", Route: route, Headsign: "Canarsie", DirectionId: gtfs.DirectionID(1), StopTimes: []gtfs.ScheduledStopTime{{Stop: &stops[2], StopSequence: 1}, {Stop: &stops[1], StopSequence: 2}, {Stop: &stops[0], StopSequence: 3}}},
		},
	}
}

func createTestApi(t *testing.T) *RestAPI {
	return createTestApiWith(t, nil)
}

// createTestApiWith builds a fully wired API on an in-memory store. mutate may
// adjust the application before the API is created.
func createTestApiWith(t *testing.T, mutate func(*app.Application)) *RestAPI {
	t.Helper()

	client, err := commutedb.NewClient(commutedb.NewConfig(appconf.DriverSQLite3, ":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cfg := appconf.Defaults()
	cfg.Env = appconf.Test
	cfg.ApiKeys = []string{testAPIKey}
	cfg.Timezone = "UTC"

	clk := clock.NewMockClock(testNow)
	m := metrics.New()
	emitter := events.NewEmitter(events.NoopPublisher{}, m)

	application := &app.Application{
		Config:  cfg,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:   clk,
		Metrics: m,
		DB:      client,
		Engine: commute.NewEngine(client.Queries, client.Queries, clk,
			commute.Config{MatchRadiusMeters: cfg.MatchRadiusMeters, Location: time.UTC}, m, emitter),
		Tracking: tracking.NewManager(tracking.ManagerConfig{}, clk, m, emitter),
		Stops:    transit.NewStopDirectory(lineFeed()),
		Events:   emitter,
	}
	if mutate != nil {
		mutate(application)
	}

	api := NewRestAPI(application)
	t.Cleanup(api.Shutdown)
	return api
}

func mockClock(api *RestAPI) *clock.MockClock {
	return api.Clock.(*clock.MockClock)
}

func serveApi(t *testing.T, api *RestAPI) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	server := httptest.NewServer(api.WithMiddleware(mux))
	t.Cleanup(server.Close)
	return server
}

type testEnvelope struct {
	Code        int             `json:"code"`
	CurrentTime int64           `json:"currentTime"`
	Text        string          `json:"text"`
	Version     int             `json:"version"`
	Data        json.RawMessage `json:"data"`
}

// callApi sends body as JSON with the test key and decodes the envelope.
func callApi(t *testing.T, server *httptest.Server, method, path string, body interface{}) (*http.Response, testEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set(app.APIKeyHeader, testAPIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env testEnvelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	}
	return resp, env
}

func decodeData(t *testing.T, env testEnvelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst), "data: %s", env.Data)
}
