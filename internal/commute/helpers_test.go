package commute

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"commute.trackapp.dev/commutedb"
	"commute.trackapp.dev/internal/appconf"
	"commute.trackapp.dev/internal/clock"
	"commute.trackapp.dev/internal/events"
)

var errStoreDown = errors.New("store unavailable")

// tuesdayAt returns Tuesday 3 March 2026 at the given UTC hour and minute.
func tuesdayAt(hour, minute int) time.Time {
	return time.Date(2026, 3, 3, hour, minute, 0, 0, time.UTC)
}

// flakyStore is a real in-memory store whose calls can be made to fail.
type flakyStore struct {
	*commutedb.Queries

	failCreateTrip    bool
	failFinalize      bool
	failListOpen      bool
	failHistoric      bool
	failCandidates    bool
	failCreatePattern bool
	failTouch         bool
	failWindow        bool
}

func newFlakyStore(t *testing.T) *flakyStore {
	t.Helper()
	client, err := commutedb.NewClient(commutedb.NewConfig(appconf.DriverSQLite3, ":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return &flakyStore{Queries: client.Queries}
}

func (s *flakyStore) CreateTripLog(ctx context.Context, arg commutedb.CreateTripLogParams) (commutedb.TripLog, error) {
	if s.failCreateTrip {
		return commutedb.TripLog{}, errStoreDown
	}
	return s.Queries.CreateTripLog(ctx, arg)
}

func (s *flakyStore) FinalizeTripLog(ctx context.Context, arg commutedb.FinalizeTripLogParams) error {
	if s.failFinalize {
		return errStoreDown
	}
	return s.Queries.FinalizeTripLog(ctx, arg)
}

func (s *flakyStore) ListOpenTripLogs(ctx context.Context) ([]commutedb.TripLog, error) {
	if s.failListOpen {
		return nil, errStoreDown
	}
	return s.Queries.ListOpenTripLogs(ctx)
}

func (s *flakyStore) ListHistoricDelays(ctx context.Context, arg commutedb.ListHistoricDelaysParams) ([]int64, error) {
	if s.failHistoric {
		return nil, errStoreDown
	}
	return s.Queries.ListHistoricDelays(ctx, arg)
}

func (s *flakyStore) ListPatternCandidates(ctx context.Context, arg commutedb.ListPatternCandidatesParams) ([]commutedb.CommutePattern, error) {
	if s.failCandidates {
		return nil, errStoreDown
	}
	return s.Queries.ListPatternCandidates(ctx, arg)
}

func (s *flakyStore) CreatePattern(ctx context.Context, arg commutedb.CreatePatternParams) (commutedb.CommutePattern, error) {
	if s.failCreatePattern {
		return commutedb.CommutePattern{}, errStoreDown
	}
	return s.Queries.CreatePattern(ctx, arg)
}

func (s *flakyStore) TouchPattern(ctx context.Context, arg commutedb.TouchPatternParams) (commutedb.CommutePattern, error) {
	if s.failTouch {
		return commutedb.CommutePattern{}, errStoreDown
	}
	return s.Queries.TouchPattern(ctx, arg)
}

func (s *flakyStore) ListPatternsInHourWindow(ctx context.Context, arg commutedb.ListPatternsInHourWindowParams) ([]commutedb.CommutePattern, error) {
	if s.failWindow {
		return nil, errStoreDown
	}
	return s.Queries.ListPatternsInHourWindow(ctx, arg)
}

func testConfig() Config {
	return Config{MatchRadiusMeters: 200, Location: time.UTC}
}

// recordingPublisher keeps every event it is given.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestEngine(t *testing.T, now time.Time) (*Engine, *flakyStore, *clock.MockClock, *recordingPublisher) {
	t.Helper()
	store := newFlakyStore(t)
	clk := clock.NewMockClock(now)
	pub := &recordingPublisher{}
	engine := NewEngine(store, store, clk, testConfig(), nil, events.NewEmitter(pub, nil))
	return engine, store, clk, pub
}

// metersNorth returns a latitude d meters north of lat on the spherical model.
func metersNorth(lat, d float64) float64 {
	return lat + d/111_195.1
}
