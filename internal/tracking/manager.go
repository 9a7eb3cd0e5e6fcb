package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"commute.trackapp.dev/internal/clock"
	"commute.trackapp.dev/internal/events"
	"commute.trackapp.dev/internal/logging"
	"commute.trackapp.dev/internal/metrics"
	"commute.trackapp.dev/internal/models"
)

var (
	ErrSessionNotFound = errors.New("tracking session not found")
	ErrNoStops         = errors.New("route has no stops to track")
)

const DefaultSessionTTL = 3 * time.Hour

type ManagerConfig struct {
	StopPassedThresholdMeters float64
	// SessionTTL is how long a session may go without a fix before Sweep
	// removes it.
	SessionTTL time.Duration
}

// Manager owns the open GO-mode sessions. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg     ManagerConfig
	clock   clock.Clock
	metrics *metrics.Metrics
	emitter *events.Emitter
	logger  *slog.Logger
	newID   func() string
}

func NewManager(cfg ManagerConfig, clk clock.Clock, m *metrics.Metrics, emitter *events.Emitter) *Manager {
	if cfg.StopPassedThresholdMeters <= 0 {
		cfg.StopPassedThresholdMeters = DefaultStopPassedThresholdMeters
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		clock:    clk,
		metrics:  m,
		emitter:  emitter,
		logger:   slog.Default().With(slog.String("component", "tracking")),
		newID:    uuid.NewString,
	}
}

// Start opens a session over the route's stops, in travel order.
func (m *Manager) Start(routeID string, stops []models.Stop) (Snapshot, error) {
	if len(stops) == 0 {
		return Snapshot{}, ErrNoStops
	}

	s := newSession(m.newID(), routeID, stops, m.cfg.StopPassedThresholdMeters, m.clock.Now())

	m.mu.Lock()
	m.sessions[s.ID()] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetTrackingSessions(count)
	logging.LogOperation(m.logger, "tracking_started",
		slog.String("session_id", s.ID()),
		slog.String("route_id", routeID),
		slog.Int("stops", len(stops)))
	return s.snapshot(), nil
}

// Update feeds a location fix to the session and returns its new state.
func (m *Manager) Update(ctx context.Context, id string, fix models.LocationFix) (Snapshot, error) {
	s, err := m.session(id)
	if err != nil {
		return Snapshot{}, err
	}

	snap := s.update(fix, m.clock.Now())
	if len(snap.NewlyPassed) > 0 {
		m.metrics.StopsMarkedPassed(len(snap.NewlyPassed))
		m.emitter.Emit(ctx, events.Event{
			Type:      events.StopPassed,
			At:        snap.UpdatedAt,
			RouteID:   snap.RouteID,
			SessionID: snap.SessionID,
			StopIDs:   snap.NewlyPassed,
		})
	}
	return snap, nil
}

func (m *Manager) Snapshot(id string) (Snapshot, error) {
	s, err := m.session(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(), nil
}

// End closes the session and discards its passed set.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	m.metrics.SetTrackingSessions(count)
	logging.LogOperation(m.logger, "tracking_ended", slog.String("session_id", id))
	return nil
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep ends sessions that have not seen a fix within the TTL and returns how
// many it removed.
func (m *Manager) Sweep() int {
	cutoff := m.clock.Now().Add(-m.cfg.SessionTTL)

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if removed > 0 {
		m.metrics.SetTrackingSessions(count)
		logging.LogOperation(m.logger, "tracking_sessions_expired", slog.Int("count", removed))
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) session(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}
