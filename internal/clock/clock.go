// Package clock abstracts wall-clock time so trip bucketing and suggestion
// windows can be tested against fixed instants.
package clock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
	NowUnixMilli() int64
}

// RealClock reads the system time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NowUnixMilli() int64 { return time.Now().UnixMilli() }

// MockClock is a settable, thread-safe clock for tests.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

func (m *MockClock) NowUnixMilli() int64 {
	return m.Now().UnixMilli()
}

// Set changes the mock clock's current time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
}

// Advance moves the clock by d, which may be negative.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

// EnvironmentClock replays a pinned instant from an environment variable or a
// file, falling back to system time. It lets a deployed instance be pointed at
// a fixed commute hour when reproducing a suggestion.
type EnvironmentClock struct {
	envVar   string
	filePath string
	location *time.Location
}

func NewEnvironmentClock(envVar, filePath string, location *time.Location) *EnvironmentClock {
	return &EnvironmentClock{envVar: envVar, filePath: filePath, location: location}
}

func (e *EnvironmentClock) Now() time.Time {
	if e.envVar != "" {
		if v := os.Getenv(e.envVar); v != "" {
			if t, err := e.parseTime(v); err == nil {
				return t
			}
		}
	}
	if e.filePath != "" {
		if data, err := os.ReadFile(e.filePath); err == nil {
			if t, err := e.parseTime(string(data)); err == nil {
				return t
			}
		}
	}
	if e.envVar != "" || e.filePath != "" {
		slog.Warn("EnvironmentClock: no pinned time available, using system time",
			slog.String("envVar", e.envVar), slog.String("filePath", e.filePath))
	}
	return time.Now()
}

func (e *EnvironmentClock) NowUnixMilli() int64 {
	return e.Now().UnixMilli()
}

func (e *EnvironmentClock) parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if e.location == nil {
		return time.Time{}, errors.New("timezone not configured")
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, e.location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q: expected RFC3339 or YYYY-MM-DD HH:MM[:SS]", s)
}
