package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commute.trackapp.dev/internal/appconf"
	"commute.trackapp.dev/internal/clock"
	"commute.trackapp.dev/internal/events"
)

func testConfig(port int) appconf.Config {
	cfg := appconf.Defaults()
	cfg.Port = port
	cfg.Env = appconf.Test
	cfg.ApiKeys = []string{"test"}
	cfg.DatabaseDSN = ":memory:"
	cfg.Timezone = "UTC"
	return cfg
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestBuildApplicationWithMemoryDB(t *testing.T) {
	cfg := testConfig(4000)

	coreApp, err := BuildApplication(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = coreApp.DB.Close() })

	assert.NotNil(t, coreApp.Logger, "Logger should be initialized")
	assert.NotNil(t, coreApp.Engine)
	assert.NotNil(t, coreApp.Tracking)
	assert.NotNil(t, coreApp.Events)
	assert.Nil(t, coreApp.Stops, "no feed configured")
	assert.Equal(t, cfg, coreApp.Config)
	assert.IsType(t, clock.RealClock{}, coreApp.Clock)
	assert.NoError(t, coreApp.DB.Ping(context.Background()))
}

func TestBuildApplicationPinnedClock(t *testing.T) {
	t.Setenv(PinnedTimeEnv, "2026-03-03T08:15:00Z")

	coreApp, err := BuildApplication(testConfig(4000))
	require.NoError(t, err)
	t.Cleanup(func() { _ = coreApp.DB.Close() })

	assert.Equal(t, time.Date(2026, 3, 3, 8, 15, 0, 0, time.UTC), coreApp.Clock.Now().UTC())
}

func TestBuildApplicationErrorHandling(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*appconf.Config)
		errText string
	}{
		{"invalid config", func(c *appconf.Config) { c.Port = -1 }, "invalid configuration"},
		{"unknown time zone", func(c *appconf.Config) { c.Timezone = "Mars/Olympus" }, "invalid configuration"},
		{"missing feed", func(c *appconf.Config) { c.GTFSStaticPath = "/nonexistent/gtfs.zip" }, "failed to load transit feed"},
		{"bad redis url", func(c *appconf.Config) { c.RedisURL = "not-a-url" }, "failed to connect to Redis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(4000)
			tt.mutate(&cfg)
			_, err := BuildApplication(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestBuildPublisherDefaultsToNoop(t *testing.T) {
	p, err := buildPublisher(testConfig(4000))
	require.NoError(t, err)
	assert.IsType(t, events.NoopPublisher{}, p)
}

func TestCreateServer(t *testing.T) {
	cfg := testConfig(8080)
	coreApp, err := BuildApplication(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = coreApp.DB.Close() })

	srv, api := CreateServer(coreApp, cfg)
	defer api.Shutdown()

	assert.Equal(t, ":8080", srv.Addr)
	assert.NotNil(t, srv.Handler)
	assert.Equal(t, time.Minute, srv.IdleTimeout)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
	assert.Equal(t, 10*time.Second, srv.WriteTimeout)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/current-time?key=test", http.StatusOK},
		{"/api/current-time", http.StatusUnauthorized},
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/debug/?dataType=tables", http.StatusOK},
		{"/api/stops/nearby?key=test&lat=40.7&lon=-73.9", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRunStopsWhenContextIsCancelled(t *testing.T) {
	cfg := testConfig(freePort(t))
	coreApp, err := BuildApplication(cfg)
	require.NoError(t, err)

	srv, api := CreateServer(coreApp, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, coreApp, api) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + net.JoinHostPort("127.0.0.1", srv.Addr[1:]) + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Error(t, coreApp.DB.Ping(context.Background()), "store is closed after shutdown")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, appconf.Defaults().MatchRadiusMeters, cfg.MatchRadiusMeters)
	})

	t.Run("file then environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"port": 5000, "env": "production", "api_keys": ["k1"]}`), 0o600))
		t.Setenv("COMMUTE_PORT", "6000")

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 6000, cfg.Port)
		assert.Equal(t, appconf.Production, cfg.Env)
		assert.Equal(t, []string{"k1"}, cfg.ApiKeys)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}
