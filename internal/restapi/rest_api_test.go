package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commute.trackapp.dev/internal/app"
)

func TestRoutesRequireAPIKey(t *testing.T) {
	api := createTestApi(t)
	server := serveApi(t, api)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"no key", "/api/current-time", "", http.StatusUnauthorized},
		{"wrong key", "/api/current-time?key=nope", "", http.StatusUnauthorized},
		{"query key", "/api/current-time?key=" + testAPIKey, "", http.StatusOK},
		{"header key", "/api/current-time", testAPIKey, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, server.URL+tt.path, nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set(app.APIKeyHeader, tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestHealthzIsOpen(t *testing.T) {
	server := serveApi(t, createTestApi(t))

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestResponsesCarryRequestID(t *testing.T) {
	server := serveApi(t, createTestApi(t))

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/current-time", nil)
	require.NoError(t, err)
	req.Header.Set(app.APIKeyHeader, testAPIKey)
	req.Header.Set(RequestIDHeader, "trace-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "trace-42", resp.Header.Get(RequestIDHeader))
}

func TestResponsesVaryOnEncoding(t *testing.T) {
	server := serveApi(t, createTestApi(t))

	resp, _ := callApi(t, server, http.MethodGet, "/api/routes/L/stops", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Values("Vary"), "Accept-Encoding")
}

func TestCacheControlHeaders(t *testing.T) {
	server := serveApi(t, createTestApi(t))

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"stop data", "/api/routes/L/stops", "public, max-age=300"},
		{"clock", "/api/current-time", "public, max-age=30"},
		{"suggestion", "/api/suggestion/ambient", noCacheHeader},
		{"error response", "/api/routes/Z/stops", noCacheHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := callApi(t, server, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.expected, resp.Header.Get("Cache-Control"))
		})
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	server := serveApi(t, createTestApi(t))

	resp, err := http.Get(server.URL + "/api/nope")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCurrentTimeHandler(t *testing.T) {
	server := serveApi(t, createTestApi(t))

	resp, env := callApi(t, server, http.MethodGet, "/api/current-time", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.StatusOK, env.Code)
	assert.Equal(t, testNow.UnixMilli(), env.CurrentTime)

	var data struct {
		Time      int64 `json:"time"`
		HourOfDay int   `json:"hourOfDay"`
		DayOfWeek int   `json:"dayOfWeek"`
	}
	decodeData(t, env, &data)
	assert.Equal(t, testNow.UnixMilli(), data.Time)
	assert.Equal(t, 8, data.HourOfDay)
	assert.Equal(t, 3, data.DayOfWeek)
}
