package logging

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCloser struct{ closed bool }

func (f *failingCloser) Close() error {
	f.closed = true
	return errors.New("disk on fire")
}

type fakeTx struct{ err error }

func (f fakeTx) Rollback() error { return f.err }

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestLogOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", false)

	LogOperation(logger, "trip_started", slog.String("route_id", "L"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "trip_started", lines[0]["msg"])
	assert.Equal(t, "L", lines[0]["route_id"])
	assert.Equal(t, "INFO", lines[0]["level"])
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", false)

	LogError(logger, "pattern lookup failed", errors.New("boom"), slog.String("component", "learner"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, "learner", lines[0]["component"])
}

func TestLogHTTPRequest_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "production", false)
		LogHTTPRequest(logger, "GET", "/api/suggestion", tt.status, 1.5)

		lines := decodeLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, tt.level, lines[0]["level"])
		assert.Equal(t, float64(tt.status), lines[0]["status"])
	}
}

func TestSafeCloseWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", false)
	c := &failingCloser{}

	SafeCloseWithLogging(c, logger, "rows")

	assert.True(t, c.closed)
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "rows", lines[0]["resource"])
}

func TestSafeRollbackWithLogging_IgnoresTxDone(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", false)

	SafeRollbackWithLogging(fakeTx{err: sql.ErrTxDone}, logger, "commit_path")
	assert.Zero(t, buf.Len())

	SafeRollbackWithLogging(fakeTx{err: errors.New("broken")}, logger, "failure_path")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "failure_path", lines[0]["operation"])
}

func TestContextLogger(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	logger := NewLogger(&bytes.Buffer{}, "development", true)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}
