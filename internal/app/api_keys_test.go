package app

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"commute.trackapp.dev/internal/appconf"
)

func TestIsInvalidAPIKey(t *testing.T) {
	withKeys := &Application{Config: appconf.Config{ApiKeys: []string{"alpha", "beta"}}}
	open := &Application{}

	tests := []struct {
		name    string
		app     *Application
		key     string
		invalid bool
	}{
		{"configured key", withKeys, "beta", false},
		{"unknown key", withKeys, "gamma", true},
		{"missing key", withKeys, "", true},
		{"prefix of a key", withKeys, "alp", true},
		{"no keys configured", open, "", false},
		{"no keys configured with key", open, "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.invalid, tt.app.IsInvalidAPIKey(tt.key))
		})
	}
}

func TestRequestAPIKey(t *testing.T) {
	t.Run("query parameter", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/suggestion?key=alpha", nil)
		assert.Equal(t, "alpha", RequestAPIKey(r))
	})

	t.Run("header wins over query", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/suggestion?key=alpha", nil)
		r.Header.Set(APIKeyHeader, " beta ")
		assert.Equal(t, "beta", RequestAPIKey(r))
	})

	t.Run("request check", func(t *testing.T) {
		a := &Application{Config: appconf.Config{ApiKeys: []string{"alpha"}}}
		r := httptest.NewRequest("GET", "/api/suggestion", nil)
		assert.True(t, a.RequestHasInvalidAPIKey(r))
		r.Header.Set(APIKeyHeader, "alpha")
		assert.False(t, a.RequestHasInvalidAPIKey(r))
	})
}
