package app

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyHeader may carry the key instead of the "key" query parameter.
const APIKeyHeader = "X-API-Key"

// RequestAPIKey returns the key from the header, falling back to the query.
func RequestAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}
	return r.URL.Query().Get("key")
}

func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	return app.IsInvalidAPIKey(RequestAPIKey(r))
}

// IsInvalidAPIKey reports whether key is missing or not configured. With no
// keys configured every request is accepted, which is how a single-rider
// device deployment runs.
func (app *Application) IsInvalidAPIKey(key string) bool {
	validKeys := app.Config.ApiKeys
	if len(validKeys) == 0 {
		return false
	}
	if key == "" {
		return true
	}

	for _, validKey := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			return false
		}
	}
	return true
}
