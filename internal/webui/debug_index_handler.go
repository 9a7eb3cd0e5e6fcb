package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/davecgh/go-spew/spew"

	"commute.trackapp.dev/internal/appconf"
	"commute.trackapp.dev/internal/logging"
)

//go:embed debug_index.html
var templateFS embed.FS

const recentTripsShown = 50

const redacted = "[redacted]"

type debugData struct {
	Title string
	Pre   string
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	tmpl, err := template.ParseFS(templateFS, "debug_index.html")
	if err != nil {
		slog.Error("failed to parse debug template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, debugData{Title: title, Pre: spew.Sdump(data)}); err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// debugIndexHandler dumps store and session state. It is hidden in production.
func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	var (
		data  interface{}
		title string
		err   error
	)

	switch r.URL.Query().Get("dataType") {
	case "tables":
		title = "Store - Row counts"
		data, err = webUI.DB.TableCounts(ctx)
	case "trips":
		title = "Store - Recent trips"
		data, err = webUI.DB.Queries.ListRecentTripLogs(ctx, recentTripsShown)
	case "open_trips":
		title = "Store - Open trips"
		data, err = webUI.DB.Queries.ListOpenTripLogs(ctx)
	case "patterns":
		title = "Store - Commute patterns"
		data, err = webUI.DB.Queries.ListPatterns(ctx)
	case "tracking":
		title = "GO mode - Sessions"
		data = map[string]int{"active_sessions": webUI.Tracking.Count()}
	case "config":
		title = "Configuration"
		data = redactConfig(webUI.Config)
	default:
		title = "Choose a data type"
		data = map[string]string{
			"error": "Please use one of the following: tables, trips, open_trips, patterns, tracking, config.",
		}
	}

	if err != nil {
		logging.LogError(logging.FromContext(ctx), "debug query failed", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeDebugData(w, title, data)
}

// redactConfig hides API keys and any credentials embedded in connection strings.
func redactConfig(cfg appconf.Config) appconf.Config {
	if len(cfg.ApiKeys) > 0 {
		cfg.ApiKeys = []string{redacted}
	}
	if len(cfg.RateLimitExemptKeys) > 0 {
		cfg.RateLimitExemptKeys = []string{redacted}
	}
	if cfg.DatabaseDriver == appconf.DriverPostgres {
		cfg.DatabaseDSN = redactURL(cfg.DatabaseDSN)
	}
	cfg.NATSURL = redactURL(cfg.NATSURL)
	cfg.RedisURL = redactURL(cfg.RedisURL)
	return cfg
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	if u.User != nil {
		u.User = url.User(redacted)
	}
	return u.String()
}
