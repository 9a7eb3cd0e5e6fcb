// Package webui serves the operator-facing debug pages.
package webui

import (
	"net/http"

	"commute.trackapp.dev/internal/app"
)

type WebUI struct {
	*app.Application
}

func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug/", webUI.debugIndexHandler)
}
