package restapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"commute.trackapp.dev/internal/logging"
	"commute.trackapp.dev/internal/models"
	"commute.trackapp.dev/internal/tracking"
)

const maxStreamMessageBytes = 4096

type streamMessageType string

const (
	streamSnapshot streamMessageType = "snapshot"
	streamError    streamMessageType = "error"
)

type streamMessage struct {
	Type     streamMessageType  `json:"type"`
	Snapshot *tracking.Snapshot `json:"snapshot,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// trackingStreamHandler upgrades to a websocket over which the client sends
// location fixes and receives a snapshot after each one. The current snapshot
// is sent on connect. Bad fixes are answered with an error message and the
// stream stays open; the stream closes when the session ends.
func (api *RestAPI) trackingStreamHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := api.Tracking.Snapshot(id)
	if err != nil {
		api.errorResponse(w, r, err)
		return
	}

	logger := logging.FromContext(r.Context()).With(slog.String("session_id", id))
	conn, err := api.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		logging.LogError(logger, "websocket upgrade failed", err)
		return
	}
	defer logging.SafeCloseWithLogging(conn, logger, "tracking stream")
	conn.SetReadLimit(maxStreamMessageBytes)

	if err := conn.WriteJSON(streamMessage{Type: streamSnapshot, Snapshot: &snap}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.LogError(logger, "tracking stream read failed", err)
			}
			return
		}

		var fix models.LocationFix
		if err := json.Unmarshal(data, &fix); err != nil {
			if conn.WriteJSON(streamMessage{Type: streamError, Error: "malformed fix"}) != nil {
				return
			}
			continue
		}
		if err := fix.Location().Validate(); err != nil {
			if conn.WriteJSON(streamMessage{Type: streamError, Error: err.Error()}) != nil {
				return
			}
			continue
		}

		snap, err := api.Tracking.Update(r.Context(), id, fix)
		if errors.Is(err, tracking.ErrSessionNotFound) {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
			return
		}
		if err != nil {
			logging.LogError(logger, "tracking update failed", err)
			return
		}
		if err := conn.WriteJSON(streamMessage{Type: streamSnapshot, Snapshot: &snap}); err != nil {
			return
		}
	}
}
