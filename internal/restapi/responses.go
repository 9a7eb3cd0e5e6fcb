package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"commute.trackapp.dev/commutedb"
	"commute.trackapp.dev/internal/logging"
	"commute.trackapp.dev/internal/models"
	"commute.trackapp.dev/internal/tracking"
	"commute.trackapp.dev/internal/transit"
)

const maxRequestBodyBytes = 1 << 20

var (
	errEmptyBody        = errors.New("request body must not be empty")
	errNoStopDirectory  = errors.New("no transit feed is loaded")
	errInvalidRequestID = errors.New("invalid id")
)

func setJSONResponseType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
}

// sendResponse writes the envelope with its Code as the HTTP status.
func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	setJSONResponseType(w)
	if response.Code != 0 && response.Code != http.StatusOK {
		w.WriteHeader(response.Code)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to encode response", err)
	}
}

func (api *RestAPI) sendOK(w http.ResponseWriter, r *http.Request, data interface{}) {
	api.sendResponse(w, r, models.NewOKResponse(data, api.Clock))
}

func (api *RestAPI) sendCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	api.sendResponse(w, r, models.NewResponse(http.StatusCreated, "Created", data, api.Clock))
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	api.sendResponse(w, r, models.NewResponse(code, message, nil, api.Clock))
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request, err error) {
	api.sendError(w, r, http.StatusNotFound, err.Error())
}

func (api *RestAPI) sendUnauthorized(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusUnauthorized, "permission denied")
}

func (api *RestAPI) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	api.sendError(w, r, http.StatusBadRequest, err.Error())
}

// serverErrorResponse logs err with the request context and hides it from the client.
func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "request failed", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))
	api.sendError(w, r, http.StatusInternalServerError, "internal server error")
}

// errorResponse maps domain errors to statuses. Anything unknown is a 500.
func (api *RestAPI) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, commutedb.ErrTripNotFound),
		errors.Is(err, tracking.ErrSessionNotFound),
		errors.Is(err, transit.ErrRouteNotFound):
		api.sendNotFound(w, r, err)
	case errors.Is(err, commutedb.ErrTripAlreadyFinalized):
		api.sendError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, tracking.ErrNoStops),
		errors.Is(err, models.ErrInvalidCoordinates):
		api.badRequest(w, r, err)
	case errors.Is(err, errNoStopDirectory):
		api.sendError(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		api.serverErrorResponse(w, r, err)
	}
}

// decodeJSON reads a single JSON object from the body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	err := decodeBody(w, r, dst)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return err
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	err := decodeBody(w, r, dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}
