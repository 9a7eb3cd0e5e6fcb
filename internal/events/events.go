// Package events publishes trip and pattern lifecycle events to message brokers.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"commute.trackapp.dev/internal/logging"
	"commute.trackapp.dev/internal/metrics"
)

type Type string

const (
	TripStarted     Type = "trip.started"
	TripFinished    Type = "trip.finished"
	PatternRecorded Type = "pattern.recorded"
	StopPassed      Type = "stop.passed"
)

// Event is the JSON payload sent to every sink.
type Event struct {
	Type         Type      `json:"type"`
	At           time.Time `json:"at"`
	TripID       int64     `json:"tripId,omitempty"`
	RouteID      string    `json:"routeId,omitempty"`
	PatternID    int64     `json:"patternId,omitempty"`
	Outcome      string    `json:"outcome,omitempty"`
	DelaySeconds *int      `json:"delaySeconds,omitempty"`
	SessionID    string    `json:"sessionId,omitempty"`
	StopIDs      []string  `json:"stopIds,omitempty"`
}

type Publisher interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Name() string                        { return "noop" }
func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                        { return nil }

// MultiPublisher fans an event out to every sink and joins their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Name() string { return "multi" }

func (m MultiPublisher) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, &PublishError{Sink: p.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

func (m MultiPublisher) Close() error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// PublishError names the sink that rejected an event.
type PublishError struct {
	Sink string
	Err  error
}

func (e *PublishError) Error() string { return e.Sink + ": " + e.Err.Error() }
func (e *PublishError) Unwrap() error { return e.Err }

// Emitter sends events without ever failing the caller. Failures are logged
// and counted per sink.
type Emitter struct {
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewEmitter(publisher Publisher, m *metrics.Metrics) *Emitter {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Emitter{
		publisher: publisher,
		metrics:   m,
		logger:    slog.Default().With(slog.String("component", "events")),
	}
}

func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if e == nil {
		return
	}
	err := e.publisher.Publish(ctx, ev)
	if err == nil {
		return
	}

	sinks := failedSinks(err)
	if len(sinks) == 0 {
		sinks = []string{e.publisher.Name()}
	}
	for _, sink := range sinks {
		e.metrics.EventPublishFailed(sink)
	}
	logging.LogError(e.logger, "failed to publish event", err,
		slog.String("type", string(ev.Type)),
		slog.Any("sinks", sinks))
}

func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	return e.publisher.Close()
}

func failedSinks(err error) []string {
	var sinks []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			sinks = append(sinks, failedSinks(inner)...)
		}
		return sinks
	}
	var pe *PublishError
	if errors.As(err, &pe) {
		sinks = append(sinks, pe.Sink)
	}
	return sinks
}
