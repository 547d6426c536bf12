// Package telemetry forwards backend call failures to Sentry.
package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"launchalert/internal/clienterr"
	"launchalert/internal/config"
	"launchalert/internal/engine"
)

// Reporter captures engine failures on a dedicated Sentry hub.
// Params: hub (nil when DSN is empty) and flush timeout.
// Returns: engine.FailureReporter implementation.
type Reporter struct {
	hub   *sentry.Hub
	flush time.Duration
}

// New builds reporter from telemetry config.
// Params: telemetry section; empty DSN yields disabled reporter.
// Returns: reporter or Sentry client setup error.
func New(cfg config.TelemetryConfig) (*Reporter, error) {
	if strings.TrimSpace(cfg.SentryDSN) == "" {
		return &Reporter{}, nil
	}
	return newWithOptions(cfg, sentry.ClientOptions{Dsn: strings.TrimSpace(cfg.SentryDSN)})
}

func newWithOptions(cfg config.TelemetryConfig, options sentry.ClientOptions) (*Reporter, error) {
	options.Environment = cfg.Environment
	options.Release = cfg.Release
	options.SampleRate = 1.0
	before := options.BeforeSend
	options.BeforeSend = func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
		event.User = sentry.User{}
		if before != nil {
			return before(event, hint)
		}
		return event
	}

	client, err := sentry.NewClient(options)
	if err != nil {
		return nil, fmt.Errorf("sentry client: %w", err)
	}
	return &Reporter{
		hub:   sentry.NewHub(client, sentry.NewScope()),
		flush: time.Duration(cfg.FlushMS) * time.Millisecond,
	}, nil
}

// Enabled reports whether failures are forwarded.
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// CaptureFailure sends one failure with op/kind/code/action tags.
// Params: context (unused by hub) and failure descriptor.
// Returns: none.
func (r *Reporter) CaptureFailure(_ context.Context, failure engine.Failure) {
	if !r.Enabled() || failure.Err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(levelFor(failure.Err))
		scope.SetTag("op", failure.Op)
		scope.SetTag("kind", string(failure.Err.Kind))
		if failure.Err.Code != 0 {
			scope.SetTag("code", strconv.Itoa(failure.Err.Code))
		}
		if failure.Action != "" {
			scope.SetTag("action", string(failure.Action))
		}
		if failure.AlertID != "" {
			scope.SetTag("alert_id", failure.AlertID)
		}
		r.hub.CaptureException(failure.Err)
	})
}

// Close flushes buffered events.
// Params: none.
// Returns: none.
func (r *Reporter) Close() {
	if !r.Enabled() {
		return
	}
	r.hub.Flush(r.flush)
}

// levelFor maps timeout and connectivity failures to warning level.
func levelFor(err *clienterr.Error) sentry.Level {
	switch err.Kind {
	case clienterr.KindTimeout, clienterr.KindNoConnection:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}
