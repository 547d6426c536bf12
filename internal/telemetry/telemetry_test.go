package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"

	"launchalert/internal/clienterr"
	"launchalert/internal/config"
	"launchalert/internal/domain"
	"launchalert/internal/engine"
)

func TestDisabledWithoutDSN(t *testing.T) {
	t.Parallel()

	reporter, err := New(config.TelemetryConfig{})
	if err != nil {
		t.Fatalf("new reporter: %v", err)
	}
	if reporter.Enabled() {
		t.Fatalf("reporter must be disabled without dsn")
	}
	reporter.CaptureFailure(context.Background(), engine.Failure{Op: "fetch", Err: clienterr.New(clienterr.KindTimeout, 0)})
	reporter.Close()
}

func TestCaptureFailureSetsTags(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	reporter, err := newWithOptions(config.TelemetryConfig{Environment: "test", FlushMS: 10}, sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("new reporter: %v", err)
	}

	reporter.CaptureFailure(context.Background(), engine.Failure{
		Op:      "report",
		AlertID: "a1",
		Action:  domain.ActionAccepted,
		Err:     clienterr.New(clienterr.KindForbidden, 403),
	})
	reporter.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	tags := events[0].Tags
	want := map[string]string{"op": "report", "kind": "forbidden", "code": "403", "action": "ACCEPTED", "alert_id": "a1"}
	for key, value := range want {
		if tags[key] != value {
			t.Fatalf("tag %s=%q, want %q (all: %+v)", key, tags[key], value, tags)
		}
	}
	if events[0].Level != sentry.LevelError || events[0].Environment != "test" {
		t.Fatalf("unexpected level/env %s/%s", events[0].Level, events[0].Environment)
	}
}
