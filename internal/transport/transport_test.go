package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"launchalert/internal/clienterr"
	"launchalert/internal/domain"
)

var testIdentity = Identity{AppID: "app-1", Version: "2.0.0", DeviceID: "dev-1", SDKVersion: "3"}

func fastPolicy(retries int) Policy {
	return Policy{
		Timeout:    time.Second,
		MaxRetry:   retries,
		Backoff:    time.Millisecond,
		Mode:       domain.BackoffFixed,
		MaxBackoff: 4 * time.Millisecond,
	}
}

func TestFetchAlertSendsIdentityHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		got = r.Header.Clone()
		_, _ = io.WriteString(w, `{"data":{"id":"a1","title":[{"language":"en","content":"Hi"}],"sdk_version":3}}`)
	}))
	defer server.Close()

	payload, err := New(fastPolicy(0)).FetchAlert(context.Background(), FetchRequest{
		Route:      server.URL,
		Identity:   testIdentity,
		LastSeenID: "prev-id",
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !payload.HasAlert() || *payload.Data.ID != "a1" || *payload.Data.SDKVersion != 3 {
		t.Fatalf("unexpected payload %+v", payload.Data)
	}

	want := map[string]string{
		headerAppID:      "app-1",
		headerVersion:    "2.0.0",
		headerDeviceID:   "dev-1",
		headerSDKVersion: "3",
		headerLastID:     "prev-id",
	}
	for key, value := range want {
		if got.Get(key) != value {
			t.Fatalf("header %s=%q, want %q", key, got.Get(key), value)
		}
	}
}

func TestFetchAlertOmitsLastIDWhenAbsent(t *testing.T) {
	t.Parallel()

	var present atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Header[http.CanonicalHeaderKey(headerLastID)]
		present.Store(ok)
	}))
	defer server.Close()

	payload, err := New(fastPolicy(0)).FetchAlert(context.Background(), FetchRequest{Route: server.URL, Identity: testIdentity})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if payload != nil {
		t.Fatalf("empty body must decode to nil payload, got %+v", payload)
	}
	if present.Load() {
		t.Fatalf("x-last-id must be omitted without last seen id")
	}
}

func TestFetchAlertMapsStatusCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		body   string
		kind   clienterr.Kind
		msg    string
	}{
		{http.StatusBadRequest, "", clienterr.KindBadRequest, "Bad Request!"},
		{http.StatusForbidden, "", clienterr.KindForbidden, "Forbidden!"},
		{http.StatusMethodNotAllowed, "", clienterr.KindMethodNotAllowed, "Method Not Allowed!"},
		{http.StatusConflict, "", clienterr.KindConflict, "Conflict!"},
		{http.StatusUnprocessableEntity, `{"message":"bad version"}`, clienterr.KindValidation, "bad version"},
		{http.StatusInternalServerError, "", clienterr.KindInternalServer, "Internal Server error!"},
		{http.StatusTeapot, "", clienterr.KindUnknown, "Unknown Error!"},
		{http.StatusBadGateway, "", clienterr.KindUnknown, "Unknown Error!"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer server.Close()

			_, err := New(fastPolicy(0)).FetchAlert(context.Background(), FetchRequest{Route: server.URL, Identity: testIdentity})
			if !IsKind(err, tc.kind) {
				t.Fatalf("expected kind %s, got %v", tc.kind, err)
			}
			if err.Error() != tc.msg {
				t.Fatalf("expected message %q, got %q", tc.msg, err.Error())
			}
		})
	}
}

func TestFetchAlertRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"id":"a2"}}`)
	}))
	defer server.Close()

	payload, err := New(fastPolicy(3)).FetchAlert(context.Background(), FetchRequest{Route: server.URL, Identity: testIdentity})
	if err != nil {
		t.Fatalf("expected recovery after retries, got %v", err)
	}
	if calls.Load() != 3 || *payload.Data.ID != "a2" {
		t.Fatalf("unexpected calls=%d payload=%+v", calls.Load(), payload)
	}
}

func TestFetchAlertStopsAfterMaxRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	policy := fastPolicy(2)
	policy.Mode = domain.BackoffExponential
	_, err := New(policy).FetchAlert(context.Background(), FetchRequest{Route: server.URL, Identity: testIdentity})
	if !IsKind(err, clienterr.KindInternalServer) {
		t.Fatalf("expected internal server error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 1+2 attempts, got %d", calls.Load())
	}
}

func TestFetchAlertDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := New(fastPolicy(3)).FetchAlert(context.Background(), FetchRequest{Route: server.URL, Identity: testIdentity})
	if !IsKind(err, clienterr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls.Load())
	}
}

func TestFetchAlertMalformedBodyIsUnknown(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"data":`)
	}))
	defer server.Close()

	_, err := New(fastPolicy(3)).FetchAlert(context.Background(), FetchRequest{Route: server.URL, Identity: testIdentity})
	if !IsKind(err, clienterr.KindUnknown) || calls.Load() != 1 {
		t.Fatalf("expected single unknown failure, got err=%v calls=%d", err, calls.Load())
	}
}

func TestFetchAlertTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	policy := fastPolicy(0)
	policy.Timeout = 30 * time.Millisecond
	_, err := New(policy).FetchAlert(context.Background(), FetchRequest{Route: server.URL, Identity: testIdentity})
	if !IsKind(err, clienterr.KindTimeout) || err.Error() != "Time Out!" {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestFetchAlertNoConnection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	route := server.URL
	server.Close()

	_, err := New(fastPolicy(1)).FetchAlert(context.Background(), FetchRequest{Route: route, Identity: testIdentity})
	if !IsKind(err, clienterr.KindNoConnection) || err.Error() != "No Connection!" {
		t.Fatalf("expected no connection, got %v", err)
	}
}

func TestReportActionPostsForm(t *testing.T) {
	t.Parallel()

	type captured struct {
		method, path, action, contentType, appID string
	}
	got := make(chan captured, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		got <- captured{
			method:      r.Method,
			path:        r.URL.Path,
			action:      r.PostForm.Get("action"),
			contentType: r.Header.Get("Content-Type"),
			appID:       r.Header.Get(headerAppID),
		}
	}))
	defer server.Close()

	cfg := domain.ClientConfig{Route: server.URL + "/alerts/"}
	err := New(fastPolicy(0)).ReportAction(context.Background(), ActionRequest{
		Route:    cfg.ActionRoute("a1"),
		Identity: testIdentity,
		Action:   domain.ActionAccepted,
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	c := <-got
	if c.method != http.MethodPost || c.path != "/alerts/a1" || c.action != "ACCEPTED" {
		t.Fatalf("unexpected request %+v", c)
	}
	if c.contentType != "application/x-www-form-urlencoded" || c.appID != "app-1" {
		t.Fatalf("unexpected headers %+v", c)
	}
}

func TestReportActionRejectsUnknownAction(t *testing.T) {
	t.Parallel()

	err := New(fastPolicy(0)).ReportAction(context.Background(), ActionRequest{Route: "http://127.0.0.1:1", Action: "LIKE"})
	if !IsKind(err, clienterr.KindUnknown) {
		t.Fatalf("expected unknown error, got %v", err)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	policy := fastPolicy(5)
	policy.Backoff = time.Hour
	policy.MaxBackoff = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for calls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		done <- New(policy).ReportAction(ctx, ActionRequest{Route: server.URL, Identity: testIdentity, Action: domain.ActionViewed})
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected error after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("retry loop did not stop on context cancel")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one attempt before cancel, got %d", calls.Load())
	}
}
