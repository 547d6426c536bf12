package clienterr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
)

func TestFromStatusMapsClosedSet(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code    int
		kind    Kind
		message string
		outCode int
	}{
		{400, KindBadRequest, "Bad Request!", 400},
		{403, KindForbidden, "Forbidden!", 403},
		{405, KindMethodNotAllowed, "Method Not Allowed!", 405},
		{409, KindConflict, "Conflict!", 409},
		{500, KindInternalServer, "Internal Server error!", 500},
		{503, KindUnknown, "Unknown Error!", 0},
		{502, KindUnknown, "Unknown Error!", 0},
		{401, KindUnknown, "Unknown Error!", 0},
		{404, KindUnknown, "Unknown Error!", 0},
		{302, KindUnknown, "Unknown Error!", 0},
	}
	for _, tc := range cases {
		got := FromStatus(tc.code, nil)
		if got.Kind != tc.kind || got.Error() != tc.message || got.Code != tc.outCode {
			t.Fatalf("status %d: unexpected %+v (%q)", tc.code, got, got.Error())
		}
	}
}

func TestFromStatusValidationCarriesServerMessage(t *testing.T) {
	t.Parallel()

	got := FromStatus(422, []byte(`{"message":"version is invalid","errors":{}}`))
	if got.Kind != KindValidation || got.Code != 422 {
		t.Fatalf("unexpected validation error %+v", got)
	}
	if got.Error() != "version is invalid" {
		t.Fatalf("expected server message, got %q", got.Error())
	}

	plain := FromStatus(422, []byte("not json"))
	if plain.Kind != KindValidation || plain.Error() != "Unprocessable Entity!" {
		t.Fatalf("unexpected fallback validation error %+v (%q)", plain, plain.Error())
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFromErrorClassifiesTransportFailures(t *testing.T) {
	t.Parallel()

	refused := &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}
	cases := []struct {
		name string
		err  error
		kind Kind
	}{
		{"socket timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, KindTimeout},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), KindTimeout},
		{"refused", refused, KindNoConnection},
		{"dns", &net.DNSError{Err: "no such host", Name: "x"}, KindNoConnection},
		{"canceled", context.Canceled, KindUnknown},
		{"other", errors.New("boom"), KindUnknown},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		if got.Kind != tc.kind {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.kind, got.Kind)
		}
		if !errors.Is(got, tc.err) {
			t.Fatalf("%s: expected cause to be wrapped", tc.name)
		}
	}
	if FromError(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
}

func TestFromErrorKeepsClassifiedError(t *testing.T) {
	t.Parallel()

	original := New(KindForbidden, 403)
	if got := FromError(fmt.Errorf("attempt 2: %w", original)); got != original {
		t.Fatalf("expected classified error to pass through, got %+v", got)
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	for _, kind := range []Kind{KindTimeout, KindNoConnection, KindInternalServer} {
		if !New(kind, 0).Retryable() {
			t.Fatalf("%s should be retryable", kind)
		}
	}
	for _, kind := range []Kind{KindBadRequest, KindForbidden, KindMethodNotAllowed, KindConflict, KindValidation, KindUnknown} {
		if New(kind, 0).Retryable() {
			t.Fatalf("%s should not be retryable", kind)
		}
	}
}
