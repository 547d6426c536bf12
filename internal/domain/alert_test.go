package domain

import (
	"testing"
	"time"

	"launchalert/internal/clienterr"
)

func TestDecodePayloadEmptyBodies(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "  ", "null"} {
		payload, err := DecodePayload([]byte(body))
		if err != nil {
			t.Fatalf("body %q: unexpected error %v", body, err)
		}
		if payload.HasAlert() {
			t.Fatalf("body %q: expected no alert", body)
		}
	}
}

func TestDecodePayloadAlertPresence(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		`{"data":null}`:                       false,
		`{"data":{"id":null,"title":[]}}`:     false,
		`{"data":{"id":"  "}}`:                false,
		`{"data":{"id":"0001","force":true}}`: true,
	}
	for body, want := range cases {
		payload, err := DecodePayload([]byte(body))
		if err != nil {
			t.Fatalf("body %s: decode: %v", body, err)
		}
		if payload.HasAlert() != want {
			t.Fatalf("body %s: expected HasAlert=%v", body, want)
		}
	}
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := DecodePayload([]byte("<html>")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestAlertRecordActive(t *testing.T) {
	t.Parallel()

	var missing *AlertRecord
	if missing.Active() {
		t.Fatalf("nil record must not be active")
	}
	title := "Update"
	if (&AlertRecord{Title: &title}).Active() {
		t.Fatalf("record without id must not be active")
	}
	if !(&AlertRecord{ID: "x"}).Active() {
		t.Fatalf("record with id must be active")
	}
}

func TestActionRouteJoinsID(t *testing.T) {
	t.Parallel()

	cfg := ClientConfig{Route: "https://api.example.com/launch-alerts/"}
	if got := cfg.ActionRoute("abc"); got != "https://api.example.com/launch-alerts/abc" {
		t.Fatalf("unexpected action route %q", got)
	}
}

func TestSessionStateString(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := map[string]SessionState{
		"initial":                         Initial(at),
		"no_alert":                        NoAlert(at),
		"showing_alert(id-1)":             ShowingAlert(&AlertRecord{ID: "id-1"}, at),
		"acted(ACCEPTED)":                 Acted(ActionAccepted, at),
		"action_failed(VIEW: Forbidden!)": ActionFailed(ActionViewed, clienterr.New(clienterr.KindForbidden, 403), at),
		"fetch_failed(Time Out!)":         FetchFailed(clienterr.New(clienterr.KindTimeout, 0), at),
	}
	for want, state := range cases {
		if got := state.String(); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}
