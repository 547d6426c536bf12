package domain

import (
	"fmt"
	"time"

	"launchalert/internal/clienterr"
)

// StateKind identifies session state variant.
// Params: constants below.
// Returns: discriminator for SessionState.
type StateKind int

const (
	// StateInitial is start state, no fetch issued or state cleared.
	StateInitial StateKind = iota
	// StateNoAlert means server has nothing new for this install.
	StateNoAlert
	// StateShowingAlert carries alert that must be presented.
	StateShowingAlert
	// StateActed carries action that was reported successfully.
	StateActed
	// StateActionFailed carries action report failure.
	StateActionFailed
	// StateFetchFailed carries fetch failure.
	StateFetchFailed
)

var stateKindNames = [...]string{
	StateInitial:      "initial",
	StateNoAlert:      "no_alert",
	StateShowingAlert: "showing_alert",
	StateActed:        "acted",
	StateActionFailed: "action_failed",
	StateFetchFailed:  "fetch_failed",
}

// String returns stable state name for logs.
// Params: none.
// Returns: snake_case name.
func (k StateKind) String() string {
	if int(k) < 0 || int(k) >= len(stateKindNames) {
		return fmt.Sprintf("state(%d)", int(k))
	}
	return stateKindNames[k]
}

// SessionState is one value of engine state stream.
// Params: kind plus payload valid for that kind.
// Returns: immutable state snapshot.
type SessionState struct {
	Kind   StateKind
	Alert  *AlertRecord
	Action Action
	Err    *clienterr.Error
	At     time.Time
}

// Initial builds start state.
func Initial(at time.Time) SessionState {
	return SessionState{Kind: StateInitial, At: at}
}

// NoAlert builds no-alert state.
func NoAlert(at time.Time) SessionState {
	return SessionState{Kind: StateNoAlert, At: at}
}

// ShowingAlert builds showing state for record.
func ShowingAlert(record *AlertRecord, at time.Time) SessionState {
	return SessionState{Kind: StateShowingAlert, Alert: record, At: at}
}

// Acted builds reported-action state.
func Acted(action Action, at time.Time) SessionState {
	return SessionState{Kind: StateActed, Action: action, At: at}
}

// ActionFailed builds failed-report state.
func ActionFailed(action Action, err *clienterr.Error, at time.Time) SessionState {
	return SessionState{Kind: StateActionFailed, Action: action, Err: err, At: at}
}

// FetchFailed builds failed-fetch state.
func FetchFailed(err *clienterr.Error, at time.Time) SessionState {
	return SessionState{Kind: StateFetchFailed, Err: err, At: at}
}

// String renders state for CLI output and logs.
// Params: none.
// Returns: kind with payload summary.
func (s SessionState) String() string {
	switch s.Kind {
	case StateShowingAlert:
		if s.Alert != nil {
			return fmt.Sprintf("%s(%s)", s.Kind, s.Alert.ID)
		}
	case StateActed:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Action)
	case StateActionFailed:
		return fmt.Sprintf("%s(%s: %s)", s.Kind, s.Action, s.Err.Error())
	case StateFetchFailed:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Err.Error())
	}
	return s.Kind.String()
}
