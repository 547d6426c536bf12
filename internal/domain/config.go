package domain

import (
	"strings"
	"time"
)

// BackoffMode selects delay growth between transport retries.
// Params: fixed or exponential.
// Returns: retry pacing mode.
type BackoffMode string

const (
	// BackoffFixed waits RetryBackoff between every attempt.
	BackoffFixed BackoffMode = "fixed"
	// BackoffExponential doubles delay after each attempt up to MaxBackoff.
	BackoffExponential BackoffMode = "exponential"
)

// ClientConfig holds per-session parameters bound to one engine.
// Params: identity headers, language, endpoint, and transport policy.
// Returns: immutable session configuration.
type ClientConfig struct {
	AppID        string
	Version      string
	DeviceID     string
	LanguageTag  string
	Route        string
	SDKVersion   string
	Timeout      time.Duration
	MaxRetry     int
	RetryBackoff time.Duration
	BackoffMode  BackoffMode
	MaxBackoff   time.Duration
}

// ActionRoute builds report endpoint for one alert id.
// Params: alert id.
// Returns: route + "/" + id.
func (c ClientConfig) ActionRoute(id string) string {
	return strings.TrimRight(c.Route, "/") + "/" + id
}
