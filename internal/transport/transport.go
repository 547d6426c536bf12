// Package transport performs launch alert backend calls with timeout, retry, and error mapping.
package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"launchalert/internal/clienterr"
	"launchalert/internal/domain"
	"launchalert/internal/permanent"
)

const (
	headerAppID      = "x-app-id"
	headerVersion    = "x-version"
	headerDeviceID   = "x-device-uuid"
	headerSDKVersion = "x-sdk-version"
	headerLastID     = "x-last-id"

	maxResponseBytes = 1 << 20
)

// Identity carries headers attached to every backend call.
// Params: app id, app version, device id, and SDK version.
// Returns: request identity.
type Identity struct {
	AppID      string
	Version    string
	DeviceID   string
	SDKVersion string
}

// FetchRequest describes one alert fetch.
// Params: route, identity, and optional last seen id (empty omits header).
// Returns: fetch input.
type FetchRequest struct {
	Route      string
	Identity   Identity
	LastSeenID string
}

// ActionRequest describes one action report.
// Params: alert-specific route, identity, and action value.
// Returns: report input.
type ActionRequest struct {
	Route    string
	Identity Identity
	Action   domain.Action
}

// Policy controls per-request timeout and retry pacing.
// Params: timeout, retries after first attempt, and backoff shape.
// Returns: transport policy.
type Policy struct {
	Timeout        time.Duration
	MaxRetry       int
	Backoff        time.Duration
	Mode           domain.BackoffMode
	MaxBackoff     time.Duration
	LogEachAttempt bool
}

// PolicyFrom extracts transport policy from session config.
// Params: bound client config.
// Returns: policy with attempt logging disabled.
func PolicyFrom(cfg domain.ClientConfig) Policy {
	return Policy{
		Timeout:    cfg.Timeout,
		MaxRetry:   cfg.MaxRetry,
		Backoff:    cfg.RetryBackoff,
		Mode:       cfg.BackoffMode,
		MaxBackoff: cfg.MaxBackoff,
	}
}

// Option customizes Client.
type Option func(*Client)

// WithLogger sets structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces underlying HTTP client; policy timeout applies when client has none.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// Client is HTTP implementation of alert transport.
// Params: HTTP client, retry policy, and logger.
// Returns: fetch/report caller returning clienterr.Error failures.
type Client struct {
	policy Policy
	client *http.Client
	logger *slog.Logger
}

// New creates transport client.
// Params: policy and options.
// Returns: initialized client.
func New(policy Policy, opts ...Option) *Client {
	if policy.MaxRetry < 0 {
		policy.MaxRetry = 0
	}
	if policy.MaxBackoff < policy.Backoff {
		policy.MaxBackoff = policy.Backoff
	}
	c := &Client{
		policy: policy,
		client: &http.Client{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client.Timeout == 0 {
		c.client.Timeout = policy.Timeout
	}
	return c
}

// FetchAlert requests current alert for installation.
// Params: context and fetch request.
// Returns: decoded payload (nil when body is empty) or *clienterr.Error.
func (c *Client) FetchAlert(ctx context.Context, req FetchRequest) (*domain.RawPayload, error) {
	var payload *domain.RawPayload
	err := c.withRetry(ctx, "fetch", func(ctx context.Context) error {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, req.Route, nil)
		if err != nil {
			return permanent.Wrap("build fetch request", err)
		}
		setIdentity(request, req.Identity)
		if lastID := strings.TrimSpace(req.LastSeenID); lastID != "" {
			request.Header.Set(headerLastID, lastID)
		}
		request.Header.Set("Accept", "application/json")

		body, err := c.do(request)
		if err != nil {
			return err
		}
		decoded, err := domain.DecodePayload(body)
		if err != nil {
			return permanent.Wrap("decode payload", err)
		}
		payload = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// ReportAction posts user action for one alert.
// Params: context and action request.
// Returns: nil on 2xx or *clienterr.Error.
func (c *Client) ReportAction(ctx context.Context, req ActionRequest) error {
	if !req.Action.Valid() {
		return clienterr.FromError(permanent.Errorf("unsupported action %q", req.Action))
	}
	form := url.Values{}
	form.Set("action", string(req.Action))
	encoded := form.Encode()

	return c.withRetry(ctx, "report", func(ctx context.Context) error {
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Route, strings.NewReader(encoded))
		if err != nil {
			return permanent.Wrap("build report request", err)
		}
		setIdentity(request, req.Identity)
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		_, err = c.do(request)
		return err
	})
}

// do executes request and maps failures to taxonomy.
// Params: prepared request.
// Returns: body for 2xx; classified error (permanent unless retryable) otherwise.
func (c *Client) do(request *http.Request) ([]byte, error) {
	response, err := c.client.Do(request)
	if err != nil {
		return nil, classify(clienterr.FromError(err))
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, classify(clienterr.FromStatus(response.StatusCode, body))
	}
	if readErr != nil {
		return nil, classify(clienterr.FromError(readErr))
	}
	return body, nil
}

// classify marks non-retryable taxonomy errors as permanent.
func classify(err *clienterr.Error) error {
	if err.Retryable() {
		return err
	}
	return permanent.Mark(err)
}

// withRetry runs call up to 1+MaxRetry times with configured backoff.
// Params: context, operation label for logs, and single-attempt call.
// Returns: nil or final *clienterr.Error.
func (c *Client) withRetry(ctx context.Context, op string, call func(context.Context) error) error {
	maxAttempts := c.policy.MaxRetry + 1
	backoff := c.policy.Backoff
	var timer *time.Timer
	stopTimer := func() {
		if timer != nil && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
	defer stopTimer()

	for attempt := 1; ; attempt++ {
		err := call(ctx)
		if err == nil {
			if c.policy.LogEachAttempt && attempt > 1 {
				c.logger.Info("launch alert call recovered after retries", "op", op, "attempt", attempt)
			}
			return nil
		}
		classified := clienterr.FromError(err)
		if c.policy.LogEachAttempt {
			c.logger.Warn("launch alert call attempt failed", "op", op, "attempt", attempt, "kind", classified.Kind, "error", classified.Error())
		}
		if permanent.Is(err) || attempt >= maxAttempts {
			return classified
		}

		if timer == nil {
			timer = time.NewTimer(backoff)
		} else {
			stopTimer()
			timer.Reset(backoff)
		}
		select {
		case <-ctx.Done():
			return clienterr.FromError(ctx.Err())
		case <-timer.C:
		}

		if c.policy.Mode == domain.BackoffExponential {
			backoff *= 2
			if backoff > c.policy.MaxBackoff {
				backoff = c.policy.MaxBackoff
			}
		}
	}
}

func setIdentity(request *http.Request, identity Identity) {
	request.Header.Set(headerAppID, identity.AppID)
	request.Header.Set(headerVersion, identity.Version)
	request.Header.Set(headerDeviceID, identity.DeviceID)
	request.Header.Set(headerSDKVersion, identity.SDKVersion)
}

// IsKind reports whether err is taxonomy error of kind.
// Params: error returned by FetchAlert/ReportAction and expected kind.
// Returns: true on match.
func IsKind(err error, kind clienterr.Kind) bool {
	var classified *clienterr.Error
	return errors.As(err, &classified) && classified.Kind == kind
}
