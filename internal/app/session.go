package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"launchalert/internal/clock"
	"launchalert/internal/config"
	"launchalert/internal/device"
	"launchalert/internal/domain"
	"launchalert/internal/engine"
	"launchalert/internal/logging"
	"launchalert/internal/store"
	"launchalert/internal/telemetry"
	"launchalert/internal/transport"
)

// SDKVersion is reported in x-sdk-version when config leaves sdk_version empty.
const SDKVersion = "1.2.0"

const (
	lastSeenSlotName = "last_id"
	setupTimeout     = 10 * time.Second
)

// Option customizes session wiring.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	backend    store.Backend
	httpClient *http.Client
	clock      clock.Clock
}

// WithLogger uses caller logger instead of building one from [log] config.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBackend uses caller-owned store backend instead of [store] config.
func WithBackend(backend store.Backend) Option {
	return func(o *options) { o.backend = backend }
}

// WithHTTPClient uses caller HTTP client for backend calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithClock sets engine clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// Session composes logger, store, transport, telemetry, and engine for one bound config.
// Params: validated config and options.
// Returns: ready session with bound engine.
type Session struct {
	cfg         config.Config
	client      domain.ClientConfig
	logger      *slog.Logger
	closeLog    func()
	backend     store.Backend
	ownsBackend bool
	lastSeen    *store.Slot
	reporter    *telemetry.Reporter
	engine      *engine.Engine
}

// Load reads config source and builds session.
// Params: config source and options.
// Returns: session or load/setup error.
func Load(source config.ConfigSource, opts ...Option) (*Session, error) {
	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		return nil, err
	}
	return NewSession(cfg, opts...)
}

// NewSession wires runtime dependencies from validated config.
// Params: config snapshot and options.
// Returns: session or setup error; partially built resources are released on error.
func NewSession(cfg config.Config, opts ...Option) (*Session, error) {
	o := options{clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{cfg: cfg, logger: o.logger}
	if s.logger == nil {
		logger, closeLog, err := logging.New(cfg.Log)
		if err != nil {
			return nil, err
		}
		s.logger = logger
		s.closeLog = closeLog
	}

	s.backend = o.backend
	if s.backend == nil {
		backend, err := store.Open(cfg.Store)
		if err != nil {
			s.cleanupInitResources()
			return nil, fmt.Errorf("open store: %w", err)
		}
		s.backend = backend
		s.ownsBackend = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()
	deviceSlot := store.NewSlot(s.backend, store.SlotKey(cfg.Client.AppID, "", device.SlotName))
	deviceID, err := device.Resolve(ctx, cfg.Client.DeviceID, deviceSlot)
	if err != nil {
		s.cleanupInitResources()
		return nil, err
	}

	s.client = cfg.ClientConfig()
	s.client.DeviceID = deviceID
	if strings.TrimSpace(s.client.SDKVersion) == "" {
		s.client.SDKVersion = SDKVersion
	}

	lastSeenKey := strings.TrimSpace(cfg.Store.Key)
	if lastSeenKey == "" {
		lastSeenKey = store.SlotKey(cfg.Client.AppID, deviceID, lastSeenSlotName)
	}
	s.lastSeen = store.NewSlot(s.backend, lastSeenKey)

	reporter, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		s.cleanupInitResources()
		return nil, err
	}
	s.reporter = reporter

	policy := transport.PolicyFrom(s.client)
	policy.LogEachAttempt = cfg.Client.Retry.LogEachAttempt
	tr := transport.New(policy, transport.WithLogger(s.logger), transport.WithHTTPClient(o.httpClient))

	engineOpts := []engine.Option{engine.WithLogger(s.logger), engine.WithClock(o.clock)}
	if reporter.Enabled() {
		engineOpts = append(engineOpts, engine.WithReporter(reporter))
	}
	s.engine = engine.New(tr, s.lastSeen, engineOpts...)
	if err := s.engine.Bind(s.client); err != nil {
		s.cleanupInitResources()
		return nil, err
	}

	s.logger.Info("launch alert session ready",
		"app_id", s.client.AppID,
		"device_id", deviceID,
		"store", cfg.Store.Backend,
		"slot", lastSeenKey,
		"telemetry", reporter.Enabled(),
	)
	return s, nil
}

// Engine returns bound decision engine.
func (s *Session) Engine() *engine.Engine {
	return s.engine
}

// Config returns config snapshot session was built from.
func (s *Session) Config() config.Config {
	return s.cfg
}

// ClientConfig returns config bound to engine (device id and SDK version resolved).
func (s *Session) ClientConfig() domain.ClientConfig {
	return s.client
}

// Logger returns session logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// LastSeen returns last seen id slot.
func (s *Session) LastSeen() *store.Slot {
	return s.lastSeen
}

// ResetLastSeen forgets last seen id so next fetch shows current alert again.
// Params: context.
// Returns: store error.
func (s *Session) ResetLastSeen(ctx context.Context) error {
	return s.lastSeen.Reset(ctx)
}

// Close tears down engine and releases owned resources.
// Params: none.
// Returns: first close error.
func (s *Session) Close() error {
	var errs []error
	if s.engine != nil {
		s.engine.Close()
		s.engine.Wait()
	}
	if s.reporter != nil {
		s.reporter.Close()
	}
	if s.ownsBackend && s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("store close failed", "error", err.Error())
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}
	if s.closeLog != nil {
		s.closeLog()
	}
	return errors.Join(errs...)
}

// cleanupInitResources closes partially initialized resources on setup failures.
func (s *Session) cleanupInitResources() {
	if s.ownsBackend && s.backend != nil {
		_ = s.backend.Close()
		s.backend = nil
	}
	if s.closeLog != nil {
		s.closeLog()
		s.closeLog = nil
	}
}
