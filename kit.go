// Package launchalert is the host-facing entry point of the launch alert SDK.
//
// A Kit fetches the current alert for this install, decides whether it is new,
// reports the automatic VIEW, and forwards the user's accept/dismiss answer to
// the backend. Hosts render from OnState and react to OnDismiss.
package launchalert

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"launchalert/internal/app"
	"launchalert/internal/config"
	"launchalert/internal/domain"
	"launchalert/internal/engine"
)

// SDKVersion is sent as x-sdk-version unless config overrides it.
const SDKVersion = app.SDKVersion

type (
	// Config is full SDK configuration.
	Config = config.Config
	// State is one value of the session state stream.
	State = domain.SessionState
	// Alert is resolved alert content.
	Alert = domain.AlertRecord
	// Action is reported user response.
	Action = domain.Action
)

// Option customizes Kit.
type Option func(*[]app.Option)

// WithLogger routes SDK logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *[]app.Option) { *opts = append(*opts, app.WithLogger(logger)) }
}

// WithHTTPClient uses client for backend calls.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *[]app.Option) { *opts = append(*opts, app.WithHTTPClient(client)) }
}

// LoadConfig reads TOML file or directory with LAUNCHALERT_* overrides (.env honored).
// Params: exactly one of file or dir.
// Returns: validated config.
func LoadConfig(file, dir string) (Config, error) {
	if err := config.LoadEnvFiles(); err != nil {
		return Config{}, err
	}
	source, err := config.FromCLI(file, dir)
	if err != nil {
		return Config{}, err
	}
	return config.LoadSnapshot(source)
}

// DefaultConfig builds config from defaults and LAUNCHALERT_* environment only.
func DefaultConfig() (Config, error) {
	if err := config.LoadEnvFiles(); err != nil {
		return Config{}, err
	}
	return config.Default()
}

// Kit owns one SDK session.
type Kit struct {
	session *app.Session

	mu     sync.Mutex
	stops  []func()
	pumps  sync.WaitGroup
	closed bool
}

// New builds Kit from config.
// Params: validated config and options.
// Returns: Kit or setup error.
func New(cfg Config, opts ...Option) (*Kit, error) {
	var appOpts []app.Option
	for _, opt := range opts {
		opt(&appOpts)
	}
	session, err := app.NewSession(cfg, appOpts...)
	if err != nil {
		return nil, err
	}
	return &Kit{session: session}, nil
}

// ShowView fetches current alert; result arrives through OnState.
// Returns: false when another operation is in flight or Kit is closed.
func (k *Kit) ShowView() bool {
	return k.session.Engine().Fetch()
}

// Accept answers shown alert with primary button.
func (k *Kit) Accept() bool {
	return k.session.Engine().Accept()
}

// Dismiss answers shown alert with secondary button.
func (k *Kit) Dismiss() bool {
	return k.session.Engine().Dismiss()
}

// State returns current session state.
func (k *Kit) State() State {
	return k.session.Engine().State()
}

// ResetLastSeen forgets last seen alert id; next ShowView shows current alert again.
func (k *Kit) ResetLastSeen(ctx context.Context) error {
	return k.session.ResetLastSeen(ctx)
}

// Engine exposes underlying decision engine.
func (k *Kit) Engine() *engine.Engine {
	return k.session.Engine()
}

// OnState calls fn with current state and every later change (latest wins).
// Params: callback run on a dedicated goroutine.
// Returns: stop function.
func (k *Kit) OnState(fn func(State)) func() {
	updates, cancel := k.session.Engine().Subscribe()
	return k.pump(cancel, func() {
		for state := range updates {
			fn(state)
		}
	})
}

// OnDismiss calls fn once per Dismiss.
// Params: callback run on a dedicated goroutine.
// Returns: stop function.
func (k *Kit) OnDismiss(fn func()) func() {
	done := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }
	dismissed := k.session.Engine().Dismissed()
	return k.pump(stop, func() {
		for {
			select {
			case <-done:
				return
			case <-dismissed:
				fn()
			}
		}
	})
}

func (k *Kit) pump(stop func(), loop func()) func() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		stop()
		return func() {}
	}
	k.stops = append(k.stops, stop)
	k.pumps.Add(1)
	go func() {
		defer k.pumps.Done()
		loop()
	}()
	return stop
}

// Close stops callbacks and releases session resources.
// Returns: resource close error.
func (k *Kit) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	stops := k.stops
	k.stops = nil
	k.mu.Unlock()

	err := k.session.Close()
	for _, stop := range stops {
		stop()
	}
	k.pumps.Wait()
	return err
}
