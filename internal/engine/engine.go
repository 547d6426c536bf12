// Package engine decides whether to surface fetched launch alerts and reports user responses.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"launchalert/internal/clienterr"
	"launchalert/internal/clock"
	"launchalert/internal/domain"
	"launchalert/internal/transport"
	"launchalert/internal/translate"
)

const defaultDismissBuffer = 8

// ErrAlreadyBound is returned by Bind when engine already has a config.
var ErrAlreadyBound = errors.New("engine config already bound")

// Transport performs backend calls for engine.
// Params: fetch and report requests.
// Returns: payload or *clienterr.Error failures.
type Transport interface {
	FetchAlert(ctx context.Context, req transport.FetchRequest) (*domain.RawPayload, error)
	ReportAction(ctx context.Context, req transport.ActionRequest) error
}

// IdentifierStore keeps last seen alert id.
// Params: get/set of one nullable value; implementations must be safe for concurrent use.
// Returns: persisted id view.
type IdentifierStore interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, value string) error
}

// Failure describes one failed backend call for external reporting.
type Failure struct {
	Op      string
	AlertID string
	Action  domain.Action
	Err     *clienterr.Error
}

// FailureReporter receives fetch/report failures (telemetry hook).
type FailureReporter interface {
	CaptureFailure(ctx context.Context, failure Failure)
}

// Option customizes Engine.
type Option func(*Engine)

// WithLogger sets structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock sets time source for state stamps.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithReporter forwards failures to reporter.
func WithReporter(reporter FailureReporter) Option {
	return func(e *Engine) {
		e.reporter = reporter
	}
}

// WithDismissBuffer sets capacity of dismissal event channel.
func WithDismissBuffer(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.dismissBuffer = size
		}
	}
}

// Engine is single-session alert state machine.
// Params: transport, identifier store, and options.
// Returns: state stream, dismissal events, and show/accept/dismiss commands.
type Engine struct {
	transport Transport
	store     IdentifierStore
	logger    *slog.Logger
	clock     clock.Clock
	reporter  FailureReporter

	flight *semaphore.Weighted
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	cfg           *domain.ClientConfig
	state         domain.SessionState
	tracked       *domain.AlertRecord
	dialogOpen    bool
	closed        bool
	generation    uint64
	subs          map[int]chan domain.SessionState
	nextSub       int
	dismissed     chan struct{}
	dismissBuffer int
}

// New constructs engine in Initial state with dialog flag open.
// Params: transport, identifier store, and options.
// Returns: unbound engine; call Bind before Fetch.
func New(tr Transport, store IdentifierStore, opts ...Option) *Engine {
	e := &Engine{
		transport:     tr,
		store:         store,
		logger:        slog.Default(),
		clock:         clock.RealClock{},
		flight:        semaphore.NewWeighted(1),
		dialogOpen:    true,
		subs:          make(map[int]chan domain.SessionState),
		dismissBuffer: defaultDismissBuffer,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.dismissed = make(chan struct{}, e.dismissBuffer)
	e.state = domain.Initial(e.clock.Now())
	return e
}

// Bind attaches session config once.
// Params: client config.
// Returns: ErrAlreadyBound on second call.
func (e *Engine) Bind(cfg domain.ClientConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cfg != nil {
		return ErrAlreadyBound
	}
	e.cfg = &cfg
	return nil
}

// Config returns bound config.
// Params: none.
// Returns: config and bound flag.
func (e *Engine) Config() (domain.ClientConfig, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cfg == nil {
		return domain.ClientConfig{}, false
	}
	return *e.cfg, true
}

// Fetch starts asynchronous fetch-decide-show flow.
// Params: none.
// Returns: false when unbound, closed, or another operation is in flight.
func (e *Engine) Fetch() bool {
	if !e.flight.TryAcquire(1) {
		e.logger.Debug("launch alert fetch rejected, operation in flight")
		return false
	}
	e.mu.Lock()
	if e.closed || e.cfg == nil {
		e.mu.Unlock()
		e.flight.Release(1)
		return false
	}
	cfg := *e.cfg
	gen := e.generation
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer e.flight.Release(1)
		e.runFetch(gen, cfg)
	}()
	return true
}

// runFetch executes one fetch flight including automatic VIEW report.
func (e *Engine) runFetch(gen uint64, cfg domain.ClientConfig) {
	ctx := e.ctx

	lastSeen, hasLastSeen, err := e.store.Get(ctx)
	if err != nil {
		e.logger.Warn("launch alert last seen id read failed", "error", err.Error())
		lastSeen, hasLastSeen = "", false
	}

	request := transport.FetchRequest{Route: cfg.Route, Identity: identityOf(cfg)}
	if hasLastSeen {
		request.LastSeenID = lastSeen
	}
	payload, err := e.transport.FetchAlert(ctx, request)
	if err != nil {
		failure := clienterr.FromError(err)
		e.logger.Warn("launch alert fetch failed", "kind", failure.Kind, "code", failure.Code, "error", failure.Error())
		e.capture(ctx, Failure{Op: "fetch", Err: failure})
		e.publish(gen, domain.FetchFailed(failure, e.clock.Now()))
		return
	}
	if !payload.HasAlert() {
		e.publish(gen, domain.NoAlert(e.clock.Now()))
		return
	}

	record := translate.Translate(payload.Data, cfg.LanguageTag)
	if hasLastSeen && CompareIDs(record.ID, lastSeen) <= 0 {
		e.logger.Debug("launch alert already seen", "alert_id", record.ID, "last_seen", lastSeen)
		e.publish(gen, domain.NoAlert(e.clock.Now()))
		return
	}

	if !e.current(gen) {
		return
	}
	if err := e.store.Set(ctx, record.ID); err != nil {
		e.logger.Warn("launch alert last seen id write failed", "alert_id", record.ID, "error", err.Error())
	}

	e.mu.Lock()
	if e.closed || gen != e.generation {
		e.mu.Unlock()
		return
	}
	e.tracked = record
	e.setStateLocked(domain.ShowingAlert(record, e.clock.Now()))
	e.mu.Unlock()
	e.logger.Info("launch alert shown", "alert_id", record.ID, "force", record.Forced())

	if failure := e.sendAction(ctx, cfg, record.ID, domain.ActionViewed); failure != nil {
		e.publish(gen, domain.ActionFailed(domain.ActionViewed, failure, e.clock.Now()))
	}
}

// Accept reports ACCEPTED for tracked alert, closes dialog, and clears state.
// Params: none.
// Returns: false when nothing is tracked, engine is closed, or operation is in flight.
func (e *Engine) Accept() bool {
	return e.respond(domain.ActionAccepted, false)
}

// Dismiss reports CANCELED for tracked alert, closes dialog, emits dismissal, and clears state.
// Params: none.
// Returns: false when nothing is tracked, engine is closed, or operation is in flight.
func (e *Engine) Dismiss() bool {
	return e.respond(domain.ActionCanceled, true)
}

// ReportAction reports arbitrary action for tracked alert without touching dialog flag.
// Params: action value.
// Returns: false when nothing is tracked, engine is closed, or operation is in flight.
func (e *Engine) ReportAction(action domain.Action) bool {
	if !action.Valid() {
		return false
	}
	return e.dispatch(action, func() {})
}

func (e *Engine) respond(action domain.Action, dismiss bool) bool {
	return e.dispatch(action, func() {
		e.dialogOpen = false
		if dismiss {
			e.emitDismissLocked()
		}
		e.setStateLocked(domain.Initial(e.clock.Now()))
	})
}

// dispatch acquires flight, runs synchronous effects under lock, then reports in background.
func (e *Engine) dispatch(action domain.Action, effectsLocked func()) bool {
	if !e.flight.TryAcquire(1) {
		e.logger.Debug("launch alert action rejected, operation in flight", "action", action)
		return false
	}
	e.mu.Lock()
	if e.closed || e.cfg == nil || e.tracked == nil {
		e.mu.Unlock()
		e.flight.Release(1)
		return false
	}
	cfg := *e.cfg
	alertID := e.tracked.ID
	gen := e.generation
	effectsLocked()
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer e.flight.Release(1)
		if failure := e.sendAction(e.ctx, cfg, alertID, action); failure != nil {
			e.publish(gen, domain.ActionFailed(action, failure, e.clock.Now()))
			return
		}
		e.publish(gen, domain.Acted(action, e.clock.Now()))
	}()
	return true
}

// sendAction posts one action report.
// Returns: nil on success or classified failure.
func (e *Engine) sendAction(ctx context.Context, cfg domain.ClientConfig, alertID string, action domain.Action) *clienterr.Error {
	err := e.transport.ReportAction(ctx, transport.ActionRequest{
		Route:    cfg.ActionRoute(alertID),
		Identity: identityOf(cfg),
		Action:   action,
	})
	if err == nil {
		e.logger.Debug("launch alert action reported", "alert_id", alertID, "action", action)
		return nil
	}
	failure := clienterr.FromError(err)
	e.logger.Warn("launch alert action report failed", "alert_id", alertID, "action", action, "kind", failure.Kind, "error", failure.Error())
	e.capture(ctx, Failure{Op: "report", AlertID: alertID, Action: action, Err: failure})
	return failure
}

// Clear resets state to Initial; dialog flag and store are untouched.
// Params: none.
// Returns: none.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.setStateLocked(domain.Initial(e.clock.Now()))
}

// ShowDialog sets dialog flag open.
func (e *Engine) ShowDialog() {
	e.mu.Lock()
	e.dialogOpen = true
	e.mu.Unlock()
}

// DialogOpen reports dialog flag.
func (e *Engine) DialogOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dialogOpen
}

// State returns current state snapshot.
func (e *Engine) State() domain.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentAlert returns record tracked by last shown alert.
// Params: none.
// Returns: record or nil when nothing was shown.
func (e *Engine) CurrentAlert() *domain.AlertRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracked
}

// Subscribe registers state observer.
// Params: none.
// Returns: channel receiving current value first and latest values after
// (intermediate values may be dropped), plus cancel callback.
func (e *Engine) Subscribe() (<-chan domain.SessionState, func()) {
	ch := make(chan domain.SessionState, 1)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
}

// Dismissed returns one-shot dismissal event channel.
// Params: none.
// Returns: channel receiving one value per Dismiss.
func (e *Engine) Dismissed() <-chan struct{} {
	return e.dismissed
}

// Wait blocks until in-flight operation finishes.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close tears engine down; in-flight results are discarded and subscriptions closed.
// Params: none.
// Returns: none.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.generation++
	for id, sub := range e.subs {
		delete(e.subs, id)
		close(sub)
	}
	e.mu.Unlock()
	e.cancel()
}

// current reports whether flight generation is still live.
func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && gen == e.generation
}

// publish sets state when flight generation is still live.
func (e *Engine) publish(gen uint64, state domain.SessionState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.generation {
		e.logger.Debug("launch alert result discarded after teardown", "state", state.Kind.String())
		return
	}
	e.setStateLocked(state)
}

func (e *Engine) setStateLocked(state domain.SessionState) {
	e.state = state
	for _, sub := range e.subs {
		select {
		case sub <- state:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- state:
			default:
			}
		}
	}
}

func (e *Engine) emitDismissLocked() {
	select {
	case e.dismissed <- struct{}{}:
	default:
		e.logger.Warn("launch alert dismissal event dropped, consumer not draining")
	}
}

func (e *Engine) capture(ctx context.Context, failure Failure) {
	if e.reporter == nil || failure.Err == nil {
		return
	}
	// Failures caused by Close are not reported.
	if ctx.Err() != nil {
		return
	}
	e.reporter.CaptureFailure(ctx, failure)
}

func identityOf(cfg domain.ClientConfig) transport.Identity {
	return transport.Identity{
		AppID:      cfg.AppID,
		Version:    cfg.Version,
		DeviceID:   cfg.DeviceID,
		SDKVersion: cfg.SDKVersion,
	}
}
