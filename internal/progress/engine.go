package progress

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/sheettrack/sheettrack/internal/identity"
	"github.com/sheettrack/sheettrack/internal/schema"
	"github.com/sheettrack/sheettrack/internal/store"
)

// ChangeKind says what caused an engine state change.
type ChangeKind int

const (
	// ChangeLoaded indicates a load replaced the cache.
	ChangeLoaded ChangeKind = iota
	// ChangeLoadFailed indicates a load failed and the cache was kept.
	ChangeLoadFailed
	// ChangeMerged indicates a realtime event changed the cache.
	ChangeMerged
	// ChangeWritten indicates a confirmed status write changed the cache.
	ChangeWritten
	// ChangeIdentity indicates the signed-in user changed.
	ChangeIdentity
)

// String returns a human-readable representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeLoaded:
		return "loaded"
	case ChangeLoadFailed:
		return "load-failed"
	case ChangeMerged:
		return "merged"
	case ChangeWritten:
		return "written"
	case ChangeIdentity:
		return "identity"
	default:
		return "unknown"
	}
}

// Config holds configuration for the engine.
type Config struct {
	// Notifier receives status write outcomes (default: discard)
	Notifier Notifier

	// OnChange is called on the engine goroutine after every state
	// change. It must not block or call back into the engine.
	OnChange func(ChangeKind)

	// ResubscribeDelay is how long to wait before reopening a lost
	// realtime subscription
	ResubscribeDelay time.Duration

	// Logger for engine activity
	Logger *log.Logger

	// Now returns the current time (default: time.Now)
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Notifier:         discardNotifier{},
		ResubscribeDelay: 2 * time.Second,
		Logger:           log.New(os.Stderr, "[engine] ", log.LstdFlags),
		Now:              time.Now,
	}
}

// State is a point-in-time view of the engine.
type State struct {
	Identity    identity.Identity
	Sheets      []schema.Sheet
	ActiveSheet string
	Loading     bool
	Err         string
	Statuses    int
}

// loadRun is one Loader invocation.
type loadRun struct {
	gen     uint64
	id      identity.Identity
	cancel  context.CancelFunc
	settled chan struct{}
	err     error

	// journal holds every cache mutation made while the run is in
	// flight; it is replayed over the run's snapshot.
	journal []store.ChangeEvent
}

// Engine owns a Cache and keeps it in sync with a RemoteStore for the
// identity supplied by a Provider.
//
// All cache access happens on the goroutine running Run. Remote calls
// run on other goroutines and post their results back, so a slow store
// never blocks event handling. Public methods are safe for concurrent
// use and block until the engine has handled them; they return
// ErrStopped once Run has returned.
type Engine struct {
	store  store.RemoteStore
	ids    identity.Provider
	config *Config
	logger *log.Logger

	cache  *Cache
	loader *Loader
	merger *Merger
	writer *Writer

	ops     chan func()
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool

	// Owned by the Run goroutine.
	identity    identity.Identity
	generation  uint64
	load        *loadRun
	sub         store.Subscription
	subEvents   <-chan store.ChangeEvent
	subErrs     <-chan error
	subGen      uint64
	subCancel   context.CancelFunc
	reconnected bool
}

// NewEngine creates an engine with default configuration.
// Use Run to start it.
func NewEngine(st store.RemoteStore, ids identity.Provider, n Notifier) *Engine {
	config := DefaultConfig()
	if n != nil {
		config.Notifier = n
	}
	return NewEngineWithConfig(st, ids, config)
}

// NewEngineWithConfig creates an engine with custom configuration.
func NewEngineWithConfig(st store.RemoteStore, ids identity.Provider, config *Config) *Engine {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.Notifier == nil {
		config.Notifier = defaults.Notifier
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if config.ResubscribeDelay <= 0 {
		config.ResubscribeDelay = defaults.ResubscribeDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger := config.Logger

	return &Engine{
		store:  st,
		ids:    ids,
		config: config,
		logger: logger,
		cache:  NewCache(),
		loader: NewLoader(st, logger),
		merger: NewMerger(logger),
		writer: NewWriter(st, config.Notifier, logger),
		ops:    make(chan func()),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Run starts the engine: it loads the cache for the current identity,
// subscribes to live changes, and then handles identity transitions,
// realtime events, and API calls until ctx is cancelled or Stop is
// called.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine already running")
	}
	defer close(e.done)

	e.identity = e.ids.Current()
	e.logger.Printf("Starting engine for %s", e.identity)
	e.startLoad()
	e.subscribe()

	changes := e.ids.Changes()
	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return nil

		case <-e.ctx.Done():
			e.shutdown()
			return nil

		case id, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			e.switchIdentity(id)

		case ev, ok := <-e.subEvents:
			if !ok {
				e.subEvents = nil
				e.subscriptionLost()
				continue
			}
			e.applyEvent(ev)

		case err, ok := <-e.subErrs:
			if !ok {
				e.subErrs = nil
				continue
			}
			e.logger.Printf("Subscription error: %v", err)

		case op := <-e.ops:
			op()
		}
	}
}

// Stop shuts the engine down and waits for Run to return.
func (e *Engine) Stop() error {
	e.cancel()
	if e.running.Load() {
		<-e.done
	}
	return nil
}

// shutdown releases the subscription and cancels in-flight loads.
func (e *Engine) shutdown() {
	e.logger.Println("Stopping engine")
	e.cancel()
	e.closeSubscription()
	if e.load != nil {
		e.load.cancel()
		close(e.load.settled)
		e.load = nil
	}
}

// post queues fn for the engine goroutine. It reports false if the
// engine has stopped.
func (e *Engine) post(fn func()) bool {
	select {
	case e.ops <- fn:
		return true
	case <-e.done:
		return false
	}
}

// do runs fn on the engine goroutine and waits for it to finish.
func (e *Engine) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}

	select {
	case e.ops <- op:
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	<-finished
	return nil
}

func (e *Engine) changed(kind ChangeKind) {
	if e.config.OnChange != nil {
		e.config.OnChange(kind)
	}
}

// switchIdentity reloads and resubscribes for a new identity.
func (e *Engine) switchIdentity(id identity.Identity) {
	if id == e.identity {
		return
	}
	e.logger.Printf("Identity changed: %s -> %s", e.identity, id)
	e.identity = id
	e.startLoad()
	e.subscribe()
	e.changed(ChangeIdentity)
}

// startLoad begins a new Loader run, superseding any run in flight.
func (e *Engine) startLoad() *loadRun {
	if prev := e.load; prev != nil {
		e.logger.Printf("Superseding load generation %d", prev.gen)
		prev.cancel()
		close(prev.settled)
	}

	e.generation++
	ctx, cancel := context.WithCancel(e.ctx)
	run := &loadRun{
		gen:     e.generation,
		id:      e.identity,
		cancel:  cancel,
		settled: make(chan struct{}),
	}
	e.load = run
	e.cache.BeginLoad()

	go func() {
		snap, err := e.loader.Load(ctx, run.id)
		e.post(func() { e.finishLoad(run, snap, err) })
	}()
	return run
}

// finishLoad applies the result of run if it is still the current one.
func (e *Engine) finishLoad(run *loadRun, snap *Snapshot, err error) {
	if e.load != run {
		e.logger.Printf("Discarding stale load (generation %d, current %d)", run.gen, e.generation)
		return
	}
	e.load = nil
	run.cancel()
	run.err = err

	if err != nil {
		e.logger.Printf("Error fetching data: %v", err)
		e.cache.FailLoad(err)
		close(run.settled)
		e.changed(ChangeLoadFailed)
		return
	}

	e.cache.Replace(snap)
	for _, ev := range run.journal {
		e.merger.Apply(e.cache, ev)
	}
	if n := len(run.journal); n > 0 {
		e.logger.Printf("Replayed %d changes received during load", n)
	}
	close(run.settled)
	e.changed(ChangeLoaded)
}

// record journals a mutation for replay over the in-flight load.
func (e *Engine) record(ev store.ChangeEvent) {
	if e.load != nil {
		e.load.journal = append(e.load.journal, ev)
	}
}

// subscribe (re)opens the realtime subscription for the current identity.
func (e *Engine) subscribe() {
	e.closeSubscription()
	if !e.identity.Authenticated() {
		return
	}

	gen := e.subGen
	userID := e.identity.UserID
	ctx, cancel := context.WithCancel(e.ctx)
	e.subCancel = cancel

	go func() {
		sub, err := e.store.Subscribe(ctx, userID)
		posted := e.post(func() { e.subscribed(gen, userID, sub, err) })
		if !posted && sub != nil {
			_ = sub.Close()
		}
	}()
}

// subscribed installs a freshly opened subscription if it is still wanted.
func (e *Engine) subscribed(gen uint64, userID string, sub store.Subscription, err error) {
	if gen != e.subGen {
		if sub != nil {
			_ = sub.Close()
		}
		return
	}
	if err != nil {
		e.logger.Printf("Failed to subscribe for %s: %v", userID, err)
		e.resubscribeLater(userID)
		return
	}

	e.sub = sub
	e.subEvents = sub.Events()
	e.subErrs = sub.Errors()
	e.logger.Printf("Subscribed to status changes for %s", userID)

	// Events may have been missed while disconnected.
	if e.reconnected {
		e.reconnected = false
		e.startLoad()
	}
}

// closeSubscription tears down the current subscription, if any, and
// invalidates any subscribe call in flight.
func (e *Engine) closeSubscription() {
	e.subGen++
	if e.subCancel != nil {
		e.subCancel()
		e.subCancel = nil
	}
	if e.sub != nil {
		_ = e.sub.Close()
		e.sub = nil
	}
	e.subEvents = nil
	e.subErrs = nil
}

// subscriptionLost handles the event stream closing underneath us.
func (e *Engine) subscriptionLost() {
	if !e.identity.Authenticated() || e.ctx.Err() != nil {
		return
	}
	e.logger.Printf("Subscription for %s closed; reconnecting in %v", e.identity, e.config.ResubscribeDelay)
	e.closeSubscription()
	e.resubscribeLater(e.identity.UserID)
}

// resubscribeLater schedules a new subscription for userID.
func (e *Engine) resubscribeLater(userID string) {
	gen := e.subGen
	time.AfterFunc(e.config.ResubscribeDelay, func() {
		e.post(func() {
			if gen != e.subGen || e.identity.UserID != userID {
				return
			}
			e.reconnected = true
			e.subscribe()
		})
	})
}

// applyEvent merges a realtime event for the current user.
func (e *Engine) applyEvent(ev store.ChangeEvent) {
	if ev.UserID() != e.identity.UserID {
		e.logger.Printf("WARNING: dropping event for another user: %s", ev)
		return
	}
	e.record(ev)
	if e.merger.Apply(e.cache, ev) {
		e.changed(ChangeMerged)
	}
}

// Refresh reloads the cache and waits for the load to settle. It returns
// the load's error, or nil if the load was superseded by a newer one.
func (e *Engine) Refresh(ctx context.Context) error {
	var run *loadRun
	if err := e.do(ctx, func() { run = e.startLoad() }); err != nil {
		return err
	}

	select {
	case <-run.settled:
	case <-ctx.Done():
		return ctx.Err()
	}

	var err error
	if doErr := e.do(ctx, func() { err = run.err }); doErr != nil {
		return doErr
	}
	return err
}

// WaitIdle blocks until no load is in flight.
func (e *Engine) WaitIdle(ctx context.Context) error {
	for {
		var settled chan struct{}
		err := e.do(ctx, func() {
			if e.load != nil {
				settled = e.load.settled
			}
		})
		if err != nil {
			return err
		}
		if settled == nil {
			return nil
		}

		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// UpdateStatus writes status for questionID as the current user.
//
// The remote write runs on the caller's goroutine; the cache is updated
// only after the store confirms it, and only if the same user is still
// signed in. The returned Outcome has also been sent to the Notifier.
func (e *Engine) UpdateStatus(ctx context.Context, questionID string, status schema.Status) (Outcome, error) {
	var id identity.Identity
	if err := e.do(ctx, func() { id = e.identity }); err != nil {
		return Outcome{}, err
	}

	rec, werr := e.writer.Write(ctx, id, questionID, status)

	var o Outcome
	err := e.do(context.Background(), func() {
		if werr == nil && e.identity != id {
			e.logger.Printf("Identity changed during write of %s; not caching it", questionID)
			o = e.writer.Apply(nil, questionID, rec, nil)
			return
		}
		o = e.writer.Apply(e.cache, questionID, rec, werr)
		if werr == nil {
			e.record(store.ChangeEvent{Type: store.EventUpdate, New: rec, At: rec.LastUpdated})
			e.changed(ChangeWritten)
		}
	})
	if err != nil {
		return Outcome{}, err
	}
	return o, werr
}

// SetActiveSheet selects a loaded sheet.
func (e *Engine) SetActiveSheet(ctx context.Context, sheetID string) error {
	var err error
	if doErr := e.do(ctx, func() { err = e.cache.SetActiveSheet(sheetID) }); doErr != nil {
		return doErr
	}
	return err
}

// State returns a snapshot of the engine's state.
func (e *Engine) State(ctx context.Context) (State, error) {
	var s State
	err := e.do(ctx, func() {
		s = State{
			Identity:    e.identity,
			Sheets:      e.cache.Sheets(),
			ActiveSheet: e.cache.ActiveSheet(),
			Loading:     e.cache.Loading(),
			Err:         e.cache.Err(),
			Statuses:    e.cache.StatusCount(),
		}
	})
	return s, err
}

// QuestionsWithStatus returns a sheet's questions with effective statuses.
func (e *Engine) QuestionsWithStatus(ctx context.Context, sheetID string) ([]schema.QuestionWithStatus, error) {
	var out []schema.QuestionWithStatus
	err := e.do(ctx, func() { out = e.cache.QuestionsWithStatus(sheetID) })
	return out, err
}

// SheetStatistics computes per-sheet tallies from the current cache.
func (e *Engine) SheetStatistics(ctx context.Context) ([]SheetStatistic, error) {
	var out []SheetStatistic
	err := e.do(ctx, func() { out = SheetStatistics(e.cache) })
	return out, err
}

// TopicStatistics computes per-topic tallies from the current cache.
func (e *Engine) TopicStatistics(ctx context.Context) ([]TopicStatistic, error) {
	var out []TopicStatistic
	err := e.do(ctx, func() { out = TopicStatistics(e.cache) })
	return out, err
}

// DailyProgress computes the completion histogram for the current user.
//
// The secondary read runs off the engine goroutine. When it fails the
// zero-filled window is returned along with an error wrapping
// ErrAggregation, so callers that only want the chart can ignore it.
func (e *Engine) DailyProgress(ctx context.Context) ([]DailyProgress, error) {
	var (
		id  identity.Identity
		ids []string
	)
	if err := e.do(ctx, func() {
		id = e.identity
		ids = e.cache.CompletedQuestionIDs()
	}); err != nil {
		return nil, err
	}

	now := e.config.Now()
	if !id.Authenticated() {
		return DailyWindow(now), nil
	}

	days, err := FetchDailyProgress(ctx, e.store, id.UserID, ids, now)
	if err != nil {
		e.logger.Printf("WARNING: %v; showing empty history", err)
	}
	return days, err
}
