package slash

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/keepmind9/slashkit/internal/logger"
	"github.com/keepmind9/slashkit/pkg/constants"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ScopeState is the registration state of one scope
type ScopeState int

const (
	StatePending ScopeState = iota
	StateRegistered
	StateErrored
)

func (s ScopeState) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateErrored:
		return "errored"
	default:
		return "pending"
	}
}

// Config tunes an Extension. Zero values take the package defaults.
type Config struct {
	// Services is handed to every Factory and exposed on every Context
	Services any
	// RegistrationRate is the number of bulk overwrites allowed per second
	RegistrationRate float64
	// RegistrationBurst is the limiter burst
	RegistrationBurst int
	// Concurrency bounds how many scopes Sync registers at once
	Concurrency int
}

// snapshot is what dispatch reads; it is replaced whole on every sync
type snapshot struct {
	state ScopeState
	tree  *Tree
	err   error
}

type scope struct {
	modules []*Module
	current atomic.Pointer[snapshot]
}

// Extension owns the command trees of every scope and dispatches invocations to them
type Extension struct {
	platform Platform
	cfg      Config
	limiter  *rate.Limiter

	mu     sync.RWMutex
	scopes map[Scope]*scope
	order  []Scope

	executed hub[ExecutedEvent]
	errored  hub[ErroredEvent]
	synced   hub[SyncEvent]

	inflight sync.WaitGroup
}

// New creates an Extension speaking to platform
func New(platform Platform, cfg Config) *Extension {
	if cfg.RegistrationRate <= 0 {
		cfg.RegistrationRate = constants.DefaultRegistrationRate
	}
	if cfg.RegistrationBurst <= 0 {
		cfg.RegistrationBurst = constants.DefaultRegistrationBurst
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = constants.DefaultRegistrationConcurrency
	}
	return &Extension{
		platform: platform,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RegistrationRate), cfg.RegistrationBurst),
		scopes:   make(map[Scope]*scope),
	}
}

// Register adds a module to the global scope, or to each listed guild.
// The module takes effect on the next Sync of its scopes.
func (e *Extension) Register(m *Module, guildIDs ...string) {
	if m == nil {
		return
	}
	targets := []Scope{GlobalScope}
	if len(guildIDs) > 0 {
		targets = targets[:0]
		for _, id := range guildIDs {
			targets = append(targets, GuildScope(id))
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range targets {
		sc := e.scopes[s]
		if sc == nil {
			sc = &scope{}
			sc.current.Store(&snapshot{state: StatePending})
			e.scopes[s] = sc
			e.order = append(e.order, s)
		}
		sc.modules = append(sc.modules, m)
	}
	logger.WithFields(logrus.Fields{
		"module": m.Name,
		"scopes": len(targets),
	}).Debug("slash-module-registered")
}

// Scopes returns every scope with registered modules, in registration order
func (e *Extension) Scopes() []Scope {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Scope, len(e.order))
	copy(out, e.order)
	return out
}

// State returns the registration state of s
func (e *Extension) State(s Scope) ScopeState {
	snap := e.snapshot(s)
	if snap == nil {
		return StatePending
	}
	return snap.state
}

// Tree returns the tree published for s, or nil when s is not registered
func (e *Extension) Tree(s Scope) *Tree {
	snap := e.snapshot(s)
	if snap == nil {
		return nil
	}
	return snap.tree
}

// ScopeError returns the error that left s errored
func (e *Extension) ScopeError(s Scope) error {
	snap := e.snapshot(s)
	if snap == nil {
		return nil
	}
	return snap.err
}

func (e *Extension) snapshot(s Scope) *snapshot {
	e.mu.RLock()
	sc := e.scopes[s]
	e.mu.RUnlock()
	if sc == nil {
		return nil
	}
	return sc.current.Load()
}

// Sync registers every scope, a bounded number at a time.
// Each scope succeeds or fails on its own; the failures are joined.
func (e *Extension) Sync(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Concurrency)
	for _, s := range e.Scopes() {
		g.Go(func() error {
			if err := e.SyncScope(ctx, s); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", s, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// SyncScope compiles and registers one scope, then publishes the new tree.
// Any failure leaves the scope errored, refusing dispatch until a later sync succeeds.
func (e *Extension) SyncScope(ctx context.Context, s Scope) error {
	start := time.Now()
	e.mu.RLock()
	sc := e.scopes[s]
	var modules []*Module
	if sc != nil {
		modules = append(modules, sc.modules...)
	}
	e.mu.RUnlock()
	if sc == nil {
		return fmt.Errorf("scope %s has no registered modules", s)
	}

	tree, unbound, err := e.register(ctx, s, modules)
	evt := SyncEvent{Scope: s, Unbound: unbound, Err: err, Duration: time.Since(start)}
	if err != nil {
		sc.current.Store(&snapshot{state: StateErrored, err: err})
		logger.WithFields(logrus.Fields{
			"scope": s.String(),
			"error": err,
		}).Error("slash-scope-registration-failed")
		e.synced.publish(evt)
		return err
	}

	sc.current.Store(&snapshot{state: StateRegistered, tree: tree})
	evt.Commands = len(tree.roots)
	logger.WithFields(logrus.Fields{
		"scope":    s.String(),
		"commands": evt.Commands,
		"duration": evt.Duration.String(),
	}).Info("slash-scope-registered")
	e.synced.publish(evt)
	return nil
}

func (e *Extension) register(ctx context.Context, s Scope, modules []*Module) (*Tree, []string, error) {
	tree, err := Compile(ctx, modules)
	if err != nil {
		return nil, nil, err
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("wait for registration slot: %w", err)
	}
	registered, err := e.platform.BulkOverwrite(ctx, s.GuildID, tree.Payload())
	if err != nil {
		return nil, nil, fmt.Errorf("bulk overwrite: %w", err)
	}
	unbound, err := tree.Bind(registered)
	if err != nil {
		return nil, nil, err
	}
	if len(unbound) > 0 {
		logger.WithFields(logrus.Fields{
			"scope":    s.String(),
			"commands": unbound,
		}).Warn("slash-commands-missing-from-registration")
	}
	return tree, unbound, nil
}

// OnExecuted subscribes to successful invocations. The returned func unsubscribes.
func (e *Extension) OnExecuted(fn func(ExecutedEvent)) func() { return e.executed.subscribe(fn) }

// OnErrored subscribes to failed invocations. The returned func unsubscribes.
func (e *Extension) OnErrored(fn func(ErroredEvent)) func() { return e.errored.subscribe(fn) }

// OnSynced subscribes to scope registration results. The returned func unsubscribes.
func (e *Extension) OnSynced(fn func(SyncEvent)) func() { return e.synced.subscribe(fn) }

// Wait blocks until every dispatch started by HandleInteraction has returned
func (e *Extension) Wait() { e.inflight.Wait() }
