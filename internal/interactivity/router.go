package interactivity

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/slashkit/internal/logger"
	"github.com/keepmind9/slashkit/pkg/constants"
	"github.com/sirupsen/logrus"
)

// ErrSessionExists is returned by Begin when the key already has a session
var ErrSessionExists = errors.New("a session is already registered for this message")

// Session is one in-flight interactive exchange owned by the router
type Session interface {
	// MessageID is the session key
	MessageID() string
	// ActorID is the only user allowed to drive the session; empty allows anyone
	ActorID() string
	// Kind names the session type for logs and metrics
	Kind() string
	// Handle applies one accepted click. Deliveries to a session never overlap.
	Handle(ctx context.Context, evt ComponentEvent) error
	// Signal settles when the session completes
	Signal() *Signal
	// Cleanup runs exactly once after the session is unregistered
	Cleanup(ctx context.Context) error
}

// Stage tells which part of a session's lifetime failed
type Stage string

const (
	StageCompletion Stage = "completion"
	StageCleanup    Stage = "cleanup"
)

// SessionError reports one failure of one session
type SessionError struct {
	Key   string
	Kind  string
	Stage Stage
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s session %s: %s: %v", e.Kind, e.Key, e.Stage, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// SessionResult is reported once per session after its cleanup ran
type SessionResult struct {
	Key        string
	Kind       string
	Err        error
	CleanupErr error
	Duration   time.Duration
}

type entry struct {
	session Session
	// deliver serializes clicks routed to this session
	deliver sync.Mutex
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Router maps message ids to their sessions and routes component clicks to them
type Router struct {
	platform Platform
	cfg      Config
	shards   [constants.SessionShards]shard

	mu       sync.RWMutex
	onError  []func(SessionError)
	onResult []func(SessionResult)
}

// NewRouter creates a Router
func NewRouter(platform Platform, cfg Config) *Router {
	r := &Router{platform: platform, cfg: cfg.withDefaults()}
	for i := range r.shards {
		r.shards[i].entries = make(map[string]*entry)
	}
	return r
}

// Config returns the effective configuration
func (r *Router) Config() Config { return r.cfg }

func (r *Router) shard(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &r.shards[h.Sum32()%constants.SessionShards]
}

// Begin registers s under its message id
func (r *Router) Begin(s Session) error {
	_, err := r.begin(s)
	return err
}

func (r *Router) begin(s Session) (*entry, error) {
	key := s.MessageID()
	if key == "" {
		return nil, fmt.Errorf("session has no message id")
	}
	sh := r.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, exists := sh.entries[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, key)
	}
	e := &entry{session: s}
	sh.entries[key] = e
	return e, nil
}

// End removes whatever session is registered under key
func (r *Router) End(key string) {
	sh := r.shard(key)
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()
}

// Len returns the number of registered sessions
func (r *Router) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

func (r *Router) lookup(key string) *entry {
	sh := r.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.entries[key]
}

// Route hands a click to the session owning its message.
// Clicks on unmanaged messages and clicks by other actors are dropped; it
// reports whether the session's handler ran.
func (r *Router) Route(ctx context.Context, evt ComponentEvent) bool {
	e := r.lookup(evt.MessageID)
	if e == nil {
		return false
	}
	s := e.session
	fields := logrus.Fields{
		"session_key": evt.MessageID,
		"kind":        s.Kind(),
		"actor":       evt.ActorID,
		"custom_id":   evt.CustomID,
	}

	acked := false
	if r.cfg.AckComponents && evt.Interaction != nil {
		if err := r.platform.Acknowledge(ctx, evt.Interaction); err != nil {
			logger.WithFields(fields).WithError(err).Warn("component-ack-failed")
		} else {
			acked = true
		}
	}

	if owner := s.ActorID(); owner != "" && owner != evt.ActorID {
		if r.cfg.ResponseBehavior == BehaviorRespond && evt.Interaction != nil {
			if err := r.platform.Notify(ctx, evt.Interaction, r.cfg.ResponseMessage, acked); err != nil {
				logger.WithFields(fields).WithError(err).Warn("not-your-interaction-notice-failed")
			}
		}
		logger.WithFields(fields).Debug("component-click-from-other-actor")
		return false
	}

	e.deliver.Lock()
	defer e.deliver.Unlock()
	if s.Signal().Settled() {
		return false
	}
	if err := handle(ctx, s, evt); err != nil {
		logger.WithFields(fields).WithError(err).Error("session-handle-failed")
		s.Signal().Settle(err)
	}
	return true
}

// HandleComponent routes a raw interaction; non-component interactions are ignored
func (r *Router) HandleComponent(ctx context.Context, i *discordgo.Interaction) bool {
	evt, ok := NewComponentEvent(i)
	if !ok {
		return false
	}
	return r.Route(ctx, evt)
}

// Run registers s, waits for it to settle, then unregisters it and runs its cleanup.
// Cancelling ctx settles the session with the context error; reaching the
// configured timeout settles it normally. Run returns the completion error;
// a cleanup failure is reported separately and never replaces it.
func (r *Router) Run(ctx context.Context, s Session) error {
	e, err := r.begin(s)
	if err != nil {
		return err
	}
	return r.serve(ctx, e)
}

// serve drives a registered entry to completion and cleanup
func (r *Router) serve(ctx context.Context, e *entry) error {
	s := e.session
	start := time.Now()
	key := s.MessageID()

	waitCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	select {
	case <-s.Signal().Done():
	case <-waitCtx.Done():
		// The parent's error means cancellation; otherwise only our timeout fired.
		s.Signal().Settle(ctx.Err())
	}

	r.End(key)
	res := SessionResult{Key: key, Kind: s.Kind(), Err: s.Signal().Err()}

	// A click still being handled finishes before cleanup; later ones see the settled signal.
	e.deliver.Lock()
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultCleanupTimeout)
	res.CleanupErr = r.cleanup(cleanupCtx, s)
	cancel()
	e.deliver.Unlock()
	res.Duration = time.Since(start)

	fields := logrus.Fields{
		"session_key": key,
		"kind":        res.Kind,
		"duration":    res.Duration.String(),
	}
	if res.Err != nil {
		logger.WithFields(fields).WithError(res.Err).Warn("session-completed-with-error")
		r.report(SessionError{Key: key, Kind: res.Kind, Stage: StageCompletion, Err: res.Err})
	} else {
		logger.WithFields(fields).Debug("session-completed")
	}
	if res.CleanupErr != nil {
		logger.WithFields(fields).WithError(res.CleanupErr).Error("session-cleanup-failed")
		r.report(SessionError{Key: key, Kind: res.Kind, Stage: StageCleanup, Err: res.CleanupErr})
	}

	r.mu.RLock()
	listeners := append([]func(SessionResult){}, r.onResult...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		fn(res)
	}
	return res.Err
}

func handle(ctx context.Context, s Session, evt ComponentEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return s.Handle(ctx, evt)
}

func (r *Router) cleanup(ctx context.Context, s Session) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cleanup panicked: %v", p)
		}
	}()
	return s.Cleanup(ctx)
}

// OnSessionError subscribes to per-session failures
func (r *Router) OnSessionError(fn func(SessionError)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = append(r.onError, fn)
}

// OnSessionResult subscribes to finished sessions
func (r *Router) OnSessionResult(fn func(SessionResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResult = append(r.onResult, fn)
}

func (r *Router) report(e SessionError) {
	r.mu.RLock()
	listeners := append([]func(SessionError){}, r.onError...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}
