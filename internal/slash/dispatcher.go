package slash

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/keepmind9/slashkit/internal/logger"
	"github.com/sirupsen/logrus"
)

// HandleInteraction dispatches an application command interaction on its own goroutine.
// Other interaction types are ignored.
func (e *Extension) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	inv, err := NewInvocation(i)
	if errors.Is(err, errNotCommand) {
		return
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		if err != nil {
			e.fail(ErroredEvent{Command: commandName(i), Err: &DispatchError{Kind: ErrArgumentResolution, Err: err}})
			return
		}
		e.Dispatch(ctx, inv)
	}()
}

func commandName(i *discordgo.Interaction) string {
	if data, ok := i.Data.(discordgo.ApplicationCommandInteractionData); ok {
		return data.Name
	}
	return ""
}

// Dispatch runs one invocation to completion and publishes the outcome.
// Failures are reported through OnErrored only.
func (e *Extension) Dispatch(ctx context.Context, inv Invocation) {
	start := time.Now()
	c, err := e.dispatch(ctx, inv)
	if err != nil {
		e.fail(ErroredEvent{Context: c, Command: inv.FullName(), Err: err, Duration: time.Since(start)})
		return
	}
	evt := ExecutedEvent{Context: c, Duration: time.Since(start)}
	logger.WithFields(logrus.Fields{
		"command":  c.CommandName,
		"trace_id": c.TraceID,
		"actor":    c.ActorID(),
		"duration": evt.Duration.String(),
	}).Info("slash-command-executed")
	e.executed.publish(evt)
}

func (e *Extension) fail(evt ErroredEvent) {
	fields := logrus.Fields{
		"command": evt.Command,
		"error":   evt.Err,
	}
	if evt.Context != nil {
		fields["trace_id"] = evt.Context.TraceID
		fields["actor"] = evt.Context.ActorID()
	}
	logger.WithFields(fields).Warn("slash-command-errored")
	e.errored.publish(evt)
}

func (e *Extension) dispatch(ctx context.Context, inv Invocation) (*Context, error) {
	name := inv.FullName()

	s, node, err := e.lookup(inv)
	if err != nil {
		return nil, &DispatchError{Kind: err, Command: name}
	}

	c := &Context{
		Interaction: inv.Interaction,
		Scope:       s,
		GuildID:     inv.GuildID,
		ChannelID:   inv.ChannelID,
		User:        inv.User,
		Member:      inv.Member,
		CommandID:   inv.CommandID,
		CommandName: node.Path(),
		TraceID:     uuid.NewString(),
		Services:    e.cfg.Services,
		ctx:         ctx,
		responder:   e.platform,
	}

	var fetcher EntityFetcher
	if e.platform != nil {
		fetcher = e.platform
	}
	resolved := &Resolved{GuildID: inv.GuildID, Data: inv.Resolved}
	args, err := decodeArgs(ctx, node, inv.Options, resolved, fetcher)
	if err != nil {
		return c, &DispatchError{Kind: ErrArgumentResolution, Command: c.CommandName, Err: err}
	}

	if err := invoke(c, node.handler, args, e.cfg.Services); err != nil {
		return c, err
	}
	return c, nil
}

// lookup finds the leaf for inv, guild scope first, then global.
// An errored scope has no tree, so it refuses the invocation only when no
// healthy candidate serves the command id.
func (e *Extension) lookup(inv Invocation) (Scope, *Node, error) {
	candidates := []Scope{GlobalScope}
	if inv.GuildID != "" {
		candidates = []Scope{GuildScope(inv.GuildID), GlobalScope}
	}
	var errored Scope
	gated := false
	for _, s := range candidates {
		snap := e.snapshot(s)
		if snap == nil {
			continue
		}
		if snap.state == StateErrored {
			if !gated {
				errored, gated = s, true
			}
			continue
		}
		if snap.tree == nil {
			continue
		}
		if node, err := snap.tree.Lookup(inv.CommandID, inv.Path); err == nil {
			return s, node, nil
		}
	}
	if gated {
		return errored, nil, ErrExtensionErrored
	}
	return Scope{}, nil, ErrUnregisteredCommand
}

// invoke builds the owning value, then runs the before hook, the handler and the after hook
func invoke(c *Context, b *binding, args []reflect.Value, services any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{
				"command":  c.CommandName,
				"trace_id": c.TraceID,
				"panic":    r,
				"stack":    string(debug.Stack()),
			}).Error("slash-handler-panicked")
			err = &DispatchError{Kind: ErrHandlerPanic, Command: c.CommandName, Err: fmt.Errorf("%v", r)}
		}
	}()

	var owner any
	if b.factory != nil {
		owner, err = b.factory.fn(services)
		if err != nil {
			return fmt.Errorf("%s: construct handler owner: %w", c.CommandName, err)
		}
	}

	if h, ok := owner.(BeforeExecutor); ok {
		if err := h.BeforeExecution(c); err != nil {
			return fmt.Errorf("%s: before execution: %w", c.CommandName, err)
		}
	}

	in := make([]reflect.Value, 0, len(args)+2)
	if b.receiver {
		in = append(in, ownerValue(owner, b.fn.Type().In(0)))
	}
	in = append(in, reflect.ValueOf(c))
	in = append(in, args...)
	if out := b.fn.Call(in); !out[0].IsNil() {
		return out[0].Interface().(error)
	}

	if h, ok := owner.(AfterExecutor); ok {
		if err := h.AfterExecution(c); err != nil {
			return fmt.Errorf("%s: after execution: %w", c.CommandName, err)
		}
	}
	return nil
}

func ownerValue(owner any, want reflect.Type) reflect.Value {
	if owner == nil {
		return reflect.Zero(want)
	}
	return reflect.ValueOf(owner)
}
