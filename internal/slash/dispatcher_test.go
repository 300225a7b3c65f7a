package slash

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type calls struct {
	mu   sync.Mutex
	ping int
	add  [][2]int64
}

func scenarioModule(rec *calls) *Module {
	return &Module{
		Name: "scenario",
		Commands: []Command{{
			Name: "ping", Description: "ping",
			Handler: func(c *Context) error {
				rec.mu.Lock()
				defer rec.mu.Unlock()
				rec.ping++
				return nil
			},
		}},
		Groups: []Group{{
			Name: "math", Description: "math",
			Commands: []Command{{
				Name: "add", Description: "add two numbers",
				Handler: func(c *Context, a, b int64) error {
					rec.mu.Lock()
					defer rec.mu.Unlock()
					rec.add = append(rec.add, [2]int64{a, b})
					return nil
				},
				Params: []Param{{Name: "a", Description: "a"}, {Name: "b", Description: "b"}},
			}},
		}},
	}
}

func syncedExtension(t *testing.T, platform *mockPlatform, mods ...*Module) *Extension {
	t.Helper()
	ext := New(platform, Config{RegistrationRate: 1000})
	for _, m := range mods {
		ext.Register(m)
	}
	require.NoError(t, ext.Sync(context.Background()))
	return ext
}

func dispatch(t *testing.T, ext *Extension, i *discordgo.Interaction) {
	t.Helper()
	inv, err := NewInvocation(i)
	require.NoError(t, err)
	ext.Dispatch(context.Background(), inv)
}

func TestDispatch_PingAndMathAdd(t *testing.T) {
	rec := &calls{}
	ext := syncedExtension(t, newMockPlatform(), scenarioModule(rec))
	events := record(ext)

	dispatch(t, ext, commandInteraction("", "1", "ping"))
	dispatch(t, ext, commandInteraction("", "2", "math", subOpt("add", intOpt("a", 3), intOpt("b", 4))))

	assert.Equal(t, 1, rec.ping)
	assert.Equal(t, [][2]int64{{3, 4}}, rec.add)

	executed, errored := events.counts()
	assert.Equal(t, 2, executed)
	assert.Equal(t, 0, errored)
	assert.Equal(t, "math add", events.executed[1].Context.CommandName)
	assert.NotEmpty(t, events.executed[1].Context.TraceID)
	assert.Equal(t, "actor-1", events.executed[1].Context.ActorID())
}

func TestDispatch_UnregisteredCommand(t *testing.T) {
	rec := &calls{}
	ext := syncedExtension(t, newMockPlatform(), scenarioModule(rec))
	events := record(ext)

	dispatch(t, ext, commandInteraction("", "7", "ghost"))
	dispatch(t, ext, commandInteraction("", "2", "math", subOpt("sub", intOpt("a", 1), intOpt("b", 2))))
	dispatch(t, ext, commandInteraction("", "2", "math"))

	_, errored := events.counts()
	require.Equal(t, 3, errored)
	for _, evt := range events.errored {
		assert.ErrorIs(t, evt.Err, ErrUnregisteredCommand)
		assert.Nil(t, evt.Context)
	}
	assert.Empty(t, rec.add)
}

func TestDispatch_ArgumentResolution(t *testing.T) {
	ext := syncedExtension(t, newMockPlatform(), scenarioModule(&calls{}))
	events := record(ext)

	dispatch(t, ext, commandInteraction("", "2", "math", subOpt("add", intOpt("a", 3))))
	err := events.lastErr()
	assert.ErrorIs(t, err, ErrArgumentResolution)
	assert.ErrorIs(t, err, ErrMissingOption)

	dispatch(t, ext, commandInteraction("", "2", "math", subOpt("add", strOpt("a", "x"), intOpt("b", 1))))
	err = events.lastErr()
	assert.ErrorIs(t, err, ErrArgumentResolution)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "a", de.Option)
	assert.NotNil(t, events.errored[1].Context, "context exists once lookup succeeded")
}

func TestDispatch_DefaultsForOmittedOptionals(t *testing.T) {
	var got []any
	mod := &Module{Commands: []Command{{
		Name: "greet", Description: "greet",
		Handler: func(c *Context, name string, times int64) error {
			got = append(got, name, times)
			return nil
		},
		Params: []Param{
			{Name: "name", Description: "who", Optional: true, Default: "world"},
			{Name: "times", Description: "times", Optional: true},
		},
	}}}
	ext := syncedExtension(t, newMockPlatform(), mod)

	dispatch(t, ext, commandInteraction("", "1", "greet"))
	dispatch(t, ext, commandInteraction("", "1", "greet", intOpt("times", 2)))
	assert.Equal(t, []any{"world", int64(0), "world", int64(2)}, got)
}

func TestDispatch_ErroredScopeRefusesDispatch(t *testing.T) {
	platform := newMockPlatform()
	platform.overwriteErr = errors.New("503")
	ext := New(platform, Config{RegistrationRate: 1000})
	ext.Register(scenarioModule(&calls{}))

	err := ext.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateErrored, ext.State(GlobalScope))
	assert.Nil(t, ext.Tree(GlobalScope))

	events := record(ext)
	dispatch(t, ext, commandInteraction("", "1", "ping"))
	assert.ErrorIs(t, events.lastErr(), ErrExtensionErrored)

	platform.overwriteErr = nil
	require.NoError(t, ext.Sync(context.Background()))
	dispatch(t, ext, commandInteraction("", "1", "ping"))
	executed, _ := events.counts()
	assert.Equal(t, 1, executed, "a successful re-registration lifts the gate")
}

func TestDispatch_CompileErrorMarksScopeErrored(t *testing.T) {
	ext := New(newMockPlatform(), Config{RegistrationRate: 1000})
	ext.Register(&Module{Commands: []Command{{Name: "bad", Description: "bad", Handler: func() error { return nil }}}})

	err := ext.SyncScope(context.Background(), GlobalScope)
	assert.ErrorIs(t, err, ErrInvalidHandlerSignature)
	assert.Equal(t, StateErrored, ext.State(GlobalScope))
	assert.ErrorIs(t, ext.ScopeError(GlobalScope), ErrInvalidHandlerSignature)
}

func TestDispatch_GuildScopeBeforeGlobal(t *testing.T) {
	platform := newMockPlatform()
	var hit []string
	global := &Module{Commands: []Command{{Name: "where", Description: "where", Handler: func(c *Context) error {
		hit = append(hit, "global:"+c.Scope.String())
		return nil
	}}}}
	guild := &Module{Commands: []Command{{Name: "local", Description: "local", Handler: func(c *Context) error {
		hit = append(hit, "guild:"+c.Scope.String())
		return nil
	}}}}
	platform.assign = func(cmds []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand {
		out := make([]*discordgo.ApplicationCommand, 0, len(cmds))
		for _, c := range cmds {
			out = append(out, &discordgo.ApplicationCommand{ID: "id-" + c.Name, Name: c.Name})
		}
		return out
	}

	ext := New(platform, Config{RegistrationRate: 1000})
	ext.Register(global)
	ext.Register(guild, "g1")
	require.NoError(t, ext.Sync(context.Background()))
	assert.Equal(t, []Scope{GlobalScope, GuildScope("g1")}, ext.Scopes())

	dispatch(t, ext, commandInteraction("g1", "id-local", "local"))
	dispatch(t, ext, commandInteraction("g1", "id-where", "where"))
	assert.Equal(t, []string{"guild:guild:g1", "global:global"}, hit)
}

func TestDispatch_ErroredGuildDoesNotShadowGlobal(t *testing.T) {
	platform := newMockPlatform()
	platform.assign = func(cmds []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand {
		out := make([]*discordgo.ApplicationCommand, 0, len(cmds))
		for _, c := range cmds {
			out = append(out, &discordgo.ApplicationCommand{ID: "id-" + c.Name, Name: c.Name})
		}
		return out
	}
	ext := New(platform, Config{RegistrationRate: 1000})
	ext.Register(scenarioModule(&calls{}))
	ext.Register(&Module{Commands: []Command{{Name: "bad", Description: "bad", Handler: func() error { return nil }}}}, "g1")

	require.Error(t, ext.Sync(context.Background()))
	assert.Equal(t, StateRegistered, ext.State(GlobalScope))
	assert.Equal(t, StateErrored, ext.State(GuildScope("g1")))

	events := record(ext)
	dispatch(t, ext, commandInteraction("g1", "id-ping", "ping"))
	executed, _ := events.counts()
	assert.Equal(t, 1, executed, "the healthy global scope still serves its own ids")

	dispatch(t, ext, commandInteraction("g1", "id-bad", "bad"))
	assert.ErrorIs(t, events.lastErr(), ErrExtensionErrored)

	dispatch(t, ext, commandInteraction("", "id-bad", "bad"))
	assert.ErrorIs(t, events.lastErr(), ErrUnregisteredCommand)
}

type hookedOwner struct {
	log *[]string
	err error
}

func (h *hookedOwner) BeforeExecution(c *Context) error {
	*h.log = append(*h.log, "before")
	return h.err
}

func (h *hookedOwner) AfterExecution(c *Context) error {
	*h.log = append(*h.log, "after")
	return nil
}

func (h *hookedOwner) Run(c *Context) error {
	*h.log = append(*h.log, "run:"+c.Services.(string))
	return nil
}

func TestDispatch_LifecycleHooks(t *testing.T) {
	var log []string
	var beforeErr error
	constructed := 0
	factory := NewFactory(func(services any) (*hookedOwner, error) {
		constructed++
		return &hookedOwner{log: &log, err: beforeErr}, nil
	})
	mod := &Module{Factory: factory, Commands: []Command{{Name: "run", Description: "run", Handler: (*hookedOwner).Run}}}

	platform := newMockPlatform()
	ext := New(platform, Config{Services: "svc", RegistrationRate: 1000})
	ext.Register(mod)
	require.NoError(t, ext.Sync(context.Background()))
	events := record(ext)

	dispatch(t, ext, commandInteraction("", "1", "run"))
	dispatch(t, ext, commandInteraction("", "1", "run"))
	assert.Equal(t, []string{"before", "run:svc", "after", "before", "run:svc", "after"}, log)
	assert.Equal(t, 2, constructed, "a fresh owner per invocation")

	log = nil
	beforeErr = errors.New("denied")
	dispatch(t, ext, commandInteraction("", "1", "run"))
	assert.Equal(t, []string{"before"}, log)
	assert.ErrorContains(t, events.lastErr(), "denied")
}

func TestDispatch_HandlerFailureAndPanic(t *testing.T) {
	boom := errors.New("boom")
	mod := &Module{Commands: []Command{
		{Name: "fail", Description: "fail", Handler: func(c *Context) error { return boom }},
		{Name: "panic", Description: "panic", Handler: func(c *Context) error { panic("kaboom") }},
		{Name: "ok", Description: "ok", Handler: func(c *Context) error { return c.Respond("pong") }},
	}}
	platform := newMockPlatform()
	ext := syncedExtension(t, platform, mod)
	events := record(ext)

	dispatch(t, ext, commandInteraction("", "1", "fail"))
	assert.ErrorIs(t, events.lastErr(), boom)

	dispatch(t, ext, commandInteraction("", "2", "panic"))
	assert.ErrorIs(t, events.lastErr(), ErrHandlerPanic)

	dispatch(t, ext, commandInteraction("", "3", "ok"))
	executed, errored := events.counts()
	assert.Equal(t, 1, executed, "later dispatches are unaffected")
	assert.Equal(t, 2, errored)
	require.Len(t, platform.responses, 1)
	assert.Equal(t, "pong", platform.responses[0].Data.Content)
}

func TestHandleInteraction_RunsAsync(t *testing.T) {
	rec := &calls{}
	ext := syncedExtension(t, newMockPlatform(), scenarioModule(rec))
	events := record(ext)

	for i := 0; i < 20; i++ {
		ext.HandleInteraction(context.Background(), commandInteraction("", "1", "ping"))
	}
	ext.HandleInteraction(context.Background(), &discordgo.Interaction{Type: discordgo.InteractionMessageComponent})
	ext.Wait()

	executed, errored := events.counts()
	assert.Equal(t, 20, executed)
	assert.Equal(t, 0, errored)
	assert.Equal(t, 20, rec.ping)
}

func TestSync_BindsIdsAndReportsGap(t *testing.T) {
	platform := newMockPlatform()
	platform.assign = func(cmds []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand {
		return []*discordgo.ApplicationCommand{{ID: "10", Name: "math"}}
	}
	ext := New(platform, Config{RegistrationRate: 1000})
	ext.Register(scenarioModule(&calls{}))

	var synced []SyncEvent
	unsubscribe := ext.OnSynced(func(evt SyncEvent) { synced = append(synced, evt) })
	require.NoError(t, ext.Sync(context.Background()))
	unsubscribe()
	require.NoError(t, ext.Sync(context.Background()))

	require.Len(t, synced, 1)
	assert.Equal(t, []string{"ping"}, synced[0].Unbound)
	assert.Equal(t, 2, synced[0].Commands)
	assert.Len(t, platform.overwrite[""], 2)

	tree := ext.Tree(GlobalScope)
	require.NotNil(t, tree)
	assert.Equal(t, "10", tree.Command("math").ID)
	assert.Empty(t, tree.Command("ping").ID)
	assert.Equal(t, StateRegistered, ext.State(GlobalScope))
}
