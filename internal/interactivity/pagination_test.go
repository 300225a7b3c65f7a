package interactivity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/slashkit/internal/slash"
	"github.com/keepmind9/slashkit/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pages(n int) StaticPages {
	out := make(StaticPages, n)
	for i := range out {
		out[i] = Page{Content: fmt.Sprintf("page %d", i+1)}
	}
	return out
}

func newPagination(t *testing.T, platform *mockPlatform, n int) *PaginationSession {
	t.Helper()
	p, err := NewPaginationSession(platform, DefaultConfig(), "chan-1", "m1", "owner", pages(n))
	require.NoError(t, err)
	return p
}

func buttonStates(edit *discordgo.MessageEdit) map[string]bool {
	out := make(map[string]bool)
	if edit == nil || edit.Components == nil {
		return out
	}
	for _, row := range *edit.Components {
		for _, c := range row.(discordgo.ActionsRow).Components {
			b := c.(discordgo.Button)
			out[b.CustomID] = b.Disabled
		}
	}
	return out
}

func TestPagination_LeftAtFirstPageStaysAndRerenders(t *testing.T) {
	platform := newMockPlatform()
	p := newPagination(t, platform, 3)

	require.NoError(t, p.Handle(context.Background(), click("m1", "owner", constants.ButtonLeft)))
	assert.Equal(t, 0, p.Cursor())
	require.Equal(t, 1, platform.editCount(), "boundary moves still re-render")

	edit := platform.lastEdit()
	assert.Equal(t, "page 1", *edit.Content)
	states := buttonStates(edit)
	assert.True(t, states[constants.ButtonLeft])
	assert.True(t, states[constants.ButtonSkipLeft])
	assert.False(t, states[constants.ButtonStop])
	assert.False(t, states[constants.ButtonRight])
}

func TestPagination_Transitions(t *testing.T) {
	platform := newMockPlatform()
	p := newPagination(t, platform, 4)
	ctx := context.Background()

	steps := []struct {
		button string
		want   int
	}{
		{constants.ButtonRight, 1},
		{constants.ButtonRight, 2},
		{constants.ButtonSkipRight, 3},
		{constants.ButtonRight, 3},
		{constants.ButtonLeft, 2},
		{constants.ButtonSkipLeft, 0},
	}
	for _, s := range steps {
		require.NoError(t, p.Handle(ctx, click("m1", "owner", s.button)))
		assert.Equal(t, s.want, p.Cursor(), "after %s", s.button)
		assert.Equal(t, fmt.Sprintf("page %d", s.want+1), *platform.lastEdit().Content)
	}
	assert.Equal(t, len(steps), platform.editCount())

	require.NoError(t, p.Handle(ctx, click("m1", "owner", constants.ButtonSkipRight)))
	states := buttonStates(platform.lastEdit())
	assert.True(t, states[constants.ButtonRight])
	assert.True(t, states[constants.ButtonSkipRight])
	assert.False(t, states[constants.ButtonLeft])
}

func TestPagination_CursorStaysInRange(t *testing.T) {
	buttons := []string{constants.ButtonLeft, constants.ButtonRight, constants.ButtonSkipLeft, constants.ButtonSkipRight}
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{1, 2, 5} {
		p := newPagination(t, newMockPlatform(), n)
		for i := 0; i < 200; i++ {
			require.NoError(t, p.Handle(context.Background(), click("m1", "owner", buttons[rng.Intn(len(buttons))])))
			c := p.Cursor()
			require.GreaterOrEqual(t, c, 0)
			require.Less(t, c, n)
		}
	}
}

func TestPagination_StopSettlesWithoutRender(t *testing.T) {
	platform := newMockPlatform()
	p := newPagination(t, platform, 3)

	require.NoError(t, p.Handle(context.Background(), click("m1", "owner", constants.ButtonStop)))
	assert.True(t, p.Stopped())
	assert.True(t, p.Signal().Settled())
	assert.NoError(t, p.Signal().Err())
	assert.Equal(t, 0, platform.editCount())

	require.NoError(t, p.Handle(context.Background(), click("m1", "owner", constants.ButtonRight)))
	assert.Equal(t, 0, p.Cursor(), "stopped sessions ignore further clicks")
}

func TestPagination_UnknownAction(t *testing.T) {
	p := newPagination(t, newMockPlatform(), 2)
	err := p.Handle(context.Background(), click("m1", "owner", "not-a-button"))
	assert.ErrorIs(t, err, slash.ErrUnknownAction)

	var de *slash.DispatchError
	assert.ErrorAs(t, err, &de)
}

func TestPagination_Cleanup(t *testing.T) {
	tests := []struct {
		name     string
		deletion DeletionBehavior
		edits    int
		deletes  int
	}{
		{"delete buttons", DeleteButtons, 1, 0},
		{"delete message", DeleteMessage, 0, 1},
		{"keep message", KeepMessage, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := newMockPlatform()
			cfg := DefaultConfig()
			cfg.Deletion = tt.deletion
			p, err := NewPaginationSession(platform, cfg, "chan-1", "m1", "owner", pages(2))
			require.NoError(t, err)

			require.NoError(t, p.Cleanup(context.Background()))
			assert.Len(t, platform.edits, tt.edits)
			assert.Len(t, platform.deletes, tt.deletes)
			if tt.edits == 1 {
				edit := platform.edits[0]
				require.NotNil(t, edit.Components)
				assert.Empty(t, *edit.Components)
				assert.Nil(t, edit.Content, "only the buttons are touched")
			}
		})
	}
}

func TestPagination_RejectsBadConfig(t *testing.T) {
	_, err := NewPaginationSession(newMockPlatform(), DefaultConfig(), "c", "m", "a", StaticPages{})
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Buttons.Right.ID = cfg.Buttons.Left.ID
	_, err = NewPaginationSession(newMockPlatform(), cfg, "c", "m", "a", pages(2))
	assert.Error(t, err)
}

func TestPaginate_StopRunsOneCleanupEvenWhenItFails(t *testing.T) {
	platform := newMockPlatform()
	r := NewRouter(platform, DefaultConfig())
	var stages []Stage
	r.OnSessionError(func(e SessionError) { stages = append(stages, e.Stage) })

	done := make(chan error, 1)
	go func() { done <- r.Paginate(context.Background(), "chan-1", "owner", pages(3)) }()
	require.Eventually(t, func() bool { return r.Len() == 1 }, time.Second, time.Millisecond)

	platform.mu.Lock()
	require.Len(t, platform.sent, 1)
	assert.Equal(t, "page 1", platform.sent[0].Content)
	platform.editErr = errCleanup
	platform.mu.Unlock()

	assert.False(t, r.Route(context.Background(), click("msg-1", "intruder", constants.ButtonRight)))
	assert.True(t, r.Route(context.Background(), click("msg-1", "owner", constants.ButtonStop)))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Paginate did not return after stop")
	}
	assert.Equal(t, 1, platform.editCount(), "exactly one cleanup edit, no re-render on stop")
	assert.Equal(t, []Stage{StageCleanup}, stages)
	assert.Equal(t, 0, r.Len())
}

func TestCollector_GathersAcceptedClicks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 200 * time.Millisecond
	r := NewRouter(newMockPlatform(), cfg)

	done := make(chan []ComponentEvent, 1)
	go func() {
		events, _ := r.Collect(context.Background(), "m1", "", func(evt ComponentEvent) bool {
			return evt.CustomID != "skip"
		})
		done <- events
	}()
	require.Eventually(t, func() bool { return r.Len() == 1 }, time.Second, time.Millisecond)

	r.Route(context.Background(), click("m1", "a1", "one"))
	r.Route(context.Background(), click("m1", "a2", "skip"))
	r.Route(context.Background(), click("m1", "a3", "two"))

	events := <-done
	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].CustomID)
	assert.Equal(t, "two", events[1].CustomID)
}

func TestRouter_CleanupWaitsForInFlightClick(t *testing.T) {
	platform := newMockPlatform()
	rendering := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	platform.beforeEdit = func(edit *discordgo.MessageEdit) {
		if edit.Content == nil {
			return
		}
		once.Do(func() {
			close(rendering)
			<-release
		})
	}
	r := NewRouter(platform, DefaultConfig())
	p := newPagination(t, platform, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, p) }()
	require.Eventually(t, func() bool { return r.Len() == 1 }, time.Second, time.Millisecond)

	routed := make(chan bool, 1)
	go func() { routed <- r.Route(context.Background(), click("m1", "owner", constants.ButtonRight)) }()
	<-rendering
	cancel()

	select {
	case <-done:
		t.Fatal("cleanup ran while a page was still rendering")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, <-routed)
	require.Equal(t, 2, platform.editCount())
	last := platform.lastEdit()
	assert.Nil(t, last.Content, "the cleanup edit comes last")
	require.NotNil(t, last.Components)
	assert.Empty(t, *last.Components)
}

func TestPaginate_ClearsPageWhenSessionCannotStart(t *testing.T) {
	tests := []struct {
		name     string
		deletion DeletionBehavior
		edits    int
		deletes  int
	}{
		{"delete buttons", DeleteButtons, 1, 0},
		{"delete message", DeleteMessage, 0, 1},
		{"keep message still drops buttons", KeepMessage, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := newMockPlatform()
			cfg := DefaultConfig()
			cfg.Deletion = tt.deletion
			r := NewRouter(platform, cfg)
			require.NoError(t, r.Begin(newStub("msg-1", "")))

			err := r.Paginate(context.Background(), "chan-1", "owner", pages(2))
			assert.ErrorIs(t, err, ErrSessionExists)

			platform.mu.Lock()
			defer platform.mu.Unlock()
			assert.Len(t, platform.sent, 1)
			assert.Len(t, platform.edits, tt.edits)
			assert.Len(t, platform.deletes, tt.deletes)
			if tt.edits == 1 {
				require.NotNil(t, platform.edits[0].Components)
				assert.Empty(t, *platform.edits[0].Components)
			}
		})
	}
}

func TestPaginate_SendFailureLeavesNothingBehind(t *testing.T) {
	platform := newMockPlatform()
	platform.sendErr = errors.New("missing access")
	r := NewRouter(platform, DefaultConfig())

	err := r.Paginate(context.Background(), "chan-1", "owner", pages(2))
	assert.Error(t, err)
	assert.Zero(t, platform.editCount())
	assert.Zero(t, r.Len())
}
