package slash

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// mockPlatform is a hand-written Platform for tests
type mockPlatform struct {
	mu sync.Mutex

	overwriteErr error
	// assign controls the ids handed back; nil assigns 1, 2, 3... in payload order
	assign    func(cmds []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand
	overwrite map[string][]*discordgo.ApplicationCommand

	users    map[string]*discordgo.User
	members  map[string]*discordgo.Member
	channels map[string]*discordgo.Channel
	roles    map[string]*discordgo.Role
	fetches  int

	responses []*discordgo.InteractionResponse
	followups []*discordgo.WebhookParams
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{overwrite: make(map[string][]*discordgo.ApplicationCommand)}
}

func (m *mockPlatform) BulkOverwrite(_ context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overwriteErr != nil {
		return nil, m.overwriteErr
	}
	m.overwrite[guildID] = cmds
	if m.assign != nil {
		return m.assign(cmds), nil
	}
	out := make([]*discordgo.ApplicationCommand, 0, len(cmds))
	for i, c := range cmds {
		out = append(out, &discordgo.ApplicationCommand{ID: strconv.Itoa(i + 1), Name: c.Name})
	}
	return out, nil
}

var errNotFound = errors.New("not found")

func (m *mockPlatform) FetchUser(_ context.Context, id string) (*discordgo.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, errNotFound
}

func (m *mockPlatform) FetchMember(_ context.Context, _, id string) (*discordgo.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if mem, ok := m.members[id]; ok {
		return mem, nil
	}
	return nil, errNotFound
}

func (m *mockPlatform) FetchChannel(_ context.Context, id string) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if c, ok := m.channels[id]; ok {
		return c, nil
	}
	return nil, errNotFound
}

func (m *mockPlatform) FetchRole(_ context.Context, _, id string) (*discordgo.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if r, ok := m.roles[id]; ok {
		return r, nil
	}
	return nil, errNotFound
}

func (m *mockPlatform) Respond(_ context.Context, _ *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	return nil
}

func (m *mockPlatform) Followup(_ context.Context, _ *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followups = append(m.followups, params)
	return &discordgo.Message{ID: "followup-" + strconv.Itoa(len(m.followups))}, nil
}

func (m *mockPlatform) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

// recorder captures the notification streams of an Extension
type recorder struct {
	mu       sync.Mutex
	executed []ExecutedEvent
	errored  []ErroredEvent
}

func record(e *Extension) *recorder {
	r := &recorder{}
	e.OnExecuted(func(evt ExecutedEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.executed = append(r.executed, evt)
	})
	e.OnErrored(func(evt ErroredEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.errored = append(r.errored, evt)
	})
	return r
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.executed), len(r.errored)
}

func (r *recorder) lastErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errored) == 0 {
		return nil
	}
	return r.errored[len(r.errored)-1].Err
}

func commandInteraction(guildID, id, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "interaction-" + id,
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   guildID,
		ChannelID: "chan-1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "actor-1", Username: "alice"}},
		Data: discordgo.ApplicationCommandInteractionData{
			ID:      id,
			Name:    name,
			Options: opts,
		},
	}
}

func intOpt(name string, v float64) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: v}
}

func strOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func subOpt(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}
