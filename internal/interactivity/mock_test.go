package interactivity

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// mockPlatform records every outbound call
type mockPlatform struct {
	mu sync.Mutex

	acks    int
	notices []notice
	sent    []*discordgo.MessageSend
	edits   []*discordgo.MessageEdit
	deletes []string
	editErr error
	sendID  string
	sendErr error
	// beforeEdit runs outside the lock before an edit is recorded
	beforeEdit func(*discordgo.MessageEdit)
}

type notice struct {
	content      string
	acknowledged bool
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{sendID: "msg-1"}
}

func (m *mockPlatform) Acknowledge(context.Context, *discordgo.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks++
	return nil
}

func (m *mockPlatform) Notify(_ context.Context, _ *discordgo.Interaction, content string, acknowledged bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, notice{content: content, acknowledged: acknowledged})
	return nil
}

func (m *mockPlatform) SendMessage(_ context.Context, _ string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, msg)
	return &discordgo.Message{ID: m.sendID}, nil
}

func (m *mockPlatform) EditMessage(_ context.Context, edit *discordgo.MessageEdit) error {
	if hook := m.beforeEdit; hook != nil {
		hook(edit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, edit)
	return m.editErr
}

func (m *mockPlatform) DeleteMessage(_ context.Context, _, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, messageID)
	return nil
}

func (m *mockPlatform) editCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edits)
}

func (m *mockPlatform) lastEdit() *discordgo.MessageEdit {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edits) == 0 {
		return nil
	}
	return m.edits[len(m.edits)-1]
}

// stubSession is a minimal Session with counters
type stubSession struct {
	key, actor string
	signal     *Signal

	mu         sync.Mutex
	handled    []string
	cleanups   int
	handleErr  error
	cleanupErr error
}

func newStub(key, actor string) *stubSession {
	return &stubSession{key: key, actor: actor, signal: NewSignal()}
}

func (s *stubSession) MessageID() string { return s.key }
func (s *stubSession) ActorID() string   { return s.actor }
func (s *stubSession) Kind() string      { return "stub" }
func (s *stubSession) Signal() *Signal   { return s.signal }

func (s *stubSession) Handle(_ context.Context, evt ComponentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handled = append(s.handled, evt.CustomID)
	return s.handleErr
}

func (s *stubSession) Cleanup(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanups++
	return s.cleanupErr
}

func (s *stubSession) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handled), s.cleanups
}

var errCleanup = errors.New("cleanup failed")

func click(messageID, actor, customID string) ComponentEvent {
	return ComponentEvent{
		Interaction: &discordgo.Interaction{ID: "i-" + customID, Type: discordgo.InteractionMessageComponent},
		MessageID:   messageID,
		ChannelID:   "chan-1",
		ActorID:     actor,
		CustomID:    customID,
	}
}
