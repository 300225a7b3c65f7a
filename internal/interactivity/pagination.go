package interactivity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/slashkit/internal/slash"
	"github.com/keepmind9/slashkit/pkg/constants"
)

// Page is the content shown for one cursor position
type Page struct {
	Content string
	Embed   *discordgo.MessageEmbed
}

// PageSource yields pages by index
type PageSource interface {
	Len() int
	Page(ctx context.Context, index int) (Page, error)
}

// StaticPages is a PageSource over a fixed slice
type StaticPages []Page

func (p StaticPages) Len() int { return len(p) }

func (p StaticPages) Page(_ context.Context, index int) (Page, error) {
	if index < 0 || index >= len(p) {
		return Page{}, fmt.Errorf("page %d out of range [0,%d)", index, len(p))
	}
	return p[index], nil
}

var errNoPages = errors.New("pagination needs at least one page")

type transition int

const (
	toFirst transition = iota
	toPrevious
	toNext
	toLast
	toStop
)

// PaginationSession flips through pages on button clicks until stop, cancellation or timeout
type PaginationSession struct {
	platform  Platform
	cfg       Config
	channelID string
	messageID string
	actorID   string
	pages     PageSource
	actions   map[string]transition
	signal    *Signal

	mu      sync.Mutex
	cursor  int
	stopped bool
}

// NewPaginationSession builds a session for a message already showing page 0
func NewPaginationSession(platform Platform, cfg Config, channelID, messageID, actorID string, pages PageSource) (*PaginationSession, error) {
	if pages == nil || pages.Len() == 0 {
		return nil, errNoPages
	}
	cfg = cfg.withDefaults()
	if err := cfg.Buttons.Validate(); err != nil {
		return nil, err
	}
	b := cfg.Buttons
	return &PaginationSession{
		platform:  platform,
		cfg:       cfg,
		channelID: channelID,
		messageID: messageID,
		actorID:   actorID,
		pages:     pages,
		signal:    NewSignal(),
		actions: map[string]transition{
			b.SkipLeft.ID:  toFirst,
			b.Left.ID:      toPrevious,
			b.Stop.ID:      toStop,
			b.Right.ID:     toNext,
			b.SkipRight.ID: toLast,
		},
	}, nil
}

func (p *PaginationSession) MessageID() string { return p.messageID }
func (p *PaginationSession) ActorID() string   { return p.actorID }
func (p *PaginationSession) Kind() string      { return "pagination" }
func (p *PaginationSession) Signal() *Signal   { return p.signal }

// Cursor returns the index of the page on display
func (p *PaginationSession) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Stopped reports whether the stop button ended the session
func (p *PaginationSession) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Handle applies the transition bound to the clicked button and re-renders
func (p *PaginationSession) Handle(ctx context.Context, evt ComponentEvent) error {
	t, ok := p.actions[evt.CustomID]
	if !ok {
		return &slash.DispatchError{Kind: slash.ErrUnknownAction, Command: p.Kind(), Err: fmt.Errorf("custom id %q", evt.CustomID)}
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	last := p.pages.Len() - 1
	switch t {
	case toStop:
		p.stopped = true
		p.mu.Unlock()
		p.signal.Settle(nil)
		return nil
	case toFirst:
		p.cursor = 0
	case toLast:
		p.cursor = last
	case toPrevious:
		p.cursor--
	case toNext:
		p.cursor++
	}
	p.cursor = clamp(p.cursor, 0, last)
	cursor := p.cursor
	p.mu.Unlock()

	return p.render(ctx, cursor)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p *PaginationSession) render(ctx context.Context, cursor int) error {
	page, err := p.pages.Page(ctx, cursor)
	if err != nil {
		return fmt.Errorf("fetch page %d: %w", cursor, err)
	}
	components := p.Components(cursor)
	edit := pageEdit(p.channelID, p.messageID, page)
	edit.Components = &components
	if err := p.platform.EditMessage(ctx, edit); err != nil {
		return fmt.Errorf("update page %d: %w", cursor, err)
	}
	return nil
}

func pageEdit(channelID, messageID string, page Page) *discordgo.MessageEdit {
	content := page.Content
	embeds := []*discordgo.MessageEmbed{}
	if page.Embed != nil {
		embeds = append(embeds, page.Embed)
	}
	return &discordgo.MessageEdit{
		ID:      messageID,
		Channel: channelID,
		Content: &content,
		Embeds:  &embeds,
	}
}

// Components renders the button row for cursor, disabling buttons that cannot move further
func (p *PaginationSession) Components(cursor int) []discordgo.MessageComponent {
	return renderButtons(p.cfg.Buttons, cursor, p.pages.Len())
}

func renderButtons(b Buttons, cursor, pages int) []discordgo.MessageComponent {
	atStart := cursor <= 0
	atEnd := cursor >= pages-1
	button := func(btn Button, disabled bool) discordgo.MessageComponent {
		return discordgo.Button{
			CustomID: btn.ID,
			Label:    btn.Label,
			Style:    btn.Style,
			Disabled: disabled,
		}
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			button(b.SkipLeft, atStart),
			button(b.Left, atStart),
			button(b.Stop, false),
			button(b.Right, atEnd),
			button(b.SkipRight, atEnd),
		}},
	}
}

// Cleanup applies the configured deletion behaviour to the message
func (p *PaginationSession) Cleanup(ctx context.Context) error {
	return clearMessage(ctx, p.platform, p.cfg.Deletion, p.channelID, p.messageID)
}

func clearMessage(ctx context.Context, platform Platform, deletion DeletionBehavior, channelID, messageID string) error {
	switch deletion {
	case KeepMessage:
		return nil
	case DeleteMessage:
		return platform.DeleteMessage(ctx, channelID, messageID)
	default:
		return platform.EditMessage(ctx, &discordgo.MessageEdit{
			ID:         messageID,
			Channel:    channelID,
			Components: &[]discordgo.MessageComponent{},
		})
	}
}

// Paginate sends the first page to channelID and runs a pagination session on it
// until stop, timeout or ctx cancellation. Only actorID may flip pages.
func (r *Router) Paginate(ctx context.Context, channelID, actorID string, pages PageSource) error {
	if pages == nil || pages.Len() == 0 {
		return errNoPages
	}
	if err := r.cfg.Buttons.Validate(); err != nil {
		return err
	}
	first, err := pages.Page(ctx, 0)
	if err != nil {
		return fmt.Errorf("fetch page 0: %w", err)
	}
	msg := &discordgo.MessageSend{
		Content:    first.Content,
		Components: renderButtons(r.cfg.Buttons, 0, pages.Len()),
	}
	if first.Embed != nil {
		msg.Embeds = []*discordgo.MessageEmbed{first.Embed}
	}
	sent, err := r.platform.SendMessage(ctx, channelID, msg)
	if err != nil {
		return fmt.Errorf("send first page: %w", err)
	}

	session, err := NewPaginationSession(r.platform, r.cfg, channelID, sent.ID, actorID, pages)
	if err != nil {
		return r.abandon(ctx, channelID, sent.ID, err)
	}
	e, err := r.begin(session)
	if err != nil {
		return r.abandon(ctx, channelID, sent.ID, err)
	}
	return r.serve(ctx, e)
}

// abandon clears a sent page whose session never started. The buttons go
// even under keep_message since nothing routes them.
func (r *Router) abandon(ctx context.Context, channelID, messageID string, cause error) error {
	deletion := r.cfg.Deletion
	if deletion == KeepMessage {
		deletion = DeleteButtons
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultCleanupTimeout)
	defer cancel()
	if err := clearMessage(cleanupCtx, r.platform, deletion, channelID, messageID); err != nil {
		return errors.Join(cause, fmt.Errorf("clear abandoned page: %w", err))
	}
	return cause
}
