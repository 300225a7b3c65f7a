package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/slashkit/internal/logger"
	"github.com/sirupsen/logrus"
)

// DiscordSessionInterface defines the interface we need from discordgo.Session
// This allows us to mock it in tests without depending on concrete types
type DiscordSessionInterface interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error

	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)

	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error

	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
}

var errNotConnected = errors.New("discord session not initialized")

// DiscordBot is the Discord transport for commands and component sessions
type DiscordBot struct {
	mu    sync.RWMutex
	Token string
	AppID string
	// Session is created by Start unless already set
	Session  DiscordSessionInterface
	handlers Handlers
	ctx      context.Context
	removers []func()
}

// NewDiscordBot creates a new Discord bot instance
func NewDiscordBot(token, appID string) *DiscordBot {
	return &DiscordBot{
		Token: token,
		AppID: appID,
	}
}

// Start establishes the gateway connection and begins delivering events to h
func (d *DiscordBot) Start(ctx context.Context, h Handlers) error {
	logger.WithFields(logrus.Fields{
		"token":  maskToken(d.Token),
		"app_id": d.AppID,
	}).Info("starting-discord-bot")

	d.mu.Lock()
	d.handlers = h
	d.ctx = ctx
	if d.Session == nil {
		session, err := discordgo.New("Bot " + d.Token)
		if err != nil {
			d.mu.Unlock()
			return fmt.Errorf("failed to create discord session: %w", err)
		}
		d.Session = session
	}
	session := d.Session
	d.removers = append(d.removers,
		session.AddHandler(d.onReady),
		session.AddHandler(d.onInteraction),
	)
	d.mu.Unlock()

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	return nil
}

func (d *DiscordBot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	d.mu.RLock()
	h, ctx := d.handlers, d.ctx
	d.mu.RUnlock()

	fields := logrus.Fields{"guilds": len(r.Guilds)}
	if r.User != nil {
		fields["user"] = r.User.Username
		d.mu.Lock()
		if d.AppID == "" {
			d.AppID = r.User.ID
		}
		d.mu.Unlock()
	}
	logger.WithFields(fields).Info("discord-ready")

	if h.OnReady != nil {
		go h.OnReady(ctx)
	}
}

func (d *DiscordBot) onInteraction(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic == nil || ic.Interaction == nil {
		return
	}
	d.mu.RLock()
	h, ctx := d.handlers, d.ctx
	d.mu.RUnlock()
	if ctx != nil && ctx.Err() != nil {
		return
	}

	i := ic.Interaction
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		logger.WithFields(logrus.Fields{
			"interaction_id": i.ID,
			"guild":          i.GuildID,
			"channel":        i.ChannelID,
		}).Debug("received-discord-command")
		if h.OnCommand != nil {
			h.OnCommand(ctx, i)
		}
	case discordgo.InteractionMessageComponent:
		if h.OnComponent != nil {
			go h.OnComponent(ctx, i)
		}
	}
}

// Stop closes the Discord connection and cleans up resources
func (d *DiscordBot) Stop() error {
	d.mu.Lock()
	session := d.Session
	removers := d.removers
	d.Session = nil
	d.removers = nil
	d.mu.Unlock()

	for _, remove := range removers {
		remove()
	}
	if session == nil {
		return nil
	}
	if err := session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

func (d *DiscordBot) session() (DiscordSessionInterface, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.Session == nil {
		return nil, errNotConnected
	}
	return d.Session, nil
}

// BulkOverwrite replaces every command of a scope; an empty guildID is global
func (d *DiscordBot) BulkOverwrite(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	s, err := d.session()
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	appID := d.AppID
	d.mu.RUnlock()
	if appID == "" {
		return nil, fmt.Errorf("application id unknown")
	}

	registered, err := s.ApplicationCommandBulkOverwrite(appID, guildID, cmds, discordgo.WithContext(ctx))
	if err != nil {
		logger.WithFields(logrus.Fields{
			"guild": guildID,
			"error": err,
		}).Error("failed-to-overwrite-discord-commands")
		return nil, fmt.Errorf("failed to overwrite commands for guild %q: %w", guildID, err)
	}
	logger.WithFields(logrus.Fields{
		"guild":      guildID,
		"submitted":  len(cmds),
		"registered": len(registered),
	}).Info("discord-commands-overwritten")
	return registered, nil
}

// FetchUser looks a user up by id
func (d *DiscordBot) FetchUser(ctx context.Context, userID string) (*discordgo.User, error) {
	s, err := d.session()
	if err != nil {
		return nil, err
	}
	return s.User(userID, discordgo.WithContext(ctx))
}

// FetchMember looks a guild member up by user id
func (d *DiscordBot) FetchMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	s, err := d.session()
	if err != nil {
		return nil, err
	}
	return s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}

// FetchChannel looks a channel up by id
func (d *DiscordBot) FetchChannel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	s, err := d.session()
	if err != nil {
		return nil, err
	}
	return s.Channel(channelID, discordgo.WithContext(ctx))
}

// FetchRole looks a role up by id among the guild's roles
func (d *DiscordBot) FetchRole(ctx context.Context, guildID, roleID string) (*discordgo.Role, error) {
	if guildID == "" {
		return nil, fmt.Errorf("role %s outside a guild", roleID)
	}
	s, err := d.session()
	if err != nil {
		return nil, err
	}
	roles, err := s.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("role %s not found in guild %s", roleID, guildID)
}

// Respond sends the initial response to an interaction
func (d *DiscordBot) Respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	s, err := d.session()
	if err != nil {
		return err
	}
	if err := s.InteractionRespond(i, resp, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to respond to interaction %s: %w", i.ID, err)
	}
	return nil
}

// Followup sends a follow-up message and waits for it to be created
func (d *DiscordBot) Followup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	s, err := d.session()
	if err != nil {
		return nil, err
	}
	msg, err := s.FollowupMessageCreate(i, true, params, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to send followup for interaction %s: %w", i.ID, err)
	}
	return msg, nil
}

// Acknowledge defers the update of the message a component belongs to
func (d *DiscordBot) Acknowledge(ctx context.Context, i *discordgo.Interaction) error {
	return d.Respond(ctx, i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate})
}

// Notify sends an ephemeral notice about an interaction
func (d *DiscordBot) Notify(ctx context.Context, i *discordgo.Interaction, content string, acknowledged bool) error {
	if acknowledged {
		_, err := d.Followup(ctx, i, &discordgo.WebhookParams{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
		return err
	}
	return d.Respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// SendMessage sends a message with components to a channel
func (d *DiscordBot) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	s, err := d.session()
	if err != nil {
		return nil, err
	}
	sent, err := s.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		logger.WithFields(logrus.Fields{
			"channel": channelID,
			"error":   err,
		}).Error("failed-to-send-message-to-discord")
		return nil, fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return sent, nil
}

// EditMessage edits a message in place
func (d *DiscordBot) EditMessage(ctx context.Context, edit *discordgo.MessageEdit) error {
	s, err := d.session()
	if err != nil {
		return err
	}
	if _, err := s.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to edit message %s: %w", edit.ID, err)
	}
	return nil
}

// DeleteMessage deletes a message
func (d *DiscordBot) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	s, err := d.session()
	if err != nil {
		return err
	}
	if err := s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	return nil
}
