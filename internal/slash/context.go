package slash

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/slashkit/pkg/constants"
)

var errNotCommand = errors.New("interaction is not an application command")

// Invocation is one inbound command event, flattened for dispatch
type Invocation struct {
	Interaction *discordgo.Interaction
	CommandID   string
	CommandName string
	GuildID     string
	ChannelID   string
	User        *discordgo.User
	Member      *discordgo.Member
	// Path holds the subgroup and subcommand names below the top-level command
	Path     []string
	Options  []RawOption
	Resolved *discordgo.ApplicationCommandInteractionDataResolved
}

// NewInvocation extracts the command identifier, the nested option path and the
// leaf's raw options from an application command interaction.
func NewInvocation(i *discordgo.Interaction) (Invocation, error) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return Invocation{}, errNotCommand
	}
	data, ok := i.Data.(discordgo.ApplicationCommandInteractionData)
	if !ok {
		return Invocation{}, errNotCommand
	}

	inv := Invocation{
		Interaction: i,
		CommandID:   data.ID,
		CommandName: data.Name,
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		Member:      i.Member,
		User:        i.User,
		Resolved:    data.Resolved,
	}
	if inv.User == nil && inv.Member != nil {
		inv.User = inv.Member.User
	}

	opts := data.Options
	for len(opts) == 1 && isNesting(opts[0].Type) {
		inv.Path = append(inv.Path, opts[0].Name)
		opts = opts[0].Options
	}
	for _, o := range opts {
		raw, err := rawFromOption(o)
		if err != nil {
			return Invocation{}, err
		}
		inv.Options = append(inv.Options, RawOption{Name: o.Name, Value: raw})
	}
	return inv, nil
}

func isNesting(t discordgo.ApplicationCommandOptionType) bool {
	return t == discordgo.ApplicationCommandOptionSubCommand ||
		t == discordgo.ApplicationCommandOptionSubCommandGroup
}

// ActorID is the id of the user who invoked the command
func (inv Invocation) ActorID() string {
	if inv.User != nil {
		return inv.User.ID
	}
	return ""
}

// FullName is the space separated command path, e.g. "math add"
func (inv Invocation) FullName() string {
	return strings.Join(append([]string{inv.CommandName}, inv.Path...), " ")
}

// Context is handed to every handler and hook of one invocation
type Context struct {
	Interaction *discordgo.Interaction
	Scope       Scope
	GuildID     string
	ChannelID   string
	User        *discordgo.User
	Member      *discordgo.Member
	CommandID   string
	CommandName string
	TraceID     string
	// Services is the value configured on the Extension, shared by all invocations
	Services any

	ctx       context.Context
	responder Responder
}

// Context returns the request context of the invocation
func (c *Context) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Respond sends the initial response with plain content
func (c *Context) Respond(content string) error {
	return c.RespondWith(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: truncate(content)},
	})
}

// RespondEphemeral sends an initial response visible only to the invoking user
func (c *Context) RespondEphemeral(content string) error {
	return c.RespondWith(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: truncate(content),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// Defer acknowledges the invocation; the answer follows with Followup
func (c *Context) Defer(ephemeral bool) error {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return c.RespondWith(resp)
}

// RespondWith sends an arbitrary initial response
func (c *Context) RespondWith(resp *discordgo.InteractionResponse) error {
	if c.responder == nil {
		return fmt.Errorf("no responder for interaction %s", c.interactionID())
	}
	return c.responder.Respond(c.Context(), c.Interaction, resp)
}

// Followup sends a follow-up message after the initial response
func (c *Context) Followup(content string) (*discordgo.Message, error) {
	if c.responder == nil {
		return nil, fmt.Errorf("no responder for interaction %s", c.interactionID())
	}
	return c.responder.Followup(c.Context(), c.Interaction, &discordgo.WebhookParams{Content: truncate(content)})
}

func (c *Context) interactionID() string {
	if c.Interaction == nil {
		return ""
	}
	return c.Interaction.ID
}

// ActorID is the id of the invoking user
func (c *Context) ActorID() string {
	if c.User != nil {
		return c.User.ID
	}
	return ""
}

// truncate keeps content within the platform message limit
func truncate(content string) string {
	runes := []rune(content)
	if len(runes) <= constants.MaxMessageLength {
		return content
	}
	return string(runes[:constants.MaxMessageLength-3]) + "..."
}
