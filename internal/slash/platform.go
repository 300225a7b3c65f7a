package slash

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Registrar submits a scope's whole command set and returns what the platform registered.
// An empty guildID targets the global scope.
type Registrar interface {
	BulkOverwrite(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)
}

// EntityFetcher looks entities up remotely when the event's resolved data misses them
type EntityFetcher interface {
	FetchUser(ctx context.Context, userID string) (*discordgo.User, error)
	FetchMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	FetchChannel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	FetchRole(ctx context.Context, guildID, roleID string) (*discordgo.Role, error)
}

// Responder answers an interaction
type Responder interface {
	Respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	Followup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error)
}

// Platform is everything the extension needs from the transport layer
type Platform interface {
	Registrar
	EntityFetcher
	Responder
}

// Scope is a registration domain: global, or one guild
type Scope struct {
	GuildID string
}

// GlobalScope is the application-wide registration scope
var GlobalScope = Scope{}

// GuildScope returns the scope of one guild
func GuildScope(guildID string) Scope { return Scope{GuildID: guildID} }

// IsGlobal reports whether s is the global scope
func (s Scope) IsGlobal() bool { return s.GuildID == "" }

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "guild:" + s.GuildID
}
