package interactivity

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Platform is what sessions and the router need from the transport layer
type Platform interface {
	// Acknowledge defers the response to a component click
	Acknowledge(ctx context.Context, i *discordgo.Interaction) error
	// Notify sends an ephemeral notice; acknowledged selects a follow-up over an initial response
	Notify(ctx context.Context, i *discordgo.Interaction, content string, acknowledged bool) error
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	EditMessage(ctx context.Context, edit *discordgo.MessageEdit) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// ComponentEvent is one inbound component click
type ComponentEvent struct {
	Interaction *discordgo.Interaction
	MessageID   string
	ChannelID   string
	ActorID     string
	CustomID    string
	Values      []string
}

// NewComponentEvent flattens a message component interaction.
// It reports false for any other interaction.
func NewComponentEvent(i *discordgo.Interaction) (ComponentEvent, bool) {
	if i == nil || i.Type != discordgo.InteractionMessageComponent {
		return ComponentEvent{}, false
	}
	data, ok := i.Data.(discordgo.MessageComponentInteractionData)
	if !ok {
		return ComponentEvent{}, false
	}
	evt := ComponentEvent{
		Interaction: i,
		ChannelID:   i.ChannelID,
		CustomID:    data.CustomID,
		Values:      data.Values,
	}
	if i.Message != nil {
		evt.MessageID = i.Message.ID
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		evt.ActorID = i.Member.User.ID
	case i.User != nil:
		evt.ActorID = i.User.ID
	}
	return evt, true
}
