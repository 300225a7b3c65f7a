// Package bot connects the command extension and the interactivity router to Discord.
//
// DiscordBot is the only transport. It implements slash.Platform and
// interactivity.Platform on top of a discordgo session, and demultiplexes the
// gateway events it receives:
//
//   - Ready: triggers command registration for every scope
//   - Application command interactions: handed to the command dispatcher
//   - Message component interactions: handed to the session router
//
// Example:
//
//	discordBot := bot.NewDiscordBot(token, appID)
//	err := discordBot.Start(ctx, bot.Handlers{
//	    OnReady:     func(ctx context.Context) { _ = ext.Sync(ctx) },
//	    OnCommand:   ext.HandleInteraction,
//	    OnComponent: router.HandleComponent,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer discordBot.Stop()
//
// # Thread Safety
//
// DiscordBot is safe for concurrent use. Handlers are called from discordgo's
// event goroutines and may run concurrently.
package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/slashkit/internal/interactivity"
	"github.com/keepmind9/slashkit/internal/slash"
)

// Handlers receives the gateway events the bot demultiplexes
type Handlers struct {
	// OnReady runs once per Ready event, on its own goroutine
	OnReady func(ctx context.Context)
	// OnCommand receives application command interactions
	OnCommand func(ctx context.Context, i *discordgo.Interaction)
	// OnComponent receives message component interactions, on its own goroutine
	OnComponent func(ctx context.Context, i *discordgo.Interaction) bool
}

var (
	_ slash.Platform         = (*DiscordBot)(nil)
	_ interactivity.Platform = (*DiscordBot)(nil)
)
