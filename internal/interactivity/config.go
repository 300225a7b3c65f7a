package interactivity

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/slashkit/pkg/constants"
)

// ResponseBehavior decides what happens when someone other than the initiator clicks
type ResponseBehavior int

const (
	// BehaviorIgnore drops the click silently
	BehaviorIgnore ResponseBehavior = iota
	// BehaviorRespond sends the clicker an ephemeral notice
	BehaviorRespond
)

// ParseResponseBehavior parses "ignore" or "respond"
func ParseResponseBehavior(s string) (ResponseBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore":
		return BehaviorIgnore, nil
	case "respond":
		return BehaviorRespond, nil
	}
	return 0, fmt.Errorf("invalid response behavior %q (want ignore or respond)", s)
}

// DeletionBehavior decides what a finished pagination leaves behind
type DeletionBehavior int

const (
	// DeleteButtons keeps the last page and removes its buttons
	DeleteButtons DeletionBehavior = iota
	// DeleteMessage removes the whole message
	DeleteMessage
	// KeepMessage leaves the message untouched
	KeepMessage
)

// ParseDeletionBehavior parses "delete_buttons", "delete_message" or "keep_message"
func ParseDeletionBehavior(s string) (DeletionBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "delete_buttons":
		return DeleteButtons, nil
	case "delete_message":
		return DeleteMessage, nil
	case "keep_message":
		return KeepMessage, nil
	}
	return 0, fmt.Errorf("invalid pagination deletion %q (want delete_buttons, delete_message or keep_message)", s)
}

// Button is one pagination control
type Button struct {
	ID    string
	Label string
	Style discordgo.ButtonStyle
}

// Buttons is the pagination control set. The same set drives rendering and routing.
type Buttons struct {
	SkipLeft  Button
	Left      Button
	Stop      Button
	Right     Button
	SkipRight Button
}

// DefaultButtons returns the stock control set
func DefaultButtons() Buttons {
	return Buttons{
		SkipLeft:  Button{ID: constants.ButtonSkipLeft, Label: "⏮", Style: discordgo.SecondaryButton},
		Left:      Button{ID: constants.ButtonLeft, Label: "◀", Style: discordgo.SecondaryButton},
		Stop:      Button{ID: constants.ButtonStop, Label: "⏹", Style: discordgo.DangerButton},
		Right:     Button{ID: constants.ButtonRight, Label: "▶", Style: discordgo.SecondaryButton},
		SkipRight: Button{ID: constants.ButtonSkipRight, Label: "⏭", Style: discordgo.SecondaryButton},
	}
}

// Validate rejects control sets with empty or repeated ids
func (b Buttons) Validate() error {
	seen := make(map[string]bool, 5)
	for _, btn := range []Button{b.SkipLeft, b.Left, b.Stop, b.Right, b.SkipRight} {
		if btn.ID == "" {
			return fmt.Errorf("pagination button without id")
		}
		if seen[btn.ID] {
			return fmt.Errorf("pagination button id %q used twice", btn.ID)
		}
		seen[btn.ID] = true
	}
	return nil
}

// Config tunes the router and the sessions it runs
type Config struct {
	// AckComponents acknowledges every routed click before it is handled
	AckComponents bool
	// ResponseBehavior applies to clicks from someone other than the initiator
	ResponseBehavior ResponseBehavior
	// ResponseMessage is the notice sent under BehaviorRespond
	ResponseMessage string
	// Timeout bounds each session; zero means no bound
	Timeout time.Duration
	// Deletion is applied when a pagination session is cleaned up
	Deletion DeletionBehavior
	Buttons  Buttons
}

// DefaultConfig returns the stock interactivity configuration
func DefaultConfig() Config {
	return Config{
		AckComponents:    true,
		ResponseBehavior: BehaviorIgnore,
		ResponseMessage:  constants.DefaultNotYourInteraction,
		Timeout:          constants.DefaultInteractivityTimeout,
		Deletion:         DeleteButtons,
		Buttons:          DefaultButtons(),
	}
}

func (c Config) withDefaults() Config {
	if c.ResponseMessage == "" {
		c.ResponseMessage = constants.DefaultNotYourInteraction
	}
	def := DefaultButtons()
	fill := func(b *Button, d Button) {
		if b.ID == "" {
			b.ID = d.ID
		}
		if b.Label == "" {
			b.Label = d.Label
		}
		if b.Style == 0 {
			b.Style = d.Style
		}
	}
	fill(&c.Buttons.SkipLeft, def.SkipLeft)
	fill(&c.Buttons.Left, def.Left)
	fill(&c.Buttons.Stop, def.Stop)
	fill(&c.Buttons.Right, def.Right)
	fill(&c.Buttons.SkipRight, def.SkipRight)
	return c
}
