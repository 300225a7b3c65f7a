package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/slashkit/internal/core"
	"github.com/keepmind9/slashkit/internal/interactivity"
	"github.com/keepmind9/slashkit/internal/logger"
	"github.com/keepmind9/slashkit/internal/slash"
	"github.com/sirupsen/logrus"
)

const maxPages = 20

// Dice is the number of sides of a die
type Dice int64

var diceEnum = slash.NewEnum(
	slash.Member("d4", Dice(4)),
	slash.Member("d6", Dice(6)),
	slash.Member("d8", Dice(8)),
	slash.Member("d12", Dice(12)),
	slash.Member("d20", Dice(20)),
)

// demoModules returns the command modules slashkit serves
func demoModules() []*slash.Module {
	return []*slash.Module{utilityModule(), mathModule()}
}

func utilityModule() *slash.Module {
	return &slash.Module{
		Name: "utility",
		Commands: []slash.Command{
			{
				Name:        "ping",
				Description: "Check that the bot is alive",
				Handler:     ping,
			},
			{
				Name:        "roll",
				Description: "Roll dice",
				Handler:     roll,
				Params: []slash.Param{
					{Name: "die", Description: "Which die to roll", Enum: diceEnum},
					{Name: "count", Description: "How many dice", Optional: true, Default: int64(1)},
				},
			},
			{
				Name:        "whois",
				Description: "Show who a user is",
				Handler:     whois,
				Params: []slash.Param{
					{Name: "target", Description: "User to look up", Optional: true},
				},
			},
			{
				Name:        "pages",
				Description: "Flip through a paginated message",
				Handler:     pages,
				Params: []slash.Param{
					{Name: "count", Description: "Number of pages", Optional: true, Default: int64(5)},
				},
			},
		},
	}
}

func ping(c *slash.Context) error {
	return c.Respond("pong")
}

func roll(c *slash.Context, die Dice, count int64) error {
	if count < 1 || count > 10 {
		return c.RespondEphemeral("count must be between 1 and 10")
	}
	rolls := make([]string, count)
	total := int64(0)
	for i := range rolls {
		v := rand.Int64N(int64(die)) + 1
		total += v
		rolls[i] = fmt.Sprint(v)
	}
	return c.Respond(fmt.Sprintf("🎲 %dd%d: %s (total %d)", count, die, strings.Join(rolls, ", "), total))
}

func whois(c *slash.Context, target *discordgo.User) error {
	if target == nil {
		target = c.User
	}
	if target == nil {
		return errors.New("no user to describe")
	}
	kind := "user"
	if target.Bot {
		kind = "bot"
	}
	return c.Respond(fmt.Sprintf("%s is a %s with id %s", target.Username, kind, target.ID))
}

// countPages renders n numbered pages
type countPages int

func (p countPages) Len() int { return int(p) }

func (p countPages) Page(_ context.Context, i int) (interactivity.Page, error) {
	if i < 0 || i >= int(p) {
		return interactivity.Page{}, fmt.Errorf("page %d out of range", i)
	}
	return interactivity.Page{
		Embed: &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Page %d of %d", i+1, int(p)),
			Description: strings.Repeat("▰", i+1) + strings.Repeat("▱", int(p)-i-1),
		},
	}, nil
}

func pages(c *slash.Context, count int64) error {
	if count < 1 || count > maxPages {
		return c.RespondEphemeral(fmt.Sprintf("count must be between 1 and %d", maxPages))
	}
	services := core.ServicesFrom(c)
	if services == nil || services.Router == nil {
		return errors.New("pagination is not available")
	}
	if err := c.Respond(fmt.Sprintf("Paging through %d pages", count)); err != nil {
		return err
	}
	return services.Router.Paginate(c.Context(), c.ChannelID, c.ActorID(), countPages(count))
}

// calculator owns the math commands; one is built per invocation
type calculator struct {
	started time.Time
}

func newCalculator(any) (*calculator, error) {
	return &calculator{}, nil
}

func (m *calculator) BeforeExecution(*slash.Context) error {
	m.started = time.Now()
	return nil
}

func (m *calculator) AfterExecution(c *slash.Context) error {
	logger.WithFields(logrus.Fields{
		"command":  c.CommandName,
		"trace_id": c.TraceID,
		"elapsed":  time.Since(m.started).String(),
	}).Debug("math-command-finished")
	return nil
}

func (m *calculator) Add(c *slash.Context, a, b int64) error {
	return c.Respond(fmt.Sprintf("%d + %d = %d", a, b, a+b))
}

func (m *calculator) Sub(c *slash.Context, a, b int64) error {
	return c.Respond(fmt.Sprintf("%d - %d = %d", a, b, a-b))
}

func (m *calculator) Mul(c *slash.Context, a, b int64) error {
	return c.Respond(fmt.Sprintf("%d × %d = %d", a, b, a*b))
}

func (m *calculator) Div(c *slash.Context, a, b int64) error {
	if b == 0 {
		return c.RespondEphemeral("cannot divide by zero")
	}
	return c.Respond(fmt.Sprintf("%d ÷ %d = %d remainder %d", a, b, a/b, a%b))
}

func mathModule() *slash.Module {
	operands := []slash.Param{
		{Name: "a", Description: "Left operand"},
		{Name: "b", Description: "Right operand"},
	}
	op := func(name, description string, handler any) slash.Command {
		return slash.Command{Name: name, Description: description, Handler: handler, Params: operands}
	}
	return &slash.Module{
		Name:    "math",
		Factory: slash.NewFactory(newCalculator),
		Groups: []slash.Group{{
			Name:        "math",
			Description: "Integer arithmetic",
			Commands: []slash.Command{
				op("add", "Add two integers", (*calculator).Add),
				op("sub", "Subtract two integers", (*calculator).Sub),
				op("mul", "Multiply two integers", (*calculator).Mul),
				op("div", "Divide two integers", (*calculator).Div),
			},
		}},
	}
}
