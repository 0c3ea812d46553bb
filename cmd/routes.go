package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"litegram/pkg/bot"
	"litegram/pkg/config"
	"litegram/pkg/store"
)

const (
	stateAskName = "ask_name"
	stateAskCity = "ask_city"
)

// newBot wires the shared routes to an outbound API and a store.
func newBot(cfg *config.Config, api bot.API, st store.Store, log *slog.Logger) *bot.Bot {
	return bot.New(routes,
		bot.WithAPI(api),
		bot.WithStore(st),
		bot.WithLogger(log),
		bot.WithPrefixes(cfg.Bot.Prefixes...),
	)
}

// routes registers the rules served by both the gateway and the console.
func routes(r *bot.Router) error {
	r.Command("start", func(c *bot.Context, _ ...string) error {
		return c.Reply("Welcome! Try /form, /help or tap a vote button.")
	})

	r.Command("help", func(c *bot.Context, _ ...string) error {
		return c.Reply(strings.Join([]string{
			"/start - greeting",
			"/form - answer two questions",
			"/cancel - leave the form",
			"/whoami - show what the form stored",
		}, "\n"))
	})

	r.Command("form", func(c *bot.Context, _ ...string) error {
		if err := c.Conversation(stateAskName); err != nil {
			return err
		}
		return c.Reply("What is your name?")
	})

	r.Command("cancel", func(c *bot.Context, _ ...string) error {
		if err := c.ExitConversation(); err != nil {
			return err
		}
		return c.Reply("Cancelled.")
	}, bot.Priority(100))

	r.Command("whoami", func(c *bot.Context, _ ...string) error {
		session, err := c.Session()
		if err != nil {
			return err
		}
		name, err := session.Get(c.Context(), "name", "stranger")
		if err != nil {
			return err
		}
		city, err := session.Get(c.Context(), "city", "nowhere")
		if err != nil {
			return err
		}
		return c.Reply(fmt.Sprintf("You are %s from %s.", name, city))
	})

	cancel := bot.FieldMatches("*.text", "/cancel")
	if err := r.Conversation(stateAskName, stateAskCity, func(c *bot.Context, _ ...string) error {
		if err := remember(c, "name"); err != nil {
			return err
		}
		return c.Reply("Where do you live?")
	}, cancel); err != nil {
		return err
	}
	if err := r.Conversation(stateAskCity, "", func(c *bot.Context, _ ...string) error {
		if err := remember(c, "city"); err != nil {
			return err
		}
		return c.Reply("Thanks, saved. Send /whoami to check.")
	}, cancel); err != nil {
		return err
	}

	r.Action("vote:{choice}", func(c *bot.Context, args ...string) error {
		return c.AnswerCallback("You voted " + args[0])
	})

	r.Fallback(func(c *bot.Context) error {
		return c.Reply("Sorry, I did not understand that. Send /help.")
	}, "message.text")

	return nil
}

func remember(c *bot.Context, name string) error {
	session, err := c.Session()
	if err != nil {
		return err
	}
	return session.Set(c.Context(), name, strings.TrimSpace(c.Payload().Text()))
}
