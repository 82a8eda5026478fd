package commands

import (
	"fmt"
	"strconv"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/interactive"
	"github.com/keepmind9/shelfbot/internal/stats"
	"github.com/keepmind9/shelfbot/internal/views"
)

// Help publishes the paged help message. The optional page option is one based.
func Help(version string) Command {
	return Command{
		Spec: bot.CommandSpec{
			Name:        "help",
			Description: "Shows the help message",
			Options: []bot.CommandOption{
				{Name: "page", Description: "Page to open", Integer: true},
			},
		},
		Guarded: true,
		View: func(inv *bot.CommandInvocation) (interactive.View, error) {
			page := 0
			if raw := inv.Option("page"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil {
					return nil, fmt.Errorf("invalid page %q: %w", raw, err)
				}
				page = n - 1
			}
			return views.NewHelpView(version, views.DefaultSections(), page), nil
		},
	}
}

// Debug publishes connection and handler counters
func Debug(source stats.Source) Command {
	return Command{
		Spec: bot.CommandSpec{
			Name:        "debug",
			Description: "Shows debug information",
		},
		Guarded: true,
		View: func(*bot.CommandInvocation) (interactive.View, error) {
			return views.NewDebugView(source), nil
		},
	}
}
