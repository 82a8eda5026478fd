package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/store"
)

// SettingsStore reads and writes guild settings
type SettingsStore interface {
	ForChannel(ctx context.Context, guildID, channelID string) (*store.GuildSettings, error)
	Update(ctx context.Context, settings *store.GuildSettings) error
}

const (
	msgServerOnly     = "This command can only be used in a server."
	msgManageRequired = "You need the 'Manage Server' permission to use this command."
)

// Settings configures the invoking guild. Changes require Manage Server.
func Settings(guilds SettingsStore) Command {
	languages := make([]bot.CommandChoice, 0, len(store.Languages))
	for _, l := range store.Languages {
		languages = append(languages, bot.CommandChoice{Name: l.Name, Value: l.Code})
	}

	return Command{
		Spec: bot.CommandSpec{
			Name:        "settings",
			Description: "Configure bot settings for this server",
			Options: []bot.CommandOption{
				{
					Name:        "language",
					Description: "Set the bot language for this server",
					Subcommand:  true,
					Options: []bot.CommandOption{
						{Name: "language", Description: "Language code to set", Required: true, Choices: languages},
					},
				},
				{
					Name:        "filter",
					Description: "Toggle the search quality filter",
					Subcommand:  true,
					Options: []bot.CommandOption{{
						Name:        "enabled",
						Description: "Whether low quality results are hidden",
						Required:    true,
						Choices:     []bot.CommandChoice{{Name: "On", Value: "on"}, {Name: "Off", Value: "off"}},
					}},
				},
				{
					Name:        "show",
					Description: "Show the settings of this server",
					Subcommand:  true,
				},
			},
		},
		Guarded: true,
		Reply: func(ctx context.Context, inv *bot.CommandInvocation) (string, error) {
			if inv.GuildID == "" {
				return msgServerOnly, nil
			}
			settings, err := guilds.ForChannel(ctx, inv.GuildID, inv.ChannelID)
			if err != nil {
				return "", err
			}

			switch inv.Subcommand {
			case "show":
				return describeSettings(settings), nil
			case "language", "filter":
			default:
				return "", fmt.Errorf("unknown subcommand %q", inv.Subcommand)
			}
			if !inv.CanManageGuild() {
				return msgManageRequired, nil
			}

			var reply string
			if inv.Subcommand == "language" {
				code := inv.Option("language")
				lang, ok := store.LookupLanguage(code)
				if !ok {
					return fmt.Sprintf("Language '%s' is not available.", code), nil
				}
				settings.Language = lang.Code
				reply = fmt.Sprintf("Language changed to %s (%s).", lang.Name, lang.Code)
			} else {
				switch inv.Option("enabled") {
				case "on":
					settings.SearchQualityFilter = true
				case "off":
					settings.SearchQualityFilter = false
				default:
					return fmt.Sprintf("Invalid filter value '%s'.", inv.Option("enabled")), nil
				}
				reply = fmt.Sprintf("Search quality filter is now %s.", onOff(settings.SearchQualityFilter))
			}

			if err := guilds.Update(ctx, settings); err != nil {
				return "", fmt.Errorf("failed to save settings of guild %s: %w", inv.GuildID, err)
			}
			return reply, nil
		},
	}
}

func describeSettings(s *store.GuildSettings) string {
	name := s.Language
	if lang, ok := store.LookupLanguage(s.Language); ok {
		name = fmt.Sprintf("%s (%s)", lang.Name, lang.Code)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Language:** %s\n", name)
	fmt.Fprintf(&b, "**Search quality filter:** %s", onOff(s.SearchQualityFilter))
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
