package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/keepmind9/shelfbot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// PermissionManageServer is the Manage Server bit of a member's permissions
const PermissionManageServer int64 = discordgo.PermissionManageServer

// CommandChoice is one fixed value an option accepts
type CommandChoice struct {
	Name  string
	Value string
}

// CommandOption declares one argument of a slash command. An option with
// Subcommand set is a subcommand and takes its own Options instead.
type CommandOption struct {
	Name        string
	Description string
	Integer     bool
	Required    bool
	Choices     []CommandChoice

	Subcommand bool
	Options    []CommandOption
}

// CommandSpec declares a slash command
type CommandSpec struct {
	Name        string
	Description string
	Options     []CommandOption
}

// CommandInvocation is a single slash command call. Options of a
// subcommand are flattened into Options.
type CommandInvocation struct {
	Name       string
	Subcommand string
	ChannelID  string
	GuildID    string
	User       *User
	Options    map[string]string
	// Permissions of the invoking member in the channel, zero in DMs
	Permissions int64

	interaction *discordgo.Interaction
}

// CanManageGuild reports whether the invoker is a server member with the
// Manage Server permission
func (c *CommandInvocation) CanManageGuild() bool {
	return c != nil && c.GuildID != "" && c.Permissions&PermissionManageServer != 0
}

// Option returns the raw option value, or "" when absent
func (c *CommandInvocation) Option(name string) string {
	if c == nil || c.Options == nil {
		return ""
	}
	return c.Options[name]
}

// RegisterCommands overwrites the global command set of the application.
// Must be called after the ready event.
func (d *DiscordConnection) RegisterCommands(specs []CommandSpec) error {
	session, err := d.session()
	if err != nil {
		return err
	}
	me := d.CurrentUser()
	if me == nil {
		return fmt.Errorf("failed to register commands: session not ready")
	}

	commands := make([]*discordgo.ApplicationCommand, 0, len(specs))
	for _, spec := range specs {
		cmd := &discordgo.ApplicationCommand{
			Name:        spec.Name,
			Description: spec.Description,
		}
		for _, opt := range spec.Options {
			cmd.Options = append(cmd.Options, convertOption(opt))
		}
		commands = append(commands, cmd)
	}

	if _, err := session.ApplicationCommandBulkOverwrite(me.ID, "", commands); err != nil {
		return fmt.Errorf("failed to register %d commands: %w", len(commands), err)
	}
	logger.WithField("count", len(commands)).Info("slash-commands-registered")
	return nil
}

// OnCommand subscribes to slash command invocations
func (d *DiscordConnection) OnCommand(handler func(*CommandInvocation)) func() {
	session, err := d.session()
	if err != nil {
		logger.WithField("error", err).Error("cannot-subscribe-commands")
		return func() {}
	}
	return session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		handler(convertInvocation(i.Interaction))
	})
}

// Defer acknowledges an invocation so it can be answered later
func (d *DiscordConnection) Defer(inv *CommandInvocation, ephemeral bool) error {
	session, err := d.session()
	if err != nil {
		return err
	}
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{},
	}
	if ephemeral {
		resp.Data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := session.InteractionRespond(inv.interaction, resp); err != nil {
		return fmt.Errorf("failed to defer /%s: %w", inv.Name, err)
	}
	return nil
}

// Respond answers an invocation directly
func (d *DiscordConnection) Respond(inv *CommandInvocation, content Content, ephemeral bool) error {
	session, err := d.session()
	if err != nil {
		return err
	}
	data := &discordgo.InteractionResponseData{
		Content: truncate(content.Text, constants.MaxDiscordMessageLength),
	}
	if content.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{convertEmbed(content.Embed)}
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err = session.InteractionRespond(inv.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("failed to respond to /%s: %w", inv.Name, err)
	}
	return nil
}

// ClearResponse deletes the original (usually deferred) response
func (d *DiscordConnection) ClearResponse(inv *CommandInvocation) error {
	session, err := d.session()
	if err != nil {
		return err
	}
	if err := session.InteractionResponseDelete(inv.interaction); err != nil {
		return fmt.Errorf("failed to clear response to /%s: %w", inv.Name, err)
	}
	return nil
}

func convertOption(opt CommandOption) *discordgo.ApplicationCommandOption {
	o := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        opt.Name,
		Description: opt.Description,
		Required:    opt.Required,
	}
	switch {
	case opt.Subcommand:
		o.Type = discordgo.ApplicationCommandOptionSubCommand
		o.Required = false
		for _, sub := range opt.Options {
			o.Options = append(o.Options, convertOption(sub))
		}
		return o
	case opt.Integer:
		o.Type = discordgo.ApplicationCommandOptionInteger
	}
	for _, c := range opt.Choices {
		o.Choices = append(o.Choices, &discordgo.ApplicationCommandOptionChoice{Name: c.Name, Value: c.Value})
	}
	return o
}

func convertInvocation(i *discordgo.Interaction) *CommandInvocation {
	data := i.ApplicationCommandData()
	inv := &CommandInvocation{
		Name:        data.Name,
		ChannelID:   i.ChannelID,
		GuildID:     i.GuildID,
		Options:     make(map[string]string, len(data.Options)),
		interaction: i,
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		inv.User = convertUser(i.Member.User)
		inv.Permissions = i.Member.Permissions
	case i.User != nil:
		inv.User = convertUser(i.User)
	}
	options := data.Options
	if len(options) == 1 && options[0] != nil && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		inv.Subcommand = options[0].Name
		options = options[0].Options
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		inv.Options[opt.Name] = fmt.Sprint(opt.Value)
	}

	logger.WithFields(logrus.Fields{
		"command":    inv.Name,
		"subcommand": inv.Subcommand,
		"channel":    inv.ChannelID,
		"guild":      inv.GuildID,
	}).Debug("slash-command-received")
	return inv
}
