// Package dispatch routes inbound platform events through an ordered chain
// of handlers.
//
// Each qualifying event runs on its own goroutine. Handlers are tried in
// registration order and the first one reporting the event as handled stops
// the walk. Handler errors and panics are reported and never stop the
// dispatcher.
package dispatch

import (
	"context"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/store"
)

// Context is what every handler receives about an event
type Context struct {
	Conn      bot.Connection
	Message   *bot.Message
	ChannelID string
	GuildID   string
	User      *bot.User
	Guild     *store.GuildSettings
}

// MessageContext describes a message event
type MessageContext struct {
	Context
	Event bot.MessageEvent
}

// ReactionContext describes a reaction event
type ReactionContext struct {
	Context
	Reaction bot.ReactionRef
	Event    bot.ReactionEvent
}

// MessageHandler consumes message events
type MessageHandler interface {
	Initialize(ctx context.Context) error
	TryHandleMessage(ctx context.Context, mc *MessageContext) (bool, error)
}

// ReactionHandler consumes reaction events
type ReactionHandler interface {
	Initialize(ctx context.Context) error
	TryHandleReaction(ctx context.Context, rc *ReactionContext) (bool, error)
}

// GuildResolver supplies the settings for the channel an event happened in
type GuildResolver interface {
	ForChannel(ctx context.Context, guildID, channelID string) (*store.GuildSettings, error)
}

// resolveGuild never fails; unresolved guilds fall back to defaults
func resolveGuild(ctx context.Context, r GuildResolver, guildID, channelID string) *store.GuildSettings {
	if r == nil {
		return store.DefaultSettings(guildID)
	}
	settings, err := r.ForChannel(ctx, guildID, channelID)
	if err != nil || settings == nil {
		return store.DefaultSettings(guildID)
	}
	return settings
}
