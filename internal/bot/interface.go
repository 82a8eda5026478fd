// Package bot provides the platform connection used by shelfbot.
//
// The rest of the module talks to the chat platform only through the
// Connection interface and the platform-neutral types declared here
// (Message, User, ReactionRef, Content). DiscordConnection implements
// Connection on top of discordgo; bottest provides an in-memory fake.
//
// # Events
//
// Inbound events are delivered through callbacks registered with OnMessage,
// OnReaction, OnGuildJoin and OnGuildLeave. Each registration returns a
// function that removes it. Callbacks run on the platform library's event
// goroutine, so they must hand work off quickly.
//
// # Thread Safety
//
// Connection implementations are safe for concurrent use.
package bot

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by outbound calls made before Open or after Close
var ErrNotConnected = errors.New("platform connection not open")

// MessageEvent is the kind of message event delivered by the platform
type MessageEvent int

const (
	MessageCreate MessageEvent = iota
	MessageModify
	MessageDelete
)

func (e MessageEvent) String() string {
	switch e {
	case MessageCreate:
		return "create"
	case MessageModify:
		return "modify"
	case MessageDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ReactionEvent is the kind of reaction event delivered by the platform
type ReactionEvent int

const (
	ReactionAdd ReactionEvent = iota
	ReactionRemove
)

func (e ReactionEvent) String() string {
	switch e {
	case ReactionAdd:
		return "add"
	case ReactionRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// User is a platform account
type User struct {
	ID       string
	Username string
	Bot      bool
}

// Reaction is an aggregated reaction on a message
type Reaction struct {
	Emoji string
	Count int
	Me    bool // placed by the current bot user
}

// Message is a platform message.
// Author is nil when the platform did not deliver it (most deletes).
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	Author    *User
	Webhook   bool
	Content   string
	Embed     *Embed
	Reactions []Reaction
}

// HasOwnReaction reports whether the bot itself reacted with emoji
func (m *Message) HasOwnReaction(emoji string) bool {
	if m == nil {
		return false
	}
	for _, r := range m.Reactions {
		if r.Emoji == emoji && r.Me {
			return true
		}
	}
	return false
}

// AuthoredBy reports whether the message author has the given user id
func (m *Message) AuthoredBy(userID string) bool {
	return m != nil && m.Author != nil && userID != "" && m.Author.ID == userID
}

// Channel is a platform channel
type Channel struct {
	ID       string
	GuildID  string
	Name     string
	Position int
}

// Guild is a server the bot is a member of. Channels holds its text
// channels ordered by position.
type Guild struct {
	ID       string
	Name     string
	OwnerID  string
	Channels []Channel
}

// ReactionRef identifies a reaction event without the referenced objects,
// which have to be fetched separately.
type ReactionRef struct {
	ChannelID string
	MessageID string
	GuildID   string
	UserID    string
	Emoji     string
}

// EmbedField is one name/value pair of an embed
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is rich message content
type Embed struct {
	Title        string
	Description  string
	Color        int
	ThumbnailURL string
	Footer       string
	Fields       []EmbedField
}

// Content is what gets sent or edited into a message
type Content struct {
	Text  string
	Embed *Embed
}

// Connection is the platform connection the dispatch engine runs on
type Connection interface {
	// WaitForReady blocks until the platform reports the session ready or ctx ends
	WaitForReady(ctx context.Context) error

	// CurrentUser returns the bot's own account, nil before ready
	CurrentUser() *User

	// OnMessage subscribes to message events and returns an unsubscribe func
	OnMessage(handler func(MessageEvent, *Message)) (remove func())

	// OnReaction subscribes to reaction events and returns an unsubscribe func
	OnReaction(handler func(ReactionEvent, ReactionRef)) (remove func())

	SendMessage(channelID string, content Content) (*Message, error)
	EditMessage(channelID, messageID string, content Content) (*Message, error)
	DeleteMessage(channelID, messageID string) error
	AddReaction(channelID, messageID, emoji string) error

	FetchChannel(channelID string) (*Channel, error)
	FetchMessage(channelID, messageID string) (*Message, error)
	FetchUser(userID string) (*User, error)
}

// GuildConnection is a Connection that also reports guild membership changes
type GuildConnection interface {
	Connection

	// OnGuildJoin is called for guilds the bot joins after the ready event
	OnGuildJoin(handler func(*Guild)) (remove func())

	// OnGuildLeave is called with the id of a guild the bot was removed from
	OnGuildLeave(handler func(guildID string)) (remove func())

	// CanSend reports whether the bot may post in a channel
	CanSend(channelID string) (bool, error)

	// SendDirect sends a direct message to a user
	SendDirect(userID string, content Content) (*Message, error)
}
