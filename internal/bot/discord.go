package bot

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/keepmind9/shelfbot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// DiscordSessionInterface defines the interface we need from discordgo.Session
// This allows us to mock it in tests without depending on concrete types
type DiscordSessionInterface interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	HeartbeatLatency() time.Duration
	UpdateGameStatus(idle int, name string) error

	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)

	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// discordIntents are the gateway intents the dispatch engine depends on
const discordIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsDirectMessageReactions |
	discordgo.IntentsMessageContent

// DiscordConnection implements Connection for Discord
type DiscordConnection struct {
	mu        sync.RWMutex
	Token     string
	Session   DiscordSessionInterface
	user      *User
	guilds    map[string]struct{}
	connected bool
	ready     chan struct{}
	readyOnce sync.Once
	removers  []func()

	nextSub int
	joins   map[int]func(*Guild)
	leaves  map[int]func(string)
}

// NewDiscordConnection creates a new Discord connection. The session is created in Open.
func NewDiscordConnection(token string) *DiscordConnection {
	return &DiscordConnection{
		Token:  token,
		guilds: make(map[string]struct{}),
		ready:  make(chan struct{}),
		joins:  make(map[int]func(*Guild)),
		leaves: make(map[int]func(string)),
	}
}

// Open logs in and starts the gateway connection.
// It returns once the websocket is open; use WaitForReady to wait for the ready event.
func (d *DiscordConnection) Open() error {
	logger.WithFields(logrus.Fields{
		"token": maskSecret(d.Token),
	}).Info("opening-discord-connection")

	d.mu.Lock()
	if d.Session == nil {
		session, err := discordgo.New("Bot " + d.Token)
		if err != nil {
			d.mu.Unlock()
			return fmt.Errorf("failed to create discord session: %w", err)
		}
		session.Identify.Intents = discordIntents
		d.Session = session
	}
	session := d.Session
	d.mu.Unlock()

	d.track(session.AddHandler(d.onReady))
	d.track(session.AddHandler(d.onGuildCreate))
	d.track(session.AddHandler(d.onGuildDelete))
	d.track(session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		d.setConnected(false)
		logger.Warn("discord-gateway-disconnected")
	}))
	d.track(session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		d.setConnected(true)
		logger.Info("discord-gateway-resumed")
	}))

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	return nil
}

// Close disconnects from Discord and drops internal handlers
func (d *DiscordConnection) Close() error {
	d.mu.Lock()
	session := d.Session
	removers := d.removers
	d.Session = nil
	d.removers = nil
	d.connected = false
	d.mu.Unlock()

	for _, remove := range removers {
		remove()
	}
	if session == nil {
		return nil
	}
	if err := session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

func (d *DiscordConnection) track(remove func()) {
	d.mu.Lock()
	d.removers = append(d.removers, remove)
	d.mu.Unlock()
}

func (d *DiscordConnection) session() (DiscordSessionInterface, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.Session == nil {
		return nil, ErrNotConnected
	}
	return d.Session, nil
}

func (d *DiscordConnection) setConnected(connected bool) {
	d.mu.Lock()
	d.connected = connected
	d.mu.Unlock()
}

func (d *DiscordConnection) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	d.mu.Lock()
	d.user = convertUser(r.User)
	for _, g := range r.Guilds {
		d.guilds[g.ID] = struct{}{}
	}
	d.connected = true
	guilds := len(d.guilds)
	d.mu.Unlock()

	d.readyOnce.Do(func() { close(d.ready) })

	logger.WithFields(logrus.Fields{
		"user":   r.User.Username,
		"guilds": guilds,
	}).Info("discord-session-ready")
}

// onGuildCreate also fires for every guild listed in the ready event as it
// becomes available. Only guilds not seen before count as joins.
func (d *DiscordConnection) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil {
		return
	}
	d.mu.Lock()
	_, known := d.guilds[g.ID]
	d.guilds[g.ID] = struct{}{}
	if known || d.user == nil {
		d.mu.Unlock()
		return
	}
	handlers := make([]func(*Guild), 0, len(d.joins))
	for _, h := range d.joins {
		handlers = append(handlers, h)
	}
	d.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"guild": g.ID,
		"name":  g.Name,
	}).Info("discord-guild-joined")
	guild := convertGuild(g.Guild)
	for _, h := range handlers {
		h(guild)
	}
}

func (d *DiscordConnection) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	d.mu.Lock()
	delete(d.guilds, g.ID)
	handlers := make([]func(string), 0, len(d.leaves))
	for _, h := range d.leaves {
		handlers = append(handlers, h)
	}
	d.mu.Unlock()

	logger.WithField("guild", g.ID).Info("discord-guild-left")
	for _, h := range handlers {
		h(g.ID)
	}
}

// OnGuildJoin subscribes to guilds joined after the ready event
func (d *DiscordConnection) OnGuildJoin(handler func(*Guild)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextSub
	d.nextSub++
	d.joins[id] = handler
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.joins, id)
	}
}

// OnGuildLeave subscribes to guild removals
func (d *DiscordConnection) OnGuildLeave(handler func(string)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextSub
	d.nextSub++
	d.leaves[id] = handler
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.leaves, id)
	}
}

// WaitForReady blocks until the ready event arrives or ctx ends
func (d *DiscordConnection) WaitForReady(ctx context.Context) error {
	select {
	case <-d.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for discord ready: %w", ctx.Err())
	}
}

// CurrentUser returns the bot account reported by the ready event
func (d *DiscordConnection) CurrentUser() *User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.user
}

// ConnectionStatus is a snapshot of gateway health
type ConnectionStatus struct {
	Connected bool
	Ready     bool
	Guilds    int
	Latency   time.Duration
}

// Status reports gateway health for the health endpoint
func (d *DiscordConnection) Status() ConnectionStatus {
	d.mu.RLock()
	status := ConnectionStatus{
		Connected: d.connected,
		Guilds:    len(d.guilds),
	}
	session := d.Session
	d.mu.RUnlock()

	select {
	case <-d.ready:
		status.Ready = true
	default:
	}
	if session != nil && status.Connected {
		status.Latency = session.HeartbeatLatency()
	}
	return status
}

// OnMessage subscribes to message create, update and delete events
func (d *DiscordConnection) OnMessage(handler func(MessageEvent, *Message)) func() {
	session, err := d.session()
	if err != nil {
		logger.WithField("error", err).Error("cannot-subscribe-message-events")
		return func() {}
	}

	removers := []func(){
		session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			if m.Message == nil {
				return
			}
			handler(MessageCreate, convertMessage(m.Message))
		}),
		session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageUpdate) {
			if m.Message == nil {
				return
			}
			handler(MessageModify, convertMessage(m.Message))
		}),
		session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageDelete) {
			if m.Message == nil {
				return
			}
			msg := convertMessage(m.Message)
			if m.BeforeDelete != nil {
				before := convertMessage(m.BeforeDelete)
				msg.Author = before.Author
				msg.Webhook = before.Webhook
				msg.Reactions = before.Reactions
			}
			handler(MessageDelete, msg)
		}),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

// OnReaction subscribes to reaction add and remove events
func (d *DiscordConnection) OnReaction(handler func(ReactionEvent, ReactionRef)) func() {
	session, err := d.session()
	if err != nil {
		logger.WithField("error", err).Error("cannot-subscribe-reaction-events")
		return func() {}
	}

	removeAdd := session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if r.MessageReaction == nil {
			return
		}
		handler(ReactionAdd, convertReactionRef(r.MessageReaction))
	})
	removeRemove := session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
		if r.MessageReaction == nil {
			return
		}
		handler(ReactionRemove, convertReactionRef(r.MessageReaction))
	})
	return func() {
		removeAdd()
		removeRemove()
	}
}

// SendMessage sends content to a channel
func (d *DiscordConnection) SendMessage(channelID string, content Content) (*Message, error) {
	session, err := d.session()
	if err != nil {
		return nil, err
	}

	send := &discordgo.MessageSend{Content: truncate(content.Text, constants.MaxDiscordMessageLength)}
	if content.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{convertEmbed(content.Embed)}
	}

	m, err := session.ChannelMessageSendComplex(channelID, send)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"channel": channelID,
			"error":   err,
		}).Error("failed-to-send-message-to-discord")
		return nil, fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}

	logger.WithFields(logrus.Fields{
		"channel":    channelID,
		"message_id": m.ID,
	}).Debug("message-sent-to-discord")
	return convertMessage(m), nil
}

// EditMessage replaces the content of a message
func (d *DiscordConnection) EditMessage(channelID, messageID string, content Content) (*Message, error) {
	session, err := d.session()
	if err != nil {
		return nil, err
	}

	edit := discordgo.NewMessageEdit(channelID, messageID).
		SetContent(truncate(content.Text, constants.MaxDiscordMessageLength))
	if content.Embed != nil {
		edit = edit.SetEmbeds([]*discordgo.MessageEmbed{convertEmbed(content.Embed)})
	}

	m, err := session.ChannelMessageEditComplex(edit)
	if err != nil {
		return nil, fmt.Errorf("failed to edit message %s: %w", messageID, err)
	}
	return convertMessage(m), nil
}

// DeleteMessage deletes a message
func (d *DiscordConnection) DeleteMessage(channelID, messageID string) error {
	session, err := d.session()
	if err != nil {
		return err
	}
	if err := session.ChannelMessageDelete(channelID, messageID); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	return nil
}

// AddReaction reacts to a message as the bot
func (d *DiscordConnection) AddReaction(channelID, messageID, emoji string) error {
	session, err := d.session()
	if err != nil {
		return err
	}
	if err := session.MessageReactionAdd(channelID, messageID, emoji); err != nil {
		return fmt.Errorf("failed to add reaction %s to message %s: %w", emoji, messageID, err)
	}
	return nil
}

// CanSend reports whether the bot has the Send Messages permission in a channel
func (d *DiscordConnection) CanSend(channelID string) (bool, error) {
	session, err := d.session()
	if err != nil {
		return false, err
	}
	me := d.CurrentUser()
	if me == nil {
		return false, fmt.Errorf("failed to check permissions in %s: session not ready", channelID)
	}
	perms, err := session.UserChannelPermissions(me.ID, channelID)
	if err != nil {
		return false, fmt.Errorf("failed to check permissions in %s: %w", channelID, err)
	}
	return perms&discordgo.PermissionSendMessages != 0, nil
}

// SendDirect opens (or reuses) the DM channel with a user and sends to it
func (d *DiscordConnection) SendDirect(userID string, content Content) (*Message, error) {
	session, err := d.session()
	if err != nil {
		return nil, err
	}
	ch, err := session.UserChannelCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to open direct channel with %s: %w", userID, err)
	}
	return d.SendMessage(ch.ID, content)
}

// FetchChannel retrieves a channel by id
func (d *DiscordConnection) FetchChannel(channelID string) (*Channel, error) {
	session, err := d.session()
	if err != nil {
		return nil, err
	}
	c, err := session.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	return &Channel{ID: c.ID, GuildID: c.GuildID, Name: c.Name, Position: c.Position}, nil
}

// FetchMessage retrieves a message, including its current reactions
func (d *DiscordConnection) FetchMessage(channelID, messageID string) (*Message, error) {
	session, err := d.session()
	if err != nil {
		return nil, err
	}
	m, err := session.ChannelMessage(channelID, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}
	return convertMessage(m), nil
}

// FetchUser retrieves a user by id
func (d *DiscordConnection) FetchUser(userID string) (*User, error) {
	session, err := d.session()
	if err != nil {
		return nil, err
	}
	u, err := session.User(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}
	return convertUser(u), nil
}

func convertUser(u *discordgo.User) *User {
	if u == nil {
		return nil
	}
	return &User{ID: u.ID, Username: u.Username, Bot: u.Bot}
}

func convertMessage(m *discordgo.Message) *Message {
	msg := &Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Author:    convertUser(m.Author),
		Webhook:   m.WebhookID != "",
		Content:   m.Content,
	}
	for _, r := range m.Reactions {
		if r == nil || r.Emoji == nil {
			continue
		}
		msg.Reactions = append(msg.Reactions, Reaction{
			Emoji: normalizeEmoji(r.Emoji.APIName()),
			Count: r.Count,
			Me:    r.Me,
		})
	}
	if len(m.Embeds) > 0 && m.Embeds[0] != nil {
		e := m.Embeds[0]
		msg.Embed = &Embed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
	}
	return msg
}

func convertReactionRef(r *discordgo.MessageReaction) ReactionRef {
	return ReactionRef{
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		GuildID:   r.GuildID,
		UserID:    r.UserID,
		Emoji:     normalizeEmoji(r.Emoji.APIName()),
	}
}

// convertGuild keeps the text channels, ordered by position
func convertGuild(g *discordgo.Guild) *Guild {
	guild := &Guild{ID: g.ID, Name: g.Name, OwnerID: g.OwnerID}
	for _, c := range g.Channels {
		if c == nil || c.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		guild.Channels = append(guild.Channels, Channel{
			ID:       c.ID,
			GuildID:  g.ID,
			Name:     c.Name,
			Position: c.Position,
		})
	}
	slices.SortStableFunc(guild.Channels, func(a, b Channel) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return guild
}

func convertEmbed(e *Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: truncate(e.Description, constants.MaxDiscordEmbedDescriptionLength),
		Color:       e.Color,
	}
	if e.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return embed
}

var _ GuildConnection = (*DiscordConnection)(nil)
