package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockDiscordSession is a mock implementation of DiscordSessionInterface for testing
type MockDiscordSession struct {
	mu               sync.Mutex
	shouldFailOnOpen bool
	shouldFailOnSend bool
	openCalled       bool
	closed           bool
	nextHandler      int
	handlers         map[int]interface{}
	sent             []*discordgo.MessageSend
	edits            []*discordgo.MessageEdit
	deleted          []string
	reactions        []string
	games            []string
	responses        []*discordgo.InteractionResponse
	overwritten      []*discordgo.ApplicationCommand
	dmChannels       []string
	permissions      map[string]int64
}

func newMockSession() *MockDiscordSession {
	return &MockDiscordSession{handlers: make(map[int]interface{})}
}

func (m *MockDiscordSession) AddHandler(handler interface{}) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextHandler
	m.nextHandler++
	m.handlers[id] = handler
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, id)
	}
}

func (m *MockDiscordSession) handlerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// fire invokes every registered handler whose signature matches ev
func (m *MockDiscordSession) fire(ev interface{}) {
	m.mu.Lock()
	hs := make([]interface{}, 0, len(m.handlers))
	for _, h := range m.handlers {
		hs = append(hs, h)
	}
	m.mu.Unlock()

	for _, h := range hs {
		switch fn := h.(type) {
		case func(*discordgo.Session, *discordgo.Ready):
			if e, ok := ev.(*discordgo.Ready); ok {
				fn(nil, e)
			}
		case func(*discordgo.Session, *discordgo.GuildCreate):
			if e, ok := ev.(*discordgo.GuildCreate); ok {
				fn(nil, e)
			}
		case func(*discordgo.Session, *discordgo.GuildDelete):
			if e, ok := ev.(*discordgo.GuildDelete); ok {
				fn(nil, e)
			}
		case func(*discordgo.Session, *discordgo.MessageCreate):
			if e, ok := ev.(*discordgo.MessageCreate); ok {
				fn(nil, e)
			}
		case func(*discordgo.Session, *discordgo.MessageUpdate):
			if e, ok := ev.(*discordgo.MessageUpdate); ok {
				fn(nil, e)
			}
		case func(*discordgo.Session, *discordgo.MessageDelete):
			if e, ok := ev.(*discordgo.MessageDelete); ok {
				fn(nil, e)
			}
		case func(*discordgo.Session, *discordgo.MessageReactionAdd):
			if e, ok := ev.(*discordgo.MessageReactionAdd); ok {
				fn(nil, e)
			}
		case func(*discordgo.Session, *discordgo.MessageReactionRemove):
			if e, ok := ev.(*discordgo.MessageReactionRemove); ok {
				fn(nil, e)
			}
		case func(*discordgo.Session, *discordgo.InteractionCreate):
			if e, ok := ev.(*discordgo.InteractionCreate); ok {
				fn(nil, e)
			}
		}
	}
}

func (m *MockDiscordSession) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCalled = true
	if m.shouldFailOnOpen {
		return errors.New("websocket refused")
	}
	return nil
}

func (m *MockDiscordSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockDiscordSession) HeartbeatLatency() time.Duration {
	return 42 * time.Millisecond
}

func (m *MockDiscordSession) UpdateGameStatus(idle int, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games = append(m.games, name)
	return nil
}

func (m *MockDiscordSession) gameList() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.games...)
}

func (m *MockDiscordSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFailOnSend {
		return nil, errors.New("HTTP 403 Forbidden")
	}
	m.sent = append(m.sent, data)
	return &discordgo.Message{ID: "msg-1", ChannelID: channelID, Content: data.Content}, nil
}

func (m *MockDiscordSession) ChannelMessageEditComplex(e *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, e)
	content := ""
	if e.Content != nil {
		content = *e.Content
	}
	return &discordgo.Message{ID: e.ID, ChannelID: e.Channel, Content: content}, nil
}

func (m *MockDiscordSession) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *MockDiscordSession) MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = append(m.reactions, emojiID)
	return nil
}

func (m *MockDiscordSession) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{
		ID:        messageID,
		ChannelID: channelID,
		Author:    &discordgo.User{ID: "bot-1", Bot: true},
		Reactions: []*discordgo.MessageReactions{
			{Count: 2, Me: true, Emoji: &discordgo.Emoji{Name: "🗑️"}},
			{Count: 1, Emoji: &discordgo.Emoji{Name: "shelf", ID: "999"}},
		},
	}, nil
}

func (m *MockDiscordSession) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: channelID, GuildID: "guild-1", Name: "general"}, nil
}

func (m *MockDiscordSession) User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error) {
	if userID == "missing" {
		return nil, errors.New("HTTP 404 Not Found")
	}
	return &discordgo.User{ID: userID, Username: "alice"}, nil
}

func (m *MockDiscordSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dmChannels = append(m.dmChannels, recipientID)
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (m *MockDiscordSession) UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	perms, ok := m.permissions[channelID]
	if !ok {
		return 0, errors.New("HTTP 404 Unknown Channel")
	}
	return perms, nil
}

func (m *MockDiscordSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	return nil
}

func (m *MockDiscordSession) InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error {
	return nil
}

func (m *MockDiscordSession) ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overwritten = commands
	return commands, nil
}

func openWithMock(t *testing.T) (*DiscordConnection, *MockDiscordSession) {
	t.Helper()
	mock := newMockSession()
	conn := NewDiscordConnection("test-token-123456")
	conn.Session = mock
	require.NoError(t, conn.Open())
	return conn, mock
}

func TestNewDiscordConnection(t *testing.T) {
	conn := NewDiscordConnection("test-token")

	require.NotNil(t, conn)
	assert.Equal(t, "test-token", conn.Token)
	assert.Nil(t, conn.Session)
	assert.Nil(t, conn.CurrentUser())
	assert.False(t, conn.Status().Ready)
}

func TestDiscordConnection_Open(t *testing.T) {
	t.Run("registers lifecycle handlers", func(t *testing.T) {
		conn, mock := openWithMock(t)
		assert.True(t, mock.openCalled)
		assert.Equal(t, 5, mock.handlerCount())

		require.NoError(t, conn.Close())
		assert.True(t, mock.closed)
		assert.Equal(t, 0, mock.handlerCount())
	})

	t.Run("wraps open failure", func(t *testing.T) {
		mock := newMockSession()
		mock.shouldFailOnOpen = true
		conn := NewDiscordConnection("test-token")
		conn.Session = mock

		err := conn.Open()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open discord connection")
	})
}

func TestDiscordConnection_Ready(t *testing.T) {
	conn, mock := openWithMock(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, conn.WaitForReady(ctx))

	mock.fire(&discordgo.Ready{
		User:   &discordgo.User{ID: "bot-1", Username: "shelfbot", Bot: true},
		Guilds: []*discordgo.Guild{{ID: "g1"}, {ID: "g2"}},
	})
	mock.fire(&discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g3"}})
	mock.fire(&discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g1"}})

	require.NoError(t, conn.WaitForReady(context.Background()))
	me := conn.CurrentUser()
	require.NotNil(t, me)
	assert.Equal(t, "bot-1", me.ID)
	assert.True(t, me.Bot)

	status := conn.Status()
	assert.True(t, status.Ready)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.Guilds)
	assert.Equal(t, 42*time.Millisecond, status.Latency)
}

func TestDiscordConnection_OnMessage(t *testing.T) {
	conn, mock := openWithMock(t)

	type delivered struct {
		event MessageEvent
		msg   *Message
	}
	var got []delivered
	remove := conn.OnMessage(func(ev MessageEvent, m *Message) {
		got = append(got, delivered{ev, m})
	})

	mock.fire(&discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   "hello",
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
	}})
	mock.fire(&discordgo.MessageUpdate{Message: &discordgo.Message{
		ID:        "m2",
		ChannelID: "c1",
		WebhookID: "wh",
		Author:    &discordgo.User{ID: "u2"},
	}})
	mock.fire(&discordgo.MessageDelete{
		Message:      &discordgo.Message{ID: "m3", ChannelID: "c1"},
		BeforeDelete: &discordgo.Message{ID: "m3", Author: &discordgo.User{ID: "bot-1", Bot: true}},
	})

	require.Len(t, got, 3)
	assert.Equal(t, MessageCreate, got[0].event)
	assert.Equal(t, "hello", got[0].msg.Content)
	assert.Equal(t, "u1", got[0].msg.Author.ID)
	assert.Equal(t, "g1", got[0].msg.GuildID)

	assert.Equal(t, MessageModify, got[1].event)
	assert.True(t, got[1].msg.Webhook)

	assert.Equal(t, MessageDelete, got[2].event)
	assert.Equal(t, "m3", got[2].msg.ID)
	require.NotNil(t, got[2].msg.Author)
	assert.True(t, got[2].msg.Author.Bot)

	remove()
	mock.fire(&discordgo.MessageCreate{Message: &discordgo.Message{ID: "m4"}})
	assert.Len(t, got, 3)
}

func TestDiscordConnection_OnReaction(t *testing.T) {
	conn, mock := openWithMock(t)

	var events []ReactionEvent
	var refs []ReactionRef
	conn.OnReaction(func(ev ReactionEvent, ref ReactionRef) {
		events = append(events, ev)
		refs = append(refs, ref)
	})

	mock.fire(&discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		UserID:    "u1",
		MessageID: "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Emoji:     discordgo.Emoji{Name: "▶️"},
	}})
	mock.fire(&discordgo.MessageReactionRemove{MessageReaction: &discordgo.MessageReaction{
		UserID:    "u1",
		MessageID: "m1",
		ChannelID: "c1",
		Emoji:     discordgo.Emoji{Name: "shelf", ID: "999"},
	}})

	require.Len(t, refs, 2)
	assert.Equal(t, []ReactionEvent{ReactionAdd, ReactionRemove}, events)
	assert.Equal(t, ReactionRef{ChannelID: "c1", MessageID: "m1", GuildID: "g1", UserID: "u1", Emoji: "▶"}, refs[0])
	assert.Equal(t, "shelf:999", refs[1].Emoji)
}

func TestDiscordConnection_Outbound(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		conn := NewDiscordConnection("test-token")
		_, err := conn.SendMessage("c1", Content{Text: "hi"})
		assert.ErrorIs(t, err, ErrNotConnected)
		assert.ErrorIs(t, conn.AddReaction("c1", "m1", "🗑️"), ErrNotConnected)
		assert.ErrorIs(t, conn.DeleteMessage("c1", "m1"), ErrNotConnected)
	})

	t.Run("send truncates and converts embed", func(t *testing.T) {
		conn, mock := openWithMock(t)

		msg, err := conn.SendMessage("c1", Content{
			Text: strings.Repeat("x", 2100),
			Embed: &Embed{
				Title:  "Help",
				Footer: "Page 1/2",
				Fields: []EmbedField{{Name: "a", Value: "b"}},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "msg-1", msg.ID)

		require.Len(t, mock.sent, 1)
		assert.Len(t, []rune(mock.sent[0].Content), 2000)
		require.Len(t, mock.sent[0].Embeds, 1)
		assert.Equal(t, "Help", mock.sent[0].Embeds[0].Title)
		assert.Equal(t, "Page 1/2", mock.sent[0].Embeds[0].Footer.Text)
		assert.Len(t, mock.sent[0].Embeds[0].Fields, 1)
	})

	t.Run("send failure is wrapped", func(t *testing.T) {
		conn, mock := openWithMock(t)
		mock.shouldFailOnSend = true

		_, err := conn.SendMessage("c1", Content{Text: "hi"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to send message to channel c1")
	})

	t.Run("edit delete react", func(t *testing.T) {
		conn, mock := openWithMock(t)

		edited, err := conn.EditMessage("c1", "m1", Content{Text: "page 2"})
		require.NoError(t, err)
		assert.Equal(t, "page 2", edited.Content)

		require.NoError(t, conn.DeleteMessage("c1", "m1"))
		require.NoError(t, conn.AddReaction("c1", "m1", "◀️"))

		assert.Equal(t, []string{"m1"}, mock.deleted)
		assert.Equal(t, []string{"◀️"}, mock.reactions)
	})

	t.Run("fetch", func(t *testing.T) {
		conn, _ := openWithMock(t)

		msg, err := conn.FetchMessage("c1", "m1")
		require.NoError(t, err)
		assert.True(t, msg.AuthoredBy("bot-1"))
		assert.True(t, msg.HasOwnReaction("\U0001F5D1"), "fetched emoji names drop the presentation selector")
		assert.False(t, msg.HasOwnReaction("shelf:999"))

		ch, err := conn.FetchChannel("c1")
		require.NoError(t, err)
		assert.Equal(t, "guild-1", ch.GuildID)

		_, err = conn.FetchUser("missing")
		assert.Error(t, err)
	})
}

func TestDiscordConnection_Commands(t *testing.T) {
	conn, mock := openWithMock(t)

	err := conn.RegisterCommands([]CommandSpec{{Name: "help", Description: "Show help"}})
	assert.Error(t, err, "registration requires ready")

	mock.fire(&discordgo.Ready{User: &discordgo.User{ID: "bot-1"}})
	require.NoError(t, conn.RegisterCommands([]CommandSpec{{
		Name:        "help",
		Description: "Show help",
		Options:     []CommandOption{{Name: "page", Description: "Page", Integer: true}},
	}}))
	require.Len(t, mock.overwritten, 1)
	assert.Equal(t, discordgo.ApplicationCommandOptionInteger, mock.overwritten[0].Options[0].Type)

	var inv *CommandInvocation
	conn.OnCommand(func(i *CommandInvocation) { inv = i })
	mock.fire(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "c1",
		GuildID:   "g1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "u1"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "help",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "page", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(2)},
			},
		},
	}})

	require.NotNil(t, inv)
	assert.Equal(t, "help", inv.Name)
	assert.Equal(t, "u1", inv.User.ID)
	assert.Equal(t, "2", inv.Option("page"))

	require.NoError(t, conn.Respond(inv, Content{Text: "please wait"}, true))
	require.Len(t, mock.responses, 1)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, mock.responses[0].Data.Flags)
}

func TestDiscordConnection_SubcommandInvocation(t *testing.T) {
	conn, mock := openWithMock(t)
	mock.fire(&discordgo.Ready{User: &discordgo.User{ID: "bot-1"}})

	require.NoError(t, conn.RegisterCommands([]CommandSpec{{
		Name:        "settings",
		Description: "Configure",
		Options: []CommandOption{{
			Name:       "language",
			Subcommand: true,
			Options: []CommandOption{{
				Name:     "language",
				Required: true,
				Choices:  []CommandChoice{{Name: "English", Value: "en"}, {Name: "Korean", Value: "ko"}},
			}},
		}},
	}}))
	require.Len(t, mock.overwritten, 1)
	sub := mock.overwritten[0].Options[0]
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, sub.Type)
	require.Len(t, sub.Options, 1)
	assert.Equal(t, discordgo.ApplicationCommandOptionString, sub.Options[0].Type)
	assert.True(t, sub.Options[0].Required)
	assert.Len(t, sub.Options[0].Choices, 2)

	var inv *CommandInvocation
	conn.OnCommand(func(i *CommandInvocation) { inv = i })
	mock.fire(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "c1",
		GuildID:   "g1",
		Member: &discordgo.Member{
			User:        &discordgo.User{ID: "u1"},
			Permissions: discordgo.PermissionManageServer | discordgo.PermissionSendMessages,
		},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "settings",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name: "language",
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "language", Type: discordgo.ApplicationCommandOptionString, Value: "ko"},
				},
			}},
		},
	}})

	require.NotNil(t, inv)
	assert.Equal(t, "language", inv.Subcommand)
	assert.Equal(t, "ko", inv.Option("language"))
	assert.True(t, inv.CanManageGuild())

	inv.Permissions = discordgo.PermissionSendMessages
	assert.False(t, inv.CanManageGuild())
	assert.False(t, (&CommandInvocation{Permissions: PermissionManageServer}).CanManageGuild(), "DMs have no guild")
}

func TestDiscordConnection_GuildEvents(t *testing.T) {
	conn, mock := openWithMock(t)

	var joined []*Guild
	var left []string
	conn.OnGuildJoin(func(g *Guild) { joined = append(joined, g) })
	removeLeave := conn.OnGuildLeave(func(id string) { left = append(left, id) })

	mock.fire(&discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g0"}})
	assert.Empty(t, joined, "guild creates before ready are not joins")

	mock.fire(&discordgo.Ready{
		User:   &discordgo.User{ID: "bot-1"},
		Guilds: []*discordgo.Guild{{ID: "g1", Unavailable: true}},
	})
	mock.fire(&discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g1"}})
	assert.Empty(t, joined, "guilds from the ready event are not joins")

	mock.fire(&discordgo.GuildCreate{Guild: &discordgo.Guild{
		ID:      "g2",
		Name:    "Library",
		OwnerID: "owner-1",
		Channels: []*discordgo.Channel{
			{ID: "voice", Type: discordgo.ChannelTypeGuildVoice, Position: 0},
			{ID: "rules", Type: discordgo.ChannelTypeGuildText, Position: 2},
			{ID: "general", Type: discordgo.ChannelTypeGuildText, Position: 1},
		},
	}})
	require.Len(t, joined, 1)
	assert.Equal(t, "g2", joined[0].ID)
	assert.Equal(t, "owner-1", joined[0].OwnerID)
	require.Len(t, joined[0].Channels, 2)
	assert.Equal(t, "general", joined[0].Channels[0].ID)
	assert.Equal(t, "rules", joined[0].Channels[1].ID)

	mock.fire(&discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g2"}})
	assert.Len(t, joined, 1)

	mock.fire(&discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g1", Unavailable: true}})
	assert.Empty(t, left, "outages are not removals")
	mock.fire(&discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g2"}})
	assert.Equal(t, []string{"g2"}, left)

	removeLeave()
	mock.fire(&discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g1"}})
	assert.Equal(t, []string{"g2"}, left)
	assert.Equal(t, 1, conn.Status().Guilds)
}

func TestDiscordConnection_CanSendAndSendDirect(t *testing.T) {
	conn, mock := openWithMock(t)

	_, err := conn.CanSend("c1")
	assert.Error(t, err, "permission checks require ready")

	mock.fire(&discordgo.Ready{User: &discordgo.User{ID: "bot-1"}})
	mock.permissions = map[string]int64{
		"open":   discordgo.PermissionSendMessages | discordgo.PermissionViewChannel,
		"closed": discordgo.PermissionViewChannel,
	}

	ok, err := conn.CanSend("open")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = conn.CanSend("closed")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = conn.CanSend("gone")
	assert.ErrorContains(t, err, "failed to check permissions in gone")

	msg, err := conn.SendDirect("owner-1", Content{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "dm-owner-1", msg.ChannelID)
	assert.Equal(t, []string{"owner-1"}, mock.dmChannels)
}

func TestNormalizeEmoji(t *testing.T) {
	assert.Equal(t, "▶", normalizeEmoji("▶\uFE0F"))
	assert.Equal(t, "▶", normalizeEmoji("▶"))
	assert.Equal(t, "shelf:999", normalizeEmoji("shelf:999"))
}

func TestDiscordConnection_RunPresence(t *testing.T) {
	conn, mock := openWithMock(t)
	mock.fire(&discordgo.Ready{User: &discordgo.User{ID: "bot-1"}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		conn.RunPresence(ctx, []string{"/help", "reading"}, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(mock.gameList()) >= 3
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	games := mock.gameList()
	assert.Equal(t, "/help", games[0])
	assert.Equal(t, "reading", games[1])
	assert.Equal(t, "/help", games[2])
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "abc", "***"},
		{"boundary", "0123456789", "***"},
		{"long", "abcd-secret-wxyz", "abcd***wxyz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskSecret(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel…", truncate("hello", 4))
	assert.Equal(t, "日本…", truncate("日本語です", 3))
}
