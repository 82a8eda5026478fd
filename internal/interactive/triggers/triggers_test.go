package triggers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/bot/bottest"
	"github.com/keepmind9/shelfbot/internal/dispatch"
	"github.com/keepmind9/shelfbot/internal/interactive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var botUser = &bot.User{ID: "bot-1", Username: "shelfbot", Bot: true}

type pagesView struct {
	mu    sync.Mutex
	page  int
	pages []string
}

func (v *pagesView) Render(*interactive.Scope) (bot.Content, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return bot.Content{Text: v.pages[v.page]}, nil
}

func (v *pagesView) Triggers() []interactive.Trigger {
	return []interactive.Trigger{NewList(Left), NewList(Right), Delete{}}
}

func (v *pagesView) Move(delta int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := v.page + delta
	if next < 0 || next >= len(v.pages) {
		return false
	}
	v.page = next
	return true
}

type fixture struct {
	conn      *bottest.Connection
	manager   *interactive.Manager
	reactions *dispatch.ReactionDispatcher
	messages  *dispatch.MessageDispatcher
}

func newFixture(t *testing.T, conn *bottest.Connection) *fixture {
	t.Helper()
	table, err := interactive.NewStatelessTable(Descriptors())
	require.NoError(t, err)

	m := interactive.NewManager(conn, table, interactive.Options{})
	f := &fixture{
		conn:      conn,
		manager:   m,
		reactions: dispatch.NewReactionDispatcher(conn, nil, nil, m),
		messages:  dispatch.NewMessageDispatcher(conn, nil, nil, m),
	}
	require.NoError(t, f.reactions.Start(context.Background()))
	require.NoError(t, f.messages.Start(context.Background()))
	t.Cleanup(func() {
		f.reactions.Stop()
		f.messages.Stop()
		m.Close()
	})
	return f
}

func newConn() *bottest.Connection {
	conn := bottest.NewReady(botUser)
	conn.AddUser(&bot.User{ID: "u1", Username: "alice"})
	conn.AddChannel(&bot.Channel{ID: "c1", GuildID: "g1"})
	return conn
}

func (f *fixture) react(event bot.ReactionEvent, messageID, emoji string) {
	f.conn.EmitReaction(event, bot.ReactionRef{ChannelID: "c1", GuildID: "g1", MessageID: messageID, UserID: "u1", Emoji: emoji})
	f.reactions.Wait()
}

func (f *fixture) publish(t *testing.T) *bot.Message {
	t.Helper()
	view := &pagesView{pages: []string{"one", "two", "three"}}
	msg, err := f.manager.Publish(context.Background(), view, &dispatch.Context{ChannelID: "c1", GuildID: "g1"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(f.conn.Reactions()) == 3 }, time.Second, 5*time.Millisecond)
	return msg
}

func TestDescriptors(t *testing.T) {
	table, err := interactive.NewStatelessTable(Descriptors())
	require.NoError(t, err)
	assert.Equal(t, []string{DeleteEmoji}, table.Emojis())
}

func TestList_Paging(t *testing.T) {
	f := newFixture(t, newConn())
	msg := f.publish(t)

	f.react(bot.ReactionAdd, msg.ID, RightEmoji)
	f.react(bot.ReactionRemove, msg.ID, RightEmoji)

	edits := f.conn.Edits()
	require.Len(t, edits, 2)
	assert.Equal(t, "two", edits[0].Content.Text)
	assert.Equal(t, "three", edits[1].Content.Text)

	f.react(bot.ReactionAdd, msg.ID, RightEmoji)
	assert.Len(t, f.conn.Edits(), 2, "paging past the end does nothing")

	f.react(bot.ReactionAdd, msg.ID, LeftEmoji)
	edits = f.conn.Edits()
	require.Len(t, edits, 3)
	assert.Equal(t, "two", edits[2].Content.Text)

	assert.Equal(t, dispatch.Stats{Received: 4, Handled: 4}, f.reactions.Stats())
}

func TestDelete_Stateful(t *testing.T) {
	f := newFixture(t, newConn())
	msg := f.publish(t)
	require.Equal(t, int64(1), f.manager.Stats().Messages)

	f.react(bot.ReactionRemove, msg.ID, DeleteEmoji)
	assert.Empty(t, f.conn.Deleted(), "removing the reaction does not delete")

	f.react(bot.ReactionAdd, msg.ID, DeleteEmoji)
	assert.Equal(t, []string{msg.ID}, f.conn.Deleted())
	assert.Equal(t, int64(0), f.manager.Stats().Messages)

	// the platform then reports the delete, which finds nothing left to do
	f.conn.EmitMessage(bot.MessageDelete, &bot.Message{ID: msg.ID, ChannelID: "c1"})
	f.messages.Wait()
	assert.Equal(t, dispatch.Stats{Received: 1, Handled: 0}, f.messages.Stats())
}

func TestDelete_StatelessAfterRestart(t *testing.T) {
	conn := newConn()
	conn.PutMessage(&bot.Message{
		ID:        "old",
		ChannelID: "c1",
		Author:    botUser,
		Reactions: []bot.Reaction{{Emoji: DeleteEmoji, Count: 2, Me: true}, {Emoji: RightEmoji, Count: 2, Me: true}},
	})
	conn.PutMessage(&bot.Message{ID: "user-msg", ChannelID: "c1", Author: &bot.User{ID: "u1"}})
	f := newFixture(t, conn)

	f.react(bot.ReactionAdd, "old", RightEmoji)
	assert.Empty(t, f.conn.Edits(), "paging needs state")

	f.react(bot.ReactionAdd, "user-msg", DeleteEmoji)
	assert.Empty(t, f.conn.Deleted(), "only bot messages qualify")

	f.react(bot.ReactionAdd, "old", DeleteEmoji)
	assert.Equal(t, []string{"old"}, f.conn.Deleted())
	assert.Equal(t, dispatch.Stats{Received: 3, Handled: 1}, f.reactions.Stats())
}

func TestDeletedMessageForgetsState(t *testing.T) {
	f := newFixture(t, newConn())
	msg := f.publish(t)

	f.conn.EmitMessage(bot.MessageDelete, &bot.Message{ID: msg.ID, ChannelID: "c1"})
	f.messages.Wait()

	assert.Equal(t, dispatch.Stats{Received: 1, Handled: 1}, f.messages.Stats())
	assert.Equal(t, int64(0), f.manager.Stats().Messages)
}
