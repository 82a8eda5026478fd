// Package bottest provides an in-memory bot.Connection for tests.
package bottest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/keepmind9/shelfbot/internal/bot"
)

// ErrNotFound is returned by Fetch calls for unknown ids
var ErrNotFound = errors.New("not found")

// Sent records one SendMessage or EditMessage call
type Sent struct {
	ChannelID string
	MessageID string
	Content   bot.Content
}

// ReactionCall records one AddReaction call
type ReactionCall struct {
	ChannelID string
	MessageID string
	Emoji     string
}

// Response records one command response
type Response struct {
	Command   string
	Content   bot.Content
	Ephemeral bool
	Deferred  bool
}

// Connection is a fake bot.Connection backed by maps.
// Emit* calls deliver events synchronously on the caller's goroutine.
type Connection struct {
	mu        sync.Mutex
	me        *bot.User
	ready     chan struct{}
	readyOnce sync.Once
	nextID    int
	nextSub   int

	messages map[string]*bot.Message
	channels map[string]*bot.Channel
	users    map[string]*bot.User

	messageSubs  map[int]func(bot.MessageEvent, *bot.Message)
	reactionSubs map[int]func(bot.ReactionEvent, bot.ReactionRef)
	commandSubs  map[int]func(*bot.CommandInvocation)
	joinSubs     map[int]func(*bot.Guild)
	leaveSubs    map[int]func(string)
	writable     map[string]bool

	sent      []Sent
	edits     []Sent
	deleted   []string
	reactions []ReactionCall
	attempts  map[string]int
	responses []Response
	cleared   int
	commands  []bot.CommandSpec
	direct    []Sent

	sendErr     error
	reactionErr error
}

// New returns a fake connection for the given bot account. It is not ready
// until MarkReady is called.
func New(me *bot.User) *Connection {
	c := &Connection{
		me:           me,
		ready:        make(chan struct{}),
		messages:     make(map[string]*bot.Message),
		channels:     make(map[string]*bot.Channel),
		users:        make(map[string]*bot.User),
		attempts:     make(map[string]int),
		messageSubs:  make(map[int]func(bot.MessageEvent, *bot.Message)),
		reactionSubs: make(map[int]func(bot.ReactionEvent, bot.ReactionRef)),
		commandSubs:  make(map[int]func(*bot.CommandInvocation)),
		joinSubs:     make(map[int]func(*bot.Guild)),
		leaveSubs:    make(map[int]func(string)),
		writable:     make(map[string]bool),
	}
	if me != nil {
		c.users[me.ID] = me
	}
	return c
}

// NewReady returns a fake connection that is already ready
func NewReady(me *bot.User) *Connection {
	c := New(me)
	c.MarkReady()
	return c
}

// MarkReady unblocks WaitForReady
func (c *Connection) MarkReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}

// AddUser makes a user fetchable
func (c *Connection) AddUser(u *bot.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
}

// AddChannel makes a channel fetchable
func (c *Connection) AddChannel(ch *bot.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[ch.ID] = ch
}

// SetWritable controls what CanSend reports for a known channel
func (c *Connection) SetWritable(channelID string, writable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writable[channelID] = writable
}

// PutMessage stores a message so it can be fetched
func (c *Connection) PutMessage(m *bot.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *m
	c.messages[m.ID] = &cp
}

// FailSends makes SendMessage and EditMessage return err (nil to clear)
func (c *Connection) FailSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// FailReactions makes AddReaction return err (nil to clear)
func (c *Connection) FailReactions(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reactionErr = err
}

// EmitMessage delivers a message event to all subscribers
func (c *Connection) EmitMessage(event bot.MessageEvent, m *bot.Message) {
	c.mu.Lock()
	subs := make([]func(bot.MessageEvent, *bot.Message), 0, len(c.messageSubs))
	for _, fn := range c.messageSubs {
		subs = append(subs, fn)
	}
	if event == bot.MessageDelete {
		delete(c.messages, m.ID)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(event, m)
	}
}

// EmitReaction delivers a reaction event to all subscribers
func (c *Connection) EmitReaction(event bot.ReactionEvent, ref bot.ReactionRef) {
	c.mu.Lock()
	subs := make([]func(bot.ReactionEvent, bot.ReactionRef), 0, len(c.reactionSubs))
	for _, fn := range c.reactionSubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(event, ref)
	}
}

// EmitCommand delivers a slash command invocation to all subscribers
func (c *Connection) EmitCommand(inv *bot.CommandInvocation) {
	c.mu.Lock()
	subs := make([]func(*bot.CommandInvocation), 0, len(c.commandSubs))
	for _, fn := range c.commandSubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(inv)
	}
}

// EmitGuildJoin delivers a guild join to all subscribers. The guild's
// channels become fetchable.
func (c *Connection) EmitGuildJoin(g *bot.Guild) {
	c.mu.Lock()
	for i := range g.Channels {
		ch := g.Channels[i]
		c.channels[ch.ID] = &ch
	}
	subs := make([]func(*bot.Guild), 0, len(c.joinSubs))
	for _, fn := range c.joinSubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(g)
	}
}

// EmitGuildLeave delivers a guild removal to all subscribers
func (c *Connection) EmitGuildLeave(guildID string) {
	c.mu.Lock()
	subs := make([]func(string), 0, len(c.leaveSubs))
	for _, fn := range c.leaveSubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(guildID)
	}
}

// GuildSubscribers returns the number of live join and leave subscriptions
func (c *Connection) GuildSubscribers() (joins, leaves int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.joinSubs), len(c.leaveSubs)
}

// DirectMessages returns a copy of all SendDirect calls. ChannelID holds
// the recipient's user id.
func (c *Connection) DirectMessages() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.direct...)
}

// Subscribers returns the number of live message and reaction subscriptions
func (c *Connection) Subscribers() (messages, reactions int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messageSubs), len(c.reactionSubs)
}

// SentMessages returns a copy of all SendMessage calls
func (c *Connection) SentMessages() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Edits returns a copy of all EditMessage calls
func (c *Connection) Edits() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.edits...)
}

// Deleted returns the ids passed to DeleteMessage
func (c *Connection) Deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}

// Reactions returns a copy of all AddReaction calls
func (c *Connection) Reactions() []ReactionCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ReactionCall(nil), c.reactions...)
}

// Responses returns a copy of all command responses
func (c *Connection) Responses() []Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Response(nil), c.responses...)
}

// Cleared returns how many responses were cleared
func (c *Connection) Cleared() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleared
}

// Commands returns the last registered command set
func (c *Connection) Commands() []bot.CommandSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bot.CommandSpec(nil), c.commands...)
}

// WaitForReady implements bot.Connection
func (c *Connection) WaitForReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CurrentUser implements bot.Connection
func (c *Connection) CurrentUser() *bot.User {
	return c.me
}

// OnMessage implements bot.Connection
func (c *Connection) OnMessage(handler func(bot.MessageEvent, *bot.Message)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.messageSubs[id] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.messageSubs, id)
	}
}

// OnReaction implements bot.Connection
func (c *Connection) OnReaction(handler func(bot.ReactionEvent, bot.ReactionRef)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.reactionSubs[id] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.reactionSubs, id)
	}
}

// SendMessage implements bot.Connection
func (c *Connection) SendMessage(channelID string, content bot.Content) (*bot.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.nextID++
	m := &bot.Message{
		ID:        fmt.Sprintf("m%d", c.nextID),
		ChannelID: channelID,
		Author:    c.me,
		Content:   content.Text,
		Embed:     content.Embed,
	}
	if ch, ok := c.channels[channelID]; ok {
		m.GuildID = ch.GuildID
	}
	c.messages[m.ID] = m
	c.sent = append(c.sent, Sent{ChannelID: channelID, MessageID: m.ID, Content: content})
	cp := *m
	return &cp, nil
}

// EditMessage implements bot.Connection
func (c *Connection) EditMessage(channelID, messageID string, content bot.Content) (*bot.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	m, ok := c.messages[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	m.Content = content.Text
	m.Embed = content.Embed
	c.edits = append(c.edits, Sent{ChannelID: channelID, MessageID: messageID, Content: content})
	cp := *m
	return &cp, nil
}

// DeleteMessage implements bot.Connection
func (c *Connection) DeleteMessage(channelID, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.messages[messageID]; !ok {
		return ErrNotFound
	}
	delete(c.messages, messageID)
	c.deleted = append(c.deleted, messageID)
	return nil
}

// AddReaction implements bot.Connection. The reaction is recorded on the
// stored message as placed by the bot; unknown messages fail.
func (c *Connection) AddReaction(channelID, messageID, emoji string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[messageID]++
	if c.reactionErr != nil {
		return c.reactionErr
	}
	m, ok := c.messages[messageID]
	if !ok {
		return ErrNotFound
	}
	m.Reactions = append(m.Reactions, bot.Reaction{Emoji: emoji, Count: 1, Me: true})
	c.reactions = append(c.reactions, ReactionCall{ChannelID: channelID, MessageID: messageID, Emoji: emoji})
	return nil
}

// ReactionAttempts returns how many AddReaction calls targeted messageID
func (c *Connection) ReactionAttempts(messageID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[messageID]
}

// FetchChannel implements bot.Connection
func (c *Connection) FetchChannel(channelID string) (*bot.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[channelID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

// FetchMessage implements bot.Connection
func (c *Connection) FetchMessage(channelID, messageID string) (*bot.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.messages[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	cp.Reactions = append([]bot.Reaction(nil), m.Reactions...)
	return &cp, nil
}

// FetchUser implements bot.Connection
func (c *Connection) FetchUser(userID string) (*bot.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// RegisterCommands records the command set
func (c *Connection) RegisterCommands(specs []bot.CommandSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append([]bot.CommandSpec(nil), specs...)
	return nil
}

// OnCommand subscribes to EmitCommand
func (c *Connection) OnCommand(handler func(*bot.CommandInvocation)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.commandSubs[id] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.commandSubs, id)
	}
}

// Defer records a deferred response
func (c *Connection) Defer(inv *bot.CommandInvocation, ephemeral bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, Response{Command: inv.Name, Ephemeral: ephemeral, Deferred: true})
	return nil
}

// Respond records a direct response
func (c *Connection) Respond(inv *bot.CommandInvocation, content bot.Content, ephemeral bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, Response{Command: inv.Name, Content: content, Ephemeral: ephemeral})
	return nil
}

// ClearResponse counts cleared responses
func (c *Connection) ClearResponse(inv *bot.CommandInvocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared++
	return nil
}

// OnGuildJoin subscribes to EmitGuildJoin
func (c *Connection) OnGuildJoin(handler func(*bot.Guild)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.joinSubs[id] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.joinSubs, id)
	}
}

// OnGuildLeave subscribes to EmitGuildLeave
func (c *Connection) OnGuildLeave(handler func(string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.leaveSubs[id] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.leaveSubs, id)
	}
}

// CanSend reports the value set with SetWritable. Unknown channels fail.
func (c *Connection) CanSend(channelID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.channels[channelID]; !ok {
		return false, ErrNotFound
	}
	return c.writable[channelID], nil
}

// SendDirect records a direct message
func (c *Connection) SendDirect(userID string, content bot.Content) (*bot.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.nextID++
	m := &bot.Message{
		ID:        fmt.Sprintf("m%d", c.nextID),
		ChannelID: "dm-" + userID,
		Author:    c.me,
		Content:   content.Text,
		Embed:     content.Embed,
	}
	c.direct = append(c.direct, Sent{ChannelID: userID, MessageID: m.ID, Content: content})
	return m, nil
}

var _ bot.GuildConnection = (*Connection)(nil)
