package interactive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/dispatch"
	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/keepmind9/shelfbot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// Options configures a Manager
type Options struct {
	TTL       time.Duration
	QueueSize int
}

// Stats is a snapshot of the manager's live state
type Stats struct {
	Messages        int64 `json:"interactive_messages"`
	Triggers        int64 `json:"interactive_triggers"`
	PendingReaction int   `json:"pending_reaction_jobs"`
}

// Manager publishes interactive messages and runs their triggers.
// It is both a dispatch.MessageHandler and a dispatch.ReactionHandler.
type Manager struct {
	conn      bot.Connection
	registry  *Registry
	stateless *StatelessTable
	queue     *reactionQueue
	ttl       time.Duration
	log       *logrus.Entry
}

// NewManager creates a manager and starts its reaction queue worker
func NewManager(conn bot.Connection, stateless *StatelessTable, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = constants.DefaultInteractiveTTL
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = constants.ReactionQueueBufferSize
	}
	if stateless == nil {
		stateless = &StatelessTable{byEmoji: map[string]Descriptor{}}
	}
	return &Manager{
		conn:      conn,
		registry:  NewRegistry(),
		stateless: stateless,
		queue:     newReactionQueue(conn, opts.QueueSize),
		ttl:       opts.TTL,
		log:       logger.ForComponent("interactive"),
	}
}

// Initialize implements dispatch.MessageHandler and dispatch.ReactionHandler
func (m *Manager) Initialize(context.Context) error {
	m.log.WithField("stateless_triggers", m.stateless.Emojis()).Debug("interactive-manager-initialized")
	return nil
}

// Registry exposes the live interactive messages
func (m *Manager) Registry() *Registry {
	return m.registry
}

// TryHandleMessage forgets interactive messages when they are deleted
func (m *Manager) TryHandleMessage(_ context.Context, mc *dispatch.MessageContext) (bool, error) {
	if mc.Event != bot.MessageDelete || mc.Message == nil {
		return false, nil
	}
	if _, ok := m.registry.Remove(mc.Message.ID); !ok {
		return false, nil
	}
	m.log.WithField("message_id", mc.Message.ID).Debug("interactive-message-deleted")
	return true, nil
}

// TryHandleReaction runs the trigger bound to the reacted emoji
func (m *Manager) TryHandleReaction(ctx context.Context, rc *dispatch.ReactionContext) (bool, error) {
	emoji := rc.Reaction.Emoji

	if state, ok := m.registry.Get(rc.Reaction.MessageID); ok {
		trigger, ok := state.Trigger(emoji)
		if !ok {
			return false, nil
		}
		return m.run(ctx, trigger, state, rc)
	}

	if !m.qualifiesStateless(rc, emoji) {
		return false, nil
	}
	trigger, ok := m.stateless.Resolve(emoji)
	if !ok {
		return false, nil
	}
	return m.run(ctx, trigger, nil, rc)
}

// qualifiesStateless requires a bot-authored message that the bot itself
// reacted to with emoji, so arbitrary messages cannot be acted on.
func (m *Manager) qualifiesStateless(rc *dispatch.ReactionContext, emoji string) bool {
	me := m.conn.CurrentUser()
	if me == nil {
		return false
	}
	return rc.Message.AuthoredBy(me.ID) && rc.Message.HasOwnReaction(emoji)
}

func (m *Manager) run(ctx context.Context, trigger Trigger, state *State, rc *dispatch.ReactionContext) (bool, error) {
	scope := newScope(ctx, m, &rc.Context, rc)
	defer scope.Close()

	handled, err := trigger.Run(scope, state)
	if err != nil {
		return false, fmt.Errorf("trigger %s failed: %w", trigger.Emoji(), err)
	}
	m.log.WithFields(logrus.Fields{
		"message_id": rc.Reaction.MessageID,
		"emoji":      trigger.Emoji(),
		"stateless":  state == nil,
		"handled":    handled,
	}).Debug("trigger-executed")
	return handled, nil
}

type publishOptions struct {
	ttl      time.Duration
	stateful bool
}

// PublishOption tunes Publish
type PublishOption func(*publishOptions)

// WithTTL overrides how long the message stays interactive
func WithTTL(ttl time.Duration) PublishOption {
	return func(o *publishOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithStateful registers the message even when all its triggers could run
// stateless
func WithStateful() PublishOption {
	return func(o *publishOptions) { o.stateful = true }
}

// Publish renders view, sends it to the channel of dc, registers it when
// needed and queues its trigger reactions. Nothing is sent when rendering
// fails.
func (m *Manager) Publish(ctx context.Context, view View, dc *dispatch.Context, opts ...PublishOption) (*bot.Message, error) {
	if dc == nil || dc.ChannelID == "" {
		return nil, errors.New("failed to publish: no target channel")
	}
	o := publishOptions{ttl: m.ttl}
	for _, opt := range opts {
		opt(&o)
	}

	scope := newScope(ctx, m, dc, nil)
	defer scope.Close()

	content, err := view.Render(scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}

	msg, err := m.conn.SendMessage(dc.ChannelID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to send interactive message: %w", err)
	}

	triggers := view.Triggers()
	stateful := o.stateful
	for _, t := range triggers {
		if !t.CanRunStateless() {
			stateful = true
			break
		}
	}

	state := NewState(dc.ChannelID, msg.ID, view, triggers)
	if stateful {
		m.registry.Publish(state, o.ttl)
	}

	m.log.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"channel":    dc.ChannelID,
		"stateful":   stateful,
		"triggers":   len(state.triggers),
	}).Debug("interactive-message-published")

	return msg, m.EnqueueReactions(dc.ChannelID, msg.ID, state.Emojis()...)
}

// EnqueueReactions queues bot reactions for a message. They are added in
// order by a single background worker.
func (m *Manager) EnqueueReactions(channelID, messageID string, emojis ...string) error {
	if len(emojis) == 0 {
		return nil
	}
	return m.queue.enqueue(reactionJob{
		channelID: channelID,
		messageID: messageID,
		emojis:    emojis,
	})
}

// Stats returns live interactive counters
func (m *Manager) Stats() Stats {
	return Stats{
		Messages:        m.registry.Len(),
		Triggers:        m.registry.TriggerCount(),
		PendingReaction: m.queue.pending(),
	}
}

// Close stops the reaction queue. Live states expire on their own timers.
func (m *Manager) Close() {
	m.queue.close()
}
