package dispatch

import (
	"context"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/sirupsen/logrus"
)

// ReactionDispatcher routes reaction events to ReactionHandlers
type ReactionDispatcher struct {
	base
	handlers []ReactionHandler
}

// NewReactionDispatcher creates a stopped dispatcher. Handlers are tried in
// the given order.
func NewReactionDispatcher(conn bot.Connection, guilds GuildResolver, reporter ErrorReporter, handlers ...ReactionHandler) *ReactionDispatcher {
	return &ReactionDispatcher{
		base: base{
			conn:     conn,
			guilds:   guilds,
			reporter: reporter,
			log:      logger.ForComponent("reaction-dispatcher"),
		},
		handlers: handlers,
	}
}

// Start waits for the connection to be ready, initializes the handlers and
// subscribes to reaction events.
func (d *ReactionDispatcher) Start(ctx context.Context) error {
	inits := make([]func(context.Context) error, len(d.handlers))
	for i, h := range d.handlers {
		inits[i] = h.Initialize
	}
	return d.start(ctx, inits, func() func() {
		return d.conn.OnReaction(d.onReaction)
	})
}

// Stop unsubscribes. Events already being handled run to completion.
func (d *ReactionDispatcher) Stop() error {
	return d.stop()
}

func (d *ReactionDispatcher) onReaction(event bot.ReactionEvent, ref bot.ReactionRef) {
	me := d.conn.CurrentUser()
	if me == nil || ref.UserID == me.ID {
		return
	}
	d.inflight.Add(1)
	go d.handle(event, ref)
}

// resolve fetches what the event only references. A nil result drops the event.
func (d *ReactionDispatcher) resolve(ref bot.ReactionRef) (*bot.Message, *bot.User) {
	fields := logrus.Fields{
		"channel":    ref.ChannelID,
		"message_id": ref.MessageID,
		"user":       ref.UserID,
	}
	m, err := d.conn.FetchMessage(ref.ChannelID, ref.MessageID)
	if err != nil {
		d.log.WithFields(fields).WithField("error", err).Debug("reaction-message-unavailable")
		return nil, nil
	}
	u, err := d.conn.FetchUser(ref.UserID)
	if err != nil {
		d.log.WithFields(fields).WithField("error", err).Debug("reaction-user-unavailable")
		return nil, nil
	}
	if u.Bot {
		return nil, nil
	}
	return m, u
}

// guildOf prefers the guild carried by the event, then the message, then a
// channel lookup. Direct messages resolve to "".
func (d *ReactionDispatcher) guildOf(ref bot.ReactionRef, m *bot.Message) string {
	if ref.GuildID != "" {
		return ref.GuildID
	}
	if m.GuildID != "" {
		return m.GuildID
	}
	ch, err := d.conn.FetchChannel(ref.ChannelID)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"channel": ref.ChannelID,
			"error":   err,
		}).Debug("reaction-channel-unavailable")
		return ""
	}
	return ch.GuildID
}

func (d *ReactionDispatcher) handle(event bot.ReactionEvent, ref bot.ReactionRef) {
	m, u := d.resolve(ref)
	if m == nil {
		d.inflight.Done()
		return
	}

	guildID := d.guildOf(ref, m)
	rc := &ReactionContext{
		Context: Context{
			Conn:      d.conn,
			Message:   m,
			ChannelID: ref.ChannelID,
			GuildID:   guildID,
			User:      u,
		},
		Reaction: ref,
		Event:    event,
	}

	d.run(&rc.Context, false, func(ctx context.Context) (bool, error) {
		rc.Guild = resolveGuild(ctx, d.guilds, guildID, ref.ChannelID)
		for _, h := range d.handlers {
			handled, err := h.TryHandleReaction(ctx, rc)
			if err != nil {
				return false, err
			}
			if handled {
				return true, nil
			}
		}
		return false, nil
	})
}
