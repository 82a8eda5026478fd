package dispatch

import (
	"context"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/logger"
)

// MessageDispatcher routes message events to MessageHandlers
type MessageDispatcher struct {
	base
	handlers []MessageHandler
}

// NewMessageDispatcher creates a stopped dispatcher. Handlers are tried in
// the given order.
func NewMessageDispatcher(conn bot.Connection, guilds GuildResolver, reporter ErrorReporter, handlers ...MessageHandler) *MessageDispatcher {
	return &MessageDispatcher{
		base: base{
			conn:     conn,
			guilds:   guilds,
			reporter: reporter,
			log:      logger.ForComponent("message-dispatcher"),
		},
		handlers: handlers,
	}
}

// Start waits for the connection to be ready, initializes the handlers and
// subscribes to message events.
func (d *MessageDispatcher) Start(ctx context.Context) error {
	inits := make([]func(context.Context) error, len(d.handlers))
	for i, h := range d.handlers {
		inits[i] = h.Initialize
	}
	return d.start(ctx, inits, func() func() {
		return d.conn.OnMessage(d.onMessage)
	})
}

// Stop unsubscribes. Events already being handled run to completion.
func (d *MessageDispatcher) Stop() error {
	return d.stop()
}

// qualifies drops messages from bots and webhooks. Deletes carry no
// reliable author and always pass.
func qualifies(event bot.MessageEvent, m *bot.Message) bool {
	if m == nil {
		return false
	}
	if event == bot.MessageDelete {
		return true
	}
	return m.Author != nil && !m.Author.Bot && !m.Webhook
}

func (d *MessageDispatcher) onMessage(event bot.MessageEvent, m *bot.Message) {
	if !qualifies(event, m) {
		return
	}
	d.inflight.Add(1)
	go d.handle(event, m)
}

func (d *MessageDispatcher) handle(event bot.MessageEvent, m *bot.Message) {
	mc := &MessageContext{
		Context: Context{
			Conn:      d.conn,
			Message:   m,
			ChannelID: m.ChannelID,
			GuildID:   m.GuildID,
			User:      m.Author,
		},
		Event: event,
	}

	d.run(&mc.Context, true, func(ctx context.Context) (bool, error) {
		mc.Guild = resolveGuild(ctx, d.guilds, m.GuildID, m.ChannelID)
		for _, h := range d.handlers {
			handled, err := h.TryHandleMessage(ctx, mc)
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
