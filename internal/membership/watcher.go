// Package membership reacts to the bot joining and leaving guilds.
//
// A guild joined after the ready event gets a welcome message in its first
// text channel the bot may post in, or in a direct message to the owner
// when there is none. Leaving a guild drops its cached settings.
package membership

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/dispatch"
	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/sirupsen/logrus"
)

// WelcomeText is sent to newly joined guilds
const WelcomeText = `Thanks for adding **shelfbot**!

**|** Use ` + "`/help`" + ` to see what I can do
**|** Use ` + "`/settings language`" + ` to change the bot language
**|** Use ` + "`/settings show`" + ` to view this server's settings

Use ` + "`/debug`" + ` if something looks wrong.`

// ErrNoRecipient is returned when a guild has no writable channel and no owner
var ErrNoRecipient = errors.New("no channel or owner to welcome")

// Invalidator drops cached state for a guild
type Invalidator interface {
	Invalidate(guildID string)
}

// Watcher greets joined guilds and forgets left ones
type Watcher struct {
	conn     bot.GuildConnection
	cache    Invalidator
	reporter dispatch.ErrorReporter
	log      *logrus.Entry

	life     dispatch.Lifecycle
	inflight sync.WaitGroup
	greeted  atomic.Uint64
}

// NewWatcher creates a stopped watcher. cache and reporter may be nil.
func NewWatcher(conn bot.GuildConnection, cache Invalidator, reporter dispatch.ErrorReporter) *Watcher {
	return &Watcher{
		conn:     conn,
		cache:    cache,
		reporter: reporter,
		log:      logger.ForComponent("membership"),
	}
}

// Start waits for the connection and subscribes to guild joins and leaves
func (w *Watcher) Start(ctx context.Context) error {
	err := w.life.Start(ctx, func(ctx context.Context) error {
		if err := w.conn.WaitForReady(ctx); err != nil {
			return fmt.Errorf("failed to wait for connection: %w", err)
		}
		return nil
	}, func() func() {
		removeJoin := w.conn.OnGuildJoin(w.onJoin)
		removeLeave := w.conn.OnGuildLeave(w.onLeave)
		return func() {
			removeJoin()
			removeLeave()
		}
	})
	if err != nil {
		return err
	}
	w.log.Info("membership-watcher-started")
	return nil
}

// Stop unsubscribes. Welcome messages already being sent complete.
func (w *Watcher) Stop() error {
	return w.life.Stop()
}

// Wait blocks until in-flight welcome messages finish
func (w *Watcher) Wait() {
	w.inflight.Wait()
}

// Greeted returns how many guilds were welcomed
func (w *Watcher) Greeted() uint64 {
	return w.greeted.Load()
}

func (w *Watcher) onJoin(g *bot.Guild) {
	if g == nil {
		return
	}
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		w.welcome(context.Background(), g)
	}()
}

func (w *Watcher) onLeave(guildID string) {
	if w.cache != nil {
		w.cache.Invalidate(guildID)
	}
	w.log.WithField("guild", guildID).Debug("guild-left")
}

// welcome sends the greeting and reports failures without notifying anyone
func (w *Watcher) welcome(ctx context.Context, g *bot.Guild) {
	dc := &dispatch.Context{Conn: w.conn, GuildID: g.ID}
	if len(g.Channels) > 0 {
		dc.ChannelID = g.Channels[0].ID
	}
	if g.OwnerID != "" {
		dc.User = &bot.User{ID: g.OwnerID}
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.WithFields(logrus.Fields{
				"guild": g.ID,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("welcome-panic-recovered")
			w.report(ctx, fmt.Errorf("welcome panic: %v", r), dc)
		}
	}()

	if err := w.Greet(g); err != nil {
		w.report(ctx, err, dc)
		return
	}
	w.greeted.Add(1)
}

// Greet posts WelcomeText to the first text channel of g the bot can write
// in, falling back to a direct message to the owner.
func (w *Watcher) Greet(g *bot.Guild) error {
	content := bot.Content{Text: WelcomeText}
	for _, ch := range g.Channels {
		ok, err := w.conn.CanSend(ch.ID)
		if err != nil {
			w.log.WithFields(logrus.Fields{
				"guild":   g.ID,
				"channel": ch.ID,
				"error":   err,
			}).Debug("welcome-permission-check-failed")
			continue
		}
		if !ok {
			continue
		}
		if _, err := w.conn.SendMessage(ch.ID, content); err != nil {
			return fmt.Errorf("failed to welcome guild %s in %s: %w", g.ID, ch.ID, err)
		}
		w.log.WithFields(logrus.Fields{
			"guild":   g.ID,
			"channel": ch.ID,
		}).Info("guild-welcomed")
		return nil
	}

	if g.OwnerID == "" {
		return fmt.Errorf("failed to welcome guild %s: %w", g.ID, ErrNoRecipient)
	}
	if _, err := w.conn.SendDirect(g.OwnerID, content); err != nil {
		return fmt.Errorf("failed to welcome owner of guild %s: %w", g.ID, err)
	}
	w.log.WithFields(logrus.Fields{
		"guild": g.ID,
		"owner": g.OwnerID,
	}).Info("guild-owner-welcomed")
	return nil
}

func (w *Watcher) report(ctx context.Context, err error, dc *dispatch.Context) {
	if w.reporter == nil {
		w.log.WithField("error", err).Error("welcome-failed")
		return
	}
	w.reporter.Report(ctx, err, dc, false)
}
