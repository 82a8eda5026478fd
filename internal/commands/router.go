// Package commands routes slash command invocations to interactive views.
package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"sync"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/dispatch"
	"github.com/keepmind9/shelfbot/internal/interactive"
	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/keepmind9/shelfbot/internal/ratelimit"
	"github.com/sirupsen/logrus"
)

// Platform is a connection that also supports slash commands
type Platform interface {
	bot.Connection
	RegisterCommands(specs []bot.CommandSpec) error
	OnCommand(handler func(*bot.CommandInvocation)) func()
	Defer(inv *bot.CommandInvocation, ephemeral bool) error
	Respond(inv *bot.CommandInvocation, content bot.Content, ephemeral bool) error
	ClearResponse(inv *bot.CommandInvocation) error
}

// Command binds a slash command to the view it publishes, or to a plain
// ephemeral reply when Reply is set
type Command struct {
	Spec bot.CommandSpec
	// Guarded commands pass through admission control first
	Guarded bool
	View    func(inv *bot.CommandInvocation) (interactive.View, error)
	Reply   func(ctx context.Context, inv *bot.CommandInvocation) (string, error)
}

// Router answers slash commands by publishing interactive views
type Router struct {
	platform  Platform
	admission *ratelimit.Admission
	manager   *interactive.Manager
	guilds    dispatch.GuildResolver
	reporter  dispatch.ErrorReporter
	commands  map[string]Command
	order     []string
	log       *logrus.Entry

	life     dispatch.Lifecycle
	inflight sync.WaitGroup
}

// NewRouter creates a router. admission, guilds and reporter may be nil.
func NewRouter(platform Platform, manager *interactive.Manager, admission *ratelimit.Admission,
	guilds dispatch.GuildResolver, reporter dispatch.ErrorReporter, commands ...Command) *Router {
	r := &Router{
		platform:  platform,
		admission: admission,
		manager:   manager,
		guilds:    guilds,
		reporter:  reporter,
		commands:  make(map[string]Command, len(commands)),
		log:       logger.ForComponent("commands"),
	}
	for _, c := range commands {
		if _, dup := r.commands[c.Spec.Name]; dup {
			continue
		}
		r.commands[c.Spec.Name] = c
		r.order = append(r.order, c.Spec.Name)
	}
	return r
}

// Start registers the command set and subscribes to invocations. Stop
// cancels a Start that is still waiting for the connection.
func (r *Router) Start(ctx context.Context) error {
	specs := make([]bot.CommandSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.commands[name].Spec)
	}

	err := r.life.Start(ctx, func(ctx context.Context) error {
		if err := r.platform.WaitForReady(ctx); err != nil {
			return fmt.Errorf("failed to wait for connection: %w", err)
		}
		return r.platform.RegisterCommands(specs)
	}, func() func() {
		return r.platform.OnCommand(func(inv *bot.CommandInvocation) {
			r.inflight.Add(1)
			go func() {
				defer r.inflight.Done()
				r.handle(context.Background(), inv)
			}()
		})
	})
	if err != nil {
		return err
	}
	r.log.WithField("commands", len(specs)).Info("command-router-started")
	return nil
}

// Stop unsubscribes from invocations
func (r *Router) Stop() error {
	return r.life.Stop()
}

// Wait blocks until all in-flight invocations finish
func (r *Router) Wait() {
	r.inflight.Wait()
}

func (r *Router) handle(ctx context.Context, inv *bot.CommandInvocation) {
	dc := &dispatch.Context{
		Conn:      r.platform,
		ChannelID: inv.ChannelID,
		GuildID:   inv.GuildID,
		User:      inv.User,
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.WithFields(logrus.Fields{
				"command": inv.Name,
				"panic":   p,
				"stack":   string(debug.Stack()),
			}).Error("command-panic-recovered")
			r.report(ctx, fmt.Errorf("panic in /%s: %v", inv.Name, p), dc)
		}
	}()

	cmd, ok := r.commands[inv.Name]
	if !ok {
		r.log.WithField("command", inv.Name).Debug("unknown-command")
		return
	}

	if cmd.Guarded && r.admission != nil && inv.User != nil {
		verdict := r.admission.Admit(ctx, inv.User.ID, inv.GuildID)
		if !verdict.Allowed {
			if err := r.platform.Respond(inv, bot.Content{Text: RetryMessage(verdict)}, true); err != nil {
				r.log.WithField("error", err).Debug("failed-to-send-rate-limit-notice")
			}
			return
		}
	}

	run := r.run
	if cmd.Reply != nil {
		run = r.reply
	}
	if err := run(ctx, cmd, inv, dc); err != nil {
		r.report(ctx, err, dc)
	}
}

func (r *Router) reply(ctx context.Context, cmd Command, inv *bot.CommandInvocation, _ *dispatch.Context) error {
	text, err := cmd.Reply(ctx, inv)
	if err != nil {
		return fmt.Errorf("failed to run /%s: %w", inv.Name, err)
	}
	return r.platform.Respond(inv, bot.Content{Text: text}, true)
}

func (r *Router) run(ctx context.Context, cmd Command, inv *bot.CommandInvocation, dc *dispatch.Context) error {
	if err := r.platform.Defer(inv, true); err != nil {
		return err
	}
	if r.guilds != nil {
		if settings, err := r.guilds.ForChannel(ctx, inv.GuildID, inv.ChannelID); err == nil {
			dc.Guild = settings
		}
	}

	view, err := cmd.View(inv)
	if err != nil {
		return fmt.Errorf("failed to build /%s: %w", inv.Name, err)
	}
	if _, err := r.manager.Publish(ctx, view, dc); err != nil && !errors.Is(err, interactive.ErrQueueClosed) {
		return fmt.Errorf("failed to publish /%s: %w", inv.Name, err)
	}
	if err := r.platform.ClearResponse(inv); err != nil {
		r.log.WithField("error", err).Debug("failed-to-clear-response")
	}
	return nil
}

func (r *Router) report(ctx context.Context, err error, dc *dispatch.Context) {
	if r.reporter == nil {
		r.log.WithField("error", err).Error("command-failed")
		return
	}
	r.reporter.Report(ctx, err, dc, true)
}

// RetryMessage tells a declined invoker how long to wait
func RetryMessage(v ratelimit.Verdict) string {
	seconds := int(math.Ceil(v.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	unit := "seconds"
	if seconds == 1 {
		unit = "second"
	}
	who := "You are"
	if v.Scope == ratelimit.ScopeGroup {
		who = "This server is"
	}
	return fmt.Sprintf("%s sending commands too quickly. Please wait %d %s before trying again.",
		who, seconds, unit)
}

