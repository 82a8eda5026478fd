package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrAlreadyStarted is returned by Start on a running dispatcher
	ErrAlreadyStarted = errors.New("dispatcher already started")
	// ErrNotStarted is returned by Stop on a stopped dispatcher
	ErrNotStarted = errors.New("dispatcher not started")
	// ErrStartCancelled is returned by Start when Stop ran while it was waiting
	ErrStartCancelled = errors.New("start cancelled by stop")
)

// Stats counts events seen by a dispatcher
type Stats struct {
	Received uint64 `json:"received"`
	Handled  uint64 `json:"handled"`
}

// base holds the lifecycle and counters shared by both dispatchers
type base struct {
	conn     bot.Connection
	guilds   GuildResolver
	reporter ErrorReporter
	log      *logrus.Entry

	life     Lifecycle
	inflight sync.WaitGroup

	received atomic.Uint64
	handled  atomic.Uint64
}

// start waits for the connection, initializes all handlers concurrently and
// then subscribes. It fails if any handler fails to initialize.
func (b *base) start(ctx context.Context, inits []func(context.Context) error, subscribe func() func()) error {
	err := b.life.Start(ctx, func(ctx context.Context) error {
		if err := b.conn.WaitForReady(ctx); err != nil {
			return fmt.Errorf("failed to wait for connection: %w", err)
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, initFn := range inits {
			g.Go(func() error { return initFn(gctx) })
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("failed to initialize handlers: %w", err)
		}
		return nil
	}, subscribe)
	if err != nil {
		return err
	}
	b.log.WithField("handlers", len(inits)).Info("dispatcher-started")
	return nil
}

func (b *base) stop() error {
	if err := b.life.Stop(); err != nil {
		return err
	}
	b.log.Info("dispatcher-stopped")
	return nil
}

// Stats returns a snapshot of the counters
func (b *base) Stats() Stats {
	return Stats{
		Received: b.received.Load(),
		Handled:  b.handled.Load(),
	}
}

// Wait blocks until all in-flight events have finished
func (b *base) Wait() {
	b.inflight.Wait()
}

// run walks the chain for one event. received is counted exactly once,
// handled at most once. Errors and panics go to the reporter.
func (b *base) run(dc *Context, notifyUser bool, chain func(context.Context) (bool, error)) {
	defer b.inflight.Done()
	defer b.received.Add(1)

	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("dispatch-panic-recovered")
			b.report(ctx, fmt.Errorf("handler panic: %v", r), dc, notifyUser)
		}
	}()

	handled, err := chain(ctx)
	if err != nil {
		b.report(ctx, err, dc, notifyUser)
		return
	}
	if handled {
		b.handled.Add(1)
	}
}

func (b *base) report(ctx context.Context, err error, dc *Context, notifyUser bool) {
	if b.reporter == nil {
		b.log.WithField("error", err).Error("handler-error")
		return
	}
	b.reporter.Report(ctx, err, dc, notifyUser)
}
