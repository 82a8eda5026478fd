package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/commands"
	"github.com/keepmind9/shelfbot/internal/dispatch"
	"github.com/keepmind9/shelfbot/internal/health"
	"github.com/keepmind9/shelfbot/internal/interactive"
	"github.com/keepmind9/shelfbot/internal/interactive/triggers"
	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/keepmind9/shelfbot/internal/membership"
	"github.com/keepmind9/shelfbot/internal/ratelimit"
	"github.com/keepmind9/shelfbot/internal/stats"
	"github.com/keepmind9/shelfbot/internal/store"
	"github.com/keepmind9/shelfbot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// Platform is the gateway connection the engine drives
type Platform interface {
	commands.Platform
	bot.GuildConnection
	Open() error
	Close() error
	Status() bot.ConnectionStatus
	RunPresence(ctx context.Context, games []string, interval time.Duration)
}

// Engine owns every long-lived component and their startup order
type Engine struct {
	config   *Config
	version  string
	platform Platform

	store     store.Store
	guilds    *store.Cache
	limiter   ratelimit.Backend
	admission *ratelimit.Admission
	manager   *interactive.Manager
	messages  *dispatch.MessageDispatcher
	reactions *dispatch.ReactionDispatcher
	router    *commands.Router
	members   *membership.Watcher
	health    *health.Server

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Int64
}

// NewEngine builds the engine and opens its storage and rate-limit backends.
// Nothing touches the gateway until Start.
func NewEngine(config *Config, platform Platform, version string) (*Engine, error) {
	st, err := store.Open(store.Config{
		Driver: config.Storage.Driver,
		Path:   config.Storage.Path,
		DSN:    config.Storage.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	limiter, err := newLimiter(config.RateLimit)
	if err != nil {
		st.Close()
		return nil, err
	}

	table, err := interactive.NewStatelessTable(triggers.Descriptors())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to build trigger table: %w", err)
	}

	e := &Engine{
		config:   config,
		version:  version,
		platform: platform,
		store:    st,
		guilds:   store.NewCache(st),
		limiter:  limiter,
	}
	e.admission = ratelimit.NewAdmission(limiter, ratelimit.AdmissionConfig{
		UserLimit:  config.RateLimit.UserLimit,
		GroupLimit: config.RateLimit.GroupLimit,
		Window:     config.RateLimit.WindowDuration(),
	})
	e.manager = interactive.NewManager(platform, table, interactive.Options{
		TTL:       config.Interactive.TTLDuration(),
		QueueSize: config.Interactive.QueueSize,
	})

	reporter := dispatch.NewLogReporter(platform, config.Discord.ErrorChannelID)
	e.messages = dispatch.NewMessageDispatcher(platform, e.guilds, reporter, e.manager)
	e.reactions = dispatch.NewReactionDispatcher(platform, e.guilds, reporter, e.manager)
	e.router = commands.NewRouter(platform, e.manager, e.admission, e.guilds, reporter,
		commands.Help(version),
		commands.Debug(e.Snapshot),
		commands.Settings(e.guilds),
	)
	e.members = membership.NewWatcher(platform, e.guilds, reporter)
	if config.Health.Enabled {
		e.health = health.NewServer(config.Health.Addr, e.Snapshot)
	}
	return e, nil
}

func newLimiter(cfg RateLimitConfig) (ratelimit.Backend, error) {
	if cfg.Backend != BackendRedis {
		return ratelimit.NewMemoryLimiter(), nil
	}
	limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis limiter: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultStoreTimeout)
	defer cancel()
	if err := limiter.Ping(ctx); err != nil {
		limiter.Close()
		return nil, err
	}
	return limiter, nil
}

// Start connects to the gateway and starts every component once it is ready
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return dispatch.ErrAlreadyStarted
	}
	logger.Info("starting-shelfbot-engine")

	if err := e.platform.Open(); err != nil {
		return err
	}

	readyCtx, cancel := context.WithTimeout(ctx, e.config.Discord.ReadyTimeoutDuration())
	defer cancel()
	if err := e.platform.WaitForReady(readyCtx); err != nil {
		e.platform.Close()
		return fmt.Errorf("failed to wait for ready event: %w", err)
	}

	if err := e.messages.Start(readyCtx); err != nil {
		return e.abort(err)
	}
	if err := e.reactions.Start(readyCtx); err != nil {
		return e.abort(err)
	}
	if err := e.router.Start(readyCtx); err != nil {
		return e.abort(err)
	}
	if err := e.members.Start(readyCtx); err != nil {
		return e.abort(err)
	}
	if e.health != nil {
		if err := e.health.Start(); err != nil {
			return e.abort(err)
		}
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	e.cancel = bgCancel
	e.started.Store(time.Now().UnixNano())

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		ratelimit.RunSweeper(bgCtx, e.limiter, e.config.RateLimit.SweepIntervalDuration())
	}()
	go func() {
		defer e.wg.Done()
		e.platform.RunPresence(bgCtx, e.config.Discord.Status.Games, e.config.Discord.Status.UpdateIntervalDuration())
	}()

	logger.WithFields(logrus.Fields{
		"version":    e.version,
		"rate_limit": e.config.RateLimit.Backend,
		"storage":    e.config.Storage.Driver,
		"health":     e.config.Health.Enabled,
	}).Info("shelfbot-engine-started")
	return nil
}

// abort undoes a partial Start
func (e *Engine) abort(cause error) error {
	e.members.Stop()
	e.router.Stop()
	e.reactions.Stop()
	e.messages.Stop()
	e.platform.Close()
	return cause
}

// Run starts the engine and blocks until ctx is cancelled
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return e.Stop()
}

// Stop gracefully stops the engine. In-flight events finish first.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil {
		return dispatch.ErrNotStarted
	}
	logger.Info("stopping-shelfbot-engine")

	e.cancel()
	e.cancel = nil
	e.wg.Wait()

	e.members.Stop()
	e.router.Stop()
	e.reactions.Stop()
	e.messages.Stop()
	e.members.Wait()
	e.router.Wait()
	e.reactions.Wait()
	e.messages.Wait()
	e.manager.Close()

	var errs []error
	if e.health != nil {
		ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		errs = append(errs, e.health.Shutdown(ctx))
		cancel()
	}
	errs = append(errs, e.platform.Close())
	errs = append(errs, e.store.Close())
	if closer, ok := e.limiter.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}

	logger.Info("engine-stopped")
	return errors.Join(errs...)
}

// Snapshot reports the counters served by /debug and /metrics
func (e *Engine) Snapshot() stats.Snapshot {
	status := e.platform.Status()
	snap := stats.Snapshot{
		Connected:   status.Connected,
		Ready:       status.Ready,
		Guilds:      status.Guilds,
		LatencyMS:   status.Latency.Milliseconds(),
		Messages:    e.messages.Stats(),
		Reactions:   e.reactions.Stats(),
		Interactive: e.manager.Stats(),
		Runtime:     stats.ReadRuntime(),
	}
	if started := e.started.Load(); started != 0 {
		snap.Uptime = stats.FormatUptime(time.Unix(0, started))
	}
	return snap
}

// Guilds exposes the settings cache
func (e *Engine) Guilds() *store.Cache {
	return e.guilds
}
