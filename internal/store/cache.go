package store

import (
	"context"
	"sync"
	"time"

	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/keepmind9/shelfbot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// Cache keeps guild settings in memory in front of a Store.
// Direct messages have no guild and resolve to unpersisted defaults.
type Cache struct {
	store   Store
	timeout time.Duration
	guilds  sync.Map // guild id -> *GuildSettings
}

// NewCache wraps store
func NewCache(store Store) *Cache {
	return &Cache{store: store, timeout: constants.DefaultStoreTimeout}
}

// ForChannel resolves the settings that apply to a channel
func (c *Cache) ForChannel(ctx context.Context, guildID, channelID string) (*GuildSettings, error) {
	if guildID == "" {
		return DefaultSettings(""), nil
	}
	if v, ok := c.guilds.Load(guildID); ok {
		return copySettings(v.(*GuildSettings)), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	settings, err := c.store.GetOrCreateGuild(ctx, guildID)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"guild":   guildID,
			"channel": channelID,
			"error":   err,
		}).Warn("failed-to-load-guild-settings")
		return nil, err
	}

	v, _ := c.guilds.LoadOrStore(guildID, settings)
	return copySettings(v.(*GuildSettings)), nil
}

// Update persists settings and refreshes the cached copy
func (c *Cache) Update(ctx context.Context, settings *GuildSettings) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.SaveGuild(ctx, settings); err != nil {
		return err
	}
	c.guilds.Store(settings.GuildID, copySettings(settings))
	return nil
}

// Invalidate drops the cached copy for a guild, e.g. once the bot has left it
func (c *Cache) Invalidate(guildID string) {
	if _, ok := c.guilds.LoadAndDelete(guildID); ok {
		logger.WithField("guild", guildID).Debug("guild-settings-evicted")
	}
}

func copySettings(s *GuildSettings) *GuildSettings {
	cp := *s
	return &cp
}
