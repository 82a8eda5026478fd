// Package store persists per-guild settings.
package store

import (
	"context"
	"fmt"
	"time"
)

// DefaultLanguage is the language of guilds that never changed it
const DefaultLanguage = "en"

// Language is a language a guild can select
type Language struct {
	Code string
	Name string
}

// Languages lists the selectable languages
var Languages = []Language{
	{Code: "en", Name: "English"},
	{Code: "id", Name: "Indonesian"},
	{Code: "ko", Name: "Korean"},
}

// LookupLanguage finds a selectable language by code
func LookupLanguage(code string) (Language, bool) {
	for _, l := range Languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// GuildSettings holds the settings of one guild
type GuildSettings struct {
	GuildID             string `gorm:"primaryKey;column:guild_id"`
	Language            string `gorm:"not null;default:en"`
	SearchQualityFilter bool   `gorm:"not null;default:true"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName pins the table name across drivers
func (GuildSettings) TableName() string {
	return "guild_settings"
}

// DefaultSettings returns the settings a new guild starts with
func DefaultSettings(guildID string) *GuildSettings {
	return &GuildSettings{
		GuildID:             guildID,
		Language:            DefaultLanguage,
		SearchQualityFilter: true,
	}
}

// Store persists guild settings
type Store interface {
	// GetOrCreateGuild returns the stored settings, inserting defaults first
	// when the guild is unknown.
	GetOrCreateGuild(ctx context.Context, guildID string) (*GuildSettings, error)
	SaveGuild(ctx context.Context, settings *GuildSettings) error
	Close() error
}

// Config selects and configures a Store implementation
type Config struct {
	Driver string // "sqlite" or "postgres"
	Path   string // sqlite database file
	DSN    string // postgres connection string
}

// Open creates the Store described by cfg
func Open(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "postgres":
		return NewPostgresStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
