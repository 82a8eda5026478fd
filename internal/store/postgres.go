package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresStore implements Store on PostgreSQL through gorm
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects to dsn and migrates the guild settings table
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := gdb.AutoMigrate(&GuildSettings{}); err != nil {
		return nil, fmt.Errorf("failed to migrate guild settings: %w", err)
	}
	return &PostgresStore{db: gdb}, nil
}

// GetOrCreateGuild implements Store
func (p *PostgresStore) GetOrCreateGuild(ctx context.Context, guildID string) (*GuildSettings, error) {
	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(DefaultSettings(guildID)).Error
	if err != nil {
		return nil, fmt.Errorf("failed to insert guild settings: %w", err)
	}

	var settings GuildSettings
	if err := p.db.WithContext(ctx).First(&settings, "guild_id = ?", guildID).Error; err != nil {
		return nil, fmt.Errorf("failed to query guild settings: %w", err)
	}
	return &settings, nil
}

// SaveGuild implements Store
func (p *PostgresStore) SaveGuild(ctx context.Context, settings *GuildSettings) error {
	if err := p.db.WithContext(ctx).Save(settings).Error; err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
