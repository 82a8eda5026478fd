package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an embedded SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS guild_settings (
			guild_id TEXT PRIMARY KEY,
			language TEXT NOT NULL DEFAULT 'en',
			search_quality_filter INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// GetOrCreateGuild implements Store
func (s *SQLiteStore) GetOrCreateGuild(ctx context.Context, guildID string) (*GuildSettings, error) {
	now := time.Now().Unix()
	defaults := DefaultSettings(guildID)
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO guild_settings (guild_id, language, search_quality_filter, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, guildID, defaults.Language, defaults.SearchQualityFilter, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert guild settings: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, language, search_quality_filter, created_at, updated_at
		FROM guild_settings
		WHERE guild_id = ?
	`, guildID)

	var settings GuildSettings
	var createdAt, updatedAt int64
	if err := row.Scan(&settings.GuildID, &settings.Language, &settings.SearchQualityFilter, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to query guild settings: %w", err)
	}
	settings.CreatedAt = time.Unix(createdAt, 0)
	settings.UpdatedAt = time.Unix(updatedAt, 0)
	return &settings, nil
}

// SaveGuild implements Store
func (s *SQLiteStore) SaveGuild(ctx context.Context, settings *GuildSettings) error {
	now := time.Now()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO guild_settings (guild_id, language, search_quality_filter, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		settings.GuildID,
		settings.Language,
		settings.SearchQualityFilter,
		settings.CreatedAt.Unix(),
		settings.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
