package db

import "fmt"

// schema holds the DDL in dependency order. Every statement is idempotent
// so Migrate can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		company_name TEXT NOT NULL,
		company_id TEXT NOT NULL,
		cover_path TEXT NOT NULL DEFAULT '',
		release_date TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (company_name, company_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		photo_path TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS stars (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		photo_path TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS series (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		photo_path TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tags_mapping (
		id BIGSERIAL PRIMARY KEY,
		movie_id UUID NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		tag_id UUID NOT NULL REFERENCES tags(id),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (movie_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS stars_mapping (
		id BIGSERIAL PRIMARY KEY,
		movie_id UUID NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		star_id UUID NOT NULL REFERENCES stars(id),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (movie_id, star_id)
	)`,
	`CREATE TABLE IF NOT EXISTS series_mapping (
		id BIGSERIAL PRIMARY KEY,
		movie_id UUID NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		series_id UUID NOT NULL REFERENCES series(id),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (movie_id, series_id)
	)`,
	`CREATE TABLE IF NOT EXISTS ignored_movies (
		company_name TEXT NOT NULL,
		company_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (company_name, company_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_release_date ON movies (release_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_tags_mapping_tag ON tags_mapping (tag_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stars_mapping_star ON stars_mapping (star_id)`,
	`CREATE INDEX IF NOT EXISTS idx_series_mapping_series ON series_mapping (series_id)`,
}

// Migrate creates any missing tables and indexes.
func Migrate(database *DB) error {
	for _, stmt := range schema {
		if _, err := database.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
