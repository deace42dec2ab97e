package database

import (
	"context"
	"database/sql"
	"fmt"
)

// The *_search columns hold strings.ToLower of title and listed_in; filters
// match against them instead of SQL LOWER().  Identifiers and codes use a
// binary collation so equality stays exact on MySQL.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_entries (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		show_id      VARCHAR(32) COLLATE utf8mb4_bin NOT NULL,
		type         VARCHAR(32) COLLATE utf8mb4_bin NOT NULL,
		title        VARCHAR(512) NOT NULL,
		director     TEXT NULL,
		cast_members TEXT NULL,
		country      TEXT NULL,
		date_added   DATE NULL,
		year_added   INT NOT NULL DEFAULT 0,
		release_year INT NOT NULL DEFAULT 0,
		rating       VARCHAR(32) COLLATE utf8mb4_bin NOT NULL,
		duration     VARCHAR(32)  NOT NULL,
		listed_in    VARCHAR(512) NOT NULL,
		description  TEXT NULL,
		title_search     VARCHAR(512) COLLATE utf8mb4_bin NOT NULL DEFAULT '',
		listed_in_search VARCHAR(512) COLLATE utf8mb4_bin NOT NULL DEFAULT '',
		UNIQUE KEY uq_catalog_show_id (show_id),
		KEY idx_catalog_rating (rating),
		KEY idx_catalog_year_added (year_added)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_entries (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		show_id      TEXT NOT NULL,
		type         TEXT NOT NULL,
		title        TEXT NOT NULL,
		director     TEXT NULL,
		cast_members TEXT NULL,
		country      TEXT NULL,
		date_added   DATE NULL,
		year_added   INTEGER NOT NULL DEFAULT 0,
		release_year INTEGER NOT NULL DEFAULT 0,
		rating       TEXT NOT NULL,
		duration     TEXT NOT NULL,
		listed_in    TEXT NOT NULL,
		description  TEXT NULL,
		title_search     TEXT NOT NULL DEFAULT '',
		listed_in_search TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_catalog_show_id ON catalog_entries (show_id)`,
	`CREATE INDEX IF NOT EXISTS idx_catalog_rating ON catalog_entries (rating)`,
	`CREATE INDEX IF NOT EXISTS idx_catalog_year_added ON catalog_entries (year_added)`,
}

// Migrate creates the catalog_entries table and its indexes if they do not
// exist yet.  It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case DriverMySQL:
		stmts = mysqlSchema
	case DriverSQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
