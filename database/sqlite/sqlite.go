package sqlite

import (
	"github.com/vibecoder/vibecoder/database/sqldb"
	_ "modernc.org/sqlite"
)

const DriverName = "sqlite"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS content_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		slug TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		rendered TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '',
		tech_stack TEXT NOT NULL DEFAULT '',
		demo_url TEXT NOT NULL DEFAULT '',
		github_url TEXT NOT NULL DEFAULT '',
		thumbnail TEXT NOT NULL DEFAULT '',
		is_featured BOOLEAN NOT NULL DEFAULT 0,
		parent_kind TEXT NOT NULL DEFAULT '',
		parent_id INTEGER NOT NULL DEFAULT 0,
		author_name TEXT NOT NULL,
		credential_hash TEXT,
		session_token TEXT,
		client_ip TEXT NOT NULL DEFAULT '',
		is_spam BOOLEAN NOT NULL DEFAULT 0,
		is_deleted BOOLEAN NOT NULL DEFAULT 0,
		view_count INTEGER NOT NULL DEFAULT 0,
		likes INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS content_items_listing ON content_items (kind, is_spam, is_deleted, created_at)`,
	`CREATE INDEX IF NOT EXISTS content_items_slug ON content_items (kind, slug)`,
	`CREATE INDEX IF NOT EXISTS content_items_parent ON content_items (parent_kind, parent_id)`,
	`CREATE TABLE IF NOT EXISTS rate_limits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ip_address TEXT NOT NULL,
		action TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rate_limits_window ON rate_limits (ip_address, action, created_at)`,
}

type SQLite struct {
	*sqldb.DB
}

func New() *SQLite {
	return &SQLite{sqldb.New(schema)}
}

func (m *SQLite) Open(database, dsn string) error {
	if err := m.DB.Open(database, dsn); err != nil {
		return err
	}
	// a single writer avoids SQLITE_BUSY under concurrent handlers
	m.Conn().SetMaxOpenConns(1)
	return nil
}
