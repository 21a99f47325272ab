package postgres

import (
	_ "github.com/lib/pq"
	"github.com/vibecoder/vibecoder/database/sqldb"
)

const DriverName = "postgres"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS content_items (
		id BIGSERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
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
		is_featured BOOLEAN NOT NULL DEFAULT FALSE,
		parent_kind TEXT NOT NULL DEFAULT '',
		parent_id BIGINT NOT NULL DEFAULT 0,
		author_name TEXT NOT NULL,
		credential_hash TEXT,
		session_token TEXT,
		client_ip TEXT NOT NULL DEFAULT '',
		is_spam BOOLEAN NOT NULL DEFAULT FALSE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		view_count INTEGER NOT NULL DEFAULT 0,
		likes INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS content_items_listing ON content_items (kind, is_spam, is_deleted, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS content_items_slug ON content_items (kind, slug)`,
	`CREATE INDEX IF NOT EXISTS content_items_parent ON content_items (parent_kind, parent_id)`,
	`CREATE TABLE IF NOT EXISTS rate_limits (
		id BIGSERIAL PRIMARY KEY,
		ip_address TEXT NOT NULL,
		action TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rate_limits_window ON rate_limits (ip_address, action, created_at)`,
}

type Postgres struct {
	*sqldb.DB
}

func New() *Postgres {
	return &Postgres{sqldb.New(schema)}
}
