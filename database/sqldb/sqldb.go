// Package sqldb implements the content store and the rate limit ledger on top of
// sqlx. Queries are written with '?' placeholders and rebound for the driver.
package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vibecoder/vibecoder/database"
	"github.com/vibecoder/vibecoder/item"
)

const itemColumns = `id, kind, created_at, slug, title, body, rendered,
	category, tags, tech_stack, demo_url, github_url, thumbnail, is_featured,
	parent_kind, parent_id, author_name,
	COALESCE(credential_hash, '') AS credential_hash,
	COALESCE(session_token, '') AS session_token,
	client_ip, is_spam, is_deleted, view_count, likes`

const visible = `NOT is_spam AND NOT is_deleted`

// Store runs queries against either a connection pool or a transaction.
type Store struct {
	ext sqlx.Ext
}

// DB owns the connection pool and the schema for one dialect.
type DB struct {
	Store
	db     *sqlx.DB
	schema []string
}

func New(schema []string) *DB {
	return &DB{schema: schema}
}

func (d *DB) Open(database, dsn string) error {
	db, err := sqlx.Open(database, dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}
	d.db = db
	d.ext = db
	return nil
}

// Conn exposes the pool for dialect specific tuning.
func (d *DB) Conn() *sqlx.DB {
	return d.db
}

func (d *DB) Migrate() error {
	for _, stmt := range d.schema {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (d *DB) Atomic(fn func(s database.Store) error) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return err
	}
	if err := fn(&Store{ext: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrNotFound
	}
	return err
}

func (s *Store) AddItem(it *item.Item) (item.ID, error) {
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now()
	}
	it.CreatedAt = it.CreatedAt.UTC()
	query, args, err := sqlx.Named(`INSERT INTO content_items (
			kind,
			created_at,
			slug,
			title,
			body,
			rendered,
			category,
			tags,
			tech_stack,
			demo_url,
			github_url,
			thumbnail,
			is_featured,
			parent_kind,
			parent_id,
			author_name,
			credential_hash,
			session_token,
			client_ip,
			is_spam,
			is_deleted
		) VALUES (
			:kind,
			:created_at,
			:slug,
			:title,
			:body,
			:rendered,
			:category,
			:tags,
			:tech_stack,
			:demo_url,
			:github_url,
			:thumbnail,
			:is_featured,
			:parent_kind,
			:parent_id,
			:author_name,
			:credential_hash,
			:session_token,
			:client_ip,
			:is_spam,
			:is_deleted
		) RETURNING id`,
		map[string]interface{}{
			"kind":            string(it.Kind),
			"created_at":      it.CreatedAt,
			"slug":            it.Slug,
			"title":           it.Title,
			"body":            it.Body,
			"rendered":        it.Rendered,
			"category":        it.Category,
			"tags":            it.Tags,
			"tech_stack":      it.TechStack,
			"demo_url":        it.DemoURL,
			"github_url":      it.GithubURL,
			"thumbnail":       it.Thumbnail,
			"is_featured":     it.IsFeatured,
			"parent_kind":     string(it.ParentKind),
			"parent_id":       it.ParentID,
			"author_name":     it.AuthorName,
			"credential_hash": nullString(it.CredentialHash),
			"session_token":   nullString(it.SessionToken),
			"client_ip":       it.ClientIP,
			"is_spam":         it.IsSpam,
			"is_deleted":      false,
		})
	if err != nil {
		return 0, err
	}
	var id item.ID
	if err := sqlx.Get(s.ext, &id, s.ext.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("insert %s: %w", it.Kind, err)
	}
	it.ID = id
	return id, nil
}

func (s *Store) GetItem(kind item.Kind, id item.ID) (*item.Item, error) {
	var it item.Item
	err := sqlx.Get(s.ext, &it, s.ext.Rebind("SELECT "+itemColumns+" FROM content_items WHERE kind = ? AND id = ?"), string(kind), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &it, nil
}

func (s *Store) GetItemBySlug(kind item.Kind, slug string) (*item.Item, error) {
	var it item.Item
	err := sqlx.Get(s.ext, &it, s.ext.Rebind("SELECT "+itemColumns+" FROM content_items WHERE kind = ? AND slug = ?"), string(kind), slug)
	if err != nil {
		return nil, notFound(err)
	}
	return &it, nil
}

func (s *Store) SlugExists(kind item.Kind, slug string) (bool, error) {
	var count int
	err := sqlx.Get(s.ext, &count, s.ext.Rebind("SELECT count(*) FROM content_items WHERE kind = ? AND slug = ?"), string(kind), slug)
	return count > 0, err
}

func where(q item.Query) (string, []interface{}) {
	clauses := []string{"kind = ?", visible}
	args := []interface{}{string(q.Kind)}
	if q.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, q.Category)
	}
	if q.ParentID != 0 {
		clauses = append(clauses, "parent_kind = ?", "parent_id = ?")
		args = append(args, string(q.ParentKind), q.ParentID)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) ListItems(q item.Query) (item.List, error) {
	cond, args := where(q)
	order := "created_at DESC, id DESC"
	if q.OldestFirst {
		order = "created_at ASC, id ASC"
	}
	if q.FeaturedFirst {
		order = "is_featured DESC, " + order
	}
	limit := q.Limit
	if limit <= 0 {
		limit = math.MaxInt32
	}
	args = append(args, limit, q.Offset)
	nl := item.List{}
	err := sqlx.Select(s.ext, &nl, s.ext.Rebind("SELECT "+itemColumns+" FROM content_items"+cond+" ORDER BY "+order+" LIMIT ? OFFSET ?"), args...)
	return nl, err
}

func (s *Store) CountItems(q item.Query) (int, error) {
	cond, args := where(q)
	var total int
	err := sqlx.Get(s.ext, &total, s.ext.Rebind("SELECT count(*) FROM content_items"+cond), args...)
	return total, err
}

func (s *Store) update(query string, args ...interface{}) error {
	res, err := s.ext.Exec(s.ext.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *Store) MarkDeleted(kind item.Kind, id item.ID) error {
	return s.update("UPDATE content_items SET is_deleted = ? WHERE kind = ? AND id = ?", true, string(kind), id)
}

func (s *Store) BumpViews(kind item.Kind, id item.ID) error {
	if _, err := s.GetItem(kind, id); err != nil {
		return err
	}
	_, err := s.ext.Exec(s.ext.Rebind("UPDATE content_items SET view_count = view_count + 1 WHERE kind = ? AND id = ? AND NOT is_spam"), string(kind), id)
	return err
}

func (s *Store) BumpLikes(kind item.Kind, id item.ID) (int, error) {
	if _, err := s.ext.Exec(s.ext.Rebind("UPDATE content_items SET likes = likes + 1 WHERE kind = ? AND id = ? AND "+visible), string(kind), id); err != nil {
		return 0, err
	}
	var likes int
	err := sqlx.Get(s.ext, &likes, s.ext.Rebind("SELECT likes FROM content_items WHERE kind = ? AND id = ?"), string(kind), id)
	return likes, notFound(err)
}

func (s *Store) GetStats() (*item.Stats, error) {
	var st item.Stats
	err := sqlx.Get(s.ext, &st, s.ext.Rebind(`SELECT
			COALESCE(SUM(CASE WHEN kind = ? AND `+visible+` THEN 1 ELSE 0 END), 0) AS posts,
			COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0) AS projects,
			COALESCE(SUM(CASE WHEN kind = ? AND `+visible+` THEN 1 ELSE 0 END), 0) AS comments,
			COALESCE(SUM(CASE WHEN kind = ? THEN view_count ELSE 0 END), 0) AS views
		FROM content_items`),
		string(item.KindPost), string(item.KindProject), string(item.KindComment), string(item.KindProject))
	return &st, err
}

func (s *Store) AddRecord(rec item.RateLimitRecord) error {
	_, err := sqlx.NamedExec(s.ext, `INSERT INTO rate_limits (ip_address, action, created_at) VALUES (:ip_address, :action, :created_at)`,
		map[string]interface{}{
			"ip_address": rec.IPAddress,
			"action":     string(rec.Action),
			"created_at": rec.CreatedAt.UTC(),
		})
	return err
}

func (s *Store) CountRecords(ip string, action item.Action, since time.Time) (int, error) {
	var count int
	err := sqlx.Get(s.ext, &count, s.ext.Rebind("SELECT count(*) FROM rate_limits WHERE ip_address = ? AND action = ? AND created_at > ?"), ip, string(action), since.UTC())
	return count, err
}

func (s *Store) DeleteRecordsBefore(t time.Time) (int64, error) {
	res, err := s.ext.Exec(s.ext.Rebind("DELETE FROM rate_limits WHERE created_at < ?"), t.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
