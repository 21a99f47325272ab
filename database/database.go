package database

import (
	"errors"
	"time"

	"github.com/vibecoder/vibecoder/item"
)

var ErrNotFound = errors.New("not found")

// ContentStore persists content items. Items are never removed, only flagged.
type ContentStore interface {
	AddItem(it *item.Item) (item.ID, error)
	GetItem(kind item.Kind, id item.ID) (*item.Item, error)
	GetItemBySlug(kind item.Kind, slug string) (*item.Item, error)
	SlugExists(kind item.Kind, slug string) (bool, error)
	ListItems(q item.Query) (item.List, error)
	CountItems(q item.Query) (int, error)
	MarkDeleted(kind item.Kind, id item.ID) error
	BumpViews(kind item.Kind, id item.ID) error
	BumpLikes(kind item.Kind, id item.ID) (int, error)
	GetStats() (*item.Stats, error)
}

// Ledger is the append-only rate limit log.
type Ledger interface {
	AddRecord(rec item.RateLimitRecord) error
	CountRecords(ip string, action item.Action, since time.Time) (int, error)
	DeleteRecordsBefore(t time.Time) (int64, error)
}

type Store interface {
	ContentStore
	Ledger
}

type Database interface {
	Store
	Open(database, dsn string) error
	Migrate() error
	// Atomic runs fn against a store whose writes either all commit or none do.
	Atomic(fn func(s Store) error) error
	Close() error
}
