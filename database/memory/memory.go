package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vibecoder/vibecoder/database"
	"github.com/vibecoder/vibecoder/item"
)

// Memory keeps everything in process. It is meant for tests and single process
// development servers.
type Memory struct {
	mu sync.Mutex
	s  state
}

type state struct {
	items   item.List
	records []item.RateLimitRecord
	lastID  item.ID
}

func New() *Memory {
	return &Memory{}
}

func min(value int, values ...int) int {
	for _, v := range values {
		if v < value {
			value = v
		}
	}
	return value
}

func find(nl item.List, filter func(it *item.Item) bool) item.List {
	var result item.List
	for i := range nl {
		if filter(&nl[i]) {
			result = append(result, nl[i])
		}
	}
	return result
}

func (m *Memory) Open(database, dsn string) error {
	return nil
}

func (m *Memory) Migrate() error {
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) Atomic(fn func(s database.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.s.clone()
	if err := fn(&m.s); err != nil {
		m.s = snapshot
		return err
	}
	return nil
}

func (m *Memory) AddItem(it *item.Item) (item.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.AddItem(it)
}

func (m *Memory) GetItem(kind item.Kind, id item.ID) (*item.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.GetItem(kind, id)
}

func (m *Memory) GetItemBySlug(kind item.Kind, slug string) (*item.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.GetItemBySlug(kind, slug)
}

func (m *Memory) SlugExists(kind item.Kind, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.SlugExists(kind, slug)
}

func (m *Memory) ListItems(q item.Query) (item.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.ListItems(q)
}

func (m *Memory) CountItems(q item.Query) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.CountItems(q)
}

func (m *Memory) MarkDeleted(kind item.Kind, id item.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.MarkDeleted(kind, id)
}

func (m *Memory) BumpViews(kind item.Kind, id item.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.BumpViews(kind, id)
}

func (m *Memory) BumpLikes(kind item.Kind, id item.ID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.BumpLikes(kind, id)
}

func (m *Memory) GetStats() (*item.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.GetStats()
}

func (m *Memory) AddRecord(rec item.RateLimitRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.AddRecord(rec)
}

func (m *Memory) CountRecords(ip string, action item.Action, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.CountRecords(ip, action, since)
}

func (m *Memory) DeleteRecordsBefore(t time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.DeleteRecordsBefore(t)
}

func (s *state) clone() state {
	return state{
		items:   append(item.List(nil), s.items...),
		records: append([]item.RateLimitRecord(nil), s.records...),
		lastID:  s.lastID,
	}
}

func (s *state) lookup(kind item.Kind, id item.ID) *item.Item {
	for i := range s.items {
		if s.items[i].Kind == kind && s.items[i].ID == id {
			return &s.items[i]
		}
	}
	return nil
}

func (s *state) AddItem(it *item.Item) (item.ID, error) {
	s.lastID++
	it.ID = s.lastID
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now()
	}
	s.items = append(s.items, *it)
	return it.ID, nil
}

func (s *state) GetItem(kind item.Kind, id item.ID) (*item.Item, error) {
	it := s.lookup(kind, id)
	if it == nil {
		return nil, database.ErrNotFound
	}
	found := *it
	return &found, nil
}

func (s *state) GetItemBySlug(kind item.Kind, slug string) (*item.Item, error) {
	found := find(s.items, func(it *item.Item) bool {
		return it.Kind == kind && it.Slug == slug
	})
	if len(found) > 0 {
		return &found[0], nil
	}
	return nil, database.ErrNotFound
}

func (s *state) SlugExists(kind item.Kind, slug string) (bool, error) {
	_, err := s.GetItemBySlug(kind, slug)
	if err == database.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *state) ListItems(q item.Query) (item.List, error) {
	found := find(s.items, q.Matches)
	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if q.FeaturedFirst && a.IsFeatured != b.IsFeatured {
			return a.IsFeatured
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if q.OldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if q.OldestFirst {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
	if q.Offset >= len(found) {
		return item.List{}, nil
	}
	if q.Limit <= 0 {
		return found[q.Offset:], nil
	}
	return found[q.Offset:min(len(found), q.Offset+q.Limit)], nil
}

func (s *state) CountItems(q item.Query) (int, error) {
	return len(find(s.items, q.Matches)), nil
}

func (s *state) MarkDeleted(kind item.Kind, id item.ID) error {
	it := s.lookup(kind, id)
	if it == nil {
		return database.ErrNotFound
	}
	it.IsDeleted = true
	return nil
}

func (s *state) BumpViews(kind item.Kind, id item.ID) error {
	it := s.lookup(kind, id)
	if it == nil {
		return database.ErrNotFound
	}
	if !it.IsSpam {
		it.ViewCount++
	}
	return nil
}

func (s *state) BumpLikes(kind item.Kind, id item.ID) (int, error) {
	it := s.lookup(kind, id)
	if it == nil {
		return 0, database.ErrNotFound
	}
	if it.Visible() {
		it.Likes++
	}
	return it.Likes, nil
}

func (s *state) GetStats() (*item.Stats, error) {
	var st item.Stats
	for i := range s.items {
		it := &s.items[i]
		// projects count whatever their state, posts and comments only when visible
		if it.Kind == item.KindProject {
			st.Projects++
			st.Views += it.ViewCount
			continue
		}
		if !it.Visible() {
			continue
		}
		switch it.Kind {
		case item.KindPost:
			st.Posts++
		case item.KindComment:
			st.Comments++
		}
	}
	return &st, nil
}

func (s *state) AddRecord(rec item.RateLimitRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *state) CountRecords(ip string, action item.Action, since time.Time) (int, error) {
	count := 0
	for _, rec := range s.records {
		if rec.IPAddress == ip && rec.Action == action && rec.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (s *state) DeleteRecordsBefore(t time.Time) (int64, error) {
	kept := s.records[:0]
	var deleted int64
	for _, rec := range s.records {
		if rec.CreatedAt.Before(t) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return deleted, nil
}
