package memory

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/vibecoder/vibecoder/database"
	"github.com/vibecoder/vibecoder/item"
)

func TestImplementsDatabase(t *testing.T) {
	inter := reflect.TypeOf((*database.Database)(nil)).Elem()

	if !reflect.TypeOf(New()).Implements(inter) {
		t.Errorf("Memory does not implement the database interface")
	}
}

func TestListItemsVisibility(t *testing.T) {
	m := New()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []item.Item{
		{Kind: item.KindPost, Title: "a", CreatedAt: base},
		{Kind: item.KindPost, Title: "spam", CreatedAt: base.Add(time.Minute), IsSpam: true},
		{Kind: item.KindPost, Title: "b", CreatedAt: base.Add(2 * time.Minute)},
		{Kind: item.KindPost, Title: "deleted", CreatedAt: base.Add(3 * time.Minute), IsDeleted: true},
		{Kind: item.KindProject, Title: "project", CreatedAt: base.Add(4 * time.Minute)},
		{Kind: item.KindPost, Title: "c", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range items {
		if _, err := m.AddItem(&items[i]); err != nil {
			t.Fatal(err)
		}
	}

	got, err := m.ListItems(item.Query{Kind: item.KindPost})
	if err != nil {
		t.Fatal(err)
	}
	var titles []string
	for _, it := range got {
		titles = append(titles, it.Title)
	}
	want := []string{"c", "b", "a"}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("ListItems() = %v, want %v", titles, want)
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Errorf("listing is not ordered newest first at %d", i)
		}
	}

	total, _ := m.CountItems(item.Query{Kind: item.KindPost})
	if total != 3 {
		t.Errorf("CountItems() = %d, want 3", total)
	}

	page, _ := m.ListItems(item.Query{Kind: item.KindPost, Limit: 2, Offset: 2})
	if len(page) != 1 || page[0].Title != "a" {
		t.Errorf("second page = %v", page)
	}
}

func TestSpamItemsKeepDirectLookup(t *testing.T) {
	m := New()
	id, _ := m.AddItem(&item.Item{Kind: item.KindPost, Slug: "hidden", IsSpam: true})

	it, err := m.GetItem(item.KindPost, id)
	if err != nil || !it.IsSpam {
		t.Fatalf("GetItem() = %v, %v", it, err)
	}
	if _, err := m.GetItemBySlug(item.KindPost, "hidden"); err != nil {
		t.Errorf("GetItemBySlug() error = %v", err)
	}
	if err := m.BumpViews(item.KindPost, id); err != nil {
		t.Fatal(err)
	}
	likes, _ := m.BumpLikes(item.KindPost, id)
	it, _ = m.GetItem(item.KindPost, id)
	if it.ViewCount != 0 || likes != 0 {
		t.Errorf("spam item counted: views=%d likes=%d", it.ViewCount, likes)
	}
	if _, err := m.GetItem(item.KindComment, id); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetItem() with wrong kind error = %v", err)
	}
}

func TestLedger(t *testing.T) {
	m := New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.AddRecord(item.RateLimitRecord{IPAddress: "1.1.1.1", Action: item.ActionPost, CreatedAt: now.Add(-2 * time.Hour)})
	m.AddRecord(item.RateLimitRecord{IPAddress: "1.1.1.1", Action: item.ActionPost, CreatedAt: now.Add(-30 * time.Second)})
	m.AddRecord(item.RateLimitRecord{IPAddress: "1.1.1.1", Action: item.ActionComment, CreatedAt: now})
	m.AddRecord(item.RateLimitRecord{IPAddress: "2.2.2.2", Action: item.ActionPost, CreatedAt: now})

	count, _ := m.CountRecords("1.1.1.1", item.ActionPost, now.Add(-time.Minute))
	if count != 1 {
		t.Errorf("CountRecords() = %d, want 1", count)
	}
	deleted, _ := m.DeleteRecordsBefore(now.Add(-time.Hour))
	if deleted != 1 {
		t.Errorf("DeleteRecordsBefore() = %d, want 1", deleted)
	}
	count, _ = m.CountRecords("1.1.1.1", item.ActionPost, now.Add(-3*time.Hour))
	if count != 1 {
		t.Errorf("CountRecords() after prune = %d, want 1", count)
	}
}

func TestAtomicRollback(t *testing.T) {
	m := New()
	boom := errors.New("boom")
	err := m.Atomic(func(s database.Store) error {
		if _, err := s.AddItem(&item.Item{Kind: item.KindPost}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Atomic() error = %v", err)
	}
	total, _ := m.CountItems(item.Query{Kind: item.KindPost})
	if total != 0 {
		t.Errorf("rolled back item is still stored")
	}
}

func TestStats(t *testing.T) {
	db := New()
	items := []*item.Item{
		{Kind: item.KindPost, Slug: "post", AuthorName: "a"},
		{Kind: item.KindPost, Slug: "spam-post", AuthorName: "a", IsSpam: true},
		{Kind: item.KindProject, Slug: "project", AuthorName: "a"},
		{Kind: item.KindProject, Slug: "spam-project", AuthorName: "a", IsSpam: true},
		{Kind: item.KindComment, AuthorName: "a", ParentKind: item.KindPost, ParentID: 1},
	}
	for _, it := range items {
		if _, err := db.AddItem(it); err != nil {
			t.Fatal(err)
		}
	}
	project := items[2]
	for i := 0; i < 2; i++ {
		if err := db.BumpViews(item.KindProject, project.ID); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.MarkDeleted(item.KindProject, project.ID); err != nil {
		t.Fatal(err)
	}

	st, err := db.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	want := item.Stats{Posts: 1, Projects: 2, Comments: 1, Views: 2}
	if *st != want {
		t.Errorf("GetStats() = %+v, want %+v", *st, want)
	}
}
