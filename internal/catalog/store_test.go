package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"statcheck/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreUpsertAndAll(t *testing.T) {
	store := newTestStore(t)

	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	err := store.Upsert(types.Table{
		ID:          "TAB4392",
		Title:       "Deaths by year",
		Description: "Deaths by year",
		APIPath:     "tables/TAB4392",
		Keywords:    `["deaths"]`,
		FirstPeriod: "1990",
		LastPeriod:  "2023",
		Updated:     updated,
	})
	if err != nil {
		t.Fatalf("Upsert error = %v", err)
	}

	tables, err := store.All()
	if err != nil {
		t.Fatalf("All error = %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("len(tables) = %d, want 1", len(tables))
	}

	got := tables[0]
	if got.ID != "TAB4392" || got.Title != "Deaths by year" {
		t.Errorf("table = %+v", got)
	}
	if got.FirstPeriod != "1990" || got.LastPeriod != "2023" {
		t.Errorf("period span = %s-%s, want 1990-2023", got.FirstPeriod, got.LastPeriod)
	}
	if !got.Updated.Equal(updated) {
		t.Errorf("updated = %v, want %v", got.Updated, updated)
	}
}

func TestStoreUpsertReplacesExisting(t *testing.T) {
	store := newTestStore(t)

	base := types.Table{ID: "TAB1", Title: "Old title", APIPath: "tables/TAB1"}
	if err := store.Upsert(base); err != nil {
		t.Fatalf("Upsert error = %v", err)
	}
	base.Title = "New title"
	if err := store.Upsert(base); err != nil {
		t.Fatalf("Upsert error = %v", err)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count error = %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	tables, err := store.All()
	if err != nil {
		t.Fatalf("All error = %v", err)
	}
	if tables[0].Title != "New title" {
		t.Errorf("title = %q, want %q", tables[0].Title, "New title")
	}
}

func TestStoreSearch(t *testing.T) {
	store := newTestStore(t)

	entries := []types.Table{
		{ID: "TAB1", Title: "Deaths by year", APIPath: "tables/TAB1"},
		{ID: "TAB2", Title: "Live births", APIPath: "tables/TAB2", Keywords: `["fertility"]`},
		{ID: "TAB3", Title: "Consumer Price Index", APIPath: "tables/TAB3"},
	}
	for _, e := range entries {
		if err := store.Upsert(e); err != nil {
			t.Fatalf("Upsert(%s) error = %v", e.ID, err)
		}
	}

	byTitle, err := store.Search("deaths")
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if len(byTitle) != 1 || byTitle[0].ID != "TAB1" {
		t.Errorf("Search(deaths) = %+v, want TAB1", byTitle)
	}

	byKeyword, err := store.Search("fertility")
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if len(byKeyword) != 1 || byKeyword[0].ID != "TAB2" {
		t.Errorf("Search(fertility) = %+v, want TAB2", byKeyword)
	}

	none, err := store.Search("rainfall")
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Search(rainfall) = %+v, want none", none)
	}
}

func TestStoreEmptyCatalog(t *testing.T) {
	store := newTestStore(t)

	tables, err := store.All()
	if err != nil {
		t.Fatalf("All error = %v", err)
	}
	if len(tables) != 0 {
		t.Fatalf("len(tables) = %d, want 0", len(tables))
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count error = %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}
