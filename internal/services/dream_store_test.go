package services

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"dreamweaver/internal/database"
	"dreamweaver/internal/models"
)

func newTestBlobStore(t *testing.T) database.Store {
	store, err := database.Open(filepath.Join(t.TempDir(), "dreams.json"))
	if err != nil {
		t.Fatalf("Failed to open test storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDreamStore_InsertAssignsIdentity(t *testing.T) {
	store := NewDreamStore(newTestBlobStore(t))

	before := time.Now().UTC()
	record := store.Insert(models.DreamDraft{
		Details:        "A long walk through an endless library",
		Interpretation: "знание",
	})

	if record.ID == "" {
		t.Error("Insert should assign an ID")
	}
	if record.CreatedAt.Before(before.Add(-time.Second)) {
		t.Errorf("CreatedAt %v should not be older than call time %v", record.CreatedAt, before)
	}

	dreams := store.List()
	if len(dreams) != 1 {
		t.Fatalf("Expected 1 dream, got %d", len(dreams))
	}
	if dreams[0].ID != record.ID {
		t.Errorf("List should contain the inserted record")
	}
}

func TestDreamStore_ListSortedNewestFirst(t *testing.T) {
	store := NewDreamStore(newTestBlobStore(t))

	first := store.Insert(models.DreamDraft{Details: "first dream entry"})
	second := store.Insert(models.DreamDraft{Details: "second dream entry"})
	third := store.Insert(models.DreamDraft{Details: "third dream entry"})

	dreams := store.List()
	if len(dreams) != 3 {
		t.Fatalf("Expected 3 dreams, got %d", len(dreams))
	}
	for i := 0; i < len(dreams)-1; i++ {
		if dreams[i].CreatedAt.Before(dreams[i+1].CreatedAt) {
			t.Errorf("List not sorted descending at index %d", i)
		}
	}
	// Newest insertion first, even when timestamps collide
	if dreams[0].ID != third.ID || dreams[2].ID != first.ID {
		t.Errorf("Expected order [%s %s %s], got [%s %s %s]",
			third.ID, second.ID, first.ID, dreams[0].ID, dreams[1].ID, dreams[2].ID)
	}
}

func TestDreamStore_LoadSortsStoredCollection(t *testing.T) {
	blobStore := newTestBlobStore(t)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	stored := []models.DreamRecord{
		{ID: "old", Details: "oldest", CreatedAt: base.Add(-2 * time.Hour)},
		{ID: "new", Details: "newest", CreatedAt: base},
		{ID: "mid", Details: "middle", CreatedAt: base.Add(-1 * time.Hour)},
	}
	data, err := json.Marshal(stored)
	if err != nil {
		t.Fatalf("Failed to marshal fixture: %v", err)
	}
	if err := blobStore.SaveBlob(data); err != nil {
		t.Fatalf("Failed to seed storage: %v", err)
	}

	store := NewDreamStore(blobStore)
	dreams := store.List()
	if len(dreams) != 3 {
		t.Fatalf("Expected 3 dreams, got %d", len(dreams))
	}
	if dreams[0].ID != "new" || dreams[1].ID != "mid" || dreams[2].ID != "old" {
		t.Errorf("Expected [new mid old], got [%s %s %s]", dreams[0].ID, dreams[1].ID, dreams[2].ID)
	}
}

func TestDreamStore_SortTiesPreserveOrder(t *testing.T) {
	blobStore := newTestBlobStore(t)

	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	stored := []models.DreamRecord{
		{ID: "a", Details: "same timestamp a", CreatedAt: ts},
		{ID: "b", Details: "same timestamp b", CreatedAt: ts},
		{ID: "c", Details: "same timestamp c", CreatedAt: ts},
	}
	data, _ := json.Marshal(stored)
	if err := blobStore.SaveBlob(data); err != nil {
		t.Fatalf("Failed to seed storage: %v", err)
	}

	dreams := NewDreamStore(blobStore).List()
	if dreams[0].ID != "a" || dreams[1].ID != "b" || dreams[2].ID != "c" {
		t.Errorf("Stable sort should preserve tie order, got [%s %s %s]",
			dreams[0].ID, dreams[1].ID, dreams[2].ID)
	}
}

func TestDreamStore_UpdateNeverChangesIdentity(t *testing.T) {
	store := NewDreamStore(newTestBlobStore(t))
	record := store.Insert(models.DreamDraft{Details: "a dream about rivers", Mood: "calm"})

	newTitle := "Rivers"
	newTags := []string{"water"}
	store.Update(record.ID, models.DreamUpdate{Title: &newTitle, Tags: &newTags})

	updated, ok := store.Get(record.ID)
	if !ok {
		t.Fatal("Record disappeared after update")
	}
	if updated.ID != record.ID {
		t.Errorf("Update changed ID: %s -> %s", record.ID, updated.ID)
	}
	if !updated.CreatedAt.Equal(record.CreatedAt) {
		t.Errorf("Update changed CreatedAt")
	}
	if updated.Title != "Rivers" {
		t.Errorf("Expected title Rivers, got %q", updated.Title)
	}
	if updated.Mood != "calm" {
		t.Errorf("Unsupplied field mood should be untouched, got %q", updated.Mood)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "water" {
		t.Errorf("Expected tags [water], got %v", updated.Tags)
	}
}

func TestDreamStore_UpdateUnknownIDIsNoOp(t *testing.T) {
	store := NewDreamStore(newTestBlobStore(t))
	record := store.Insert(models.DreamDraft{Details: "a dream about doors"})

	title := "should not appear"
	store.Update("no-such-id", models.DreamUpdate{Title: &title})

	dreams := store.List()
	if len(dreams) != 1 || dreams[0].Title != "" || dreams[0].ID != record.ID {
		t.Errorf("Update with unknown id should change nothing")
	}
}

func TestDreamStore_DeleteRemovesExactlyOne(t *testing.T) {
	store := NewDreamStore(newTestBlobStore(t))
	a := store.Insert(models.DreamDraft{Details: "first dream entry"})
	b := store.Insert(models.DreamDraft{Details: "second dream entry"})

	store.Delete(a.ID)

	dreams := store.List()
	if len(dreams) != 1 {
		t.Fatalf("Expected 1 dream after delete, got %d", len(dreams))
	}
	if dreams[0].ID != b.ID {
		t.Errorf("Delete removed the wrong record")
	}

	// Absent id is a no-op
	store.Delete(a.ID)
	if len(store.List()) != 1 {
		t.Errorf("Deleting an absent id should be a no-op")
	}
}

func TestDreamStore_FailSoftOnCorruptBlob(t *testing.T) {
	blobStore := newTestBlobStore(t)
	if err := blobStore.SaveBlob([]byte(`{definitely not an array`)); err != nil {
		t.Fatalf("Failed to seed corrupt blob: %v", err)
	}

	store := NewDreamStore(blobStore)
	if got := len(store.List()); got != 0 {
		t.Errorf("Corrupt blob should yield an empty collection, got %d records", got)
	}

	// The store must stay usable afterwards
	store.Insert(models.DreamDraft{Details: "a fresh dream entry"})
	if got := len(store.List()); got != 1 {
		t.Errorf("Store should accept inserts after fail-soft load, got %d records", got)
	}
}

func TestDreamStore_RoundTripAcrossRestart(t *testing.T) {
	blobStore := newTestBlobStore(t)

	first := NewDreamStore(blobStore)
	inserted := first.Insert(models.DreamDraft{
		Title:           "Glass mountains",
		Details:         "I was flying over mountains made of glass",
		CulturalContext: "",
		Mood:            "awe",
		Interpretation:  "свобода",
		Summary:         "Полет над стеклянными горами.",
		Category:        "Путешествие",
		Tags:            []string{"полет", "стекло"},
	})

	// Simulate a restart
	second := NewDreamStore(blobStore)
	dreams := second.List()
	if len(dreams) != 1 {
		t.Fatalf("Expected 1 dream after reload, got %d", len(dreams))
	}

	got := dreams[0]
	if got.ID != inserted.ID {
		t.Errorf("ID changed across restart: %s -> %s", inserted.ID, got.ID)
	}
	if !got.CreatedAt.Equal(inserted.CreatedAt) {
		t.Errorf("CreatedAt changed across restart: %v -> %v", inserted.CreatedAt, got.CreatedAt)
	}
	if got.Title != inserted.Title || got.Details != inserted.Details ||
		got.Mood != inserted.Mood || got.Interpretation != inserted.Interpretation ||
		got.Summary != inserted.Summary || got.Category != inserted.Category {
		t.Errorf("Fields changed across restart: %+v vs %+v", got, inserted)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "полет" || got.Tags[1] != "стекло" {
		t.Errorf("Tags changed across restart: %v", got.Tags)
	}
}
