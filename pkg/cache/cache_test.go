package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/slatesync/slatesync/pkg/document"
)

func testDocs() []document.Document {
	return []document.Document{
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Name: "a", Type: document.TypeDocument},
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Name: "b", Type: document.TypeCollection},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "tree.cache")
	s := NewFileStore(path)

	rec := Record{Hash: "abc123", Documents: testDocs()}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Hash != "abc123" {
		t.Errorf("Hash = %q", got.Hash)
	}
	if len(got.Documents) != 2 || got.Documents[0].Name != "a" {
		t.Errorf("Documents = %+v", got.Documents)
	}

	// No leftover temp file.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestFileStore_MissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope"))
	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load of missing file: %v", err)
	}
	if rec.Hash != "" || len(rec.Documents) != 0 {
		t.Errorf("missing file record = %+v, want empty", rec)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.cache")
	if err := os.WriteFile(path, []byte("{corrupt"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(); err == nil {
		t.Error("Load of corrupt file did not error")
	}
}

func TestCache_LoadTolerance(t *testing.T) {
	store := NewMemStore()
	store.FailLoads(errors.New("disk on fire"))

	c := New(store)
	c.Load()

	if c.Hash() != "" {
		t.Errorf("Hash = %q, want empty after failed load", c.Hash())
	}
	if len(c.Documents()) != 0 {
		t.Error("Documents not empty after failed load")
	}
	if c.Tree() == nil || c.Tree().Root == nil {
		t.Error("tree missing after failed load")
	}
}

func TestCache_RefreshAndReload(t *testing.T) {
	store := NewMemStore()
	c := New(store)
	c.Load()

	docs := testDocs()
	if err := c.Refresh("roothash1", docs); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if c.Hash() != "roothash1" {
		t.Errorf("Hash = %q", c.Hash())
	}
	if c.Tree().FindByID("00000000-0000-0000-0000-000000000002") == nil {
		t.Error("tree not rebuilt on refresh")
	}

	// A second cache over the same store sees the persisted state.
	c2 := New(store)
	c2.Load()
	if c2.Hash() != "roothash1" {
		t.Errorf("reloaded Hash = %q", c2.Hash())
	}
	if len(c2.Documents()) != 2 {
		t.Errorf("reloaded Documents = %d", len(c2.Documents()))
	}
}

func TestCache_RefreshPersistFailureIsFatal(t *testing.T) {
	store := NewMemStore()
	store.FailSaves(errors.New("read-only fs"))

	c := New(store)
	if err := c.Refresh("h", nil); err == nil {
		t.Error("Refresh with failing store did not error")
	}
}

func TestCache_DocumentsReturnsCopy(t *testing.T) {
	c := New(NewMemStore())
	if err := c.Refresh("h", testDocs()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	docs := c.Documents()
	docs[0].Name = "mutated"
	if c.Documents()[0].Name == "mutated" {
		t.Error("Documents exposes internal slice")
	}
}
