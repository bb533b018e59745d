package client

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/slatesync/slatesync/pkg/document"
	"github.com/slatesync/slatesync/pkg/index"
)

func TestCreateDocument(t *testing.T) {
	r := newFakeRemote(t)
	r.setRoot([]index.Entry{r.seedDocument(idReport, testMeta("Report", ""))})

	c := testClient(t, r, nil)
	docID, err := c.CreateDocument(context.Background(), "Paper", "pdf", []byte("%PDF-1.4 hello"), "")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	entries := r.readRootIndex()
	if len(entries) != 2 {
		t.Fatalf("root index has %d entries, want 2", len(entries))
	}
	i := index.Find(entries, docID)
	if i < 0 {
		t.Fatalf("new document %s missing from root index", docID)
	}
	entry := entries[i]
	if entry.Type != document.RootEntryType {
		t.Errorf("entry type = %q, want %q", entry.Type, document.RootEntryType)
	}
	if entry.Count != "4" {
		t.Errorf("entry count = %q, want 4", entry.Count)
	}

	r.mu.Lock()
	schemaBlob, ok := r.blobs[entry.Hash]
	r.mu.Unlock()
	if !ok {
		t.Fatalf("schema blob %s not uploaded", entry.Hash)
	}
	schema, err := index.Parse(string(schemaBlob))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	for _, suffix := range []string{"content", "metadata", "pagedata", "pdf"} {
		sub, ok := document.FindSuffix(schema, suffix)
		if !ok {
			t.Errorf("schema missing %s entry", suffix)
			continue
		}
		r.mu.Lock()
		_, stored := r.blobs[sub.Hash]
		r.mu.Unlock()
		if !stored {
			t.Errorf("%s blob %s not uploaded", suffix, sub.Hash)
		}
	}
}

func TestCreateDocumentUnsupportedType(t *testing.T) {
	r := newFakeRemote(t)
	r.setRoot(nil)
	c := testClient(t, r, nil)
	if _, err := c.CreateDocument(context.Background(), "readme", "txt", []byte("x"), ""); err == nil {
		t.Fatal("CreateDocument accepted a txt file")
	}
	if r.rootPuts != 0 {
		t.Errorf("rejected create still touched the root pointer %d times", r.rootPuts)
	}
}

func TestCreateDocumentAbortsWhenUploadFails(t *testing.T) {
	r := newFakeRemote(t)
	r.setRoot([]index.Entry{r.seedDocument(idReport, testMeta("Report", ""))})
	before := r.rootHash

	r.rejectUpload = func(name string) bool {
		return strings.HasSuffix(name, ".pdf")
	}

	c := testClient(t, r, nil)
	if _, err := c.CreateDocument(context.Background(), "Paper", "pdf", []byte("%PDF-1.4"), ""); err == nil {
		t.Fatal("CreateDocument succeeded despite a rejected upload")
	}
	if r.rootPuts != 0 {
		t.Errorf("failed create still touched the root pointer %d times", r.rootPuts)
	}
	if r.rootHash != before {
		t.Error("root pointer moved after a rejected upload")
	}
	if len(r.readRootIndex()) != 1 {
		t.Error("root index changed after a rejected upload")
	}
}

func TestDeleteDocument(t *testing.T) {
	r := newFakeRemote(t)
	r.setRoot([]index.Entry{
		r.seedDocument(idReport, testMeta("Report", "")),
		r.seedDocument(idNotes, testMeta("Notes", "")),
	})

	c := testClient(t, r, nil)
	if err := c.DeleteDocument(context.Background(), idReport); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	entries := r.readRootIndex()
	if index.Find(entries, idReport) >= 0 {
		t.Error("deleted document still present in root index")
	}
	if index.Find(entries, idNotes) < 0 {
		t.Error("unrelated document dropped from root index")
	}
}

func TestDeleteDocumentMissing(t *testing.T) {
	r := newFakeRemote(t)
	r.setRoot([]index.Entry{r.seedDocument(idReport, testMeta("Report", ""))})

	c := testClient(t, r, nil)
	err := c.DeleteDocument(context.Background(), idGone)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteDocument error = %v, want ErrNotFound", err)
	}
	if r.rootPuts != 0 {
		t.Errorf("failed delete still touched the root pointer %d times", r.rootPuts)
	}
}

// remoteMetadata fetches and decodes a document's current metadata blob
// straight from the fake remote.
func remoteMetadata(t *testing.T, r *fakeRemote, docID string) document.Metadata {
	t.Helper()
	entries := r.readRootIndex()
	i := index.Find(entries, docID)
	if i < 0 {
		t.Fatalf("document %s missing from root index", docID)
	}
	r.mu.Lock()
	schemaBlob := r.blobs[entries[i].Hash]
	r.mu.Unlock()
	schema, err := index.Parse(string(schemaBlob))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	metaEntry, ok := document.FindSuffix(schema, "metadata")
	if !ok {
		t.Fatalf("schema for %s has no metadata entry", docID)
	}
	r.mu.Lock()
	metaBlob := r.blobs[metaEntry.Hash]
	r.mu.Unlock()
	var meta document.Metadata
	if err := json.Unmarshal(metaBlob, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	return meta
}

func TestRenameDocument(t *testing.T) {
	r := newFakeRemote(t)
	meta := testMeta("Draft", "")
	meta.Extra = map[string]json.RawMessage{"customField": json.RawMessage(`"keep-me"`)}
	r.setRoot([]index.Entry{r.seedDocument(idReport, meta)})

	c := testClient(t, r, nil)
	if err := c.RenameDocument(context.Background(), idReport, "Final"); err != nil {
		t.Fatalf("RenameDocument: %v", err)
	}

	got := remoteMetadata(t, r, idReport)
	if got.VisibleName != "Final" {
		t.Errorf("visible name = %q, want Final", got.VisibleName)
	}
	if got.Version != meta.Version+1 {
		t.Errorf("version = %d, want %d", got.Version, meta.Version+1)
	}
	if string(got.Extra["customField"]) != `"keep-me"` {
		t.Errorf("unknown metadata field lost on rename: %s", got.Extra["customField"])
	}
}

func TestRenameAbortsWhenUploadFails(t *testing.T) {
	r := newFakeRemote(t)
	r.setRoot([]index.Entry{r.seedDocument(idReport, testMeta("Draft", ""))})
	before := r.rootHash

	r.rejectUpload = func(name string) bool {
		return strings.HasSuffix(name, ".metadata")
	}

	c := testClient(t, r, nil)
	if err := c.RenameDocument(context.Background(), idReport, "Final"); err == nil {
		t.Fatal("RenameDocument succeeded despite a rejected upload")
	}
	if r.rootPuts != 0 {
		t.Errorf("failed rename still touched the root pointer %d times", r.rootPuts)
	}
	if r.rootHash != before {
		t.Error("root pointer moved after a rejected upload")
	}
	if got := remoteMetadata(t, r, idReport); got.VisibleName != "Draft" {
		t.Errorf("visible name = %q, want untouched Draft", got.VisibleName)
	}
}

func TestMoveDocumentToTrash(t *testing.T) {
	r := newFakeRemote(t)
	r.setRoot([]index.Entry{r.seedDocument(idReport, testMeta("Report", ""))})

	c := testClient(t, r, nil)
	if err := c.MoveDocument(context.Background(), idReport, document.TrashParent); err != nil {
		t.Fatalf("MoveDocument: %v", err)
	}
	if got := remoteMetadata(t, r, idReport); got.Parent != document.TrashParent {
		t.Errorf("parent = %q, want %q", got.Parent, document.TrashParent)
	}
}

func TestCommitConflictRetriesCycle(t *testing.T) {
	r := newFakeRemote(t)
	r.setRoot([]index.Entry{
		r.seedDocument(idReport, testMeta("Report", "")),
		r.seedDocument(idNotes, testMeta("Notes", "")),
	})

	// A concurrent writer bumps the generation right before the first
	// commit lands, forcing one conflict.
	fired := false
	r.beforeRootPut = func(r *fakeRemote) {
		if !fired {
			fired = true
			r.generation++
		}
	}

	c := testClient(t, r, nil)
	if err := c.DeleteDocument(context.Background(), idReport); err != nil {
		t.Fatalf("DeleteDocument after one conflict: %v", err)
	}
	if r.rootPuts != 2 {
		t.Errorf("root pointer PUT %d times, want 2 (conflict then success)", r.rootPuts)
	}
	if index.Find(r.readRootIndex(), idReport) >= 0 {
		t.Error("document survived the retried delete")
	}
}

func TestCommitConflictExhaustsAttempts(t *testing.T) {
	r := newFakeRemote(t)
	r.setRoot([]index.Entry{r.seedDocument(idReport, testMeta("Report", ""))})
	before := r.rootHash

	r.beforeRootPut = func(r *fakeRemote) {
		r.generation++
	}

	c := testClient(t, r, nil)
	err := c.DeleteDocument(context.Background(), idReport)
	if err == nil {
		t.Fatal("DeleteDocument succeeded against a persistent conflict")
	}
	if _, ok := AsConflict(err); !ok {
		t.Fatalf("error = %v, want ConflictError", err)
	}
	if r.rootHash != before {
		t.Error("root pointer moved despite every commit conflicting")
	}
}

func TestDownload(t *testing.T) {
	r := newFakeRemote(t)
	r.setRoot([]index.Entry{r.seedDocument(idReport, testMeta("Report", ""))})

	c := testClient(t, r, nil)
	data, ext, err := c.Download(context.Background(), idReport)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if ext != "pdf" {
		t.Errorf("ext = %q, want pdf", ext)
	}
	if want := "%PDF-1.4 " + idReport; string(data) != want {
		t.Errorf("data = %q, want %q", data, want)
	}
}

func TestDownloadMissing(t *testing.T) {
	r := newFakeRemote(t)
	r.setRoot(nil)
	c := testClient(t, r, nil)
	if _, _, err := c.Download(context.Background(), idReport); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Download error = %v, want ErrNotFound", err)
	}
}
