// Package cache persists the last-known root hash and document list so
// a sync can short-circuit when the remote root is unchanged.
package cache

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/slatesync/slatesync/internal/logging"
	"github.com/slatesync/slatesync/pkg/document"
	"github.com/slatesync/slatesync/pkg/tree"
)

// Record is the persisted cache state: the root hash the document list
// was derived from, and the list itself. The tree is always rebuilt,
// never stored.
type Record struct {
	Hash      string              `json:"hash"`
	Documents []document.Document `json:"documents"`
}

// Store persists cache records. Injected so tests can substitute an
// in-memory implementation.
type Store interface {
	Load() (Record, error)
	Save(Record) error
}

// Cache holds the in-memory view of the persisted record plus the tree
// derived from it.
type Cache struct {
	store Store

	mu   sync.RWMutex
	hash string
	docs []document.Document
	tree *tree.Tree
}

// New returns an empty cache backed by store. Call Load to read any
// persisted state.
func New(store Store) *Cache {
	return &Cache{store: store, tree: tree.New()}
}

// Load reads persisted state. A missing or unreadable record is not an
// error: the cache starts empty and the next sync repopulates it.
func (c *Cache) Load() {
	rec, err := c.store.Load()
	if err != nil {
		logging.Warn("cache unreadable, starting empty", zap.Error(err))
		rec = Record{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hash = rec.Hash
	c.docs = rec.Documents
	c.tree = tree.Build(rec.Documents)
}

// Refresh replaces the cache contents and persists them. This is the
// only write path; a persist failure is returned as an error because a
// stale on-disk hash would poison the next short-circuit check.
func (c *Cache) Refresh(hash string, docs []document.Document) error {
	if err := c.store.Save(Record{Hash: hash, Documents: docs}); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hash = hash
	c.docs = docs
	c.tree = tree.Build(docs)
	return nil
}

// Hash returns the root hash the cache contents were derived from, or
// "" for an empty cache.
func (c *Cache) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hash
}

// Documents returns a copy of the cached document list.
func (c *Cache) Documents() []document.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	docs := make([]document.Document, len(c.docs))
	copy(docs, c.docs)
	return docs
}

// Tree returns the hierarchy derived from the cached documents.
func (c *Cache) Tree() *tree.Tree {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree
}
