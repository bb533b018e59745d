package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/slatesync/slatesync/internal/logging"
	"github.com/slatesync/slatesync/internal/metrics"
	"github.com/slatesync/slatesync/pkg/document"
	"github.com/slatesync/slatesync/pkg/index"
)

// Sync returns the current document list. If the remote root hash
// matches the local cache, the cached list is returned without touching
// the blob endpoint; otherwise the root index is read and every entry's
// schema and metadata are fetched concurrently to build fresh Document
// records, which replace the cache under the new root hash.
//
// Soft-deleted documents are filtered out. Result order is arbitrary;
// callers sort for display.
func (c *Client) Sync(ctx context.Context) ([]document.Document, error) {
	start := time.Now()

	root, err := c.GetRoot(ctx)
	if err != nil {
		metrics.ObserveSync("error", time.Since(start))
		return nil, err
	}

	if c.cache != nil && root.Hash == c.cache.Hash() {
		logging.Debug("root unchanged, serving from cache", zap.String("hash", root.Hash))
		metrics.CacheHit()
		metrics.ObserveSync("cache_hit", time.Since(start))
		return c.cache.Documents(), nil
	}

	entries, err := c.ReadIndex(ctx, root)
	if err != nil {
		metrics.ObserveSync("error", time.Since(start))
		return nil, err
	}

	docs := c.fetchDocuments(ctx, entries)

	if c.cache != nil {
		if err := c.cache.Refresh(root.Hash, docs); err != nil {
			metrics.ObserveSync("error", time.Since(start))
			return nil, err
		}
	}

	logging.Info("sync complete",
		zap.String("root", root.Hash),
		zap.Int("entries", len(entries)),
		zap.Int("documents", len(docs)),
		zap.Duration("took", time.Since(start)))
	metrics.ObserveSync("full", time.Since(start))
	return docs, nil
}

// fetchDocuments resolves root-index entries into Documents with a
// bounded concurrent fan-out: one schema fetch plus one metadata fetch
// per entry. A single entry's failure drops that entry from the result
// rather than failing the sync; enrichment is best effort.
func (c *Client) fetchDocuments(ctx context.Context, entries []index.Entry) []document.Document {
	results := make(chan document.Document, len(entries))
	sem := make(chan struct{}, c.fanOut)
	var wg sync.WaitGroup

	for _, entry := range entries {
		wg.Add(1)
		sem <- struct{}{}

		go func(entry index.Entry) {
			defer wg.Done()
			defer func() { <-sem }()

			doc, err := c.fetchDocument(ctx, entry)
			if err != nil {
				logging.Warn("skipping document",
					zap.String("id", entry.ID),
					zap.Error(err))
				return
			}
			if doc.Deleted {
				return
			}
			results <- doc
		}(entry)
	}

	wg.Wait()
	close(results)

	docs := make([]document.Document, 0, len(entries))
	for doc := range results {
		docs = append(docs, doc)
	}
	return docs
}

// fetchDocument follows one root-index entry to its schema blob, then
// to its metadata blob, and decodes the result.
func (c *Client) fetchDocument(ctx context.Context, entry index.Entry) (document.Document, error) {
	schemaBlob, err := c.FetchBlob(ctx, entry.Hash)
	if err != nil {
		return document.Document{}, fmt.Errorf("fetch schema: %w", err)
	}
	schema, err := index.Parse(string(schemaBlob))
	if err != nil {
		return document.Document{}, err
	}

	metaEntry, ok := document.FindSuffix(schema, "metadata")
	if !ok {
		return document.Document{}, fmt.Errorf("%w: schema for %s has no metadata entry", index.ErrMalformed, entry.ID)
	}

	metaBlob, err := c.FetchBlob(ctx, metaEntry.Hash)
	if err != nil {
		return document.Document{}, fmt.Errorf("fetch metadata: %w", err)
	}

	var meta document.Metadata
	if err := json.Unmarshal(metaBlob, &meta); err != nil {
		return document.Document{}, fmt.Errorf("%w: metadata for %s: %v", index.ErrMalformed, entry.ID, err)
	}

	return document.FromMetadata(entry.ID, meta), nil
}
