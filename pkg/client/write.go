package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/slatesync/slatesync/internal/logging"
	"github.com/slatesync/slatesync/pkg/document"
	"github.com/slatesync/slatesync/pkg/index"
	"github.com/slatesync/slatesync/pkg/retry"
)

// modifyRootIndex runs one generation-guarded read-modify-write cycle
// against the root index, retrying the whole cycle on commit conflicts.
// transform receives the freshly read entries and returns the entries
// to commit; it runs once per attempt and must not carry state between
// attempts, since a conflict means another writer changed everything it
// saw. Blob uploads inside transform are harmless to repeat: the store
// is content addressed.
func (c *Client) modifyRootIndex(ctx context.Context, transform func(ctx context.Context, entries []index.Entry) ([]index.Entry, error)) error {
	return retry.Do(ctx, c.commitCfg, func() error {
		root, err := c.GetRoot(ctx)
		if err != nil {
			return err
		}
		entries, err := c.ReadIndex(ctx, root)
		if err != nil {
			return err
		}

		next, err := transform(ctx, entries)
		if err != nil {
			return err
		}

		if _, err := c.Commit(ctx, next, root.Generation); err != nil {
			if _, ok := AsConflict(err); ok {
				logging.Warn("root commit conflicted, retrying cycle",
					zap.Uint64("generation", root.Generation))
				return retry.Retryable(err)
			}
			return err
		}
		return nil
	})
}

// CreateDocument uploads fileData as a new document under parentID and
// commits it to the root index. ext selects the document kind, "pdf" or
// "epub". All blobs are uploaded before the commit loop starts; a
// conflict retries only the pointer swap cycle, never the uploads.
// Returns the new document's ID.
func (c *Client) CreateDocument(ctx context.Context, name, ext string, fileData []byte, parentID string) (string, error) {
	if ext != "pdf" && ext != "epub" {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}

	doc, err := document.Compose(name, ext, fileData, parentID, c.now())
	if err != nil {
		return "", err
	}

	for _, b := range doc.Blobs {
		if err := c.StoreBlob(ctx, b.Hash, b.Name, b.Data, b.ContentType); err != nil {
			return "", fmt.Errorf("upload %s: %w", b.Name, err)
		}
	}
	if err := c.StoreBlob(ctx, doc.Schema.Hash, doc.Schema.Name, doc.Schema.Data, doc.Schema.ContentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", doc.Schema.Name, err)
	}

	err = c.modifyRootIndex(ctx, func(ctx context.Context, entries []index.Entry) ([]index.Entry, error) {
		return append(entries, doc.RootEntry), nil
	})
	if err != nil {
		return "", err
	}

	logging.Info("document created",
		zap.String("id", doc.ID),
		zap.String("name", name),
		zap.String("parent", parentID))
	return doc.ID, nil
}

// DeleteDocument removes a document's entry from the root index. The
// document's blobs stay in the store; the service garbage collects
// unreferenced content on its own schedule.
func (c *Client) DeleteDocument(ctx context.Context, docID string) error {
	err := c.modifyRootIndex(ctx, func(ctx context.Context, entries []index.Entry) ([]index.Entry, error) {
		i := index.Find(entries, docID)
		if i < 0 {
			return nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
		}
		return append(entries[:i], entries[i+1:]...), nil
	})
	if err != nil {
		return err
	}

	logging.Info("document deleted", zap.String("id", docID))
	return nil
}

// RenameDocument changes a document's visible name.
func (c *Client) RenameDocument(ctx context.Context, docID, newName string) error {
	return c.updateMetadata(ctx, docID, "rename", func(m *document.Metadata) {
		m.VisibleName = newName
	})
}

// MoveDocument reparents a document. newParentID may be empty for the
// top level, a folder ID, or the trash sentinel.
func (c *Client) MoveDocument(ctx context.Context, docID, newParentID string) error {
	return c.updateMetadata(ctx, docID, "move", func(m *document.Metadata) {
		m.Parent = newParentID
	})
}

// updateMetadata rewrites one document's metadata blob inside the
// commit cycle: the schema and metadata are re-fetched on every attempt
// so a conflicted retry mutates fresh state, not a stale copy.
func (c *Client) updateMetadata(ctx context.Context, docID, op string, mutate func(*document.Metadata)) error {
	err := c.modifyRootIndex(ctx, func(ctx context.Context, entries []index.Entry) ([]index.Entry, error) {
		i := index.Find(entries, docID)
		if i < 0 {
			return nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
		}

		schemaBlob, err := c.FetchBlob(ctx, entries[i].Hash)
		if err != nil {
			return nil, fmt.Errorf("fetch schema: %w", err)
		}
		schema, err := index.Parse(string(schemaBlob))
		if err != nil {
			return nil, err
		}

		metaEntry, ok := document.FindSuffix(schema, "metadata")
		if !ok {
			return nil, fmt.Errorf("%w: schema for %s has no metadata entry", index.ErrMalformed, docID)
		}
		metaBytes, err := c.FetchBlob(ctx, metaEntry.Hash)
		if err != nil {
			return nil, fmt.Errorf("fetch metadata: %w", err)
		}

		rec, err := document.Recompose(docID, schema, metaBytes, mutate, c.now())
		if err != nil {
			return nil, err
		}

		if err := c.StoreBlob(ctx, rec.MetadataBlob.Hash, rec.MetadataBlob.Name, rec.MetadataBlob.Data, rec.MetadataBlob.ContentType); err != nil {
			return nil, fmt.Errorf("upload metadata: %w", err)
		}
		if err := c.StoreBlob(ctx, rec.SchemaBlob.Hash, rec.SchemaBlob.Name, rec.SchemaBlob.Data, rec.SchemaBlob.ContentType); err != nil {
			return nil, fmt.Errorf("upload schema: %w", err)
		}

		entries[i].Hash = rec.SchemaHash
		entries[i].Size = rec.TotalSize
		return entries, nil
	})
	if err != nil {
		return err
	}

	logging.Info("metadata updated", zap.String("id", docID), zap.String("op", op))
	return nil
}

// Download fetches a document's primary file, the PDF or EPUB named by
// its schema. Returns the blob bytes and the logical filename suffix of
// the match.
func (c *Client) Download(ctx context.Context, docID string) ([]byte, string, error) {
	root, err := c.GetRoot(ctx)
	if err != nil {
		return nil, "", err
	}
	entries, err := c.ReadIndex(ctx, root)
	if err != nil {
		return nil, "", err
	}

	i := index.Find(entries, docID)
	if i < 0 {
		return nil, "", fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}

	schemaBlob, err := c.FetchBlob(ctx, entries[i].Hash)
	if err != nil {
		return nil, "", fmt.Errorf("fetch schema: %w", err)
	}
	schema, err := index.Parse(string(schemaBlob))
	if err != nil {
		return nil, "", err
	}

	for _, ext := range []string{"pdf", "epub"} {
		entry, ok := document.FindSuffix(schema, ext)
		if !ok {
			continue
		}
		data, err := c.FetchBlob(ctx, entry.Hash)
		if err != nil {
			return nil, "", fmt.Errorf("fetch %s: %w", entry.ID, err)
		}
		return data, ext, nil
	}
	return nil, "", fmt.Errorf("document %s has no downloadable file: %w", docID, ErrNotFound)
}
