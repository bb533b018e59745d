package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/slatesync/slatesync/internal/logging"
	"github.com/slatesync/slatesync/internal/metrics"
	"github.com/slatesync/slatesync/pkg/document"
	"github.com/slatesync/slatesync/pkg/index"
	"github.com/slatesync/slatesync/pkg/retry"
)

// RootInfo is the remote root pointer: the hash of the current root
// index blob and the generation counter guarding it.
type RootInfo struct {
	Hash       string `json:"hash"`
	Generation uint64 `json:"generation"`
}

// GetRoot reads the current root pointer.
func (c *Client) GetRoot(ctx context.Context) (RootInfo, error) {
	return retry.DoWithResult(ctx, c.retryCfg, func() (RootInfo, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.storageURL+rootPath, nil)
		if err != nil {
			return RootInfo{}, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(headerFilename, rootFilename)
		c.applyAuth(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return RootInfo{}, retry.Retryable(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return RootInfo{}, statusError("get root", resp)
		}

		var root RootInfo
		if err := json.NewDecoder(resp.Body).Decode(&root); err != nil {
			return RootInfo{}, fmt.Errorf("decode root info: %w", err)
		}
		return root, nil
	})
}

// ReadIndex fetches and parses the root index blob the pointer names.
func (c *Client) ReadIndex(ctx context.Context, root RootInfo) ([]index.Entry, error) {
	blob, err := c.FetchBlob(ctx, root.Hash)
	if err != nil {
		return nil, fmt.Errorf("read root index: %w", err)
	}
	entries, err := index.Parse(string(blob))
	if err != nil {
		return nil, fmt.Errorf("parse root index %s: %w", root.Hash, err)
	}
	return entries, nil
}

// Commit installs a new root index: it computes the canonical root
// hash, stores the serialized index blob, and swaps the root pointer
// conditioned on the generation observed when the cycle started. A
// stale generation fails with ConflictError and the caller must repeat
// the whole read-modify-write cycle; the commit itself is never blindly
// reissued.
func (c *Client) Commit(ctx context.Context, entries []index.Entry, generation uint64) (string, error) {
	rootHash, err := index.RootHash(entries)
	if err != nil {
		return "", err
	}

	if err := c.StoreBlob(ctx, rootHash, rootSchemaName, []byte(index.Serialize(entries)), document.MimeSchema); err != nil {
		return "", fmt.Errorf("store root index: %w", err)
	}

	if err := c.updateRoot(ctx, rootHash, generation); err != nil {
		return "", err
	}

	logging.Debug("root committed",
		zap.String("hash", rootHash),
		zap.Uint64("generation", generation),
		zap.Int("entries", len(entries)))
	return rootHash, nil
}

// updateRoot swaps the root pointer via the generation-conditioned PUT.
func (c *Client) updateRoot(ctx context.Context, hash string, generation uint64) error {
	body, err := json.Marshal(struct {
		Hash       string `json:"hash"`
		Generation uint64 `json:"generation"`
		Broadcast  bool   `json:"broadcast"`
	}{hash, generation, true})
	if err != nil {
		return err
	}

	return retry.Do(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.storageURL+rootPath, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(headerFilename, rootFilename)
		c.applyAuth(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.Retryable(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed {
			metrics.CommitConflict()
			return &ConflictError{Hash: hash, Generation: generation}
		}
		if resp.StatusCode != http.StatusOK {
			return statusError("update root", resp)
		}
		return nil
	})
}
