package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/slatesync/slatesync/internal/logging"
	"github.com/slatesync/slatesync/internal/metrics"
	"github.com/slatesync/slatesync/pkg/retry"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// crc32cHeader computes the upload integrity header: base64 of the
// big-endian CRC32C of the payload, in the "crc32c=<...>" form the
// storage backend verifies.
func crc32cHeader(data []byte) string {
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc32.Checksum(data, castagnoli))
	return "crc32c=" + base64.StdEncoding.EncodeToString(sum[:])
}

// FetchBlob reads the blob named by hash.
func (c *Client) FetchBlob(ctx context.Context, hash string) ([]byte, error) {
	return retry.DoWithResult(ctx, c.retryCfg, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.storageURL+filesPath+hash, nil)
		if err != nil {
			return nil, err
		}
		c.applyAuth(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.BlobRequest("fetch", "network_error")
			return nil, retry.Retryable(err)
		}
		defer resp.Body.Close()

		metrics.BlobRequest("fetch", strconv.Itoa(resp.StatusCode))
		if resp.StatusCode != http.StatusOK {
			return nil, statusError(fmt.Sprintf("fetch blob %s", hash), resp)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, retry.Retryable(fmt.Errorf("read blob %s: %w", hash, err))
		}
		metrics.BlobDownloaded(len(data))
		return data, nil
	})
}

// StoreBlob uploads a blob under its content hash, attaching the
// logical filename, content type, and CRC32C integrity header.
// Re-uploading identical bytes under the same hash is a remote no-op.
func (c *Client) StoreBlob(ctx context.Context, hash, name string, data []byte, contentType string) error {
	checksum := crc32cHeader(data)

	return retry.Do(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.storageURL+filesPath+hash, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.ContentLength = int64(len(data))
		req.Header.Set(headerFilename, name)
		req.Header.Set(headerChecksum, checksum)
		req.Header.Set("Content-Type", contentType)
		c.applyAuth(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.BlobRequest("store", "network_error")
			return retry.Retryable(err)
		}
		defer resp.Body.Close()

		metrics.BlobRequest("store", strconv.Itoa(resp.StatusCode))
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			logging.Error("blob upload rejected",
				zap.String("name", name),
				zap.String("hash", hash),
				zap.Int("status", resp.StatusCode))
			return statusError(fmt.Sprintf("store blob %s (%s)", name, hash), resp)
		}

		metrics.BlobUploaded(len(data))
		return nil
	})
}
