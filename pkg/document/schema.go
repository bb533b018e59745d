package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slatesync/slatesync/pkg/index"
)

// MIME types for the blobs that make up a document.
const (
	MimePDF         = "application/pdf"
	MimeEPUB        = "application/epub+zip"
	MimeJSON        = "application/json"
	MimeOctetStream = "application/octet-stream"
	MimeSchema      = "text/plain; charset=UTF-8"
)

// RootEntryType is the type tag the service writes for document entries
// in the root index. Treated as opaque; observed values outside the
// known set are passed through untouched.
const RootEntryType = "80000000"

// SchemaName returns the logical filename of a document's schema blob.
func SchemaName(docID string) string {
	return docID + ".docSchema"
}

// Blob is one uploadable piece of a document: the content-addressed
// bytes plus the logical filename and content type the transport
// attaches on upload.
type Blob struct {
	Hash        string
	Name        string
	Data        []byte
	ContentType string
}

func newBlob(name string, data []byte, contentType string) Blob {
	return Blob{
		Hash:        index.BlobHash(data),
		Name:        name,
		Data:        data,
		ContentType: contentType,
	}
}

// NewDocument is the complete blob set for a freshly composed document.
// All Blobs plus Schema must be uploaded before the RootEntry is
// committed to the root index.
type NewDocument struct {
	ID        string
	Blobs     []Blob
	Schema    Blob
	RootEntry index.Entry
}

// Compose builds the blob set for a new document: content descriptor,
// metadata, empty page data, and the primary file, plus the schema that
// ties them together. ext selects the primary file suffix ("pdf" or
// "epub"); name becomes the visible display name.
func Compose(name, ext string, fileData []byte, parentID string, now time.Time) (*NewDocument, error) {
	id := uuid.NewString()
	timestamp := FormatMillis(now)

	meta := Metadata{
		VisibleName:  name,
		Type:         string(TypeDocument),
		Parent:       parentID,
		CreatedTime:  timestamp,
		LastModified: timestamp,
		Version:      0,
		Synced:       true,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	contentJSON, err := json.Marshal(NewContent(ext))
	if err != nil {
		return nil, fmt.Errorf("encode content descriptor: %w", err)
	}

	fileMime := MimePDF
	if ext == "epub" {
		fileMime = MimeEPUB
	}

	blobs := []Blob{
		newBlob(id+".content", contentJSON, MimeJSON),
		newBlob(id+".metadata", metaJSON, MimeJSON),
		newBlob(id+".pagedata", []byte("Blank\n"), MimeOctetStream),
		newBlob(id+"."+ext, fileData, fileMime),
	}

	entries := make([]index.Entry, 0, len(blobs))
	var totalSize uint64
	for _, b := range blobs {
		entries = append(entries, index.NewEntry(b.Hash, "0", b.Name, uint64(len(b.Data))))
		totalSize += uint64(len(b.Data))
	}

	schemaHash, err := index.RootHash(entries)
	if err != nil {
		return nil, err
	}
	schemaBlob := Blob{
		Hash:        schemaHash,
		Name:        SchemaName(id),
		Data:        []byte(index.Serialize(entries)),
		ContentType: MimeSchema,
	}

	rootEntry := index.Entry{
		Hash:  schemaHash,
		Type:  RootEntryType,
		ID:    id,
		Count: fmt.Sprintf("%d", len(blobs)),
		Size:  totalSize,
	}

	return &NewDocument{
		ID:        id,
		Blobs:     blobs,
		Schema:    schemaBlob,
		RootEntry: rootEntry,
	}, nil
}

// FindSuffix returns the first schema entry whose ID ends in "."+suffix.
// First match in document order wins when duplicates exist.
func FindSuffix(schema []index.Entry, suffix string) (index.Entry, bool) {
	for _, e := range schema {
		if strings.HasSuffix(e.ID, "."+suffix) {
			return e, true
		}
	}
	return index.Entry{}, false
}

// Recomposed is the result of rewriting a document's metadata in place:
// the new metadata and schema blobs to upload, and the updated schema
// state for the root index entry.
type Recomposed struct {
	MetadataBlob Blob
	SchemaBlob   Blob
	Entries      []index.Entry
	SchemaHash   string
	TotalSize    uint64
}

// Recompose decodes the metadata blob of an existing document, applies
// mutate, bumps the version, refreshes the modification timestamp, and
// rebuilds the schema around the new metadata entry. All other schema
// entries are left untouched.
func Recompose(docID string, schema []index.Entry, metadataBytes []byte, mutate func(*Metadata), now time.Time) (*Recomposed, error) {
	metaIdx := -1
	for i, e := range schema {
		if strings.HasSuffix(e.ID, ".metadata") {
			metaIdx = i
			break
		}
	}
	if metaIdx < 0 {
		return nil, fmt.Errorf("%w: schema for %s has no metadata entry", index.ErrMalformed, docID)
	}

	var meta Metadata
	if err := json.Unmarshal(metadataBytes, &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata for %s: %v", index.ErrMalformed, docID, err)
	}

	mutate(&meta)
	meta.Version++
	meta.LastModified = FormatMillis(now)

	newMetaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	metaBlob := newBlob(schema[metaIdx].ID, newMetaJSON, MimeJSON)

	entries := make([]index.Entry, len(schema))
	copy(entries, schema)
	entries[metaIdx].Hash = metaBlob.Hash
	entries[metaIdx].Size = uint64(len(newMetaJSON))

	schemaHash, err := index.RootHash(entries)
	if err != nil {
		return nil, err
	}

	var totalSize uint64
	for _, e := range entries {
		totalSize += e.Size
	}

	return &Recomposed{
		MetadataBlob: metaBlob,
		SchemaBlob: Blob{
			Hash:        schemaHash,
			Name:        SchemaName(docID),
			Data:        []byte(index.Serialize(entries)),
			ContentType: MimeSchema,
		},
		Entries:    entries,
		SchemaHash: schemaHash,
		TotalSize:  totalSize,
	}, nil
}
