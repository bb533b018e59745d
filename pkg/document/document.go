// Package document models the logical documents stored by the sync
// service and composes the content-addressed blob sets that represent
// them on the wire.
package document

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Type distinguishes documents from folder-like collections.
type Type string

const (
	TypeDocument   Type = "DocumentType"
	TypeCollection Type = "CollectionType"
)

// TrashParent is the reserved parent id for documents placed in the
// trash container.
const TrashParent = "trash"

// Document is the decoded view of one entry in the root index, enriched
// with its metadata blob.
type Document struct {
	ID           uuid.UUID `json:"id"`
	Version      uint64    `json:"version"`
	Name         string    `json:"name"`
	Type         Type      `json:"type"`
	Parent       string    `json:"parent"`
	LastModified time.Time `json:"modified"`
	Pinned       bool      `json:"pinned"`
	Deleted      bool      `json:"deleted,omitempty"`
}

// IsFolder reports whether the document is a collection.
func (d Document) IsFolder() bool {
	return d.Type == TypeCollection
}

// FromMetadata builds a Document from a decoded metadata blob.
func FromMetadata(id string, m Metadata) Document {
	docID, err := uuid.Parse(id)
	if err != nil {
		docID = uuid.Nil
	}

	typ := TypeDocument
	if m.Type == string(TypeCollection) {
		typ = TypeCollection
	}

	name := m.VisibleName
	if name == "" {
		name = "Unknown"
	}

	return Document{
		ID:           docID,
		Version:      m.Version,
		Name:         name,
		Type:         typ,
		Parent:       m.Parent,
		LastModified: ParseMillis(m.LastModified),
		Pinned:       m.Pinned,
		Deleted:      m.Deleted,
	}
}

// ParseMillis decodes a string-encoded millisecond epoch timestamp.
// Unparseable input yields the zero time.
func ParseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// FormatMillis encodes a timestamp the way the service expects it.
func FormatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
