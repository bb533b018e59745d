// Package index implements the flat text index format used by the sync
// service: one line per content item, colon-delimited, preceded by a
// schema version marker. The same format describes both the root index
// and per-document schemas.
package index

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SchemaVersion is the literal first line of every index blob.
const SchemaVersion = "3"

// ErrMalformed reports an index line, hash, or schema that fails to parse.
var ErrMalformed = errors.New("malformed index")

// Entry is one line of a root index or document schema.
//
// Type and Count are opaque pass-through values: the service writes
// several variants ("0", "4", "80000000", type tags) and rejecting or
// normalizing them would corrupt indexes we did not author. Count is
// validated numeric on parse but its original text is preserved.
type Entry struct {
	Hash  string // lowercase hex digest naming a blob
	Type  string
	ID    string
	Count string
	Size  uint64
}

// NewEntry builds an entry with the usual zero count.
func NewEntry(hash, typ, id string, size uint64) Entry {
	return Entry{Hash: hash, Type: typ, ID: id, Count: "0", Size: size}
}

// ParseLine parses a single hash:type:id:count:size line.
func ParseLine(line string) (Entry, error) {
	parts := strings.Split(line, ":")
	if len(parts) < 5 {
		return Entry{}, fmt.Errorf("%w: expected 5 fields in %q", ErrMalformed, line)
	}

	if _, err := strconv.ParseUint(parts[3], 10, 64); err != nil {
		return Entry{}, fmt.Errorf("%w: bad count in %q", ErrMalformed, line)
	}
	size, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: bad size in %q", ErrMalformed, line)
	}

	return Entry{
		Hash:  parts[0],
		Type:  parts[1],
		ID:    parts[2],
		Count: parts[3],
		Size:  size,
	}, nil
}

// Line renders the entry back to its wire form. Inverse of ParseLine for
// entries whose fields contain no colon.
func (e Entry) Line() string {
	return fmt.Sprintf("%s:%s:%s:%s:%d", e.Hash, e.Type, e.ID, e.Count, e.Size)
}

// Parse decodes a full index blob. The first line is the schema version
// marker and is discarded; blank lines are skipped.
func Parse(text string) ([]Entry, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != SchemaVersion {
		return nil, fmt.Errorf("%w: missing schema version marker", ErrMalformed)
	}

	var entries []Entry
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		entry, err := ParseLine(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Serialize encodes entries as an index blob. Entries are sorted by ID
// so the stored text matches the order RootHash digests them in; the two
// must agree or the blob would not verify against its own hash.
func Serialize(entries []Entry) string {
	sorted := SortedByID(entries)

	var b strings.Builder
	b.WriteString(SchemaVersion)
	b.WriteByte('\n')
	for _, e := range sorted {
		b.WriteString(e.Line())
		b.WriteByte('\n')
	}
	return b.String()
}

// SortedByID returns a copy of entries in ascending ID order.
func SortedByID(entries []Entry) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted
}

// Find returns the index of the entry with the given ID, or -1.
func Find(entries []Entry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
