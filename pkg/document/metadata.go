package document

import (
	"encoding/json"
	"fmt"
)

// Metadata is the per-document metadata blob. The service adds fields
// over time, so unrecognized keys are kept verbatim in Extra and written
// back on re-encode; dropping them would corrupt remote-side state on
// the next metadata update.
type Metadata struct {
	VisibleName      string
	Type             string
	Parent           string
	CreatedTime      string // millisecond epoch, string-encoded
	LastModified     string
	Version          uint64
	Pinned           bool
	Deleted          bool
	MetadataModified bool
	Modified         bool
	Synced           bool

	Extra map[string]json.RawMessage
}

// UnmarshalJSON decodes recognized fields and preserves everything else
// in Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	pop := func(key string, dst interface{}) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("decode metadata field %q: %w", key, err)
		}
		return nil
	}

	fields := []struct {
		key string
		dst interface{}
	}{
		{"visibleName", &m.VisibleName},
		{"type", &m.Type},
		{"parent", &m.Parent},
		{"createdTime", &m.CreatedTime},
		{"lastModified", &m.LastModified},
		{"version", &m.Version},
		{"pinned", &m.Pinned},
		{"deleted", &m.Deleted},
		{"metadataModified", &m.MetadataModified},
		{"modified", &m.Modified},
		{"synced", &m.Synced},
	}
	for _, f := range fields {
		if err := pop(f.key, f.dst); err != nil {
			return err
		}
	}

	if len(raw) > 0 {
		m.Extra = raw
	} else {
		m.Extra = nil
	}
	return nil
}

// MarshalJSON re-encodes the metadata including preserved Extra fields.
// Keys are emitted in sorted order, so the encoding is deterministic and
// stable under decode/encode round trips.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 11+len(m.Extra))
	out["visibleName"] = m.VisibleName
	out["type"] = m.Type
	out["parent"] = m.Parent
	out["createdTime"] = m.CreatedTime
	out["lastModified"] = m.LastModified
	out["version"] = m.Version
	out["pinned"] = m.Pinned
	out["deleted"] = m.Deleted
	out["metadataModified"] = m.MetadataModified
	out["modified"] = m.Modified
	out["synced"] = m.Synced
	for k, v := range m.Extra {
		out[k] = v
	}
	return json.Marshal(out)
}
