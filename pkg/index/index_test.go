package index

import (
	"errors"
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	line := "aabbcc:1:uuid-1234:0:1024"
	entry, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}

	if entry.Hash != "aabbcc" {
		t.Errorf("Hash = %q, want aabbcc", entry.Hash)
	}
	if entry.Type != "1" {
		t.Errorf("Type = %q, want 1", entry.Type)
	}
	if entry.ID != "uuid-1234" {
		t.Errorf("ID = %q, want uuid-1234", entry.ID)
	}
	if entry.Count != "0" {
		t.Errorf("Count = %q, want 0", entry.Count)
	}
	if entry.Size != 1024 {
		t.Errorf("Size = %d, want 1024", entry.Size)
	}

	if got := entry.Line(); got != line {
		t.Errorf("Line() = %q, want %q", got, line)
	}
}

func TestParseLine_Malformed(t *testing.T) {
	tests := []string{
		"",
		"aabb:1:id",             // too few fields
		"aabb:1:id:0:notanum",   // bad size
		"aabb:1:id:notanum:100", // bad count
	}
	for _, line := range tests {
		if _, err := ParseLine(line); !errors.Is(err, ErrMalformed) {
			t.Errorf("ParseLine(%q) = %v, want ErrMalformed", line, err)
		}
	}
}

func TestParse(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	text := "3\n" + hash + ":DocumentType:00000000-0000-0000-0000-000000000001:1:100\n"

	entries, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].ID != "00000000-0000-0000-0000-000000000001" {
		t.Errorf("ID = %q", entries[0].ID)
	}
	if entries[0].Size != 100 {
		t.Errorf("Size = %d, want 100", entries[0].Size)
	}

	// Re-serializing already-sorted input reproduces the identical text.
	if got := Serialize(entries); got != text {
		t.Errorf("Serialize = %q, want %q", got, text)
	}
}

func TestParse_SkipsBlankLines(t *testing.T) {
	text := "3\n\naabb:0:x:0:1\n\n"
	entries, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

func TestParse_MissingVersionMarker(t *testing.T) {
	if _, err := Parse("aabb:0:x:0:1\n"); !errors.Is(err, ErrMalformed) {
		t.Errorf("Parse without marker = %v, want ErrMalformed", err)
	}
	if _, err := Parse(""); !errors.Is(err, ErrMalformed) {
		t.Errorf("Parse(empty) = %v, want ErrMalformed", err)
	}
}

func TestSerialize_SortsByID(t *testing.T) {
	entries := []Entry{
		NewEntry("bb", "0", "b-uuid", 2),
		NewEntry("aa", "0", "a-uuid", 1),
	}

	text := Serialize(entries)
	want := "3\naa:0:a-uuid:0:1\nbb:0:b-uuid:0:2\n"
	if text != want {
		t.Errorf("Serialize = %q, want %q", text, want)
	}

	// Input slice order must be untouched.
	if entries[0].ID != "b-uuid" {
		t.Error("Serialize mutated its input")
	}
}

func TestRoundTrip(t *testing.T) {
	entries := []Entry{
		NewEntry("00ff", "DocumentType", "a-uuid", 42),
		{Hash: "ab01", Type: "80000000", ID: "b-uuid", Count: "4", Size: 9000},
	}

	parsed, err := Parse(Serialize(entries))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(parsed), len(entries))
	}
	for i, e := range parsed {
		if e != entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, e, entries[i])
		}
	}
}

func TestFind(t *testing.T) {
	entries := []Entry{
		NewEntry("aa", "0", "one", 1),
		NewEntry("bb", "0", "two", 2),
	}
	if i := Find(entries, "two"); i != 1 {
		t.Errorf("Find(two) = %d, want 1", i)
	}
	if i := Find(entries, "missing"); i != -1 {
		t.Errorf("Find(missing) = %d, want -1", i)
	}
}
