package index

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func TestRootHash_OrderIndependent(t *testing.T) {
	entry1 := NewEntry(strings.Repeat("11", 32), "1", "b-uuid", 100)
	entry2 := NewEntry(strings.Repeat("22", 32), "1", "a-uuid", 100)

	hash1, err := RootHash([]Entry{entry1, entry2})
	if err != nil {
		t.Fatalf("RootHash: %v", err)
	}
	hash2, err := RootHash([]Entry{entry2, entry1})
	if err != nil {
		t.Fatalf("RootHash: %v", err)
	}

	if hash1 != hash2 {
		t.Errorf("hash depends on input order: %s != %s", hash1, hash2)
	}
}

func TestRootHash_Shuffle(t *testing.T) {
	entries := make([]Entry, 20)
	for i := range entries {
		raw := sha256.Sum256([]byte{byte(i)})
		entries[i] = NewEntry(hex.EncodeToString(raw[:]), "0", hex.EncodeToString(raw[:4]), uint64(i))
	}

	want, err := RootHash(entries)
	if err != nil {
		t.Fatalf("RootHash: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]Entry, len(entries))
		copy(shuffled, entries)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got, err := RootHash(shuffled)
		if err != nil {
			t.Fatalf("RootHash: %v", err)
		}
		if got != want {
			t.Fatalf("trial %d: hash changed under permutation", trial)
		}
	}
}

func TestRootHash_Known(t *testing.T) {
	// Digest of the raw bytes of the sorted entry hashes.
	a := strings.Repeat("aa", 32)
	b := strings.Repeat("bb", 32)

	rawA, _ := hex.DecodeString(a)
	rawB, _ := hex.DecodeString(b)
	sum := sha256.Sum256(append(rawA, rawB...))
	want := hex.EncodeToString(sum[:])

	got, err := RootHash([]Entry{
		NewEntry(b, "0", "second", 2),
		NewEntry(a, "0", "first", 1),
	})
	if err != nil {
		t.Fatalf("RootHash: %v", err)
	}
	if got != want {
		t.Errorf("RootHash = %s, want %s", got, want)
	}
}

func TestRootHash_Empty(t *testing.T) {
	got, err := RootHash(nil)
	if err != nil {
		t.Fatalf("RootHash: %v", err)
	}
	sum := sha256.Sum256(nil)
	if got != hex.EncodeToString(sum[:]) {
		t.Errorf("RootHash(nil) = %s", got)
	}
}

func TestRootHash_InvalidHex(t *testing.T) {
	_, err := RootHash([]Entry{NewEntry("not-hex", "0", "x", 1)})
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("RootHash(invalid hex) = %v, want ErrMalformed", err)
	}
}

func TestBlobHash(t *testing.T) {
	sum := sha256.Sum256([]byte("hello"))
	if got := BlobHash([]byte("hello")); got != hex.EncodeToString(sum[:]) {
		t.Errorf("BlobHash = %s", got)
	}
}
