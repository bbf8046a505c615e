package cascade

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// BloomFilter is a single dense bit array addressed by SHA-256-derived
// positions. It supports k independent hash positions per element, but the
// cascade (see Cascade, in cascade.go) only ever constructs one with k=1 —
// a single-hash Bloom filter is what the layered construction in §4.2 of
// the design relies on for its false-positive-rate math.
type BloomFilter struct {
	m     uint32 // number of logical bits
	k     int    // number of hash positions per element
	words []atomic.Uint32
}

// NewBloomFilter creates a filter with m logical bits and k hash positions.
// Bits at index >= m are never touched; wordCount = ceil(m/32) words are
// allocated regardless of whether m is a multiple of 32.
func NewBloomFilter(m uint32, k int) *BloomFilter {
	if m == 0 {
		m = 1
	}
	if k <= 0 {
		k = 1
	}
	return &BloomFilter{
		m:     m,
		k:     k,
		words: make([]atomic.Uint32, wordCount(m)),
	}
}

func wordCount(m uint32) int {
	return int((m + 31) / 32)
}

// M returns the number of logical bits.
func (f *BloomFilter) M() uint32 { return f.m }

// K returns the number of hash positions used per element.
func (f *BloomFilter) K() int { return f.k }

// Add sets the k bit positions derived from s. Safe for concurrent use by
// multiple goroutines adding distinct (or overlapping) elements to the same
// filter — cascade construction scans the included set in parallel.
func (f *BloomFilter) Add(s []byte) {
	for _, p := range f.positions(s) {
		wordIdx, bit := p/32, p%32
		f.words[wordIdx].Or(uint32(1) << bit)
	}
}

// Test reports whether all k derived bits are set. It performs no writes
// and is safe for concurrent use once construction has completed.
func (f *BloomFilter) Test(s []byte) bool {
	for _, p := range f.positions(s) {
		wordIdx, bit := p/32, p%32
		if f.words[wordIdx].Load()&(uint32(1)<<bit) == 0 {
			return false
		}
	}
	return true
}

// positions computes the k bit indices for s per the hash-position
// algorithm: H = SHA-256(s); for i in [0,k), read a big-endian uint32 from H
// at byte offset (i*4) mod 29, then reduce it mod m.
//
// The mod-29 offset wraparound makes the 4-byte read windows overlap for
// i >= 8 (i=8 reads from offset 3). That is a known artifact of the format being replicated here, not
// a bug to be fixed — a "corrected" offset (e.g. i*4 mod 28, or
// non-overlapping windows) would silently desynchronize this
// implementation's bit positions from any other implementation of the same
// wire format. It is only ever exercised at i=0 by the cascade itself,
// since the cascade always builds filters with k=1.
func (f *BloomFilter) positions(s []byte) []uint32 {
	h := sha256.Sum256(s)
	out := make([]uint32, f.k)
	for i := 0; i < f.k; i++ {
		offset := (i * 4) % 29
		v := binary.BigEndian.Uint32(h[offset : offset+4])
		out[i] = v % f.m
	}
	return out
}

// Buckets returns a snapshot of the backing word array, for serialization.
func (f *BloomFilter) Buckets() []uint32 {
	out := make([]uint32, len(f.words))
	for i := range f.words {
		out[i] = f.words[i].Load()
	}
	return out
}

// SetBuckets bulk-restores the backing word array, used during
// deserialization. words must have exactly ceil(m/32) entries.
func (f *BloomFilter) SetBuckets(words []uint32) error {
	if len(words) != wordCount(f.m) {
		return fmt.Errorf("cascade: bloom filter expects %d words for m=%d, got %d", wordCount(f.m), f.m, len(words))
	}
	for i, w := range words {
		f.words[i].Store(w)
	}
	return nil
}
