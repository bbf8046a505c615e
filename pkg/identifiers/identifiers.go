// Package identifiers generates the random 256-bit hex-encoded identifiers
// used as credential IDs, padding filler, and cascade salts.
package identifiers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Random256BitHex draws 32 bytes from a cryptographically secure source and
// returns them as a 64-character lowercase hex string.
func Random256BitHex() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("identifiers: failed to generate random id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// excludeSet is anything that can answer "have I already used this id".
// Both a single set and a union of two sets satisfy it, which is all the
// padding step in pkg/cascade needs.
type excludeSet interface {
	has(id string) bool
}

type mapSet map[string]struct{}

func (s mapSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

type unionSet []excludeSet

func (u unionSet) has(id string) bool {
	for _, s := range u {
		if s.has(id) {
			return true
		}
	}
	return false
}

// RandomUnique256BitHex draws fresh 256-bit hex identifiers until it finds
// one absent from every supplied exclusion set, then returns it. It is used
// by cascade padding to avoid accidentally drawing an id that already
// belongs to the valid or revoked set.
func RandomUnique256BitHex(exclude ...map[string]struct{}) (string, error) {
	sets := make(unionSet, len(exclude))
	for i, m := range exclude {
		sets[i] = mapSet(m)
	}

	// A collision against a 256-bit space is astronomically unlikely; this
	// loop is a correctness guarantee, not a performance concern.
	for {
		id, err := Random256BitHex()
		if err != nil {
			return "", err
		}
		if !sets.has(id) {
			return id, nil
		}
	}
}
