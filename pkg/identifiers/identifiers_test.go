package identifiers

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandom256BitHexLength(t *testing.T) {
	id, err := Random256BitHex()
	require.NoError(t, err)
	assert.Len(t, id, 64)

	raw, err := hex.DecodeString(id)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestRandom256BitHexIsRandom(t *testing.T) {
	a, err := Random256BitHex()
	require.NoError(t, err)
	b, err := Random256BitHex()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRandomUnique256BitHexAvoidsExclusions(t *testing.T) {
	excluded := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		id, err := RandomUnique256BitHex(excluded)
		require.NoError(t, err)
		_, ok := excluded[id]
		assert.False(t, ok)
		excluded[id] = struct{}{}
	}
}

func TestRandomUnique256BitHexUnionOfExclusions(t *testing.T) {
	setA := map[string]struct{}{"aaaa": {}}
	setB := map[string]struct{}{"bbbb": {}}

	id, err := RandomUnique256BitHex(setA, setB)
	require.NoError(t, err)
	assert.NotEqual(t, "aaaa", id)
	assert.NotEqual(t, "bbbb", id)
}
