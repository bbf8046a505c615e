package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadIdentifierSetParsesJSONArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ids.json")
	require.NoError(t, os.WriteFile(path, []byte(`["alice", "bob"]`), 0644))

	set, err := readIdentifierSet(path)
	require.NoError(t, err)
	assert.Len(t, set, 2)
	_, ok := set["alice"]
	assert.True(t, ok)
}

func TestReadIdentifierSetRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ids.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0644))

	_, err := readIdentifierSet(path)
	assert.Error(t, err)
}

func TestReadHexFileReturnsContentVerbatim(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.hex")
	require.NoError(t, os.WriteFile(path, []byte("0xdeadbeef"), 0644))

	contents, err := readHexFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", contents)
}
