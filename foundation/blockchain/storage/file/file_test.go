package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/ardanlabs/powchain/foundation/blockchain/storage/file"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blocks() []block.Block {
	g := block.Genesis()
	a := block.New(g.Hash, "A: with a colon", *uint256.NewInt(99), "n1")
	a.Height = 1

	tampered := block.New(a.Hash, "B", uint256.Int{}, "n2")
	tampered.Payload = "changed"

	return []block.Block{g, a, tampered}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zblock", "myblocks.yaml")
	f := file.New(path, "")

	assert.Equal(t, path, f.SavePath())

	exp := blocks()
	require.NoError(t, f.Save(exp))

	got, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, exp, got)
	assert.False(t, got[2].IsValidClaim())
}

func TestSeparateSavePath(t *testing.T) {
	dir := t.TempDir()
	loadPath := filepath.Join(dir, "myblocks.yaml")
	savePath := filepath.Join(dir, "myblocks.yaml.123")

	f := file.New(loadPath, savePath)
	require.NoError(t, f.Save(blocks()))

	_, err := os.Stat(savePath)
	require.NoError(t, err)

	_, err = f.Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myblocks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- prev_hash: [not, a, hash"), 0600))

	_, err := file.New(path, "").Load()
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("- prev_hash: \"0x12\"\n  hash: \"0x12\"\n  nonce: \"0x0\"\n"), 0600))

	_, err = file.New(path, "").Load()
	assert.Error(t, err)
}
