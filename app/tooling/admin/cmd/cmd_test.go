package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/ardanlabs/powchain/foundation/blockchain/storage/file"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// resetFlags puts every flag variable back to its default so values set by
// one command line do not carry into the next.
func resetFlags() {
	blocksPath = "zblock/myblocks.yaml"
	targetExponent = 234
	genesisPayload = "Hi"
	maxNonceExp = 128
	startNonceHex = ""
	genesisVerbose = false
	dotOutput = ""
	url = "http://localhost:8080"
}

func execute(t *testing.T, args ...string) string {
	t.Helper()

	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func writeSnapshot(t *testing.T) (string, block.Block) {
	t.Helper()

	g := block.Genesis()
	a := block.New(g.Hash, "A", uint256.Int{}, "n2")
	orphan := block.New(*uint256.NewInt(5), "O", *uint256.NewInt(1), "n2")

	// Both have to meet the 2^255 target the tests run with, otherwise the
	// chain rejects them before they can be accepted or buffered.
	tgt, err := block.Target(255)
	require.NoError(t, err)
	require.True(t, a.MeetsTarget(&tgt))
	require.True(t, orphan.MeetsTarget(&tgt))

	path := filepath.Join(t.TempDir(), "blocks.yaml")
	require.NoError(t, file.New(path, "").Save([]block.Block{g, a, orphan}))

	return path, a
}

func TestInspect(t *testing.T) {
	path, a := writeSnapshot(t)

	out := execute(t, "inspect", "--blocks", path, "--target", "255")

	assert.Contains(t, out, "Block 1: accepted")
	assert.Contains(t, out, "Block 2: orphan")
	assert.Contains(t, out, "Accepted   = 2")
	assert.Contains(t, out, "Orphans    = 1")
	assert.Contains(t, out, "Best       = "+a.HashHex()+"(H=1)")
}

func TestDot(t *testing.T) {
	path, a := writeSnapshot(t)

	out := execute(t, "dot", "--blocks", path, "--target", "255")

	assert.True(t, strings.HasPrefix(out, "digraph blockChain {"))
	assert.Contains(t, out, a.HashHex()+"(H=1)")
	assert.Contains(t, out, "[style=dashed]")
}

func TestFlagsReset(t *testing.T) {
	path, _ := writeSnapshot(t)

	execute(t, "genesis", "--target", "234", "--start", "0xec6e00", "--payload", "Hi")
	out := execute(t, "inspect", "--blocks", path, "--target", "255")

	assert.Empty(t, startNonceHex)
	assert.Contains(t, out, "Accepted   = 2")
}

func TestGenesis(t *testing.T) {
	out := execute(t, "genesis", "--target", "234", "--start", "0xec6e00")

	var data []block.BlockData
	require.NoError(t, yaml.Unmarshal([]byte(out), &data))
	require.Len(t, data, 1)

	g, err := block.ToBlock(data[0])
	require.NoError(t, err)
	assert.Equal(t, block.Genesis(), g)
}
