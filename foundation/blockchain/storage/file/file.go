// Package file implements the ability to read and write a snapshot of blocks
// to a yaml file on disk.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"gopkg.in/yaml.v3"
)

// File represents the storage implementation for reading and writing the
// full set of blocks as a single yaml document. This implements the
// state.Storage interface.
type File struct {
	mu       sync.Mutex
	loadPath string
	savePath string
}

// New constructs a File value for use. The snapshot is read from loadPath and
// written to savePath, which defaults to loadPath.
func New(loadPath string, savePath string) *File {
	if savePath == "" {
		savePath = loadPath
	}

	return &File{
		loadPath: loadPath,
		savePath: savePath,
	}
}

// LoadPath returns the location snapshots are read from.
func (f *File) LoadPath() string {
	return f.loadPath
}

// SavePath returns the location snapshots are written to.
func (f *File) SavePath() string {
	return f.savePath
}

// Load reads the snapshot from disk. Claimed hashes are kept as stored, it is
// up to the chain to reject the ones that don't match.
func (f *File) Load() ([]block.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.loadPath)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var bds []block.BlockData
	if err := yaml.Unmarshal(data, &bds); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", f.loadPath, err)
	}

	blocks, err := block.ToBlocks(bds)
	if err != nil {
		return nil, fmt.Errorf("converting snapshot %s: %w", f.loadPath, err)
	}

	return blocks, nil
}

// Save writes the snapshot to a temporary file next to the save path and
// then renames it so a crash never leaves a partial snapshot behind.
func (f *File) Save(blocks []block.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(block.NewBlockDataSet(blocks))
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(f.savePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.savePath)+".*")
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.savePath); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	return nil
}
