// Package memory implements the ability to read and write a snapshot of
// blocks to memory using a slice.
package memory

import (
	"errors"
	"slices"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// Memory represents the storage implementation for reading and writing
// snapshots in memory using a slice. This implements the state.Storage
// interface.
type Memory struct {
	mu     sync.RWMutex
	blocks []block.Block
	saved  bool
	saves  int
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{}
}

// NewWithBlocks constructs a Memory value that already holds a snapshot.
func NewWithBlocks(blocks []block.Block) *Memory {
	return &Memory{
		blocks: slices.Clone(blocks),
		saved:  true,
	}
}

// Load returns a copy of the last saved snapshot.
func (m *Memory) Load() ([]block.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.saved {
		return nil, ErrNoSnapshot
	}

	return slices.Clone(m.blocks), nil
}

// Save replaces the snapshot with a copy of the specified blocks.
func (m *Memory) Save(blocks []block.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = slices.Clone(blocks)
	m.saved = true
	m.saves++

	return nil
}

// Saves returns the number of times Save was called.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.saves
}

// Reset will clear out the snapshot.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = nil
	m.saved = false
}
