package chain

import (
	"slices"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/holiman/uint256"
)

// HeightOf returns the number of parent links from the block back to
// genesis, or block.HeightBroken when a parent along the way is not accepted.
// The block itself does not need to be accepted.
func (c *Chain) HeightOf(b block.Block) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.heightOf(b)
}

// heightOf walks parent links with a loop, stopping early at the first
// accepted ancestor with a known height. The walk can't take more steps than
// there are accepted blocks. The caller must hold a lock.
func (c *Chain) heightOf(b block.Block) int {
	if b.Hash == c.genesis.Hash {
		return 0
	}

	steps := 1
	parent := b.PrevHash
	for range len(c.accepted) + 1 {
		if parent == c.genesis.Hash {
			return steps
		}

		p, exists := c.accepted[parent]
		if !exists {
			return block.HeightBroken
		}

		if p.Height >= 0 {
			return p.Height + steps
		}

		parent = p.PrevHash
		steps++
	}

	return block.HeightBroken
}

// Best returns the accepted block at the greatest height. Ties go to a block
// mined by this node, then to the lowest hash.
func (c *Chain) Best() block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.best
}

// Genesis returns the genesis block the chain was constructed with.
func (c *Chain) Genesis() block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.accepted[c.genesis.Hash]
}

// Target returns the hash ceiling for non genesis blocks.
func (c *Chain) Target() uint256.Int {
	return c.target
}

// NodeID returns the identity of the node that owns this chain.
func (c *Chain) NodeID() string {
	return c.nodeID
}

// QueryBlock returns the accepted block for the specified hash.
func (c *Chain) QueryBlock(hash uint256.Int) (block.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, exists := c.accepted[hash]
	return b, exists
}

// IsAccepted reports whether the hash belongs to an accepted block.
func (c *Chain) IsAccepted(hash uint256.Int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, exists := c.accepted[hash]
	return exists
}

// IsOrphan reports whether the hash belongs to a buffered orphan.
func (c *Chain) IsOrphan(hash uint256.Int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, exists := c.orphans[hash]
	return exists
}

// Blocks returns a copy of the accepted blocks in the order they were
// accepted. Genesis is always first.
func (c *Chain) Blocks() []block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blocks := make([]block.Block, len(c.log))
	for i, hash := range c.log {
		blocks[i] = c.accepted[hash]
	}

	return blocks
}

// Orphans returns a copy of the buffered orphans ordered by hash.
func (c *Chain) Orphans() []block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	orphans := make([]block.Block, 0, len(c.orphans))
	for _, o := range c.orphans {
		orphans = append(orphans, o)
	}
	slices.SortFunc(orphans, func(a, b block.Block) int { return a.Hash.Cmp(&b.Hash) })

	return orphans
}

// Len returns the number of accepted and orphaned blocks.
func (c *Chain) Len() (accepted int, orphans int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.accepted), len(c.orphans)
}
