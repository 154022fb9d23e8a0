// Package chain maintains the set of accepted blocks, the pool of orphan
// blocks and the consensus rules deciding which blocks get accepted.
package chain

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/holiman/uint256"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to construct a chain.
type Config struct {
	Target    uint256.Int  // Hash ceiling for every non genesis block.
	Genesis   *block.Block // Defaults to block.Genesis().
	NodeID    string       // Blocks from this node win height ties.
	EvHandler EventHandler
}

// Chain is the index of accepted and orphaned blocks. The accepted and
// orphan sets are always disjoint, and every accepted block other than
// genesis has its parent accepted before it.
type Chain struct {
	mu sync.RWMutex

	target  uint256.Int
	genesis block.Block
	nodeID  string
	ev      EventHandler

	accepted map[uint256.Int]block.Block
	log      []uint256.Int
	orphans  map[uint256.Int]block.Block
	waiting  map[uint256.Int][]uint256.Int // parent hash -> orphan hashes
	best     block.Block
}

// New constructs a chain holding only the genesis block. The genesis claim
// is verified and a chain is never constructed around a bad one.
func New(cfg Config) (*Chain, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	genesis := block.Genesis()
	if cfg.Genesis != nil {
		genesis = *cfg.Genesis
	}

	c := Chain{
		target:   cfg.Target,
		genesis:  genesis,
		nodeID:   cfg.NodeID,
		ev:       ev,
		accepted: make(map[uint256.Int]block.Block),
		orphans:  make(map[uint256.Int]block.Block),
		waiting:  make(map[uint256.Int][]uint256.Int),
	}

	if outcome := c.addBlock(genesis, true); outcome != Accepted {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidGenesis, genesis.HashHex(), outcome)
	}

	return &c, nil
}

// AddBlock runs a block through the acceptance pipeline. Accepting a block
// may cascade into accepting orphans that were waiting on it.
func (c *Chain) AddBlock(candidate block.Block) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.addBlock(candidate, false)
}

// addBlock performs the acceptance checks in order, stopping at the first
// one that fails. The caller must hold the write lock.
func (c *Chain) addBlock(candidate block.Block, isGenesis bool) Outcome {
	if _, exists := c.accepted[candidate.Hash]; exists {
		c.ev("chain: addBlock: blk[%s]: already have block", candidate.HashHex())
		return Duplicate
	}

	if err := candidate.Validate(); err != nil {
		c.ev("chain: addBlock: blk[%s]: WARNING: dropping block from node[%s]: %s", candidate.HashHex(), candidate.NodeID, err)
		return InvalidHash
	}

	if !isGenesis && !candidate.MeetsTarget(&c.target) {
		c.ev("chain: addBlock: blk[%s]: discarding block, not difficult enough", candidate.HashHex())
		return InsufficientWork
	}

	if !isGenesis {
		if _, exists := c.accepted[candidate.PrevHash]; !exists {
			return c.addOrphan(candidate)
		}
	}

	c.accept(candidate)

	if promoted := c.promoteOrphans(candidate.Hash); promoted > 0 {
		c.ev("chain: addBlock: blk[%s]: promoted orphans[%d]: remaining[%d]", candidate.HashHex(), promoted, len(c.orphans))
	}

	return Accepted
}

// accept computes the height of a block whose parent is accepted and
// inserts it. The block leaves the orphan pool in the same step.
func (c *Chain) accept(b block.Block) {
	b.Height = c.heightOf(b)

	c.accepted[b.Hash] = b
	c.log = append(c.log, b.Hash)
	c.removeOrphan(b.Hash)

	if len(c.log) == 1 || c.better(b, c.best) {
		c.best = b
	}

	c.ev("chain: accept: blk[%s]: height[%d]: node[%s]", b.HashHex(), b.Height, b.NodeID)
}

// addOrphan buffers a block whose parent is unknown. Submitting an orphan
// that is already buffered changes nothing.
func (c *Chain) addOrphan(b block.Block) Outcome {
	if _, exists := c.orphans[b.Hash]; exists {
		return Orphaned
	}

	b.Height = block.HeightUnknown
	c.orphans[b.Hash] = b
	c.waiting[b.PrevHash] = append(c.waiting[b.PrevHash], b.Hash)

	c.ev("chain: addOrphan: blk[%s]: parent[%s]: orphans[%d]", b.HashHex(), block.HexOf(b.PrevHash), len(c.orphans))

	return Orphaned
}

// removeOrphan drops a block from the orphan pool and the parent index.
func (c *Chain) removeOrphan(hash uint256.Int) {
	o, exists := c.orphans[hash]
	if !exists {
		return
	}
	delete(c.orphans, hash)

	siblings := slices.DeleteFunc(c.waiting[o.PrevHash], func(h uint256.Int) bool { return h == hash })
	if len(siblings) == 0 {
		delete(c.waiting, o.PrevHash)
		return
	}
	c.waiting[o.PrevHash] = siblings
}

// promoteOrphans drains a worklist seeded with a freshly accepted hash. Any
// orphan waiting on a hash in the list is accepted and its own hash joins
// the list. Each orphan is accepted at most once so the loop terminates.
func (c *Chain) promoteOrphans(root uint256.Int) int {
	var promoted int

	queue := []uint256.Int{root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		children := slices.Clone(c.waiting[parent])
		for _, hash := range children {
			orphan, exists := c.orphans[hash]
			if !exists {
				continue
			}

			c.accept(orphan)
			promoted++
			queue = append(queue, orphan.Hash)
		}
	}

	return promoted
}

// better reports whether a should be preferred over b as the best tip. The
// higher block wins; on a tie a block from this node wins, then the lower
// hash.
func (c *Chain) better(a, b block.Block) bool {
	if a.Height != b.Height {
		return a.Height > b.Height
	}

	if c.nodeID != "" {
		aOwn := a.NodeID == c.nodeID
		bOwn := b.NodeID == c.nodeID
		if aOwn != bOwn {
			return aOwn
		}
	}

	return a.Hash.Lt(&b.Hash)
}
