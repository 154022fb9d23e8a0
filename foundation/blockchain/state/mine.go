package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/ardanlabs/powchain/foundation/blockchain/chain"
	"github.com/ardanlabs/powchain/foundation/blockchain/miner"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/holiman/uint256"
	"go.uber.org/multierr"
)

// ErrOwnBlock is returned when a block this node mined comes back from the
// network.
var ErrOwnBlock = errors.New("block was mined by this node")

// =============================================================================

// MineNextBlock searches for the next block atop the current parent, adds it
// to the chain, picks the parent for the following search and signals the
// worker to announce it. This can be cancelled.
func (s *State) MineNextBlock(ctx context.Context) (block.Block, error) {
	s.mu.Lock()
	parent := s.nextParent
	s.mu.Unlock()

	// Never start on top of something that is not part of the chain.
	if !s.chain.IsAccepted(parent) {
		parent = s.chain.Best().Hash
	}

	s.evHandler("state: MineNextBlock: MINING: perform POW: prevBlk[%s]", block.HexOf(parent))

	cfg := miner.Config{
		Target:    s.chain.Target(),
		MaxNonce:  s.maxNonce,
		Chunk:     s.chunk,
		NodeID:    s.nodeID,
		EvHandler: miner.EventHandler(s.evHandler),
	}

	res, err := miner.Search(ctx, cfg, s.chain, parent, s.payload)
	hashesTotal.Add(float64(res.Attempts))
	retargetsTotal.Add(float64(res.Retargets))
	if err != nil {
		return block.Block{}, err
	}
	hashRate.Set(res.HashRate())

	outcome := s.chain.AddBlock(res.Block)
	recordOutcome(sourceMined, outcome)
	updateChainMetrics(s.chain)
	if outcome != chain.Accepted {
		return block.Block{}, fmt.Errorf("mined block rejected: %s: %w", outcome, outcome.Err())
	}

	// Pick up the height the chain computed for the block.
	mined, _ := s.chain.QueryBlock(res.Block.Hash)

	s.evHandler("state: MineNextBlock: MINING: found block: blk[%s]: height[%d]: attempts[%d]: duration[%v]", mined.HashHex(), mined.Height, res.Attempts, res.Duration)

	s.mu.Lock()
	s.mined++
	s.nextParent = s.selectNextParent(mined)
	s.mu.Unlock()

	if s.Worker != nil {
		s.Worker.SignalAnnounce(mined)

		// At every broadcast interval, spam everyone with every block we have.
		if mined.Height%s.broadcastInterval == 0 {
			s.evHandler("state: MineNextBlock: height[%d]: signal announce all", mined.Height)
			s.Worker.SignalAnnounceAll()
		}
	}

	return mined, nil
}

// selectNextParent decides what the following search builds on. A taller
// best tip means a lost race; a different tip at the same height is a race
// and this node sticks with its own block.
func (s *State) selectNextParent(mined block.Block) uint256.Int {
	best := s.chain.Best()

	switch {
	case best.Height > mined.Height:
		s.evHandler("state: selectNextParent: LOST A BLOCK RACE: best[%s]: height[%d]", best.HashHex(), best.Height)
		return best.Hash

	case best.Hash != mined.Hash:
		s.evHandler("state: selectNextParent: BLOCK RACE: best[%s]: mined[%s]", best.HashHex(), mined.HashHex())
		return mined.Hash

	default:
		s.evHandler("state: selectNextParent: mining atop own block[%s]", mined.HashHex())
		return mined.Hash
	}
}

// ProcessPeerBlock takes a block received from the network and runs it
// through the acceptance pipeline. Blocks mined by this node are ignored.
func (s *State) ProcessPeerBlock(b block.Block) (chain.Outcome, error) {
	if b.NodeID == s.nodeID {
		return 0, ErrOwnBlock
	}

	outcome := s.chain.AddBlock(b)
	recordOutcome(sourcePeer, outcome)
	updateChainMetrics(s.chain)

	// The height the peer claims is never trusted, only the one the chain
	// computed when it accepted the block.
	height := block.HeightBroken
	if accepted, exists := s.chain.QueryBlock(b.Hash); exists {
		height = accepted.Height
	}
	s.knownPeers.Received(peer.New(b.NodeID), height)

	s.evHandler("state: ProcessPeerBlock: blk[%s]: node[%s]: outcome[%s]", b.HashHex(), b.NodeID, outcome)

	return outcome, nil
}

// =============================================================================

// Announce publishes a single block to the network.
func (s *State) Announce(ctx context.Context, b block.Block) error {
	if s.announcer == nil {
		return nil
	}

	if err := s.announcer.Publish(ctx, b); err != nil {
		return err
	}
	announcedTotal.Inc()

	return nil
}

// AnnounceAll publishes every accepted block to the network.
func (s *State) AnnounceAll(ctx context.Context) error {
	var err error
	for _, b := range s.chain.Blocks() {
		if ctx.Err() != nil {
			return multierr.Append(err, ctx.Err())
		}

		if perr := s.Announce(ctx, b); perr != nil {
			err = multierr.Append(err, fmt.Errorf("blk[%s]: %w", b.HashHex(), perr))
		}
	}

	return err
}

// Save writes a snapshot of the accepted blocks, in acceptance order,
// followed by the orphans.
func (s *State) Save() error {
	if s.storage == nil {
		return nil
	}

	blocks := append(s.chain.Blocks(), s.chain.Orphans()...)

	s.evHandler("state: Save: blocks[%d]", len(blocks))

	if err := s.storage.Save(blocks); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	return nil
}
