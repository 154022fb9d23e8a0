package state

import (
	"errors"
	"io"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/holiman/uint256"
)

// ErrNotFound is returned when a block is not part of the chain.
var ErrNotFound = errors.New("block not found")

// Status represents a summary of the node.
type Status struct {
	NodeID     string            `json:"node_id"`
	Mining     bool              `json:"mining"`
	BestHash   string            `json:"best_hash"`
	BestHeight int               `json:"best_height"`
	Accepted   int               `json:"accepted"`
	Orphans    int               `json:"orphans"`
	Mined      int               `json:"mined"`
	Target     string            `json:"target"`
	Uptime     string            `json:"uptime"`
	KnownPeers []peer.PeerStatus `json:"known_peers"`
}

// QueryStatus returns a summary of the node.
func (s *State) QueryStatus() Status {
	best := s.chain.Best()
	accepted, orphans := s.chain.Len()

	s.mu.Lock()
	mined := s.mined
	s.mu.Unlock()

	return Status{
		NodeID:     s.nodeID,
		Mining:     s.mine,
		BestHash:   best.HashHex(),
		BestHeight: best.Height,
		Accepted:   accepted,
		Orphans:    orphans,
		Mined:      mined,
		Target:     block.Scientific(s.chain.Target()),
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		KnownPeers: s.RetrieveKnownPeers(),
	}
}

// QueryBlocks returns the accepted blocks in acceptance order.
func (s *State) QueryBlocks() []block.Block {
	return s.chain.Blocks()
}

// QueryOrphans returns the buffered orphans.
func (s *State) QueryOrphans() []block.Block {
	return s.chain.Orphans()
}

// QueryBest returns the best tip.
func (s *State) QueryBest() block.Block {
	return s.chain.Best()
}

// QueryBlockByHash returns the accepted block for the specified hash.
func (s *State) QueryBlockByHash(hash uint256.Int) (block.Block, error) {
	b, exists := s.chain.QueryBlock(hash)
	if !exists {
		return block.Block{}, ErrNotFound
	}

	return b, nil
}

// WriteDot writes the chain as a graphviz digraph.
func (s *State) WriteDot(w io.Writer) error {
	return s.chain.WriteDot(w)
}

// RetrieveNodeID returns the identity of this node.
func (s *State) RetrieveNodeID() string {
	return s.nodeID
}

// RetrieveGenesis returns a copy of the genesis block.
func (s *State) RetrieveGenesis() block.Block {
	return s.chain.Genesis()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.PeerStatus {
	return s.knownPeers.Copy(s.nodeID)
}
