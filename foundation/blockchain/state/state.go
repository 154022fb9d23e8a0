// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/ardanlabs/powchain/foundation/blockchain/chain"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/holiman/uint256"
	"go.uber.org/multierr"
)

// DefaultBroadcastInterval is the height interval at which a node spams the
// network with every block it knows.
const DefaultBroadcastInterval = 10

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and block announcements.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
	SignalAnnounce(b block.Block)
	SignalAnnounceAll()
}

// Storage interface represents the behavior required to be implemented by
// any package providing support for persisting a snapshot of the chain.
type Storage interface {
	Load() ([]block.Block, error)
	Save(blocks []block.Block) error
}

// Announcer interface represents the behavior required to be implemented by
// any package providing support for sharing blocks with the network.
type Announcer interface {
	Publish(ctx context.Context, b block.Block) error
	Subscribe(fn func(b block.Block))
	Close() error
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	NodeID            string
	Mine              bool
	Payload           string
	Target            uint256.Int
	MaxNonce          uint256.Int
	Chunk             uint64
	BroadcastInterval int
	MinLag            time.Duration
	MaxLag            time.Duration
	Genesis           *block.Block
	Storage           Storage
	Announcer         Announcer
	KnownPeers        *peer.PeerSet
	EvHandler         EventHandler
}

// State manages the blockchain node.
type State struct {
	nodeID            string
	mine              bool
	payload           string
	maxNonce          uint256.Int
	chunk             uint64
	broadcastInterval int
	minLag            time.Duration
	maxLag            time.Duration
	evHandler         EventHandler
	started           time.Time

	chain      *chain.Chain
	storage    Storage
	announcer  Announcer
	knownPeers *peer.PeerSet

	mu         sync.Mutex
	nextParent uint256.Int
	mined      int

	Worker Worker
}

// New constructs a new blockchain node. A snapshot that can't be loaded is
// reported and the node starts from genesis only.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.NodeID == "" {
		return nil, errors.New("node id is required")
	}

	chn, err := chain.New(chain.Config{
		Target:    cfg.Target,
		Genesis:   cfg.Genesis,
		NodeID:    cfg.NodeID,
		EvHandler: chain.EventHandler(ev),
	})
	if err != nil {
		return nil, fmt.Errorf("constructing chain: %w", err)
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	broadcastInterval := cfg.BroadcastInterval
	if broadcastInterval <= 0 {
		broadcastInterval = DefaultBroadcastInterval
	}

	maxLag := max(cfg.MaxLag, cfg.MinLag)

	state := State{
		nodeID:            cfg.NodeID,
		mine:              cfg.Mine,
		payload:           cfg.Payload,
		maxNonce:          cfg.MaxNonce,
		chunk:             cfg.Chunk,
		broadcastInterval: broadcastInterval,
		minLag:            cfg.MinLag,
		maxLag:            maxLag,
		evHandler:         ev,
		started:           time.Now(),

		chain:      chn,
		storage:    cfg.Storage,
		announcer:  cfg.Announcer,
		knownPeers: knownPeers,
	}

	state.load()
	state.nextParent = chn.Best().Hash

	if state.announcer != nil {
		state.announcer.Subscribe(func(b block.Block) {
			state.ProcessPeerBlock(b)
		})
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down. The snapshot is saved even if the
// announcer fails to close.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the worker stops mining and announcing.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	var err error
	if s.announcer != nil {
		s.evHandler("state: shutdown: close announcer")
		if cerr := s.announcer.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("closing announcer: %w", cerr))
		}
	}

	if serr := s.Save(); serr != nil {
		err = multierr.Append(err, serr)
	}

	return err
}

// IsMiningAllowed identifies if this node is allowed to mine blocks.
func (s *State) IsMiningAllowed() bool {
	return s.mine
}

// Lag returns a random duration in [MinLag, MaxLag] used to delay block
// announcements so races happen on a local network.
func (s *State) Lag() time.Duration {
	if s.maxLag <= s.minLag {
		return s.minLag
	}

	return s.minLag + rand.N(s.maxLag-s.minLag+1)
}

// Chain returns the chain this node maintains.
func (s *State) Chain() *chain.Chain {
	return s.chain
}

// =============================================================================

// load feeds the stored snapshot through the acceptance pipeline. Order in
// the snapshot does not matter, orphans are resolved as parents show up.
func (s *State) load() {
	if s.storage == nil {
		return
	}

	blocks, err := s.storage.Load()
	if err != nil {
		s.evHandler("state: load: WARNING: starting with genesis only: %s", err)
		return
	}

	counts := make(map[chain.Outcome]int)
	for _, b := range blocks {
		counts[s.chain.AddBlock(b)]++
	}

	accepted, orphans := s.chain.Len()
	s.evHandler("state: load: blocks[%d]: accepted[%d]: rejected[%d]: chain[%d]: orphans[%d]",
		len(blocks), counts[chain.Accepted], counts[chain.InvalidHash]+counts[chain.InsufficientWork], accepted, orphans)

	updateChainMetrics(s.chain)
}
