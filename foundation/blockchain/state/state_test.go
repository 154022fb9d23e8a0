package state_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/announce/memory"
	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/ardanlabs/powchain/foundation/blockchain/chain"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	storage "github.com/ardanlabs/powchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/powchain/foundation/blockchain/worker"
	"github.com/holiman/uint256"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func target(t *testing.T, exp uint) uint256.Int {
	t.Helper()

	tgt, err := block.Target(exp)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to build a target: %v", failed, err)
	}
	return tgt
}

type failingStorage struct{}

func (failingStorage) Load() ([]block.Block, error) { return nil, errors.New("disk on fire") }
func (failingStorage) Save([]block.Block) error     { return errors.New("disk on fire") }

func Test_LoadSnapshot(t *testing.T) {
	t.Log("Given the need to restore a node from a snapshot.")
	{
		g := block.Genesis()
		a := block.New(g.Hash, "A", uint256.Int{}, "n2")
		b := block.New(a.Hash, "B", uint256.Int{}, "n2")
		bad := block.New(a.Hash, "bad", uint256.Int{}, "n2")
		bad.Payload = "tampered"
		orphan := block.New(*uint256.NewInt(9), "O", uint256.Int{}, "n2")

		t.Logf("\tWhen the snapshot is out of order.")
		{
			strg := storage.NewWithBlocks([]block.Block{b, bad, orphan, g, a})

			st, err := state.New(state.Config{
				NodeID:  "n1",
				Target:  block.MaxTarget(),
				Storage: strg,
			})
			if err != nil {
				t.Fatalf("\t%s\tShould construct the state: %v", failed, err)
			}
			t.Logf("\t%s\tShould construct the state.", success)

			best := st.QueryBest()
			if best.Hash != b.Hash || best.Height != 2 {
				t.Fatalf("\t%s\tShould resolve the chain to height 2: %s", failed, best)
			}
			t.Logf("\t%s\tShould resolve the chain to height 2.", success)

			if len(st.QueryOrphans()) != 1 {
				t.Fatalf("\t%s\tShould keep the orphan: %d", failed, len(st.QueryOrphans()))
			}
			t.Logf("\t%s\tShould keep the orphan.", success)

			if err := st.Save(); err != nil {
				t.Fatalf("\t%s\tShould save the snapshot: %v", failed, err)
			}
			saved, _ := strg.Load()
			if len(saved) != 4 || saved[0].Hash != g.Hash || saved[3].Hash != orphan.Hash {
				t.Fatalf("\t%s\tShould save accepted blocks followed by orphans: %d", failed, len(saved))
			}
			t.Logf("\t%s\tShould save accepted blocks followed by orphans.", success)
		}

		t.Logf("\tWhen the snapshot can't be read.")
		{
			st, err := state.New(state.Config{
				NodeID:  "n1",
				Target:  block.MaxTarget(),
				Storage: failingStorage{},
			})
			if err != nil {
				t.Fatalf("\t%s\tShould still construct the state: %v", failed, err)
			}
			t.Logf("\t%s\tShould still construct the state.", success)

			if st.QueryBest().Hash != g.Hash || len(st.QueryBlocks()) != 1 {
				t.Fatalf("\t%s\tShould start from genesis only.", failed)
			}
			t.Logf("\t%s\tShould start from genesis only.", success)

			if err := st.Shutdown(); err == nil {
				t.Fatalf("\t%s\tShould report the save failure on shutdown.", failed)
			}
			t.Logf("\t%s\tShould report the save failure on shutdown.", success)
		}
	}
}

func Test_ProcessPeerBlock(t *testing.T) {
	t.Log("Given the need to handle blocks received from the network.")
	{
		st, err := state.New(state.Config{
			NodeID: "n1",
			Target: block.MaxTarget(),
		})
		if err != nil {
			t.Fatalf("\t%s\tShould construct the state: %v", failed, err)
		}

		own := block.New(block.Genesis().Hash, "mine", uint256.Int{}, "n1")
		if _, err := st.ProcessPeerBlock(own); !errors.Is(err, state.ErrOwnBlock) {
			t.Fatalf("\t%s\tShould ignore a block from this node: %v", failed, err)
		}
		if len(st.QueryBlocks()) != 1 {
			t.Fatalf("\t%s\tShould not add the ignored block.", failed)
		}
		t.Logf("\t%s\tShould ignore a block from this node.", success)

		peerBlk := block.New(block.Genesis().Hash, "yours", uint256.Int{}, "n2")
		peerBlk.Height = 99
		outcome, err := st.ProcessPeerBlock(peerBlk)
		if err != nil || outcome != chain.Accepted {
			t.Fatalf("\t%s\tShould accept a block from a peer: %s: %v", failed, outcome, err)
		}
		t.Logf("\t%s\tShould accept a block from a peer.", success)

		peers := st.RetrieveKnownPeers()
		if len(peers) != 1 || peers[0].NodeID != "n2" || peers[0].Received != 1 {
			t.Fatalf("\t%s\tShould track the peer: %+v", failed, peers)
		}
		t.Logf("\t%s\tShould track the peer.", success)

		if peers[0].LastHeight != 1 {
			t.Fatalf("\t%s\tShould record the height the chain computed: %d", failed, peers[0].LastHeight)
		}
		t.Logf("\t%s\tShould record the height the chain computed.", success)

		orphan := block.New(*uint256.NewInt(7), "lost", uint256.Int{}, "n2")
		orphan.Height = 500
		if outcome, _ := st.ProcessPeerBlock(orphan); outcome != chain.Orphaned {
			t.Fatalf("\t%s\tShould buffer a block with an unknown parent: %s", failed, outcome)
		}

		peers = st.RetrieveKnownPeers()
		if peers[0].Received != 2 || peers[0].LastHeight != 1 {
			t.Fatalf("\t%s\tShould ignore the height an orphan claims: %+v", failed, peers[0])
		}
		t.Logf("\t%s\tShould ignore the height an orphan claims.", success)

		got, err := st.QueryBlockByHash(peerBlk.Hash)
		if err != nil || got.Height != 1 {
			t.Fatalf("\t%s\tShould find the block at height 1: %v", failed, err)
		}
		if _, err := st.QueryBlockByHash(*uint256.NewInt(1)); !errors.Is(err, state.ErrNotFound) {
			t.Fatalf("\t%s\tShould report an unknown hash: %v", failed, err)
		}
		t.Logf("\t%s\tShould look blocks up by hash.", success)
	}
}

func Test_MineNextBlock(t *testing.T) {
	t.Log("Given the need to mine blocks on top of the best tip.")
	{
		st, err := state.New(state.Config{
			NodeID:   "n1",
			Mine:     true,
			Payload:  "Hi",
			Target:   block.MaxTarget(),
			MaxNonce: target(t, 128),
		})
		if err != nil {
			t.Fatalf("\t%s\tShould construct the state: %v", failed, err)
		}

		for i := 1; i <= 3; i++ {
			b, err := st.MineNextBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tShould mine block %d: %v", failed, i, err)
			}
			if b.Height != i || b.NodeID != "n1" {
				t.Fatalf("\t%s\tShould mine block %d at height %d: %s", failed, i, i, b)
			}
		}
		t.Logf("\t%s\tShould extend its own chain block after block.", success)

		// A peer jumps ahead while this node is still working on top of its
		// own tip. That block loses the race and the one after it moves over.
		best := st.QueryBest()
		p1 := block.New(best.Hash, "p1", uint256.Int{}, "n2")
		p2 := block.New(p1.Hash, "p2", uint256.Int{}, "n2")
		st.ProcessPeerBlock(p1)
		st.ProcessPeerBlock(p2)

		lost, err := st.MineNextBlock(context.Background())
		if err != nil {
			t.Fatalf("\t%s\tShould mine the racing block: %v", failed, err)
		}
		if lost.PrevHash != best.Hash || lost.Height != 4 {
			t.Fatalf("\t%s\tShould finish the block it started on: %s", failed, lost)
		}
		t.Logf("\t%s\tShould finish the block it started on.", success)

		b, err := st.MineNextBlock(context.Background())
		if err != nil {
			t.Fatalf("\t%s\tShould mine after losing a race: %v", failed, err)
		}
		if b.PrevHash != p2.Hash || b.Height != 6 {
			t.Fatalf("\t%s\tShould build on the taller branch: %s", failed, b)
		}
		t.Logf("\t%s\tShould build on the taller branch.", success)

		if status := st.QueryStatus(); status.Mined != 5 || status.BestHeight != 6 || status.Accepted != 8 {
			t.Fatalf("\t%s\tShould report the status: %+v", failed, status)
		}
		t.Logf("\t%s\tShould report the status.", success)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := st.MineNextBlock(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("\t%s\tShould stop when cancelled: %v", failed, err)
		}
		t.Logf("\t%s\tShould stop when cancelled.", success)
	}
}

func Test_Network(t *testing.T) {
	t.Log("Given the need for two nodes to converge over a shared bus.")
	{
		bus := memory.New()

		newNode := func(nodeID string) (*state.State, *storage.Memory) {
			strg := storage.New()

			st, err := state.New(state.Config{
				NodeID:            nodeID,
				Mine:              true,
				Payload:           "Hi",
				Target:            target(t, 250),
				MaxNonce:          target(t, 128),
				Chunk:             50,
				BroadcastInterval: 5,
				Storage:           strg,
				Announcer:         bus.Join(nodeID),
			})
			if err != nil {
				t.Fatalf("\t%s\tShould construct node %s: %v", failed, nodeID, err)
			}

			worker.Run(st, nil)
			return st, strg
		}

		n1, s1 := newNode("n1")
		n2, s2 := newNode("n2")

		deadline := time.Now().Add(20 * time.Second)
		for {
			if seen(n1, "n2") && seen(n2, "n1") && n1.QueryBest().Height >= 6 && n2.QueryBest().Height >= 6 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("\t%s\tShould see blocks from the other node in time.", failed)
			}
			time.Sleep(time.Millisecond)
		}
		t.Logf("\t%s\tShould see blocks from the other node.", success)

		for _, st := range []*state.State{n1, n2} {
			if err := st.Shutdown(); err != nil {
				t.Fatalf("\t%s\tShould shut down cleanly: %v", failed, err)
			}
		}
		t.Logf("\t%s\tShould shut down cleanly.", success)

		for _, strg := range []*storage.Memory{s1, s2} {
			if strg.Saves() != 1 {
				t.Fatalf("\t%s\tShould save a snapshot on shutdown: %d", failed, strg.Saves())
			}
		}
		t.Logf("\t%s\tShould save a snapshot on shutdown.", success)
	}
}

// seen reports whether the node accepted a block mined by nodeID.
func seen(st *state.State, nodeID string) bool {
	for _, b := range st.QueryBlocks() {
		if b.NodeID == nodeID {
			return true
		}
	}
	return false
}
