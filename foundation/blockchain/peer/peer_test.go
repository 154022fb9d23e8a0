package peer_test

import (
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{NodeID: "node1"}, {NodeID: "node2"}, {NodeID: "node3"}},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				ps.Add(peer)
			}

			peers := ps.Copy("")
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			peers = ps.Copy("node2")
			if len(peers) != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			ps.Remove(tst.peers[0])
			if len(ps.Copy("")) != len(tst.peers)-1 {
				t.Fatalf("Test %s:\tShould be able to remove a peer.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Received(t *testing.T) {
	ps := peer.NewPeerSet()

	if !ps.Received(peer.New("node1"), 3) {
		t.Fatalf("Should report a new peer on its first block.")
	}
	if ps.Received(peer.New("node1"), 2) {
		t.Fatalf("Should not report a known peer as new.")
	}

	peers := ps.Copy("")
	if len(peers) != 1 {
		t.Fatalf("Should track a single peer: %d", len(peers))
	}

	status := peers[0]
	if status.Received != 2 || status.LastHeight != 3 || status.LastSeen.IsZero() {
		t.Logf("got: %+v", status)
		t.Fatalf("Should count blocks and keep the highest height.")
	}
}
