// Package peer maintains the peer related information such as the set
// of known nodes and how many blocks each one has announced.
package peer

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Peer represents information about a Node in the network.
type Peer struct {
	NodeID string
}

// New contructs a new info value.
func New(nodeID string) Peer {
	return Peer{
		NodeID: nodeID,
	}
}

// Match validates if the specified node id matches this node.
func (p Peer) Match(nodeID string) bool {
	return p.NodeID == nodeID
}

// =============================================================================

// PeerStatus represents information about the status
// of any given peer.
type PeerStatus struct {
	NodeID     string    `json:"node_id"`
	Received   uint64    `json:"received"`
	LastHeight int       `json:"last_height"`
	LastSeen   time.Time `json:"last_seen"`
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[Peer]PeerStatus
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[Peer]PeerStatus),
	}
}

// Add adds a new node to the set. It reports false if the node was known.
func (ps *PeerSet) Add(peer Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[peer]
	if !exists {
		ps.set[peer] = PeerStatus{NodeID: peer.NodeID, LastHeight: -1}
		return true
	}

	return false
}

// Received records a block announced by the node, adding the node to the
// set if needed. It reports true when the node was not known before.
func (ps *PeerSet) Received(peer Peer, height int) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	status, exists := ps.set[peer]
	if !exists {
		status = PeerStatus{NodeID: peer.NodeID, LastHeight: -1}
	}

	status.Received++
	status.LastSeen = time.Now()
	if height > status.LastHeight {
		status.LastHeight = height
	}
	ps.set[peer] = status

	return !exists
}

// Remove removes a node from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer)
}

// Copy returns a list of the known peers, minus the specified node.
func (ps *PeerSet) Copy(nodeID string) []PeerStatus {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var peers []PeerStatus
	for peer, status := range ps.set {
		if !peer.Match(nodeID) {
			peers = append(peers, status)
		}
	}
	slices.SortFunc(peers, func(a, b PeerStatus) int { return strings.Compare(a.NodeID, b.NodeID) })

	return peers
}
