package block

import "github.com/holiman/uint256"

// GenesisNodeID identifies the genesis block as not produced by any node.
const GenesisNodeID = "genesis"

// Genesis returns the hard coded first block shared by every node on the
// network. It was mined once against a target of 2^234 and its claimed hash
// is still verified whenever a chain is constructed.
func Genesis() Block {
	return Block{
		Payload: "Hi",
		Nonce:   *uint256.MustFromHex("0xec6eda"),
		NodeID:  GenesisNodeID,
		Hash:    *uint256.MustFromHex("0x30d9b9d239da497e15a88181701577baab5a016ea999e63d35d4c8ed620"),
		Height:  0,
	}
}
