package block

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// BlockData represents what is serialized to disk and over the network. The
// claimed hash travels with the block so a receiver can detect tampering.
type BlockData struct {
	PrevHash string `json:"prev_hash" yaml:"prev_hash" msgpack:"prev_hash" validate:"required,startswith=0x,len=66"`
	Payload  string `json:"payload" yaml:"payload" msgpack:"payload"`
	Nonce    string `json:"nonce" yaml:"nonce" msgpack:"nonce" validate:"required,startswith=0x"`
	NodeID   string `json:"node_id" yaml:"node_id" msgpack:"node_id"`
	Hash     string `json:"hash" yaml:"hash" msgpack:"hash" validate:"required,startswith=0x,len=66"`
	Height   int    `json:"height" yaml:"height" msgpack:"height"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(b Block) BlockData {
	return BlockData{
		PrevHash: common.Hash(b.PrevHash.Bytes32()).Hex(),
		Payload:  b.Payload,
		Nonce:    b.Nonce.Hex(),
		NodeID:   b.NodeID,
		Hash:     common.Hash(b.Hash.Bytes32()).Hex(),
		Height:   b.Height,
	}
}

// ToBlock converts the serialized form back into a block. Every field is
// taken as is, including the claimed hash; use IsValidClaim to check it.
func ToBlock(bd BlockData) (Block, error) {
	prevHash, err := decodeHash(bd.PrevHash)
	if err != nil {
		return Block{}, fmt.Errorf("prev_hash: %w", err)
	}

	hash, err := decodeHash(bd.Hash)
	if err != nil {
		return Block{}, fmt.Errorf("hash: %w", err)
	}

	nonce, err := uint256.FromHex(bd.Nonce)
	if err != nil {
		return Block{}, fmt.Errorf("nonce: %w", err)
	}

	b := Block{
		PrevHash: prevHash,
		Payload:  bd.Payload,
		Nonce:    *nonce,
		NodeID:   bd.NodeID,
		Hash:     hash,
		Height:   bd.Height,
	}

	return b, nil
}

// NewBlockDataSet converts a list of blocks into their serialized form.
func NewBlockDataSet(blocks []Block) []BlockData {
	data := make([]BlockData, len(blocks))
	for i, b := range blocks {
		data[i] = NewBlockData(b)
	}

	return data
}

// ToBlocks converts a list of serialized blocks, failing on the first bad one.
func ToBlocks(data []BlockData) ([]Block, error) {
	blocks := make([]Block, len(data))
	for i, bd := range data {
		b, err := ToBlock(bd)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		blocks[i] = b
	}

	return blocks, nil
}

// ParseHash parses a 32 byte hex string as used in urls and on the command
// line. The 0x prefix is optional.
func ParseHash(s string) (uint256.Int, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}

	return decodeHash(s)
}

// decodeHash parses a 0x prefixed 32 byte hex string.
func decodeHash(s string) (uint256.Int, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return uint256.Int{}, err
	}

	if len(raw) != common.HashLength {
		return uint256.Int{}, fmt.Errorf("invalid hash length %d, exp %d", len(raw), common.HashLength)
	}

	var h uint256.Int
	h.SetBytes32(raw)
	return h, nil
}
