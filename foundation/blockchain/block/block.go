// Package block provides the block data model and the hash based validity
// rules every block must satisfy.
package block

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	sha256 "github.com/minio/sha256-simd"
)

// Height sentinels. A block's height is only meaningful once the chain has
// accepted it.
const (
	HeightUnknown = -2 // Height has not been computed yet.
	HeightBroken  = -1 // Ancestry does not reach genesis within known blocks.
)

// ErrClaimMismatch is returned by Validate when the hash carried by a block
// is not the hash of its header.
var ErrClaimMismatch = errors.New("claimed hash does not match header")

// =============================================================================

// Block represents a single unit of the chain. Only PrevHash, Payload and
// Nonce are committed to by the hash. NodeID is diagnostic and Height is
// derived by the chain.
type Block struct {
	PrevHash uint256.Int // Hash of the parent block, zero for genesis.
	Payload  string      // Opaque content of the block.
	Nonce    uint256.Int // Value identified to solve the hash puzzle.
	NodeID   string      // Node that produced the block.
	Hash     uint256.Int // Claimed hash of the header.
	Height   int         // Steps back to genesis, set by the chain.
}

// New constructs a block and derives its hash from the header fields.
func New(prevHash uint256.Int, payload string, nonce uint256.Int, nodeID string) Block {
	b := Block{
		PrevHash: prevHash,
		Payload:  payload,
		Nonce:    nonce,
		NodeID:   nodeID,
		Height:   HeightUnknown,
	}
	b.UpdateHash()

	return b
}

// Header returns the deterministic encoding of the fields the hash commits
// to: the parent hash as 64 hex digits, the payload and the nonce in hex,
// separated by colons.
func (b Block) Header() []byte {
	prev := b.PrevHash.Bytes32()
	nonce := strings.TrimPrefix(b.Nonce.Hex(), "0x")

	buf := make([]byte, 0, 64+len(b.Payload)+len(nonce)+2)
	buf = hex.AppendEncode(buf, prev[:])
	buf = append(buf, ':')
	buf = append(buf, b.Payload...)
	buf = append(buf, ':')
	buf = append(buf, nonce...)

	return buf
}

// ComputeHash hashes the header and returns the digest as a big endian
// integer. It does not modify the block.
func (b Block) ComputeHash() uint256.Int {
	sum := sha256.Sum256(b.Header())

	var h uint256.Int
	h.SetBytes32(sum[:])
	return h
}

// UpdateHash stores the hash of the current header as the block's hash.
func (b *Block) UpdateHash() {
	b.Hash = b.ComputeHash()
}

// IncrementNonce moves the nonce forward by one, wrapping to zero once it
// passes maxNonce, and re-derives the hash.
func (b *Block) IncrementNonce(maxNonce *uint256.Int) {
	if b.Nonce.Cmp(maxNonce) >= 0 {
		b.Nonce.Clear()
	} else {
		b.Nonce.AddUint64(&b.Nonce, 1)
	}
	b.UpdateHash()
}

// SetParent points the block at a different parent and re-derives the hash.
func (b *Block) SetParent(prevHash uint256.Int) {
	b.PrevHash = prevHash
	b.Height = HeightUnknown
	b.UpdateHash()
}

// IsValidClaim reports whether the stored hash is the hash of the header.
func (b Block) IsValidClaim() bool {
	h := b.ComputeHash()
	return b.Hash.Eq(&h)
}

// Validate returns ErrClaimMismatch when the stored hash can't be reproduced.
func (b Block) Validate() error {
	h := b.ComputeHash()
	if !b.Hash.Eq(&h) {
		return fmt.Errorf("%w: claimed %s, computed %s", ErrClaimMismatch, HexOf(b.Hash), HexOf(h))
	}

	return nil
}

// MeetsTarget reports whether the hash is numerically at or below target.
func (b Block) MeetsTarget(target *uint256.Int) bool {
	return !b.Hash.Gt(target)
}

// IsGenesisParent reports whether the block claims to have no parent.
func (b Block) IsGenesisParent() bool {
	return b.PrevHash.IsZero()
}

// HashHex returns the hash as 64 zero padded hex digits.
func (b Block) HashHex() string {
	return HexOf(b.Hash)
}

// String implements the fmt.Stringer interface.
func (b Block) String() string {
	return fmt.Sprintf("%s(H=%d) from %s", b.HashHex(), b.Height, b.NodeID)
}

// Info returns a multi line description of the block for diagnostics.
func (b Block) Info() string {
	validity := "VALID"
	if !b.IsValidClaim() {
		validity = "INVALID"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "HexHeader  = %s\n", b.Header())
	fmt.Fprintf(&sb, "HexDigest  = %s\n", b.HashHex())
	fmt.Fprintf(&sb, "DecDigest  = %s\n", b.Hash.Dec())
	fmt.Fprintf(&sb, "DecNonce   = %s\n", b.Nonce.Dec())
	fmt.Fprintf(&sb, "Difficulty = %s\n", Scientific(b.Hash))
	fmt.Fprintf(&sb, "Validity   = %s\n", validity)
	fmt.Fprintf(&sb, "Height     = %d\n", b.Height)
	fmt.Fprintf(&sb, "NodeID     = %s\n", b.NodeID)

	return sb.String()
}

// =============================================================================

// HexOf formats a 256 bit value as 64 zero padded hex digits.
func HexOf(v uint256.Int) string {
	b := v.Bytes32()
	return hex.EncodeToString(b[:])
}

// Scientific formats a 256 bit value in scientific notation with three
// digits of precision.
func Scientific(v uint256.Int) string {
	f := new(big.Float).SetInt(v.ToBig())
	return fmt.Sprintf("%.3E", f)
}

// Target returns 2^exp, the hash ceiling used for a bit count difficulty.
func Target(exp uint) (uint256.Int, error) {
	if exp > 255 {
		return uint256.Int{}, fmt.Errorf("target exponent %d out of range [0,255]", exp)
	}

	var t uint256.Int
	t.Lsh(uint256.NewInt(1), exp)
	return t, nil
}

// MaxTarget returns the largest representable target, which every hash meets.
func MaxTarget() uint256.Int {
	var t uint256.Int
	t.SetAllOne()
	return t
}
