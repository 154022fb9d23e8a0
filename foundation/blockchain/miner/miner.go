// Package miner performs the proof of work search for the next block. The
// search keeps an eye on the chain and moves to a newer tip when another node
// wins the race for the current one.
package miner

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/holiman/uint256"
)

// DefaultChunk is the number of attempts between checkpoints when the
// configuration does not provide one.
const DefaultChunk = 20_000

// EventHandler defines a function that is called when events
// occur in the processing of a search.
type EventHandler func(v string, args ...any)

// Chain declares the behavior the miner needs to decide if a search has to
// move to a newer tip.
type Chain interface {
	Best() block.Block
	HeightOf(b block.Block) int
}

// Config represents the parameters of a search.
type Config struct {
	Target     uint256.Int // Hash ceiling a solution must meet.
	MaxNonce   uint256.Int // Nonce wraps to zero once it passes this value.
	Chunk      uint64      // Attempts between checkpoints.
	NodeID     string
	StartNonce func(maxNonce *uint256.Int) (uint256.Int, error) // Defaults to RandomNonce.
	EvHandler  EventHandler
}

// Result describes a successful search.
type Result struct {
	Block     block.Block
	Attempts  uint64
	Duration  time.Duration
	Retargets int
}

// HashRate returns the number of hashes computed per second.
func (r Result) HashRate() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Attempts) / r.Duration.Seconds()
}

// Search looks for a nonce that puts the hash of a block with the specified
// parent and payload at or below the target. Every Chunk attempts the chain
// is consulted and, if the best tip is at least as high as the candidate, the
// candidate is moved on top of it keeping its nonce. A nil chain disables
// retargeting. The search only ends with a solution or a cancelled context.
func Search(ctx context.Context, cfg Config, chain Chain, parent uint256.Int, payload string) (Result, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	chunk := cfg.Chunk
	if chunk == 0 {
		chunk = DefaultChunk
	}

	startNonce := cfg.StartNonce
	if startNonce == nil {
		startNonce = RandomNonce
	}

	// Choose a starting point for the nonce. After this, the nonce will be
	// incremented by 1 until a solution is found by us or another node.
	nonce, err := startNonce(&cfg.MaxNonce)
	if err != nil {
		return Result{}, fmt.Errorf("start nonce: %w", err)
	}

	candidate := block.New(parent, payload, nonce, cfg.NodeID)

	ev("miner: Search: MINING: started: prevBlk[%s]: nonce[%s]", block.HexOf(parent), nonce.Hex())

	var res Result
	start := time.Now()
	chunkStart := start
	chunkBest := block.MaxTarget()

	for {
		// Did we get cancelled while trying to solve the problem.
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			ev("miner: Search: MINING: CANCELLED: attempts[%d]", res.Attempts)
			return res, err
		}

		res.Attempts++

		if candidate.Hash.Lt(&chunkBest) {
			chunkBest = candidate.Hash
		}

		if candidate.MeetsTarget(&cfg.Target) {
			res.Block = candidate
			res.Duration = time.Since(start)

			ev("miner: Search: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", block.HexOf(candidate.PrevHash), candidate.HashHex())
			ev("miner: Search: MINING: attempts[%d]: duration[%v]: retargets[%d]", res.Attempts, res.Duration, res.Retargets)

			return res, nil
		}

		candidate.IncrementNonce(&cfg.MaxNonce)

		if res.Attempts%chunk != 0 {
			continue
		}

		elapsed := time.Since(chunkStart)
		rate := float64(chunk)
		if elapsed > 0 {
			rate = float64(chunk) / elapsed.Seconds()
		}
		ev("miner: Search: MINING: attempts[%d]: chunk best[%s]: rate[%.0f H/s]", res.Attempts, block.Scientific(chunkBest), rate)

		chunkStart = time.Now()
		chunkBest = block.MaxTarget()

		if chain == nil {
			continue
		}

		// Has another node already extended the chain past our parent.
		best := chain.Best()
		if best.Height >= chain.HeightOf(candidate) {
			ev("miner: Search: MINING: RETARGET: prevBlk[%s]: height[%d]", best.HashHex(), best.Height)
			candidate.SetParent(best.Hash)
			res.Retargets++
		}
	}
}

// MineGenesis searches for a block with no parent that meets the target.
func MineGenesis(ctx context.Context, cfg Config, payload string) (block.Block, error) {
	cfg.NodeID = block.GenesisNodeID

	res, err := Search(ctx, cfg, nil, uint256.Int{}, payload)
	if err != nil {
		return block.Block{}, err
	}

	b := res.Block
	b.Height = 0

	return b, nil
}

// RandomNonce returns a uniformly random nonce in [0, maxNonce).
func RandomNonce(maxNonce *uint256.Int) (uint256.Int, error) {
	if maxNonce.IsZero() {
		return uint256.Int{}, nil
	}

	n, err := rand.Int(rand.Reader, maxNonce.ToBig())
	if err != nil {
		return uint256.Int{}, err
	}

	var nonce uint256.Int
	nonce.SetFromBig(n)
	return nonce, nil
}

// ZeroNonce starts every search at nonce zero.
func ZeroNonce(*uint256.Int) (uint256.Int, error) {
	return uint256.Int{}, nil
}
