// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ardanlabs/powchain/business/sys/validate"
	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/ardanlabs/powchain/foundation/blockchain/chain"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// ProposeBlock takes a block received from a peer and runs it through the
// acceptance pipeline of the local chain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	// Decode the JSON in the post call into the serialized block form.
	var blockData block.BlockData
	if err := web.Decode(r, &blockData); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(blockData); err != nil {
		return err
	}

	b, err := block.ToBlock(blockData)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode block: %w", err), http.StatusBadRequest)
	}

	outcome, err := h.State.ProcessPeerBlock(b)
	if err != nil {
		if errors.Is(err, state.ErrOwnBlock) {
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return fmt.Errorf("process block: %w", err)
	}

	resp := struct {
		Status string `json:"status"`
		Hash   string `json:"hash"`
	}{
		Status: outcome.String(),
		Hash:   b.HashHex(),
	}

	switch outcome {
	case chain.Accepted, chain.Duplicate:
		return web.Respond(ctx, w, resp, http.StatusOK)

	case chain.Orphaned:
		return web.Respond(ctx, w, resp, http.StatusAccepted)
	}

	return errs.NewTrusted(fmt.Errorf("block not accepted: %w", outcome.Err()), http.StatusNotAcceptable)
}

// Status returns the current status of the node as seen by its peers.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	best := h.State.QueryBest()

	status := struct {
		NodeID     string            `json:"node_id"`
		BestHash   string            `json:"best_hash"`
		BestHeight int               `json:"best_height"`
		KnownPeers []peer.PeerStatus `json:"known_peers"`
	}{
		NodeID:     h.State.RetrieveNodeID(),
		BestHash:   best.HashHex(),
		BestHeight: best.Height,
		KnownPeers: h.State.RetrieveKnownPeers(),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}
