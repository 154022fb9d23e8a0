// Package public maintains the group of handlers for public access.
package public

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events[string]
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Status returns a summary of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryStatus(), http.StatusOK)
}

// Blocks returns the accepted blocks in the order they were accepted.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks := h.State.QueryBlocks()
	return web.Respond(ctx, w, block.NewBlockDataSet(blocks), http.StatusOK)
}

// Best returns the tip of the chain the node is currently mining on.
func (h Handlers) Best(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	best := h.State.QueryBest()
	return web.Respond(ctx, w, block.NewBlockData(best), http.StatusOK)
}

// BlockByHash returns the accepted block for the hash in the url.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := block.ParseHash(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid hash: %w", err), http.StatusBadRequest)
	}

	b, err := h.State.QueryBlockByHash(hash)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return fmt.Errorf("query block: %w", err)
	}

	return web.Respond(ctx, w, block.NewBlockData(b), http.StatusOK)
}

// Orphans returns the blocks waiting on a parent.
func (h Handlers) Orphans(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	orphans := h.State.QueryOrphans()
	return web.Respond(ctx, w, block.NewBlockDataSet(orphans), http.StatusOK)
}

// Graph returns the chain as a graphviz digraph.
func (h Handlers) Graph(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var buf bytes.Buffer
	if err := h.State.WriteDot(&buf); err != nil {
		return fmt.Errorf("write dot: %w", err)
	}

	return web.RespondText(ctx, w, buf.String(), http.StatusOK)
}
