package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/powchain/app/services/node/handlers"
	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMuxConfig(t *testing.T, tgt uint256.Int) handlers.MuxConfig {
	t.Helper()

	st, err := state.New(state.Config{
		NodeID: "n1",
		Target: tgt,
	})
	require.NoError(t, err)

	return handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		Evts:     events.New[string](),
	}
}

func propose(t *testing.T, mux http.Handler, bd block.BlockData) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(bd)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/v1/node/block/propose", bytes.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	return w
}

func get(mux http.Handler, path string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	return w
}

func TestProposeBlock(t *testing.T) {
	cfg := newMuxConfig(t, block.MaxTarget())
	mux := handlers.PrivateMux(cfg)

	g := block.Genesis()
	a := block.New(g.Hash, "A", uint256.Int{}, "n2")
	b := block.New(a.Hash, "B", uint256.Int{}, "n2")

	t.Run("orphan", func(t *testing.T) {
		w := propose(t, mux, block.NewBlockData(b))
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"orphaned"`)
	})

	t.Run("accepted", func(t *testing.T) {
		w := propose(t, mux, block.NewBlockData(a))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"accepted"`)

		// The orphan waiting on a is promoted with it.
		assert.Equal(t, 2, cfg.State.QueryBest().Height)
	})

	t.Run("duplicate", func(t *testing.T) {
		w := propose(t, mux, block.NewBlockData(a))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"duplicate"`)
	})

	t.Run("tampered", func(t *testing.T) {
		bd := block.NewBlockData(block.New(b.Hash, "C", uint256.Int{}, "n2"))
		bd.Payload = "tampered"

		w := propose(t, mux, bd)
		require.Equal(t, http.StatusNotAcceptable, w.Code)
	})

	t.Run("own block", func(t *testing.T) {
		w := propose(t, mux, block.NewBlockData(block.New(b.Hash, "C", uint256.Int{}, "n1")))
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("validation", func(t *testing.T) {
		bd := block.NewBlockData(a)
		bd.Hash = "0x12"

		w := propose(t, mux, bd)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp errs.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Fields, "hash")
		assert.NotEmpty(t, resp.TraceID)
	})

	t.Run("status", func(t *testing.T) {
		w := get(mux, "/v1/node/status")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"best_height":2`)
		assert.Contains(t, w.Body.String(), `"node_id":"n2"`)
	})
}

func TestInsufficientWork(t *testing.T) {
	tgt, err := block.Target(8)
	require.NoError(t, err)

	mux := handlers.PrivateMux(newMuxConfig(t, tgt))

	a := block.New(block.Genesis().Hash, "A", uint256.Int{}, "n2")
	w := propose(t, mux, block.NewBlockData(a))

	require.Equal(t, http.StatusNotAcceptable, w.Code)
	assert.Contains(t, w.Body.String(), "does not meet the target")
}

func TestPublicQueries(t *testing.T) {
	cfg := newMuxConfig(t, block.MaxTarget())
	mux := handlers.PublicMux(cfg)

	g := block.Genesis()
	a := block.New(g.Hash, "A", uint256.Int{}, "n2")
	_, err := cfg.State.ProcessPeerBlock(a)
	require.NoError(t, err)

	_, err = cfg.State.ProcessPeerBlock(block.New(*uint256.NewInt(7), "O", uint256.Int{}, "n2"))
	require.NoError(t, err)

	t.Run("status", func(t *testing.T) {
		w := get(mux, "/v1/status")
		require.Equal(t, http.StatusOK, w.Code)

		var st state.Status
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
		assert.Equal(t, "n1", st.NodeID)
		assert.Equal(t, 1, st.BestHeight)
		assert.Equal(t, 2, st.Accepted)
		assert.Equal(t, 1, st.Orphans)
	})

	t.Run("blocks", func(t *testing.T) {
		w := get(mux, "/v1/blocks/list")
		require.Equal(t, http.StatusOK, w.Code)

		var data []block.BlockData
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
		require.Len(t, data, 2)

		blocks, err := block.ToBlocks(data)
		require.NoError(t, err)
		assert.Equal(t, g.Hash, blocks[0].Hash)
		assert.Equal(t, a.Hash, blocks[1].Hash)
	})

	t.Run("best", func(t *testing.T) {
		w := get(mux, "/v1/blocks/best")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), a.HashHex())
	})

	t.Run("by hash", func(t *testing.T) {
		w := get(mux, "/v1/blocks/hash/"+a.HashHex())
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"payload":"A"`)

		w = get(mux, "/v1/blocks/hash/"+block.HexOf(*uint256.NewInt(7)))
		require.Equal(t, http.StatusNotFound, w.Code)

		w = get(mux, "/v1/blocks/hash/xyz")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("orphans", func(t *testing.T) {
		w := get(mux, "/v1/orphans/list")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"payload":"O"`)
	})

	t.Run("graph", func(t *testing.T) {
		w := get(mux, "/v1/graph")
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasPrefix(w.Body.String(), "digraph blockChain {"))
	})
}

func TestDebugMux(t *testing.T) {
	cfg := newMuxConfig(t, block.MaxTarget())
	mux := handlers.DebugMux("test", cfg.Log, cfg.State)

	w := get(mux, "/debug/readiness")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = get(mux, "/debug/liveness")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"build":"test"`)

	w = get(mux, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
}
