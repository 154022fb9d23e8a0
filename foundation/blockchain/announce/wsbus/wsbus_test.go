package wsbus_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/announce/wsbus"
	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/holiman/uint256"
	"github.com/jpillora/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	blocks []block.Block
}

func (c *collector) add(b block.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = append(c.blocks, b)
}

func (c *collector) get() []block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]block.Block(nil), c.blocks...)
}

func dial(t *testing.T, url string, nodeID string) *wsbus.Client {
	t.Helper()

	c := wsbus.Dial(wsbus.Config{
		URL:     url,
		NodeID:  nodeID,
		Backoff: backoff.Backoff{Min: 10 * time.Millisecond, Max: 50 * time.Millisecond},
	})
	t.Cleanup(func() { c.Close() })

	return c
}

func TestFanOut(t *testing.T) {
	hub := wsbus.NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Shutdown()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	var gotA, gotB collector
	a := dial(t, url, "a")
	a.Subscribe(gotA.add)
	b := dial(t, url, "b")
	b.Subscribe(gotB.add)

	require.Eventually(t, func() bool {
		return a.Connected() && b.Connected() && hub.Connections() == 2
	}, 5*time.Second, 10*time.Millisecond)

	blk := block.New(block.Genesis().Hash, "A", *uint256.NewInt(7), "a")
	blk.Height = 1
	require.NoError(t, a.Publish(context.Background(), blk))

	require.Eventually(t, func() bool {
		return len(gotA.get()) == 1 && len(gotB.get()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, blk, gotB.get()[0])
	assert.Equal(t, blk, gotA.get()[0])

	tampered := blk
	tampered.Payload = "changed"
	require.NoError(t, b.Publish(context.Background(), tampered))

	require.Eventually(t, func() bool {
		return len(gotA.get()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.False(t, gotA.get()[1].IsValidClaim())
}

func TestReconnect(t *testing.T) {
	hub := wsbus.NewHub(nil)
	srv := httptest.NewUnstartedServer(hub)

	c := dial(t, "ws://"+srv.Listener.Addr().String(), "a")

	assert.ErrorIs(t, c.Publish(context.Background(), block.Genesis()), wsbus.ErrNotConnected)

	srv.Start()
	defer srv.Close()

	require.Eventually(t, c.Connected, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return hub.Connections() == 1 }, 5*time.Second, 10*time.Millisecond)

	hub.Shutdown()
	assert.Equal(t, 0, hub.Connections())

	require.Eventually(t, func() bool { return hub.Connections() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	assert.False(t, c.Connected())
}
