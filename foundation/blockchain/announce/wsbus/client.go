package wsbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/vmihailenco/msgpack/v5"
)

// Config represents the settings for a bus client.
type Config struct {
	URL       string
	NodeID    string
	Backoff   backoff.Backoff // Zero value uses 100ms to 10s.
	EvHandler EventHandler
}

// Client maintains a connection to the hub, reconnecting with backoff when
// the connection is lost. This implements the state.Announcer interface.
type Client struct {
	url    string
	nodeID string
	ev     EventHandler
	bo     backoff.Backoff

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.Mutex // Serializes writers and guards conn.
	conn   *websocket.Conn

	subMu sync.RWMutex
	subs  []func(block.Block)
}

// Dial constructs a client and starts connecting to the hub in the
// background. Dial never fails because of the hub being down, the client
// keeps retrying until Close is called.
func Dial(cfg Config) *Client {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	bo := cfg.Backoff
	if bo.Min == 0 && bo.Max == 0 {
		bo = backoff.Backoff{
			Min:    100 * time.Millisecond,
			Max:    10 * time.Second,
			Jitter: true,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := Client{
		url:    cfg.URL,
		nodeID: cfg.NodeID,
		ev:     ev,
		bo:     bo,
		ctx:    ctx,
		cancel: cancel,
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run()
	}()

	return &c
}

// Subscribe registers a function to receive every block delivered by the
// hub. Functions are called from the client's read goroutine.
func (c *Client) Subscribe(fn func(block.Block)) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	c.subs = append(c.subs, fn)
}

// Publish writes the block to the hub.
func (c *Client) Publish(ctx context.Context, b block.Block) error {
	data, err := msgpack.Marshal(block.NewBlockData(b))
	if err != nil {
		return fmt.Errorf("encoding block: %w", err)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)

	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("publishing blk[%s]: %w", b.HashHex(), err)
	}

	return nil
}

// Connected reports whether the client currently holds a connection.
func (c *Client) Connected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	return c.conn != nil
}

// Close stops reconnecting and drops the connection.
func (c *Client) Close() error {
	c.ev("wsbus: client: close: started")
	defer c.ev("wsbus: client: close: completed")

	c.cancel()

	var err error
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		err = c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()

	return err
}

// =============================================================================

// run connects and reads until the client is closed.
func (c *Client) run() {
	c.ev("wsbus: client: run: G started")
	defer c.ev("wsbus: client: run: G completed")

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, c.url, nil)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}

			d := c.bo.Duration()
			c.ev("wsbus: client: run: WARNING: dial[%s]: retry in[%v]: %s", c.url, d, err)

			select {
			case <-time.After(d):
				continue
			case <-c.ctx.Done():
				return
			}
		}

		c.bo.Reset()
		c.ev("wsbus: client: run: connected: node[%s]: url[%s]", c.nodeID, c.url)

		// Close may have run while the dial was completing.
		c.connMu.Lock()
		if c.ctx.Err() != nil {
			c.connMu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.connMu.Unlock()

		c.readLoop(conn)

		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
		conn.Close()

		if c.ctx.Err() != nil {
			return
		}
		c.ev("wsbus: client: run: connection lost, reconnecting")
	}
}

// readLoop decodes frames and hands them to the subscribers.
func (c *Client) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(maxFrameSize)

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		var bd block.BlockData
		if err := msgpack.Unmarshal(msg, &bd); err != nil {
			c.ev("wsbus: client: readLoop: WARNING: decoding frame: %s", err)
			continue
		}

		b, err := block.ToBlock(bd)
		if err != nil {
			c.ev("wsbus: client: readLoop: WARNING: converting frame: %s", err)
			continue
		}

		c.subMu.RLock()
		subs := c.subs
		c.subMu.RUnlock()

		for _, fn := range subs {
			fn(b)
		}
	}
}
