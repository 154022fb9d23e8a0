// Package memory implements block announcement between nodes living in the
// same process. Delivery is synchronous, Publish returns after every
// subscriber has seen the block.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
)

// ErrClosed is returned by Publish after the client left the bus.
var ErrClosed = errors.New("client closed")

// Bus is the shared broadcast channel.
type Bus struct {
	mu      sync.RWMutex
	clients []*Client
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{}
}

// Join connects a new client to the bus.
func (bus *Bus) Join(nodeID string) *Client {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	c := Client{
		bus:    bus,
		nodeID: nodeID,
	}
	bus.clients = append(bus.clients, &c)

	return &c
}

func (bus *Bus) leave(c *Client) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.clients = slices.DeleteFunc(bus.clients, func(x *Client) bool { return x == c })
}

func (bus *Bus) deliver(b block.Block) {
	bus.mu.RLock()
	clients := slices.Clone(bus.clients)
	bus.mu.RUnlock()

	for _, c := range clients {
		c.receive(b)
	}
}

// =============================================================================

// Client is one node's connection to the bus. This implements the
// state.Announcer interface.
type Client struct {
	bus    *Bus
	nodeID string

	mu        sync.RWMutex
	subs      []func(block.Block)
	published []block.Block
	closed    bool
}

// Subscribe registers a function to receive every block published on the bus.
func (c *Client) Subscribe(fn func(block.Block)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subs = append(c.subs, fn)
}

// Publish delivers the block to every client on the bus, this one included.
func (c *Client) Publish(ctx context.Context, b block.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.published = append(c.published, b)
	c.mu.Unlock()

	c.bus.deliver(b)
	return nil
}

// Published returns a copy of every block this client published.
func (c *Client) Published() []block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.published)
}

// Close removes the client from the bus.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.bus.leave(c)
	return nil
}

func (c *Client) receive(b block.Block) {
	c.mu.RLock()
	subs := c.subs
	c.mu.RUnlock()

	for _, fn := range subs {
		fn(b)
	}
}
