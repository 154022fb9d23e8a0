package worker

import (
	"context"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
)

// announceTimeout bounds the time spent publishing a single block.
const announceTimeout = 10 * time.Second

// announceOperations handles publishing blocks to the network.
func (w *Worker) announceOperations() {
	w.evHandler("worker: announceOperations: G started")
	defer w.evHandler("worker: announceOperations: G completed")

	for {
		select {
		case b := <-w.announce:
			if !w.isShutdown() {
				w.runAnnounceOperation(b)
			}
		case <-w.announceAll:
			if !w.isShutdown() {
				w.runAnnounceAllOperation()
			}
		case <-w.shut:
			w.evHandler("worker: announceOperations: received shut signal")
			return
		}
	}
}

// runAnnounceOperation publishes a mined block after the simulated network
// lag. Mining already moved on, only the announcement is delayed.
func (w *Worker) runAnnounceOperation(b block.Block) {
	w.evHandler("worker: runAnnounceOperation: started: blk[%s]", b.HashHex())
	defer w.evHandler("worker: runAnnounceOperation: completed: blk[%s]", b.HashHex())

	if lag := w.state.Lag(); lag > 0 {
		w.evHandler("worker: runAnnounceOperation: simulating lag[%v]", lag)

		t := time.NewTimer(lag)
		select {
		case <-t.C:
		case <-w.shut:
			t.Stop()
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
	defer cancel()

	if err := w.state.Announce(ctx, b); err != nil {
		w.evHandler("worker: runAnnounceOperation: WARNING: %s", err)
	}
}

// runAnnounceAllOperation publishes every accepted block.
func (w *Worker) runAnnounceAllOperation() {
	w.evHandler("worker: runAnnounceAllOperation: started")
	defer w.evHandler("worker: runAnnounceAllOperation: completed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-w.shut:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := w.state.AnnounceAll(ctx); err != nil {
		w.evHandler("worker: runAnnounceAllOperation: WARNING: %s", err)
	}
}
