package state

import (
	"github.com/ardanlabs/powchain/foundation/blockchain/chain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sources of a block submitted to the chain.
const (
	sourceMined = "mined"
	sourcePeer  = "peer"
)

// Set of metrics describing the node. They are registered with the default
// registry and served by the debug mux.
var (
	blocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "powchain",
		Subsystem: "chain",
		Name:      "blocks_total",
		Help:      "Blocks submitted to the chain by source and outcome.",
	}, []string{"source", "outcome"})

	bestHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "powchain",
		Subsystem: "chain",
		Name:      "best_height",
		Help:      "Height of the best tip.",
	})

	acceptedBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "powchain",
		Subsystem: "chain",
		Name:      "accepted_blocks",
		Help:      "Number of accepted blocks including genesis.",
	})

	orphanBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "powchain",
		Subsystem: "chain",
		Name:      "orphan_blocks",
		Help:      "Number of buffered orphan blocks.",
	})

	hashesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powchain",
		Subsystem: "miner",
		Name:      "hashes_total",
		Help:      "Hashes computed while searching for blocks.",
	})

	hashRate = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "powchain",
		Subsystem: "miner",
		Name:      "hash_rate",
		Help:      "Hashes per second of the last successful search.",
	})

	retargetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powchain",
		Subsystem: "miner",
		Name:      "retargets_total",
		Help:      "Searches moved to a newer tip.",
	})

	announcedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powchain",
		Subsystem: "network",
		Name:      "announced_total",
		Help:      "Blocks published to the network.",
	})
)

func recordOutcome(source string, outcome chain.Outcome) {
	blocksTotal.WithLabelValues(source, outcome.String()).Inc()
}

func updateChainMetrics(c *chain.Chain) {
	accepted, orphans := c.Len()
	acceptedBlocks.Set(float64(accepted))
	orphanBlocks.Set(float64(orphans))
	bestHeight.Set(float64(c.Best().Height))
}
