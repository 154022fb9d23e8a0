// Package cmd contains the admin commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/ardanlabs/powchain/foundation/blockchain/chain"
	"github.com/ardanlabs/powchain/foundation/blockchain/storage/file"
	"github.com/spf13/cobra"
)

var (
	blocksPath     string
	targetExponent uint
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&blocksPath, "blocks", "b", "zblock/myblocks.yaml", "Path to the block snapshot.")
	rootCmd.PersistentFlags().UintVarP(&targetExponent, "target", "t", 234, "Target exponent, blocks must hash at or below 2^target.")
}

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Administrative tasks for the blockchain node",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command selected on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

// loadChain replays the snapshot into a fresh chain so heights and orphans
// are computed the same way a node does it.
func loadChain() (*chain.Chain, []block.Block, error) {
	target, err := block.Target(targetExponent)
	if err != nil {
		return nil, nil, err
	}

	blocks, err := file.New(blocksPath, "").Load()
	if err != nil {
		return nil, nil, err
	}

	c, err := chain.New(chain.Config{Target: target})
	if err != nil {
		return nil, nil, err
	}

	for _, b := range blocks {
		c.AddBlock(b)
	}

	return c, blocks, nil
}
