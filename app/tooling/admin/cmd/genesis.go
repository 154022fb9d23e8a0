package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/powchain/foundation/blockchain/block"
	"github.com/ardanlabs/powchain/foundation/blockchain/miner"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	genesisPayload string
	maxNonceExp    uint
	startNonceHex  string
	genesisVerbose bool
)

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Mine a genesis block and print it in snapshot form.",
	RunE:  genesisRun,
}

func init() {
	rootCmd.AddCommand(genesisCmd)
	genesisCmd.Flags().StringVarP(&genesisPayload, "payload", "p", "Hi", "Payload of the genesis block.")
	genesisCmd.Flags().UintVarP(&maxNonceExp, "max-nonce", "m", 128, "Nonces wrap after 2^max-nonce.")
	genesisCmd.Flags().StringVarP(&startNonceHex, "start", "s", "", "Hex nonce to start from, random when empty.")
	genesisCmd.Flags().BoolVarP(&genesisVerbose, "verbose", "v", false, "Print search progress.")
}

func genesisRun(cmd *cobra.Command, args []string) error {
	target, err := block.Target(targetExponent)
	if err != nil {
		return err
	}

	maxNonce, err := block.Target(maxNonceExp)
	if err != nil {
		return err
	}

	cfg := miner.Config{
		Target:   target,
		MaxNonce: maxNonce,
	}

	if startNonceHex != "" {
		start, err := uint256.FromHex(startNonceHex)
		if err != nil {
			return fmt.Errorf("start nonce: %w", err)
		}
		cfg.StartNonce = func(*uint256.Int) (uint256.Int, error) { return *start, nil }
	}

	if genesisVerbose {
		cfg.EvHandler = func(v string, args ...any) {
			fmt.Fprintf(cmd.ErrOrStderr(), v+"\n", args...)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, err := miner.MineGenesis(ctx, cfg, genesisPayload)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.ErrOrStderr(), g.Info())

	out, err := yaml.Marshal([]block.BlockData{block.NewBlockData(g)})
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(out)
	return err
}
