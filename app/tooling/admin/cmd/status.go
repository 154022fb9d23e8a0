package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/spf13/cobra"
)

var url string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status of a running node.",
	RunE:  statusRun,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

func statusRun(cmd *cobra.Command, args []string) error {
	resp, err := http.Get(fmt.Sprintf("%s/v1/status", url))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node responded with %s", resp.Status)
	}

	var st state.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "NodeID     = %s\n", st.NodeID)
	fmt.Fprintf(out, "Mining     = %t\n", st.Mining)
	fmt.Fprintf(out, "Best       = %s (H=%d)\n", st.BestHash, st.BestHeight)
	fmt.Fprintf(out, "Accepted   = %d\n", st.Accepted)
	fmt.Fprintf(out, "Orphans    = %d\n", st.Orphans)
	fmt.Fprintf(out, "Mined      = %d\n", st.Mined)
	fmt.Fprintf(out, "Target     = %s\n", st.Target)
	fmt.Fprintf(out, "Uptime     = %s\n", st.Uptime)
	for _, p := range st.KnownPeers {
		fmt.Fprintf(out, "Peer       = %s received[%d] height[%d]\n", p.NodeID, p.Received, p.LastHeight)
	}

	return nil
}
