package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print every block of the snapshot with the height the chain gives it.",
	RunE:  inspectRun,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func inspectRun(cmd *cobra.Command, args []string) error {
	c, blocks, err := loadChain()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	for i, b := range blocks {
		state := "orphan"
		switch {
		case c.IsAccepted(b.Hash):
			b, _ = c.QueryBlock(b.Hash)
			state = "accepted"
		case !c.IsOrphan(b.Hash):
			state = "rejected"
		}

		fmt.Fprintf(out, "Block %d: %s\n", i, state)
		fmt.Fprint(out, b.Info())
		fmt.Fprintln(out)
	}

	accepted, orphans := c.Len()
	best := c.Best()

	fmt.Fprintf(out, "Blocks     = %d\n", len(blocks))
	fmt.Fprintf(out, "Accepted   = %d\n", accepted)
	fmt.Fprintf(out, "Orphans    = %d\n", orphans)
	fmt.Fprintf(out, "Best       = %s\n", best)

	return nil
}
