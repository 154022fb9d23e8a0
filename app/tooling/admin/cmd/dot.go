package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

var dotOutput string

var dotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Render the snapshot as a graphviz digraph.",
	RunE:  dotRun,
}

func init() {
	rootCmd.AddCommand(dotCmd)
	dotCmd.Flags().StringVarP(&dotOutput, "output", "o", "", "File to write, stdout when empty.")
}

func dotRun(cmd *cobra.Command, args []string) error {
	c, _, err := loadChain()
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if dotOutput != "" {
		f, err := os.Create(dotOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	return c.WriteDot(w)
}
