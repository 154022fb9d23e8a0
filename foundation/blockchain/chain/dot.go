package chain

import (
	"bufio"
	"fmt"
	"io"
)

// WriteDot writes the accepted blocks as a graphviz digraph with an edge from
// every block to its parent. Orphans are drawn dashed.
func (c *Chain) WriteDot(w io.Writer) error {
	blocks := c.Blocks()
	orphans := c.Orphans()

	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "digraph blockChain {")
	for _, b := range blocks {
		if b.Hash == c.genesis.Hash {
			fmt.Fprintf(bw, "  %q [shape=box];\n", b.String())
			continue
		}

		parent, _ := c.QueryBlock(b.PrevHash)
		fmt.Fprintf(bw, "  %q -> %q;\n", b.String(), parent.String())
	}
	for _, o := range orphans {
		fmt.Fprintf(bw, "  %q [style=dashed];\n", o.String())
	}
	fmt.Fprintln(bw, "}")

	return bw.Flush()
}
