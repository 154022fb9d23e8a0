// This program performs administrative tasks for the blockchain node.
package main

import "github.com/ardanlabs/powchain/app/tooling/admin/cmd"

func main() {
	cmd.Execute()
}
