// This program provides a command line client for a gossipchain node.
package main

import "github.com/ardanlabs/gossipchain/app/tooling/cli/cmd"

func main() {
	cmd.Execute()
}
