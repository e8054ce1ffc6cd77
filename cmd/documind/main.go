// Command documind runs the document chat server.
package main

import (
	"os"

	"github.com/custodia-labs/documind/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
