// Command ecobin runs the smart-bin reward ledger server and its client CLI.
package main

import (
	"os"

	"github.com/ecobin-network/ecobin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
