// Package cli implements the ecobin command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ecobin-network/ecobin/internal/client"
)

var rootCmd = &cobra.Command{
	Use:   "ecobin",
	Short: "Smart-bin recycling reward ledger",
	Long: `ecobin rewards recycling at smart bins. Deposits are classified and
weighed, converted into points, and kept in a durable ledger. Points can be
redeemed for cash, coupons, or gift cards.

Run 'ecobin serve' on the bin host; every other command talks to that
server over HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "API address (default $ECOBIN_SERVER or "+client.DefaultServer+")")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default $ECOBIN_HOME/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// apiClient builds a client from --server, then $ECOBIN_SERVER.
func apiClient(cmd *cobra.Command) *client.Client {
	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		server = os.Getenv("ECOBIN_SERVER")
	}
	return client.New(server)
}
