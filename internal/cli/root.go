// Package cli implements the mcp-gateway command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/armatrix/mcp-gateway/config"
)

type rootFlags struct {
	ConfigPath string
}

var rf rootFlags

// Execute parses os.Args and runs the selected command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mcp-gateway",
		Short: "MCP gateway: one agent surface over a fleet of MCP servers",
	}

	rootCmd.PersistentFlags().StringVar(&rf.ConfigPath, "config", config.DefaultPath, "path to the gateway configuration file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(serversCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(modelCmd())

	return rootCmd
}

// openStore loads the configuration file selected by --config, creating
// it with defaults when absent.
func openStore() (*config.Store, error) {
	st := config.NewStore(rf.ConfigPath)
	if err := st.Load(); err != nil {
		return nil, err
	}
	return st, nil
}
