// mcp-gateway exposes a fleet of MCP servers behind a single streaming
// agent API. See `mcp-gateway --help` for the command tree.
package main

import (
	"os"

	"github.com/armatrix/mcp-gateway/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
