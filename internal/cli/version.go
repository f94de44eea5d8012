package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/doccontext-mcp/internal/mcp"
	"github.com/dshills/doccontext-mcp/internal/storage"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("doccontext version %s\n", version)
		cmd.Printf("Build Time: %s\n", buildTime)
		cmd.Printf("Build Mode: %s\n", storage.BuildMode)
		cmd.Printf("SQLite Driver: %s\n", storage.DriverName)
		cmd.Printf("Schema Version: %s\n", storage.CurrentSchemaVersion)
		cmd.Printf("MCP Server: %s %s\n", mcp.ServerName, mcp.ServerVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
