// Package cli implements the doccontext command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/doccontext-mcp/internal/app"
	"github.com/dshills/doccontext-mcp/internal/config"
	"github.com/dshills/doccontext-mcp/internal/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"

	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "doccontext",
	Short: "Documentation context server",
	Long: `doccontext indexes structured documentation and serves it to AI assistants
over MCP. Searches go through a cascade: query cache, section metadata,
full-text search, then semantic rerank when an embedding backend is configured.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.doccontext/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// SetVersion records build information shown by the version command.
func SetVersion(v, built string) {
	version = v
	buildTime = built
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openApp loads configuration and opens every component. Callers close the
// returned App.
func openApp() (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	opts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if verbose {
		opts.Level = "debug"
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a, err := app.Open(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}
