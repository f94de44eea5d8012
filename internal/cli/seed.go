package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/doccontext-mcp/internal/indexer"
)

var (
	seedReplace bool
	seedWatch   bool
	seedWorkers int
)

var seedCmd = &cobra.Command{
	Use:   "seed [files...]",
	Short: "Index documentation records",
	Long: `Indexes JSON documentation records. With no arguments every *.json file
under the data directory is indexed. With --watch the command keeps running
and re-indexes files in the data directory as they change.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedReplace, "replace", false, "replace documents that already exist")
	seedCmd.Flags().BoolVar(&seedWatch, "watch", false, "keep watching the data directory for changes")
	seedCmd.Flags().IntVar(&seedWorkers, "workers", 0, "concurrent file loaders (default: number of CPUs)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	opts := indexer.SeedOptions{Replace: seedReplace, Workers: seedWorkers}

	// Start watching before the initial run so no change slips between them.
	var watcher *indexer.Watcher
	if seedWatch {
		watcher, err = indexer.NewWatcher(a.Indexer, a.Config.DataDir, opts, 0)
		if err != nil {
			return err
		}
	}

	files := args
	if len(files) == 0 {
		files, err = indexer.DiscoverFiles(a.Config.DataDir)
		if err != nil {
			return err
		}
	}

	report, err := a.Indexer.Seed(contextOrBackground(cmd), files, opts)
	if err != nil {
		return err
	}
	printSeedReport(cmd, report)

	if watcher == nil {
		if report.Failed > 0 {
			return errors.New("some records were not indexed")
		}
		return nil
	}

	watcher.Remember(files)
	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.Printf("Watching %s (Ctrl-C to stop)\n", a.Config.DataDir)
	return watcher.Run(ctx)
}

func printSeedReport(cmd *cobra.Command, report *indexer.SeedReport) {
	for _, f := range report.Files {
		if f.Error != "" {
			cmd.Printf("  FAIL %s: %s\n", f.File, f.Error)
			continue
		}
		cmd.Printf("  ok   %s (%s, %d sections)\n", f.File, f.Document, f.Sections)
	}
	cmd.Printf("%d indexed, %d failed in %v\n", report.Indexed, report.Failed, report.Duration.Round(time.Millisecond))
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
