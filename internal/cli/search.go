package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/doccontext-mcp/internal/searcher"
)

var (
	searchDoc     string
	searchMax     int
	searchContext bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documentation",
	Long: `Runs a cascade search and prints the JSON result, including the
transparency block naming the stage that answered. With --context the
matching sections are printed as one markdown block instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchDoc, "doc", "", "restrict to one document")
	searchCmd.Flags().IntVarP(&searchMax, "max", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchContext, "context", false, "print a markdown context preview")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := contextOrBackground(cmd)

	if searchContext {
		preview, err := a.Searcher.Context(ctx, args[0], searchDoc)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if preview.ChunksCount == 0 {
			cmd.Println("No results found.")
			return nil
		}
		cmd.Println(preview.Preview)
		cmd.Printf("\n(%d sections, ~%d tokens, via %s)\n",
			preview.ChunksCount, preview.TokenEstimate, preview.Transparency.Method)
		return nil
	}

	res, err := a.Searcher.Search(ctx, searcher.SearchRequest{
		Query:      args[0],
		DocName:    searchDoc,
		MaxResults: a.MaxResults(searchMax),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return printJSON(cmd, res)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
