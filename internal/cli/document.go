package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/doccontext-mcp/internal/storage"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a document and its sections",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics and health",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statusCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	docs, err := a.Storage.ListDocuments(contextOrBackground(cmd))
	if err != nil {
		return err
	}

	if listJSON {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}
	for _, d := range docs {
		v := ""
		if d.Version != nil {
			v = " " + *d.Version
		}
		cmd.Printf("  %-24s %s%s (%d sections)\n", d.Name, d.DisplayName, v, d.SectionCount)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	err = a.Storage.DeleteDocument(contextOrBackground(cmd), args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("document %q not found", args[0])
	}
	if err != nil {
		return err
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	st, err := a.Status(contextOrBackground(cmd))
	if err != nil {
		return err
	}
	return printJSON(cmd, st)
}
