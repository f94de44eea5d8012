package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/doccontext-mcp/internal/embedder"
	"github.com/dshills/doccontext-mcp/internal/vectorindex"
)

var embedCheckCmd = &cobra.Command{
	Use:   "embed-check [text]",
	Short: "Verify the configured embedding backend",
	Long: `Embeds a sample text with the configured backend and reports the provider,
model and vector dimension. Fails when no backend is configured or the stored
embedding table has a different dimension.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEmbedCheck,
}

func init() {
	rootCmd.AddCommand(embedCheckCmd)
}

func runEmbedCheck(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if a.Embedder == nil {
		return fmt.Errorf("%w: set [embedding] provider in the config file", embedder.ErrNoProviderEnabled)
	}

	text := "How do I authenticate API requests?"
	if len(args) == 1 {
		text = args[0]
	}

	emb, err := a.Embedder.GenerateEmbedding(contextOrBackground(cmd), embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	cmd.Printf("Provider:  %s\n", a.Embedder.Provider())
	cmd.Printf("Model:     %s\n", a.Embedder.Model())
	cmd.Printf("Dimension: %d\n", len(emb.Vector))
	cmd.Printf("Stored:    %d vectors for %d sections\n", a.Index.Len(), a.Index.Sections())

	if dim := a.Index.Dimension(); dim != 0 && dim != len(emb.Vector) {
		return fmt.Errorf("%w: backend returns %d, stored table has %d; delete %s to rebuild",
			vectorindex.ErrDimensionMismatch, len(emb.Vector), dim, vectorindex.VectorsFile)
	}
	if a.Index.Len() == 0 {
		cmd.Println("No stored embeddings yet; run seed to build them.")
	}
	return nil
}

