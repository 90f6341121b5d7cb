package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the index backend, document count, and model bindings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		idx, err := newIndex(ctx)
		if err != nil {
			return err
		}
		defer idx.Close()

		count, err := idx.Count(ctx)
		if err != nil {
			return fmt.Errorf("count failed: %w", err)
		}

		fmt.Printf("vector store:    %s\n", cfg.VectorStore.Provider)
		if cfg.VectorStore.Provider == "bolt" {
			fmt.Printf("path:            %s\n", cfg.VectorStore.Path)
		}
		fmt.Printf("chunks indexed:  %d\n", count)
		fmt.Printf("embedding model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
		fmt.Printf("llm model:       %s (%s)\n", cfg.LLM.Model, cfg.LLM.Provider)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
