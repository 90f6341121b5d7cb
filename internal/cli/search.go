package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchQuery string
	searchTopK  int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Show the raw chunks retrieved for a query, without generation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		idx, err := newIndex(ctx)
		if err != nil {
			return err
		}
		defer idx.Close()

		k := searchTopK
		if k <= 0 {
			k = cfg.Query.TopK
		}

		results, err := idx.Search(ctx, searchQuery, k)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(results) == 0 {
			fmt.Println("no results")
			return nil
		}

		for i, r := range results {
			source := r.Metadata["source"]
			if source == "" {
				source = "(unknown)"
			}
			fmt.Printf("[%d] %s (score: %.3f)\n%s\n\n", i+1, source, r.Score, r.Content)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	searchCmd.MarkFlagRequired("query")
}
