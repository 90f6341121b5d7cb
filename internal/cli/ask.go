package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ragapi/internal/domain"
	"ragapi/internal/usecase"
)

var (
	askQuery       string
	askTopK        int
	askTemperature float64
	askMaxTokens   int
	askStream      bool
	askJSON        bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question grounded in the indexed documents",
	Long: `Retrieve relevant chunks for the question, generate an answer
constrained to that context, and print it with source citations.

Examples:
  ragapi ask -q "What is the refund window?"
  ragapi ask -q "How do returns work?" --stream
  ragapi ask -q "What is covered?" --top-k 3 --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "question to answer (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().Float64Var(&askTemperature, "temperature", -1, "generation temperature (default from config)")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "generation token cap (default from config)")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "stream the answer as it is generated")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the full answer as JSON")
	askCmd.MarkFlagRequired("query")
}

// askOptions merges flag overrides over the configured defaults. The
// flags bypass config.Validate, so the merged values are checked here
// against the same ranges before anything reaches a provider.
func askOptions() (usecase.QueryOptions, error) {
	opts := usecase.QueryOptions{
		TopK:        cfg.Query.TopK,
		Temperature: cfg.Query.Temperature,
		MaxTokens:   cfg.Query.MaxTokens,
	}
	if askTopK > 0 {
		opts.TopK = askTopK
	}
	if askTemperature >= 0 {
		opts.Temperature = askTemperature
	}
	if askMaxTokens > 0 {
		opts.MaxTokens = askMaxTokens
	}

	if opts.TopK < 1 {
		return opts, fmt.Errorf("%w: top-k must be at least 1, got %d", domain.ErrConfig, opts.TopK)
	}
	if opts.Temperature < 0 || opts.Temperature > 2 {
		return opts, fmt.Errorf("%w: temperature must be between 0 and 2, got %g", domain.ErrConfig, opts.Temperature)
	}
	if opts.MaxTokens < 1 || opts.MaxTokens > 4096 {
		return opts, fmt.Errorf("%w: max-tokens must be between 1 and 4096, got %d", domain.ErrConfig, opts.MaxTokens)
	}
	return opts, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts, err := askOptions()
	if err != nil {
		return err
	}

	rag, idx, err := newRAG(ctx)
	if err != nil {
		return err
	}
	defer idx.Close()

	if askStream {
		stream, err := rag.QueryStream(ctx, askQuery, opts)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		defer stream.Close()

		for {
			delta, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("stream failed: %w", err)
			}
			fmt.Print(delta)
		}
		fmt.Println()
		return nil
	}

	answer, err := rag.Query(ctx, askQuery, opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		return json.NewEncoder(os.Stdout).Encode(answer)
	}

	fmt.Println(answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range answer.Sources {
			label := src.Metadata["source"]
			if label == "" {
				label = "(unknown)"
			}
			fmt.Printf("  [%d] %s (score: %.3f)\n      %s\n", i+1, label, src.Score, src.Content)
		}
	}
	fmt.Printf("\nmodel: %s, tokens: %d\n", answer.Model, answer.Usage.TotalTokens)
	return nil
}
