package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ragapi/internal/adapter/fs"
	"ragapi/internal/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Chunk, embed and index documents",
	Long: `Index document files in the specified directory so they can be
retrieved by ask and search. File selection is controlled by the
ingest.includes and ingest.excludes patterns in the config.

Examples:
  ragapi index .               # Index documents under the current directory
  ragapi index ./docs          # Index a specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := rootDir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	ctx := cmd.Context()

	idx, err := newIndex(ctx)
	if err != nil {
		return err
	}
	defer idx.Close()

	loader := fs.NewLoader(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	paths, err := loader.List(path)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", path, err)
	}
	if len(paths) == 0 {
		fmt.Println("No matching documents found.")
		return nil
	}

	fmt.Printf("Indexing %d documents from %s...\n", len(paths), path)
	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("indexing"),
		progressbar.OptionShowCount(),
	)

	totalChunks := 0
	for _, p := range paths {
		doc, err := loader.Read(path, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		added, err := idx.AddDocuments(ctx, []domain.Document{doc})
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", p, err)
		}
		totalChunks += added
		bar.Add(1)
	}
	fmt.Println()

	count, err := idx.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d chunks from %d documents (index now holds %d chunks).\n",
		totalChunks, len(paths), count)
	return nil
}
