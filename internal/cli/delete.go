package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ragapi/internal/domain"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a vector from the index by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		idx, err := newIndex(ctx)
		if err != nil {
			return err
		}
		defer idx.Close()

		if err := idx.Delete(ctx, args[0]); err != nil {
			if errors.Is(err, domain.ErrUnsupported) {
				return fmt.Errorf("the %q vector store does not support deletion", cfg.VectorStore.Provider)
			}
			return fmt.Errorf("delete failed: %w", err)
		}

		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
