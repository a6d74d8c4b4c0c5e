package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rererecursive/hl-component-cloudfront/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the embedded API structure document",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load first so a malformed document is reported instead of
		// printed.
		if _, err := schema.Load(); err != nil {
			return err
		}
		fmt.Print(string(schema.Document()))
		return nil
	},
}
