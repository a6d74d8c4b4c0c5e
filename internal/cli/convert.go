package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rererecursive/hl-component-cloudfront/internal/convert"
	"github.com/rererecursive/hl-component-cloudfront/internal/normalize"
	"github.com/rererecursive/hl-component-cloudfront/internal/schema"
)

var convertFile string

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a resource properties file into the API request structure",
	Long: `Runs the normalize, alias and convert stages over a ResourceProperties JSON
file and prints the resulting request structure. This is the dry-run for
checking what a template change would send to the API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(convertFile)
		if err != nil {
			return fmt.Errorf("failed to read properties file: %w", err)
		}

		var props map[string]any
		if err := json.Unmarshal(raw, &props); err != nil {
			return fmt.Errorf("failed to parse properties file: %w", err)
		}

		nodes, err := schema.Load()
		if err != nil {
			return err
		}

		normalized, _ := normalize.Tree(props).(map[string]any)
		converted, err := convert.Convert(nodes, convert.ApplyAliases(normalized))
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(converted, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode converted structure: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertFile, "file", "f", "", "path to the ResourceProperties JSON file")
	convertCmd.MarkFlagRequired("file")
}
