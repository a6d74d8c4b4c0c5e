package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rererecursive/hl-component-cloudfront/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "cloudfrontcr",
	Short: "CloudFormation custom resource handler for CloudFront distributions",
	Long: `cloudfrontcr provisions, updates and tears down CloudFront distributions on
behalf of CloudFormation. Run with no arguments it starts the Lambda runtime;
the subcommands exist for local development.`,
	// Lambda invokes the binary with no arguments.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

// Execute runs the root command
func Execute() error {
	logging.Init(os.Getenv("LOG_LEVEL"))
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(schemaCmd)
}
