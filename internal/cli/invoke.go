package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var invokeFile string

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Run one invocation locally from an event file",
	Long: `Reads a custom resource request (or a poll/cleanup task payload) from a JSON
file and runs the handler against real AWS credentials. Useful for exercising
an operation without deploying the function.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(invokeFile)
		if err != nil {
			return fmt.Errorf("failed to read event file: %w", err)
		}

		controller, err := newController(cmd.Context())
		if err != nil {
			return err
		}

		result, err := controller.Handle(cmd.Context(), raw)
		if err != nil {
			return err
		}
		fmt.Println(result)
		return nil
	},
}

func init() {
	invokeCmd.Flags().StringVarP(&invokeFile, "file", "f", "", "path to the event JSON file")
	invokeCmd.MarkFlagRequired("file")
}
