package main

import (
	"fmt"
	"os"

	"github.com/aretw0/autoflow/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check the workflow for consistency",
	Long:  `Reports dangling routes, duplicate IDs, a missing start node and nodes unreachable from the start node.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, _ := cmd.Flags().GetString("id")

		report, err := cli.Validate(cmd.Context(), args[0], id)
		if s := report.String(); s != "" {
			fmt.Print(s)
		}
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Workflow is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().String("id", "", "Workflow to check when the path is a directory")
}
