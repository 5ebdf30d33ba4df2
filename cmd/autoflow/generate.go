package main

import (
	"fmt"
	"os"

	"github.com/aretw0/autoflow/internal/cli"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Extract a workflow from an assistant reply",
	Long: `Reads a saved assistant reply, extracts the workflow JSON it embeds and
writes it as a document. Without --out the workflow is printed as JSON.`,
	Run: func(cmd *cobra.Command, args []string) {
		response, _ := cmd.Flags().GetString("response")
		out, _ := cmd.Flags().GetString("out")

		wf, err := cli.Generate(cli.GenerateOptions{Response: response, Out: out})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if out != "" {
			fmt.Printf("Saved workflow '%s' (%d nodes) to %s\n", wf.ID, len(wf.Nodes), out)
		}
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("response", "r", "-", "File holding the assistant reply, - for stdin")
	generateCmd.Flags().StringP("out", "o", "", "Document to write (.yaml or .json)")
}
