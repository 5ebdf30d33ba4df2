package main

import (
	"fmt"
	"os"

	"github.com/aretw0/autoflow/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <path>",
	Short: "Export the workflow as a Mermaid diagram",
	Long: `Outputs a Mermaid flowchart of the workflow. With --overlay the workflow is
simulated first and the visited nodes are highlighted.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, _ := cmd.Flags().GetString("id")
		overlay, _ := cmd.Flags().GetBool("overlay")

		output, err := cli.Graph(cmd.Context(), cli.GraphOptions{
			Path:     args[0],
			ID:       id,
			Overlay:  overlay,
			Settings: loadSettings(cmd),
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(output)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().String("id", "", "Workflow to export when the path is a directory")
	graphCmd.Flags().Bool("overlay", false, "Highlight the path of a simulated run")
}
