package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/autoflow/internal/cli"
	"github.com/aretw0/autoflow/pkg/document"
	"github.com/spf13/cobra"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "Manage stored workflows",
	Long:  `List, import, inspect and remove the workflows held by the configured store.`,
}

var workflowsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored workflows",
	Run: func(cmd *cobra.Command, args []string) {
		backend := openBackend(cmd)
		defer backend.Close()

		ids, err := backend.Store.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing workflows: %v\n", err)
			os.Exit(1)
		}

		if len(ids) == 0 {
			fmt.Println("No stored workflows found.")
			return
		}

		fmt.Println("Stored Workflows:")
		for _, id := range ids {
			fmt.Println("- " + id)
		}
	},
}

var workflowsImportCmd = &cobra.Command{
	Use:   "import <document>...",
	Short: "Save workflow documents into the store",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		backend := openBackend(cmd)
		defer backend.Close()
		hasError := false

		for _, path := range args {
			wf, err := document.Load(path)
			if err == nil {
				err = backend.Store.Save(cmd.Context(), wf)
			}
			if err != nil {
				fmt.Printf("Error importing '%s': %v\n", path, err)
				hasError = true
				continue
			}
			fmt.Printf("Imported workflow '%s'\n", wf.ID)
		}

		if hasError {
			os.Exit(1)
		}
	},
}

var workflowsInspectCmd = &cobra.Command{
	Use:   "inspect <workflow-id>",
	Short: "Print a stored workflow as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		backend := openBackend(cmd)
		defer backend.Close()

		wf, err := backend.Store.Load(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error loading workflow '%s': %v\n", args[0], err)
			os.Exit(1)
		}

		data, err := json.MarshalIndent(wf, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling workflow: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	},
}

var workflowsRmCmd = &cobra.Command{
	Use:   "rm <workflow-id>...",
	Short: "Remove one or more workflows",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		backend := openBackend(cmd)
		defer backend.Close()
		hasError := false

		for _, id := range args {
			if err := backend.Store.Delete(cmd.Context(), id); err != nil {
				fmt.Printf("Error removing '%s': %v\n", id, err)
				hasError = true
			} else {
				fmt.Printf("Removed workflow '%s'\n", id)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(workflowsCmd)
	workflowsCmd.AddCommand(workflowsLsCmd)
	workflowsCmd.AddCommand(workflowsImportCmd)
	workflowsCmd.AddCommand(workflowsInspectCmd)
	workflowsCmd.AddCommand(workflowsRmCmd)
}

// openBackend opens the store the settings and flags select. The memory
// backend forgets everything on exit, so file is the default here.
func openBackend(cmd *cobra.Command) *cli.Backend {
	settings := loadSettings(cmd)
	if !cmd.Flags().Changed("store") && settings.Store.Backend == "memory" {
		settings.Store.Backend = "file"
	}
	backend, err := cli.OpenStore(settings.Store)
	if err != nil {
		fmt.Printf("Error opening store: %v\n", err)
		os.Exit(1)
	}
	return backend
}
