package main

import (
	"fmt"
	"os"

	"github.com/aretw0/autoflow/internal/cli"
	"github.com/aretw0/autoflow/internal/presentation/tui"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <path>",
	Short: "Simulate a workflow",
	Long: `Loads a workflow document (YAML or JSON) or a directory of documents and
simulates it from its start node, printing one log line per step.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings(cmd)
		debug, _ := cmd.Flags().GetBool("debug")
		jsonMode, _ := cmd.Flags().GetBool("json")
		watchMode, _ := cmd.Flags().GetBool("watch")
		quiet, _ := cmd.Flags().GetBool("quiet")
		id, _ := cmd.Flags().GetString("id")

		if watchMode && jsonMode {
			fmt.Println("Error: --watch and --json cannot be used together.")
			os.Exit(1)
		}

		if !jsonMode && !quiet && tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout)
		}

		opts := cli.RunOptions{
			Path:     args[0],
			ID:       id,
			JSON:     jsonMode,
			Debug:    debug,
			Quiet:    quiet,
			Watch:    watchMode,
			Settings: settings,
		}

		if watchMode {
			if err := cli.RunWatch(cmd.Context(), opts); err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		state, err := cli.Run(cmd.Context(), opts)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if state.Err != "" {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Emit NDJSON events instead of text")
	runCmd.Flags().BoolP("watch", "w", false, "Re-run whenever the workflow document changes")
	runCmd.Flags().BoolP("quiet", "q", false, "Print nothing but errors")
	runCmd.Flags().String("id", "", "Workflow to run when the path is a directory")
	runCmd.Flags().Duration("delay", 0, "Simulated latency per node (overrides settings)")
	runCmd.Flags().Int("max-steps", 0, "Maximum steps per run, 0 for no limit (overrides settings)")
	runCmd.Flags().Int64("seed", 0, "Seed for condition branches (overrides settings)")
}
