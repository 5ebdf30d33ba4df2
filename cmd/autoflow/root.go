package main

import (
	"fmt"
	"os"

	"github.com/aretw0/autoflow/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autoflow",
	Short: "AutoFlow is a visual automation workflow simulator",
	Long: `AutoFlow edits workflow graphs of triggers, conditions, AI agents and
messengers, and simulates them step by step without calling any real service.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Settings file (default ./"+cli.SettingsFile+" when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().String("store", "", "Workflow store backend: memory, file, sqlite or redis")
	rootCmd.PersistentFlags().String("store-path", "", "Directory or database file of the store")
}

// loadSettings reads the settings file and applies the flags that were set.
func loadSettings(cmd *cobra.Command) cli.Settings {
	path, _ := cmd.Flags().GetString("config")
	settings, err := cli.LoadSettings(path)
	if err != nil {
		fmt.Printf("Error loading settings: %v\n", err)
		os.Exit(1)
	}

	flags := cmd.Flags()
	if flags.Changed("store") {
		settings.Store.Backend, _ = flags.GetString("store")
	}
	if flags.Changed("store-path") {
		settings.Store.Path, _ = flags.GetString("store-path")
	}
	if flags.Lookup("delay") != nil && flags.Changed("delay") {
		settings.StepDelay, _ = flags.GetDuration("delay")
	}
	if flags.Lookup("max-steps") != nil && flags.Changed("max-steps") {
		settings.MaxSteps, _ = flags.GetInt("max-steps")
	}
	if flags.Lookup("seed") != nil && flags.Changed("seed") {
		settings.Seed, _ = flags.GetInt64("seed")
	}
	return settings
}
