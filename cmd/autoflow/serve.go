package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/autoflow/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the editor API: workflow editing, simulation control, a Server-Sent
Events stream of run progress, the chat assistant and Prometheus metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings(cmd)
		debug, _ := cmd.Flags().GetBool("debug")
		chatScript, _ := cmd.Flags().GetString("chat-script")
		if cmd.Flags().Changed("addr") {
			settings.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("library") {
			settings.Server.Library, _ = cmd.Flags().GetString("library")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err := cli.Serve(ctx, cli.ServeOptions{
			Settings:   settings,
			Debug:      debug,
			ChatScript: chatScript,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().String("library", "", "Directory of workflow documents imported at startup")
	serveCmd.Flags().String("chat-script", "", "File of canned assistant replies separated by '---' lines")
	serveCmd.Flags().Duration("delay", 0, "Simulated latency per node (overrides settings)")
	serveCmd.Flags().Int("max-steps", 0, "Maximum steps per run, 0 for no limit (overrides settings)")
	serveCmd.Flags().Int64("seed", 0, "Seed for condition branches (overrides settings)")
}
