package main

import (
	"fmt"
	goruntime "runtime"
	"strings"

	"github.com/aretw0/autoflow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the autoflow release and the Go toolchain it was built with",
	Run: func(cmd *cobra.Command, args []string) {
		release := strings.TrimSpace(autoflow.Version)
		if short, _ := cmd.Flags().GetBool("short"); short {
			fmt.Fprintln(cmd.OutOrStdout(), release)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "autoflow %s (%s %s/%s)\n",
			release, goruntime.Version(), goruntime.GOOS, goruntime.GOARCH)
	},
}

func init() {
	versionCmd.Flags().Bool("short", false, "Print only the release number")
	rootCmd.AddCommand(versionCmd)
}
