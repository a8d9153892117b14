// flowcheck server - export/import control plane for AI flow tests
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "flowcheck",
	Short: "flowcheck manages AI flow test suites",
	Long: `flowcheck is the control plane for AI flow testing: flow configs,
question sets, tags, tests and runs, with portable export/import bundles.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flowcheck %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	},
}

func main() {
	rootCmd.AddCommand(versionCmd, serveCmd, checkCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
