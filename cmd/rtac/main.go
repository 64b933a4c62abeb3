package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	version = "dev" // Will be set by build flags
)

var rootCmd = &cobra.Command{
	Use:   "rtac",
	Short: "Realtime algorithm configuration engine",
	Long: `RTAC tunes a black-box target algorithm while it solves a stream of
problem instances: each instance is raced by several candidate
configurations in parallel under a wall-clock timeout, and the race
outcomes evolve a persistent configuration pool so later instances are
solved by progressively better-tuned configurations.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveMetricsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
