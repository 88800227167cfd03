package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storage-bench",
	Short: "Benchmark embedded key-value stores under synthetic workloads",
	Long: "storage-bench drives synthetic workloads against embedded key-value stores " +
		"(Pebble, MDBX, LevelDB, in-memory) and records CPU, memory, disk and latency " +
		"telemetry as newline-delimited JSON. Results can be merged into an HTML report.",
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
