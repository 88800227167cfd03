package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tclemos/storage-bench/benchmark"
)

var (
	runCfg     = benchmark.DefaultRunConfig()
	configFile string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workload against a storage backend and record telemetry",
	Run: func(cmd *cobra.Command, args []string) {
		if configFile != "" {
			if err := applyConfigFile(cmd.Flags(), configFile, &runCfg); err != nil {
				log.Fatal().Err(err).Msg("Failed to load config file")
			}
		}
		if err := runCfg.Validate(); err != nil {
			log.Fatal().Err(err).Msg("Invalid run configuration")
		}

		err := benchmark.RunBenchmark(runCfg)
		if code := exitCode(err); code != 0 {
			log.Error().Err(err).Msg("Benchmark failed")
			os.Exit(code)
		}
	},
}

// exitCode maps the result of a run to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, benchmark.ErrMemoryCeiling):
		return benchmark.ExitCodeMemoryCeiling
	default:
		return 1
	}
}

// applyConfigFile loads path over cfg and then re-applies every flag given
// on the command line, so explicit flags beat the file
func applyConfigFile(flags *pflag.FlagSet, path string, cfg *benchmark.RunConfig) error {
	explicit := map[string]string{}
	flags.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := benchmark.LoadRunConfig(path, cfg); err != nil {
		return err
	}

	for name, value := range explicit {
		if err := flags.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	backends := make([]string, 0, len(benchmark.DatabaseTypes))
	for _, t := range benchmark.DatabaseTypes {
		backends = append(backends, string(t))
	}
	workloads := make([]string, 0, len(benchmark.WorkloadTypes))
	for _, t := range benchmark.WorkloadTypes {
		workloads = append(workloads, string(t))
	}

	f := runCmd.Flags()
	f.StringVar(&configFile, "config", "", "YAML file with run settings; flags on the command line take precedence")

	f.StringVar(&runCfg.Backend, "backend", runCfg.Backend, "Database backend: "+strings.Join(backends, ", "))
	f.StringVar(&runCfg.DataDir, "data-dir", runCfg.DataDir, "Directory for the database files, wiped before the run")
	f.StringVar(&runCfg.Out, "out", runCfg.Out, "Result file (newline-delimited JSON)")
	f.StringVar(&runCfg.DisplayName, "display-name", runCfg.DisplayName, "Name shown in reports (defaults to the backend)")
	f.StringVar(&runCfg.Workload, "workload", runCfg.Workload, "Workload: "+strings.Join(workloads, ", "))
	f.Uint64Var(&runCfg.Minutes, "minutes", runCfg.Minutes, "Run duration in minutes, pre-population included")
	f.Uint64Var(&runCfg.GranularityMs, "granularity-ms", runCfg.GranularityMs, "Sampling interval in milliseconds")
	f.Int64Var(&runCfg.CacheSize, "cache-size", runCfg.CacheSize, "Block cache size in bytes (negative for disabled)")

	f.IntVar(&runCfg.Threads, "threads", runCfg.Threads, "Number of concurrent workers")
	f.Uint64Var(&runCfg.Items, "items", runCfg.Items, "Number of keys loaded before the timed phase")
	f.IntVar(&runCfg.ValueSize, "value-size", runCfg.ValueSize, "Size of each value in bytes")
	f.BoolVar(&runCfg.Fsync, "fsync", runCfg.Fsync, "Make every write durable before it returns")
	f.Float64Var(&runCfg.ZipfExponent, "zipf-exponent", runCfg.ZipfExponent, "Skew of Zipfian key selection")
	f.Int64Var(&runCfg.Seed, "seed", runCfg.Seed, "Seed for deterministic key/value generation")
	f.BoolVar(&runCfg.HashKeys, "hash-keys", runCfg.HashKeys, "Hash Zipfian keys with Keccak-256")
	f.Uint64Var(&runCfg.Users, "users", runCfg.Users, "Feed: number of users")
	f.IntVar(&runCfg.FeedPosts, "feed-posts", runCfg.FeedPosts, "Feed: posts read per feed view")
	f.Uint64Var(&runCfg.Retention, "retention", runCfg.Retention, "Webtable: live pages kept before the oldest is removed")

	f.Uint64Var(&runCfg.MemLimit, "mem-limit", runCfg.MemLimit, "Abort when resident memory reaches this many bytes (0 for no limit)")
	f.StringVar(&runCfg.MetricsAddr, "metrics-addr", runCfg.MetricsAddr, "Serve Prometheus metrics on this address, e.g. :9090")
	f.StringVar(&runCfg.LogFormat, "log-format", runCfg.LogFormat, "Log format: 'json' or 'console'")

	// MDBX-specific configuration flags
	f.Int64Var(&runCfg.MDBXMapSize, "mdbx-map-size", runCfg.MDBXMapSize, "MDBX: Maximum map size in bytes (-1 for default)")
	f.IntVar(&runCfg.MDBXMaxReaders, "mdbx-max-readers", runCfg.MDBXMaxReaders, "MDBX: Maximum number of readers (0 for default: 128)")
	f.BoolVar(&runCfg.MDBXWriteMap, "mdbx-write-map", runCfg.MDBXWriteMap, "MDBX: Use writeable memory map")
}
