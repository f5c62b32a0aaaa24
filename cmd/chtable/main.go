// Command chtable drives the concurrent hash table: it replays a command file with one worker task per command,
// or runs a random mixed load benchmark.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/panjf2000/ants/v2"
	hashtable "github.com/ryanengphoto/concurrent-hash-table"
	"github.com/ryanengphoto/concurrent-hash-table/internal/command"
	"github.com/ryanengphoto/concurrent-hash-table/internal/config"
	"github.com/ryanengphoto/concurrent-hash-table/internal/driver"
	"github.com/ryanengphoto/concurrent-hash-table/internal/hash"
	"github.com/ryanengphoto/concurrent-hash-table/internal/logger"
	"github.com/ryanengphoto/concurrent-hash-table/internal/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	v          = viper.New()
	configFile string
)

var rootCmd = &cobra.Command{
	Use:           "chtable",
	Short:         "Drive the concurrent hash table",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a command file, one concurrent task per command",
	RunE:  runCommands,
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a random mixed insert/lookup/remove load",
	RunE:  runBench,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "optional config file (yaml, toml or json)")
	pf.Int("buckets", 1024, "number of buckets")
	pf.String("hash", hash.Jenkins, "hash algorithm: jenkins, crc32 or xxhash")
	pf.String("log-file", "hash.log", "operation and lock log file")
	pf.String("log-level", "info", "log level, debug logs every lock event")

	runCmd.Flags().String("commands", "commands.txt", "command file to replay")
	runCmd.Flags().Int("workers", 64, "worker pool size")

	benchCmd.Flags().Int("threads", 8, "concurrent workers")
	benchCmd.Flags().Int("ops", 100000, "operations per worker")
	benchCmd.Flags().Int("keys", 10000, "size of the shared key space")
	benchCmd.Flags().Float64("read-ratio", 0.6, "share of lookups")
	benchCmd.Flags().Float64("remove-ratio", 0.1, "share of removes, the rest are inserts")

	bindFlag("buckets", pf.Lookup("buckets"))
	bindFlag("hash", pf.Lookup("hash"))
	bindFlag("log_file", pf.Lookup("log-file"))
	bindFlag("log_level", pf.Lookup("log-level"))
	bindFlag("commands", runCmd.Flags().Lookup("commands"))
	bindFlag("workers", runCmd.Flags().Lookup("workers"))
	bindFlag("bench.threads", benchCmd.Flags().Lookup("threads"))
	bindFlag("bench.ops", benchCmd.Flags().Lookup("ops"))
	bindFlag("bench.keys", benchCmd.Flags().Lookup("keys"))
	bindFlag("bench.read_ratio", benchCmd.Flags().Lookup("read-ratio"))
	bindFlag("bench.remove_ratio", benchCmd.Flags().Lookup("remove-ratio"))

	rootCmd.AddCommand(runCmd, benchCmd)
}

func bindFlag(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// setup loads the configuration and builds the logger, metrics and table options shared by both commands
func setup() (*config.Config, *zap.Logger, *metrics.Metrics, []hashtable.Option, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	hashAlg, err := hash.ByName(cfg.Hash)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	m := metrics.New(log)
	opts := []hashtable.Option{
		hashtable.WithHashAlgorithm(hashAlg),
		hashtable.WithLogger(log),
		hashtable.WithLockObserver(m),
	}

	return cfg, log, m, opts, nil
}

func runCommands(cmd *cobra.Command, _ []string) error {
	cfg, log, m, opts, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	f, err := os.Open(cfg.Commands)
	if err != nil {
		return fmt.Errorf("failed to open command file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cmds, err := command.Parse(f)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		log.Warn("skipped invalid commands", zap.Error(err))
	}

	table, err := hashtable.New[string, uint32](cfg.Buckets, opts...)
	if err != nil {
		return err
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	out := cmd.OutOrStdout()
	runErr := driver.NewRunner(table, pool, log, m, out).Run(cmds)

	acquired, released, err := m.LockTotals()
	if err != nil {
		return errors.Join(runErr, err)
	}
	fmt.Fprintf(out, "Number of lock acquisitions: %.0f\n", acquired)
	fmt.Fprintf(out, "Number of lock releases: %.0f\n", released)

	return runErr
}

func runBench(cmd *cobra.Command, _ []string) error {
	cfg, log, m, opts, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	table, err := hashtable.New[string, uint64](cfg.Buckets, opts...)
	if err != nil {
		return err
	}

	result, err := driver.Bench(table, cfg.Bench, log, m)
	if err != nil {
		return err
	}

	return result.Report(cmd.OutOrStdout(), m)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
