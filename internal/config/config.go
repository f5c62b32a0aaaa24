// Package config loads the chtable driver configuration from defaults, an optional config file, CHT_ prefixed
// environment variables and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read into the configuration, e.g. CHT_BUCKETS or
// CHT_BENCH_THREADS.
const EnvPrefix = "CHT"

// Config holds the driver configuration.
type Config struct {
	Buckets  int         `mapstructure:"buckets"`   // Number of buckets in the table
	Hash     string      `mapstructure:"hash"`      // jenkins, crc32 or xxhash
	Workers  int         `mapstructure:"workers"`   // Size of the worker pool replaying commands
	Commands string      `mapstructure:"commands"`  // Command file replayed by run
	LogFile  string      `mapstructure:"log_file"`  // Operation and lock log
	LogLevel string      `mapstructure:"log_level"` // debug logs every lock event
	Bench    BenchConfig `mapstructure:"bench"`
}

// BenchConfig holds the settings of the bench command.
type BenchConfig struct {
	Threads     int     `mapstructure:"threads"`      // Concurrent workers
	Ops         int     `mapstructure:"ops"`          // Operations per worker
	Keys        int     `mapstructure:"keys"`         // Size of the key space shared by all workers
	ReadRatio   float64 `mapstructure:"read_ratio"`   // Share of lookups
	RemoveRatio float64 `mapstructure:"remove_ratio"` // Share of removes, the rest are inserts
}

// SetDefaults registers the default value of every key. Every key must have a default for environment variables
// to be picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("buckets", 1024)
	v.SetDefault("hash", "jenkins")
	v.SetDefault("workers", 64)
	v.SetDefault("commands", "commands.txt")
	v.SetDefault("log_file", "hash.log")
	v.SetDefault("log_level", "info")
	v.SetDefault("bench.threads", 8)
	v.SetDefault("bench.ops", 100000)
	v.SetDefault("bench.keys", 10000)
	v.SetDefault("bench.read_ratio", 0.6)
	v.SetDefault("bench.remove_ratio", 0.1)
}

// Load reads the configuration into a Config. Flags must already be bound to v.
//   - configFile is an optional yaml/toml/json file, empty to skip
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the ranges of all settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Buckets <= 0 {
		errs = append(errs, fmt.Errorf("buckets must be positive, got %d", c.Buckets))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Bench.Threads <= 0 {
		errs = append(errs, fmt.Errorf("bench threads must be positive, got %d", c.Bench.Threads))
	}
	if c.Bench.Ops < 0 {
		errs = append(errs, fmt.Errorf("bench ops must not be negative, got %d", c.Bench.Ops))
	}
	if c.Bench.Keys <= 0 {
		errs = append(errs, fmt.Errorf("bench keys must be positive, got %d", c.Bench.Keys))
	}
	if c.Bench.ReadRatio < 0 || c.Bench.RemoveRatio < 0 || c.Bench.ReadRatio+c.Bench.RemoveRatio > 1 {
		errs = append(errs, fmt.Errorf("bench read ratio %.2f and remove ratio %.2f must be non negative and sum to at most 1",
			c.Bench.ReadRatio, c.Bench.RemoveRatio))
	}
	return errors.Join(errs...)
}
