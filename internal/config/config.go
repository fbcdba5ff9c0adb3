// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Matcher    MatcherConfig    `mapstructure:"matcher" yaml:"matcher"`
	Aggregator AggregatorConfig `mapstructure:"aggregator" yaml:"aggregator"`
	Corpus     CorpusConfig     `mapstructure:"corpus" yaml:"corpus"`
}

// LoggerConfig configures the global zap logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig configures the scan pipeline.
type EngineConfig struct {
	// WorkerConcurrency bounds the number of artifacts scanned in parallel.
	WorkerConcurrency int `mapstructure:"worker_concurrency" yaml:"worker_concurrency"`
}

// MatcherConfig configures pattern execution.
type MatcherConfig struct {
	// PatternBudget is the time budget for one (rule, artifact) pair. On
	// exhaustion that pair is abandoned and reported as an info diagnostic;
	// the rest of the scan continues.
	PatternBudget time.Duration `mapstructure:"pattern_budget" yaml:"pattern_budget"`

	// DefaultWindowLines is the lexical window searched after a negative
	// pattern's anchor when the rule does not declare its own.
	DefaultWindowLines int `mapstructure:"default_window_lines" yaml:"default_window_lines"`
}

// AggregatorConfig configures finding deduplication.
type AggregatorConfig struct {
	// OverlapFraction is the minimum span-overlap fraction required to merge
	// two same-category matches. Zero means any overlap merges.
	OverlapFraction float64 `mapstructure:"overlap_fraction" yaml:"overlap_fraction"`
}

// CorpusConfig configures the filesystem corpus provider.
type CorpusConfig struct {
	// IncludeExts limits scanning to the given file extensions (with dot,
	// e.g. ".go"). Empty means every regular file.
	IncludeExts []string `mapstructure:"include_exts" yaml:"include_exts"`

	// MaxFileSize skips artifacts larger than this many bytes. Zero disables
	// the limit.
	MaxFileSize int64 `mapstructure:"max_file_size" yaml:"max_file_size"`

	// ReadRatePerSec throttles artifact reads (files per second) to keep the
	// scanner polite on shared storage. Zero disables throttling.
	ReadRatePerSec float64 `mapstructure:"read_rate_per_sec" yaml:"read_rate_per_sec"`
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "verdict")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Engine --
	v.SetDefault("engine.worker_concurrency", 8)

	// -- Matcher --
	v.SetDefault("matcher.pattern_budget", "2s")
	v.SetDefault("matcher.default_window_lines", 10)

	// -- Aggregator --
	v.SetDefault("aggregator.overlap_fraction", 0.0)

	// -- Corpus --
	v.SetDefault("corpus.include_exts", []string{})
	v.SetDefault("corpus.max_file_size", 4*1024*1024)
	v.SetDefault("corpus.read_rate_per_sec", 0.0)
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Engine.WorkerConcurrency <= 0 {
		return fmt.Errorf("engine.worker_concurrency must be a positive integer")
	}
	if c.Matcher.PatternBudget <= 0 {
		return fmt.Errorf("matcher.pattern_budget must be a positive duration")
	}
	if c.Matcher.DefaultWindowLines <= 0 {
		return fmt.Errorf("matcher.default_window_lines must be a positive integer")
	}
	if c.Aggregator.OverlapFraction < 0.0 || c.Aggregator.OverlapFraction >= 1.0 {
		return fmt.Errorf("aggregator.overlap_fraction must be in [0.0, 1.0)")
	}
	if c.Corpus.MaxFileSize < 0 {
		return fmt.Errorf("corpus.max_file_size must not be negative")
	}
	if c.Corpus.ReadRatePerSec < 0 {
		return fmt.Errorf("corpus.read_rate_per_sec must not be negative")
	}
	return nil
}
