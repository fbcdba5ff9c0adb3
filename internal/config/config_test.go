package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "verdict", cfg.Logger.ServiceName)
	assert.Equal(t, 8, cfg.Engine.WorkerConcurrency)
	assert.Equal(t, 2*time.Second, cfg.Matcher.PatternBudget)
	assert.Equal(t, 10, cfg.Matcher.DefaultWindowLines)
	assert.Equal(t, 0.0, cfg.Aggregator.OverlapFraction)
	assert.Equal(t, int64(4*1024*1024), cfg.Corpus.MaxFileSize)

	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("engine.worker_concurrency", 2)
	v.Set("matcher.pattern_budget", "500ms")
	v.Set("corpus.include_exts", []string{".go", ".yaml"})

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.WorkerConcurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.Matcher.PatternBudget)
	assert.Equal(t, []string{".go", ".yaml"}, cfg.Corpus.IncludeExts)
}

func TestValidate(t *testing.T) {
	mutate := func(fn func(*Config)) *Config {
		cfg := NewDefaultConfig()
		fn(cfg)
		return cfg
	}

	cases := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{
			name:    "zero concurrency",
			cfg:     mutate(func(c *Config) { c.Engine.WorkerConcurrency = 0 }),
			wantErr: "worker_concurrency",
		},
		{
			name:    "non-positive pattern budget",
			cfg:     mutate(func(c *Config) { c.Matcher.PatternBudget = 0 }),
			wantErr: "pattern_budget",
		},
		{
			name:    "zero window",
			cfg:     mutate(func(c *Config) { c.Matcher.DefaultWindowLines = 0 }),
			wantErr: "default_window_lines",
		},
		{
			name:    "overlap fraction at one",
			cfg:     mutate(func(c *Config) { c.Aggregator.OverlapFraction = 1.0 }),
			wantErr: "overlap_fraction",
		},
		{
			name:    "negative overlap fraction",
			cfg:     mutate(func(c *Config) { c.Aggregator.OverlapFraction = -0.1 }),
			wantErr: "overlap_fraction",
		},
		{
			name:    "negative max file size",
			cfg:     mutate(func(c *Config) { c.Corpus.MaxFileSize = -1 }),
			wantErr: "max_file_size",
		},
		{
			name:    "negative read rate",
			cfg:     mutate(func(c *Config) { c.Corpus.ReadRatePerSec = -1 }),
			wantErr: "read_rate_per_sec",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
