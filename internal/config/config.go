// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Render  RenderConfig  `mapstructure:"render"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// FetchConfig governs direct document retrieval.
type FetchConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxBodyMB      int    `mapstructure:"max_body_mb"`
}

// RenderConfig governs the headless render adapter.
type RenderConfig struct {
	DOMWaitSeconds  int      `mapstructure:"dom_wait_seconds"`
	LoadWaitSeconds int      `mapstructure:"load_wait_seconds"`
	SettleMs        int      `mapstructure:"settle_ms"`
	MaxAttempts     int      `mapstructure:"max_attempts"`
	BackoffStepMs   int      `mapstructure:"backoff_step_ms"`
	HostQPS         float64  `mapstructure:"host_qps"`
	ExtraBlockers   []string `mapstructure:"extra_blockers"`
}

// BatchConfig governs the batch executor.
type BatchConfig struct {
	MaxReferences      int  `mapstructure:"max_references"`
	ServerConcurrency  int  `mapstructure:"server_concurrency"`
	CLIConcurrency     int  `mapstructure:"cli_concurrency"`
	ReplayTransient    bool `mapstructure:"replay_transient"`
	ReplayDelayMs      int  `mapstructure:"replay_delay_ms"`
	DeadlineSeconds    int  `mapstructure:"deadline_seconds"`
	MemoryReserveMB    int  `mapstructure:"memory_reserve_mb"`
	MemoryPerWorkerMB  int  `mapstructure:"memory_per_worker_mb"`
	MemoryGuardEnabled bool `mapstructure:"memory_guard_enabled"`
}

// ArchiveConfig sets the assembly ceilings.
type ArchiveConfig struct {
	MaxEntries      int `mapstructure:"max_entries"`
	MaxSizeMB       int `mapstructure:"max_size_mb"`
	DeadlineSeconds int `mapstructure:"deadline_seconds"`
}

// LoggingConfig toggles zap development features and optional file output.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REFBUNDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.timeout_seconds", 90)
	v.SetDefault("fetch.user_agent",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("fetch.max_body_mb", 100)
	v.SetDefault("render.dom_wait_seconds", 30)
	v.SetDefault("render.load_wait_seconds", 60)
	v.SetDefault("render.settle_ms", 2500)
	v.SetDefault("render.max_attempts", 3)
	v.SetDefault("render.backoff_step_ms", 1000)
	v.SetDefault("render.host_qps", 1.0)
	v.SetDefault("batch.max_references", 250)
	v.SetDefault("batch.server_concurrency", 20)
	v.SetDefault("batch.cli_concurrency", 4)
	v.SetDefault("batch.replay_transient", true)
	v.SetDefault("batch.replay_delay_ms", 500)
	v.SetDefault("batch.deadline_seconds", 540)
	v.SetDefault("batch.memory_reserve_mb", 512)
	v.SetDefault("batch.memory_per_worker_mb", 512)
	v.SetDefault("batch.memory_guard_enabled", true)
	v.SetDefault("archive.max_entries", 250)
	v.SetDefault("archive.max_size_mb", 500)
	v.SetDefault("archive.deadline_seconds", 240)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.UserAgent == "" {
		return fmt.Errorf("fetch.user_agent must be set")
	}
	if c.Render.MaxAttempts < 1 {
		return fmt.Errorf("render.max_attempts must be >= 1")
	}
	if c.Render.DOMWaitSeconds <= 0 || c.Render.LoadWaitSeconds <= 0 {
		return fmt.Errorf("render wait tiers must be > 0")
	}
	if c.Batch.MaxReferences <= 0 {
		return fmt.Errorf("batch.max_references must be > 0")
	}
	if c.Batch.ServerConcurrency <= 0 || c.Batch.CLIConcurrency <= 0 {
		return fmt.Errorf("batch concurrency ceilings must be > 0")
	}
	if c.Batch.DeadlineSeconds <= 0 {
		return fmt.Errorf("batch.deadline_seconds must be > 0")
	}
	if c.Archive.MaxEntries <= 0 || c.Archive.MaxSizeMB <= 0 || c.Archive.DeadlineSeconds <= 0 {
		return fmt.Errorf("archive ceilings must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// BatchDeadline returns the outer wall-clock budget for one batch run.
func (c Config) BatchDeadline() time.Duration {
	return time.Duration(c.Batch.DeadlineSeconds) * time.Second
}

// ArchiveDeadline returns the wall-clock budget for archive assembly.
func (c Config) ArchiveDeadline() time.Duration {
	return time.Duration(c.Archive.DeadlineSeconds) * time.Second
}
