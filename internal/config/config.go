// Package config materializes the application's viper-backed settings
// into a typed configuration with defaults applied.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/chi-grants/grantflow/internal/service"
)

// AIConfig configures the extraction service client.
type AIConfig struct {
	Provider       string
	APIKey         string
	Model          string
	RequestTimeout time.Duration
	MaxTextLength  int
	Retry          service.RetryOptions
}

// ProcessingConfig bounds a pipeline batch.
type ProcessingConfig struct {
	Concurrency int
	Timeout     time.Duration
	AutoApprove bool
}

// Config is the full application configuration.
type Config struct {
	DataDir             string
	AI                  AIConfig
	Processing          ProcessingConfig
	ConfidenceThreshold float64
	BudgetTolerance     float64
	MaxFileSizeMB       int64
	StaleAfter          time.Duration
}

// SetDefaults registers the default for every recognized key so unset
// keys resolve consistently wherever viper is consulted.
func SetDefaults() {
	viper.SetDefault("data_dir", "grants")
	viper.SetDefault("ai.provider", "")
	viper.SetDefault("ai.api_key", "")
	viper.SetDefault("ai.model", "")
	viper.SetDefault("ai.request_timeout", 60*time.Second)
	viper.SetDefault("ai.max_text_length", 10000)
	viper.SetDefault("ai.retry.max_attempts", 3)
	viper.SetDefault("ai.retry.initial_delay", time.Second)
	viper.SetDefault("ai.retry.max_delay", 30*time.Second)
	viper.SetDefault("ai.retry.multiplier", 2.0)
	viper.SetDefault("confidence_threshold", 0.7)
	viper.SetDefault("budget_tolerance", 0.0)
	viper.SetDefault("max_file_size_mb", 50)
	viper.SetDefault("processing.concurrency", 4)
	viper.SetDefault("processing.timeout", 300*time.Second)
	viper.SetDefault("processing.auto_approve", false)
	viper.SetDefault("recovery.stale_after", 30*time.Minute)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}

// Load builds the typed configuration from viper.
func Load() Config {
	SetDefaults()

	return Config{
		DataDir: ExpandPath(viper.GetString("data_dir")),
		AI: AIConfig{
			Provider:       viper.GetString("ai.provider"),
			APIKey:         viper.GetString("ai.api_key"),
			Model:          viper.GetString("ai.model"),
			RequestTimeout: viper.GetDuration("ai.request_timeout"),
			MaxTextLength:  viper.GetInt("ai.max_text_length"),
			Retry: service.RetryOptions{
				MaxAttempts:  viper.GetInt("ai.retry.max_attempts"),
				InitialDelay: viper.GetDuration("ai.retry.initial_delay"),
				MaxDelay:     viper.GetDuration("ai.retry.max_delay"),
				Multiplier:   viper.GetFloat64("ai.retry.multiplier"),
			},
		},
		Processing: ProcessingConfig{
			Concurrency: viper.GetInt("processing.concurrency"),
			Timeout:     viper.GetDuration("processing.timeout"),
			AutoApprove: viper.GetBool("processing.auto_approve"),
		},
		ConfidenceThreshold: viper.GetFloat64("confidence_threshold"),
		BudgetTolerance:     viper.GetFloat64("budget_tolerance"),
		MaxFileSizeMB:       viper.GetInt64("max_file_size_mb"),
		StaleAfter:          viper.GetDuration("recovery.stale_after"),
	}
}

// MaxFileBytes converts the configured megabyte cap to bytes. Zero
// disables the cap.
func (c Config) MaxFileBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

// ExpandPath expands ~ and $VAR style environment variables in a file
// path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
