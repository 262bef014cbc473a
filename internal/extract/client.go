// Package extract turns normalized document text into structured,
// confidence-scored grant records. Extraction goes through an external AI
// completion service, or through a deterministic local simulation when no
// credential is configured.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/chi-grants/grantflow/internal/service"
)

// Extraction service providers.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderSimulation = "simulation"
)

// Client defines the interface for extraction service providers.
type Client interface {
	// Complete sends a prompt and returns the raw completion text.
	Complete(ctx context.Context, prompt string) (string, error)
	// Name identifies the provider.
	Name() string
}

// Config configures the extraction agent and its client.
type Config struct {
	Provider            string
	APIKey              string
	Model               string
	RequestTimeout      time.Duration
	MaxTextLength       int
	ConfidenceThreshold float64
	Retry               service.RetryOptions
}

// ResolveProvider applies the credential-driven default: an unset provider
// means openai when a key is configured and simulation otherwise.
func (c Config) ResolveProvider() string {
	if provider := strings.ToLower(strings.TrimSpace(c.Provider)); provider != "" {
		return provider
	}
	if c.APIKey != "" {
		return ProviderOpenAI
	}
	return ProviderSimulation
}

// ResolveModel returns the configured model or the provider default.
func (c Config) ResolveModel() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.ResolveProvider() {
	case ProviderAnthropic:
		return "claude-3-5-sonnet-20241022"
	case ProviderSimulation:
		return "simulated"
	default:
		return "gpt-4"
	}
}

func (c Config) requestTimeout() time.Duration {
	if c.RequestTimeout > 0 {
		return c.RequestTimeout
	}
	return 60 * time.Second
}
