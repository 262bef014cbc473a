package extract

import "fmt"

// NewClient creates the extraction client for the configured provider.
func NewClient(cfg Config) (Client, error) {
	switch provider := cfg.ResolveProvider(); provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	case ProviderSimulation:
		return newSimulatedClient(), nil
	default:
		return nil, fmt.Errorf("unknown extraction provider: %q", provider)
	}
}
