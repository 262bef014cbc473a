package extract

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// simulatedClient produces deterministic placeholder extractions so the
// rest of the pipeline is exercisable without a service credential. The
// response goes through the same parse path as a real completion, and
// every field carries uncertain confidence.
type simulatedClient struct{}

func newSimulatedClient() *simulatedClient {
	return &simulatedClient{}
}

func (c *simulatedClient) Name() string {
	return ProviderSimulation
}

// Complete returns a canned JSON extraction keyed off a hash of the
// prompt, so the same document always yields the same record.
func (c *simulatedClient) Complete(_ context.Context, prompt string) (string, error) {
	sum := sha256.Sum256([]byte(prompt))
	seed := fmt.Sprintf("%x", sum[:4])

	field := func(value any) map[string]any {
		return map[string]any{"value": value, "confidence": "uncertain"}
	}

	response := map[string]any{
		"grant_id":               field("SIM-" + seed),
		"grant_name":             field("Simulated Grant Record"),
		"funding_agency":         field("Simulation Agency"),
		"award_amount":           field(100000.0),
		"grant_type":             field("research"),
		"application_date":       field("2024-01-15"),
		"award_date":             field("2024-03-01"),
		"start_date":             field("2024-06-01"),
		"end_date":               field("2026-05-31"),
		"principal_investigator": field("Dr. Placeholder"),
		"co_investigators":       field([]string{"Dr. Stand-In"}),
		"budget": field(map[string]any{
			"categories": map[string]float64{
				"personnel":      60000,
				"equipment":      15000,
				"travel":         5000,
				"supplies":       5000,
				"indirect_costs": 12000,
				"other":          3000,
			},
			"total": 100000.0,
		}),
		"abstract":   field("Placeholder abstract generated without an extraction service."),
		"objectives": field([]string{"Exercise the extraction pipeline end to end."}),
	}

	raw, err := json.Marshal(response)
	if err != nil {
		return "", fmt.Errorf("failed to marshal simulated response: %w", err)
	}
	return string(raw), nil
}
