// Package model defines the core domain models used throughout the application.
package model

import "strings"

// Confidence is the extraction service's self-assessed certainty for one field.
type Confidence string

// Confidence level constants, ordered strongest to weakest.
const (
	ConfidenceHigh      Confidence = "high"
	ConfidenceMedium    Confidence = "medium"
	ConfidenceLow       Confidence = "low"
	ConfidenceUncertain Confidence = "uncertain"
)

var confidenceRank = map[Confidence]int{
	ConfidenceHigh:      3,
	ConfidenceMedium:    2,
	ConfidenceLow:       1,
	ConfidenceUncertain: 0,
}

// ParseConfidence maps a service-declared confidence string to a level.
// Unknown or empty values map to ConfidenceUncertain.
func ParseConfidence(s string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	case ConfidenceLow:
		return ConfidenceLow
	default:
		return ConfidenceUncertain
	}
}

// ConfidenceFromScore maps a numeric score in [0,1] to a level.
func ConfidenceFromScore(score float64) Confidence {
	switch {
	case score >= 0.9:
		return ConfidenceHigh
	case score >= 0.7:
		return ConfidenceMedium
	case score >= 0.5:
		return ConfidenceLow
	default:
		return ConfidenceUncertain
	}
}

// ThresholdLevel converts a configured float threshold to the minimum
// acceptable confidence level.
func ThresholdLevel(threshold float64) Confidence {
	return ConfidenceFromScore(threshold)
}

// AtLeast reports whether c meets or exceeds min.
func (c Confidence) AtLeast(min Confidence) bool {
	return confidenceRank[c] >= confidenceRank[min]
}

// Valid reports whether c is one of the defined levels.
func (c Confidence) Valid() bool {
	_, ok := confidenceRank[c]
	return ok
}
