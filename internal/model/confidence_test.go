package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Confidence
	}{
		{name: "high", input: "high", want: ConfidenceHigh},
		{name: "mixed case", input: "Medium", want: ConfidenceMedium},
		{name: "whitespace", input: "  low  ", want: ConfidenceLow},
		{name: "uncertain", input: "uncertain", want: ConfidenceUncertain},
		{name: "unknown maps to uncertain", input: "very sure", want: ConfidenceUncertain},
		{name: "empty maps to uncertain", input: "", want: ConfidenceUncertain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseConfidence(tt.input))
		})
	}
}

func TestConfidenceFromScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  Confidence
	}{
		{name: "top of range", score: 1.0, want: ConfidenceHigh},
		{name: "high boundary", score: 0.9, want: ConfidenceHigh},
		{name: "just below high", score: 0.89, want: ConfidenceMedium},
		{name: "medium boundary", score: 0.7, want: ConfidenceMedium},
		{name: "low boundary", score: 0.5, want: ConfidenceLow},
		{name: "below low", score: 0.49, want: ConfidenceUncertain},
		{name: "zero", score: 0, want: ConfidenceUncertain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfidenceFromScore(tt.score))
		})
	}
}

func TestConfidenceAtLeast(t *testing.T) {
	assert.True(t, ConfidenceHigh.AtLeast(ConfidenceMedium))
	assert.True(t, ConfidenceMedium.AtLeast(ConfidenceMedium))
	assert.False(t, ConfidenceLow.AtLeast(ConfidenceMedium))
	assert.False(t, ConfidenceUncertain.AtLeast(ConfidenceLow))
	assert.True(t, ConfidenceUncertain.AtLeast(ConfidenceUncertain))
}

func TestThresholdLevel(t *testing.T) {
	// The default 0.7 threshold gates at medium.
	assert.Equal(t, ConfidenceMedium, ThresholdLevel(0.7))
	assert.Equal(t, ConfidenceHigh, ThresholdLevel(0.95))
	assert.Equal(t, ConfidenceUncertain, ThresholdLevel(0.1))
}
