package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chi-grants/grantflow/internal/model"
)

const fullResponse = `{
  "grant_id": {"value": "NSF-2024-001", "confidence": "high", "source_text": "Grant ID: NSF-2024-001"},
  "grant_name": {"value": "Coastal Resilience Study", "confidence": "high"},
  "funding_agency": {"value": "National Science Foundation", "confidence": "medium"},
  "award_amount": {"value": 500000, "confidence": "high"},
  "grant_type": {"value": "research", "confidence": "low"},
  "application_date": {"value": "2023-11-01", "confidence": "medium"},
  "award_date": {"value": "2024-02-15", "confidence": "medium"},
  "start_date": {"value": "2024-06-01", "confidence": "high"},
  "end_date": {"value": "2026-05-31", "confidence": "high"},
  "principal_investigator": {"value": "Dr. Maria Vasquez", "confidence": "high"},
  "co_investigators": {"value": ["Dr. Chen", "Dr. Okafor"], "confidence": "medium"},
  "budget": {"value": {"categories": {"personnel": 300000, "equipment": 120000, "travel": 30000}, "total": 450000}, "confidence": "medium"},
  "abstract": {"value": "A study of coastal resilience.", "confidence": "low"},
  "objectives": {"value": ["Measure erosion", "Model storm surge"], "confidence": "low"}
}`

func TestParseResponseOK(t *testing.T) {
	result := ParseResponse(fullResponse)

	require.Equal(t, ParseOK, result.Outcome)
	require.NotNil(t, result.Data)
	assert.Empty(t, result.Unparsed)

	data := result.Data
	assert.Equal(t, "NSF-2024-001", data.GrantID.Get())
	assert.Equal(t, model.ConfidenceHigh, data.GrantID.Confidence)
	assert.Equal(t, "Grant ID: NSF-2024-001", data.GrantID.SourceText)
	assert.InDelta(t, 500000, data.AwardAmount.Get(), 0.001)
	assert.Equal(t, []string{"Dr. Chen", "Dr. Okafor"}, data.CoPIs.Get())
	assert.Equal(t, "2024-06-01", data.Timeline.StartDate.Get().Format("2006-01-02"))

	budget := data.Budget.Get()
	require.NotNil(t, budget.Total)
	assert.InDelta(t, 450000, *budget.Total, 0.001)
	assert.InDelta(t, 300000, budget.Categories["personnel"], 0.001)
}

func TestParseResponsePartial(t *testing.T) {
	raw := `{
	  "grant_id": {"value": "EPA-22-15", "confidence": "high"},
	  "award_amount": {"value": "five hundred grand", "confidence": "high"},
	  "start_date": {"value": "next summer", "confidence": "low"}
	}`

	result := ParseResponse(raw)

	require.Equal(t, ParsePartial, result.Outcome)
	assert.Equal(t, []string{"award_amount", "start_date"}, result.Unparsed)
	assert.Equal(t, "EPA-22-15", result.Data.GrantID.Get())
	assert.False(t, result.Data.AwardAmount.Present())
	assert.Equal(t, model.ConfidenceUncertain, result.Data.AwardAmount.Confidence)
}

func TestParseResponseFail(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "I could not process this document."},
		{name: "json array", raw: `[1, 2, 3]`},
		{name: "no recognized fields", raw: `{"summary": "a grant", "score": 5}`},
		{name: "empty object", raw: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseResponse(tt.raw)
			assert.Equal(t, ParseFail, result.Outcome)
			assert.Error(t, result.Err)
			assert.Nil(t, result.Data)
		})
	}
}

func TestParseResponseMarkdownFence(t *testing.T) {
	raw := "```json\n" + `{"grant_id": {"value": "DOE-7", "confidence": "high"}}` + "\n```"
	result := ParseResponse(raw)
	require.Equal(t, ParseOK, result.Outcome)
	assert.Equal(t, "DOE-7", result.Data.GrantID.Get())
}

func TestParseResponseCoercions(t *testing.T) {
	raw := `{
	  "grant_id": "NIH-R01-55",
	  "award_amount": {"value": "$1,250,000.50", "confidence": 0.92},
	  "co_investigators": {"value": "Dr. Solo", "confidence": "medium"},
	  "budget": {"value": {"personnel": 900000, "other": 350000.5, "total": 1250000.5}, "confidence": "low"},
	  "end_date": {"value": null, "confidence": "uncertain"}
	}`

	result := ParseResponse(raw)
	require.Equal(t, ParseOK, result.Outcome)
	data := result.Data

	// Bare value without the wrapper: accepted, but confidence is unknown.
	assert.Equal(t, "NIH-R01-55", data.GrantID.Get())
	assert.Equal(t, model.ConfidenceUncertain, data.GrantID.Confidence)

	// Currency string and numeric confidence score.
	assert.InDelta(t, 1250000.50, data.AwardAmount.Get(), 0.001)
	assert.Equal(t, model.ConfidenceHigh, data.AwardAmount.Confidence)

	// Single string promoted to a one-element list.
	assert.Equal(t, []string{"Dr. Solo"}, data.CoPIs.Get())

	// Flat budget map with embedded total.
	budget := data.Budget.Get()
	require.NotNil(t, budget.Total)
	assert.InDelta(t, 1250000.5, *budget.Total, 0.001)
	assert.InDelta(t, 900000, budget.Categories["personnel"], 0.001)
	_, hasTotalKey := budget.Categories["total"]
	assert.False(t, hasTotalKey)

	// Null value stays empty with uncertain confidence.
	assert.False(t, data.Timeline.EndDate.Present())
	assert.Equal(t, model.ConfidenceUncertain, data.Timeline.EndDate.Confidence)
}

func TestParseResponseEmptyStringsAreAbsent(t *testing.T) {
	raw := `{
	  "grant_id": {"value": "", "confidence": "high"},
	  "grant_name": {"value": "Real Name", "confidence": "medium"}
	}`

	result := ParseResponse(raw)
	require.Equal(t, ParseOK, result.Outcome)
	assert.False(t, result.Data.GrantID.Present())
	assert.Equal(t, model.ConfidenceUncertain, result.Data.GrantID.Confidence)
	assert.Equal(t, "Real Name", result.Data.GrantName.Get())
}

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: `{"a": 1}`, want: `{"a": 1}`},
		{name: "json fence", input: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "bare fence", input: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "padded", input: "  \n```json\n{\"a\": 1}\n```\n  ", want: `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownWrapper(tt.input))
		})
	}
}
