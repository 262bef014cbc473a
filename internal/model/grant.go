package model

import "time"

// Canonical budget categories the extraction prompt asks for. The budget
// map may carry others; these are the ones the simulated client emits.
var BudgetCategories = []string{
	"personnel",
	"equipment",
	"travel",
	"supplies",
	"indirect_costs",
	"other",
}

// Budget is a category→amount breakdown plus the document's declared total.
type Budget struct {
	Categories map[string]float64 `json:"categories"`
	Total      *float64           `json:"total,omitempty"`
}

// CategorySum returns the sum of all category amounts.
func (b Budget) CategorySum() float64 {
	var sum float64
	for _, amount := range b.Categories {
		sum += amount
	}
	return sum
}

// Timeline holds the grant's four milestone dates.
type Timeline struct {
	ApplicationDate Field[Date] `json:"application_date"`
	AwardDate       Field[Date] `json:"award_date"`
	StartDate       Field[Date] `json:"start_date"`
	EndDate         Field[Date] `json:"end_date"`
}

// ExtractionMeta records how a GrantData was produced. Simulated output is
// detectable programmatically via the Simulated flag; truncation of the
// submitted text is recorded so reviewers know extraction may be incomplete.
type ExtractionMeta struct {
	DocumentID     string    `json:"document_id"`
	SourceFile     string    `json:"source_file"`
	ExtractedAt    time.Time `json:"extracted_at"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	Simulated      bool      `json:"simulated"`
	Truncated      bool      `json:"truncated"`
	TextLength     int       `json:"text_length"`
	UnparsedFields []string  `json:"unparsed_fields,omitempty"`
	NeedsReview    []string  `json:"needs_review,omitempty"`
}

// GrantData is the structured output of extraction for one document. Each
// attribute carries its own confidence; re-extraction replaces the prior
// GrantData for the same document.
type GrantData struct {
	GrantID     Field[string]   `json:"grant_id"`
	GrantName   Field[string]   `json:"grant_name"`
	Agency      Field[string]   `json:"funding_agency"`
	AwardAmount Field[float64]  `json:"award_amount"`
	GrantType   Field[string]   `json:"grant_type"`
	Timeline    Timeline        `json:"timeline"`
	PI          Field[string]   `json:"principal_investigator"`
	CoPIs       Field[[]string] `json:"co_investigators"`
	Budget      Field[Budget]   `json:"budget"`
	Abstract    Field[string]   `json:"abstract"`
	Objectives  Field[[]string] `json:"objectives"`
	Extraction  ExtractionMeta  `json:"extraction_metadata"`
}

// NewGrantData returns a GrantData with every field unextracted.
func NewGrantData() *GrantData {
	return &GrantData{
		GrantID:     EmptyField[string](),
		GrantName:   EmptyField[string](),
		Agency:      EmptyField[string](),
		AwardAmount: EmptyField[float64](),
		GrantType:   EmptyField[string](),
		Timeline: Timeline{
			ApplicationDate: EmptyField[Date](),
			AwardDate:       EmptyField[Date](),
			StartDate:       EmptyField[Date](),
			EndDate:         EmptyField[Date](),
		},
		PI:         EmptyField[string](),
		CoPIs:      EmptyField[[]string](),
		Budget:     EmptyField[Budget](),
		Abstract:   EmptyField[string](),
		Objectives: EmptyField[[]string](),
	}
}

// FieldConfidences returns the confidence of every present field, keyed by
// the field's wire name. Absent fields are omitted.
func (g *GrantData) FieldConfidences() map[string]Confidence {
	out := make(map[string]Confidence)
	add := func(name string, present bool, c Confidence) {
		if present {
			out[name] = c
		}
	}
	add("grant_id", g.GrantID.Present(), g.GrantID.Confidence)
	add("grant_name", g.GrantName.Present(), g.GrantName.Confidence)
	add("funding_agency", g.Agency.Present(), g.Agency.Confidence)
	add("award_amount", g.AwardAmount.Present(), g.AwardAmount.Confidence)
	add("grant_type", g.GrantType.Present(), g.GrantType.Confidence)
	add("application_date", g.Timeline.ApplicationDate.Present(), g.Timeline.ApplicationDate.Confidence)
	add("award_date", g.Timeline.AwardDate.Present(), g.Timeline.AwardDate.Confidence)
	add("start_date", g.Timeline.StartDate.Present(), g.Timeline.StartDate.Confidence)
	add("end_date", g.Timeline.EndDate.Present(), g.Timeline.EndDate.Confidence)
	add("principal_investigator", g.PI.Present(), g.PI.Confidence)
	add("co_investigators", g.CoPIs.Present(), g.CoPIs.Confidence)
	add("budget", g.Budget.Present(), g.Budget.Confidence)
	add("abstract", g.Abstract.Present(), g.Abstract.Confidence)
	add("objectives", g.Objectives.Present(), g.Objectives.Confidence)
	return out
}
