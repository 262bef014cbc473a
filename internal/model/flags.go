package model

// Validation flag codes. Each names one specific consistency violation.
const (
	FlagMissingRequiredField = "missing_required_field"
	FlagDateOrderStartEnd    = "date_order_start_end"
	FlagDateOrderAppAward    = "date_order_application_award"
	FlagDateOrderAwardStart  = "date_order_award_start"
	FlagBudgetSumMismatch    = "budget_sum_mismatch"
	FlagNegativeAmount       = "negative_amount"
	FlagSuspiciousAmount     = "suspicious_amount"
)

// Flag is one validator finding.
type Flag struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationFlags is the validator's verdict on one GrantData. Flags are
// data-quality signals for human review, not errors; LowConfidence lists
// present fields whose confidence fell below the configured threshold.
type ValidationFlags struct {
	Flags         []Flag     `json:"flags"`
	Passed        bool       `json:"passed"`
	LowConfidence []string   `json:"low_confidence_fields,omitempty"`
	Threshold     Confidence `json:"threshold"`
}

// Clean reports a pass with no low-confidence fields, the condition for
// policy-driven auto-approval.
func (v ValidationFlags) Clean() bool {
	return v.Passed && len(v.LowConfidence) == 0
}
