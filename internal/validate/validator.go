// Package validate checks extracted grant records for internal
// consistency. Findings are advisory flags for human review; validation
// never mutates the record and never escalates a document to an error
// state on its own.
package validate

import (
	"fmt"
	"math"
	"sort"

	"github.com/chi-grants/grantflow/internal/model"
)

// suspiciousAwardCeiling is the award amount above which a value is more
// likely an extraction artifact than a real grant.
const suspiciousAwardCeiling = 50_000_000

// Validator applies the consistency rules. Tolerance is the allowed
// absolute difference between the budget category sum and the declared
// total; Threshold is the confidence score below which a field is listed
// for review.
type Validator struct {
	Tolerance float64
	Threshold float64
}

// New creates a Validator.
func New(tolerance, threshold float64) *Validator {
	return &Validator{Tolerance: tolerance, Threshold: threshold}
}

// Validate inspects a GrantData and returns the verdict. It is pure:
// identical input yields identical output, and the record is not modified.
func (v *Validator) Validate(g *model.GrantData) model.ValidationFlags {
	var flags []model.Flag
	add := func(code, field, message string) {
		flags = append(flags, model.Flag{Code: code, Field: field, Message: message})
	}

	if !g.GrantID.Present() {
		add(model.FlagMissingRequiredField, "grant_id", "grant identifier was not extracted")
	}
	if !g.GrantName.Present() {
		add(model.FlagMissingRequiredField, "grant_name", "grant name was not extracted")
	}
	if !g.Agency.Present() {
		add(model.FlagMissingRequiredField, "funding_agency", "funding agency was not extracted")
	}

	flags = append(flags, v.dateFlags(g.Timeline)...)
	flags = append(flags, v.amountFlags(g)...)

	threshold := model.ThresholdLevel(v.Threshold)
	var low []string
	for name, confidence := range g.FieldConfidences() {
		if !confidence.AtLeast(threshold) {
			low = append(low, name)
		}
	}
	sort.Strings(low)

	return model.ValidationFlags{
		Flags:         flags,
		Passed:        len(flags) == 0,
		LowConfidence: low,
		Threshold:     threshold,
	}
}

// dateFlags checks milestone ordering. A rule only fires when both of its
// operands were extracted.
func (v *Validator) dateFlags(t model.Timeline) []model.Flag {
	var flags []model.Flag

	if t.StartDate.Present() && t.EndDate.Present() && t.StartDate.Get().After(t.EndDate.Get()) {
		flags = append(flags, model.Flag{
			Code:    model.FlagDateOrderStartEnd,
			Field:   "start_date",
			Message: fmt.Sprintf("start date %s falls after end date %s", fmtDate(t.StartDate.Get()), fmtDate(t.EndDate.Get())),
		})
	}
	if t.ApplicationDate.Present() && t.AwardDate.Present() && t.ApplicationDate.Get().After(t.AwardDate.Get()) {
		flags = append(flags, model.Flag{
			Code:    model.FlagDateOrderAppAward,
			Field:   "application_date",
			Message: fmt.Sprintf("application date %s falls after award date %s", fmtDate(t.ApplicationDate.Get()), fmtDate(t.AwardDate.Get())),
		})
	}
	if t.AwardDate.Present() && t.StartDate.Present() && t.AwardDate.Get().After(t.StartDate.Get()) {
		flags = append(flags, model.Flag{
			Code:    model.FlagDateOrderAwardStart,
			Field:   "award_date",
			Message: fmt.Sprintf("award date %s falls after start date %s", fmtDate(t.AwardDate.Get()), fmtDate(t.StartDate.Get())),
		})
	}

	return flags
}

// amountFlags checks monetary sanity: non-negative amounts everywhere, a
// plausible award, and a budget whose categories reconcile with its total.
func (v *Validator) amountFlags(g *model.GrantData) []model.Flag {
	var flags []model.Flag

	if g.AwardAmount.Present() {
		award := g.AwardAmount.Get()
		if award < 0 {
			flags = append(flags, model.Flag{
				Code:    model.FlagNegativeAmount,
				Field:   "award_amount",
				Message: fmt.Sprintf("award amount %.2f is negative", award),
			})
		}
		if award <= 0 || award > suspiciousAwardCeiling {
			flags = append(flags, model.Flag{
				Code:    model.FlagSuspiciousAmount,
				Field:   "award_amount",
				Message: fmt.Sprintf("award amount %.2f is outside the plausible range", award),
			})
		}
	}

	if !g.Budget.Present() {
		return flags
	}
	budget := g.Budget.Get()

	categories := make([]string, 0, len(budget.Categories))
	for name := range budget.Categories {
		categories = append(categories, name)
	}
	sort.Strings(categories)
	for _, name := range categories {
		if amount := budget.Categories[name]; amount < 0 {
			flags = append(flags, model.Flag{
				Code:    model.FlagNegativeAmount,
				Field:   "budget." + name,
				Message: fmt.Sprintf("budget category %s amount %.2f is negative", name, amount),
			})
		}
	}

	if budget.Total != nil {
		total := *budget.Total
		if total < 0 {
			flags = append(flags, model.Flag{
				Code:    model.FlagNegativeAmount,
				Field:   "budget.total",
				Message: fmt.Sprintf("budget total %.2f is negative", total),
			})
		}
		if len(budget.Categories) > 0 {
			if diff := math.Abs(budget.CategorySum() - total); diff > v.Tolerance {
				flags = append(flags, model.Flag{
					Code:    model.FlagBudgetSumMismatch,
					Field:   "budget",
					Message: fmt.Sprintf("categories sum to %.2f but total is %.2f (difference %.2f, tolerance %.2f)", budget.CategorySum(), total, diff, v.Tolerance),
				})
			}
		}
	}

	return flags
}

func fmtDate(d model.Date) string {
	return d.Format("2006-01-02")
}
