package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chi-grants/grantflow/internal/model"
)

// ParseOutcome tags how much of a service response could be understood.
type ParseOutcome int

// Parse outcomes.
const (
	// ParseOK: every present field coerced cleanly.
	ParseOK ParseOutcome = iota
	// ParsePartial: response decoded but some fields could not be coerced;
	// those are listed in Unparsed and left unextracted.
	ParsePartial
	// ParseFail: the response is not a usable JSON object at all.
	ParseFail
)

// ParseResult is the tagged outcome of parsing one service response. The
// shape of the reply is never trusted: missing keys become empty fields,
// uncoercible ones are reported rather than guessed at.
type ParseResult struct {
	Data     *model.GrantData
	Err      error
	Unparsed []string
	Outcome  ParseOutcome
}

var grantResponseKeys = []string{
	"grant_id", "grant_name", "funding_agency", "award_amount", "grant_type",
	"application_date", "award_date", "start_date", "end_date",
	"principal_investigator", "co_investigators", "budget", "abstract", "objectives",
}

// ParseResponse decodes a raw completion into a GrantData.
func ParseResponse(raw string) ParseResult {
	content := cleanMarkdownWrapper(raw)

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &top); err != nil {
		return ParseResult{Outcome: ParseFail, Err: fmt.Errorf("response is not a JSON object: %w", err)}
	}

	recognized := 0
	for _, key := range grantResponseKeys {
		if _, ok := top[key]; ok {
			recognized++
		}
	}
	if recognized == 0 {
		return ParseResult{Outcome: ParseFail, Err: fmt.Errorf("no recognized fields in response")}
	}

	var unparsed []string
	data := model.NewGrantData()
	data.GrantID = decodeField(top, "grant_id", coerceString, &unparsed)
	data.GrantName = decodeField(top, "grant_name", coerceString, &unparsed)
	data.Agency = decodeField(top, "funding_agency", coerceString, &unparsed)
	data.AwardAmount = decodeField(top, "award_amount", coerceAmount, &unparsed)
	data.GrantType = decodeField(top, "grant_type", coerceString, &unparsed)
	data.Timeline.ApplicationDate = decodeField(top, "application_date", coerceDate, &unparsed)
	data.Timeline.AwardDate = decodeField(top, "award_date", coerceDate, &unparsed)
	data.Timeline.StartDate = decodeField(top, "start_date", coerceDate, &unparsed)
	data.Timeline.EndDate = decodeField(top, "end_date", coerceDate, &unparsed)
	data.PI = decodeField(top, "principal_investigator", coerceString, &unparsed)
	data.CoPIs = decodeField(top, "co_investigators", coerceStringList, &unparsed)
	data.Budget = decodeField(top, "budget", coerceBudget, &unparsed)
	data.Abstract = decodeField(top, "abstract", coerceString, &unparsed)
	data.Objectives = decodeField(top, "objectives", coerceStringList, &unparsed)

	outcome := ParseOK
	if len(unparsed) > 0 {
		outcome = ParsePartial
	}
	return ParseResult{Outcome: outcome, Data: data, Unparsed: unparsed}
}

// rawField is the per-attribute wire wrapper.
type rawField struct {
	Value      json.RawMessage `json:"value"`
	Confidence json.RawMessage `json:"confidence"`
	SourceText string          `json:"source_text"`
}

func decodeField[T any](top map[string]json.RawMessage, key string, coerce func(json.RawMessage) (T, error), unparsed *[]string) model.Field[T] {
	rawMsg, ok := top[key]
	if !ok {
		return model.EmptyField[T]()
	}

	var rf rawField
	if err := json.Unmarshal(rawMsg, &rf); err != nil {
		// Bare value without the {value, confidence} wrapper: accept it
		// but with no declared confidence.
		if isNullish(rawMsg) {
			return model.EmptyField[T]()
		}
		if v, cErr := coerce(rawMsg); cErr == nil {
			return model.NewField(v, model.ConfidenceUncertain)
		}
		*unparsed = append(*unparsed, key)
		return model.EmptyField[T]()
	}

	if isNullish(rf.Value) {
		// A wrapper-shaped object with no value and no confidence may be
		// a bare object value, such as a budget without the wrapper.
		if len(rf.Confidence) == 0 && !isNullish(rawMsg) {
			if v, cErr := coerce(rawMsg); cErr == nil {
				return model.NewField(v, model.ConfidenceUncertain)
			}
		}
		return model.EmptyField[T]()
	}

	v, err := coerce(rf.Value)
	if err != nil {
		*unparsed = append(*unparsed, key)
		return model.EmptyField[T]()
	}

	f := model.NewField(v, parseRawConfidence(rf.Confidence))
	f.SourceText = rf.SourceText
	return f
}

func isNullish(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null" || s == `""`
}

// parseRawConfidence accepts either a level name or a numeric score.
func parseRawConfidence(raw json.RawMessage) model.Confidence {
	if len(raw) == 0 {
		return model.ConfidenceUncertain
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return model.ParseConfidence(s)
	}
	var score float64
	if err := json.Unmarshal(raw, &score); err == nil {
		return model.ConfidenceFromScore(score)
	}
	return model.ConfidenceUncertain
}

func coerceString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("not a string")
}

func coerceAmount(raw json.RawMessage) (float64, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number")
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", s)
	}
	return n, nil
}

func coerceDate(raw json.RawMessage) (model.Date, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.Date{}, fmt.Errorf("not a date string")
	}
	return model.ParseDate(s)
}

func coerceStringList(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}, nil
	}
	return nil, fmt.Errorf("not a string array")
}

type rawBudget struct {
	Categories map[string]float64 `json:"categories"`
	Total      *float64           `json:"total"`
}

// coerceBudget accepts the documented {categories, total} object or a flat
// category map with an optional "total" entry.
func coerceBudget(raw json.RawMessage) (model.Budget, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return model.Budget{}, fmt.Errorf("not a budget object: %w", err)
	}

	if _, ok := probe["categories"]; ok {
		var rb rawBudget
		if err := json.Unmarshal(raw, &rb); err != nil {
			return model.Budget{}, fmt.Errorf("malformed budget: %w", err)
		}
		if rb.Categories == nil {
			rb.Categories = map[string]float64{}
		}
		return model.Budget{Categories: rb.Categories, Total: rb.Total}, nil
	}

	flat := make(map[string]float64, len(probe))
	for k, v := range probe {
		amount, err := coerceAmount(v)
		if err != nil {
			return model.Budget{}, fmt.Errorf("budget amount %q: %w", k, err)
		}
		flat[k] = amount
	}
	var total *float64
	if t, ok := flat["total"]; ok {
		total = &t
		delete(flat, "total")
	}
	return model.Budget{Categories: flat, Total: total}, nil
}

// cleanMarkdownWrapper strips a ```json fence when the model wraps its
// reply in one despite instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	if idx := strings.Index(content, "\n"); idx >= 0 {
		content = content[idx+1:]
	} else {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
