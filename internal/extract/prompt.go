package extract

import (
	"fmt"
	"sort"
	"strings"
)

// BuildPrompt assembles the extraction instruction for one document. The
// response contract is one JSON object with a {value, confidence} pair per
// grant attribute; context hints are supplied as prior knowledge for the
// model to weigh, never substituted into the output afterwards.
func BuildPrompt(text string, hints map[string]string) string {
	var b strings.Builder

	b.WriteString("Extract structured grant information from the document below.\n\n")
	b.WriteString("Respond with a single JSON object containing exactly these keys:\n")
	b.WriteString(`  grant_id                - grant or award identifier (string)
  grant_name              - grant or project title (string)
  funding_agency          - funding organization (string)
  award_amount            - total award in dollars (number)
  grant_type              - e.g. research, training, infrastructure (string)
  application_date        - date submitted, YYYY-MM-DD (string)
  award_date              - date awarded, YYYY-MM-DD (string)
  start_date              - project start, YYYY-MM-DD (string)
  end_date                - project end, YYYY-MM-DD (string)
  principal_investigator  - lead investigator name (string)
  co_investigators        - other investigators (array of strings)
  budget                  - {"categories": {"personnel": n, "equipment": n, "travel": n, "supplies": n, "indirect_costs": n, "other": n}, "total": n}
  abstract                - project summary (string)
  objectives              - stated objectives (array of strings)
`)
	b.WriteString("\nEvery key must map to an object {\"value\": <extracted value>, \"confidence\": \"high\"|\"medium\"|\"low\"|\"uncertain\"}.\n")
	b.WriteString("Use {\"value\": null, \"confidence\": \"uncertain\"} when the document does not state a field.\n")
	b.WriteString("Optionally include \"source_text\" with the supporting excerpt.\n")

	if len(hints) > 0 {
		keys := make([]string, 0, len(hints))
		for k := range hints {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\nKnown context (may inform extraction, do not invent values from it):")
		for _, k := range keys {
			b.WriteString(fmt.Sprintf(" %s=%s", k, hints[k]))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nDocument:\n")
	b.WriteString(text)

	return b.String()
}

// BuildCorrectivePrompt is the stricter re-prompt used after a response
// that could not be parsed. It names the failure and restates the contract.
func BuildCorrectivePrompt(text string, hints map[string]string, reason string) string {
	var b strings.Builder
	b.WriteString("Your previous response could not be parsed: ")
	b.WriteString(reason)
	b.WriteString("\nRespond again with ONLY the JSON object described below. No prose, no markdown fences.\n\n")
	b.WriteString(BuildPrompt(text, hints))
	return b.String()
}
