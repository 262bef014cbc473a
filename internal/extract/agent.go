package extract

import (
	"context"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/chi-grants/grantflow/internal/common"
	"github.com/chi-grants/grantflow/internal/model"
)

// Agent coordinates one extraction: deterministic truncation, the service
// call with bounded retry, parsing with a single corrective re-prompt, and
// confidence threshold tagging.
type Agent struct {
	client Client
	cfg    Config
}

// NewAgent creates an Agent around the given client.
func NewAgent(client Client, cfg Config) *Agent {
	return &Agent{client: client, cfg: cfg}
}

// Extract turns normalized document text into a GrantData. Hints bias the
// model but never overwrite extracted values. Transient service failures
// are retried with backoff and surface as ServiceUnavailableError on
// exhaustion; an unparseable reply gets one corrective re-prompt before
// surfacing as MalformedResponseError. Cancellation propagates as the
// context's error, untranslated.
func (a *Agent) Extract(ctx context.Context, text string, hints map[string]string) (*model.GrantData, error) {
	submitted, truncated := TruncateText(text, a.cfg.MaxTextLength)

	raw, err := a.complete(ctx, BuildPrompt(submitted, hints))
	if err != nil {
		return nil, err
	}

	result := ParseResponse(raw)
	if result.Outcome == ParseFail {
		slog.Warn("Extraction response unparseable, sending corrective re-prompt",
			"provider", a.client.Name(),
			"reason", result.Err)

		raw, err = a.complete(ctx, BuildCorrectivePrompt(submitted, hints, result.Err.Error()))
		if err != nil {
			return nil, err
		}
		result = ParseResponse(raw)
		if result.Outcome == ParseFail {
			return nil, &common.MalformedResponseError{
				Reason: "response did not match the required structure after a corrective re-prompt",
				Err:    result.Err,
			}
		}
	}

	data := result.Data
	data.Extraction = model.ExtractionMeta{
		ExtractedAt:    time.Now().UTC(),
		Provider:       a.client.Name(),
		Model:          a.cfg.ResolveModel(),
		Simulated:      a.client.Name() == ProviderSimulation,
		Truncated:      truncated,
		TextLength:     len(text),
		UnparsedFields: result.Unparsed,
		NeedsReview:    a.belowThreshold(data),
	}

	return data, nil
}

func (a *Agent) complete(ctx context.Context, prompt string) (string, error) {
	attempts := a.cfg.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	var raw string
	err := common.WithRetry(ctx, func() error {
		out, completeErr := a.client.Complete(ctx, prompt)
		if completeErr != nil {
			return completeErr
		}
		raw = out
		return nil
	}, a.cfg.Retry)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &common.ServiceUnavailableError{Provider: a.client.Name(), Attempts: attempts, Err: err}
	}
	return raw, nil
}

// belowThreshold lists the present fields whose confidence misses the
// configured threshold. They stay in the record, tagged for human review.
func (a *Agent) belowThreshold(data *model.GrantData) []string {
	min := model.ThresholdLevel(a.cfg.ConfidenceThreshold)
	var names []string
	for name, confidence := range data.FieldConfidences() {
		if !confidence.AtLeast(min) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

const truncationMarker = "\n...[truncated]...\n"

// TruncateText deterministically bounds text to maxLen bytes, keeping the
// head and tail with the middle elided. Cuts land on rune boundaries.
func TruncateText(text string, maxLen int) (string, bool) {
	if maxLen <= 0 || len(text) <= maxLen {
		return text, false
	}
	budget := maxLen - len(truncationMarker)
	if budget < 2 {
		budget = 2
	}

	headLen := budget * 7 / 10
	tailLen := budget - headLen

	head := text[:runeFloor(text, headLen)]
	tail := text[runeCeil(text, len(text)-tailLen):]

	return head + truncationMarker + tail, true
}

func runeFloor(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

func runeCeil(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}
