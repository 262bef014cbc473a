package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Field is one AI-derived datum: a typed value with the confidence the
// extraction service assigned to it, an optional source excerpt, and any
// alternative candidates ordered by descending plausibility.
type Field[T any] struct {
	Value        *T         `json:"value"`
	Confidence   Confidence `json:"confidence"`
	SourceText   string     `json:"source_text,omitempty"`
	Alternatives []T        `json:"alternatives,omitempty"`
}

// NewField builds a populated field. An invalid confidence collapses to
// uncertain rather than propagating an undefined level.
func NewField[T any](value T, confidence Confidence) Field[T] {
	if !confidence.Valid() {
		confidence = ConfidenceUncertain
	}
	return Field[T]{Value: &value, Confidence: confidence}
}

// EmptyField builds an unextracted field. A nil value always carries
// uncertain confidence.
func EmptyField[T any]() Field[T] {
	return Field[T]{Confidence: ConfidenceUncertain}
}

// Present reports whether a value was extracted.
func (f Field[T]) Present() bool {
	return f.Value != nil
}

// Get returns the value, or T's zero value when unextracted.
func (f Field[T]) Get() T {
	if f.Value == nil {
		var zero T
		return zero
	}
	return *f.Value
}

// Date is a calendar date that round-trips as "2006-01-02" in JSON.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// MarshalJSON encodes the date as "2006-01-02", or null when zero.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON accepts "2006-01-02", an empty string, or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}
