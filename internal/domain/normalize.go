package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Validation messages shown to the user, in evaluation order.
const (
	MsgTitleTooShort     = "Pill title must be at least 3 characters long."
	MsgNoMethods         = "Should choose at least 1 reminding method."
	MsgInvalidStartDate  = "Start Date/Time is invalid."
	MsgInvalidNextDate   = "Next Date/Time is invalid."
	MsgNextNotAfterStart = "Next Date/Time must be after the Start Date/Time."
	MsgStepTooLong       = "Next Date/Time must be within 292 years of the Start Date/Time."

	// MsgUnsupportedMethod is formatted with the comma separated unsupported methods.
	MsgUnsupportedMethod = "Reminding method is not supported: %s."
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CreatePillInput carries the raw fields submitted when creating a pill.
type CreatePillInput struct {
	Title        string
	Description  string
	Icon         string
	Methods      []string
	StartDateUTC string
	NextDateUTC  string
}

// PillDraft is a validated, normalized pill that has not been assigned an
// owner or an ID yet.
type PillDraft struct {
	Title       string
	Description string
	Icon        string
	Methods     []string
	Rule        Rule
}

// MethodSet is the set of reminding methods that can be delivered. A nil set
// accepts any method.
type MethodSet map[string]struct{}

// NewMethodSet builds a MethodSet from methods, ignoring blank entries.
func NewMethodSet(methods ...string) MethodSet {
	s := make(MethodSet, len(methods))
	for _, m := range compactMethods(methods) {
		s[m] = struct{}{}
	}
	return s
}

// unsupportedMessage returns the validation message for the methods outside
// s, or "" when every method is supported.
func (s MethodSet) unsupportedMessage(methods []string) string {
	if s == nil {
		return ""
	}
	var unknown []string
	seen := make(map[string]bool)
	for _, m := range methods {
		if _, ok := s[m]; ok || seen[m] {
			continue
		}
		seen[m] = true
		unknown = append(unknown, m)
	}
	if len(unknown) == 0 {
		return ""
	}
	return fmt.Sprintf(MsgUnsupportedMethod, strings.Join(unknown, ", "))
}

// NormalizeCreatePill validates in and converts the start and next timestamps
// into a recurrence rule. Methods outside allowed are rejected; a nil allowed
// set accepts any method. Every rule is checked and all failures are returned
// together in a *ValidationFailedError.
func NormalizeCreatePill(in CreatePillInput, allowed MethodSet) (*PillDraft, error) {
	var messages []string

	if !validTitle(in.Title) {
		messages = append(messages, MsgTitleTooShort)
	}

	methods := compactMethods(in.Methods)
	if len(methods) == 0 {
		messages = append(messages, MsgNoMethods)
	} else if msg := allowed.unsupportedMessage(methods); msg != "" {
		messages = append(messages, msg)
	}

	start, startErr := ParseTimestamp(in.StartDateUTC)
	if startErr != nil {
		messages = append(messages, MsgInvalidStartDate)
	}

	next, nextErr := ParseTimestamp(in.NextDateUTC)
	if nextErr != nil {
		messages = append(messages, MsgInvalidNextDate)
	}

	var stepMs int64
	if startErr == nil && nextErr == nil {
		// Millisecond arithmetic; next.Sub(start) saturates past MaxStep.
		stepMs = next.UnixMilli() - start.UnixMilli()
		switch {
		case stepMs <= 0:
			messages = append(messages, MsgNextNotAfterStart)
		case stepMs > MaxStep.Milliseconds():
			messages = append(messages, MsgStepTooLong)
		}
	}

	if len(messages) > 0 {
		return nil, NewValidationFailedError(messages...)
	}

	return &PillDraft{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Icon:        in.Icon,
		Methods:     methods,
		Rule: Rule{
			StartDate: start,
			Step:      time.Duration(stepMs) * time.Millisecond,
		},
	}, nil
}

// ParseTimestamp parses s as an absolute UTC timestamp truncated to
// millisecond precision.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidFormat
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, ErrInvalidFormat
}

func validTitle(title string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(title)) >= MinTitleLength
}

// compactMethods drops blank entries so [""] counts as no methods.
func compactMethods(methods []string) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
