package domain

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// DefaultIcon is used when a pill is created without an icon.
const DefaultIcon = "pill"

// MinTitleLength is the minimum number of characters in a pill title,
// not counting surrounding whitespace.
const MinTitleLength = 3

// MaxStep is the longest interval a rule can repeat at.
const MaxStep = maxDuration

const maxDuration = time.Duration(math.MaxInt64)

// Common validation errors for Pill
var (
	ErrEmptyPillID       = errors.New("pill ID cannot be empty")
	ErrEmptyPillUserID   = errors.New("pill user ID cannot be empty")
	ErrPillTitleTooShort = errors.New("pill title is too short")
	ErrNoMethods         = errors.New("pill must have at least one reminding method")
	ErrInvalidStep       = errors.New("rule step must be positive")
	ErrEmptyStartDate    = errors.New("rule start date cannot be empty")
)

// Rule is the recurrence of a pill reminder: the first occurrence and the
// interval between occurrences.
type Rule struct {
	StartDate time.Time     `json:"start_date"`
	Step      time.Duration `json:"-"`
	// CurrentDate is the next occurrence to fire. Nil until scheduled.
	CurrentDate *time.Time `json:"current_date,omitempty"`
}

// StepMillis returns the step in whole milliseconds.
func (r Rule) StepMillis() int64 {
	return r.Step.Milliseconds()
}

// NextOccurrence returns the first occurrence at or after t.
func (r Rule) NextOccurrence(t time.Time) time.Time {
	if r.Step <= 0 || !t.After(r.StartDate) {
		return r.StartDate
	}
	next := addSteps(r.StartDate, r.periods(t), r.Step)
	for next.Before(t) {
		next = next.Add(r.Step)
	}
	return next
}

// OccurrenceAfter returns the first occurrence strictly after t.
func (r Rule) OccurrenceAfter(t time.Time) time.Time {
	next := r.NextOccurrence(t)
	if r.Step <= 0 {
		return next
	}
	for !next.After(t) {
		next = next.Add(r.Step)
	}
	return next
}

// periods returns the number of whole steps between the start date and t,
// possibly one short. t.Sub saturates for spans beyond ~292 years, so those
// are measured in milliseconds instead.
func (r Rule) periods(t time.Time) int64 {
	elapsed := t.Sub(r.StartDate)
	if elapsed < maxDuration || r.Step < time.Millisecond {
		return int64(elapsed / r.Step)
	}
	return (t.UnixMilli() - r.StartDate.UnixMilli()) / r.Step.Milliseconds()
}

// addSteps returns t advanced by n steps without overflowing time.Duration.
func addSteps(t time.Time, n int64, step time.Duration) time.Time {
	perChunk := int64(maxDuration / step)
	for n > perChunk {
		t = t.Add(time.Duration(perChunk) * step)
		n -= perChunk
	}
	return t.Add(time.Duration(n) * step)
}

// Validate checks the structural invariants of a rule.
func (r Rule) Validate() error {
	if r.StartDate.IsZero() {
		return ErrEmptyStartDate
	}
	if r.Step <= 0 {
		return ErrInvalidStep
	}
	return nil
}

// Pill is a medication reminder owned by a single user.
type Pill struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Methods     []string  `json:"methods"`
	Rule        Rule      `json:"rule"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPill builds a pill for userID from a normalized draft. The first
// occurrence at or after now becomes the rule's current date.
func NewPill(userID uuid.UUID, draft PillDraft, now time.Time) (*Pill, error) {
	now = now.UTC()
	icon := draft.Icon
	if icon == "" {
		icon = DefaultIcon
	}

	rule := draft.Rule
	current := rule.NextOccurrence(now)
	rule.CurrentDate = &current

	pill := &Pill{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       draft.Title,
		Description: draft.Description,
		Icon:        icon,
		Methods:     append([]string(nil), draft.Methods...),
		Rule:        rule,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := pill.Validate(); err != nil {
		return nil, err
	}
	return pill, nil
}

// Validate checks if the Pill has valid data.
func (p *Pill) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPillID
	}
	if p.UserID == uuid.Nil {
		return ErrEmptyPillUserID
	}
	if !validTitle(p.Title) {
		return ErrPillTitleTooShort
	}
	if len(p.Methods) == 0 {
		return ErrNoMethods
	}
	return p.Rule.Validate()
}

// IsOwnedBy reports whether userID owns the pill.
func (p *Pill) IsOwnedBy(userID uuid.UUID) bool {
	return p.UserID == userID
}
