package domain

import (
	"strings"
	"time"
)

// PillPatch is an update to an existing pill. The rule, owner and ID of a
// pill can never be changed through a patch.
//
// Merge rules:
//   - Title is always replaced, trimmed of surrounding whitespace.
//   - Description is replaced when non-nil, including with "".
//   - Icon is replaced when non-nil and non-empty.
//   - Methods are replaced entirely when at least one non-blank entry is given.
type PillPatch struct {
	Title       string
	Description *string
	Icon        *string
	Methods     []string
}

// Validate checks the patch: the title rule, and that any replacement
// methods are in allowed. A nil allowed set accepts any method.
func (p PillPatch) Validate(allowed MethodSet) error {
	var messages []string
	if !validTitle(p.Title) {
		messages = append(messages, MsgTitleTooShort)
	}
	if msg := allowed.unsupportedMessage(compactMethods(p.Methods)); msg != "" {
		messages = append(messages, msg)
	}
	if len(messages) > 0 {
		return NewValidationFailedError(messages...)
	}
	return nil
}

// Apply merges the patch into pill and bumps UpdatedAt.
func (p PillPatch) Apply(pill *Pill, now time.Time) {
	pill.Title = strings.TrimSpace(p.Title)
	if p.Description != nil {
		pill.Description = *p.Description
	}
	if p.Icon != nil && *p.Icon != "" {
		pill.Icon = *p.Icon
	}
	if methods := compactMethods(p.Methods); len(methods) > 0 {
		pill.Methods = methods
	}
	pill.UpdatedAt = now.UTC()
}
