package api

import (
	"time"

	"github.com/phrazzld/pillbox-api/internal/api/shared"
	"github.com/phrazzld/pillbox-api/internal/domain"
)

// CreatePillRequest defines the payload for creating a pill. Title, methods
// and the two dates are checked by the domain rules so that every problem is
// reported at once; the tags here only bound field sizes.
type CreatePillRequest struct {
	Title        string   `json:"title"         validate:"max=200"`
	Description  string   `json:"description"   validate:"max=2000"`
	Icon         string   `json:"icon"          validate:"max=64"`
	Methods      []string `json:"methods"       validate:"max=16,dive,max=64"`
	StartDateUTC string   `json:"start_date_utc" validate:"max=64"`
	NextDateUTC  string   `json:"next_date_utc"  validate:"max=64"`
}

// UpdatePillRequest defines the payload for updating a pill. Absent
// description and icon fields leave the stored values alone. Fields outside
// this struct, including the rule, are ignored.
type UpdatePillRequest struct {
	Title       string   `json:"title"       validate:"max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Icon        *string  `json:"icon"        validate:"omitempty,max=64"`
	Methods     []string `json:"methods"     validate:"max=16,dive,max=64"`
}

// RuleResponse represents a pill's recurrence rule.
type RuleResponse struct {
	StartDate   time.Time  `json:"start_date"`
	StepMs      int64      `json:"step_ms"`
	CurrentDate *time.Time `json:"current_date,omitempty"`
}

// PillResponse represents the response data for a pill
type PillResponse struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Methods     []string     `json:"methods"`
	Rule        RuleResponse `json:"rule"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// PillEnvelope wraps a single pill and any flash messages.
type PillEnvelope struct {
	Pill  PillResponse   `json:"pill"`
	Flash []shared.Flash `json:"flash,omitempty"`
}

// PillListEnvelope wraps the caller's pills and any flash messages.
type PillListEnvelope struct {
	Pills []PillResponse `json:"pills"`
	Flash []shared.Flash `json:"flash,omitempty"`
}

// FlashEnvelope carries only flash messages.
type FlashEnvelope struct {
	Flash []shared.Flash `json:"flash"`
}

func (r CreatePillRequest) toInput() domain.CreatePillInput {
	return domain.CreatePillInput{
		Title:        r.Title,
		Description:  r.Description,
		Icon:         r.Icon,
		Methods:      r.Methods,
		StartDateUTC: r.StartDateUTC,
		NextDateUTC:  r.NextDateUTC,
	}
}

func (r UpdatePillRequest) toPatch() domain.PillPatch {
	return domain.PillPatch{
		Title:       r.Title,
		Description: r.Description,
		Icon:        r.Icon,
		Methods:     r.Methods,
	}
}

func pillToResponse(p *domain.Pill) PillResponse {
	return PillResponse{
		ID:          p.ID.String(),
		UserID:      p.UserID.String(),
		Title:       p.Title,
		Description: p.Description,
		Icon:        p.Icon,
		Methods:     p.Methods,
		Rule: RuleResponse{
			StartDate:   p.Rule.StartDate,
			StepMs:      p.Rule.StepMillis(),
			CurrentDate: p.Rule.CurrentDate,
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func pillsToResponse(pills []*domain.Pill) []PillResponse {
	out := make([]PillResponse, 0, len(pills))
	for _, p := range pills {
		out = append(out, pillToResponse(p))
	}
	return out
}
