package model

import "time"

// StepEvent is one webhook notification: a caller pressed a digit at one IVR
// step during a call. Digit, From, and To may be empty — the provider omits
// them for timeout and hangup callbacks.
type StepEvent struct {
	CallSid string `json:"call_sid"`
	Step    string `json:"step"`
	Digit   string `json:"digit"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

// PathRecord is the canonical IVR state for one call: at most one row per
// call SID, updated in place as step events arrive. A nil choice means the
// caller never reached (or never answered) that step.
type PathRecord struct {
	ID             string    `json:"id"`
	CallSid        string    `json:"call_sid"`
	FromNumber     *string   `json:"from_number,omitempty"`
	ToNumber       *string   `json:"to_number,omitempty"`
	LanguageChoice *string   `json:"language_choice,omitempty"`
	StateChoice    *string   `json:"state_choice,omitempty"`
	ServiceChoice  *string   `json:"service_choice,omitempty"`
	ModelChoice    *string   `json:"model_choice,omitempty"`
	HPChoice       *string   `json:"hp_choice,omitempty"`
	CompletePath   string    `json:"complete_path"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Choices returns the five choice fields in step-position order.
func (p PathRecord) Choices() []*string {
	return []*string{
		p.LanguageChoice,
		p.StateChoice,
		p.ServiceChoice,
		p.ModelChoice,
		p.HPChoice,
	}
}

// Selections returns the non-empty choices in step-position order. The result
// is never nil: a record whose every choice is unset yields an empty slice,
// which downstream funnel logic counts as zero selections rather than as a
// missing record.
func (p PathRecord) Selections() []string {
	sels := make([]string, 0, 5)
	for _, c := range p.Choices() {
		if c != nil && *c != "" {
			sels = append(sels, *c)
		}
	}
	return sels
}
