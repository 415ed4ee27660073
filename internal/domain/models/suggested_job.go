package models

import "time"

type SuggestionState string

const (
	SuggestionPending   SuggestionState = "pendiente"
	SuggestionViewed    SuggestionState = "visto"
	SuggestionApplied   SuggestionState = "aplicado"
	SuggestionDismissed SuggestionState = "descartado"
)

// SuggestedJob is a job curated for the candidate by a recruiter.
// HasApplied is computed on every load and never sent back to the API.
type SuggestedJob struct {
	ID          int64           `json:"id"`
	Job         Job             `json:"job"`
	Estado      SuggestionState `json:"estado"`
	Notas       string          `json:"notas"`
	SugeridoPor string          `json:"sugerido_por"`
	Fecha       time.Time       `json:"fecha"`
	HasApplied  bool            `json:"-"`
}

// CanTransitionTo reports whether the suggestion may move to the given state.
// Any state may be dismissed; otherwise the state only moves forward.
func (s SuggestedJob) CanTransitionTo(state SuggestionState) bool {
	if state == SuggestionDismissed {
		return true
	}

	switch s.Estado {
	case SuggestionPending:
		return state == SuggestionViewed || state == SuggestionApplied
	case SuggestionViewed:
		return state == SuggestionApplied
	default:
		return false
	}
}
