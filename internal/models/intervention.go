package models

// Intervention types, matching what the scoring service emits.
const (
	InterventionBreak         = "break"
	InterventionSimplify      = "simplify"
	InterventionAlternative   = "alternative"
	InterventionCalming       = "calming"
	InterventionRestructure   = "restructure"
	InterventionEncouragement = "encouragement"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Intervention is a suggested adaptive action surfaced to the learner.
// Ephemeral: consumed once from the mailbox, then cleared.
type Intervention struct {
	Type            string `json:"type"`
	Priority        string `json:"priority"`
	Message         string `json:"message"`
	SuggestedAction string `json:"suggested_action"`
}
