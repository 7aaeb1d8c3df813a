package models

// Engagement levels assigned to a content interaction by time spent.
const (
	EngagementLow    = "low"
	EngagementMedium = "medium"
	EngagementHigh   = "high"
)

// BehavioralSessionMetrics is the per-lesson-session record owned by the
// behavioral tracker. Scores start at the 50 midpoint and are nudged by a
// fixed magnitude per tracked event, clamped [0,100].
type BehavioralSessionMetrics struct {
	EngagementScore  float64 `json:"engagementScore"`
	FrustrationScore float64 `json:"frustrationScore"`
	ConfidenceScore  float64 `json:"confidenceScore"`

	TabSwitchCount       int `json:"tabSwitchCount"`
	ScrollBacktrackCount int `json:"scrollBacktrackCount"`
	RereadCount          int `json:"rereadCount"`
	HintRequestCount     int `json:"hintRequestCount"`
	HelpRequestCount     int `json:"helpRequestCount"`
	PauseCount           int `json:"pauseCount"`

	InteractionCount int `json:"interactionCount"`
	BlocksCompleted  int `json:"blocksCompleted"`
	BlocksSkipped    int `json:"blocksSkipped"`
	ConsecutiveWrong int `json:"consecutiveWrong"`
	CorrectAnswers   int `json:"correctAnswers"`
	WrongAnswers     int `json:"wrongAnswers"`
}

// ContentInteraction is the classified view of one content-block visit.
type ContentInteraction struct {
	ContentBlockID string  `json:"contentBlockId"`
	TimeSpentMS    float64 `json:"timeSpentMs"`
	Completed      bool    `json:"completed"`
	Engagement     string  `json:"engagement"`
	WasSkipped     bool    `json:"wasSkipped"`
}
