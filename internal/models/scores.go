package models

// Scores are the six normalized behavioral values exposed to the UI layer.
// Every update path clamps them to [0,100].
type Scores struct {
	Attention    float64 `json:"attention"`
	Engagement   float64 `json:"engagement"`
	Stress       float64 `json:"stress"`
	Confidence   float64 `json:"confidence"`
	Frustration  float64 `json:"frustration"`
	FocusQuality float64 `json:"focus_quality"`
}

// Clamped returns a copy with every score clamped to [0,100].
func (s Scores) Clamped() Scores {
	return Scores{
		Attention:    ClampScore(s.Attention),
		Engagement:   ClampScore(s.Engagement),
		Stress:       ClampScore(s.Stress),
		Confidence:   ClampScore(s.Confidence),
		Frustration:  ClampScore(s.Frustration),
		FocusQuality: ClampScore(s.FocusQuality),
	}
}

// ClampScore clamps a value to the normalized 0-100 score range.
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
