package models

import "encoding/json"

// Wire DTOs for the two external collaborators: the adaptive-learning
// backend (session lifecycle) and the AI scoring service (combined
// biometric analysis, best-effort persistence, push events).

type SessionStartRequest struct {
	LessonID   string `json:"lessonId" binding:"required"`
	CourseID   string `json:"courseId" binding:"required"`
	DeviceType string `json:"deviceType"`
}

type SessionStartResponse struct {
	SessionID          string `json:"sessionId"`
	IsOnboardingPeriod bool   `json:"isOnboardingPeriod"`
}

// SessionUpdateRequest carries exactly one of its optional blocks.
type SessionUpdateRequest struct {
	BehavioralMetrics  *BehavioralSessionMetrics `json:"behavioralMetrics,omitempty"`
	ContentInteraction *ContentInteraction       `json:"contentInteraction,omitempty"`
	QuizPerformance    *QuizPerformance          `json:"quizPerformance,omitempty"`
	BreakTaken         bool                      `json:"breakTaken,omitempty"`
}

type QuizPerformance struct {
	Correct  bool `json:"correct"`
	HintUsed bool `json:"hintUsed"`
}

// RealTimeAdaptation is the directive the backend may return on update.
type RealTimeAdaptation struct {
	Action       string        `json:"action"`
	Reason       string        `json:"reason"`
	Intervention *Intervention `json:"intervention,omitempty"`
}

type SessionUpdateResponse struct {
	Adaptations *RealTimeAdaptation `json:"adaptations,omitempty"`
}

type SessionEndRequest struct {
	LessonCompleted    bool                     `json:"lessonCompleted"`
	OverallPerformance float64                  `json:"overallPerformance"`
	FocusScore         float64                  `json:"focusScore"`
	FinalMetrics       BehavioralSessionMetrics `json:"finalMetrics"`
}

// CombinedAnalyzeRequest is the batch the reporter submits each tick.
// Nil modality blocks mean the modality is disabled or has no consent.
type CombinedAnalyzeRequest struct {
	UserID       string        `json:"user_id,omitempty"`
	VoiceMetrics *VoiceMetrics `json:"voice_metrics,omitempty"`
	EyeMetrics   *GazeMetrics  `json:"eye_metrics,omitempty"`
	MouseMetrics *MouseMetrics `json:"mouse_metrics,omitempty"`
}

type CombinedAnalyzeResponse struct {
	Success            bool           `json:"success"`
	CombinedScores     Scores         `json:"combined_scores"`
	Interventions      []Intervention `json:"interventions"`
	UrgentIntervention *Intervention  `json:"urgent_intervention,omitempty"`
	// ProfileUpdate is passed through untouched; the pipeline does not
	// interpret profile directives.
	ProfileUpdate json.RawMessage `json:"profile_update,omitempty"`
}

type PersistRequest struct {
	LessonID     string        `json:"lessonId"`
	VoiceMetrics *VoiceMetrics `json:"voiceMetrics,omitempty"`
	EyeMetrics   *GazeMetrics  `json:"eyeMetrics,omitempty"`
	MouseMetrics *MouseMetrics `json:"mouseMetrics,omitempty"`
	Scores       Scores        `json:"scores"`
}

// PushEnvelope is one message on the push channel. A "connected" type only
// flips the connected flag; "intervention" carries a payload; anything
// else is ignored.
type PushEnvelope struct {
	Type string    `json:"type"`
	Data *PushData `json:"data,omitempty"`
}

type PushData struct {
	Intervention *Intervention `json:"intervention,omitempty"`
	Scores       *Scores       `json:"scores,omitempty"`
	Timestamp    string        `json:"timestamp,omitempty"`
}
