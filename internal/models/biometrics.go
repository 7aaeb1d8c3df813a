package models

// Metric records for the three modalities. JSON keys follow the scoring
// service's analyze-combined contract, so a snapshot marshals directly
// into the voice_metrics / eye_metrics / mouse_metrics payload blocks.

type HoverEvent struct {
	ElementID string  `json:"elementId"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
	Abandoned bool    `json:"abandoned"`
}

type ScrollPattern struct {
	UpCount    int `json:"upCount"`
	DownCount  int `json:"downCount"`
	RapidCount int `json:"rapidScrollCount"`
}

type MouseMetrics struct {
	TotalDistance        float64 `json:"totalDistance"`
	ClickCount           int     `json:"clickCount"`
	MissClickCount       int     `json:"missClickCount"`
	RapidClickEvents     int     `json:"rapidClickEvents"`
	AverageSpeed         float64 `json:"averageSpeed"`
	MaxSpeed             float64 `json:"maxSpeed"`
	SpeedVariability     float64 `json:"speedVariability"`
	DirectionChanges     int     `json:"directionChanges"`
	ErraticMovementCount int     `json:"erraticMovementCount"`
	BackAndForthCount    int     `json:"backAndForthMovements"`
	// PathStraightness is straight-line distance over cumulative path
	// distance since the last click anchor. Always within [0,1].
	PathStraightness     float64       `json:"pathStraightness"`
	HoverEvents          []HoverEvent  `json:"hoverEvents"`
	AverageHoverDuration float64       `json:"averageHoverDuration"`
	HoverAbandonRate     float64       `json:"hoverAbandonRate"`
	IdleTimeTotal        float64       `json:"idleTimeTotal"`
	ScrollBackCount      int           `json:"scrollBackCount"`
	Scroll               ScrollPattern `json:"scrollPattern"`
}

type SpeechSample struct {
	Timestamp  float64 `json:"timestamp"`
	Duration   float64 `json:"duration"`
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type VoiceMetrics struct {
	// AveragePace is in words per minute since speech started.
	AveragePace     float64 `json:"averagePace"`
	PaceVariability float64 `json:"paceVariability"`
	// PauseFrequency is speech-ended events per minute.
	PauseFrequency       float64 `json:"pauseFrequency"`
	AveragePauseDuration float64 `json:"averagePauseDuration"`
	FillerWordCount      int     `json:"fillerWordCount"`
	// VolumeLevel and VolumeVariability are on the 0-100 scale.
	VolumeLevel       float64        `json:"volumeLevel"`
	VolumeVariability float64        `json:"volumeVariability"`
	RecentSamples     []SpeechSample `json:"recentSamples"`
}

// ZoneStats accumulates how often and for how long gaze landed in one
// distraction zone.
type ZoneStats struct {
	Zone          string  `json:"zone"`
	Frequency     int     `json:"frequency"`
	TotalDuration float64 `json:"totalDuration"`
}

// BlockAttention accumulates gaze time per registered content block.
type BlockAttention struct {
	ContentBlockID string  `json:"contentBlockId"`
	TotalGazeTime  float64 `json:"totalGazeTime"`
	GazeCount      int     `json:"gazeCount"`
}

type GazeMetrics struct {
	FixationCount           int     `json:"fixationCount"`
	AverageFixationDuration float64 `json:"averageFixationDuration"`
	SaccadeCount            int     `json:"saccadeCount"`
	RegressionCount         int     `json:"regressionCount"`
	LineSkipCount           int     `json:"lineSkipCount"`
	// ContentFocusPercentage drifts toward 100 while gaze stays inside the
	// registered content area and toward 0 outside. Clamped [0,100].
	ContentFocusPercentage float64          `json:"contentFocusPercentage"`
	DistractionZones       []ZoneStats      `json:"distractionZones"`
	AttentionHeatmap       []BlockAttention `json:"attentionHeatmap"`
	GazePath               []GazePoint      `json:"gazePath"`
}
