package models

import (
	"time"

	"github.com/lib/pq"
)

// SessionArchive is the row written locally when a tracking session ends:
// the final snapshot, the end-of-lesson focus score and which modalities
// were active. The upstream persist call is best-effort; this row is the
// durable record.
type SessionArchive struct {
	ID              int    `gorm:"primaryKey"`
	SessionID       string `gorm:"index"`
	UserID          string `gorm:"index"`
	LessonID        string
	CourseID        string
	LessonCompleted bool
	FocusScore      float64
	Modalities      pq.StringArray `gorm:"type:text[]"`
	FinalMetrics    string         `gorm:"type:jsonb"`
	CreatedAt       time.Time
}

// ScoreSample is one reporter tick's derived scores, kept for trend
// queries across a session.
type ScoreSample struct {
	ID           int    `gorm:"primaryKey"`
	SessionID    string `gorm:"index"`
	Attention    float64
	Engagement   float64
	Stress       float64
	Confidence   float64
	Frustration  float64
	FocusQuality float64
	CreatedAt    time.Time
}
