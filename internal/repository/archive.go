package repository

import (
	"encoding/json"

	"learnpulse/internal/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ArchiveRepository stores session archives and per-tick score samples.
type ArchiveRepository struct {
	db *gorm.DB
}

func NewArchiveRepository(db *gorm.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// SaveScoreSample records one reporter tick's derived scores.
func (r *ArchiveRepository) SaveScoreSample(sessionID string, s models.Scores) error {
	sample := models.ScoreSample{
		SessionID:    sessionID,
		Attention:    s.Attention,
		Engagement:   s.Engagement,
		Stress:       s.Stress,
		Confidence:   s.Confidence,
		Frustration:  s.Frustration,
		FocusQuality: s.FocusQuality,
	}
	return r.db.Create(&sample).Error
}

// ArchiveSession writes the end-of-session record with the final metrics
// snapshot serialized as JSON.
func (r *ArchiveRepository) ArchiveSession(
	sessionID, userID, lessonID, courseID string,
	lessonCompleted bool,
	focusScore float64,
	modalities []string,
	finalMetrics models.BehavioralSessionMetrics,
) error {
	payload, err := json.Marshal(finalMetrics)
	if err != nil {
		return err
	}
	archive := models.SessionArchive{
		SessionID:       sessionID,
		UserID:          userID,
		LessonID:        lessonID,
		CourseID:        courseID,
		LessonCompleted: lessonCompleted,
		FocusScore:      focusScore,
		Modalities:      pq.StringArray(modalities),
		FinalMetrics:    string(payload),
	}
	return r.db.Create(&archive).Error
}
