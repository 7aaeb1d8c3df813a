// Package handlers holds the gin handlers for the ingest API the learner
// UI talks to: session lifecycle, raw event batches, behavioral updates,
// consent and the learner-facing event stream.
package handlers

import (
	"net/http"

	"learnpulse/internal/engine"
	"learnpulse/internal/models"
	"learnpulse/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// userIDHeader identifies the learner on every ingest request. Auth is
// the hosting platform's concern; the tracker trusts its reverse proxy.
const userIDHeader = "X-User-ID"

type TrackHandler struct {
	log     *zap.Logger
	manager *engine.Manager
}

func NewTrackHandler(log *zap.Logger, manager *engine.Manager) *TrackHandler {
	return &TrackHandler{log: log, manager: manager}
}

func userID(c *gin.Context) (string, bool) {
	id := c.GetHeader(userIDHeader)
	if id == "" {
		id = c.Query("user_id")
	}
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id"})
		return "", false
	}
	return id, true
}

type startSessionRequest struct {
	LessonID      string                `json:"lessonId" binding:"required"`
	CourseID      string                `json:"courseId" binding:"required"`
	DeviceType    string                `json:"deviceType"`
	TotalBlocks   int                   `json:"totalBlocks"`
	Viewport      models.Rect           `json:"viewport"`
	ContentBounds models.Rect           `json:"contentBounds"`
	Blocks        []models.ContentBlock `json:"blocks"`
}

func (h *TrackHandler) StartSession(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Failed to bind session start request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	resp, err := h.manager.Engine(id).StartSession(c.Request.Context(), engine.StartParams{
		LessonID:      req.LessonID,
		CourseID:      req.CourseID,
		DeviceType:    req.DeviceType,
		TotalBlocks:   req.TotalBlocks,
		Viewport:      req.Viewport,
		ContentBounds: req.ContentBounds,
		Blocks:        req.Blocks,
	})
	if err != nil {
		h.log.Error("Failed to start tracking session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type endSessionRequest struct {
	LessonCompleted    bool    `json:"lessonCompleted"`
	OverallPerformance float64 `json:"overallPerformance"`
	FlushFinal         bool    `json:"flushFinal"`
}

func (h *TrackHandler) EndSession(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req endSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Failed to bind session end request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	focus, err := h.manager.Engine(id).EndSession(c.Request.Context(), engine.EndParams{
		LessonCompleted:    req.LessonCompleted,
		OverallPerformance: req.OverallPerformance,
		FlushFinal:         req.FlushFinal,
	})
	if err == session.ErrNotActive {
		c.JSON(http.StatusConflict, gin.H{"error": "No active session"})
		return
	}
	if err != nil {
		h.log.Error("Failed to end tracking session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"focusScore": focus})
}

// eventBatch carries raw client events, batched by the UI to keep
// request volume sane. Every slice is optional.
type eventBatch struct {
	Pointer    []models.PointerEvent    `json:"pointer"`
	Scroll     []models.ScrollEvent     `json:"scroll"`
	Speech     []models.SpeechEvent     `json:"speech"`
	SpeechEnd  []models.SpeechEndEvent  `json:"speechEnd"`
	AudioLevel []models.AudioLevelEvent `json:"audioLevel"`
	Gaze       []models.GazePoint       `json:"gaze"`
	Visibility []models.VisibilityEvent `json:"visibility"`
}

func (h *TrackHandler) IngestEvents(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var batch eventBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.log.Warn("Failed to bind event batch", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	e := h.manager.Engine(id)
	for _, ev := range batch.Pointer {
		e.HandlePointer(ev)
	}
	for _, ev := range batch.Scroll {
		e.HandleScroll(ev)
	}
	for _, ev := range batch.Speech {
		e.HandleSpeech(ev)
	}
	for _, ev := range batch.SpeechEnd {
		e.HandleSpeechEnd(ev)
	}
	for _, ev := range batch.AudioLevel {
		e.HandleAudioLevel(ev)
	}
	for _, ev := range batch.Gaze {
		e.HandleGaze(ev)
	}
	for _, ev := range batch.Visibility {
		e.HandleVisibility(ev)
	}
	c.Status(http.StatusOK)
}

type interactionRequest struct {
	ContentBlockID string  `json:"contentBlockId" binding:"required"`
	TimeSpentMS    float64 `json:"timeSpentMs"`
	Completed      bool    `json:"completed"`
}

func (h *TrackHandler) RecordInteraction(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Failed to bind interaction", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	err := h.manager.Engine(id).RecordContentInteraction(c.Request.Context(),
		req.ContentBlockID, req.TimeSpentMS, req.Completed)
	if err == session.ErrNotActive {
		c.JSON(http.StatusConflict, gin.H{"error": "No active session"})
		return
	}
	if err != nil {
		h.log.Error("Failed to record interaction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record interaction"})
		return
	}
	c.Status(http.StatusOK)
}

func (h *TrackHandler) RecordQuiz(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req models.QuizPerformance
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Failed to bind quiz answer", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	err := h.manager.Engine(id).RecordQuizAnswer(c.Request.Context(), req.Correct, req.HintUsed)
	if err == session.ErrNotActive {
		c.JSON(http.StatusConflict, gin.H{"error": "No active session"})
		return
	}
	if err != nil {
		h.log.Error("Failed to record quiz answer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record quiz answer"})
		return
	}
	c.Status(http.StatusOK)
}

func (h *TrackHandler) RecordBreak(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	err := h.manager.Engine(id).RecordBreak(c.Request.Context())
	if err == session.ErrNotActive {
		c.JSON(http.StatusConflict, gin.H{"error": "No active session"})
		return
	}
	if err != nil {
		h.log.Error("Failed to record break", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record break"})
		return
	}
	c.Status(http.StatusOK)
}

// RecordReread notes a return to earlier content.
func (h *TrackHandler) RecordReread(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := h.manager.Engine(id).RecordReread(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "No active session"})
		return
	}
	c.Status(http.StatusOK)
}

// RecordHelpRequest notes an explicit help request.
func (h *TrackHandler) RecordHelpRequest(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := h.manager.Engine(id).RecordHelpRequest(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "No active session"})
		return
	}
	c.Status(http.StatusOK)
}

// RecordPause notes a lesson pause.
func (h *TrackHandler) RecordPause(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := h.manager.Engine(id).RecordPause(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "No active session"})
		return
	}
	c.Status(http.StatusOK)
}

// Scores returns the latest batch-derived scores plus the live focus
// score, for UIs that poll instead of holding the event stream open.
func (h *TrackHandler) Scores(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	e := h.manager.Engine(id)
	c.JSON(http.StatusOK, gin.H{
		"scores":     e.Scores(),
		"focusScore": e.FocusScore(),
	})
}

// TakeIntervention consumes the currently held intervention, if any.
func (h *TrackHandler) TakeIntervention(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	iv := h.manager.Engine(id).Mailbox().Take()
	if iv == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, iv)
}
