package handlers

import (
	"net/http"

	"learnpulse/internal/engine"
	"learnpulse/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConsentHandler struct {
	log     *zap.Logger
	manager *engine.Manager
}

func NewConsentHandler(log *zap.Logger, manager *engine.Manager) *ConsentHandler {
	return &ConsentHandler{log: log, manager: manager}
}

// GetConsent returns the stored permission record for the learner.
func (h *ConsentHandler) GetConsent(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.manager.Consent(id).Permissions())
}

// UpdateConsent records prompt outcomes reported by the UI. The browser
// raises the actual device prompts; this only persists the decisions, so
// a denied modality simply stays off for the next batch.
func (h *ConsentHandler) UpdateConsent(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var perms models.Permissions
	if err := c.ShouldBindJSON(&perms); err != nil {
		h.log.Warn("Failed to bind consent update", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	h.manager.Consent(id).Apply(perms)
	h.log.Info("Consent updated",
		zap.String("user", id),
		zap.Bool("microphone", perms.Microphone),
		zap.Bool("camera", perms.Camera),
		zap.Bool("mouse_tracking", perms.MouseTracking))
	c.JSON(http.StatusOK, perms)
}
