package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"learnpulse/internal/engine"
	"learnpulse/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const streamKeepaliveInterval = 15 * time.Second

type StreamHandler struct {
	log     *zap.Logger
	manager *engine.Manager
}

func NewStreamHandler(log *zap.Logger, manager *engine.Manager) *StreamHandler {
	return &StreamHandler{log: log, manager: manager}
}

// Stream holds a text/event-stream connection open and forwards every
// intervention that lands in the learner's mailbox, regardless of which
// delivery path posted it. The event format mirrors the upstream push
// channel so the UI speaks one dialect.
func (h *StreamHandler) Stream(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	flusher, canFlush := c.Writer.(http.Flusher)
	if !canFlush {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	e := h.manager.Engine(id)
	events, cancel := e.Mailbox().Subscribe()
	defer cancel()

	writeEvent(c, models.PushEnvelope{Type: "connected"})
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepaliveInterval)
	defer keepalive.Stop()

	h.log.Debug("Event stream opened", zap.String("user", id))
	for {
		select {
		case <-c.Request.Context().Done():
			h.log.Debug("Event stream closed", zap.String("user", id))
			return
		case iv, open := <-events:
			if !open {
				return
			}
			scores := e.Scores()
			writeEvent(c, models.PushEnvelope{
				Type: "intervention",
				Data: &models.PushData{
					Intervention: &iv,
					Scores:       &scores,
					Timestamp:    time.Now().UTC().Format(time.RFC3339),
				},
			})
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(c *gin.Context, env models.PushEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
}
