package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"leadbot/internal/model"
	"leadbot/internal/service"
)

// ChatRunner prepares and streams conversational turns
type ChatRunner interface {
	Prepare(ctx context.Context, req *model.ChatRequest) (*service.Turn, error)
	Stream(ctx context.Context, turn *service.Turn) <-chan model.StreamEvent
}

// ChatHandler handles the streaming chat endpoint
type ChatHandler struct {
	chat ChatRunner
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat ChatRunner) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Chat handles POST /api/v1/chat - SSE token stream
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, []model.ValidationIssue{{Path: "body", Message: err.Error()}})
		return
	}

	turn, err := h.chat.Prepare(c.Request.Context(), &req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			badRequest(c, verr.Issues)
			return
		}
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("chat turn preparation failed")
		internalError(c)
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		log.Error().Msg("response writer does not support streaming")
		return
	}
	flusher.Flush()

	for ev := range h.chat.Stream(c.Request.Context(), turn) {
		if err := writeFrame(c, ev); err != nil {
			log.Warn().Err(err).Str("session_id", req.SessionID).Msg("failed to write stream frame")
			continue
		}
		flusher.Flush()
	}
}

// writeFrame writes one "data: <payload>" frame
func writeFrame(c *gin.Context, ev model.StreamEvent) error {
	payload, err := ev.Frame()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
	return err
}

func badRequest(c *gin.Context, issues []model.ValidationIssue) {
	c.JSON(http.StatusBadRequest, model.ValidationErrorResponse{
		Error:   "Invalid request format",
		Details: issues,
	})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
