package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"leadbot/internal/model"
	"leadbot/internal/service"
)

// ConversionRecorder marks stored conversations as converted
type ConversionRecorder interface {
	MarkSuccess(ctx context.Context, sessionID string, conversionScore *float64) (int64, error)
}

// FeedbackHandler records conversation outcomes that feed later guidance
type FeedbackHandler struct {
	conversions ConversionRecorder
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(conversions ConversionRecorder) *FeedbackHandler {
	return &FeedbackHandler{conversions: conversions}
}

// ConversionRequest is the optional body of a success report
type ConversionRequest struct {
	ConversionScore *float64 `json:"conversionScore"`
}

// Success handles POST /api/v1/conversations/:sessionId/success
func (h *FeedbackHandler) Success(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req ConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, []model.ValidationIssue{{Path: "body", Message: err.Error()}})
		return
	}

	n, err := h.conversions.MarkSuccess(c.Request.Context(), sessionID, req.ConversionScore)
	if errors.Is(err, service.ErrInvalidConversionScore) {
		badRequest(c, []model.ValidationIssue{{Path: "conversionScore", Message: "must be between 0 and 1"}})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to record conversion")
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"updated": n,
		"message": "Conversation marked as successful",
	})
}
