package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"leadbot/internal/model"
	"leadbot/internal/service"
)

// LeadTracker is the CRM surface exposed over HTTP
type LeadTracker interface {
	TrackPropertyView(ctx context.Context, req model.PropertyViewRequest) error
	RequestShowing(ctx context.Context, req model.ShowingRequest) (*model.ShowingResponse, error)
	GetLeadSummary(ctx context.Context, organizationID, sessionID string) (*model.LeadSummary, error)
}

// LeadHandler handles lead-related HTTP requests
type LeadHandler struct {
	crm LeadTracker
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(crm LeadTracker) *LeadHandler {
	return &LeadHandler{crm: crm}
}

// PropertyView handles POST /api/v1/leads/property-view
func (h *LeadHandler) PropertyView(c *gin.Context) {
	var req model.PropertyViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, []model.ValidationIssue{{Path: "body", Message: err.Error()}})
		return
	}
	req.OrganizationID = orgOrDefault(req.OrganizationID)

	if err := h.crm.TrackPropertyView(c.Request.Context(), req); err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("property view tracking failed")
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Showing handles POST /api/v1/leads/showing
func (h *LeadHandler) Showing(c *gin.Context) {
	var req model.ShowingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, []model.ValidationIssue{{Path: "body", Message: err.Error()}})
		return
	}
	req.OrganizationID = orgOrDefault(req.OrganizationID)

	resp, err := h.crm.RequestShowing(c.Request.Context(), req)
	switch {
	case errors.Is(err, service.ErrLeadNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
		return
	case errors.Is(err, service.ErrNoAgentAvailable):
		c.JSON(http.StatusConflict, gin.H{"error": "No agent available"})
		return
	case err != nil:
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("showing request failed")
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "appointmentId": resp.AppointmentID})
}

// Summary handles GET /api/v1/leads/:sessionId
func (h *LeadHandler) Summary(c *gin.Context) {
	sessionID := c.Param("sessionId")
	orgID := orgOrDefault(c.Query("organizationId"))

	summary, err := h.crm.GetLeadSummary(c.Request.Context(), orgID, sessionID)
	if errors.Is(err, service.ErrLeadNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("lead summary failed")
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func orgOrDefault(orgID string) string {
	if orgID == "" {
		return model.DefaultOrganizationID
	}
	return orgID
}
