package model

import (
	"time"

	"github.com/lib/pq"
)

// Lead score tiers
const (
	LeadScoreCold      = "COLD"
	LeadScoreWarm      = "WARM"
	LeadScoreHot       = "HOT"
	LeadScoreQualified = "QUALIFIED"
)

// Lead statuses
const (
	LeadStatusNew       = "NEW_LEAD"
	LeadStatusWorking   = "WORKING"
	LeadStatusQualified = "QUALIFIED"
	LeadStatusContacted = "CONTACTED"
)

// LeadSourceChatbot tags leads created from conversations
const LeadSourceChatbot = "CHATBOT"

// Chatbot activity types and the CRM activity types they map to
const (
	ActivityMessage        = "message"
	ActivityPropertyView   = "property_view"
	ActivityPropertySearch = "property_search"
	ActivityShowingRequest = "showing_request"

	CRMActivityNote = "NOTE"
	CRMActivityCall = "CALL"
)

// AppointmentStatusPending is the state of a freshly requested showing
const AppointmentStatusPending = "PENDING"

// Lead is a CRM lead row
type Lead struct {
	ID             string         `json:"id" db:"id"`
	OrganizationID string         `json:"organizationId" db:"organization_id"`
	Name           string         `json:"name" db:"name"`
	Email          *string        `json:"email,omitempty" db:"email"`
	Phone          *string        `json:"phone,omitempty" db:"phone"`
	Source         string         `json:"source" db:"source"`
	Status         string         `json:"status" db:"status"`
	Score          string         `json:"score" db:"score"`
	ScoreValue     int            `json:"scoreValue" db:"score_value"`
	Budget         *string        `json:"budget,omitempty" db:"budget"`
	Timeline       *string        `json:"timeline,omitempty" db:"timeline"`
	Notes          *string        `json:"notes,omitempty" db:"notes"`
	Tags           pq.StringArray `json:"tags" db:"tags"`
	CustomFields   JSONMap        `json:"customFields" db:"custom_fields"`
	AssignedToID   *string        `json:"assignedToId,omitempty" db:"assigned_to_id"`
	LastContactAt  *time.Time     `json:"lastContactAt,omitempty" db:"last_contact_at"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time      `json:"updatedAt" db:"updated_at"`
}

// ViewedProperties reads the viewed property ids kept in custom fields
func (l *Lead) ViewedProperties() []string {
	raw, ok := l.CustomFields["viewed_properties"]
	if !ok {
		return []string{}
	}
	out := []string{}
	switch v := raw.(type) {
	case []string:
		out = append(out, v...)
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// Activity is a CRM activity row
type Activity struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organizationId" db:"organization_id"`
	LeadID         string    `json:"leadId" db:"lead_id"`
	Type           string    `json:"type" db:"type"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description" db:"description"`
	Metadata       JSONMap   `json:"metadata" db:"metadata"`
	AssignedToID   *string   `json:"assignedToId,omitempty" db:"assigned_to_id"`
	CompletedAt    time.Time `json:"completedAt" db:"completed_at"`
}

// Appointment is a CRM appointment row
type Appointment struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organizationId" db:"organization_id"`
	AssignedTo     string    `json:"assignedTo" db:"assigned_to"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description" db:"description"`
	StartTime      time.Time `json:"startTime" db:"start_time"`
	EndTime        time.Time `json:"endTime" db:"end_time"`
	Status         string    `json:"status" db:"status"`
	Location       string    `json:"location" db:"location"`
}

// LeadSyncInput carries one turn's worth of lead information
type LeadSyncInput struct {
	SessionID        string
	OrganizationID   string
	ContactInfo      ContactInfo
	Preferences      PreferenceState
	MessageCount     int
	HasSearched      bool
	ViewedProperties []string
	LastMessage      string
}

// LeadSyncResult reports which lead was written
type LeadSyncResult struct {
	LeadID     string `json:"leadId"`
	IsNew      bool   `json:"isNew"`
	Score      string `json:"score"`
	ScoreValue int    `json:"scoreValue"`
	Status     string `json:"status"`
}

// ActivityInput describes an activity to log against a lead
type ActivityInput struct {
	OrganizationID string
	LeadID         string
	ActivityType   string
	Description    string
	Metadata       map[string]interface{}
}

// PropertyViewRequest is the body of POST /api/v1/leads/property-view
type PropertyViewRequest struct {
	SessionID       string `json:"sessionId" binding:"required"`
	OrganizationID  string `json:"organizationId"`
	PropertyID      string `json:"propertyId" binding:"required"`
	PropertyAddress string `json:"propertyAddress" binding:"required"`
}

// ShowingRequest is the body of POST /api/v1/leads/showing
type ShowingRequest struct {
	SessionID       string     `json:"sessionId" binding:"required"`
	OrganizationID  string     `json:"organizationId"`
	PropertyID      string     `json:"propertyId" binding:"required"`
	PropertyAddress string     `json:"propertyAddress" binding:"required"`
	RequestedDate   *time.Time `json:"requestedDate,omitempty"`
	RequestedTime   string     `json:"requestedTime,omitempty"`
}

// ShowingResponse is returned after a showing is requested
type ShowingResponse struct {
	AppointmentID string `json:"appointmentId"`
}

// EngagementMetrics summarizes chatbot activity for a lead
type EngagementMetrics struct {
	MessageCount     int    `json:"messageCount"`
	ViewedProperties int    `json:"viewedProperties"`
	Score            string `json:"score"`
	Status           string `json:"status"`
}

// LeadSummary is the agent handoff view of a chatbot lead
type LeadSummary struct {
	Lead              *Lead                  `json:"lead"`
	Preferences       map[string]interface{} `json:"preferences"`
	EngagementMetrics EngagementMetrics      `json:"engagementMetrics"`
}
