package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"leadbot/internal/model"
)

var (
	// ErrLeadNotFound is returned when no lead exists for a session
	ErrLeadNotFound = errors.New("lead not found")
	// ErrNoAgentAvailable is returned when a showing cannot be assigned
	ErrNoAgentAvailable = errors.New("no agent available for showing")
)

// CRMStore is the lead, activity and appointment storage used by RelationshipSync
type CRMStore interface {
	FindLeadBySession(ctx context.Context, organizationID, sessionID string) (*model.Lead, error)
	GetLeadByID(ctx context.Context, leadID string) (*model.Lead, error)
	CreateLead(ctx context.Context, lead *model.Lead) error
	UpdateLead(ctx context.Context, lead *model.Lead) error
	UpdateLeadCustomFields(ctx context.Context, leadID string, fields model.JSONMap) error
	UpdateLeadStatus(ctx context.Context, leadID, status, score string) error
	CreateActivity(ctx context.Context, activity *model.Activity) error
	CreateAppointment(ctx context.Context, appointment *model.Appointment) error
	FindDefaultAgent(ctx context.Context, organizationID string) (string, error)
}

// Lead scoring constants
const (
	pointsPerMessage      = 5
	pointsContactInfo     = 30
	pointsCompleteSearch  = 20
	pointsPerViewed       = 10
	pointsHighBudget      = 15
	highBudgetThreshold   = 500000
	qualifiedScoreMinimum = 80
	hotScoreMinimum       = 50
	warmScoreMinimum      = 25

	defaultLeadName  = "Chatbot Lead"
	noteSnippetLimit = 200
	showingDuration  = time.Hour
)

var chatbotLeadTags = []string{"chatbot", "real-estate"}

// CalculateLeadScore scores engagement and maps it onto a tier
func CalculateLeadScore(messageCount int, hasContactInfo, hasCompleteCriteria bool, viewedProperties int, budget *float64) (string, int) {
	value := messageCount * pointsPerMessage
	if hasContactInfo {
		value += pointsContactInfo
	}
	if hasCompleteCriteria {
		value += pointsCompleteSearch
	}
	value += viewedProperties * pointsPerViewed
	if budget != nil && *budget >= highBudgetThreshold {
		value += pointsHighBudget
	}

	switch {
	case value >= qualifiedScoreMinimum && hasContactInfo:
		return model.LeadScoreQualified, value
	case value >= hotScoreMinimum:
		return model.LeadScoreHot, value
	case value >= warmScoreMinimum:
		return model.LeadScoreWarm, value
	default:
		return model.LeadScoreCold, value
	}
}

// DetermineLeadStatus maps conversation progress onto a CRM status
func DetermineLeadStatus(canSearch, hasSearched, hasScheduledShowing bool) string {
	switch {
	case hasScheduledShowing:
		return model.LeadStatusContacted
	case hasSearched:
		return model.LeadStatusQualified
	case canSearch:
		return model.LeadStatusWorking
	default:
		return model.LeadStatusNew
	}
}

// TurnSyncInput is everything RelationshipSync records for one completed turn
type TurnSyncInput struct {
	Lead            model.LeadSyncInput
	ExtractedFields []string
	CanSearch       bool
	SearchParams    *model.SearchParams
}

// CRMService writes chatbot conversations into the CRM
type CRMService struct {
	store CRMStore
	now   func() time.Time
}

// NewCRMService creates a new CRM service
func NewCRMService(store CRMStore) *CRMService {
	return &CRMService{store: store, now: time.Now}
}

// SyncTurn upserts the session's lead and logs the turn's activities.
// Activity logging failures are logged and do not fail the sync.
func (s *CRMService) SyncTurn(ctx context.Context, in TurnSyncInput) (*model.LeadSyncResult, error) {
	result, err := s.SyncLead(ctx, in.Lead)
	if err != nil {
		return nil, err
	}

	prefs := in.Lead.Preferences
	fields := in.ExtractedFields
	if fields == nil {
		fields = []string{}
	}

	s.LogActivity(ctx, model.ActivityInput{
		OrganizationID: in.Lead.OrganizationID,
		LeadID:         result.LeadID,
		ActivityType:   model.ActivityMessage,
		Description:    fmt.Sprintf(`Chatbot conversation: "%s..."`, truncate(in.Lead.LastMessage, 100)),
		Metadata: map[string]interface{}{
			"extracted_fields": fields,
			"can_search":       in.CanSearch,
			"preferences":      prefs,
		},
	})

	if in.Lead.HasSearched {
		location, maxPrice := "", 0.0
		var searchParams interface{} = prefs
		if in.SearchParams != nil {
			location, maxPrice = in.SearchParams.Location, in.SearchParams.MaxPrice
			searchParams = in.SearchParams
		} else {
			if prefs.Location != nil {
				location = *prefs.Location
			}
			if prefs.MaxPrice != nil {
				maxPrice = *prefs.MaxPrice
			}
		}
		s.LogActivity(ctx, model.ActivityInput{
			OrganizationID: in.Lead.OrganizationID,
			LeadID:         result.LeadID,
			ActivityType:   model.ActivityPropertySearch,
			Description:    fmt.Sprintf("Searched properties in %s under %s", location, model.FormatMoney(maxPrice)),
			Metadata:       map[string]interface{}{"search_params": searchParams},
		})
	}

	return result, nil
}

// SyncLead creates or updates the lead attached to a chatbot session
func (s *CRMService) SyncLead(ctx context.Context, in model.LeadSyncInput) (*model.LeadSyncResult, error) {
	existing, err := s.store.FindLeadBySession(ctx, in.OrganizationID, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("find lead: %w", err)
	}

	viewed := in.ViewedProperties
	if existing != nil {
		viewed = mergeViewed(existing.ViewedProperties(), viewed)
	}
	if viewed == nil {
		viewed = []string{}
	}

	prefs := in.Preferences
	hasContact := in.ContactInfo.HasAny()
	hasCriteria := prefs.CanSearch()
	score, scoreValue := CalculateLeadScore(in.MessageCount, hasContact, hasCriteria, len(viewed), prefs.MaxPrice)
	status := DetermineLeadStatus(hasCriteria, in.HasSearched, false)

	now := s.now().UTC()
	customFields := model.JSONMap{}
	if existing != nil {
		for k, v := range existing.CustomFields {
			customFields[k] = v
		}
	}
	customFields["chatbot_session_id"] = in.SessionID
	customFields["viewed_properties"] = viewed
	customFields["chatbot_engagement"] = map[string]interface{}{
		"message_count":    in.MessageCount,
		"last_message":     in.LastMessage,
		"last_interaction": now.Format(time.RFC3339),
	}
	if !prefs.IsEmpty() {
		customFields["property_preferences"] = prefs
	}
	if in.HasSearched {
		customFields["last_property_search"] = now.Format(time.RFC3339)
	}

	name := contactName(in.ContactInfo)
	budget := budgetString(prefs.MaxPrice)

	if existing != nil {
		lead := *existing
		if name != "" {
			lead.Name = name
		}
		if in.ContactInfo.Email != "" {
			lead.Email = model.StringPtr(in.ContactInfo.Email)
		}
		if in.ContactInfo.Phone != "" {
			lead.Phone = model.StringPtr(in.ContactInfo.Phone)
		}
		if budget != nil {
			lead.Budget = budget
		}
		if prefs.Timeline != nil {
			lead.Timeline = prefs.Timeline
		}
		lead.Score = score
		lead.ScoreValue = scoreValue
		lead.Status = status
		lead.Notes = model.StringPtr(fmt.Sprintf(`Last message: "%s"`, truncate(in.LastMessage, noteSnippetLimit)))
		lead.CustomFields = customFields
		lead.LastContactAt = &now
		lead.UpdatedAt = now

		if err := s.store.UpdateLead(ctx, &lead); err != nil {
			return nil, fmt.Errorf("update lead: %w", err)
		}

		log.Info().Str("lead_id", lead.ID).Str("score", score).Str("status", status).Msg("lead updated")
		return &model.LeadSyncResult{LeadID: lead.ID, IsNew: false, Score: score, ScoreValue: scoreValue, Status: status}, nil
	}

	if name == "" {
		name = defaultLeadName
	}
	lead := &model.Lead{
		ID:             uuid.New().String(),
		OrganizationID: in.OrganizationID,
		Name:           name,
		Email:          optionalString(in.ContactInfo.Email),
		Phone:          optionalString(in.ContactInfo.Phone),
		Source:         model.LeadSourceChatbot,
		Status:         status,
		Score:          score,
		ScoreValue:     scoreValue,
		Budget:         budget,
		Timeline:       prefs.Timeline,
		Notes:          model.StringPtr(fmt.Sprintf(`First message: "%s"`, truncate(in.LastMessage, noteSnippetLimit))),
		Tags:           append([]string(nil), chatbotLeadTags...),
		CustomFields:   customFields,
		LastContactAt:  &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}

	log.Info().Str("lead_id", lead.ID).Str("score", score).Str("status", status).Msg("lead created")
	return &model.LeadSyncResult{LeadID: lead.ID, IsNew: true, Score: score, ScoreValue: scoreValue, Status: status}, nil
}

// LogActivity records a chatbot activity against a lead. Failures are logged only.
func (s *CRMService) LogActivity(ctx context.Context, in model.ActivityInput) {
	var assignedTo *string
	lead, err := s.store.GetLeadByID(ctx, in.LeadID)
	if err != nil {
		log.Warn().Err(err).Str("lead_id", in.LeadID).Msg("lead lookup for activity failed")
	} else if lead != nil {
		assignedTo = lead.AssignedToID
	}

	crmType := model.CRMActivityCall
	if in.ActivityType == model.ActivityMessage {
		crmType = model.CRMActivityNote
	}

	activity := &model.Activity{
		ID:             uuid.New().String(),
		OrganizationID: in.OrganizationID,
		LeadID:         in.LeadID,
		Type:           crmType,
		Title:          "Chatbot: " + in.ActivityType,
		Description:    in.Description,
		Metadata:       model.JSONMap(in.Metadata),
		AssignedToID:   assignedTo,
		CompletedAt:    s.now().UTC(),
	}

	if err := s.store.CreateActivity(ctx, activity); err != nil {
		log.Error().Err(err).Str("lead_id", in.LeadID).Str("type", in.ActivityType).Msg("activity logging failed")
		return
	}
	log.Debug().Str("lead_id", in.LeadID).Str("type", in.ActivityType).Msg("activity logged")
}

// TrackPropertyView records that the session's lead looked at a property.
// A session without a lead is ignored.
func (s *CRMService) TrackPropertyView(ctx context.Context, req model.PropertyViewRequest) error {
	lead, err := s.store.FindLeadBySession(ctx, req.OrganizationID, req.SessionID)
	if err != nil {
		return fmt.Errorf("find lead: %w", err)
	}
	if lead == nil {
		log.Warn().Str("session_id", req.SessionID).Msg("no lead found for property view tracking")
		return nil
	}

	viewed := lead.ViewedProperties()
	for _, id := range viewed {
		if id == req.PropertyID {
			return nil
		}
	}

	fields := model.JSONMap{}
	for k, v := range lead.CustomFields {
		fields[k] = v
	}
	fields["viewed_properties"] = append(viewed, req.PropertyID)

	if err := s.store.UpdateLeadCustomFields(ctx, lead.ID, fields); err != nil {
		return fmt.Errorf("update viewed properties: %w", err)
	}

	s.LogActivity(ctx, model.ActivityInput{
		OrganizationID: req.OrganizationID,
		LeadID:         lead.ID,
		ActivityType:   model.ActivityPropertyView,
		Description:    "Viewed property: " + req.PropertyAddress,
		Metadata: map[string]interface{}{
			"property_id":      req.PropertyID,
			"property_address": req.PropertyAddress,
		},
	})
	return nil
}

// RequestShowing books a pending showing appointment for the session's lead
func (s *CRMService) RequestShowing(ctx context.Context, req model.ShowingRequest) (*model.ShowingResponse, error) {
	lead, err := s.store.FindLeadBySession(ctx, req.OrganizationID, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("find lead: %w", err)
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}

	agent := ""
	if lead.AssignedToID != nil {
		agent = *lead.AssignedToID
	}
	if agent == "" {
		agent, err = s.store.FindDefaultAgent(ctx, req.OrganizationID)
		if err != nil {
			log.Error().Err(err).Str("organization_id", req.OrganizationID).Msg("default agent lookup failed")
		}
	}
	if agent == "" {
		return nil, ErrNoAgentAvailable
	}

	start := ShowingStart(s.now(), req.RequestedDate, req.RequestedTime)
	appointment := &model.Appointment{
		ID:             uuid.New().String(),
		OrganizationID: req.OrganizationID,
		AssignedTo:     agent,
		Title:          "Property Showing: " + req.PropertyAddress,
		Description: fmt.Sprintf("Chatbot showing request for property %s\nRequested by: %s\nEmail: %s\nPhone: %s",
			req.PropertyID, orDefault(lead.Name, "Unknown"), orDefault(deref(lead.Email), "N/A"), orDefault(deref(lead.Phone), "N/A")),
		StartTime: start,
		EndTime:   start.Add(showingDuration),
		Status:    model.AppointmentStatusPending,
		Location:  req.PropertyAddress,
	}

	if err := s.store.CreateAppointment(ctx, appointment); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if err := s.store.UpdateLeadStatus(ctx, lead.ID, model.LeadStatusContacted, model.LeadScoreQualified); err != nil {
		return nil, fmt.Errorf("update lead status: %w", err)
	}

	description := "Requested showing for " + req.PropertyAddress
	if req.RequestedDate != nil {
		description += " on " + start.Format("Mon Jan 02 2006")
	}
	s.LogActivity(ctx, model.ActivityInput{
		OrganizationID: req.OrganizationID,
		LeadID:         lead.ID,
		ActivityType:   model.ActivityShowingRequest,
		Description:    description,
		Metadata: map[string]interface{}{
			"property_id":      req.PropertyID,
			"property_address": req.PropertyAddress,
			"appointment_id":   appointment.ID,
		},
	})

	log.Info().Str("appointment_id", appointment.ID).Str("lead_id", lead.ID).Msg("showing requested")
	return &model.ShowingResponse{AppointmentID: appointment.ID}, nil
}

// GetLeadSummary returns the agent handoff view of the session's lead
func (s *CRMService) GetLeadSummary(ctx context.Context, organizationID, sessionID string) (*model.LeadSummary, error) {
	lead, err := s.store.FindLeadBySession(ctx, organizationID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("find lead: %w", err)
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}

	var preferences map[string]interface{}
	if raw, ok := lead.CustomFields["property_preferences"]; ok && raw != nil {
		preferences = cast.ToStringMap(raw)
	}
	engagement := cast.ToStringMap(lead.CustomFields["chatbot_engagement"])

	return &model.LeadSummary{
		Lead:        lead,
		Preferences: preferences,
		EngagementMetrics: model.EngagementMetrics{
			MessageCount:     cast.ToInt(engagement["message_count"]),
			ViewedProperties: len(lead.ViewedProperties()),
			Score:            lead.Score,
			Status:           lead.Status,
		},
	}, nil
}

var showingTimeLayouts = []string{"15:04", "3:04PM", "3:04 PM", "3PM", "3 PM"}

// ShowingStart picks the appointment start: the requested date (default
// tomorrow) at the requested wall-clock time when one parses
func ShowingStart(now time.Time, requestedDate *time.Time, requestedTime string) time.Time {
	start := now.Add(24 * time.Hour)
	if requestedDate != nil {
		start = *requestedDate
	}

	t := strings.ToUpper(strings.TrimSpace(requestedTime))
	if t == "" {
		return start
	}
	for _, layout := range showingTimeLayouts {
		if clock, err := time.Parse(layout, t); err == nil {
			y, m, d := start.Date()
			return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, start.Location())
		}
	}
	log.Debug().Str("requested_time", requestedTime).Msg("unparseable showing time ignored")
	return start
}

func mergeViewed(existing, incoming []string) []string {
	out := append([]string{}, existing...)
	seen := make(map[string]bool, len(out))
	for _, id := range out {
		seen[id] = true
	}
	for _, id := range incoming {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func contactName(c model.ContactInfo) string {
	if c.FullName == "" && c.FirstName == "" && c.LastName == "" {
		return ""
	}
	_, _, full := c.SplitName()
	return full
}

func budgetString(maxPrice *float64) *string {
	if maxPrice == nil || *maxPrice <= 0 {
		return nil
	}
	return model.StringPtr(strconv.FormatFloat(*maxPrice, 'f', -1, 64))
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
