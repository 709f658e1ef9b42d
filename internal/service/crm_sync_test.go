package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadbot/internal/model"
)

type fakeCRMStore struct {
	leads        map[string]*model.Lead
	activities   []*model.Activity
	appointments []*model.Appointment
	agent        string
	findErr      error
	statusCalls  []string
}

func newFakeCRMStore() *fakeCRMStore {
	return &fakeCRMStore{leads: map[string]*model.Lead{}}
}

func (f *fakeCRMStore) FindLeadBySession(_ context.Context, organizationID, sessionID string) (*model.Lead, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, l := range f.leads {
		if l.OrganizationID == organizationID && l.CustomFields["chatbot_session_id"] == sessionID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCRMStore) GetLeadByID(_ context.Context, leadID string) (*model.Lead, error) {
	if l, ok := f.leads[leadID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeCRMStore) CreateLead(_ context.Context, lead *model.Lead) error {
	cp := *lead
	f.leads[lead.ID] = &cp
	return nil
}

func (f *fakeCRMStore) UpdateLead(_ context.Context, lead *model.Lead) error {
	cp := *lead
	f.leads[lead.ID] = &cp
	return nil
}

func (f *fakeCRMStore) UpdateLeadCustomFields(_ context.Context, leadID string, fields model.JSONMap) error {
	f.leads[leadID].CustomFields = fields
	return nil
}

func (f *fakeCRMStore) UpdateLeadStatus(_ context.Context, leadID, status, score string) error {
	f.statusCalls = append(f.statusCalls, status+"/"+score)
	f.leads[leadID].Status = status
	f.leads[leadID].Score = score
	return nil
}

func (f *fakeCRMStore) CreateActivity(_ context.Context, activity *model.Activity) error {
	f.activities = append(f.activities, activity)
	return nil
}

func (f *fakeCRMStore) CreateAppointment(_ context.Context, appointment *model.Appointment) error {
	f.appointments = append(f.appointments, appointment)
	return nil
}

func (f *fakeCRMStore) FindDefaultAgent(_ context.Context, _ string) (string, error) {
	return f.agent, nil
}

var crmNow = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func newTestCRM(store CRMStore) *CRMService {
	svc := NewCRMService(store)
	svc.now = func() time.Time { return crmNow }
	return svc
}

func TestCalculateLeadScore(t *testing.T) {
	tests := []struct {
		name      string
		messages  int
		contact   bool
		criteria  bool
		viewed    int
		budget    *float64
		wantTier  string
		wantValue int
	}{
		{"just started", 1, false, false, 0, nil, model.LeadScoreCold, 5},
		{"warm", 5, false, false, 0, nil, model.LeadScoreWarm, 25},
		{"hot without contact", 8, false, true, 1, model.Float64Ptr(600000), model.LeadScoreHot, 85},
		{"qualified with contact", 4, true, true, 1, model.Float64Ptr(500000), model.LeadScoreQualified, 95},
		{"contact but low score", 2, true, false, 0, nil, model.LeadScoreWarm, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, value := CalculateLeadScore(tt.messages, tt.contact, tt.criteria, tt.viewed, tt.budget)
			assert.Equal(t, tt.wantTier, tier)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestDetermineLeadStatus(t *testing.T) {
	assert.Equal(t, model.LeadStatusContacted, DetermineLeadStatus(true, true, true))
	assert.Equal(t, model.LeadStatusQualified, DetermineLeadStatus(true, true, false))
	assert.Equal(t, model.LeadStatusWorking, DetermineLeadStatus(true, false, false))
	assert.Equal(t, model.LeadStatusNew, DetermineLeadStatus(false, false, false))
}

func syncInput() model.LeadSyncInput {
	return model.LeadSyncInput{
		SessionID:      "sess-1",
		OrganizationID: "org-1",
		Preferences: model.PreferenceState{
			Location: model.StringPtr("Austin, TX"),
			MaxPrice: model.Float64Ptr(450000),
		},
		MessageCount: 3,
		LastMessage:  "Looking in Austin under 450k",
	}
}

func TestCRMService_SyncLead_CreateThenUpdate(t *testing.T) {
	store := newFakeCRMStore()
	svc := newTestCRM(store)

	created, err := svc.SyncLead(context.Background(), syncInput())
	require.NoError(t, err)
	assert.True(t, created.IsNew)
	assert.Equal(t, model.LeadStatusWorking, created.Status)
	assert.Equal(t, 35, created.ScoreValue)

	lead := store.leads[created.LeadID]
	require.NotNil(t, lead)
	assert.Equal(t, "Chatbot Lead", lead.Name)
	assert.Equal(t, model.LeadSourceChatbot, lead.Source)
	assert.Equal(t, []string{"chatbot", "real-estate"}, []string(lead.Tags))
	assert.Equal(t, "450000", *lead.Budget)
	assert.Equal(t, `First message: "Looking in Austin under 450k"`, *lead.Notes)
	assert.Equal(t, "sess-1", lead.CustomFields["chatbot_session_id"])
	assert.Nil(t, lead.Email)

	lead.CustomFields["viewed_properties"] = []interface{}{"p-1"}
	lead.AssignedToID = model.StringPtr("agent-7")

	in := syncInput()
	in.MessageCount = 6
	in.HasSearched = true
	in.ContactInfo = model.ContactInfo{FullName: "Jane Doe", Email: "jane@example.com"}
	in.Preferences.Timeline = model.StringPtr("1-3 months")

	updated, err := svc.SyncLead(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, updated.IsNew)
	assert.Equal(t, created.LeadID, updated.LeadID)
	assert.Equal(t, model.LeadStatusQualified, updated.Status)
	// 6*5 + 30 + 20 + 1*10
	assert.Equal(t, 90, updated.ScoreValue)
	assert.Equal(t, model.LeadScoreQualified, updated.Score)

	lead = store.leads[created.LeadID]
	assert.Equal(t, "Jane Doe", lead.Name)
	assert.Equal(t, "jane@example.com", *lead.Email)
	assert.Equal(t, "1-3 months", *lead.Timeline)
	assert.Equal(t, "agent-7", *lead.AssignedToID)
	assert.Equal(t, []string{"p-1"}, lead.CustomFields["viewed_properties"])
	assert.Equal(t, crmNow.Format(time.RFC3339), lead.CustomFields["last_property_search"])
	assert.Equal(t, `Last message: "Looking in Austin under 450k"`, *lead.Notes)
}

func TestCRMService_SyncLead_KeepsExistingContact(t *testing.T) {
	store := newFakeCRMStore()
	svc := newTestCRM(store)

	in := syncInput()
	in.ContactInfo = model.ContactInfo{FirstName: "Sam", Phone: "512-555-0100"}
	created, err := svc.SyncLead(context.Background(), in)
	require.NoError(t, err)

	in = syncInput()
	in.Preferences.MaxPrice = nil
	_, err = svc.SyncLead(context.Background(), in)
	require.NoError(t, err)

	lead := store.leads[created.LeadID]
	assert.Equal(t, "Sam", lead.Name)
	assert.Equal(t, "512-555-0100", *lead.Phone)
	assert.Equal(t, "450000", *lead.Budget)
}

func TestCRMService_SyncTurn_LogsActivities(t *testing.T) {
	store := newFakeCRMStore()
	svc := newTestCRM(store)

	in := syncInput()
	in.HasSearched = true
	_, err := svc.SyncTurn(context.Background(), TurnSyncInput{
		Lead:            in,
		ExtractedFields: []string{"location", "maxPrice"},
		CanSearch:       true,
	})
	require.NoError(t, err)

	require.Len(t, store.activities, 2)
	msg := store.activities[0]
	assert.Equal(t, model.CRMActivityNote, msg.Type)
	assert.Equal(t, "Chatbot: message", msg.Title)
	assert.Equal(t, `Chatbot conversation: "Looking in Austin under 450k..."`, msg.Description)
	assert.Equal(t, true, msg.Metadata["can_search"])

	search := store.activities[1]
	assert.Equal(t, model.CRMActivityCall, search.Type)
	assert.Equal(t, "Chatbot: property_search", search.Title)
	assert.Equal(t, "Searched properties in Austin, TX under $450,000", search.Description)
}

func TestCRMService_SyncLead_StoreError(t *testing.T) {
	store := newFakeCRMStore()
	store.findErr = errors.New("connection refused")

	_, err := newTestCRM(store).SyncTurn(context.Background(), TurnSyncInput{Lead: syncInput()})
	require.Error(t, err)
	assert.Empty(t, store.activities)
}

func seedLead(store *fakeCRMStore, assigned *string) *model.Lead {
	lead := &model.Lead{
		ID:             "lead-1",
		OrganizationID: "org-1",
		Name:           "Jane Doe",
		Email:          model.StringPtr("jane@example.com"),
		AssignedToID:   assigned,
		CustomFields:   model.JSONMap{"chatbot_session_id": "sess-1", "viewed_properties": []interface{}{"p-1"}},
	}
	store.leads[lead.ID] = lead
	return lead
}

func TestCRMService_TrackPropertyView(t *testing.T) {
	store := newFakeCRMStore()
	seedLead(store, model.StringPtr("agent-1"))
	svc := newTestCRM(store)

	req := model.PropertyViewRequest{SessionID: "sess-1", OrganizationID: "org-1", PropertyID: "p-2", PropertyAddress: "9 Oak Ave"}
	require.NoError(t, svc.TrackPropertyView(context.Background(), req))
	require.NoError(t, svc.TrackPropertyView(context.Background(), req))

	assert.Equal(t, []string{"p-1", "p-2"}, store.leads["lead-1"].ViewedProperties())
	require.Len(t, store.activities, 1)
	assert.Equal(t, "Viewed property: 9 Oak Ave", store.activities[0].Description)
	assert.Equal(t, "agent-1", *store.activities[0].AssignedToID)

	missing := req
	missing.SessionID = "unknown"
	assert.NoError(t, svc.TrackPropertyView(context.Background(), missing))
}

func TestCRMService_RequestShowing(t *testing.T) {
	store := newFakeCRMStore()
	seedLead(store, nil)
	store.agent = "admin-1"
	svc := newTestCRM(store)

	resp, err := svc.RequestShowing(context.Background(), model.ShowingRequest{
		SessionID:       "sess-1",
		OrganizationID:  "org-1",
		PropertyID:      "p-2",
		PropertyAddress: "9 Oak Ave",
	})
	require.NoError(t, err)
	require.Len(t, store.appointments, 1)

	appt := store.appointments[0]
	assert.Equal(t, resp.AppointmentID, appt.ID)
	assert.Equal(t, "admin-1", appt.AssignedTo)
	assert.Equal(t, "Property Showing: 9 Oak Ave", appt.Title)
	assert.Equal(t, "Chatbot showing request for property p-2\nRequested by: Jane Doe\nEmail: jane@example.com\nPhone: N/A", appt.Description)
	assert.Equal(t, crmNow.Add(24*time.Hour), appt.StartTime)
	assert.Equal(t, time.Hour, appt.EndTime.Sub(appt.StartTime))
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.Equal(t, "9 Oak Ave", appt.Location)

	assert.Equal(t, []string{"CONTACTED/QUALIFIED"}, store.statusCalls)
	require.Len(t, store.activities, 1)
	assert.Equal(t, "Requested showing for 9 Oak Ave", store.activities[0].Description)
	assert.Equal(t, appt.ID, store.activities[0].Metadata["appointment_id"])
}

func TestCRMService_RequestShowing_RequestedDate(t *testing.T) {
	store := newFakeCRMStore()
	seedLead(store, model.StringPtr("agent-1"))
	svc := newTestCRM(store)

	date := time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)
	_, err := svc.RequestShowing(context.Background(), model.ShowingRequest{
		SessionID:       "sess-1",
		OrganizationID:  "org-1",
		PropertyID:      "p-2",
		PropertyAddress: "9 Oak Ave",
		RequestedDate:   &date,
		RequestedTime:   "2:30 pm",
	})
	require.NoError(t, err)

	appt := store.appointments[0]
	assert.Equal(t, "agent-1", appt.AssignedTo)
	assert.Equal(t, time.Date(2026, 10, 3, 14, 30, 0, 0, time.UTC), appt.StartTime)
	assert.Equal(t, "Requested showing for 9 Oak Ave on Sat Oct 03 2026", store.activities[0].Description)
}

func TestCRMService_RequestShowing_Errors(t *testing.T) {
	store := newFakeCRMStore()
	svc := newTestCRM(store)
	req := model.ShowingRequest{SessionID: "sess-1", OrganizationID: "org-1", PropertyID: "p", PropertyAddress: "a"}

	_, err := svc.RequestShowing(context.Background(), req)
	assert.ErrorIs(t, err, ErrLeadNotFound)

	seedLead(store, nil)
	_, err = svc.RequestShowing(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoAgentAvailable)
	assert.Empty(t, store.appointments)
}

func TestCRMService_GetLeadSummary(t *testing.T) {
	store := newFakeCRMStore()
	lead := seedLead(store, nil)
	lead.Score = model.LeadScoreHot
	lead.Status = model.LeadStatusWorking
	lead.CustomFields["chatbot_engagement"] = map[string]interface{}{"message_count": float64(7)}
	lead.CustomFields["property_preferences"] = map[string]interface{}{"location": "Austin"}

	summary, err := newTestCRM(store).GetLeadSummary(context.Background(), "org-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 7, summary.EngagementMetrics.MessageCount)
	assert.Equal(t, 1, summary.EngagementMetrics.ViewedProperties)
	assert.Equal(t, model.LeadScoreHot, summary.EngagementMetrics.Score)
	assert.Equal(t, "Austin", summary.Preferences["location"])

	_, err = newTestCRM(store).GetLeadSummary(context.Background(), "org-1", "other")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestShowingStart(t *testing.T) {
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(24*time.Hour), ShowingStart(now, nil, ""))
	assert.Equal(t, time.Date(2026, 10, 2, 16, 0, 0, 0, time.UTC), ShowingStart(now, nil, "16:00"))
	assert.Equal(t, time.Date(2026, 10, 2, 15, 0, 0, 0, time.UTC), ShowingStart(now, nil, "3pm"))
	assert.Equal(t, now.Add(24*time.Hour), ShowingStart(now, nil, "after lunch"))
}
