package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadbot/internal/config"
	"leadbot/internal/model"
)

const rentCastFixture = `[
  {
    "id": "123-Main-St",
    "addressLine1": "123 Main St",
    "city": "Nashville",
    "state": "TN",
    "zipCode": "37209",
    "price": 425000,
    "bedrooms": 3,
    "bathrooms": 2.5,
    "squareFootage": 2100,
    "lotSize": 12000,
    "propertyType": "Single Family",
    "yearBuilt": 2019,
    "listDate": "2026-09-28T12:00:00Z",
    "description": "Renovated home with a pool and fireplace",
    "photos": [{"href": "https://img/1.jpg"}, {"url": "https://img/2.jpg"}],
    "schools": {"elementary": {"rating": 9}, "high": {"rating": 7}},
    "listingAgent": {"name": "Pat Agent", "phone": "615-555-0100", "email": "pat@example.com"}
  },
  {
    "listingId": "L-2",
    "address": "9 Oak Ave",
    "price": 380000,
    "bedrooms": 3,
    "bathrooms": 2,
    "livingArea": 1800,
    "propertyType": "Condo",
    "features": ["Garage"]
  }
]`

func TestRentCastSearchExecutor_Search(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(rentCastFixture))
	}))
	defer server.Close()

	executor := NewRentCastSearchExecutor(&config.SearchConfig{
		RentCastAPIKey:  "test-key",
		RentCastBaseURL: server.URL + "/",
	})
	executor.now = func() time.Time { return time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC) }

	properties, err := executor.Search(context.Background(), model.SearchParams{
		Location:     "Nashville, TN 37209",
		MaxPrice:     450000,
		MinBedrooms:  3,
		MinBathrooms: model.IntPtr(2),
		PropertyType: model.StringPtr("single-family"),
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/listings/sale", got.URL.Path)
	assert.Equal(t, "test-key", got.Header.Get("X-Api-Key"))
	q := got.URL.Query()
	assert.Equal(t, "Nashville", q.Get("city"))
	assert.Equal(t, "TN", q.Get("state"))
	assert.Equal(t, "37209", q.Get("zipCode"))
	assert.Equal(t, "450000", q.Get("maxPrice"))
	assert.Equal(t, "3", q.Get("bedrooms"))
	assert.Equal(t, "2", q.Get("bathrooms"))
	assert.Equal(t, "single-family", q.Get("propertyType"))
	assert.Equal(t, "Active", q.Get("status"))
	assert.Equal(t, "50", q.Get("limit"))

	require.Len(t, properties, 2)

	first := properties[0]
	assert.Equal(t, "123-Main-St", first.ID)
	assert.Equal(t, "123 Main St", first.Address)
	assert.Equal(t, 2100.0, first.Sqft)
	assert.Equal(t, 3, first.DaysOnMarket)
	assert.Equal(t, model.JSONArray{"https://img/1.jpg", "https://img/2.jpg"}, first.Images)
	assert.Equal(t, model.JSONArray{"pool", "fireplace", "renovated"}, first.Features)
	require.NotNil(t, first.SchoolRatings)
	assert.Equal(t, 9.0, *first.SchoolRatings.Elementary)
	assert.Nil(t, first.SchoolRatings.Middle)
	require.NotNil(t, first.AgentInfo)
	assert.Equal(t, "Pat Agent", first.AgentInfo.Name)

	second := properties[1]
	assert.Equal(t, "L-2", second.ID)
	assert.Equal(t, "9 Oak Ave", second.Address)
	assert.Equal(t, 1800.0, second.Sqft)
	assert.Equal(t, model.JSONArray{"Garage"}, second.Features)
	assert.Equal(t, model.UnknownDaysOnMarket, second.DaysOnMarket)
	assert.Nil(t, second.SchoolRatings)
}

func TestRentCastSearchExecutor_OmitsOptionalParams(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	executor := NewRentCastSearchExecutor(&config.SearchConfig{RentCastBaseURL: server.URL, CandidateLimit: 20})
	properties, err := executor.Search(context.Background(), model.SearchParams{
		Location:     "37209",
		MaxPrice:     300000,
		MinBedrooms:  2,
		PropertyType: model.StringPtr("any"),
	})
	require.NoError(t, err)
	assert.Empty(t, properties)

	q := got.URL.Query()
	assert.Equal(t, "37209", q.Get("zipCode"))
	assert.Equal(t, "", q.Get("city"))
	assert.False(t, q.Has("bathrooms"))
	assert.False(t, q.Has("propertyType"))
	assert.Equal(t, "20", q.Get("limit"))
}

func TestRentCastSearchExecutor_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	executor := NewRentCastSearchExecutor(&config.SearchConfig{RentCastBaseURL: server.URL})
	_, err := executor.Search(context.Background(), model.SearchParams{Location: "Austin", MaxPrice: 1, MinBedrooms: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		input string
		want  Location
	}{
		{"Nashville, TN", Location{City: "Nashville", State: "TN"}},
		{"37209", Location{ZipCode: "37209"}},
		{"Nashville TN 37209", Location{City: "Nashville", State: "TN", ZipCode: "37209"}},
		{"Austin", Location{City: "Austin"}},
		{"  ", Location{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLocation(tt.input))
		})
	}
}

func TestDaysOnMarket(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysOnMarket(now, now))
	assert.Equal(t, 1, DaysOnMarket(now.Add(-time.Hour), now))
	assert.Equal(t, 2, DaysOnMarket(now.Add(-36*time.Hour), now))
	assert.Equal(t, 1, DaysOnMarket(now.Add(time.Hour), now))
}
