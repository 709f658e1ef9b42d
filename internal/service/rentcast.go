package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"leadbot/internal/config"
	"leadbot/internal/model"
	"leadbot/internal/utils"
)

const (
	defaultRentCastBaseURL = "https://api.rentcast.io/v1"
	rentCastTimeout        = 15 * time.Second
)

// RentCastSearchExecutor queries the RentCast for-sale listings API
type RentCastSearchExecutor struct {
	baseURL    string
	apiKey     string
	limit      int
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewRentCastSearchExecutor creates a new RentCast client
func NewRentCastSearchExecutor(cfg *config.SearchConfig) *RentCastSearchExecutor {
	baseURL := strings.TrimRight(cfg.RentCastBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultRentCastBaseURL
	}
	limit := cfg.CandidateLimit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	rps := rate.Inf
	if cfg.RentCastRPS > 0 {
		rps = rate.Limit(cfg.RentCastRPS)
	}

	return &RentCastSearchExecutor{
		baseURL:    baseURL,
		apiKey:     cfg.RentCastAPIKey,
		limit:      limit,
		httpClient: &http.Client{Timeout: rentCastTimeout},
		limiter:    rate.NewLimiter(rps, 1),
		now:        time.Now,
	}
}

// Search implements SearchExecutor
func (c *RentCastSearchExecutor) Search(ctx context.Context, params model.SearchParams) ([]model.Property, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rentcast rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/listings/sale?"+c.query(params).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rentcast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rentcast API error: %d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(body)))
	}

	var listings []rentCastListing
	if err := json.NewDecoder(resp.Body).Decode(&listings); err != nil {
		return nil, fmt.Errorf("failed to decode rentcast response: %w", err)
	}

	now := c.now()
	properties := make([]model.Property, 0, len(listings))
	for _, l := range listings {
		properties = append(properties, l.toProperty(now))
	}

	log.Debug().Str("location", params.Location).Int("count", len(properties)).Msg("rentcast listings fetched")
	return properties, nil
}

func (c *RentCastSearchExecutor) query(params model.SearchParams) url.Values {
	loc := ParseLocation(params.Location)

	q := url.Values{}
	q.Set("city", loc.City)
	q.Set("state", loc.State)
	if loc.ZipCode != "" {
		q.Set("zipCode", loc.ZipCode)
	}
	q.Set("maxPrice", strconv.FormatFloat(params.MaxPrice, 'f', -1, 64))
	q.Set("bedrooms", strconv.Itoa(params.MinBedrooms))
	if params.MinBathrooms != nil && *params.MinBathrooms > 0 {
		q.Set("bathrooms", strconv.Itoa(*params.MinBathrooms))
	}
	if params.HasPropertyType() {
		q.Set("propertyType", *params.PropertyType)
	}
	q.Set("status", "Active")
	q.Set("limit", strconv.Itoa(c.limit))
	return q
}

// Location is a free-text location split into query parts
type Location struct {
	City    string
	State   string
	ZipCode string
}

var (
	locationSplitRe = regexp.MustCompile(`[,\s]+`)
	zipCodeRe       = regexp.MustCompile(`^\d{5}$`)
)

// ParseLocation handles "Nashville, TN", "37209" and "Nashville TN 37209"
func ParseLocation(location string) Location {
	var parts []string
	for _, p := range locationSplitRe.Split(location, -1) {
		if p != "" {
			parts = append(parts, p)
		}
	}

	switch len(parts) {
	case 0:
		return Location{}
	case 1:
		if zipCodeRe.MatchString(parts[0]) {
			return Location{ZipCode: parts[0]}
		}
		return Location{City: parts[0]}
	case 2:
		return Location{City: parts[0], State: parts[1]}
	default:
		return Location{City: parts[0], State: parts[1], ZipCode: parts[2]}
	}
}

type rentCastRating struct {
	Rating *float64 `json:"rating"`
}

type rentCastListing struct {
	ID            string   `json:"id"`
	ListingID     string   `json:"listingId"`
	AddressLine1  string   `json:"addressLine1"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	ZipCode       string   `json:"zipCode"`
	Price         float64  `json:"price"`
	Bedrooms      float64  `json:"bedrooms"`
	Bathrooms     float64  `json:"bathrooms"`
	SquareFootage float64  `json:"squareFootage"`
	LivingArea    float64  `json:"livingArea"`
	LotSize       *float64 `json:"lotSize"`
	PropertyType  string   `json:"propertyType"`
	YearBuilt     *int     `json:"yearBuilt"`
	Features      []string `json:"features"`
	Photos        []struct {
		Href string `json:"href"`
		URL  string `json:"url"`
	} `json:"photos"`
	ListDate    string  `json:"listDate"`
	Description *string `json:"description"`
	Schools     *struct {
		Elementary *rentCastRating `json:"elementary"`
		Middle     *rentCastRating `json:"middle"`
		High       *rentCastRating `json:"high"`
	} `json:"schools"`
	MLSID        *string `json:"mlsId"`
	ListingAgent *struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	} `json:"listingAgent"`
}

func (l rentCastListing) toProperty(now time.Time) model.Property {
	p := model.Property{
		ID:           firstNonEmpty(l.ID, l.ListingID),
		Address:      firstNonEmpty(l.AddressLine1, l.Address),
		City:         l.City,
		State:        l.State,
		ZipCode:      l.ZipCode,
		Price:        l.Price,
		Bedrooms:     int(l.Bedrooms),
		Bathrooms:    l.Bathrooms,
		Sqft:         l.SquareFootage,
		LotSize:      l.LotSize,
		PropertyType: l.PropertyType,
		YearBuilt:    l.YearBuilt,
		Description:  l.Description,
		MLSID:        l.MLSID,
		Images:       model.JSONArray{},
		DaysOnMarket: model.UnknownDaysOnMarket,
	}
	if p.Sqft == 0 {
		p.Sqft = l.LivingArea
	}

	if l.Features != nil {
		p.Features = l.Features
	} else {
		description := ""
		if l.Description != nil {
			description = *l.Description
		}
		p.Features = utils.ExtractFeatures(description)
	}

	for _, photo := range l.Photos {
		if src := firstNonEmpty(photo.Href, photo.URL); src != "" {
			p.Images = append(p.Images, src)
		}
	}

	if listed, err := time.Parse(time.RFC3339, l.ListDate); err == nil {
		p.ListingDate = &listed
		p.DaysOnMarket = DaysOnMarket(listed, now)
	}

	if l.Schools != nil {
		p.SchoolRatings = &model.SchoolRatings{
			Elementary: ratingOf(l.Schools.Elementary),
			Middle:     ratingOf(l.Schools.Middle),
			High:       ratingOf(l.Schools.High),
		}
	}

	if l.ListingAgent != nil {
		p.AgentInfo = &model.AgentInfo{
			Name:  l.ListingAgent.Name,
			Phone: l.ListingAgent.Phone,
			Email: l.ListingAgent.Email,
		}
	}

	return p
}

// DaysOnMarket counts started days between the list date and now
func DaysOnMarket(listed, now time.Time) int {
	diff := math.Abs(float64(now.Sub(listed)))
	return int(math.Ceil(diff / float64(24*time.Hour)))
}

func ratingOf(r *rentCastRating) *float64 {
	if r == nil {
		return nil
	}
	return r.Rating
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
