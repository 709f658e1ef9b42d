package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"leadbot/internal/model"
	"leadbot/internal/utils"
)

// Match reason constants
const (
	ReasonGreatValue      = "Great value - well under budget"
	ReasonAllMustHaves    = "Has all must-have features!"
	ReasonJustListed      = "🔥 Just listed!"
	ReasonRecentlyListed  = "Recently listed"
	ReasonNewConstruction = "Brand new construction"
	ReasonModernBuild     = "Modern build"
	ReasonExceptionalSchl = "⭐ Exceptional schools nearby"
	ReasonTopSchools      = "Top-rated schools"
	ReasonGreatSchools    = "Great schools"
	ReasonSqftExcellent   = "Excellent value per sqft"
	ReasonSqftGood        = "Good value"
	ReasonLargeLot        = "Large lot"
)

const (
	// MaxMatchScore is the ceiling used to derive a display percentage
	MaxMatchScore = 200.0

	defaultMaxResults  = 5
	defaultMaxReasons  = 5
	marketPricePerSqft = 200.0
	largeLotSqft       = 10000.0
)

// Ranker scores candidate properties against search parameters
type Ranker struct {
	maxResults int
	maxReasons int
	now        func() time.Time
}

// NewRanker creates a ranker returning at most maxResults matches with at most
// maxReasons reasons each. Non-positive values fall back to 5.
func NewRanker(maxResults, maxReasons int) *Ranker {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxReasons <= 0 {
		maxReasons = defaultMaxReasons
	}
	return &Ranker{maxResults: maxResults, maxReasons: maxReasons, now: time.Now}
}

// Match filters, scores and orders properties, best first
func (r *Ranker) Match(properties []model.Property, params model.SearchParams) []model.MatchResult {
	results := make([]model.MatchResult, 0, len(properties))

	for _, property := range properties {
		// Hard filters
		if property.Price > params.MaxPrice || property.Bedrooms < params.MinBedrooms {
			continue
		}

		var score float64
		reasons := []string{}
		missing := []string{}

		score += r.scorePrice(property, params, &reasons)
		score += r.scoreBedrooms(property, params, &reasons)
		score += r.scoreBathrooms(property, params, &reasons)
		score += r.scoreFeatures(property, params, &reasons, &missing)
		score += r.scorePropertyType(property, params)
		score += r.scoreRecency(property, &reasons)
		score += r.scoreAge(property, &reasons)
		score += r.scoreSchools(property, &reasons)
		score += r.scorePricePerSqft(property, &reasons)

		if property.LotSize != nil && *property.LotSize > largeLotSqft {
			score += 5
			reasons = append(reasons, ReasonLargeLot)
		}

		if len(reasons) > r.maxReasons {
			reasons = reasons[:r.maxReasons]
		}

		results = append(results, model.MatchResult{
			Property:        property,
			MatchScore:      score,
			MatchReasons:    reasons,
			MissingFeatures: missing,
		})
	}

	// Sort by score descending
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})

	if len(results) > r.maxResults {
		results = results[:r.maxResults]
	}

	for i := range results {
		results[i].MatchScore = math.Max(results[i].MatchScore, 0)
		results[i].MatchPercentage = MatchPercentage(results[i].MatchScore)
	}

	return results
}

// MatchPercentage converts a raw score into a 0-100 display value
func MatchPercentage(score float64) int {
	pct := int(math.Round(score / MaxMatchScore * 100))
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// scorePrice rewards listings 5-15% under budget the most
func (r *Ranker) scorePrice(p model.Property, params model.SearchParams, reasons *[]string) float64 {
	diff := params.MaxPrice - p.Price
	pctUnder := diff / params.MaxPrice * 100

	switch {
	case pctUnder >= 5 && pctUnder <= 15:
		*reasons = append(*reasons, fmt.Sprintf("Perfect price - %s under budget", model.FormatMoney(diff)))
		return 35
	case pctUnder > 15:
		*reasons = append(*reasons, ReasonGreatValue)
		return 25
	default:
		return 20
	}
}

func (r *Ranker) scoreBedrooms(p model.Property, params model.SearchParams, reasons *[]string) float64 {
	switch {
	case p.Bedrooms == params.MinBedrooms:
		return 25
	case p.Bedrooms == params.MinBedrooms+1:
		*reasons = append(*reasons, fmt.Sprintf("%d bedrooms (bonus room)", p.Bedrooms))
		return 30
	default:
		*reasons = append(*reasons, fmt.Sprintf("%d bedrooms (spacious)", p.Bedrooms))
		return 20
	}
}

func (r *Ranker) scoreBathrooms(p model.Property, params model.SearchParams, reasons *[]string) float64 {
	if params.MinBathrooms == nil || *params.MinBathrooms <= 0 {
		if p.Bathrooms >= 2 {
			return 10
		}
		return 0
	}

	minBaths := float64(*params.MinBathrooms)
	if p.Bathrooms < minBaths {
		return 0
	}
	if p.Bathrooms > minBaths {
		*reasons = append(*reasons, strconv.FormatFloat(p.Bathrooms, 'f', -1, 64)+" bathrooms")
		return 20
	}
	return 15
}

func (r *Ranker) scoreFeatures(p model.Property, params model.SearchParams, reasons, missing *[]string) float64 {
	var score float64
	description := ""
	if p.Description != nil {
		description = *p.Description
	}

	misses := 0
	for _, feature := range params.MustHaveFeatures {
		if utils.HasFeature(p.Features, description, feature) {
			score += 15
			*reasons = append(*reasons, "✓ "+utils.FormatFeature(feature))
		} else {
			misses++
			score -= 10
			*missing = append(*missing, utils.FormatFeature(feature))
		}
	}
	if len(params.MustHaveFeatures) > 0 && misses == 0 {
		score += 10
		*reasons = append(*reasons, ReasonAllMustHaves)
	}

	for _, feature := range params.NiceToHaveFeatures {
		if utils.HasFeature(p.Features, description, feature) {
			score += 5
			*reasons = append(*reasons, "+ "+utils.FormatFeature(feature))
		}
	}
	return score
}

func (r *Ranker) scorePropertyType(p model.Property, params model.SearchParams) float64 {
	if !params.HasPropertyType() {
		return 0
	}
	have := normalizePropertyType(p.PropertyType)
	want := normalizePropertyType(*params.PropertyType)
	if strings.Contains(have, want) || strings.Contains(want, have) {
		return 15
	}
	return -5
}

func normalizePropertyType(t string) string {
	return strings.NewReplacer("-", "", " ", "", "\t", "").Replace(strings.ToLower(t))
}

func (r *Ranker) scoreRecency(p model.Property, reasons *[]string) float64 {
	switch {
	case p.DaysOnMarket < 0:
		return 0
	case p.DaysOnMarket <= 3:
		*reasons = append(*reasons, ReasonJustListed)
		return 15
	case p.DaysOnMarket <= 7:
		*reasons = append(*reasons, ReasonRecentlyListed)
		return 10
	case p.DaysOnMarket <= 30:
		return 5
	case p.DaysOnMarket > 90:
		return -5
	default:
		return 0
	}
}

func (r *Ranker) scoreAge(p model.Property, reasons *[]string) float64 {
	if p.YearBuilt == nil || *p.YearBuilt == 0 {
		return 0
	}
	age := r.now().Year() - *p.YearBuilt

	switch {
	case age <= 5:
		*reasons = append(*reasons, ReasonNewConstruction)
		return 10
	case age <= 15:
		*reasons = append(*reasons, ReasonModernBuild)
		return 7
	case age <= 30:
		return 3
	case age > 50:
		return -3
	default:
		return 0
	}
}

func (r *Ranker) scoreSchools(p model.Property, reasons *[]string) float64 {
	if p.SchoolRatings == nil {
		return 0
	}
	avg := p.SchoolRatings.Average()

	switch {
	case avg >= 9:
		*reasons = append(*reasons, ReasonExceptionalSchl)
		return 15
	case avg >= 8:
		*reasons = append(*reasons, ReasonTopSchools)
		return 12
	case avg >= 7:
		*reasons = append(*reasons, ReasonGreatSchools)
		return 8
	case avg >= 6:
		return 4
	default:
		return 0
	}
}

func (r *Ranker) scorePricePerSqft(p model.Property, reasons *[]string) float64 {
	if p.Sqft <= 0 {
		return 0
	}
	perSqft := p.Price / p.Sqft

	switch {
	case perSqft < marketPricePerSqft*0.75:
		*reasons = append(*reasons, ReasonSqftExcellent)
		return 10
	case perSqft < marketPricePerSqft*0.9:
		*reasons = append(*reasons, ReasonSqftGood)
		return 7
	case perSqft > marketPricePerSqft*1.2:
		return -5
	default:
		return 0
	}
}
