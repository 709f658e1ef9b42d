package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadbot/internal/model"
)

func fixedRanker() *Ranker {
	r := NewRanker(0, 0)
	r.now = func() time.Time { return time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC) }
	return r
}

func familyParams() model.SearchParams {
	return model.SearchParams{
		Location:           "Austin, TX",
		MaxPrice:           500000,
		MinBedrooms:        3,
		MinBathrooms:       model.IntPtr(2),
		MustHaveFeatures:   []string{"pool", "backyard"},
		NiceToHaveFeatures: []string{"fireplace"},
		PropertyType:       model.StringPtr("single-family"),
	}
}

func TestRanker_Match_ScoresAndOrders(t *testing.T) {
	strong := model.Property{
		ID:           "strong",
		Price:        450000,
		Bedrooms:     4,
		Bathrooms:    2.5,
		Sqft:         3000,
		PropertyType: "Single Family",
		YearBuilt:    model.IntPtr(2023),
		Features:     model.JSONArray{"Pool", "covered patio"},
		DaysOnMarket: 2,
	}
	weak := model.Property{
		ID:           "weak",
		Price:        300000,
		Bedrooms:     3,
		Bathrooms:    2,
		Sqft:         1000,
		PropertyType: "Condo",
		YearBuilt:    model.IntPtr(1960),
		DaysOnMarket: 120,
		LotSize:      model.Float64Ptr(12000),
		SchoolRatings: &model.SchoolRatings{
			Elementary: model.Float64Ptr(10),
			Middle:     model.Float64Ptr(10),
			High:       model.Float64Ptr(10),
		},
	}
	overBudget := model.Property{ID: "over", Price: 510000, Bedrooms: 4}
	tooSmall := model.Property{ID: "small", Price: 400000, Bedrooms: 2}

	results := fixedRanker().Match([]model.Property{weak, overBudget, strong, tooSmall}, familyParams())

	require.Len(t, results, 2)

	assert.Equal(t, "strong", results[0].Property.ID)
	assert.Equal(t, 172.0, results[0].MatchScore)
	assert.Equal(t, 86, results[0].MatchPercentage)
	assert.Equal(t, []string{
		"Perfect price - $50,000 under budget",
		"4 bedrooms (bonus room)",
		"2.5 bathrooms",
		"✓ Pool",
		"✓ Backyard",
	}, results[0].MatchReasons)
	assert.Empty(t, results[0].MissingFeatures)

	assert.Equal(t, "weak", results[1].Property.ID)
	assert.Equal(t, 47.0, results[1].MatchScore)
	assert.Equal(t, 24, results[1].MatchPercentage)
	assert.Equal(t, []string{ReasonGreatValue, ReasonExceptionalSchl, ReasonLargeLot}, results[1].MatchReasons)
	assert.Equal(t, []string{"Pool", "Backyard"}, results[1].MissingFeatures)
}

func TestRanker_Match_ClampsNegativeScores(t *testing.T) {
	params := model.SearchParams{
		Location:         "Austin",
		MaxPrice:         100000,
		MinBedrooms:      1,
		MustHaveFeatures: []string{"pool", "garage", "fireplace", "hardwood floors", "master suite"},
	}
	property := model.Property{ID: "p", Price: 99000, Bedrooms: 5, Bathrooms: 1, Sqft: 100, DaysOnMarket: 100}

	results := fixedRanker().Match([]model.Property{property}, params)

	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].MatchScore)
	assert.Equal(t, 0, results[0].MatchPercentage)
	assert.Len(t, results[0].MissingFeatures, 5)
	assert.Equal(t, []string{"5 bedrooms (spacious)"}, results[0].MatchReasons)
}

func TestRanker_Match_TopFive(t *testing.T) {
	params := model.SearchParams{Location: "Austin", MaxPrice: 400000, MinBedrooms: 2}

	var properties []model.Property
	for i := 0; i < 8; i++ {
		properties = append(properties, model.Property{
			ID:           fmt.Sprintf("p%d", i),
			Price:        390000,
			Bedrooms:     2,
			DaysOnMarket: 10 * i,
		})
	}

	results := fixedRanker().Match(properties, params)

	require.Len(t, results, 5)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].MatchScore, results[i].MatchScore)
	}
	assert.Equal(t, "p0", results[0].Property.ID)
}

func TestRanker_Match_Empty(t *testing.T) {
	results := fixedRanker().Match(nil, familyParams())
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestMatchPercentage(t *testing.T) {
	assert.Equal(t, 0, MatchPercentage(0))
	assert.Equal(t, 50, MatchPercentage(100))
	assert.Equal(t, 100, MatchPercentage(260))
}

func TestNormalizePropertyType(t *testing.T) {
	assert.Equal(t, "singlefamily", normalizePropertyType("Single-Family"))
	assert.Equal(t, "singlefamily", normalizePropertyType("single family"))
}
