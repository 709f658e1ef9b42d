package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"leadbot/internal/model"
)

// PropertySearcher runs a ranked property search
type PropertySearcher interface {
	Search(ctx context.Context, params model.SearchParams) ([]model.MatchResult, error)
}

// SearchHandler handles direct property search requests
type SearchHandler struct {
	searcher PropertySearcher
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher PropertySearcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Search handles POST /api/v1/properties/search
func (h *SearchHandler) Search(c *gin.Context) {
	var params model.SearchParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, []model.ValidationIssue{{Path: "body", Message: err.Error()}})
		return
	}
	if params.MinBedrooms <= 0 {
		params.MinBedrooms = model.DefaultMinBedrooms
	}
	if params.MustHaveFeatures == nil {
		params.MustHaveFeatures = []string{}
	}

	matches, err := h.searcher.Search(c.Request.Context(), params)
	if errors.Is(err, model.ErrNoSearchCriteria) {
		badRequest(c, []model.ValidationIssue{{Path: "location", Message: "location and maxPrice are required"}})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("location", params.Location).Msg("property search failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": model.SearchErrorMessage})
		return
	}

	if matches == nil {
		matches = []model.MatchResult{}
	}
	c.JSON(http.StatusOK, gin.H{
		"properties": matches,
		"count":      len(matches),
	})
}
