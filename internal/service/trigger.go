package service

import (
	"errors"
	"fmt"

	"leadbot/internal/domain"
	"leadbot/internal/model"
	"leadbot/internal/utils"
)

// SearchBlockTag delimits explicit search parameters in a generated reply
const SearchBlockTag = "property_search"

// ErrMalformedSearchBlock is returned when the explicit parameter block cannot be decoded
var ErrMalformedSearchBlock = errors.New("malformed property search block")

// ShouldSearch decides whether a completed reply triggers a property search.
// Only search-enabled domains search, and only when the reply carries an
// explicit block or the preferences are ready.
func ShouldSearch(cfg domain.Config, response string, prefs model.PreferenceState) bool {
	if !cfg.SearchEnabled {
		return false
	}
	return utils.ContainsTag(response, SearchBlockTag) || prefs.CanSearch()
}

// ResolveSearchParams picks the parameters for a triggered search.
// A complete explicit block wins over parameters synthesized from preferences.
func ResolveSearchParams(response string, prefs model.PreferenceState) (model.SearchParams, error) {
	if block, ok := utils.ExtractTaggedBlock(response, SearchBlockTag); ok {
		return parseSearchBlock(block)
	}
	if !prefs.CanSearch() {
		return model.SearchParams{}, model.ErrNoSearchCriteria
	}
	return SynthesizeSearchParams(prefs), nil
}

// SynthesizeSearchParams builds parameters from preferences, backfilling defaults
func SynthesizeSearchParams(prefs model.PreferenceState) model.SearchParams {
	params := model.SearchParams{
		MinBedrooms:        model.DefaultMinBedrooms,
		MinBathrooms:       model.IntPtr(model.DefaultMinBathrooms),
		MustHaveFeatures:   []string{},
		NiceToHaveFeatures: append([]string(nil), prefs.NiceToHaveFeatures...),
	}
	if prefs.Location != nil {
		params.Location = *prefs.Location
	}
	if prefs.MaxPrice != nil {
		params.MaxPrice = *prefs.MaxPrice
	}
	if prefs.MinBedrooms != nil && *prefs.MinBedrooms > 0 {
		params.MinBedrooms = *prefs.MinBedrooms
	}
	if prefs.MinBathrooms != nil && *prefs.MinBathrooms > 0 {
		params.MinBathrooms = model.IntPtr(*prefs.MinBathrooms)
	}
	if len(prefs.MustHaveFeatures) > 0 {
		params.MustHaveFeatures = append([]string(nil), prefs.MustHaveFeatures...)
	}
	if prefs.PropertyType != nil && *prefs.PropertyType != model.PropertyTypeAny {
		params.PropertyType = model.StringPtr(*prefs.PropertyType)
	}
	return params
}

func parseSearchBlock(block string) (model.SearchParams, error) {
	var params model.SearchParams
	if err := utils.ParseAIJSON(block, &params); err != nil {
		return model.SearchParams{}, fmt.Errorf("%w: %v", ErrMalformedSearchBlock, err)
	}
	if params.MustHaveFeatures == nil {
		params.MustHaveFeatures = []string{}
	}
	if params.PropertyType != nil && *params.PropertyType == model.PropertyTypeAny {
		params.PropertyType = nil
	}
	if err := params.Validate(); err != nil {
		return model.SearchParams{}, err
	}
	return params, nil
}
