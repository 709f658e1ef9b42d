package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"leadbot/internal/model"
)

var (
	priceRe     = regexp.MustCompile(`(?i)\$?([\d,]+)k?(?:,000)?(?:\s*(?:max|budget|price|under|up to))?`)
	bedroomsRe  = regexp.MustCompile(`(?i)(\d+)\s*(?:bed|br|bedroom)`)
	bathroomsRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:bath|ba|bathroom)`)
	emailRe     = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	phoneRe     = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)

	poolRe         = regexp.MustCompile(`(?i)\bpool\b`)
	yardRe         = regexp.MustCompile(`(?i)\b(?:backyard|yard)\b`)
	garageRe       = regexp.MustCompile(`(?i)\bgarage\b`)
	fireplaceRe    = regexp.MustCompile(`(?i)\bfireplace\b`)
	singleFamilyRe = regexp.MustCompile(`(?i)\b(?:single-family|house|home)\b`)
	condoRe        = regexp.MustCompile(`(?i)\bcondo\b`)
	townhouseRe    = regexp.MustCompile(`(?i)\btownhouse\b`)
)

// RegexExtractor pulls the common fields out of a message with regular expressions
type RegexExtractor struct{}

// NewRegexExtractor creates a new regex extractor
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Extract implements Extractor. History is ignored.
func (e *RegexExtractor) Extract(_ context.Context, message string, _ []model.ChatMessage) model.ExtractionResult {
	result := model.ExtractionResult{
		Fields: []string{},
		Source: model.ExtractionSourceFallback,
	}
	prefs := &result.Delta

	email := emailRe.FindString(message)
	phone := phoneRe.FindString(message)

	// contact details and room counts would otherwise read as prices
	priceText := message
	for _, s := range []string{email, phone} {
		if s != "" {
			priceText = strings.Replace(priceText, s, " ", 1)
		}
	}
	priceText = bedroomsRe.ReplaceAllString(priceText, " ")
	priceText = bathroomsRe.ReplaceAllString(priceText, " ")
	if amount, ok := extractPrice(priceText); ok {
		prefs.MaxPrice = model.Float64Ptr(amount)
		result.Fields = append(result.Fields, "maxPrice")
	}

	if m := bedroomsRe.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			prefs.MinBedrooms = model.IntPtr(n)
			result.Fields = append(result.Fields, "minBedrooms")
		}
	}

	if m := bathroomsRe.FindStringSubmatch(message); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			prefs.MinBathrooms = model.IntPtr(int(f))
			result.Fields = append(result.Fields, "minBathrooms")
		}
	}

	var features []string
	if poolRe.MatchString(message) {
		features = append(features, "pool")
	}
	if yardRe.MatchString(message) {
		features = append(features, "backyard")
	}
	if garageRe.MatchString(message) {
		features = append(features, "garage")
	}
	if fireplaceRe.MatchString(message) {
		features = append(features, "fireplace")
	}
	if len(features) > 0 {
		prefs.MustHaveFeatures = features
		result.Fields = append(result.Fields, "mustHaveFeatures")
	}

	switch {
	case singleFamilyRe.MatchString(message):
		prefs.PropertyType = model.StringPtr(model.PropertyTypeSingleFamily)
	case condoRe.MatchString(message):
		prefs.PropertyType = model.StringPtr(model.PropertyTypeCondo)
	case townhouseRe.MatchString(message):
		prefs.PropertyType = model.StringPtr(model.PropertyTypeTownhouse)
	}
	if prefs.PropertyType != nil {
		result.Fields = append(result.Fields, "propertyType")
	}

	if email != "" {
		result.ContactInfo.Email = email
		result.Fields = append(result.Fields, "email")
	}
	if phone != "" {
		result.ContactInfo.Phone = phone
		result.Fields = append(result.Fields, "phone")
	}

	result.Confidence = 0.3
	if len(result.Fields) > 0 {
		result.Confidence = 0.6
	}
	return result
}

// extractPrice returns the largest amount mentioned. Amounts under 10000 are
// read as thousands when the message uses "k" shorthand.
func extractPrice(message string) (float64, bool) {
	hasK := strings.Contains(strings.ToLower(message), "k")
	best := 0
	for _, m := range priceRe.FindAllStringSubmatch(message, -1) {
		amount, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil || amount <= 0 {
			continue
		}
		if hasK && amount < 10000 {
			amount *= 1000
		}
		if amount > best {
			best = amount
		}
	}
	return float64(best), best > 0
}
