package utils

import (
	"fmt"
	"strings"
)

// featureSynonyms maps a requested feature to the phrases that indicate it in a listing
var featureSynonyms = map[string][]string{
	"backyard":             {"backyard", "yard", "outdoor space", "patio"},
	"pool":                 {"pool", "swimming pool", "swim"},
	"garage":               {"garage", "parking", "carport"},
	"updated kitchen":      {"updated kitchen", "renovated kitchen", "modern kitchen", "new kitchen"},
	"fireplace":            {"fireplace", "wood burning"},
	"hardwood floors":      {"hardwood", "wood floor"},
	"stainless appliances": {"stainless", "stainless steel appliances"},
	"master suite":         {"master suite", "primary suite"},
	"walk-in closet":       {"walk-in closet", "walkin closet"},
	"fenced yard":          {"fenced", "fence"},
}

// descriptionFeatures are the keywords pulled out of free-text descriptions
// when a listing carries no feature list
var descriptionFeatures = []string{
	"pool", "backyard", "garage", "fireplace", "hardwood",
	"granite", "stainless", "updated", "renovated", "new",
}

// FeatureSynonyms returns the phrases that satisfy a requested feature.
// Unknown features match themselves.
func FeatureSynonyms(feature string) []string {
	key := strings.ToLower(strings.TrimSpace(feature))
	if syns, ok := featureSynonyms[key]; ok {
		return syns
	}
	return []string{key}
}

// HasFeature reports whether a listing's features or description satisfy the requested feature
func HasFeature(features []string, description, feature string) bool {
	haystack := strings.ToLower(strings.Join(append(append([]string(nil), features...), description), " "))
	for _, key := range FeatureSynonyms(feature) {
		if key != "" && strings.Contains(haystack, key) {
			return true
		}
	}
	return false
}

// FormatFeature capitalizes the first letter for display
func FormatFeature(feature string) string {
	if feature == "" {
		return feature
	}
	return strings.ToUpper(feature[:1]) + feature[1:]
}

// ExtractFeatures scans a listing description for well-known feature keywords
func ExtractFeatures(description string) []string {
	features := []string{}
	if description == "" {
		return features
	}
	lower := strings.ToLower(description)
	for _, pattern := range descriptionFeatures {
		if strings.Contains(lower, pattern) {
			features = append(features, pattern)
		}
	}
	return features
}

// BuildFeatureConditions builds one SQL condition per requested feature. A listing
// satisfies a condition when any synonym appears in its features array or description.
// Returns the conditions, their parameters and the next free placeholder index.
func BuildFeatureConditions(features []string, paramIndex int) ([]string, []interface{}, int) {
	if len(features) == 0 {
		return nil, nil, paramIndex
	}

	var conditions []string
	var params []interface{}

	for _, feature := range features {
		var orConditions []string
		for _, syn := range FeatureSynonyms(feature) {
			if syn == "" {
				continue
			}
			placeholder := fmt.Sprintf("$%d", paramIndex)
			orConditions = append(orConditions,
				"EXISTS (SELECT 1 FROM jsonb_array_elements_text(features) elem WHERE elem ILIKE "+placeholder+")",
				"description ILIKE "+placeholder,
			)
			params = append(params, "%"+syn+"%")
			paramIndex++
		}
		if len(orConditions) == 0 {
			continue
		}
		conditions = append(conditions, "("+strings.Join(orConditions, " OR ")+")")
	}

	return conditions, params, paramIndex
}
