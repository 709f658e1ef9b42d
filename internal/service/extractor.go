package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"leadbot/internal/model"
	"leadbot/internal/utils"
)

// Extractor reads structured preferences and contact details out of the latest message
type Extractor interface {
	Extract(ctx context.Context, message string, history []model.ChatMessage) model.ExtractionResult
}

const (
	toolExtractPreferences = "extract_property_preferences"
	toolExtractContact     = "extract_contact_info"

	extractionTemperature = 0.1
	defaultAIConfidence   = 0.8
)

const extractionSystemPrompt = `You are a data extraction assistant for a real estate chatbot.
Extract property search preferences and contact information from user messages.

IMPORTANT EXTRACTION RULES:

1. LOCATION:
   - Extract city, state, zip codes
   - Examples: "Nashville, TN", "Austin", "37209", "Denver, Colorado"

2. PRICE/BUDGET:
   - Convert shorthand to full numbers: "$500k" -> 500000, "$1.2M" -> 1200000
   - Examples: "$700k", "$850,000", "under $1 million"

3. BEDROOMS/BATHROOMS:
   - Extract from phrases like: "3 bed", "4 bedroom", "3BR", "2.5 bath"

4. FEATURES:
   - Extract mentioned amenities: pool, backyard, garage, fireplace, etc.
   - Map variations: "yard" -> "backyard", "2 car garage" -> "garage"

5. PROPERTY TYPE:
   - Detect: single-family, condo, townhouse, multi-family
   - "house" -> single-family, "apartment" -> condo

6. TIMELINE:
   - "ASAP", "next month" -> WITHIN_1_MONTH, "6 months" -> WITHIN_6_MONTHS, "flexible" -> FLEXIBLE

7. CONTACT INFO:
   - Extract names, emails, phone numbers when provided

Only extract information explicitly mentioned or strongly implied in the current message.
Do NOT make assumptions beyond what's stated.`

var (
	preferenceFieldOrder = []string{
		"location", "maxPrice", "minBedrooms", "minBathrooms", "mustHaveFeatures",
		"niceToHaveFeatures", "propertyType", "timeline", "isFirstTimeBuyer", "currentSituation",
	}
	contactFieldOrder = []string{"firstName", "lastName", "fullName", "email", "phone"}

	propertyTypes      = []string{model.PropertyTypeSingleFamily, model.PropertyTypeCondo, model.PropertyTypeTownhouse, model.PropertyTypeMultiFamily, model.PropertyTypeAny}
	timelines          = []string{"ASAP", "WITHIN_1_MONTH", "WITHIN_3_MONTHS", "WITHIN_6_MONTHS", "FLEXIBLE"}
	currentSituations  = []string{"renting", "selling", "first-time", "relocating", "unknown"}
	extractionToolDefs = buildExtractionTools()
)

// AIExtractor extracts with model function calling and falls back to regular expressions
type AIExtractor struct {
	ai            ToolCaller
	fallback      *RegexExtractor
	historyWindow int
}

// NewAIExtractor creates a new extractor. A nil ai always uses the fallback.
func NewAIExtractor(ai ToolCaller, historyWindow int) *AIExtractor {
	if historyWindow <= 0 {
		historyWindow = 5
	}
	return &AIExtractor{
		ai:            ai,
		fallback:      NewRegexExtractor(),
		historyWindow: historyWindow,
	}
}

// Extract never fails: any AI error degrades to the regex fallback
func (e *AIExtractor) Extract(ctx context.Context, message string, history []model.ChatMessage) model.ExtractionResult {
	if e.ai == nil {
		return e.fallback.Extract(ctx, message, history)
	}

	result, err := e.extractWithAI(ctx, message, history)
	if err != nil {
		log.Warn().Err(err).Msg("AI extraction failed, using regex fallback")
		return e.fallback.Extract(ctx, message, history)
	}
	return result
}

func (e *AIExtractor) extractWithAI(ctx context.Context, message string, history []model.ChatMessage) (model.ExtractionResult, error) {
	messages := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt}}
	for _, m := range model.LastN(history, e.historyWindow) {
		if m.Role == model.RoleSystem {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	reply, err := e.ai.CompleteWithTools(ctx, messages, extractionToolDefs, extractionTemperature)
	if err != nil {
		return model.ExtractionResult{}, err
	}

	result := model.ExtractionResult{
		Fields:     []string{},
		Confidence: defaultAIConfidence,
		Source:     model.ExtractionSourceAI,
	}
	for _, call := range reply.ToolCalls {
		switch call.Function.Name {
		case toolExtractPreferences:
			var args preferenceArgs
			if err := utils.ParseAIJSON(call.Function.Arguments, &args); err != nil {
				return model.ExtractionResult{}, fmt.Errorf("decode %s arguments: %w", toolExtractPreferences, err)
			}
			result.Delta = args.toPreferences()
			result.Fields = appendUnique(result.Fields, presentFields(call.Function.Arguments, preferenceFieldOrder)...)
		case toolExtractContact:
			var args model.ContactInfo
			if err := utils.ParseAIJSON(call.Function.Arguments, &args); err != nil {
				return model.ExtractionResult{}, fmt.Errorf("decode %s arguments: %w", toolExtractContact, err)
			}
			result.ContactInfo = args
			result.Fields = appendUnique(result.Fields, presentFields(call.Function.Arguments, contactFieldOrder)...)
		}
	}

	if len(result.Fields) > 0 {
		result.Confidence = math.Min(0.9, 0.6+0.1*float64(len(result.Fields)))
	}

	log.Debug().Strs("fields", result.Fields).Float64("confidence", result.Confidence).
		Str("preferences", result.Delta.Summary()).Msg("extracted from message")

	return result, nil
}

// preferenceArgs mirrors the extract_property_preferences tool schema
type preferenceArgs struct {
	Location           *string  `json:"location"`
	MaxPrice           *float64 `json:"maxPrice"`
	MinBedrooms        *float64 `json:"minBedrooms"`
	MinBathrooms       *float64 `json:"minBathrooms"`
	MustHaveFeatures   []string `json:"mustHaveFeatures"`
	NiceToHaveFeatures []string `json:"niceToHaveFeatures"`
	PropertyType       *string  `json:"propertyType"`
	Timeline           *string  `json:"timeline"`
	IsFirstTimeBuyer   *bool    `json:"isFirstTimeBuyer"`
	CurrentSituation   *string  `json:"currentSituation"`
}

// toPreferences drops values outside the tool schema
func (a preferenceArgs) toPreferences() model.PreferenceState {
	p := model.PreferenceState{
		MustHaveFeatures:   a.MustHaveFeatures,
		NiceToHaveFeatures: a.NiceToHaveFeatures,
		IsFirstTimeBuyer:   a.IsFirstTimeBuyer,
	}
	if a.Location != nil && strings.TrimSpace(*a.Location) != "" {
		p.Location = model.StringPtr(strings.TrimSpace(*a.Location))
	}
	if a.MaxPrice != nil && *a.MaxPrice > 0 {
		p.MaxPrice = model.Float64Ptr(*a.MaxPrice)
	}
	if a.MinBedrooms != nil && *a.MinBedrooms > 0 {
		p.MinBedrooms = model.IntPtr(int(*a.MinBedrooms))
	}
	if a.MinBathrooms != nil && *a.MinBathrooms > 0 {
		p.MinBathrooms = model.IntPtr(int(math.Floor(*a.MinBathrooms)))
	}
	p.PropertyType = oneOf(a.PropertyType, propertyTypes)
	p.Timeline = oneOf(a.Timeline, timelines)
	p.CurrentSituation = oneOf(a.CurrentSituation, currentSituations)
	return p
}

func oneOf(v *string, allowed []string) *string {
	if v == nil {
		return nil
	}
	for _, a := range allowed {
		if *v == a {
			return model.StringPtr(a)
		}
	}
	return nil
}

// presentFields lists the keys of a JSON object whose values are not null, in schema order
func presentFields(arguments string, order []string) []string {
	var raw map[string]json.RawMessage
	if err := utils.ParseAIJSON(arguments, &raw); err != nil {
		return nil
	}
	fields := []string{}
	for _, key := range order {
		if v, ok := raw[key]; ok && string(v) != "null" {
			fields = append(fields, key)
		}
	}
	return fields
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}

func buildExtractionTools() []openai.Tool {
	stringArray := jsonschema.Definition{Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}}

	preferences := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"location":           {Type: jsonschema.String, Description: `City, state, zip code, or neighborhood (e.g., "Nashville, TN", "37209")`},
			"maxPrice":           {Type: jsonschema.Number, Description: `Maximum budget in dollars (convert "500k" to 500000)`},
			"minBedrooms":        {Type: jsonschema.Integer, Description: "Minimum number of bedrooms"},
			"minBathrooms":       {Type: jsonschema.Number, Description: "Minimum number of bathrooms (can be decimal like 2.5)"},
			"mustHaveFeatures":   withDescription(stringArray, "Must-have features (pool, backyard, garage, etc.)"),
			"niceToHaveFeatures": withDescription(stringArray, "Nice-to-have features"),
			"propertyType":       {Type: jsonschema.String, Enum: propertyTypes, Description: "Type of property desired"},
			"timeline":           {Type: jsonschema.String, Enum: timelines, Description: "Timeline for moving/purchasing"},
			"isFirstTimeBuyer":   {Type: jsonschema.Boolean, Description: "Is this a first-time home buyer?"},
			"currentSituation":   {Type: jsonschema.String, Enum: currentSituations, Description: "Current living situation"},
		},
	}

	contact := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"firstName": {Type: jsonschema.String, Description: `First name only (e.g., "Billy" from "I'm Billy Bob")`},
			"lastName":  {Type: jsonschema.String, Description: `Last name only (e.g., "Bob" from "I'm Billy Bob")`},
			"fullName":  {Type: jsonschema.String, Description: "Full name if provided as a single unit"},
			"email":     {Type: jsonschema.String, Description: "Email address"},
			"phone":     {Type: jsonschema.String, Description: "Phone number"},
		},
	}

	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolExtractPreferences,
				Description: "Extract property search preferences from user message",
				Parameters:  preferences,
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolExtractContact,
				Description: "Extract contact information from user message",
				Parameters:  contact,
			},
		},
	}
}

func withDescription(d jsonschema.Definition, description string) jsonschema.Definition {
	d.Description = description
	return d
}
