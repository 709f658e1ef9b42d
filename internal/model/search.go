package model

import (
	"encoding/json"
	"errors"
)

// ErrNoSearchCriteria is returned when a search lacks location or budget
var ErrNoSearchCriteria = errors.New("cannot search: minimum criteria not met")

// Defaults applied when search parameters are synthesized from preferences
const (
	DefaultMinBedrooms  = 2
	DefaultMinBathrooms = 1
)

// SearchParams are the inputs to a property search
type SearchParams struct {
	Location           string   `json:"location"`
	MaxPrice           float64  `json:"maxPrice"`
	MinBedrooms        int      `json:"minBedrooms"`
	MinBathrooms       *int     `json:"minBathrooms,omitempty"`
	MustHaveFeatures   []string `json:"mustHaveFeatures"`
	NiceToHaveFeatures []string `json:"niceToHaveFeatures,omitempty"`
	PropertyType       *string  `json:"propertyType,omitempty"`
	Radius             *float64 `json:"radius,omitempty"`
}

// Validate checks the minimum criteria every backend needs
func (p *SearchParams) Validate() error {
	if p.Location == "" || p.MaxPrice <= 0 {
		return ErrNoSearchCriteria
	}
	return nil
}

// HasPropertyType reports whether a concrete type filter applies
func (p *SearchParams) HasPropertyType() bool {
	return p.PropertyType != nil && *p.PropertyType != "" && *p.PropertyType != PropertyTypeAny
}

// MatchResult is one ranked search candidate
type MatchResult struct {
	Property        Property `json:"property"`
	MatchScore      float64  `json:"matchScore"`
	MatchPercentage int      `json:"matchPercentage"`
	MatchReasons    []string `json:"matchReasons"`
	MissingFeatures []string `json:"missingFeatures"`
}

// EventType discriminates stream events
type EventType string

// Stream event types, in the only order they may appear within a turn
const (
	EventToken        EventType = "token"
	EventResults      EventType = "results"
	EventResultsError EventType = "results_error"
	EventDone         EventType = "done"
)

// Wire values for the discrete result frames
const (
	FramePropertyResults     = "property_results"
	FramePropertySearchError = "property_search_error"
	FrameDone                = "[DONE]"
)

// SearchErrorMessage is the client-facing text of a failed search
const SearchErrorMessage = "Failed to search properties. Please try again."

// StreamEvent is one item on a turn's output channel
type StreamEvent struct {
	Type       EventType     `json:"type"`
	Content    string        `json:"content,omitempty"`
	Properties []MatchResult `json:"properties,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// TokenEvent wraps a generated fragment
func TokenEvent(content string) StreamEvent {
	return StreamEvent{Type: EventToken, Content: content}
}

// ResultsEvent wraps the ranked search results
func ResultsEvent(matches []MatchResult) StreamEvent {
	if matches == nil {
		matches = []MatchResult{}
	}
	return StreamEvent{Type: EventResults, Properties: matches}
}

// ResultsErrorEvent reports a failed search
func ResultsErrorEvent() StreamEvent {
	return StreamEvent{Type: EventResultsError, Error: SearchErrorMessage}
}

// DoneEvent is the terminal marker
func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}

// Frame renders the event as the data payload of one stream frame
func (e StreamEvent) Frame() ([]byte, error) {
	switch e.Type {
	case EventToken:
		return json.Marshal(struct {
			Content string `json:"content"`
		}{e.Content})
	case EventResults:
		props := e.Properties
		if props == nil {
			props = []MatchResult{}
		}
		return json.Marshal(struct {
			Type       string        `json:"type"`
			Properties []MatchResult `json:"properties"`
		}{FramePropertyResults, props})
	case EventResultsError:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Error string `json:"error"`
		}{FramePropertySearchError, e.Error})
	case EventDone:
		return []byte(FrameDone), nil
	default:
		return nil, errors.New("unknown stream event type: " + string(e.Type))
	}
}
