package model

import (
	"fmt"
	"strings"
)

// Property type values recognised in preferences
const (
	PropertyTypeSingleFamily = "single-family"
	PropertyTypeCondo        = "condo"
	PropertyTypeTownhouse    = "townhouse"
	PropertyTypeMultiFamily  = "multi-family"
	PropertyTypeAny          = "any"
)

// PreferenceState is the accumulated search intent of one session.
// Scalar fields are nil until some extraction sets them.
type PreferenceState struct {
	Location           *string  `json:"location,omitempty"`
	MaxPrice           *float64 `json:"maxPrice,omitempty"`
	MinBedrooms        *int     `json:"minBedrooms,omitempty"`
	MinBathrooms       *int     `json:"minBathrooms,omitempty"`
	PropertyType       *string  `json:"propertyType,omitempty"`
	MustHaveFeatures   []string `json:"mustHaveFeatures,omitempty"`
	NiceToHaveFeatures []string `json:"niceToHaveFeatures,omitempty"`
	Timeline           *string  `json:"timeline,omitempty"`
	IsFirstTimeBuyer   *bool    `json:"isFirstTimeBuyer,omitempty"`
	CurrentSituation   *string  `json:"currentSituation,omitempty"`
}

// CanSearch reports whether location and budget are both known
func (p PreferenceState) CanSearch() bool {
	return p.HasLocation() && p.HasBudget()
}

// HasLocation reports whether a non-empty location is set
func (p PreferenceState) HasLocation() bool {
	return p.Location != nil && strings.TrimSpace(*p.Location) != ""
}

// HasBudget reports whether a positive max price is set
func (p PreferenceState) HasBudget() bool {
	return p.MaxPrice != nil && *p.MaxPrice > 0
}

// MissingCriticalFields lists what is still needed before a search can run
func (p PreferenceState) MissingCriticalFields() []string {
	missing := []string{}
	if !p.HasLocation() {
		missing = append(missing, "location")
	}
	if !p.HasBudget() {
		missing = append(missing, "budget")
	}
	return missing
}

// IsEmpty reports whether nothing has been collected yet
func (p PreferenceState) IsEmpty() bool {
	return p.Location == nil && p.MaxPrice == nil && p.MinBedrooms == nil &&
		p.MinBathrooms == nil && p.PropertyType == nil &&
		len(p.MustHaveFeatures) == 0 && len(p.NiceToHaveFeatures) == 0 &&
		p.Timeline == nil && p.IsFirstTimeBuyer == nil && p.CurrentSituation == nil
}

// Clone returns a deep copy
func (p PreferenceState) Clone() PreferenceState {
	out := p
	if p.Location != nil {
		out.Location = StringPtr(*p.Location)
	}
	if p.MaxPrice != nil {
		v := *p.MaxPrice
		out.MaxPrice = &v
	}
	if p.MinBedrooms != nil {
		out.MinBedrooms = IntPtr(*p.MinBedrooms)
	}
	if p.MinBathrooms != nil {
		out.MinBathrooms = IntPtr(*p.MinBathrooms)
	}
	if p.PropertyType != nil {
		out.PropertyType = StringPtr(*p.PropertyType)
	}
	if p.Timeline != nil {
		out.Timeline = StringPtr(*p.Timeline)
	}
	if p.IsFirstTimeBuyer != nil {
		v := *p.IsFirstTimeBuyer
		out.IsFirstTimeBuyer = &v
	}
	if p.CurrentSituation != nil {
		out.CurrentSituation = StringPtr(*p.CurrentSituation)
	}
	out.MustHaveFeatures = append([]string(nil), p.MustHaveFeatures...)
	out.NiceToHaveFeatures = append([]string(nil), p.NiceToHaveFeatures...)
	return out
}

// Summary renders a compact one-line description for logs
func (p PreferenceState) Summary() string {
	parts := []string{}
	if p.Location != nil {
		parts = append(parts, "location="+*p.Location)
	}
	if p.MaxPrice != nil {
		parts = append(parts, "maxPrice="+FormatMoney(*p.MaxPrice))
	}
	if p.MinBedrooms != nil {
		parts = append(parts, fmt.Sprintf("beds=%d+", *p.MinBedrooms))
	}
	if p.MinBathrooms != nil {
		parts = append(parts, fmt.Sprintf("baths=%d+", *p.MinBathrooms))
	}
	if p.PropertyType != nil {
		parts = append(parts, "type="+*p.PropertyType)
	}
	if len(p.MustHaveFeatures) > 0 {
		parts = append(parts, "features="+strings.Join(p.MustHaveFeatures, ","))
	}
	return strings.Join(parts, " | ")
}

// ContactInfo holds contact details volunteered in conversation
type ContactInfo struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	FullName  string `json:"fullName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// HasAny reports whether any way to reach or name the person is known
func (c ContactInfo) HasAny() bool {
	return c.Email != "" || c.Phone != "" || c.FullName != "" || c.FirstName != "" || c.LastName != ""
}

// SplitName resolves first, last and display names.
// Separate first/last win over fullName; with nothing known the display name is "Unknown".
func (c ContactInfo) SplitName() (first, last, full string) {
	if c.FirstName != "" || c.LastName != "" {
		full = strings.TrimSpace(strings.Join([]string{c.FirstName, c.LastName}, " "))
		if full == "" {
			full = "Unknown"
		}
		return c.FirstName, c.LastName, full
	}

	if c.FullName != "" {
		parts := strings.Fields(c.FullName)
		switch len(parts) {
		case 0:
		case 1:
			return parts[0], "", parts[0]
		case 2:
			return parts[0], parts[1], c.FullName
		default:
			return parts[0], strings.Join(parts[1:], " "), c.FullName
		}
	}

	return "", "", "Unknown"
}

// ExtractionResult is the structured delta read from one inbound message
type ExtractionResult struct {
	Fields      []string        `json:"fields"`
	Confidence  float64         `json:"confidence"`
	Delta       PreferenceState `json:"delta"`
	ContactInfo ContactInfo     `json:"contactInfo"`
	Source      string          `json:"source"`
}

// Extraction sources
const (
	ExtractionSourceAI       = "ai"
	ExtractionSourceFallback = "fallback"
)

// StringPtr returns a pointer to s
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to v
func IntPtr(v int) *int { return &v }

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 { return &v }

// FormatMoney renders a dollar amount with thousands separators, e.g. $400,000
func FormatMoney(v float64) string {
	n := int64(v + 0.5)
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}
