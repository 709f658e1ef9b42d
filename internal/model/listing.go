package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Property represents a for-sale listing returned by a search backend
type Property struct {
	ID            string         `json:"id" db:"id"`
	Address       string         `json:"address" db:"address"`
	City          string         `json:"city" db:"city"`
	State         string         `json:"state" db:"state"`
	ZipCode       string         `json:"zipCode" db:"zip_code"`
	Price         float64        `json:"price" db:"price"`
	Bedrooms      int            `json:"bedrooms" db:"bedrooms"`
	Bathrooms     float64        `json:"bathrooms" db:"bathrooms"`
	Sqft          float64        `json:"sqft" db:"sqft"`
	LotSize       *float64       `json:"lotSize,omitempty" db:"lot_size"`
	PropertyType  string         `json:"propertyType" db:"property_type"`
	YearBuilt     *int           `json:"yearBuilt,omitempty" db:"year_built"`
	Features      JSONArray      `json:"features" db:"features"`
	Images        JSONArray      `json:"images" db:"images"`
	DaysOnMarket  int            `json:"daysOnMarket" db:"days_on_market"`
	ListingDate   *time.Time     `json:"listingDate,omitempty" db:"listing_date"`
	Description   *string        `json:"description,omitempty" db:"description"`
	SchoolRatings *SchoolRatings `json:"schoolRatings,omitempty" db:"school_ratings"`
	MLSID         *string        `json:"mlsId,omitempty" db:"mls_id"`
	AgentInfo     *AgentInfo     `json:"agentInfo,omitempty" db:"agent_info"`
}

// UnknownDaysOnMarket marks a listing without a usable list date
const UnknownDaysOnMarket = -1

// SchoolRatings holds nearby school ratings on a 0-10 scale
type SchoolRatings struct {
	Elementary *float64 `json:"elementary,omitempty"`
	Middle     *float64 `json:"middle,omitempty"`
	High       *float64 `json:"high,omitempty"`
}

// Average returns the mean of the three ratings, counting missing ones as zero
func (s *SchoolRatings) Average() float64 {
	var sum float64
	for _, r := range []*float64{s.Elementary, s.Middle, s.High} {
		if r != nil {
			sum += *r
		}
	}
	return sum / 3
}

// Value implements driver.Valuer interface
func (s *SchoolRatings) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface
func (s *SchoolRatings) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// AgentInfo is the listing agent contact
type AgentInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Value implements driver.Valuer interface
func (a *AgentInfo) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner interface
func (a *AgentInfo) Scan(value interface{}) error {
	return scanJSON(value, a)
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return scanJSON(value, j)
}

// JSONMap represents a JSON object field
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return scanJSON(value, j)
}

func scanJSON(value interface{}, target interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, target)
	case string:
		return json.Unmarshal([]byte(v), target)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}
