package model

import (
	"database/sql/driver"
	"encoding/json"
)

// Bundle represents a promotional coupon bundle
type Bundle struct {
	ID          string   `json:"id"`
	Code        string   `json:"code,omitempty"`
	Fcode       string   `json:"fcode,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int      `json:"price"`
	Items       []string `json:"items"`
	Serves      int      `json:"serves"`
	Category    string   `json:"category,omitempty"`
	Img         string   `json:"img,omitempty"`
}

// Filterable reports whether the bundle has any items to match against
func (b Bundle) Filterable() bool {
	return len(b.Items) > 0
}

// DisplayCode returns the code shown to users (code first, then id)
func (b Bundle) DisplayCode() string {
	if b.Code != "" {
		return b.Code
	}
	return b.ID
}

// RawCoupon is a coupon as returned by the upstream coupon API, before LLM parsing
type RawCoupon struct {
	Code     string `json:"code"`
	Fcode    string `json:"fcode"`
	Price    int    `json:"price"`
	ItemsRaw string `json:"items_raw"`
	Category string `json:"category"`
	Img      string `json:"img"`
}

// RankedMatch represents a bundle with its match metadata
type RankedMatch struct {
	Bundle
	MatchedItems      []string `json:"matched_items"`
	MatchScore        int      `json:"match_score"`
	ServingGap        int      `json:"serving_gap"`
	ServingAcceptable bool     `json:"serving_acceptable"`
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), j)
	}
	return json.Unmarshal(bytes, j)
}
