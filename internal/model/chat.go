package model

// MessageRequest represents a user message sent to a conversation
type MessageRequest struct {
	Message string `json:"message"`
}

// TurnResponse represents the agent's reply to one turn
type TurnResponse struct {
	SessionID string        `json:"session_id"`
	State     string        `json:"state"`
	Text      string        `json:"text"`
	Matches   []RankedMatch `json:"matches,omitempty"`
	Took      int64         `json:"took_ms"` // Response time in milliseconds
}

// SessionSnapshot represents the introspection view of a conversation
type SessionSnapshot struct {
	SessionID       string        `json:"session_id"`
	State           string        `json:"state"`
	PartySize       *int          `json:"party_size"`
	Preferences     []string      `json:"preferences"`
	FilteredResults []RankedMatch `json:"filtered_results"`
}

// MenuCategory represents one category of the item vocabulary
type MenuCategory struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Icon  string   `json:"icon"`
	Items []string `json:"items"`
}

// MenuResponse represents the vocabulary listing
type MenuResponse struct {
	Categories []MenuCategory `json:"categories"`
}

// BundleListResponse represents the catalog listing
type BundleListResponse struct {
	Bundles []Bundle `json:"bundles"`
	Total   int      `json:"total"`
}

// FeedbackRequest represents user feedback on a recommended bundle
type FeedbackRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	BundleID  string `json:"bundle_id" binding:"required"`
	Action    string `json:"action" binding:"required"` // click, order, dismiss
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// TurnRecord represents one logged conversation turn
type TurnRecord struct {
	SessionID      string    `json:"session_id" db:"session_id"`
	Input          string    `json:"input" db:"input"`
	Reply          string    `json:"reply" db:"reply"`
	State          string    `json:"state" db:"state"`
	PartySize      *int      `json:"party_size" db:"party_size"`
	Preferences    JSONArray `json:"preferences" db:"preferences"`
	MatchedBundles JSONArray `json:"matched_bundle_ids" db:"matched_bundle_ids"`
	ResponseTimeMs int       `json:"response_time_ms" db:"response_time_ms"`
}
