package model

import "time"

// ExtractionResult represents the structured intent extracted from one user turn.
// A nil *ExtractionResult means extraction failed; an empty one means nothing was said.
type ExtractionResult struct {
	PartySize   *int     `json:"num_people"`  // 用餐人數，nil 表示本輪未提及
	Preferences []string `json:"preferences"` // 已標準化的食物偏好
	WantsMenu   bool     `json:"want_menu"`   // 是否想看菜單
}

// GenerateOptions holds per-call text-generation parameters
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}
