package agent

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// userInputPlaceholder is replaced by the user's text in the extraction prompt
const userInputPlaceholder = "{user_input}"

// CategorySpec describes one vocabulary category
type CategorySpec struct {
	Key      string   `yaml:"key"`
	Label    string   `yaml:"label"`
	Icon     string   `yaml:"icon"`
	Keywords []string `yaml:"keywords"`
}

// Lexicon holds the static domain configuration of the dialogue
type Lexicon struct {
	SearchTriggers   []string       `yaml:"search_triggers"`
	ResetPhrases     []string       `yaml:"reset_phrases"`
	Categories       []CategorySpec `yaml:"categories"`
	MatchOrder       []string       `yaml:"match_order"`
	FallbackCategory string         `yaml:"fallback_category"`
	ExtractionPrompt string         `yaml:"extraction_prompt"`
}

// DefaultLexicon returns the embedded lexicon. It panics if the embedded file is invalid.
func DefaultLexicon() *Lexicon {
	lex, err := ParseLexicon(defaultLexiconYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon: %v", err))
	}
	return lex
}

// ParseLexicon decodes and validates a lexicon document
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("failed to decode lexicon: %w", err)
	}
	if err := lex.validate(); err != nil {
		return nil, err
	}
	return &lex, nil
}

func (l *Lexicon) validate() error {
	if len(l.SearchTriggers) == 0 {
		return fmt.Errorf("lexicon has no search triggers")
	}
	if !strings.Contains(l.ExtractionPrompt, userInputPlaceholder) {
		return fmt.Errorf("extraction prompt lacks %s placeholder", userInputPlaceholder)
	}
	if l.category(l.FallbackCategory) == nil {
		return fmt.Errorf("fallback category %q is not declared", l.FallbackCategory)
	}
	for _, key := range l.MatchOrder {
		if l.category(key) == nil {
			return fmt.Errorf("match order names unknown category %q", key)
		}
	}
	return nil
}

func (l *Lexicon) category(key string) *CategorySpec {
	for i := range l.Categories {
		if l.Categories[i].Key == key {
			return &l.Categories[i]
		}
	}
	return nil
}

// Categorize returns the category key for a cleaned item label.
// Categories are tested in match order; the first keyword hit wins.
// Matching is case-sensitive.
func (l *Lexicon) Categorize(label string) string {
	for _, key := range l.MatchOrder {
		for _, kw := range l.category(key).Keywords {
			if strings.Contains(label, kw) {
				return key
			}
		}
	}
	return l.FallbackCategory
}

// ExtractionPromptFor renders the extraction prompt for one user message
func (l *Lexicon) ExtractionPromptFor(userInput string) string {
	return strings.ReplaceAll(l.ExtractionPrompt, userInputPlaceholder, userInput)
}
