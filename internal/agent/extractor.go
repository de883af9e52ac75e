package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"couponagent/internal/model"
	"couponagent/internal/utils"

	"go.uber.org/zap"
)

// ErrExtraction is returned when a user message could not be turned into an ExtractionResult
var ErrExtraction = errors.New("extraction failed")

// extractionMarker is the field that identifies an extraction object in model output
const extractionMarker = "num_people"

// Extractor turns one user message into structured intent
type Extractor interface {
	Extract(ctx context.Context, text string) (*model.ExtractionResult, error)
}

// Generator is the text-generation capability used by LLMExtractor
type Generator interface {
	Generate(ctx context.Context, prompt string, opts model.GenerateOptions) (string, error)
	Name() string
}

// LLMExtractor extracts intent with a single text-generation call per message
type LLMExtractor struct {
	gen     Generator
	lexicon *Lexicon
	opts    model.GenerateOptions
	logger  *zap.Logger
}

var _ Extractor = (*LLMExtractor)(nil)

// NewLLMExtractor creates a new extractor
func NewLLMExtractor(gen Generator, lexicon *Lexicon, opts model.GenerateOptions, logger *zap.Logger) *LLMExtractor {
	return &LLMExtractor{
		gen:     gen,
		lexicon: lexicon,
		opts:    opts,
		logger:  logger,
	}
}

// rawExtraction mirrors the model output before normalization
type rawExtraction struct {
	NumPeople   any `json:"num_people"`
	Preferences any `json:"preferences"`
	WantMenu    any `json:"want_menu"`
}

// Extract calls the generator once and parses its reply.
// Every failure wraps ErrExtraction.
func (e *LLMExtractor) Extract(ctx context.Context, text string) (*model.ExtractionResult, error) {
	prompt := e.lexicon.ExtractionPromptFor(text)

	e.logger.Debug("Calling LLM to extract intent", zap.String("generator", e.gen.Name()))

	reply, err := e.gen.Generate(ctx, prompt, e.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	var raw rawExtraction
	if err := utils.ParseMarkedJSON(reply, extractionMarker, &raw); err != nil {
		e.logger.Debug("Unparsable extraction reply", zap.String("reply", reply), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	result := &model.ExtractionResult{
		PartySize:   normalizePartySize(raw.NumPeople),
		Preferences: normalizePreferences(raw.Preferences),
		WantsMenu:   normalizeBool(raw.WantMenu),
	}

	e.logger.Debug("LLM extraction result",
		zap.Any("party_size", result.PartySize),
		zap.Strings("preferences", result.Preferences),
		zap.Bool("wants_menu", result.WantsMenu))

	return result, nil
}

// normalizePartySize keeps positive whole numbers, given as numbers or numeric strings
func normalizePartySize(v any) *int {
	var n int
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt32 {
			return nil
		}
		n = int(x)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	if n <= 0 {
		return nil
	}
	return &n
}

// normalizePreferences returns trimmed, deduplicated string preferences; never nil
func normalizePreferences(v any) []string {
	var values []string
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
	case string:
		values = append(values, x)
	}
	return utils.UniqueStrings(values)
}

func normalizeBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	}
	return false
}
