package agent

import (
	"context"
	"strings"

	"couponagent/internal/model"
	"couponagent/internal/utils"

	"go.uber.org/zap"
)

// Response is the controller's reply to one turn
type Response struct {
	Text  string
	State State
	// Matches is set only on the turn that ran the ranker
	Matches []model.RankedMatch
}

// Controller drives one conversation through the dialogue states.
// A Controller is not safe for concurrent use.
type Controller struct {
	catalog   []model.Bundle
	extractor Extractor
	lexicon   *Lexicon
	ranker    *Ranker
	vocab     Vocabulary
	logger    *zap.Logger

	state State
	conv  Conversation
}

// Option configures a Controller
type Option func(*Controller)

// WithLexicon replaces the embedded lexicon
func WithLexicon(lex *Lexicon) Option {
	return func(c *Controller) { c.lexicon = lex }
}

// WithServingTolerance sets the serving gap still marked acceptable
func WithServingTolerance(n int) Option {
	return func(c *Controller) { c.ranker = NewRanker(n) }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// NewController creates a controller over a fixed catalog. The vocabulary is built once here.
func NewController(catalog []model.Bundle, extractor Extractor, opts ...Option) *Controller {
	c := &Controller{
		catalog:   catalog,
		extractor: extractor,
		ranker:    NewRanker(DefaultServingTolerance),
		logger:    zap.NewNop(),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.lexicon == nil {
		c.lexicon = DefaultLexicon()
	}
	c.vocab = BuildVocabulary(catalog, c.lexicon)
	return c
}

// Process handles one user turn and always returns a non-empty reply
func (c *Controller) Process(ctx context.Context, input string) *Response {
	resp := &Response{}
	resp.Text = c.dispatch(ctx, input, resp)
	resp.State = c.state
	return resp
}

// Reset clears the conversation and returns to Idle
func (c *Controller) Reset() {
	c.state = StateIdle
	c.conv = Conversation{}
}

// State returns the current dialogue state
func (c *Controller) State() State {
	return c.state
}

// Conversation returns the live conversation context
func (c *Controller) Conversation() *Conversation {
	return &c.conv
}

// Vocabulary returns the item vocabulary built from the catalog
func (c *Controller) Vocabulary() Vocabulary {
	return c.vocab
}

func (c *Controller) dispatch(ctx context.Context, input string, resp *Response) string {
	switch c.state {
	case StateIdle:
		c.state = StateAskingInfo
		return welcomeMessage(c.vocab)

	case StateAskingInfo:
		return c.handleAskingInfo(ctx, input, resp)

	case StateShowMenu:
		c.state = StateAskingInfo
		return c.handleAskingInfo(ctx, input, resp)

	case StateFiltering:
		c.state = StateResults
		return c.filterAndShow(resp)

	case StateResults:
		if utils.EqualsAnyFold(input, c.lexicon.ResetPhrases) {
			c.logger.Debug("Reset requested from results")
			c.Reset()
			return c.dispatch(ctx, "", resp)
		}
		c.state = StateDone
		return msgClosing

	default:
		return msgFarewell
	}
}

func (c *Controller) handleAskingInfo(ctx context.Context, input string, resp *Response) string {
	extracted, err := c.extract(ctx, input)
	if err != nil {
		c.logger.Warn("Extraction failed", zap.Error(err))
		return msgRetry
	}

	c.conv.Merge(extracted)

	c.logger.Debug("Accumulated facts",
		zap.Any("party_size", c.conv.PartySize),
		zap.Strings("preferences", c.conv.Preferences))

	wantsSearch := utils.ContainsAnyFold(input, c.lexicon.SearchTriggers)

	if wantsSearch && c.conv.ReadyToSearch() {
		c.logger.Debug("Search requested with complete facts, filtering")
		c.state = StateFiltering
		return c.dispatch(ctx, "", resp)
	}

	if extracted.WantsMenu && !wantsSearch {
		c.logger.Debug("Menu requested")
		c.state = StateShowMenu
		return menuMessage(c.vocab)
	}

	return summaryMessage(&c.conv)
}

// extract skips the gateway for blank input
func (c *Controller) extract(ctx context.Context, input string) (*model.ExtractionResult, error) {
	if strings.TrimSpace(input) == "" {
		return &model.ExtractionResult{Preferences: []string{}}, nil
	}
	r, err := c.extractor.Extract(ctx, input)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrExtraction
	}
	return r, nil
}

func (c *Controller) filterAndShow(resp *Response) string {
	partySize := *c.conv.PartySize
	matches := c.ranker.Rank(c.catalog, c.conv.PartySize, c.conv.Preferences)

	c.logger.Debug("Filtered catalog",
		zap.Int("party_size", partySize),
		zap.Strings("preferences", c.conv.Preferences),
		zap.Int("matches", len(matches)))

	c.conv.FilteredResults = matches
	resp.Matches = matches

	if len(matches) == 0 {
		return noResultsMessage(partySize, c.conv.Preferences)
	}
	return resultsMessage(matches, partySize)
}
