package agent

import (
	"couponagent/internal/model"
	"couponagent/internal/utils"
)

// Conversation holds the facts accumulated over one conversation
type Conversation struct {
	PartySize       *int
	Preferences     []string // set semantics, first-seen order
	FilteredResults []model.RankedMatch
}

// Merge folds an extraction into the conversation.
// A present party size overwrites; preferences are union-merged.
func (c *Conversation) Merge(r *model.ExtractionResult) {
	if r == nil {
		return
	}
	if r.PartySize != nil {
		n := *r.PartySize
		c.PartySize = &n
	}
	if len(r.Preferences) > 0 {
		c.Preferences = utils.UniqueStrings(append(append([]string{}, c.Preferences...), r.Preferences...))
	}
}

// ReadyToSearch reports whether both party size and a preference are known
func (c *Conversation) ReadyToSearch() bool {
	return c.PartySize != nil && len(c.Preferences) > 0
}

// Clone returns a deep copy for read-only inspection
func (c *Conversation) Clone() Conversation {
	out := Conversation{
		Preferences:     append([]string{}, c.Preferences...),
		FilteredResults: append([]model.RankedMatch{}, c.FilteredResults...),
	}
	if c.PartySize != nil {
		n := *c.PartySize
		out.PartySize = &n
	}
	return out
}
