package agent

import (
	"sort"

	"couponagent/internal/model"
	"couponagent/internal/utils"
)

// DefaultServingTolerance is the serving gap still considered a good fit
const DefaultServingTolerance = 1

// Ranker scores catalog bundles against the party size and preferences
type Ranker struct {
	tolerance int
}

// NewRanker creates a new ranker. A negative tolerance falls back to the default.
func NewRanker(tolerance int) *Ranker {
	if tolerance < 0 {
		tolerance = DefaultServingTolerance
	}
	return &Ranker{tolerance: tolerance}
}

// Rank returns the bundles matching at least one preference, ordered by
// match score (desc), serving gap (asc) and price (asc). Callers must supply
// a party size and at least one preference.
func (r *Ranker) Rank(catalog []model.Bundle, partySize *int, preferences []string) []model.RankedMatch {
	if partySize == nil {
		panic("agent: Rank called without a party size")
	}
	if len(preferences) == 0 {
		panic("agent: Rank called without preferences")
	}

	results := make([]model.RankedMatch, 0, len(catalog))
	for _, b := range catalog {
		match := r.score(b, *partySize, preferences)
		if match.MatchScore == 0 {
			continue
		}
		results = append(results, match)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if a.ServingGap != b.ServingGap {
			return a.ServingGap < b.ServingGap
		}
		return a.Price < b.Price
	})

	return results
}

// score computes match metadata for a single bundle
func (r *Ranker) score(b model.Bundle, partySize int, preferences []string) model.RankedMatch {
	matchedPrefs := make(map[string]struct{}, len(preferences))
	matchedItems := make([]string, 0, len(b.Items))
	seenItems := make(map[string]struct{}, len(b.Items))

	for _, item := range b.Items {
		for _, pref := range preferences {
			if !utils.ContainsEither(pref, item) {
				continue
			}
			matchedPrefs[pref] = struct{}{}
			if _, ok := seenItems[item]; !ok {
				seenItems[item] = struct{}{}
				matchedItems = append(matchedItems, item)
			}
		}
	}

	gap := b.Serves - partySize
	if gap < 0 {
		gap = -gap
	}

	return model.RankedMatch{
		Bundle:            b,
		MatchedItems:      matchedItems,
		MatchScore:        len(matchedPrefs),
		ServingGap:        gap,
		ServingAcceptable: gap <= r.tolerance,
	}
}
