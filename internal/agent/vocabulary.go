package agent

import (
	"regexp"
	"sort"
	"strings"

	"couponagent/internal/model"
)

var (
	quantitySuffixRe = regexp.MustCompile(`[xX×]\d+$`)
	parentheticalRe  = regexp.MustCompile(`\(.*?\)|（.*?）`)
	pieceCountRe     = regexp.MustCompile(`\d+塊`)
	leadingDigitsRe  = regexp.MustCompile(`^\d+`)
	artifactReplacer = strings.NewReplacer("?", "", "\ufffd", "")
)

// CleanItemLabel strips quantity and packaging decorations from a raw item label.
// An empty result means the label carries no orderable item.
func CleanItemLabel(raw string) string {
	s := quantitySuffixRe.ReplaceAllString(raw, "")
	s = parentheticalRe.ReplaceAllString(s, "")
	s = pieceCountRe.ReplaceAllString(s, "")
	s = leadingDigitsRe.ReplaceAllString(s, "")
	s = artifactReplacer.Replace(s)
	return strings.TrimSpace(s)
}

// VocabularyCategory is one category of cleaned item labels
type VocabularyCategory struct {
	Key   string
	Label string
	Icon  string
	Items []string
}

// Vocabulary is the categorized set of orderable items across the catalog
type Vocabulary struct {
	categories []VocabularyCategory
}

// BuildVocabulary derives the categorized item vocabulary from the catalog.
// Bundles without items contribute nothing. Items are sorted and deduplicated per category.
func BuildVocabulary(catalog []model.Bundle, lex *Lexicon) Vocabulary {
	byKey := make(map[string]map[string]struct{}, len(lex.Categories))
	for _, c := range lex.Categories {
		byKey[c.Key] = make(map[string]struct{})
	}

	for _, b := range catalog {
		if !b.Filterable() {
			continue
		}
		for _, raw := range b.Items {
			label := CleanItemLabel(raw)
			if label == "" {
				continue
			}
			byKey[lex.Categorize(label)][label] = struct{}{}
		}
	}

	v := Vocabulary{categories: make([]VocabularyCategory, 0, len(lex.Categories))}
	for _, c := range lex.Categories {
		items := make([]string, 0, len(byKey[c.Key]))
		for label := range byKey[c.Key] {
			items = append(items, label)
		}
		sort.Strings(items)
		v.categories = append(v.categories, VocabularyCategory{
			Key:   c.Key,
			Label: c.Label,
			Icon:  c.Icon,
			Items: items,
		})
	}
	return v
}

// Categories returns the non-empty categories in display order
func (v Vocabulary) Categories() []VocabularyCategory {
	out := make([]VocabularyCategory, 0, len(v.categories))
	for _, c := range v.categories {
		if len(c.Items) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Items returns the labels of one category
func (v Vocabulary) Items(key string) []string {
	for _, c := range v.categories {
		if c.Key == key {
			return c.Items
		}
	}
	return nil
}

// Len returns the total number of labels
func (v Vocabulary) Len() int {
	n := 0
	for _, c := range v.categories {
		n += len(c.Items)
	}
	return n
}
