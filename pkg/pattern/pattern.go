// Package pattern mines three tiers of recurring structure from
// clustered snippets: n-gram token runs, within-cluster longest common
// subsequences, and regex-derived structural shapes. The tiers share a
// tagged result type and one Mine dispatcher rather than a hierarchy.
package pattern

import (
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"

	"github.com/quarrylabs/quarry/pkg/models"
)

// Config tunes the mining tiers.
type Config struct {
	NGramSize    int
	MinFrequency int
	MinLCSLength int
}

// Mine runs the requested tiers (all three when none are named) over
// the snippet corpus and its clusters, returning patterns in ranked
// order: descending frequency, then language diversity, then snippet
// support.
func Mine(snippets []models.Snippet, clusters []models.Cluster, cfg Config, types ...models.PatternType) []models.Pattern {
	if len(types) == 0 {
		types = []models.PatternType{models.PatternNGram, models.PatternLCS, models.PatternStructural}
	}

	var patterns []models.Pattern
	for _, t := range types {
		switch t {
		case models.PatternNGram:
			patterns = append(patterns, mineNGrams(snippets, cfg)...)
		case models.PatternLCS:
			patterns = append(patterns, mineLCS(snippets, clusters, cfg)...)
		case models.PatternStructural:
			patterns = append(patterns, mineStructural(snippets, cfg)...)
		}
	}

	Rank(patterns)
	return patterns
}

// Rank sorts patterns in place by (frequency desc, language diversity
// desc, snippet count desc), stably so mining order breaks ties.
func Rank(patterns []models.Pattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Frequency != patterns[j].Frequency {
			return patterns[i].Frequency > patterns[j].Frequency
		}
		if len(patterns[i].Languages) != len(patterns[j].Languages) {
			return len(patterns[i].Languages) > len(patterns[j].Languages)
		}
		return len(patterns[i].SnippetIDs) > len(patterns[j].SnippetIDs)
	})
}

// occurrence accumulates the contributing-snippet set of one candidate
// pattern. Snippet ordinals live in a roaring bitmap until emit time.
type occurrence struct {
	snippets *roaring.Bitmap
	langs    map[string]struct{}
	pairFreq int // lcs only: 2 per contributing pair
}

func newOccurrence() *occurrence {
	return &occurrence{snippets: roaring.New(), langs: make(map[string]struct{})}
}

func (o *occurrence) add(ordinal int, lang string) {
	o.snippets.Add(uint32(ordinal))
	o.langs[lang] = struct{}{}
}

// emit materialises a pattern record from an accumulated occurrence.
func (o *occurrence) emit(typ models.PatternType, content string, frequency int, confidence float64, snippets []models.Snippet) models.Pattern {
	ids := make([]string, 0, o.snippets.GetCardinality())
	it := o.snippets.Iterator()
	for it.HasNext() {
		ids = append(ids, snippets[it.Next()].ID)
	}
	langs := make([]string, 0, len(o.langs))
	for lang := range o.langs {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	return models.Pattern{
		ID:         uuid.NewString(),
		Type:       typ,
		Content:    content,
		Frequency:  frequency,
		SnippetIDs: ids,
		Languages:  langs,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	}
}
