package pattern

import (
	"strings"

	"github.com/quarrylabs/quarry/pkg/models"
)

// mineNGrams slides a length-n window over every snippet's token
// sequence and emits each ngram observed in at least MinFrequency
// distinct snippets. Frequency is the contributing snippet count and
// confidence divides it by the global snippet population.
func mineNGrams(snippets []models.Snippet, cfg Config) []models.Pattern {
	n := cfg.NGramSize
	counts := make(map[string]*occurrence)
	var order []string

	for ordinal, snippet := range snippets {
		for i := 0; i+n <= len(snippet.Tokens); i++ {
			gram := strings.Join(snippet.Tokens[i:i+n], " ")
			occ, ok := counts[gram]
			if !ok {
				occ = newOccurrence()
				counts[gram] = occ
				order = append(order, gram)
			}
			occ.add(ordinal, snippet.Language)
		}
	}

	population := float64(len(snippets))
	var patterns []models.Pattern
	for _, gram := range order {
		occ := counts[gram]
		freq := int(occ.snippets.GetCardinality())
		if freq < cfg.MinFrequency {
			continue
		}
		patterns = append(patterns, occ.emit(models.PatternNGram, gram, freq, float64(freq)/population, snippets))
	}
	return patterns
}
