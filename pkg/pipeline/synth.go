package pipeline

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/quarrylabs/quarry/pkg/models"
	"github.com/quarrylabs/quarry/pkg/pattern"
	"github.com/quarrylabs/quarry/pkg/store"
)

// SynthOptions tunes one synthesis run. An empty Types slice mines all
// three tiers; a zero MinFrequency falls back to the configured value.
type SynthOptions struct {
	Types        []models.PatternType
	MinFrequency int
	OnWarn       func(format string, args ...any)
}

// Synthesize reads snippets and clusters, mines the requested pattern
// tiers, and replaces the pattern log with the ranked result. It
// requires an indexed corpus: the index stage's stats sidecar is the
// marker that clustering ran, since a legitimately cluster-free corpus
// leaves an empty cluster log.
func (p *Pipeline) Synthesize(opts SynthOptions) (*models.SynthesisStats, error) {
	var indexStats models.IndexStats
	if err := p.store.ReadSidecar(sidecarIndexStats, &indexStats); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: synth requires an indexed corpus", ErrEmptyDataset)
		}
		return nil, err
	}

	snippets, skippedSnippets, err := store.ScanAll[models.Snippet](p.store, store.Snippets)
	if err != nil {
		return nil, err
	}
	if len(snippets) == 0 {
		return nil, fmt.Errorf("%w: synth requires ingested snippets", ErrEmptyDataset)
	}
	clusters, skippedClusters, err := store.ScanAll[models.Cluster](p.store, store.Clusters)
	if err != nil {
		return nil, err
	}
	if opts.OnWarn != nil && skippedSnippets+skippedClusters > 0 {
		opts.OnWarn("skipped %d malformed records", skippedSnippets+skippedClusters)
	}

	minFreq := opts.MinFrequency
	if minFreq <= 0 {
		minFreq = p.cfg.Synthesis.MinFrequency
	}

	patterns := pattern.Mine(snippets, clusters, pattern.Config{
		NGramSize:    p.cfg.Synthesis.NGramSize,
		MinFrequency: minFreq,
		MinLCSLength: p.cfg.Synthesis.MinLCSLength,
	}, opts.Types...)

	if err := p.store.Clear(store.Patterns); err != nil {
		return nil, err
	}
	stats := &models.SynthesisStats{
		TotalPatterns: len(patterns),
		ByType:        make(map[string]int),
		MinFrequency:  minFreq,
		SynthesisedAt: time.Now().UTC(),
	}
	for _, pat := range patterns {
		if err := p.store.Append(store.Patterns, pat); err != nil {
			return nil, err
		}
		stats.ByType[pat.Type.String()]++
	}

	if err := p.store.WriteSidecar(sidecarSynthesisStats, stats); err != nil {
		return nil, err
	}
	return stats, nil
}
