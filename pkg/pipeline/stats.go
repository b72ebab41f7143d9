package pipeline

import (
	"github.com/quarrylabs/quarry/pkg/models"
	"github.com/quarrylabs/quarry/pkg/store"
)

// Stats aggregates the corpus-wide counters served by the stats view.
func (p *Pipeline) Stats() (*models.CorpusStats, error) {
	stats := &models.CorpusStats{
		LanguageBreakdown: make(map[string]int),
	}

	clusteredSnippets := 0
	if _, err := store.Scan(p.store, store.Snippets, func(s models.Snippet) bool {
		stats.TotalSnippets++
		stats.LanguageBreakdown[s.Language]++
		if s.ClusterID != "" {
			clusteredSnippets++
		}
		return true
	}); err != nil {
		return nil, err
	}

	if _, err := store.Scan(p.store, store.Clusters, func(models.Cluster) bool {
		stats.TotalClusters++
		return true
	}); err != nil {
		return nil, err
	}

	if _, err := store.Scan(p.store, store.Patterns, func(models.Pattern) bool {
		stats.TotalPatterns++
		return true
	}); err != nil {
		return nil, err
	}

	if stats.TotalClusters > 0 {
		stats.AvgClusterSize = float64(clusteredSnippets) / float64(stats.TotalClusters)
	}
	return stats, nil
}
