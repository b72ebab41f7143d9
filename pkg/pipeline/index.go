package pipeline

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/quarrylabs/quarry/internal/fileproc"
	"github.com/quarrylabs/quarry/pkg/cluster"
	"github.com/quarrylabs/quarry/pkg/minhash"
	"github.com/quarrylabs/quarry/pkg/models"
	quarrystats "github.com/quarrylabs/quarry/pkg/stats"
	"github.com/quarrylabs/quarry/pkg/store"
)

// IndexOptions tunes one index run. Zero bands/rows fall back to the
// configured values.
type IndexOptions struct {
	Bands       int
	RowsPerBand int
	OnProgress  func()
	// OnWarn receives non-fatal notices (malformed records skipped).
	OnWarn func(format string, args ...any)
}

// Index reads the snippet log, computes signatures, de-duplicates,
// clusters via banded LSH and the similarity graph, then rewrites the
// snippet log with signatures and cluster ids attached and replaces the
// cluster log wholesale. There is no cross-log transaction: the rewrite
// is clear snippets, write all, clear clusters, write all.
func (p *Pipeline) Index(opts IndexOptions) (*models.IndexStats, error) {
	snippets, skipped, err := store.ScanAll[models.Snippet](p.store, store.Snippets)
	if err != nil {
		return nil, err
	}
	if skipped > 0 && opts.OnWarn != nil {
		opts.OnWarn("skipped %d malformed snippet records", skipped)
	}
	if len(snippets) == 0 {
		return nil, fmt.Errorf("%w: index requires ingested snippets", ErrEmptyDataset)
	}

	bands := opts.Bands
	if bands <= 0 {
		bands = p.cfg.Index.Bands
	}
	rows := opts.RowsPerBand
	if rows <= 0 {
		rows = p.cfg.Index.RowsPerBand
	}

	ctx := minhash.NewContext(bands, rows, p.cfg.Index.ShingleSize, p.cfg.Index.Seed)

	// Signature generation is embarrassingly parallel over snippets;
	// the fan-out never fails per item.
	sigs, _ := fileproc.MapOrdered(snippets, 0,
		func(s models.Snippet) string { return s.FilePath },
		func(_ int, s models.Snippet) ([]uint32, error) {
			return ctx.Signature(s.Tokens), nil
		},
		opts.OnProgress, nil)
	for i := range snippets {
		snippets[i].Signature = sigs[i]
	}

	stats := &models.IndexStats{
		TotalSnippets: len(snippets),
		Bands:         bands,
		RowsPerBand:   rows,
		IndexedAt:     time.Now().UTC(),
	}

	kept := snippets
	if p.cfg.Index.Dedup {
		kept, stats.DroppedDuplicates = cluster.Dedup(ctx, snippets, p.cfg.Index.SimilarityThreshold)
	}
	stats.KeptSnippets = len(kept)

	index := minhash.NewIndex(ctx)
	keptSigs := make([][]uint32, len(kept))
	for i, s := range kept {
		keptSigs[i] = s.Signature
		index.Add(i, s.Signature)
	}

	pairs := index.CandidatePairs()
	stats.CandidatePairs = len(pairs)

	edges := cluster.VerifyPairs(ctx, keptSigs, pairs, p.cfg.Index.ClusterThreshold)
	stats.VerifiedPairs = len(edges)
	if len(edges) > 0 {
		sims := make([]float64, len(edges))
		for i, e := range edges {
			sims[i] = e.Similarity
		}
		sort.Float64s(sims)
		stats.P50Similarity = quarrystats.Percentile(sims, 50)
		stats.P95Similarity = quarrystats.Percentile(sims, 95)
	}

	components := cluster.Components(len(kept), edges)
	clusters := cluster.Build(ctx, components, kept, keptSigs, cluster.Params{
		MinClusterSize: p.cfg.Index.MinClusterSize,
	})
	stats.TotalClusters = len(clusters)

	// Attach cluster ids before the rewrite.
	byID := make(map[string]string)
	similarities := make([]float64, 0, len(clusters))
	for _, cl := range clusters {
		similarities = append(similarities, cl.Similarity)
		for _, id := range cl.SnippetIDs {
			byID[id] = cl.ID
		}
	}
	if len(similarities) > 0 {
		stats.MeanSimilarity = stat.Mean(similarities, nil)
	}

	if err := p.store.Clear(store.Snippets); err != nil {
		return nil, err
	}
	for i := range kept {
		kept[i].ClusterID = byID[kept[i].ID]
		if err := p.store.Append(store.Snippets, kept[i]); err != nil {
			return nil, err
		}
	}

	if err := p.store.Clear(store.Clusters); err != nil {
		return nil, err
	}
	for _, cl := range clusters {
		if err := p.store.Append(store.Clusters, cl); err != nil {
			return nil, err
		}
	}

	if err := p.writeConfigSidecar(bands, rows); err != nil {
		return nil, err
	}
	if err := p.store.WriteSidecar(sidecarIndexStats, stats); err != nil {
		return nil, err
	}
	return stats, nil
}
