package cluster

import (
	"sort"

	"github.com/quarrylabs/quarry/pkg/minhash"
	"github.com/quarrylabs/quarry/pkg/models"
)

// Dedup drops exact and near duplicates before clustering. Snippets are
// first sorted by content hash so the kept set does not depend on
// ingest order; an exact hash match drops immediately, otherwise the
// snippet is compared against LSH candidates among the already-kept set
// and dropped when any estimate reaches the threshold. Input snippets
// must carry signatures.
func Dedup(ctx *minhash.Context, snippets []models.Snippet, threshold float64) (kept []models.Snippet, dropped int) {
	ordered := make([]models.Snippet, len(snippets))
	copy(ordered, snippets)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].ContentHash != ordered[j].ContentHash {
			return ordered[i].ContentHash < ordered[j].ContentHash
		}
		return ordered[i].ID < ordered[j].ID
	})

	index := minhash.NewIndex(ctx)
	seenHashes := make(map[string]struct{}, len(ordered))

	for _, snippet := range ordered {
		if _, exact := seenHashes[snippet.ContentHash]; exact {
			dropped++
			continue
		}

		nearDup := false
		for _, ordinal := range index.Candidates(snippet.Signature) {
			if ctx.Estimate(snippet.Signature, kept[ordinal].Signature) >= threshold {
				nearDup = true
				break
			}
		}
		if nearDup {
			dropped++
			continue
		}

		seenHashes[snippet.ContentHash] = struct{}{}
		index.Add(len(kept), snippet.Signature)
		kept = append(kept, snippet)
	}
	return kept, dropped
}
