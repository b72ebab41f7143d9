// Package cluster turns verified similar pairs into equivalence
// classes: an undirected similarity graph over snippet ordinals, its
// connected components by iterative DFS, and a centroid per component.
// Members of a component are connected through threshold-passing edges
// but are not individually required to pass the threshold with every
// other member.
package cluster

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/quarrylabs/quarry/pkg/minhash"
	"github.com/quarrylabs/quarry/pkg/models"
)

// Edge is a verified similar pair of snippet ordinals.
type Edge struct {
	A          int
	B          int
	Similarity float64
}

// Params tunes component admission.
type Params struct {
	MinClusterSize int
	KeepSingletons bool
}

// VerifyPairs checks each LSH candidate against the full-signature
// Jaccard estimate (not the bucket match) and keeps pairs at or above
// the threshold. Output order follows candidate order.
func VerifyPairs(ctx *minhash.Context, sigs [][]uint32, pairs []minhash.Pair, threshold float64) []Edge {
	edges := make([]Edge, 0, len(pairs))
	for _, p := range pairs {
		sim := ctx.Estimate(sigs[p.A], sigs[p.B])
		if sim >= threshold {
			edges = append(edges, Edge{A: p.A, B: p.B, Similarity: sim})
		}
	}
	return edges
}

// Components enumerates connected components over n nodes by iterative
// DFS. Seeds are visited in ordinal order and neighbours in edge
// insertion order, so component labelling is deterministic: clusters
// are labelled by the order their seed snippet is first visited.
func Components(n int, edges []Edge) [][]int {
	adj := make([][]int, n)
	for _, e := range edges {
		adj[e.A] = append(adj[e.A], e.B)
		adj[e.B] = append(adj[e.B], e.A)
	}

	visited := make([]bool, n)
	var components [][]int
	for seed := 0; seed < n; seed++ {
		if visited[seed] {
			continue
		}
		var component []int
		stack := []int{seed}
		visited[seed] = true
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, node)
			// Push in reverse so neighbours pop in insertion order.
			for i := len(adj[node]) - 1; i >= 0; i-- {
				next := adj[node][i]
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

// Centroid returns the member maximising mean estimated Jaccard to the
// rest of the component, ties broken by first occurrence, plus the mean
// of all pairwise estimates. A singleton is its own centroid with
// similarity 1.0 by convention.
func Centroid(ctx *minhash.Context, members []int, sigs [][]uint32) (centroid int, similarity float64) {
	if len(members) == 1 {
		return members[0], 1.0
	}

	centroid = members[0]
	bestMean := -1.0
	var pairwise []float64
	for i, a := range members {
		means := make([]float64, 0, len(members)-1)
		for j, b := range members {
			if i == j {
				continue
			}
			sim := ctx.Estimate(sigs[a], sigs[b])
			means = append(means, sim)
			if i < j {
				pairwise = append(pairwise, sim)
			}
		}
		if m := stat.Mean(means, nil); m > bestMean {
			bestMean = m
			centroid = a
		}
	}
	return centroid, stat.Mean(pairwise, nil)
}

// Build assembles cluster records from components, dropping components
// below the minimum size (singletons optionally kept). Snippet order
// within a cluster follows DFS visit order.
func Build(ctx *minhash.Context, components [][]int, snippets []models.Snippet, sigs [][]uint32, params Params) []models.Cluster {
	minSize := params.MinClusterSize
	if params.KeepSingletons && minSize > 1 {
		minSize = 1
	}

	var clusters []models.Cluster
	for _, component := range components {
		if len(component) < minSize {
			continue
		}
		centroid, similarity := Centroid(ctx, component, sigs)

		ids := make([]string, len(component))
		langSet := make(map[string]struct{})
		for i, ordinal := range component {
			ids[i] = snippets[ordinal].ID
			langSet[snippets[ordinal].Language] = struct{}{}
		}
		languages := make([]string, 0, len(langSet))
		for lang := range langSet {
			languages = append(languages, lang)
		}
		sort.Strings(languages)

		clusters = append(clusters, models.Cluster{
			ID:         uuid.NewString(),
			SnippetIDs: ids,
			CentroidID: snippets[centroid].ID,
			Similarity: similarity,
			Languages:  languages,
			CreatedAt:  time.Now().UTC(),
		})
	}
	return clusters
}
