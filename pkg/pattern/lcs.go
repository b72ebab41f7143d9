package pattern

import (
	"strings"

	"github.com/quarrylabs/quarry/pkg/models"
)

// lcsConfidence is the conventional confidence for LCS patterns.
const lcsConfidence = 0.8

// mineLCS computes the longest common token subsequence for every pair
// of snippets within each cluster (quadratic in cluster size, never
// global) and emits subsequences of at least MinLCSLength tokens.
// Identical content reached from different pairs is coalesced: each
// contributing pair adds 2 to the frequency and both members to the
// snippet set.
func mineLCS(snippets []models.Snippet, clusters []models.Cluster, cfg Config) []models.Pattern {
	ordinals := make(map[string]int, len(snippets))
	for i, s := range snippets {
		ordinals[s.ID] = i
	}

	counts := make(map[string]*occurrence)
	var order []string

	for _, cl := range clusters {
		for i := 0; i < len(cl.SnippetIDs); i++ {
			a, okA := ordinals[cl.SnippetIDs[i]]
			if !okA {
				continue
			}
			for j := i + 1; j < len(cl.SnippetIDs); j++ {
				b, okB := ordinals[cl.SnippetIDs[j]]
				if !okB {
					continue
				}
				seq := LCS(snippets[a].Tokens, snippets[b].Tokens)
				if len(seq) < cfg.MinLCSLength {
					continue
				}
				content := strings.Join(seq, " ")
				occ, ok := counts[content]
				if !ok {
					occ = newOccurrence()
					counts[content] = occ
					order = append(order, content)
				}
				occ.add(a, snippets[a].Language)
				occ.add(b, snippets[b].Language)
				occ.pairFreq += 2
			}
		}
	}

	var patterns []models.Pattern
	for _, content := range order {
		occ := counts[content]
		patterns = append(patterns, occ.emit(models.PatternLCS, content, occ.pairFreq, lcsConfidence, snippets))
	}
	return patterns
}

// LCS returns the longest common subsequence of two token sequences
// using the standard O(m·n) dynamic-programming table with backtrack.
func LCS(a, b []string) []string {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return nil
	}

	table := make([][]int, m+1)
	for i := range table {
		table[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else if table[i-1][j] >= table[i][j-1] {
				table[i][j] = table[i-1][j]
			} else {
				table[i][j] = table[i][j-1]
			}
		}
	}

	seq := make([]string, table[m][n])
	for i, j, k := m, n, table[m][n]; i > 0 && j > 0; {
		switch {
		case a[i-1] == b[j-1]:
			k--
			seq[k] = a[i-1]
			i--
			j--
		case table[i-1][j] >= table[i][j-1]:
			i--
		default:
			j--
		}
	}
	return seq
}
