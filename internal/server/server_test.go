package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry/pkg/models"
	"github.com/quarrylabs/quarry/pkg/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	snippets := []models.Snippet{
		{ID: "s1", Content: "function alpha() { return 1 }", Language: "javascript",
			FilePath: "a.js", StartLine: 1, EndLine: 3, ContentHash: "h1",
			Tokens: []string{"function", "alpha", "return"}, ClusterID: "c1", CreatedAt: created},
		{ID: "s2", Content: "function beta() { return 1 }", Language: "javascript",
			FilePath: "b.js", StartLine: 1, EndLine: 3, ContentHash: "h2",
			Tokens: []string{"function", "beta", "return"}, ClusterID: "c1", CreatedAt: created},
		{ID: "s3", Content: "def gamma(): pass", Language: "python",
			FilePath: "c.py", StartLine: 1, EndLine: 1, ContentHash: "h3",
			Tokens: []string{"def", "gamma", "pass"}, CreatedAt: created},
	}
	for _, s := range snippets {
		require.NoError(t, st.Append(store.Snippets, s))
	}

	require.NoError(t, st.Append(store.Clusters, models.Cluster{
		ID: "c1", SnippetIDs: []string{"s1", "s2"}, CentroidID: "s1",
		Similarity: 0.92, Languages: []string{"javascript"}, CreatedAt: created,
	}))

	patterns := []models.Pattern{
		{ID: "p1", Type: models.PatternNGram, Content: "function alpha return",
			Frequency: 4, SnippetIDs: []string{"s1", "s2"}, Languages: []string{"javascript"}, Confidence: 0.5},
		{ID: "p2", Type: models.PatternLCS, Content: "function return",
			Frequency: 2, SnippetIDs: []string{"s1", "s2"}, Languages: []string{"javascript"}, Confidence: 0.8},
		{ID: "p3", Type: models.PatternStructural, Content: "def ID(CONDITION)",
			Frequency: 9, SnippetIDs: []string{"s3"}, Languages: []string{"python"}, Confidence: 0.9},
	}
	for _, p := range patterns {
		require.NoError(t, st.Append(store.Patterns, p))
	}
	return st
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStatsEndpoint(t *testing.T) {
	router := New(seededStore(t)).Router()
	w := get(t, router, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.CorpusStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalSnippets)
	assert.Equal(t, 1, stats.TotalClusters)
	assert.Equal(t, 3, stats.TotalPatterns)
	assert.Equal(t, 2, stats.LanguageBreakdown["javascript"])
	assert.Equal(t, 1, stats.LanguageBreakdown["python"])
	assert.Equal(t, 2.0, stats.AvgClusterSize)
}

func TestClustersEndpoint(t *testing.T) {
	router := New(seededStore(t)).Router()
	w := get(t, router, "/api/clusters")
	require.Equal(t, http.StatusOK, w.Code)

	var views []models.ClusterView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)

	view := views[0]
	assert.Equal(t, "c1", view.Cluster.ID)
	assert.Len(t, view.Snippets, 2)
	assert.NotEmpty(t, view.Preview)
	// Only patterns contributed to by members appear.
	for _, p := range view.Patterns {
		assert.NotEqual(t, "p3", p.ID)
	}
	assert.Len(t, view.Patterns, 2)
}

func TestClusterByID(t *testing.T) {
	router := New(seededStore(t)).Router()

	w := get(t, router, "/api/clusters/c1")
	require.Equal(t, http.StatusOK, w.Code)
	var view models.ClusterView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "c1", view.Cluster.ID)

	w = get(t, router, "/api/clusters/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSnippetByID(t *testing.T) {
	router := New(seededStore(t)).Router()

	w := get(t, router, "/api/snippets/s2")
	require.Equal(t, http.StatusOK, w.Code)
	var snippet models.Snippet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snippet))
	assert.Equal(t, "s2", snippet.ID)
	assert.Equal(t, "b.js", snippet.FilePath)

	w = get(t, router, "/api/snippets/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatternsSortedAndFiltered(t *testing.T) {
	router := New(seededStore(t)).Router()

	w := get(t, router, "/api/patterns")
	require.Equal(t, http.StatusOK, w.Code)
	var patterns []models.Pattern
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &patterns))
	require.Len(t, patterns, 3)
	// Sorted by frequency × confidence: p3 (8.1), p1 (2.0), p2 (1.6).
	assert.Equal(t, "p3", patterns[0].ID)
	assert.Equal(t, "p1", patterns[1].ID)
	assert.Equal(t, "p2", patterns[2].ID)

	w = get(t, router, "/api/patterns?type=ngram")
	require.Equal(t, http.StatusOK, w.Code)
	patterns = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &patterns))
	require.Len(t, patterns, 1)
	assert.Equal(t, "p1", patterns[0].ID)
}

func TestPatternsCap(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	for i := 0; i < 150; i++ {
		require.NoError(t, st.Append(store.Patterns, models.Pattern{
			ID: fmt.Sprintf("p%d", i), Type: models.PatternNGram,
			Content: fmt.Sprintf("gram %d", i), Frequency: i, Confidence: 0.5,
		}))
	}

	w := get(t, New(st).Router(), "/api/patterns")
	require.Equal(t, http.StatusOK, w.Code)
	var patterns []models.Pattern
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &patterns))
	assert.Len(t, patterns, 100)
}
