// Package server exposes the stored corpus to the browser UI as a
// read-only JSON API. Handlers only read through the store; no core
// mutation happens here.
package server

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/quarrylabs/quarry/pkg/models"
	"github.com/quarrylabs/quarry/pkg/store"
)

// previewLen bounds the centroid excerpt in cluster views.
const previewLen = 200

// patternCap bounds the pattern listing response.
const patternCap = 100

// Server serves the read-only corpus API.
type Server struct {
	store *store.Store
}

// New returns a server over the given store.
func New(st *store.Store) *Server {
	return &Server{store: st}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/stats", s.handleStats)
	api.GET("/clusters", s.handleClusters)
	api.GET("/clusters/:id", s.handleCluster)
	api.GET("/snippets/:id", s.handleSnippet)
	api.GET("/patterns", s.handlePatterns)
	return r
}

// Run serves until the listener fails.
func (s *Server) Run(host string, port int) error {
	return s.Router().Run(fmt.Sprintf("%s:%d", host, port))
}

func (s *Server) handleStats(c *gin.Context) {
	stats := models.CorpusStats{LanguageBreakdown: make(map[string]int)}

	clustered := 0
	if _, err := store.Scan(s.store, store.Snippets, func(sn models.Snippet) bool {
		stats.TotalSnippets++
		stats.LanguageBreakdown[sn.Language]++
		if sn.ClusterID != "" {
			clustered++
		}
		return true
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if _, err := store.Scan(s.store, store.Clusters, func(models.Cluster) bool {
		stats.TotalClusters++
		return true
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if _, err := store.Scan(s.store, store.Patterns, func(models.Pattern) bool {
		stats.TotalPatterns++
		return true
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if stats.TotalClusters > 0 {
		stats.AvgClusterSize = float64(clustered) / float64(stats.TotalClusters)
	}
	c.JSON(http.StatusOK, stats)
}

// loadViews joins clusters with their member snippets and contributing
// patterns.
func (s *Server) loadViews() ([]models.ClusterView, error) {
	clusters, _, err := store.ScanAll[models.Cluster](s.store, store.Clusters)
	if err != nil {
		return nil, err
	}
	snippets, _, err := store.ScanAll[models.Snippet](s.store, store.Snippets)
	if err != nil {
		return nil, err
	}
	patterns, _, err := store.ScanAll[models.Pattern](s.store, store.Patterns)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Snippet, len(snippets))
	for _, sn := range snippets {
		byID[sn.ID] = sn
	}

	views := make([]models.ClusterView, 0, len(clusters))
	for _, cl := range clusters {
		view := models.ClusterView{Cluster: cl, Snippets: []models.Snippet{}, Patterns: []models.Pattern{}}
		members := make(map[string]bool, len(cl.SnippetIDs))
		for _, id := range cl.SnippetIDs {
			members[id] = true
			if sn, ok := byID[id]; ok {
				view.Snippets = append(view.Snippets, sn)
			}
		}
		for _, pat := range patterns {
			for _, id := range pat.SnippetIDs {
				if members[id] {
					view.Patterns = append(view.Patterns, pat)
					break
				}
			}
		}
		if centroid, ok := byID[cl.CentroidID]; ok {
			view.Preview = preview(centroid.Content)
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Server) handleClusters(c *gin.Context) {
	views, err := s.loadViews()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) handleCluster(c *gin.Context) {
	views, err := s.loadViews()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	for _, view := range views {
		if view.Cluster.ID == id {
			c.JSON(http.StatusOK, view)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "cluster not found"})
}

func (s *Server) handleSnippet(c *gin.Context) {
	snippet, ok, err := store.GetByID[models.Snippet](s.store, store.Snippets, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "snippet not found"})
		return
	}
	c.JSON(http.StatusOK, snippet)
}

func (s *Server) handlePatterns(c *gin.Context) {
	wanted := c.Query("type")
	var patterns []models.Pattern
	if _, err := store.Scan(s.store, store.Patterns, func(p models.Pattern) bool {
		if wanted == "" || string(p.Type) == wanted {
			patterns = append(patterns, p)
		}
		return true
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Rank() > patterns[j].Rank()
	})
	if len(patterns) > patternCap {
		patterns = patterns[:patternCap]
	}
	c.JSON(http.StatusOK, patterns)
}

func preview(content string) string {
	if len(content) <= previewLen {
		return content
	}
	return content[:previewLen] + "…"
}
