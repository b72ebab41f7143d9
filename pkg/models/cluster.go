package models

import "time"

// Cluster is an equivalence class of similar snippets.
//
// Members reference snippets by id only; clusters never hold snippet
// records. Membership is justified by connectivity in the similarity
// graph, not by every pair individually passing the threshold.
type Cluster struct {
	ID         string    `json:"id"`
	SnippetIDs []string  `json:"snippet_ids"`
	CentroidID string    `json:"centroid_id"`
	Similarity float64   `json:"similarity"`
	Languages  []string  `json:"languages"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordID implements store.Record.
func (c Cluster) RecordID() string { return c.ID }

// Size returns the member count.
func (c Cluster) Size() int { return len(c.SnippetIDs) }
