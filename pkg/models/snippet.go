// Package models defines the record types persisted by the store and the
// view types served over the read API.
package models

import "time"

// Snippet is a code fragment extracted from a source file.
//
// A snippet is written once during ingestion, signature included, and
// rewritten during indexing to recompute its signature and attach its
// cluster id; it is otherwise immutable.
type Snippet struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	Language       string    `json:"language"`
	FilePath       string    `json:"file_path"`
	StartLine      int       `json:"start_line"`
	EndLine        int       `json:"end_line"`
	ContentHash    string    `json:"content_hash"`
	NormalizedHash uint64    `json:"normalized_hash"`
	Tokens         []string  `json:"tokens"`
	Normalized     string    `json:"normalized,omitempty"`
	Signature      []uint32  `json:"signature,omitempty"`
	ClusterID      string    `json:"cluster_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordID implements store.Record.
func (s Snippet) RecordID() string { return s.ID }

// Lines returns the inclusive line count of the snippet.
func (s Snippet) Lines() int { return s.EndLine - s.StartLine + 1 }
