package models

import "time"

// IngestStats summarises one ingest run; persisted as a metadata sidecar.
type IngestStats struct {
	FilesScanned      int            `json:"files_scanned"`
	FilesSkipped      int            `json:"files_skipped"`
	SnippetsExtracted int            `json:"snippets_extracted"`
	ByLanguage        map[string]int `json:"by_language"`
	IngestedAt        time.Time      `json:"ingested_at"`
}

// IndexStats summarises one index run; persisted as a metadata sidecar.
type IndexStats struct {
	TotalSnippets     int       `json:"total_snippets"`
	KeptSnippets      int       `json:"kept_snippets"`
	DroppedDuplicates int       `json:"dropped_duplicates"`
	CandidatePairs    int       `json:"candidate_pairs"`
	VerifiedPairs     int       `json:"verified_pairs"`
	TotalClusters     int       `json:"total_clusters"`
	MeanSimilarity    float64   `json:"mean_similarity"`
	P50Similarity     float64   `json:"p50_similarity"`
	P95Similarity     float64   `json:"p95_similarity"`
	Bands             int       `json:"bands"`
	RowsPerBand       int       `json:"rows_per_band"`
	IndexedAt         time.Time `json:"indexed_at"`
}

// SynthesisStats summarises one synthesis run; persisted as a metadata sidecar.
type SynthesisStats struct {
	TotalPatterns int            `json:"total_patterns"`
	ByType        map[string]int `json:"by_type"`
	MinFrequency  int            `json:"min_frequency"`
	SynthesisedAt time.Time      `json:"synthesised_at"`
}

// CorpusStats is the aggregate view served by GET /api/stats. Field names
// follow the wire contract consumed by the browser UI.
type CorpusStats struct {
	TotalSnippets     int            `json:"totalSnippets"`
	TotalClusters     int            `json:"totalClusters"`
	TotalPatterns     int            `json:"totalPatterns"`
	LanguageBreakdown map[string]int `json:"languageBreakdown"`
	AvgClusterSize    float64        `json:"avgClusterSize"`
}

// ClusterView is a cluster joined with its member snippets and the
// patterns those members contribute to, served by GET /api/clusters.
type ClusterView struct {
	Cluster  Cluster   `json:"cluster"`
	Snippets []Snippet `json:"snippets"`
	Patterns []Pattern `json:"patterns"`
	Preview  string    `json:"preview"`
}
