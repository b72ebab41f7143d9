// Package pipeline wires the stages together: ingest turns files into
// snippet records, index turns snippets into clusters, synthesize turns
// snippets and clusters into ranked patterns. Stages are strictly
// sequential (EMPTY → INGESTED → INDEXED → SYNTHESISED) and each is
// separately re-runnable against the records earlier stages left in the
// store.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/quarrylabs/quarry/pkg/config"
	"github.com/quarrylabs/quarry/pkg/store"
)

// ErrEmptyDataset marks a stage invoked before its prerequisite stage
// has produced records.
var ErrEmptyDataset = errors.New("required dataset is empty")

// Sidecar keys under <data>/metadata.
const (
	sidecarConfig         = "config"
	sidecarIngestStats    = "ingestStats"
	sidecarIndexStats     = "indexStats"
	sidecarSynthesisStats = "synthesisStats"
)

// Pipeline runs stages against one store with one immutable config.
type Pipeline struct {
	store *store.Store
	cfg   *config.Config
}

// New returns a pipeline over the given store and config.
func New(st *store.Store, cfg *config.Config) *Pipeline {
	return &Pipeline{store: st, cfg: cfg}
}

// configSidecar is the persisted snapshot of the tuning constants a
// dataset was built with. The seed matters most: signatures are not
// portable across hash families.
type configSidecar struct {
	Bands               int     `json:"bands"`
	RowsPerBand         int     `json:"rows_per_band"`
	ShingleSize         int     `json:"shingle_size"`
	NGramSize           int     `json:"ngram_size"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	ClusterThreshold    float64 `json:"cluster_threshold"`
	MinClusterSize      int     `json:"min_cluster_size"`
	MinFrequency        int     `json:"min_frequency"`
	LSHSeed             int64   `json:"lsh_seed"`
}

// writeConfigSidecar persists the effective constants, with bands and
// rows possibly overridden per invocation.
func (p *Pipeline) writeConfigSidecar(bands, rows int) error {
	sc := configSidecar{
		Bands:               bands,
		RowsPerBand:         rows,
		ShingleSize:         p.cfg.Index.ShingleSize,
		NGramSize:           p.cfg.Synthesis.NGramSize,
		SimilarityThreshold: p.cfg.Index.SimilarityThreshold,
		ClusterThreshold:    p.cfg.Index.ClusterThreshold,
		MinClusterSize:      p.cfg.Index.MinClusterSize,
		MinFrequency:        p.cfg.Synthesis.MinFrequency,
		LSHSeed:             p.cfg.Index.Seed,
	}
	if err := p.store.WriteSidecar(sidecarConfig, sc); err != nil {
		return fmt.Errorf("persist config: %w", err)
	}
	return nil
}
