package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/quarrylabs/quarry/internal/fileproc"
	"github.com/quarrylabs/quarry/internal/scanner"
	"github.com/quarrylabs/quarry/pkg/extractor"
	"github.com/quarrylabs/quarry/pkg/minhash"
	"github.com/quarrylabs/quarry/pkg/models"
	"github.com/quarrylabs/quarry/pkg/store"
	"github.com/quarrylabs/quarry/pkg/tokenizer"
)

// IngestOptions tunes one ingest run.
type IngestOptions struct {
	Recursive  bool
	Extensions []string
	OnProgress func()
	// OnSkip is invoked for each file dropped with its reason.
	OnSkip func(path string, err error)
}

// Ingest walks the given paths, extracts snippets, and appends them to
// the snippet log. Per-file failures are logged through OnSkip and
// counted but never abort the batch; an append failure is fatal and
// leaves a valid record prefix on disk.
func (p *Pipeline) Ingest(paths []string, opts IngestOptions) (*models.IngestStats, error) {
	scan := scanner.New(p.cfg, opts.Extensions, opts.Recursive)
	files, err := scan.ScanPaths(paths)
	if err != nil {
		return nil, fmt.Errorf("%w: scan inputs: %v", store.ErrIO, err)
	}

	stats := &models.IngestStats{
		FilesScanned: len(files),
		ByLanguage:   make(map[string]int),
		IngestedAt:   time.Now().UTC(),
	}

	ext := extractor.New(p.cfg.Ingest.MinSnippetChars, p.cfg.Ingest.WholeFileMaxLines)
	ctx := minhash.NewContext(p.cfg.Index.Bands, p.cfg.Index.RowsPerBand, p.cfg.Index.ShingleSize, p.cfg.Index.Seed)

	// Skip callbacks arrive from worker goroutines.
	var skipMu sync.Mutex
	onSkip := func(path string, err error) {
		skipMu.Lock()
		defer skipMu.Unlock()
		stats.FilesSkipped++
		if opts.OnSkip != nil {
			opts.OnSkip(path, err)
		}
	}

	// Extraction fans out per file; results stay in walk order so the
	// snippet log is deterministic across runs.
	perFile, ok := fileproc.MapOrdered(files, 0,
		func(path string) string { return path },
		func(_ int, path string) ([]models.Snippet, error) {
			return p.extractFile(ext, ctx, path)
		},
		opts.OnProgress, onSkip)

	for i := range perFile {
		if !ok[i] {
			continue
		}
		for _, snippet := range perFile[i] {
			if err := p.store.Append(store.Snippets, snippet); err != nil {
				return nil, err
			}
			stats.SnippetsExtracted++
			stats.ByLanguage[snippet.Language]++
		}
	}

	if err := p.writeConfigSidecar(p.cfg.Index.Bands, p.cfg.Index.RowsPerBand); err != nil {
		return nil, err
	}
	if err := p.store.WriteSidecar(sidecarIngestStats, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// extractFile reads one source file and turns it into snippet records.
func (p *Pipeline) extractFile(ext *extractor.Extractor, ctx *minhash.Context, path string) ([]models.Snippet, error) {
	lang := tokenizer.DetectLanguage(path)
	if lang == tokenizer.LangUnknown {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("not valid utf-8")
	}

	var snippets []models.Snippet
	for _, frag := range ext.Extract(string(data), lang) {
		tokens, normalized := tokenizer.Process(frag.Content, lang)
		if len(tokens) == 0 {
			continue
		}
		sum := sha256.Sum256([]byte(frag.Content))
		snippets = append(snippets, models.Snippet{
			ID:             uuid.NewString(),
			Content:        frag.Content,
			Language:       lang,
			FilePath:       path,
			StartLine:      frag.StartLine,
			EndLine:        frag.EndLine,
			ContentHash:    hex.EncodeToString(sum[:]),
			NormalizedHash: xxhash.Sum64String(strings.Join(tokens, " ")),
			Tokens:         tokens,
			Normalized:     normalized,
			Signature:      ctx.Signature(tokens),
			CreatedAt:      time.Now().UTC(),
		})
	}
	return snippets, nil
}
