// Package config loads and validates the process-wide tuning constants.
// Configuration is immutable after load: defaults, overridden by an
// optional TOML/YAML/JSON file, overridden by command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrInvalid marks configuration validation failures.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration options for quarry.
type Config struct {
	// Index settings control signatures and clustering.
	Index IndexConfig `koanf:"index"`

	// Synthesis settings control pattern mining.
	Synthesis SynthesisConfig `koanf:"synthesis"`

	// Ingest settings control extraction and filtering.
	Ingest IngestConfig `koanf:"ingest"`

	// Exclude lists paths the scanner skips.
	Exclude ExcludeConfig `koanf:"exclude"`

	// Output settings control formatting.
	Output OutputConfig `koanf:"output"`
}

// IndexConfig tunes the MinHash/LSH index and the clusterer.
type IndexConfig struct {
	Bands               int     `koanf:"bands" validate:"min=1,max=256"`
	RowsPerBand         int     `koanf:"rows_per_band" validate:"min=1,max=64"`
	ShingleSize         int     `koanf:"shingle_size" validate:"min=1,max=16"`
	SimilarityThreshold float64 `koanf:"similarity_threshold" validate:"gt=0,lte=1"`
	ClusterThreshold    float64 `koanf:"cluster_threshold" validate:"gt=0,lte=1"`
	MinClusterSize      int     `koanf:"min_cluster_size" validate:"min=1"`
	Dedup               bool    `koanf:"dedup"`
	Seed                int64   `koanf:"seed"`
}

// SignatureLength is the MinHash signature length (bands × rows).
func (c IndexConfig) SignatureLength() int { return c.Bands * c.RowsPerBand }

// SynthesisConfig tunes the pattern extractor.
type SynthesisConfig struct {
	NGramSize    int `koanf:"ngram_size" validate:"min=2,max=10"`
	MinFrequency int `koanf:"min_frequency" validate:"min=2"`
	MinLCSLength int `koanf:"min_lcs_length" validate:"min=2"`
}

// IngestConfig tunes extraction and file selection.
type IngestConfig struct {
	Extensions        []string `koanf:"extensions"`
	MinSnippetChars   int      `koanf:"min_snippet_chars" validate:"min=1"`
	WholeFileMaxLines int      `koanf:"whole_file_max_lines" validate:"min=1"`
}

// ExcludeConfig defines path exclusions applied during the walk.
type ExcludeConfig struct {
	Dirs      []string `koanf:"dirs"`
	Patterns  []string `koanf:"patterns"`
	Gitignore bool     `koanf:"gitignore"`
}

// OutputConfig controls formatting defaults.
type OutputConfig struct {
	Format string `koanf:"format" validate:"oneof=text json markdown toon"`
	Color  bool   `koanf:"color"`
}

// DefaultConfig returns the documented defaults: 20 bands of 5 rows
// (signature length 100), 3-token shingles and ngrams, 0.8 de-dup
// threshold and a looser 0.7 cluster-edge threshold.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Bands:               20,
			RowsPerBand:         5,
			ShingleSize:         3,
			SimilarityThreshold: 0.8,
			ClusterThreshold:    0.7,
			MinClusterSize:      2,
			Dedup:               true,
			Seed:                0x5EED,
		},
		Synthesis: SynthesisConfig{
			NGramSize:    3,
			MinFrequency: 2,
			MinLCSLength: 3,
		},
		Ingest: IngestConfig{
			Extensions: []string{
				".js", ".ts", ".py", ".java", ".cpp",
				".c", ".go", ".rs", ".rb", ".php",
			},
			MinSnippetChars:   20,
			WholeFileMaxLines: 50,
		},
		Exclude: ExcludeConfig{
			Dirs: []string{
				".git",
				"node_modules",
				"dist",
				"build",
				"__pycache__",
				".vscode",
			},
			Patterns:  []string{"*.min.js", "*.min.css"},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads config from an explicit path, from a standard
// location, or falls back to the defaults. An explicit path that fails
// to load is an error; probed locations fail silently.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	for _, name := range []string{
		"quarry.toml", "quarry.yaml", "quarry.yml", "quarry.json",
		".quarry.toml", ".quarry.yaml", ".quarry.yml", ".quarry.json",
	} {
		if _, err := os.Stat(name); err == nil {
			if cfg, err := Load(name); err == nil {
				return cfg, nil
			}
		}
	}
	return DefaultConfig(), nil
}

// Validate checks bounds on the tuning constants. Failures wrap
// ErrInvalid so callers can map them to the config exit code.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s fails %q", ErrInvalid, f.Namespace(), f.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// AllowedExtensions returns the extension allow-set, lowercased.
func (c *Config) AllowedExtensions() map[string]bool {
	set := make(map[string]bool, len(c.Ingest.Extensions))
	for _, ext := range c.Ingest.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

// ShouldExcludeDir reports whether a directory name is in the skip list.
func (c *Config) ShouldExcludeDir(name string) bool {
	for _, dir := range c.Exclude.Dirs {
		if name == dir {
			return true
		}
	}
	return false
}

// ShouldExcludeFile reports whether a file's base name matches an
// exclusion pattern.
func (c *Config) ShouldExcludeFile(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
