package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 20, cfg.Index.Bands)
	assert.Equal(t, 5, cfg.Index.RowsPerBand)
	assert.Equal(t, 100, cfg.Index.SignatureLength())
	assert.Equal(t, 3, cfg.Index.ShingleSize)
	assert.Equal(t, 0.8, cfg.Index.SimilarityThreshold)
	assert.Equal(t, 0.7, cfg.Index.ClusterThreshold)
	assert.Equal(t, 2, cfg.Index.MinClusterSize)
	assert.True(t, cfg.Index.Dedup)
	assert.Equal(t, 3, cfg.Synthesis.NGramSize)
	assert.Equal(t, 2, cfg.Synthesis.MinFrequency)
	assert.Equal(t, 20, cfg.Ingest.MinSnippetChars)
	assert.Contains(t, cfg.Ingest.Extensions, ".go")
	assert.Contains(t, cfg.Exclude.Dirs, "node_modules")
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero bands", func(c *Config) { c.Index.Bands = 0 }},
		{"negative rows", func(c *Config) { c.Index.RowsPerBand = -1 }},
		{"threshold above one", func(c *Config) { c.Index.SimilarityThreshold = 1.5 }},
		{"zero threshold", func(c *Config) { c.Index.ClusterThreshold = 0 }},
		{"min frequency below two", func(c *Config) { c.Synthesis.MinFrequency = 1 }},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "error should wrap ErrInvalid: %v", err)
		})
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quarry.toml")
	content := `
[index]
bands = 10
rows_per_band = 8
cluster_threshold = 0.6

[synthesis]
ngram_size = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Index.Bands)
	assert.Equal(t, 8, cfg.Index.RowsPerBand)
	assert.Equal(t, 0.6, cfg.Index.ClusterThreshold)
	assert.Equal(t, 4, cfg.Synthesis.NGramSize)
	// Untouched values keep their defaults.
	assert.Equal(t, 0.8, cfg.Index.SimilarityThreshold)
	assert.Equal(t, 2, cfg.Synthesis.MinFrequency)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quarry.yaml")
	content := `
index:
  bands: 16
exclude:
  gitignore: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Index.Bands)
	assert.False(t, cfg.Exclude.Gitignore)
}

func TestLoadOrDefaultMissingExplicitPath(t *testing.T) {
	_, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Index.Bands)
}

func TestAllowedExtensions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ingest.Extensions = []string{".go", "py", " RS ", ""}

	set := cfg.AllowedExtensions()
	assert.True(t, set[".go"])
	assert.True(t, set[".py"])
	assert.True(t, set[".rs"])
	assert.Len(t, set, 3)
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.ShouldExcludeDir("node_modules"))
	assert.True(t, cfg.ShouldExcludeDir(".git"))
	assert.False(t, cfg.ShouldExcludeDir("src"))
	assert.True(t, cfg.ShouldExcludeFile("lib/app.min.js"))
	assert.False(t, cfg.ShouldExcludeFile("lib/app.js"))
}
