// Package scanner finds source files to ingest. The walk is a
// deterministic pre-order traversal (lexical order within each
// directory), so snippet emission order is reproducible across runs.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/quarrylabs/quarry/pkg/config"
)

// Scanner walks directories for candidate source files.
type Scanner struct {
	config     *config.Config
	extensions map[string]bool
	recursive  bool
	matchers   []gitignore.Matcher
}

// New creates a scanner. An empty extensions list falls back to the
// configured defaults.
func New(cfg *config.Config, extensions []string, recursive bool) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	allowed := cfg.AllowedExtensions()
	if len(extensions) > 0 {
		allowed = make(map[string]bool, len(extensions))
		for _, ext := range extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			allowed[ext] = true
		}
	}
	return &Scanner{config: cfg, extensions: allowed, recursive: recursive}
}

// findGitRoot walks up from start looking for a .git directory.
// Returns empty string outside a repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadGitignore reads all .gitignore files below the enclosing git
// root, if gitignore matching is enabled.
func (s *Scanner) loadGitignore(root string) {
	if !s.config.Exclude.Gitignore {
		return
	}
	gitRoot := findGitRoot(root)
	if gitRoot == "" {
		return
	}
	bfs := osfs.New(gitRoot)
	if patterns, err := gitignore.ReadPatterns(bfs, nil); err == nil && len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

// ignored reports whether a path matches a .gitignore pattern.
func (s *Scanner) ignored(path string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}
	parts := strings.Split(path, string(filepath.Separator))
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

// wanted reports whether a file passes the extension and pattern
// filters.
func (s *Scanner) wanted(path string) bool {
	if !s.extensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	return !s.config.ShouldExcludeFile(path)
}

// ScanPaths resolves a mix of files and directories into the ordered
// candidate file list. Explicit file arguments pass through the same
// extension and exclusion-pattern filters as files found by the walk.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if s.wanted(path) {
				files = append(files, path)
			}
			continue
		}
		found, err := s.scanDir(path)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

// scanDir walks one directory, pruning excluded and ignored subtrees.
func (s *Scanner) scanDir(root string) ([]string, error) {
	s.loadGitignore(root)

	if !s.recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(root, entry.Name())
			if s.wanted(path) && !s.ignored(path, false) {
				files = append(files, path)
			}
		}
		return files, nil
	}

	files := make([]string, 0, 256)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && (s.config.ShouldExcludeDir(d.Name()) || s.ignored(path, true)) {
				return filepath.SkipDir
			}
			return nil
		}
		// Symlinked files are skipped: following them can escape the
		// root or revisit walked subtrees.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if s.wanted(path) && !s.ignored(path, false) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
