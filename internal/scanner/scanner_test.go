package scanner

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/quarrylabs/quarry/pkg/config"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false
	return cfg
}

func TestScanRecursive(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":          "package main",
		"lib/util.go":      "package lib",
		"lib/deep/more.py": "pass",
		"README.md":        "docs",
	})

	files, err := New(testConfig(), nil, true).ScanPaths([]string{root})
	if err != nil {
		t.Fatalf("ScanPaths failed: %v", err)
	}

	want := []string{
		filepath.Join(root, "lib", "deep", "more.py"),
		filepath.Join(root, "lib", "util.go"),
		filepath.Join(root, "main.go"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("files = %v, want %v (lexical pre-order)", files, want)
	}
}

func TestScanNonRecursive(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":     "package main",
		"lib/util.go": "package lib",
	})

	files, err := New(testConfig(), nil, false).ScanPaths([]string{root})
	if err != nil {
		t.Fatalf("ScanPaths failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "main.go" {
		t.Errorf("files = %v, want only top-level main.go", files)
	}
}

func TestScanSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":                 "package main",
		"node_modules/dep/idx.js": "x",
		"dist/out.js":             "x",
		"build/gen.go":            "x",
		"__pycache__/mod.py":      "x",
		".vscode/task.js":         "x",
		"src/app.js":              "x",
	})

	files, err := New(testConfig(), nil, true).ScanPaths([]string{root})
	if err != nil {
		t.Fatalf("ScanPaths failed: %v", err)
	}
	for _, f := range files {
		rel, _ := filepath.Rel(root, f)
		for _, banned := range []string{"node_modules", "dist", "build", "__pycache__", ".vscode"} {
			if containsSegment(rel, banned) {
				t.Errorf("excluded dir leaked: %s", f)
			}
		}
	}
	if len(files) != 2 {
		t.Errorf("files = %v, want main.go and src/app.js", files)
	}
}

func containsSegment(rel, segment string) bool {
	for _, part := range splitPath(rel) {
		if part == segment {
			return true
		}
	}
	return false
}

func splitPath(rel string) []string {
	var parts []string
	for rel != "" {
		dir, file := filepath.Split(rel)
		parts = append([]string{file}, parts...)
		rel = filepath.Clean(dir)
		if rel == "." || rel == string(filepath.Separator) {
			break
		}
	}
	return parts
}

func TestScanExtensionOverride(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go": "package a",
		"b.py": "pass",
		"c.rb": "def x; end",
	})

	files, err := New(testConfig(), []string{"py", ".rb"}, true).ScanPaths([]string{root})
	if err != nil {
		t.Fatalf("ScanPaths failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want b.py and c.rb", files)
	}
	for _, f := range files {
		if filepath.Ext(f) == ".go" {
			t.Errorf("extension filter leaked: %s", f)
		}
	}
}

func TestScanExplicitFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"tool.py": "pass"})

	path := filepath.Join(root, "tool.py")
	files, err := New(testConfig(), nil, false).ScanPaths([]string{path})
	if err != nil {
		t.Fatalf("ScanPaths failed: %v", err)
	}
	if len(files) != 1 || files[0] != path {
		t.Errorf("files = %v, want the explicit file", files)
	}
}

func TestScanMissingPath(t *testing.T) {
	_, err := New(testConfig(), nil, true).ScanPaths([]string{"/no/such/dir"})
	if err == nil {
		t.Error("expected error for missing path")
	}
}

func TestScanExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app.js":     "x",
		"app.min.js": "x",
	})

	files, err := New(testConfig(), nil, true).ScanPaths([]string{root})
	if err != nil {
		t.Fatalf("ScanPaths failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "app.js" {
		t.Errorf("files = %v, want app.js only", files)
	}
}
