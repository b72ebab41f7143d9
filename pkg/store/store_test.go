package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/quarrylabs/quarry/pkg/models"
)

func testSnippet(id string) models.Snippet {
	return models.Snippet{
		ID:          id,
		Content:     "func add(a, b int) int { return a + b }",
		Language:    "go",
		FilePath:    "math.go",
		StartLine:   1,
		EndLine:     3,
		ContentHash: "abc123",
		Tokens:      []string{"func", "add", "int", "int", "return"},
		Signature:   []uint32{1, 2, 3, 4},
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestOpenCreatesLayout(t *testing.T) {
	root := t.TempDir()
	st, err := Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	for _, dir := range []string{"snippets", "clusters", "patterns", "metadata"} {
		if _, err := os.Stat(filepath.Join(root, dir)); err != nil {
			t.Errorf("expected %s directory: %v", dir, err)
		}
	}
}

func TestAppendScanRoundTrip(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	want := []models.Snippet{testSnippet("a"), testSnippet("b"), testSnippet("c")}
	for _, s := range want {
		if err := st.Append(Snippets, s); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, skipped, err := ScanAll[models.Snippet](st, Snippets)
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestScanMissingDataset(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	got, skipped, err := ScanAll[models.Snippet](st, Snippets)
	if err != nil {
		t.Fatalf("ScanAll on empty dataset should not fail: %v", err)
	}
	if len(got) != 0 || skipped != 0 {
		t.Errorf("got %d records, %d skipped; want 0, 0", len(got), skipped)
	}
}

func TestScanSkipsMalformedLines(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	if err := st.Append(Snippets, testSnippet("a")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	// Simulate a crash mid-append: a trailing partial line.
	f, err := os.OpenFile(st.LogPath(Snippets), os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString(`{"id":"trunc`); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	got, skipped, err := ScanAll[models.Snippet](st, Snippets)
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("records = %d, want 1", len(got))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}

func TestClear(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	if err := st.Append(Snippets, testSnippet("a")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := st.Clear(Snippets); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	got, _, err := ScanAll[models.Snippet](st, Snippets)
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("records after clear = %d, want 0", len(got))
	}

	// The log must accept appends after a clear.
	if err := st.Append(Snippets, testSnippet("b")); err != nil {
		t.Fatalf("Append after Clear failed: %v", err)
	}
	got, _, _ = ScanAll[models.Snippet](st, Snippets)
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("got %+v, want single record b", got)
	}
}

func TestGetByID(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	for _, id := range []string{"a", "b", "c"} {
		if err := st.Append(Snippets, testSnippet(id)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, ok, err := GetByID[models.Snippet](st, Snippets, "b")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !ok || got.ID != "b" {
		t.Errorf("got %+v ok=%v, want record b", got, ok)
	}

	_, ok, err = GetByID[models.Snippet](st, Snippets, "nope")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if ok {
		t.Error("expected miss for unknown id")
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	want := map[string]int{"go": 3, "python": 1}
	if err := st.WriteSidecar("languages", want); err != nil {
		t.Fatalf("WriteSidecar failed: %v", err)
	}

	var got map[string]int
	if err := st.ReadSidecar("languages", &got); err != nil {
		t.Fatalf("ReadSidecar failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sidecar mismatch: got %v, want %v", got, want)
	}

	// Whole-file replace, not merge.
	if err := st.WriteSidecar("languages", map[string]int{"ruby": 2}); err != nil {
		t.Fatalf("WriteSidecar failed: %v", err)
	}
	got = nil
	if err := st.ReadSidecar("languages", &got); err != nil {
		t.Fatalf("ReadSidecar failed: %v", err)
	}
	if len(got) != 1 || got["ruby"] != 2 {
		t.Errorf("sidecar not replaced: %v", got)
	}
}

func TestReadSidecarMissing(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	var v map[string]int
	if err := st.ReadSidecar("absent", &v); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestScanEarlyExit(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	for _, id := range []string{"a", "b", "c"} {
		if err := st.Append(Snippets, testSnippet(id)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	seen := 0
	if _, err := Scan(st, Snippets, func(models.Snippet) bool {
		seen++
		return seen < 2
	}); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if seen != 2 {
		t.Errorf("seen = %d, want 2", seen)
	}
}
