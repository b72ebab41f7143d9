// Package progress reports pipeline stage activity on stderr: one
// tracker per stage run, with skip accounting folded in so commands do
// not have to thread their own counters through the callbacks.
package progress

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
)

// Stage identifies a pipeline phase for progress labelling.
type Stage string

const (
	StageIngest Stage = "ingest"
	StageIndex  Stage = "index"
	StageSynth  Stage = "synth"
)

// Label returns the activity line shown while a stage runs. Unknown
// stages fall back to the raw stage name.
func (s Stage) Label() string {
	switch s {
	case StageIngest:
		return "Ingesting sources..."
	case StageIndex:
		return "Indexing snippets..."
	case StageSynth:
		return "Mining patterns..."
	}
	return string(s) + "..."
}

// Tracker drives one stage's progress display and skip count.
type Tracker struct {
	bar     *progressbar.ProgressBar
	stage   Stage
	skipped atomic.Int64
}

// Start begins a spinner for a stage whose item count is not known up
// front (every stage discovers its workload while running: ingest walks
// directories, index and synth scan the store).
func Start(stage Stage) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(stage.Label()),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Tracker{bar: bar, stage: stage}
}

// StartN begins a bar over a known item count.
func StartN(stage Stage, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(stage.Label()),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, stage: stage}
}

// Tick records one processed item. Safe for concurrent use.
func (t *Tracker) Tick() {
	t.bar.Add(1)
}

// Skip records one skipped item. The pipeline ticks skipped items too,
// so Skip does not advance the bar. Safe for concurrent use.
func (t *Tracker) Skip() {
	t.skipped.Add(1)
}

// Skipped returns the skip count so far.
func (t *Tracker) Skipped() int {
	return int(t.skipped.Load())
}

// Done clears the bar. If items were skipped it leaves a one-line note
// naming the stage, matching the pipeline's skip-and-continue policy.
func (t *Tracker) Done() {
	t.bar.Finish()
	t.bar.Clear()
	if n := t.skipped.Load(); n > 0 {
		fmt.Fprintf(os.Stderr, "  %s: %d files skipped\n", t.stage, n)
	}
}

// Fail clears the bar and prints the stage failure to stderr.
func (t *Tracker) Fail(err error) {
	t.bar.Finish()
	t.bar.Clear()
	fmt.Fprintf(os.Stderr, "  %s error: %v\n", t.stage, err)
}
