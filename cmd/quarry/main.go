package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/quarrylabs/quarry/internal/output"
	"github.com/quarrylabs/quarry/internal/progress"
	"github.com/quarrylabs/quarry/internal/server"
	"github.com/quarrylabs/quarry/pkg/config"
	"github.com/quarrylabs/quarry/pkg/models"
	"github.com/quarrylabs/quarry/pkg/pipeline"
	"github.com/quarrylabs/quarry/pkg/store"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

// Exit codes: 0 success, 1 stage prerequisite missing, 2 I/O or config
// error.
const (
	exitPrereq = 1
	exitError  = 2
)

func main() {
	app := &cli.App{
		Name:    "quarry",
		Usage:   "Mine structural redundancy across a multi-language code corpus",
		Version: version,
		Description: `Quarry ingests source files, detects near-duplicate snippets with a
MinHash/LSH index, groups them into clusters, and mines recurring
n-gram, subsequence, and structural patterns from the result.

Supports: Go, Rust, Python, TypeScript, JavaScript, Java, C, C++, Ruby, PHP and more`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Value:   "data",
				Usage:   "Store root directory",
				EnvVars: []string{"QUARRY_DATA"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"QUARRY_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, markdown, toon",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
		},
		Commands: []*cli.Command{
			ingestCmd(),
			indexCmd(),
			synthCmd(),
			serveCmd(),
			statsCmd(),
		},
	}

	// ExitCoder errors are printed and mapped to their code inside Run;
	// anything else is an I/O-class failure.
	if err := app.Run(os.Args); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}

// setup loads and validates config and opens the store.
func setup(c *cli.Context) (*config.Config, *store.Store, error) {
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return nil, nil, cli.Exit(fmt.Sprintf("config: %v", err), exitError)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, cli.Exit(fmt.Sprintf("config: %v", err), exitError)
	}
	st, err := store.Open(c.String("data-dir"))
	if err != nil {
		return nil, nil, cli.Exit(fmt.Sprintf("store: %v", err), exitError)
	}
	return cfg, st, nil
}

// fail maps a stage error onto the documented exit codes with a single
// stderr line naming the stage.
func fail(stage string, err error) error {
	code := exitError
	if errors.Is(err, pipeline.ErrEmptyDataset) {
		code = exitPrereq
	}
	return cli.Exit(fmt.Sprintf("%s: %v", stage, err), code)
}

func formatter(c *cli.Context) (*output.Formatter, error) {
	return output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), true)
}

func ingestCmd() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Walk input paths and extract snippet records",
		ArgsUsage: "<path...>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "recursive",
				Aliases: []string{"r"},
				Usage:   "Recurse into subdirectories",
			},
			&cli.StringSliceFlag{
				Name:  "extensions",
				Usage: "File extensions to ingest (default .js,.ts,.py,.java,.cpp,.c,.go,.rs,.rb,.php)",
			},
		},
		Action: runIngest,
	}
}

func runIngest(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return cli.Exit("ingest: at least one input path is required", exitError)
	}

	cfg, st, err := setup(c)
	if err != nil {
		return err
	}
	defer st.Close()

	tracker := progress.Start(progress.StageIngest)
	var skipped []string
	stats, err := pipeline.New(st, cfg).Ingest(c.Args().Slice(), pipeline.IngestOptions{
		Recursive:  c.Bool("recursive"),
		Extensions: c.StringSlice("extensions"),
		OnProgress: tracker.Tick,
		OnSkip: func(path string, err error) {
			tracker.Skip()
			skipped = append(skipped, fmt.Sprintf("%s: %v", path, err))
		},
	})
	if err != nil {
		tracker.Fail(err)
		return fail("ingest", err)
	}
	tracker.Done()

	if c.Bool("verbose") {
		for _, line := range skipped {
			color.Yellow("skipped %s", line)
		}
	}

	f, err := formatter(c)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	defer f.Close()

	return f.Output(output.NewBreakdown(
		"Ingest Summary",
		stats.ByLanguage,
		[]string{
			fmt.Sprintf("Files: %d", stats.FilesScanned),
			fmt.Sprintf("Skipped: %d / Snippets: %d", stats.FilesSkipped, stats.SnippetsExtracted),
		},
		stats,
	))
}

func indexCmd() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Cluster ingested snippets with the MinHash/LSH index",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "bands",
				Usage: "Number of LSH bands (default from config)",
			},
			&cli.IntFlag{
				Name:  "rows",
				Usage: "Signature rows per band (default from config)",
			},
		},
		Action: runIndex,
	}
}

func runIndex(c *cli.Context) error {
	cfg, st, err := setup(c)
	if err != nil {
		return err
	}
	defer st.Close()

	tracker := progress.Start(progress.StageIndex)
	stats, err := pipeline.New(st, cfg).Index(pipeline.IndexOptions{
		Bands:       c.Int("bands"),
		RowsPerBand: c.Int("rows"),
		OnProgress:  tracker.Tick,
		OnWarn: func(format string, args ...any) {
			if c.Bool("verbose") {
				color.Yellow(format, args...)
			}
		},
	})
	if err != nil {
		tracker.Fail(err)
		return fail("index", err)
	}
	tracker.Done()

	f, err := formatter(c)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	defer f.Close()

	return f.Output(output.NewMetrics("Index Summary", []output.Metric{
		{Label: "Snippets", Value: fmt.Sprintf("%d", stats.TotalSnippets)},
		{Label: "Kept after de-dup", Value: fmt.Sprintf("%d", stats.KeptSnippets)},
		{Label: "Dropped duplicates", Value: fmt.Sprintf("%d", stats.DroppedDuplicates)},
		{Label: "Candidate pairs", Value: fmt.Sprintf("%d", stats.CandidatePairs)},
		{Label: "Verified pairs", Value: fmt.Sprintf("%d", stats.VerifiedPairs)},
		{Label: "Clusters", Value: fmt.Sprintf("%d", stats.TotalClusters)},
		{Label: "Mean similarity", Value: fmt.Sprintf("%.2f", stats.MeanSimilarity)},
	}, stats))
}

func synthCmd() *cli.Command {
	return &cli.Command{
		Name:  "synth",
		Usage: "Mine patterns from clustered snippets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "Mine a single tier: ngram, lcs, or ast (default all)",
			},
			&cli.IntFlag{
				Name:  "min-frequency",
				Usage: "Minimum pattern frequency (default from config)",
			},
		},
		Action: runSynth,
	}
}

func runSynth(c *cli.Context) error {
	cfg, st, err := setup(c)
	if err != nil {
		return err
	}
	defer st.Close()

	var types []models.PatternType
	if t := c.String("type"); t != "" {
		pt := models.PatternType(t)
		if !pt.Valid() {
			return cli.Exit(fmt.Sprintf("synth: unknown pattern type %q", t), exitError)
		}
		types = append(types, pt)
	}

	tracker := progress.Start(progress.StageSynth)
	stats, err := pipeline.New(st, cfg).Synthesize(pipeline.SynthOptions{
		Types:        types,
		MinFrequency: c.Int("min-frequency"),
		OnWarn: func(format string, args ...any) {
			if c.Bool("verbose") {
				color.Yellow(format, args...)
			}
		},
	})
	if err != nil {
		tracker.Fail(err)
		return fail("synth", err)
	}
	tracker.Done()

	f, err := formatter(c)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	defer f.Close()

	rows := make([]output.Metric, 0, 4)
	for _, t := range []models.PatternType{models.PatternNGram, models.PatternLCS, models.PatternStructural} {
		rows = append(rows, output.Metric{Label: t.String(), Value: fmt.Sprintf("%d", stats.ByType[t.String()])})
	}
	rows = append(rows, output.Metric{Label: "Total", Value: fmt.Sprintf("%d", stats.TotalPatterns)})
	if err := f.Output(output.NewMetrics("Synthesis Summary", rows, stats)); err != nil {
		return err
	}

	// Human formats also get the head of the ranking; the log is
	// already in ranked order.
	if f.Format() == output.FormatText || f.Format() == output.FormatMarkdown {
		const topN = 10
		var top []models.Pattern
		if _, err := store.Scan(st, store.Patterns, func(p models.Pattern) bool {
			top = append(top, p)
			return len(top) < topN
		}); err != nil {
			return fail("synth", err)
		}
		if len(top) > 0 {
			return f.Output(output.NewPatternTable("Top Patterns", top, topN, nil))
		}
	}
	return nil
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the stored corpus over the read-only HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Value: 8080,
				Usage: "Listen port",
			},
			&cli.StringFlag{
				Name:  "host",
				Value: "127.0.0.1",
				Usage: "Listen host",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	_, st, err := setup(c)
	if err != nil {
		return err
	}
	defer st.Close()

	host := c.String("host")
	port := c.Int("port")
	color.Cyan("Serving corpus API on http://%s:%d", host, port)
	if err := server.New(st).Run(host, port); err != nil {
		return cli.Exit(fmt.Sprintf("serve: %v", err), exitError)
	}
	return nil
}

func statsCmd() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Print corpus statistics",
		Action: runStats,
	}
}

func runStats(c *cli.Context) error {
	cfg, st, err := setup(c)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := pipeline.New(st, cfg).Stats()
	if err != nil {
		return fail("stats", err)
	}

	f, err := formatter(c)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	defer f.Close()

	return f.Output(output.NewBreakdown(
		"Corpus Statistics",
		stats.LanguageBreakdown,
		[]string{
			fmt.Sprintf("Snippets: %d / Clusters: %d", stats.TotalSnippets, stats.TotalClusters),
			fmt.Sprintf("Patterns: %d / Avg cluster: %.1f", stats.TotalPatterns, stats.AvgClusterSize),
		},
		stats,
	))
}
