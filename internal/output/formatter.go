// Package output renders corpus results — language breakdowns, stage
// metrics, ranked patterns — as text tables, markdown, JSON, or TOON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	toon "github.com/toon-format/toon-go"

	"github.com/quarrylabs/quarry/pkg/models"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

// ParseFormat converts a string to Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	case "toon":
		return FormatTOON
	default:
		return FormatText
	}
}

// Renderable is a result view that knows its table shape. Machine
// formats (JSON, TOON) bypass the shape and encode RenderData.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	RenderData() any
}

// Formatter writes command results to stdout or a file.
type Formatter struct {
	format  Format
	writer  io.Writer
	file    *os.File
	colored bool
}

// NewFormatter creates a formatter writing to stdout, or to a file when
// output is non-empty (which also disables color).
func NewFormatter(format Format, output string, colored bool) (*Formatter, error) {
	var writer io.Writer = os.Stdout
	var file *os.File

	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return nil, err
		}
		writer = f
		file = f
		colored = false
	}

	return &Formatter{
		format:  format,
		writer:  writer,
		file:    file,
		colored: colored,
	}, nil
}

// Close closes the formatter's writer if it's a file.
func (f *Formatter) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// Format returns the configured format.
func (f *Formatter) Format() Format {
	return f.format
}

// Writer returns the underlying writer.
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// Output writes data in the configured format. Renderables draw their
// table shape for text and markdown; every other case encodes the
// underlying data.
func (f *Formatter) Output(data any) error {
	if r, ok := data.(Renderable); ok {
		switch f.format {
		case FormatText:
			return r.RenderText(f.writer, f.colored)
		case FormatMarkdown:
			return r.RenderMarkdown(f.writer)
		default:
			data = r.RenderData()
		}
	}
	return f.encode(data)
}

// encode serialises data as TOON or JSON. Markdown output for
// non-renderable data gets a fenced JSON block.
func (f *Formatter) encode(data any) error {
	switch f.format {
	case FormatTOON:
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(f.writer, string(out))
		return err
	case FormatMarkdown:
		fmt.Fprintln(f.writer, "```json")
		if err := f.encodeJSON(data); err != nil {
			return err
		}
		fmt.Fprintln(f.writer, "```")
		return nil
	default:
		return f.encodeJSON(data)
	}
}

func (f *Formatter) encodeJSON(data any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// renderTable draws one borderless table with an underlined title.
func renderTable(w io.Writer, colored bool, title string, headers []string, rows [][]string, footer []string) error {
	if title != "" {
		if colored {
			color.New(color.Bold).Fprintln(w, title)
		} else {
			fmt.Fprintln(w, title)
		}
		fmt.Fprintln(w, strings.Repeat("=", len(title)))
		fmt.Fprintln(w)
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Footer: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Right:  tw.Off,
				Top:    tw.Off,
				Bottom: tw.Off,
			},
			Settings: tw.Settings{
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		}),
	)

	table.Header(headers)
	for _, row := range rows {
		table.Append(row)
	}
	if len(footer) > 0 {
		footerArgs := make([]any, len(footer))
		for i, cell := range footer {
			footerArgs[i] = cell
		}
		table.Footer(footerArgs...)
	}
	table.Render()
	fmt.Fprintln(w)
	return nil
}

// renderMarkdownTable draws one pipe table with a heading.
func renderMarkdownTable(w io.Writer, title string, headers []string, rows [][]string, footer []string) error {
	if title != "" {
		fmt.Fprintf(w, "## %s\n\n", title)
	}

	fmt.Fprintf(w, "| %s |\n", strings.Join(headers, " | "))
	seps := make([]string, len(headers))
	for i := range seps {
		seps[i] = "---"
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range rows {
		fmt.Fprintf(w, "| %s |\n", strings.Join(row, " | "))
	}
	if len(footer) > 0 {
		fmt.Fprintf(w, "| %s |\n", strings.Join(footer, " | "))
	}

	fmt.Fprintln(w)
	return nil
}

// Breakdown is the per-language snippet count view shared by the ingest
// summary and the corpus statistics command. Languages render in sorted
// order so output is stable across runs.
type Breakdown struct {
	Title  string
	Counts map[string]int
	Footer []string
	data   any
}

// NewBreakdown wraps a language→count map with the data encoded for
// machine formats.
func NewBreakdown(title string, counts map[string]int, footer []string, data any) *Breakdown {
	return &Breakdown{Title: title, Counts: counts, Footer: footer, data: data}
}

func (b *Breakdown) rows() [][]string {
	langs := make([]string, 0, len(b.Counts))
	for lang := range b.Counts {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	rows := make([][]string, len(langs))
	for i, lang := range langs {
		rows[i] = []string{lang, fmt.Sprintf("%d", b.Counts[lang])}
	}
	return rows
}

func (b *Breakdown) RenderData() any { return b.data }

func (b *Breakdown) RenderText(w io.Writer, colored bool) error {
	return renderTable(w, colored, b.Title, []string{"Language", "Snippets"}, b.rows(), b.Footer)
}

func (b *Breakdown) RenderMarkdown(w io.Writer) error {
	return renderMarkdownTable(w, b.Title, []string{"Language", "Snippets"}, b.rows(), b.Footer)
}

// Metric is one labelled counter in a stage summary.
type Metric struct {
	Label string
	Value string
}

// Metrics is the ordered counter view used by the index and synthesis
// summaries.
type Metrics struct {
	Title string
	Rows  []Metric
	data  any
}

// NewMetrics wraps ordered stage counters with the data encoded for
// machine formats.
func NewMetrics(title string, rows []Metric, data any) *Metrics {
	return &Metrics{Title: title, Rows: rows, data: data}
}

func (m *Metrics) rows() [][]string {
	rows := make([][]string, len(m.Rows))
	for i, r := range m.Rows {
		rows[i] = []string{r.Label, r.Value}
	}
	return rows
}

func (m *Metrics) RenderData() any { return m.data }

func (m *Metrics) RenderText(w io.Writer, colored bool) error {
	return renderTable(w, colored, m.Title, []string{"Metric", "Value"}, m.rows(), nil)
}

func (m *Metrics) RenderMarkdown(w io.Writer) error {
	return renderMarkdownTable(w, m.Title, []string{"Metric", "Value"}, m.rows(), nil)
}

// patternContentWidth bounds pattern content in table cells.
const patternContentWidth = 48

// PatternTable is the ranked pattern view printed after synthesis:
// tier, content excerpt, frequency, snippet support, and language
// spread per pattern.
type PatternTable struct {
	Title    string
	Patterns []models.Pattern
	Limit    int
	data     any
}

// NewPatternTable wraps ranked patterns, showing at most limit rows.
func NewPatternTable(title string, patterns []models.Pattern, limit int, data any) *PatternTable {
	return &PatternTable{Title: title, Patterns: patterns, Limit: limit, data: data}
}

func (p *PatternTable) rows() [][]string {
	patterns := p.Patterns
	if p.Limit > 0 && len(patterns) > p.Limit {
		patterns = patterns[:p.Limit]
	}
	rows := make([][]string, len(patterns))
	for i, pat := range patterns {
		rows[i] = []string{
			pat.Type.String(),
			excerpt(pat.Content, patternContentWidth),
			fmt.Sprintf("%d", pat.Frequency),
			fmt.Sprintf("%d", len(pat.SnippetIDs)),
			strings.Join(pat.Languages, ","),
		}
	}
	return rows
}

func (p *PatternTable) headers() []string {
	return []string{"Tier", "Pattern", "Freq", "Snippets", "Languages"}
}

func (p *PatternTable) RenderData() any {
	if p.data != nil {
		return p.data
	}
	return p.Patterns
}

func (p *PatternTable) RenderText(w io.Writer, colored bool) error {
	return renderTable(w, colored, p.Title, p.headers(), p.rows(), nil)
}

func (p *PatternTable) RenderMarkdown(w io.Writer) error {
	return renderMarkdownTable(w, p.Title, p.headers(), p.rows(), nil)
}

// excerpt shortens pattern content to fit a table cell.
func excerpt(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
