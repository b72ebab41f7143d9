// Package extractor cuts source files into function/class-sized
// fragments so clustering compares peers rather than whole files. The
// heuristics are lossy and approximate by design; the only contract is
// that emitted fragments are syntactically plausible units with correct
// 1-based line ranges relative to the source.
package extractor

import (
	"regexp"
	"strings"
	"unicode"
)

// Fragment is one extracted code unit with its inclusive line range.
type Fragment struct {
	Content   string
	StartLine int
	EndLine   int
}

// Extractor slices files according to per-language heuristics.
type Extractor struct {
	minChars          int
	wholeFileMaxLines int
}

// New returns an extractor that discards fragments with at most
// minChars non-whitespace characters and falls back to a whole-file
// fragment for declaration-free files of at most wholeFileMaxLines.
func New(minChars, wholeFileMaxLines int) *Extractor {
	return &Extractor{minChars: minChars, wholeFileMaxLines: wholeFileMaxLines}
}

// braceDecl matches function-or-class declaration openers in brace
// languages. It deliberately over-matches; the closing-brace scan below
// bounds the damage.
var braceDecl = regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|final|export|default|async|pub|unsafe)\s+)*` +
	`(?:func|function|fn|class|interface|struct|impl|void|int|string|String|bool|def)\b.*[({]`)

// pythonDecl matches def/class openers.
var pythonDecl = regexp.MustCompile(`^\s*(?:async\s+)?(?:def|class)\s+\w+`)

// Extract splits a file's content into fragments in file order.
func (e *Extractor) Extract(content, lang string) []Fragment {
	lines := strings.Split(content, "\n")

	var fragments []Fragment
	decl := braceDecl
	if lang == "python" {
		decl = pythonDecl
		fragments = e.extractPython(lines)
	} else {
		fragments = e.extractBrace(lines)
	}

	declared := false
	for _, line := range lines {
		if decl.MatchString(line) {
			declared = true
			break
		}
	}

	// Declaration-free small files become one whole-file fragment.
	if !declared && len(lines) <= e.wholeFileMaxLines {
		if frag, ok := e.fragment(lines, 1, len(lines)); ok {
			fragments = append(fragments, frag)
		}
	}
	return fragments
}

// extractBrace scans for declaration lines and closes each fragment at
// a line whose trimmed content is "}" at indentation not deeper than
// the opener.
func (e *Extractor) extractBrace(lines []string) []Fragment {
	var fragments []Fragment
	i := 0
	for i < len(lines) {
		if !braceDecl.MatchString(lines[i]) {
			i++
			continue
		}
		openIndent := indentOf(lines[i])
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "}" && indentOf(lines[j]) <= openIndent {
				end = j
				break
			}
		}
		if end < 0 {
			// Unterminated declaration; take the rest of the file.
			end = len(lines) - 1
		}
		if frag, ok := e.fragment(lines[i:end+1], i+1, end+1); ok {
			fragments = append(fragments, frag)
		}
		i = end + 1
	}
	return fragments
}

// extractPython closes a fragment at the first subsequent non-blank
// line with indentation not deeper than the def/class opener, with a
// 3-line minimum to avoid premature cuts on decorated or continued
// headers.
func (e *Extractor) extractPython(lines []string) []Fragment {
	const minLines = 3

	var fragments []Fragment
	i := 0
	for i < len(lines) {
		if !pythonDecl.MatchString(lines[i]) {
			i++
			continue
		}
		openIndent := indentOf(lines[i])
		end := len(lines) - 1
		for j := i + 1; j < len(lines); j++ {
			trimmed := strings.TrimSpace(lines[j])
			if trimmed == "" {
				continue
			}
			if indentOf(lines[j]) <= openIndent && j-i >= minLines {
				end = j - 1
				break
			}
		}
		// Trim trailing blank lines from the fragment.
		for end > i && strings.TrimSpace(lines[end]) == "" {
			end--
		}
		if frag, ok := e.fragment(lines[i:end+1], i+1, end+1); ok {
			fragments = append(fragments, frag)
		}
		i = end + 1
	}
	return fragments
}

// fragment assembles a Fragment and applies the size filter.
func (e *Extractor) fragment(lines []string, start, end int) (Fragment, bool) {
	content := strings.Join(lines, "\n")
	if nonWhitespaceLen(content) <= e.minChars {
		return Fragment{}, false
	}
	return Fragment{Content: content, StartLine: start, EndLine: end}, true
}

// indentOf counts leading whitespace characters, tabs included.
func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' || r == '\t' {
			n++
			continue
		}
		break
	}
	return n
}

func nonWhitespaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
