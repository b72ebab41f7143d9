package pattern

import (
	"regexp"

	"github.com/quarrylabs/quarry/pkg/models"
)

// A structural rule canonicalises one declaration or control-flow shape
// by erasing identifiers and conditions. Canonical forms are
// per-language (a Python def and a JS function stay distinct shapes),
// so cross-language structural patterns do not emerge from this tier —
// that promise is carried by the ngram and LCS tiers.
type rule struct {
	re    *regexp.Regexp
	canon func(match []string) string
}

func fixed(form string) func([]string) string {
	return func([]string) string { return form }
}

var (
	braceControl = []rule{
		{regexp.MustCompile(`\bif\s*\([^)]*\)`), fixed("if (CONDITION)")},
		{regexp.MustCompile(`\bwhile\s*\([^)]*\)`), fixed("while (CONDITION)")},
		{regexp.MustCompile(`\bfor\s*\([^)]*\)`), fixed("for (CONDITION)")},
		{regexp.MustCompile(`\bswitch\s*\([^)]*\)`), fixed("switch (CONDITION)")},
		{regexp.MustCompile(`\bcatch\s*\([^)]*\)`), fixed("catch (CONDITION)")},
		{regexp.MustCompile(`\btry\s*\{`), fixed("try")},
		{regexp.MustCompile(`\bfinally\s*\{`), fixed("finally")},
	}

	braceClass = rule{
		regexp.MustCompile(`\bclass\s+\w+(\s+extends\s+\w+)?`),
		func(match []string) string {
			if match[1] != "" {
				return "class ID extends ID"
			}
			return "class ID"
		},
	}

	pythonRules = []rule{
		{regexp.MustCompile(`\bdef\s+\w+\s*\([^)]*\)`), fixed("def ID(CONDITION)")},
		{regexp.MustCompile(`\bclass\s+\w+\s*\(\s*\w+[^)]*\)`), fixed("class ID extends ID")},
		{regexp.MustCompile(`\bclass\s+\w+\s*:`), fixed("class ID")},
		{regexp.MustCompile(`\bif\b[^:\n]*:`), fixed("if (CONDITION)")},
		{regexp.MustCompile(`\belif\b[^:\n]*:`), fixed("elif (CONDITION)")},
		{regexp.MustCompile(`\bwhile\b[^:\n]*:`), fixed("while (CONDITION)")},
		{regexp.MustCompile(`\bfor\b[^:\n]*:`), fixed("for (CONDITION)")},
		{regexp.MustCompile(`\btry\s*:`), fixed("try")},
		{regexp.MustCompile(`\bexcept\b[^:\n]*:`), fixed("except (CONDITION)")},
		{regexp.MustCompile(`\bfinally\s*:`), fixed("finally")},
	}

	goFunc = rule{regexp.MustCompile(`\bfunc\s+(?:\([^)]*\)\s*)?\w+\s*\([^)]*\)`), fixed("func ID(CONDITION)")}

	// Go writes conditions without parentheses; its control heads are
	// delimited by the opening brace instead.
	goControl = []rule{
		{regexp.MustCompile(`\bif\s+[^{\n]+\{`), fixed("if (CONDITION)")},
		{regexp.MustCompile(`\bfor\b[^{\n]*\{`), fixed("for (CONDITION)")},
		{regexp.MustCompile(`\bswitch\b[^{\n]*\{`), fixed("switch (CONDITION)")},
		{regexp.MustCompile(`\bselect\s*\{`), fixed("select")},
	}
	jsFunc    = rule{regexp.MustCompile(`\bfunction\s+\w+\s*\([^)]*\)`), fixed("function ID(CONDITION)")}
	rustFunc  = rule{regexp.MustCompile(`\bfn\s+\w+\s*\([^)]*\)`), fixed("fn ID(CONDITION)")}
	rubyFunc  = rule{regexp.MustCompile(`\bdef\s+\w+`), fixed("def ID")}
	rubyClass = rule{
		regexp.MustCompile(`\bclass\s+\w+(\s*<\s*\w+)?`),
		func(match []string) string {
			if match[1] != "" {
				return "class ID extends ID"
			}
			return "class ID"
		},
	}
	methodFunc = rule{
		regexp.MustCompile(`(?m)^\s*(?:(?:public|private|protected|static|final|override|virtual)\s+)*\w+(?:<[^>]*>)?\s+\w+\s*\([^)]*\)\s*\{`),
		fixed("ID ID(CONDITION)"),
	}
)

// structuralRules returns the regex suite for one language tag.
func structuralRules(lang string) []rule {
	switch lang {
	case "python":
		return pythonRules
	case "go":
		return append([]rule{goFunc}, goControl...)
	case "javascript", "typescript", "php":
		return append([]rule{jsFunc, braceClass}, braceControl...)
	case "rust":
		return append([]rule{rustFunc, braceClass}, braceControl...)
	case "ruby":
		return []rule{rubyFunc, rubyClass}
	default:
		return append([]rule{methodFunc, braceClass}, braceControl...)
	}
}

// mineStructural applies each language's regex suite to raw snippet
// content, counts canonical forms across snippets, and emits forms seen
// in at least MinFrequency distinct snippets. Frequency is the snippet
// count and confidence divides it by the global snippet population.
func mineStructural(snippets []models.Snippet, cfg Config) []models.Pattern {
	counts := make(map[string]*occurrence)
	var order []string

	for ordinal, snippet := range snippets {
		for _, r := range structuralRules(snippet.Language) {
			for _, match := range r.re.FindAllStringSubmatch(snippet.Content, -1) {
				form := r.canon(match)
				occ, ok := counts[form]
				if !ok {
					occ = newOccurrence()
					counts[form] = occ
					order = append(order, form)
				}
				occ.add(ordinal, snippet.Language)
			}
		}
	}

	population := float64(len(snippets))
	var patterns []models.Pattern
	for _, form := range order {
		occ := counts[form]
		freq := int(occ.snippets.GetCardinality())
		if freq < cfg.MinFrequency {
			continue
		}
		patterns = append(patterns, occ.emit(models.PatternStructural, form, freq, float64(freq)/population, snippets))
	}
	return patterns
}
