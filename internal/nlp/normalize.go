// Package nlp provides rule-based natural language understanding for experiment
// descriptions: text normalization, pattern extraction and intent classification.
// Everything in this package is pure and safe for concurrent use.
package nlp

import (
	"strings"

	"golang.org/x/text/width"
)

// punctuation that separates clauses is unified to an ASCII comma.
// "." is left alone so decimals and names like gpt-3.5 survive.
var clauseReplacer = strings.NewReplacer(
	"。", ",",
	"、", ",",
	";", ",",
	"!", ",",
	"?", ",",
	"…", ",",
)

// Normalize folds full-width forms to ASCII, unifies clause punctuation to
// commas, collapses whitespace and lowercases. It is a total function.
func Normalize(text string) string {
	folded := width.Fold.String(text)
	folded = clauseReplacer.Replace(folded)
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// Input carries an utterance in both forms. Most extractors work on
// Normalized; prompt text is lifted from Raw so its casing is preserved.
type Input struct {
	Raw        string
	Normalized string
}

// NewInput normalizes raw once for every downstream stage
func NewInput(raw string) Input {
	return Input{
		Raw:        raw,
		Normalized: Normalize(raw),
	}
}

// Len returns the rune length of the trimmed raw text
func (in Input) Len() int {
	return len([]rune(strings.TrimSpace(in.Raw)))
}

// ContainsAny reports whether text contains at least one of the keywords
func ContainsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
