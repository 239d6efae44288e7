package text

import (
	"regexp"
	"strings"
)

// CategoryTokenPrefix marks synthetic tokens derived from product categories
// rather than from free text. InvertedIndex.Search matches each query word
// against the category token of the same name, so a query containing "shoes"
// or the literal "category:shoes" scores category postings.
const CategoryTokenPrefix = "category:"

// wordPattern matches a letter followed by letters or digits.
var wordPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9]*`)

// Analyzer extracts word tokens from free text. Tokens are case-folded to
// lowercase; there is no stemming, stop-word removal, or Unicode
// normalization beyond ASCII letter recognition.
type Analyzer struct{}

// NewAnalyzer creates a new text analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Tokenize returns the ordered word tokens of text. Empty input yields an
// empty sequence.
func (a *Analyzer) Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// CategoryToken builds the synthetic index token for a category label. It
// bypasses the word extractor so labels with spaces or punctuation stay
// intact.
func CategoryToken(category string) string {
	return CategoryTokenPrefix + strings.ToLower(category)
}
