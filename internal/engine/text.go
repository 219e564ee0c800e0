package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalize trims, lowercases, folds diacritics and collapses internal whitespace.
func normalize(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// tokenize splits normalized text into letter/digit words.
func tokenize(s string) []string {
	return strings.FieldsFunc(normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {},
	"to": {}, "was": {}, "were": {}, "which": {}, "with": {}, "into": {}, "than": {},
	"then": {}, "there": {}, "these": {}, "those": {}, "can": {}, "will": {},
}

// contentWords returns the distinct non-stop-word tokens of s in order.
func contentWords(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range tokenize(s) {
		if _, stop := stopWords[tok]; stop || len([]rune(tok)) < 2 {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// tokenText is a tokenized text padded for whole-word phrase lookup.
type tokenText string

func newTokenText(s string) tokenText {
	return tokenText(" " + strings.Join(tokenize(s), " ") + " ")
}

// containsPhrase reports whether every token of phrase appears contiguously.
func (t tokenText) containsPhrase(phrase string) bool {
	toks := tokenize(phrase)
	if len(toks) == 0 {
		return false
	}
	return strings.Contains(string(t), " "+strings.Join(toks, " ")+" ")
}
