package catalog

import (
	"encoding/json"
	"strings"
	"unicode"

	"statcheck/internal/logging"
	"statcheck/internal/types"
)

// stopwords are dropped from question tokens before scoring: articles,
// auxiliary verbs, and generic quantifiers that carry no topical signal.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"do": {}, "does": {}, "did": {},
	"has": {}, "have": {}, "had": {},
	"what": {}, "which": {}, "who": {}, "when": {}, "where": {},
	"how": {}, "many": {}, "much": {}, "total": {}, "number": {},
	"of": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "by": {},
	"and": {}, "or": {}, "there": {}, "it": {}, "per": {}, "year": {},
}

// Tokenize lowercases text, splits on non-alphanumeric runs, and drops
// stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// keywordTokens parses a table's keyword column, which may hold a
// JSON-encoded list or a delimited string, falling back to raw tokenization
// when structured parsing fails.
func keywordTokens(keywords string) []string {
	if keywords == "" {
		return nil
	}

	var list []string
	if err := json.Unmarshal([]byte(keywords), &list); err == nil {
		var tokens []string
		for _, kw := range list {
			tokens = append(tokens, Tokenize(kw)...)
		}
		return tokens
	}
	return Tokenize(keywords)
}

// Match scores every catalog table by distinct question-token overlap against
// its title and keyword tokens, and returns all tables tied at the maximum
// score. A zero maximum returns nothing: guessing a fully-unrelated table is
// worse than answering "no match".
func Match(question string, tables []types.Table) []types.Table {
	tokens := Tokenize(question)
	if len(tokens) == 0 {
		logging.CatalogDebug("No searchable tokens in question %q", question)
		return nil
	}

	scores := make([]int, len(tables))
	maxScore := 0
	for i, t := range tables {
		vocabulary := make(map[string]struct{})
		for _, tok := range Tokenize(t.Title) {
			vocabulary[tok] = struct{}{}
		}
		for _, tok := range keywordTokens(t.Keywords) {
			vocabulary[tok] = struct{}{}
		}

		seen := make(map[string]struct{})
		for _, tok := range tokens {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			if _, ok := vocabulary[tok]; ok {
				scores[i]++
			}
		}
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
	}

	if maxScore == 0 {
		logging.Catalog("No table scored above zero for question %q", question)
		return nil
	}

	var best []types.Table
	for i, t := range tables {
		if scores[i] == maxScore {
			best = append(best, t)
		}
	}

	logging.CatalogDebug("Matched %d table(s) at score %d for question %q",
		len(best), maxScore, question)
	return best
}
