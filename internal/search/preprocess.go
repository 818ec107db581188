// Package search implements the lexical retrieval core: text normalization,
// the BM25 ranking function family, and the persisted document index. The
// package does no logging of its own beyond index lifecycle events; query-time
// behavior is pure computation so that it is safe for concurrent callers once
// an index is built.
package search

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tbourn/go-docsearch-backend/internal/config"
)

// DefaultHighlightLen is the snippet window used when callers pass maxLen <= 0.
const DefaultHighlightLen = 300

// highlightContext is how many bytes of left context precede the first match.
const highlightContext = 50

// Processor normalizes raw text into index terms and renders highlighted
// snippets. A Processor is immutable after construction and safe for
// concurrent use.
type Processor struct {
	cfg       config.TextConfig
	folder    cases.Caser
	stopwords map[string]struct{}
}

// NewProcessor builds a Processor from the text-processing configuration.
func NewProcessor(cfg config.TextConfig) *Processor {
	return &Processor{
		cfg:       cfg,
		folder:    cases.Fold(),
		stopwords: stopwordSet(),
	}
}

// stopwordSet returns the closed set of common English function words dropped
// during tokenization when stopword removal is enabled.
func stopwordSet() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"has", "he", "in", "is", "it", "its", "of", "on", "that", "the",
		"to", "was", "will", "with", "you", "your", "this", "have", "had",
		"what", "when", "where", "who", "which", "why", "how", "can", "could",
		"should", "would", "do", "does", "did", "shall", "may", "might",
		"but", "or", "not", "no", "all", "any", "both", "each", "few", "more",
		"most", "other", "some", "such", "only", "own", "same", "so", "than",
		"too", "very", "just", "now", "also", "here", "there", "then", "they",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Tokenize converts raw text into the ordered term sequence used for both
// indexing and querying. The same input always yields the same output.
//
// Steps, in order: optional Unicode case folding; splitting on
// non-alphanumeric boundaries (internal '-' and '_' are kept, edge hyphens
// trimmed); length filtering; optional stopword removal; optional heuristic
// suffix stemming.
func (p *Processor) Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	if p.cfg.Lowercase {
		text = p.folder.String(text)
	}

	tokens := splitTerms(text)
	if len(tokens) == 0 {
		return nil
	}

	out := tokens[:0]
	for _, t := range tokens {
		if len(t) < p.cfg.MinWordLength || len(t) > p.cfg.MaxWordLength {
			continue
		}
		if p.cfg.RemoveStopwords {
			if _, skip := p.stopwords[strings.ToLower(t)]; skip {
				continue
			}
		}
		if p.cfg.EnableStemming {
			t = stem(t)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// splitTerms extracts maximal runs of letters, digits, '-' and '_', then
// trims hyphens from the edges so "well-known" survives intact while a
// leading or trailing dash does not.
func splitTerms(s string) []string {
	var tokens []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		t := strings.Trim(s[start:end], "-")
		if t != "" {
			tokens = append(tokens, t)
		}
		start = -1
	}
	for i, r := range s {
		if isTermRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(s))
	return tokens
}

func isTermRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}

// stem applies approximate rule-based suffix stripping. Each rule checks the
// remaining length so short words are left alone; this is deliberately not a
// dictionary stemmer.
func stem(t string) string {
	switch {
	case strings.HasSuffix(t, "ing") && len(t) > 5:
		return t[:len(t)-3]
	case strings.HasSuffix(t, "ed") && len(t) > 4:
		return t[:len(t)-2]
	case strings.HasSuffix(t, "er") && len(t) > 4:
		return t[:len(t)-2]
	case strings.HasSuffix(t, "est") && len(t) > 5:
		return t[:len(t)-3]
	case strings.HasSuffix(t, "ly") && len(t) > 4:
		return t[:len(t)-2]
	case strings.HasSuffix(t, "s") && len(t) > 3 && !strings.HasSuffix(t, "ss"):
		return t[:len(t)-1]
	}
	return t
}

// Highlight renders a snippet of content around the first occurrence of any
// query term, wrapping word-boundary case-insensitive matches in ** markers.
// When no term matches (or the query is empty) the raw content prefix is
// returned without emphasis. maxLen <= 0 selects DefaultHighlightLen.
func (p *Processor) Highlight(content, query string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultHighlightLen
	}
	if content == "" || query == "" {
		return clip(content, maxLen)
	}
	terms := p.Tokenize(query)
	if len(terms) == 0 {
		return clip(content, maxLen)
	}

	lower := strings.ToLower(content)
	start := 0
	matched := false
	for _, term := range terms {
		if pos := strings.Index(lower, strings.ToLower(term)); pos >= 0 {
			start = pos - highlightContext
			if start < 0 {
				start = 0
			}
			matched = true
			break
		}
	}
	if !matched {
		return clip(content, maxLen)
	}

	end := start + maxLen
	if end > len(content) {
		end = len(content)
	}
	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}

	for _, term := range terms {
		re, err := regexp.Compile(`(?i)\b(` + regexp.QuoteMeta(term) + `)\b`)
		if err != nil {
			continue
		}
		snippet = re.ReplaceAllString(snippet, "**$1**")
	}
	return snippet
}

// clip returns the first maxLen bytes of s, with a trailing ellipsis when
// the content was truncated.
func clip(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
