package search

import (
	"reflect"
	"strings"
	"testing"

	"github.com/tbourn/go-docsearch-backend/internal/config"
)

func textConfig() config.TextConfig {
	return config.TextConfig{
		Lowercase:       true,
		RemoveStopwords: true,
		EnableStemming:  false,
		MinWordLength:   2,
		MaxWordLength:   50,
	}
}

func TestTokenize_Basic(t *testing.T) {
	p := NewProcessor(textConfig())

	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   \t\n", nil},
		{"stopwords removed", "the quick fox and the hound", []string{"quick", "fox", "hound"}},
		{"case folded", "Slack WEBHOOK Setup", []string{"slack", "webhook", "setup"}},
		{"punctuation split", "send/receive messages, fast!", []string{"send", "receive", "messages", "fast"}},
		{"internal hyphen kept", "a well-known rate-limit", []string{"well-known", "rate-limit"}},
		{"edge hyphens trimmed", "-edge- case-", []string{"edge", "case"}},
		{"underscore kept", "node_type values", []string{"node_type", "values"}},
		{"short tokens dropped", "a b cd efg", []string{"cd", "efg"}},
		{"digits kept", "oauth2 v2 api", []string{"oauth2", "v2", "api"}},
		{"all stopwords", "the and of", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.Tokenize(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Tokenize(%q) = %v; want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestTokenize_Deterministic(t *testing.T) {
	p := NewProcessor(textConfig())
	const in = "Configure the Slack node to post messages into a channel"
	first := p.Tokenize(in)
	for i := 0; i < 5; i++ {
		if got := p.Tokenize(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: Tokenize not deterministic: %v vs %v", i, got, first)
		}
	}
}

func TestTokenize_MinLengthThree(t *testing.T) {
	cfg := textConfig()
	cfg.MinWordLength = 3
	p := NewProcessor(cfg)

	got := p.Tokenize("the a quick fox")
	want := []string{"quick", "fox"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v; want %v", got, want)
	}
}

func TestTokenize_MaxLengthFilter(t *testing.T) {
	cfg := textConfig()
	cfg.MaxWordLength = 10
	p := NewProcessor(cfg)

	got := p.Tokenize("short supercalifragilistic term")
	want := []string{"short", "term"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v; want %v", got, want)
	}
}

func TestTokenize_StopwordsKeptWhenDisabled(t *testing.T) {
	cfg := textConfig()
	cfg.RemoveStopwords = false
	p := NewProcessor(cfg)

	got := p.Tokenize("the quick fox")
	want := []string{"the", "quick", "fox"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v; want %v", got, want)
	}
}

func TestStem(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"running", "runn"},    // ing, len > 5
		{"sing", "sing"},       // too short for ing rule
		{"jumped", "jump"},     // ed, len > 4
		{"used", "used"},       // too short for ed rule
		{"worker", "work"},     // er, len > 4
		{"over", "over"},       // too short for er rule
		{"biggest", "bigg"},    // est, len > 5
		{"best", "best"},       // too short for est rule
		{"quickly", "quick"},   // ly, len > 4
		{"only", "only"},       // too short for ly rule
		{"nodes", "node"},      // s, len > 3
		{"gas", "gas"},         // too short for s rule
		{"class", "class"},     // ss suffix never stripped
		{"webhook", "webhook"}, // no rule applies
	}
	for _, tc := range cases {
		if got := stem(tc.in); got != tc.want {
			t.Errorf("stem(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokenize_StemmingEnabled(t *testing.T) {
	cfg := textConfig()
	cfg.EnableStemming = true
	p := NewProcessor(cfg)

	got := p.Tokenize("sending messages quickly")
	want := []string{"send", "message", "quick"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v; want %v", got, want)
	}
}

func TestHighlight_WrapsMatches(t *testing.T) {
	p := NewProcessor(textConfig())

	got := p.Highlight("Use the Slack node to post messages", "slack", 0)
	if !strings.Contains(got, "**Slack**") {
		t.Fatalf("expected emphasised match, got %q", got)
	}
	// Original casing survives the case-insensitive match.
	if strings.Contains(got, "**slack**") {
		t.Fatalf("match casing was rewritten: %q", got)
	}
}

func TestHighlight_WordBoundary(t *testing.T) {
	p := NewProcessor(textConfig())

	got := p.Highlight("slacking off near the Slack channel", "slack", 0)
	if strings.Contains(got, "**slacking**") || strings.Contains(got, "**slack**ing") {
		t.Fatalf("partial word was wrapped: %q", got)
	}
	if !strings.Contains(got, "**Slack**") {
		t.Fatalf("whole-word match missing: %q", got)
	}
}

func TestHighlight_ContextWindow(t *testing.T) {
	p := NewProcessor(textConfig())

	// First match is deep in the content, so the snippet opens 50 bytes before
	// it with a leading ellipsis.
	content := strings.Repeat("x", 60) + " Slack rocks"
	got := p.Highlight(content, "slack", 0)
	if !strings.HasPrefix(got, "...") {
		t.Fatalf("expected leading ellipsis, got %q", got)
	}
	if !strings.Contains(got, "**Slack**") {
		t.Fatalf("expected emphasised match, got %q", got)
	}
	if strings.HasSuffix(got, "...") {
		t.Fatalf("content end reached, no trailing ellipsis expected: %q", got)
	}
}

func TestHighlight_TruncatesLongContent(t *testing.T) {
	p := NewProcessor(textConfig())

	content := "Slack " + strings.Repeat("y", 400)
	got := p.Highlight(content, "slack", 100)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected trailing ellipsis, got %q", got)
	}
	if len(got) > 100+len("...")+2*len("**")+len("...") {
		t.Fatalf("snippet too long: %d bytes", len(got))
	}
}

func TestHighlight_NoMatchReturnsPrefix(t *testing.T) {
	p := NewProcessor(textConfig())

	content := "nothing relevant in here"
	if got := p.Highlight(content, "kubernetes", 0); got != content {
		t.Fatalf("expected raw prefix, got %q", got)
	}

	long := strings.Repeat("z", 400)
	got := p.Highlight(long, "kubernetes", 0)
	if len(got) != DefaultHighlightLen+len("...") || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected clipped prefix, got %d bytes", len(got))
	}
}

func TestHighlight_EmptyInputs(t *testing.T) {
	p := NewProcessor(textConfig())

	if got := p.Highlight("", "slack", 0); got != "" {
		t.Fatalf("empty content: got %q", got)
	}
	if got := p.Highlight("some content", "", 0); got != "some content" {
		t.Fatalf("empty query: got %q", got)
	}
	// A query of nothing but stopwords has no usable terms.
	if got := p.Highlight("some content", "the and", 0); got != "some content" {
		t.Fatalf("stopword query: got %q", got)
	}
}
