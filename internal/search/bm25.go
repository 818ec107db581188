package search

import (
	"fmt"
	"math"

	"github.com/tbourn/go-docsearch-backend/internal/config"
)

// Posting records one document containing a term and how often.
type Posting struct {
	Doc int
	TF  int
}

// Scorer is the BM25 ranking state for one indexed corpus: an inverted index
// plus per-document lengths. Fields are exported so the whole value survives
// a gob round trip inside an index snapshot.
//
// The variant selects the IDF smoothing formula; the shared term-frequency
// component is identical across variants:
//
//	tfPart = tf·(k1+1) / (tf + k1·(1 − b + b·|d|/avgdl))
//
// The bm25+/bm25l variants additionally add a delta floor to each matched
// per-term contribution. A Scorer is read-only after Index and safe for
// concurrent Score calls.
type Scorer struct {
	Variant string
	K1      float64
	B       float64
	Delta   float64

	Postings  map[string][]Posting
	DocLens   []int
	AvgDocLen float64
	N         int
}

// NewScorer constructs an empty Scorer for the given ranking configuration.
// The variant name must be one of the config.Variant* constants.
func NewScorer(cfg config.BM25Config) (*Scorer, error) {
	switch cfg.Variant {
	case config.VariantLucene, config.VariantRobertson, config.VariantATIRE,
		config.VariantBM25Plus, config.VariantBM25L:
	default:
		return nil, fmt.Errorf("unknown bm25 variant %q", cfg.Variant)
	}
	return &Scorer{
		Variant:  cfg.Variant,
		K1:       cfg.K1,
		B:        cfg.B,
		Delta:    cfg.Delta,
		Postings: make(map[string][]Posting),
	}, nil
}

// Index ingests the tokenized corpus, building the inverted index and length
// statistics. It replaces any previously indexed state.
func (s *Scorer) Index(docTokens [][]string) {
	s.N = len(docTokens)
	s.DocLens = make([]int, s.N)
	s.Postings = make(map[string][]Posting, 1024)

	totalLen := 0
	for i, tokens := range docTokens {
		s.DocLens[i] = len(tokens)
		totalLen += len(tokens)

		freq := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freq[t]++
		}
		for term, tf := range freq {
			s.Postings[term] = append(s.Postings[term], Posting{Doc: i, TF: tf})
		}
	}
	if s.N > 0 {
		s.AvgDocLen = float64(totalLen) / float64(s.N)
	} else {
		s.AvgDocLen = 0
	}
}

// Score returns one score per indexed document for the given query tokens.
// Documents containing none of the terms keep score 0; callers are expected
// to filter those out. Repeated query tokens contribute once per occurrence.
func (s *Scorer) Score(queryTokens []string) []float64 {
	scores := make([]float64, s.N)
	if s.N == 0 || len(queryTokens) == 0 {
		return scores
	}
	for _, term := range queryTokens {
		postings, ok := s.Postings[term]
		if !ok {
			continue
		}
		idf := s.idf(len(postings))
		for _, p := range postings {
			norm := 1 - s.B + s.B*float64(s.DocLens[p.Doc])/s.AvgDocLen
			tfPart := float64(p.TF) * (s.K1 + 1) / (float64(p.TF) + s.K1*norm)
			switch s.Variant {
			case config.VariantBM25Plus, config.VariantBM25L:
				scores[p.Doc] += idf * (tfPart + s.Delta)
			default:
				scores[p.Doc] += idf * tfPart
			}
		}
	}
	return scores
}

// idf computes the variant-specific inverse document frequency for a term
// occurring in df of the N indexed documents.
func (s *Scorer) idf(df int) float64 {
	n := float64(s.N)
	d := float64(df)
	switch s.Variant {
	case config.VariantRobertson:
		// Classic Robertson/Sparck-Jones; can go negative for very common terms.
		return math.Log((n - d + 0.5) / (d + 0.5))
	case config.VariantATIRE:
		return math.Log(n / d)
	case config.VariantBM25Plus:
		return math.Log((n + 1) / d)
	case config.VariantBM25L:
		return math.Log((n + 1) / (d + 0.5))
	default: // lucene
		return math.Log(1 + (n-d+0.5)/(d+0.5))
	}
}
