package search

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-docsearch-backend/internal/config"
	"github.com/tbourn/go-docsearch-backend/internal/domain"
)

// ErrInvalidCorpus reports a documentation file whose top-level shape is not
// an object with a "sections" array. It is fatal to Build and to whoever
// triggered the build (startup or an explicit rebuild call).
var ErrInvalidCorpus = errors.New("invalid corpus format")

// Store owns the corpus-to-token mapping and the BM25 ranking state, together
// with their on-disk snapshot lifecycle. Build, Load, and Persist must not run
// concurrently with each other or with Score; once a build or load completes,
// all read paths (Score, Documents, SectionTypes, …) are lock-free and safe
// for concurrent use.
type Store struct {
	idxCfg  config.IndexConfig
	bm25Cfg config.BM25Config
	textCfg config.TextConfig

	proc   *Processor
	scorer *Scorer

	docs      []domain.Section
	docTokens [][]string
	builtAt   time.Time

	log zerolog.Logger
}

// snapshot is the gob-encoded on-disk artifact. Its format is internal; only
// mtime and ConfigHash carry meaning outside this package.
type snapshot struct {
	Scorer     *Scorer
	Documents  []domain.Section
	DocTokens  [][]string
	Timestamp  time.Time
	ConfigHash string
}

// NewStore constructs an empty Store. Call Build or Load before Score.
func NewStore(idx config.IndexConfig, bm25 config.BM25Config, text config.TextConfig, log zerolog.Logger) *Store {
	return &Store{
		idxCfg:  idx,
		bm25Cfg: bm25,
		textCfg: text,
		proc:    NewProcessor(text),
		log:     log.With().Str("component", "index").Logger(),
	}
}

// Processor exposes the text processor sharing this store's configuration,
// for query tokenization and highlighting.
func (st *Store) Processor() *Processor { return st.proc }

// ShouldRebuild reports whether a fresh build is required: rebuild-on-start
// configured, no snapshot on disk, or the corpus file strictly newer than the
// snapshot.
func (st *Store) ShouldRebuild() bool {
	if !st.idxCfg.AutoRebuild {
		return true
	}
	snapInfo, err := os.Stat(st.idxCfg.SnapshotPath)
	if err != nil {
		return true
	}
	if corpusInfo, err := os.Stat(st.idxCfg.CorpusPath); err == nil {
		if corpusInfo.ModTime().After(snapInfo.ModTime()) {
			st.log.Info().Msg("corpus is newer than snapshot, rebuilding")
			return true
		}
	}
	return false
}

// Build loads the corpus, tokenizes every document with the title repeated
// TitleWeight times ahead of the body, indexes the result under the
// configured BM25 variant, and persists a snapshot when configured. Persist
// failures are logged and swallowed; they only cost a rebuild next start.
func (st *Store) Build(ctx context.Context) error {
	start := time.Now()

	docs, err := st.loadCorpus()
	if err != nil {
		return err
	}

	tokens := make([][]string, len(docs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(st.idxCfg.BuildWorkers)
	for i := range docs {
		g.Go(func() error {
			tokens[i] = st.tokenizeDoc(docs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	scorer, err := NewScorer(st.bm25Cfg)
	if err != nil {
		return err
	}
	scorer.Index(tokens)

	st.docs = docs
	st.docTokens = tokens
	st.scorer = scorer
	st.builtAt = time.Now()

	if st.idxCfg.SaveSnapshot {
		if err := st.Persist(); err != nil {
			st.log.Warn().Err(err).Msg("failed to persist index snapshot")
		}
	}

	st.log.Info().
		Int("document_count", len(docs)).
		Str("variant", st.bm25Cfg.Variant).
		Dur("build_time", time.Since(start)).
		Msg("index built")
	return nil
}

// loadCorpus reads and validates the documentation JSON file.
func (st *Store) loadCorpus() ([]domain.Section, error) {
	raw, err := os.ReadFile(st.idxCfg.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", st.idxCfg.CorpusPath, err)
	}

	// Decode the top level loosely first so a missing or mistyped "sections"
	// key is distinguishable from generally malformed JSON.
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", ErrInvalidCorpus, err)
	}
	rawSections, ok := top["sections"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"sections\" key", ErrInvalidCorpus)
	}
	var sections []domain.Section
	if err := json.Unmarshal(rawSections, &sections); err != nil {
		return nil, fmt.Errorf("%w: \"sections\" is not an array of documents: %v", ErrInvalidCorpus, err)
	}

	for i := range sections {
		if sections[i].SectionType == "" {
			sections[i].SectionType = "general"
		}
	}
	return sections, nil
}

// tokenizeDoc produces the token stream for one document: the title repeated
// TitleWeight times concatenated with the content, so title terms carry more
// term-frequency mass.
func (st *Store) tokenizeDoc(doc domain.Section) []string {
	parts := make([]string, 0, st.idxCfg.TitleWeight+1)
	for i := 0; i < st.idxCfg.TitleWeight; i++ {
		parts = append(parts, doc.Title)
	}
	parts = append(parts, doc.Content)

	var sb []byte
	for i, p := range parts {
		if i > 0 {
			sb = append(sb, ' ')
		}
		sb = append(sb, p...)
	}
	return st.proc.Tokenize(string(sb))
}

// Persist writes the current index state to the snapshot path.
func (st *Store) Persist() error {
	f, err := os.Create(st.idxCfg.SnapshotPath)
	if err != nil {
		return fmt.Errorf("create snapshot %s: %w", st.idxCfg.SnapshotPath, err)
	}
	defer f.Close()

	snap := snapshot{
		Scorer:     st.scorer,
		Documents:  st.docs,
		DocTokens:  st.docTokens,
		Timestamp:  st.builtAt,
		ConfigHash: st.ConfigHash(),
	}
	if err := gob.NewEncoder(f).Encode(&snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	st.log.Info().Str("path", st.idxCfg.SnapshotPath).Msg("index snapshot saved")
	return nil
}

// Load restores the index from its snapshot. A config-hash mismatch or any
// decode failure falls back to Build: a stale artifact is never an error.
func (st *Store) Load(ctx context.Context) error {
	f, err := os.Open(st.idxCfg.SnapshotPath)
	if err != nil {
		st.log.Warn().Err(err).Msg("snapshot unreadable, rebuilding")
		return st.Build(ctx)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		st.log.Warn().Err(err).Msg("snapshot corrupt, rebuilding")
		return st.Build(ctx)
	}
	if snap.ConfigHash != st.ConfigHash() {
		st.log.Info().Msg("configuration changed since snapshot, rebuilding")
		return st.Build(ctx)
	}

	st.scorer = snap.Scorer
	st.docs = snap.Documents
	st.docTokens = snap.DocTokens
	st.builtAt = snap.Timestamp

	st.log.Info().
		Int("document_count", len(st.docs)).
		Time("built_at", st.builtAt).
		Msg("index loaded from snapshot")
	return nil
}

// Score delegates to the BM25 scorer. Documents matching no query term keep
// score 0; callers filter those out.
func (st *Store) Score(queryTokens []string) []float64 {
	if st.scorer == nil {
		return nil
	}
	return st.scorer.Score(queryTokens)
}

// ConfigHash is a stable digest over ranking parameters, text-processing
// options, and the title weight. The title weight participates because it
// changes the token streams baked into a snapshot; query-time weighting
// (section weights, node boost) deliberately does not.
func (st *Store) ConfigHash() string {
	material := struct {
		BM25        config.BM25Config `json:"bm25"`
		Text        config.TextConfig `json:"text"`
		TitleWeight int               `json:"title_weight"`
	}{st.bm25Cfg, st.textCfg, st.idxCfg.TitleWeight}

	// Struct field order is fixed, so the JSON encoding is deterministic.
	raw, _ := json.Marshal(material)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Document returns the section at the given corpus index.
func (st *Store) Document(i int) domain.Section { return st.docs[i] }

// Size returns the number of indexed documents.
func (st *Store) Size() int { return len(st.docs) }

// BuiltAt returns when the current index state was built.
func (st *Store) BuiltAt() time.Time { return st.builtAt }

// SnapshotInfo reports whether a snapshot exists on disk and its size.
func (st *Store) SnapshotInfo() (exists bool, sizeBytes int64) {
	info, err := os.Stat(st.idxCfg.SnapshotPath)
	if err != nil {
		return false, 0
	}
	return true, info.Size()
}

// SectionTypes returns the sorted distinct section types in the corpus.
func (st *Store) SectionTypes() []string {
	seen := make(map[string]struct{})
	for i := range st.docs {
		seen[st.docs[i].SectionType] = struct{}{}
	}
	return sortedKeys(seen)
}

// NodeTypes returns the sorted distinct non-empty node types in the corpus.
func (st *Store) NodeTypes() []string {
	seen := make(map[string]struct{})
	for i := range st.docs {
		if nt := st.docs[i].NodeType; nt != "" {
			seen[nt] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
