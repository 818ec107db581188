// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server settings,
// logging, the full search surface (BM25 variant and coefficients, text
// processing, caching, result weighting), and observability options. The
// section-type weight map may additionally be loaded from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BM25 variant names accepted by SEARCH_BM25_VARIANT. The set is closed; each
// name selects a different IDF smoothing formula in internal/search.
const (
	VariantLucene    = "lucene"
	VariantRobertson = "robertson"
	VariantATIRE     = "atire"
	VariantBM25Plus  = "bm25+"
	VariantBM25L     = "bm25l"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-docsearch-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// BM25Config selects the ranking variant and its coefficients.
type BM25Config struct {
	Variant string  // SEARCH_BM25_VARIANT: lucene|robertson|atire|bm25+|bm25l
	K1      float64 // SEARCH_BM25_K1, term-frequency saturation
	B       float64 // SEARCH_BM25_B, length normalization in [0,1]
	Delta   float64 // SEARCH_BM25_DELTA, floor for bm25+/bm25l only
}

// TextConfig controls tokenization and normalization.
type TextConfig struct {
	Lowercase       bool // SEARCH_LOWERCASE
	RemoveStopwords bool // SEARCH_REMOVE_STOPWORDS
	EnableStemming  bool // SEARCH_ENABLE_STEMMING
	MinWordLength   int  // SEARCH_MIN_WORD_LENGTH
	MaxWordLength   int  // SEARCH_MAX_WORD_LENGTH
}

// IndexConfig controls corpus location and snapshot lifecycle.
type IndexConfig struct {
	CorpusPath   string // CORPUS_PATH: documentation JSON file
	SnapshotPath string // INDEX_SNAPSHOT_PATH: persisted index artifact
	AutoRebuild  bool   // INDEX_AUTO_REBUILD: when false, rebuild on every start
	SaveSnapshot bool   // INDEX_SAVE_SNAPSHOT: persist after build
	TitleWeight  int    // SEARCH_TITLE_WEIGHT: times the title is repeated into the token stream
	BuildWorkers int    // INDEX_BUILD_WORKERS: parallel tokenizers during build
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	Enabled   bool          // CACHE_ENABLED
	Backend   string        // CACHE_BACKEND: memory|redis
	MaxSize   int           // CACHE_SIZE: entry capacity
	TTL       time.Duration // CACHE_TTL
	RedisAddr string        // CACHE_REDIS_ADDR, only for the redis backend
}

// BehaviorConfig tunes result shaping after raw scoring.
type BehaviorConfig struct {
	DefaultTopK        int                // SEARCH_DEFAULT_TOP_K
	MaxTopK            int                // SEARCH_MAX_TOP_K
	MinScoreThreshold  float64            // SEARCH_MIN_SCORE
	NodeTypeBoost      float64            // SEARCH_NODE_BOOST
	SectionWeights     map[string]float64 // from SECTION_WEIGHTS_PATH, or defaults
	SectionWeightsPath string             // SECTION_WEIGHTS_PATH (optional YAML file)
	SlowQueryThreshold time.Duration      // SEARCH_SLOW_QUERY_THRESHOLD
	LogSearches        bool               // SEARCH_LOG_QUERIES: persist one QueryLog row per search
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath string // SQLite path for the query log

	// Search engine
	BM25     BM25Config
	Text     TextConfig
	Index    IndexConfig
	Cache    CacheConfig
	Behavior BehaviorConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// resolves the optional section-weight file, normalizes values, and
// validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "app.db"),

		// Search engine
		BM25: BM25Config{
			Variant: strings.ToLower(getenv("SEARCH_BM25_VARIANT", VariantLucene)),
			K1:      getfloat("SEARCH_BM25_K1", 1.5),
			B:       getfloat("SEARCH_BM25_B", 0.75),
			Delta:   getfloat("SEARCH_BM25_DELTA", 0.5),
		},
		Text: TextConfig{
			Lowercase:       getbool("SEARCH_LOWERCASE", true),
			RemoveStopwords: getbool("SEARCH_REMOVE_STOPWORDS", true),
			EnableStemming:  getbool("SEARCH_ENABLE_STEMMING", false),
			MinWordLength:   getint("SEARCH_MIN_WORD_LENGTH", 2),
			MaxWordLength:   getint("SEARCH_MAX_WORD_LENGTH", 50),
		},
		Index: IndexConfig{
			CorpusPath:   getenv("CORPUS_PATH", "data/docs.json"),
			SnapshotPath: getenv("INDEX_SNAPSHOT_PATH", "data/index.snapshot"),
			AutoRebuild:  getbool("INDEX_AUTO_REBUILD", true),
			SaveSnapshot: getbool("INDEX_SAVE_SNAPSHOT", true),
			TitleWeight:  getint("SEARCH_TITLE_WEIGHT", 2),
			BuildWorkers: getint("INDEX_BUILD_WORKERS", 4),
		},
		Cache: CacheConfig{
			Enabled:   getbool("CACHE_ENABLED", true),
			Backend:   strings.ToLower(getenv("CACHE_BACKEND", "memory")),
			MaxSize:   getint("CACHE_SIZE", 1000),
			TTL:       getdur("CACHE_TTL", time.Hour),
			RedisAddr: getenv("CACHE_REDIS_ADDR", "localhost:6379"),
		},
		Behavior: BehaviorConfig{
			DefaultTopK:        getint("SEARCH_DEFAULT_TOP_K", 5),
			MaxTopK:            getint("SEARCH_MAX_TOP_K", 20),
			MinScoreThreshold:  getfloat("SEARCH_MIN_SCORE", 0.0),
			NodeTypeBoost:      getfloat("SEARCH_NODE_BOOST", 1.5),
			SectionWeightsPath: getenv("SECTION_WEIGHTS_PATH", ""),
			SlowQueryThreshold: getdur("SEARCH_SLOW_QUERY_THRESHOLD", time.Second),
			LogSearches:        getbool("SEARCH_LOG_QUERIES", true),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-docsearch-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// Section weights: file overrides the built-in defaults wholesale.
	weights := defaultSectionWeights()
	if cfg.Behavior.SectionWeightsPath != "" {
		loaded, err := loadSectionWeights(cfg.Behavior.SectionWeightsPath)
		if err != nil {
			return cfg, err
		}
		weights = loaded
	}
	cfg.Behavior.SectionWeights = weights

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	switch cfg.BM25.Variant {
	case VariantLucene, VariantRobertson, VariantATIRE, VariantBM25Plus, VariantBM25L:
	default:
		return cfg, fmt.Errorf("SEARCH_BM25_VARIANT %q is not a known variant", cfg.BM25.Variant)
	}
	if cfg.BM25.K1 < 0 {
		return cfg, errors.New("SEARCH_BM25_K1 must be >= 0")
	}
	if cfg.BM25.B < 0 || cfg.BM25.B > 1 {
		return cfg, errors.New("SEARCH_BM25_B must be in [0,1]")
	}
	if cfg.BM25.Delta < 0 {
		return cfg, errors.New("SEARCH_BM25_DELTA must be >= 0")
	}
	if cfg.Text.MinWordLength < 1 || cfg.Text.MaxWordLength < cfg.Text.MinWordLength {
		return cfg, errors.New("SEARCH_MIN_WORD_LENGTH must be >= 1 and <= SEARCH_MAX_WORD_LENGTH")
	}
	if strings.TrimSpace(cfg.Index.CorpusPath) == "" {
		return cfg, errors.New("CORPUS_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.Index.SnapshotPath) == "" {
		return cfg, errors.New("INDEX_SNAPSHOT_PATH must not be empty")
	}
	if cfg.Index.TitleWeight < 1 {
		return cfg, errors.New("SEARCH_TITLE_WEIGHT must be >= 1")
	}
	if cfg.Index.BuildWorkers < 1 {
		return cfg, errors.New("INDEX_BUILD_WORKERS must be >= 1")
	}
	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		return cfg, errors.New("CACHE_BACKEND must be memory or redis")
	}
	if cfg.Cache.MaxSize < 1 {
		return cfg, errors.New("CACHE_SIZE must be >= 1")
	}
	if cfg.Cache.TTL <= 0 {
		return cfg, errors.New("CACHE_TTL must be > 0")
	}
	if cfg.Behavior.DefaultTopK < 1 || cfg.Behavior.MaxTopK < cfg.Behavior.DefaultTopK {
		return cfg, errors.New("SEARCH_DEFAULT_TOP_K must be >= 1 and <= SEARCH_MAX_TOP_K")
	}
	if cfg.Behavior.NodeTypeBoost < 1 {
		return cfg, errors.New("SEARCH_NODE_BOOST must be >= 1")
	}
	if cfg.Behavior.SlowQueryThreshold <= 0 {
		return cfg, errors.New("SEARCH_SLOW_QUERY_THRESHOLD must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// defaultSectionWeights mirrors the shipped weight profile: integrations and
// concepts rank slightly above reference pages. Unlisted types weigh 1.0.
func defaultSectionWeights() map[string]float64 {
	return map[string]float64{
		"integration": 1.2,
		"concept":     1.1,
		"general":     1.0,
		"reference":   0.9,
	}
}

// sectionWeightsFile is the YAML shape of SECTION_WEIGHTS_PATH:
//
//	section_weights:
//	  integration: 1.2
//	  concept: 1.1
type sectionWeightsFile struct {
	SectionWeights map[string]float64 `yaml:"section_weights"`
}

// loadSectionWeights reads and validates a section-weight YAML file.
func loadSectionWeights(path string) (map[string]float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read SECTION_WEIGHTS_PATH: %w", err)
	}
	var f sectionWeightsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse SECTION_WEIGHTS_PATH: %w", err)
	}
	if len(f.SectionWeights) == 0 {
		return nil, fmt.Errorf("SECTION_WEIGHTS_PATH %s has no section_weights entries", path)
	}
	for k, w := range f.SectionWeights {
		if w <= 0 {
			return nil, fmt.Errorf("section weight %q must be > 0, got %v", k, w)
		}
	}
	return f.SectionWeights, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
