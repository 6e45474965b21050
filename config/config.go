package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the QA engine.
type Config struct {
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	VectorDB  VectorDBConfig  `json:"vectordb" yaml:"vectordb"`
	Router    RouterConfig    `json:"router" yaml:"router"`
	Generator GeneratorConfig `json:"generator" yaml:"generator"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	// Workers bounds the fan-out of batch query generation.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// LoggingConfig controls the log level.
type LoggingConfig struct {
	Level string `json:"level,omitempty" yaml:"level,omitempty"` // debug, info, warn, error
}

// LLMConfig defines the generation provider.
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // Available options: openai, dashscope
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	TimeoutMs   int     `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// EmbeddingConfig defines the embedding provider.
type EmbeddingConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: openai, dashscope
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	TimeoutMs  int    `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// DatabaseConfig defines the relational backend.
type DatabaseConfig struct {
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"` // "sqlite"
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// MaxOpenConns caps concurrent connections; 0 keeps the driver default.
	MaxOpenConns int `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
}

// VectorDBConfig defines the optional metadata-capable vector store used for
// filtered retrieval. Empty provider disables it.
type VectorDBConfig struct {
	Provider   string `json:"provider,omitempty" yaml:"provider,omitempty"` // "milvus"
	Address    string `json:"address,omitempty" yaml:"address,omitempty"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
	SearchEf   int    `json:"search_ef,omitempty" yaml:"search_ef,omitempty"`
}

// RouterConfig holds the route classifier thresholds. The values are
// empirically fixed; override with care.
type RouterConfig struct {
	// MinScore is the floor under which the route is Unknown.
	MinScore float64 `json:"min_score,omitempty" yaml:"min_score,omitempty"` // default 0.3
	// GreetingGate is the score a greeting must exceed to win outright.
	GreetingGate float64 `json:"greeting_gate,omitempty" yaml:"greeting_gate,omitempty"` // default 0.5
	// StructuredGate is the score a structured-query route must exceed.
	StructuredGate float64 `json:"structured_gate,omitempty" yaml:"structured_gate,omitempty"` // default 0.4
	// DocumentGate is the score a document-search route must exceed.
	DocumentGate float64 `json:"document_gate,omitempty" yaml:"document_gate,omitempty"` // default 0.4
	// FallbackConfidence is reported when the keyword fallback is ambiguous.
	FallbackConfidence float64 `json:"fallback_confidence,omitempty" yaml:"fallback_confidence,omitempty"` // default 0.5
}

// GeneratorConfig holds the query generator thresholds and retry bound.
type GeneratorConfig struct {
	// FastPathConfidence gates the rule-based path; at or below it the LLM
	// fallback is used.
	FastPathConfidence float64 `json:"fast_path_confidence,omitempty" yaml:"fast_path_confidence,omitempty"` // default 0.7
	// MaxAttempts caps total LLM calls per generate, corrections included.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"` // default 3
	// MaxPromptTokens trims few-shot examples to a token budget.
	MaxPromptTokens int `json:"max_prompt_tokens,omitempty" yaml:"max_prompt_tokens,omitempty"` // default 3000
	// CacheTTLSeconds is the TTL for cached validated queries.
	CacheTTLSeconds int `json:"cache_ttl_seconds,omitempty" yaml:"cache_ttl_seconds,omitempty"` // default 600
}

// RetrievalConfig holds the hybrid ranking weights, thresholds, and the
// important-terms bank used for keyword density scoring.
type RetrievalConfig struct {
	VectorWeight  float64 `json:"vector_weight,omitempty" yaml:"vector_weight,omitempty"`   // default 0.6
	KeywordWeight float64 `json:"keyword_weight,omitempty" yaml:"keyword_weight,omitempty"` // default 0.4
	// Threshold drops candidates scoring below it.
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"` // default 0.1
	// DedupJaccard is the word-set similarity at or above which two chunks
	// are considered duplicates.
	DedupJaccard float64 `json:"dedup_jaccard,omitempty" yaml:"dedup_jaccard,omitempty"` // default 0.8
	// CandidateFactor multiplies topK when pulling candidates from the index.
	CandidateFactor int `json:"candidate_factor,omitempty" yaml:"candidate_factor,omitempty"` // default 2
	TopK            int `json:"top_k,omitempty" yaml:"top_k,omitempty"`                       // default 5
	// ImportantTerms feed the keyword-density score (0.1 per hit).
	ImportantTerms []string `json:"important_terms,omitempty" yaml:"important_terms,omitempty"`
}

// CacheConfig controls the result caches.
type CacheConfig struct {
	MaxEntries int `json:"max_entries,omitempty" yaml:"max_entries,omitempty"` // default 512
	TTLSeconds int `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"` // default 300
}

// Default returns the baseline configuration. The weights and thresholds are
// the empirically fixed values the pipeline was tuned with.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		LLM: LLMConfig{
			Model:       "gpt-4o",
			Temperature: 0.1,
			MaxTokens:   1024,
			TimeoutMs:   30000,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			TimeoutMs: 10000,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "trafficqa.db",
		},
		Router: RouterConfig{
			MinScore:           0.3,
			GreetingGate:       0.5,
			StructuredGate:     0.4,
			DocumentGate:       0.4,
			FallbackConfidence: 0.5,
		},
		Generator: GeneratorConfig{
			FastPathConfidence: 0.7,
			MaxAttempts:        3,
			MaxPromptTokens:    3000,
			CacheTTLSeconds:    600,
		},
		Retrieval: RetrievalConfig{
			VectorWeight:    0.6,
			KeywordWeight:   0.4,
			Threshold:       0.1,
			DedupJaccard:    0.8,
			CandidateFactor: 2,
			TopK:            5,
			ImportantTerms: []string{
				"intersection", "signal", "district", "congestion", "flow",
				"accident", "camera", "detector", "lane", "speed", "volume",
				"timing", "phase", "corridor", "peak",
			},
		},
		Cache: CacheConfig{
			MaxEntries: 512,
			TTLSeconds: 300,
		},
		Workers: 4,
	}
}

// LoadFile reads a YAML config file and merges it over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
