package config

import "fmt"

// Validate checks ranges and cross-field consistency. Zero values that have
// defaults are filled in rather than rejected.
func (c *Config) Validate() error {
	if c.Router.MinScore < 0 || c.Router.MinScore > 1 {
		return fmt.Errorf("router.min_score must be in [0,1], got %f", c.Router.MinScore)
	}
	for name, v := range map[string]float64{
		"router.greeting_gate":       c.Router.GreetingGate,
		"router.structured_gate":     c.Router.StructuredGate,
		"router.document_gate":       c.Router.DocumentGate,
		"router.fallback_confidence": c.Router.FallbackConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %f", name, v)
		}
	}
	if c.Generator.FastPathConfidence < 0 || c.Generator.FastPathConfidence > 1 {
		return fmt.Errorf("generator.fast_path_confidence must be in [0,1], got %f",
			c.Generator.FastPathConfidence)
	}
	if c.Generator.MaxAttempts <= 0 {
		c.Generator.MaxAttempts = 3
	}
	if c.Generator.MaxAttempts > 3 {
		return fmt.Errorf("generator.max_attempts must not exceed 3, got %d", c.Generator.MaxAttempts)
	}
	if w := c.Retrieval.VectorWeight + c.Retrieval.KeywordWeight; w <= 0 {
		return fmt.Errorf("retrieval weights must sum to a positive value, got %f", w)
	}
	if c.Retrieval.DedupJaccard <= 0 || c.Retrieval.DedupJaccard > 1 {
		return fmt.Errorf("retrieval.dedup_jaccard must be in (0,1], got %f", c.Retrieval.DedupJaccard)
	}
	if c.Retrieval.CandidateFactor <= 0 {
		c.Retrieval.CandidateFactor = 2
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 512
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 300
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.VectorDB.Provider != "" && c.VectorDB.Provider != "milvus" {
		return fmt.Errorf("unsupported vectordb provider %q", c.VectorDB.Provider)
	}
	if c.VectorDB.Provider == "milvus" && c.VectorDB.Address == "" {
		return fmt.Errorf("vectordb.address is required for milvus")
	}
	return nil
}
