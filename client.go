// Package trafficqa answers natural-language questions about a road traffic
// dataset. Questions are routed to one of three pipelines: a canned greeting
// reply, SQL generation against the relational backend, or hybrid document
// retrieval.
package trafficqa

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citypulse/trafficqa/cache"
	"github.com/citypulse/trafficqa/common/logger"
	"github.com/citypulse/trafficqa/config"
	"github.com/citypulse/trafficqa/embedding"
	"github.com/citypulse/trafficqa/llm"
	"github.com/citypulse/trafficqa/metrics"
	"github.com/citypulse/trafficqa/nlsql"
	"github.com/citypulse/trafficqa/relational"
	"github.com/citypulse/trafficqa/retriever"
	"github.com/citypulse/trafficqa/router"
	"github.com/citypulse/trafficqa/schema"
	"github.com/citypulse/trafficqa/vectorindex"
)

const (
	defaultEmbeddingDim = 1536

	greetingReply = "Hello! Ask me about intersections, signals, traffic flow, or the operations documents."
	unknownReply  = "I could not relate that to the traffic dataset. Try asking about intersections, devices, flow records, or the operations documents."
)

// Answer is the outcome of one question.
type Answer struct {
	Route     schema.Route           `json:"route"`
	Message   string                 `json:"message,omitempty"`
	Query     *schema.GeneratedQuery `json:"query,omitempty"`
	Result    *schema.QueryResult    `json:"result,omitempty"`
	Documents []schema.SearchResult  `json:"documents,omitempty"`
	Decision  schema.RouteDecision   `json:"decision"`
}

// Client is the QA engine: router, query generator, executor, and retriever
// behind a single Ask entry point. Safe for concurrent use.
type Client struct {
	cfg *config.Config

	router    *router.Router
	generator *nlsql.Generator
	executor  relational.Executor
	retriever *retriever.HybridRetriever
	registry  *relational.Registry

	embedder   embedding.Provider
	index      *vectorindex.FlatIndex
	store      vectorindex.FilteredStore
	queryCache *cache.ResultCache
	docCache   *cache.ResultCache
}

// NewClient wires the engine from configuration. Providers that are not
// configured leave their pipelines in degraded mode instead of failing
// construction; only the relational backend is mandatory.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		registry:   relational.DefaultTraffic(),
		queryCache: cache.New(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSeconds)*time.Second),
		docCache:   cache.New(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSeconds)*time.Second),
	}

	if cfg.Embedding.Provider != "" {
		embedder, err := embedding.NewProvider(cfg.Embedding)
		if err != nil {
			return nil, err
		}
		c.embedder = embedder
	} else {
		logger.Warnf("no embedding provider configured, routing and retrieval degrade to keyword matching")
	}

	var llmProvider llm.Provider
	if cfg.LLM.Provider != "" {
		p, err := llm.NewProvider(cfg.LLM)
		if err != nil {
			return nil, err
		}
		llmProvider = p
	} else {
		logger.Warnf("no llm provider configured, query generation is rule-based only")
	}

	executor, err := relational.NewSQLExecutor(cfg.Database)
	if err != nil {
		return nil, err
	}
	c.executor = executor

	dim := cfg.Embedding.Dimensions
	if dim <= 0 {
		dim = defaultEmbeddingDim
	}
	c.index = vectorindex.NewFlatIndex(dim)

	if cfg.VectorDB.Address != "" {
		store, err := vectorindex.NewMilvusStore(ctx, cfg.VectorDB, dim)
		if err != nil {
			logger.Warnf("milvus unavailable, filtered search disabled: %v", err)
		} else {
			c.store = store
		}
	}

	c.router = router.New(c.embedder, cfg.Router)
	if c.embedder != nil {
		if err := c.router.Init(ctx); err != nil {
			logger.Warnf("router example banks unavailable, using keyword fallback: %v", err)
		}
	}

	c.generator = nlsql.NewGenerator(c.registry, nil, llmProvider, c.queryCache, cfg.Generator)
	c.retriever = retriever.New(c.embedder, c.index, c.store, c.docCache, cfg.Retrieval)

	logger.Infof("trafficqa client ready (schema %s)", c.registry.Fingerprint()[:8])
	return c, nil
}

// Ask answers one question. It never panics and never returns a hard error
// for a degraded pipeline: failures surface in the Answer message.
func (c *Client) Ask(ctx context.Context, question string) Answer {
	decision := c.router.Route(ctx, question)
	answer := Answer{Route: decision.Route, Decision: decision}

	switch decision.Route {
	case schema.RouteGreeting:
		answer.Message = greetingReply
	case schema.RouteStructured:
		c.answerStructured(ctx, question, &answer)
	case schema.RouteDocuments:
		c.answerDocuments(ctx, question, &answer)
	default:
		answer.Message = unknownReply
	}
	return answer
}

func (c *Client) answerStructured(ctx context.Context, question string, answer *Answer) {
	q := c.generator.Generate(ctx, question)
	answer.Query = &q
	if !q.Validated {
		answer.Message = fmt.Sprintf("could not build a query for that question: %s", q.Error)
		return
	}

	result, err := c.generator.Execute(ctx, c.executor, q)
	if err != nil {
		logger.Warnf("query execution failed: %v", err)
		answer.Message = fmt.Sprintf("query failed: %v", err)
		return
	}
	answer.Result = result
}

func (c *Client) answerDocuments(ctx context.Context, question string, answer *Answer) {
	docs, err := c.retriever.SearchText(ctx, question, nil)
	if err != nil {
		logger.Warnf("document retrieval failed: %v", err)
		answer.Message = fmt.Sprintf("document search unavailable: %v", err)
		return
	}
	if len(docs) == 0 {
		answer.Message = "no matching documents found"
		return
	}
	answer.Documents = docs
}

// GenerateSQL exposes bare query generation without execution.
func (c *Client) GenerateSQL(ctx context.Context, question string) schema.GeneratedQuery {
	return c.generator.Generate(ctx, question)
}

// SearchDocuments exposes bare retrieval with an optional metadata filter.
func (c *Client) SearchDocuments(ctx context.Context, question string, filter map[string]string) ([]schema.SearchResult, error) {
	return c.retriever.SearchText(ctx, question, filter)
}

// GenerateBatch runs query generation for many questions on a bounded worker
// pool. Results line up with the input order.
func (c *Client) GenerateBatch(ctx context.Context, questions []string) []schema.GeneratedQuery {
	results := make([]schema.GeneratedQuery, len(questions))
	workers := c.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(questions) {
		workers = len(questions)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = c.generator.Generate(ctx, questions[i])
			}
		}()
	}
	for i := range questions {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// AddChunks ingests document chunks into the local index and, when present,
// the filtered store. Chunks without an ID get one; chunks without an
// embedding are embedded first.
func (c *Client) AddChunks(ctx context.Context, chunks []schema.Chunk) error {
	for i := range chunks {
		if chunks[i].ID == "" {
			chunks[i].ID = uuid.NewString()
		}
		if chunks[i].CreatedAt.IsZero() {
			chunks[i].CreatedAt = time.Now()
		}
		if len(chunks[i].Embedding) == 0 {
			if c.embedder == nil {
				return fmt.Errorf("chunk %s has no embedding and no provider is configured", chunks[i].ID)
			}
			vec, err := c.embedder.GetEmbedding(ctx, chunks[i].Content)
			if err != nil {
				return fmt.Errorf("embed chunk %s: %w", chunks[i].ID, err)
			}
			chunks[i].Embedding = vec
		}
	}

	if err := c.index.Add(chunks); err != nil {
		return err
	}
	if c.store != nil {
		if err := c.store.Insert(ctx, chunks); err != nil {
			logger.Warnf("milvus insert failed, local index still updated: %v", err)
		}
	}
	logger.Infof("ingested %d chunks (index size %d)", len(chunks), c.index.Len())
	return nil
}

// SaveIndex persists the local vector index under the path prefix.
func (c *Client) SaveIndex(path string) error {
	return c.index.Save(path)
}

// LoadIndex replaces the local vector index with one persisted by SaveIndex.
func (c *Client) LoadIndex(path string) error {
	idx, err := vectorindex.Load(path)
	if err != nil {
		return err
	}
	c.index = idx
	c.retriever = retriever.New(c.embedder, c.index, c.store, c.docCache, c.cfg.Retrieval)
	return nil
}

// CacheStats reports both result caches and refreshes the exported hit-rate
// gauges.
func (c *Client) CacheStats() map[string]cache.Stats {
	stats := map[string]cache.Stats{
		"query":     c.queryCache.Stats(),
		"documents": c.docCache.Stats(),
	}
	for name, s := range stats {
		metrics.SetCacheHitRate(name, s.HitRate)
	}
	return stats
}

// Close releases backend connections.
func (c *Client) Close() error {
	var first error
	if c.executor != nil {
		if err := c.executor.Close(); err != nil {
			first = err
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
