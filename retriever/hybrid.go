// Package retriever implements hybrid document retrieval: vector similarity
// fused with keyword density, thresholded, deduplicated, and truncated to
// top-K.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/citypulse/trafficqa/cache"
	"github.com/citypulse/trafficqa/common/logger"
	"github.com/citypulse/trafficqa/config"
	"github.com/citypulse/trafficqa/embedding"
	"github.com/citypulse/trafficqa/metrics"
	"github.com/citypulse/trafficqa/schema"
	"github.com/citypulse/trafficqa/vectorindex"
)

// HybridRetriever fuses vector and keyword evidence over a local flat index,
// optionally backed by a filtered store for metadata-scoped search.
type HybridRetriever struct {
	provider embedding.Provider
	index    *vectorindex.FlatIndex
	store    vectorindex.FilteredStore
	cache    *cache.ResultCache
	cfg      config.RetrievalConfig
}

// New builds a hybrid retriever. The filtered store and cache are optional:
// without a store, filtered searches fail; without a cache, every search
// recomputes.
func New(provider embedding.Provider, index *vectorindex.FlatIndex, store vectorindex.FilteredStore, resultCache *cache.ResultCache, cfg config.RetrievalConfig) *HybridRetriever {
	return &HybridRetriever{
		provider: provider,
		index:    index,
		store:    store,
		cache:    resultCache,
		cfg:      cfg,
	}
}

// SearchText embeds the question and searches. Results are cached per
// (question, filter) pair when a cache is configured.
func (h *HybridRetriever) SearchText(ctx context.Context, question string, filter map[string]string) ([]schema.SearchResult, error) {
	cacheCtx := filterKey(filter)
	if h.cache != nil {
		if cached, ok := h.cache.Get(question, cacheCtx); ok {
			if results, ok := cached.([]schema.SearchResult); ok {
				return results, nil
			}
		}
	}

	if h.provider == nil {
		return nil, fmt.Errorf("no embedding provider configured")
	}
	vec, err := h.provider.GetEmbedding(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	results, err := h.Search(ctx, vec, question, filter)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		h.cache.Put(question, cacheCtx, results, 0)
	}
	return results, nil
}

// Search runs the hybrid pipeline for an already-embedded question. The
// question text is still needed for the keyword side of the score.
func (h *HybridRetriever) Search(ctx context.Context, vec []float32, question string, filter map[string]string) ([]schema.SearchResult, error) {
	started := time.Now()

	candidateK := h.cfg.TopK * h.cfg.CandidateFactor
	if candidateK <= 0 {
		candidateK = h.cfg.TopK
	}

	candidates, err := h.candidates(ctx, vec, filter, candidateK)
	if err != nil {
		return nil, err
	}

	terms := questionTerms(question, h.cfg.ImportantTerms)
	scored := make([]schema.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		score := h.fuse(c.Score, c.Chunk.Content, terms)
		if score < h.cfg.Threshold {
			continue
		}
		scored = append(scored, schema.SearchResult{Chunk: c.Chunk, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	deduped := h.dedupe(scored)
	if len(deduped) > h.cfg.TopK {
		deduped = deduped[:h.cfg.TopK]
	}

	elapsed := time.Since(started)
	metrics.ObserveRetrievalLatency(elapsed.Seconds())
	logger.Debugf("retrieval returned %d/%d candidates in %s", len(deduped), len(candidates), elapsed)
	return deduped, nil
}

// candidates pulls the raw vector neighbors: the filtered store when a
// metadata filter is present, the local index otherwise.
func (h *HybridRetriever) candidates(ctx context.Context, vec []float32, filter map[string]string, topK int) ([]schema.SearchResult, error) {
	if len(filter) > 0 {
		if h.store == nil {
			return nil, fmt.Errorf("filtered search requires a vector store")
		}
		return h.store.Search(ctx, vec, filter, topK)
	}
	if h.index == nil {
		return nil, fmt.Errorf("no vector index configured")
	}
	return h.index.Search(vec, topK)
}

// fuse combines cosine similarity and keyword density. Cosine is mapped from
// [-1, 1] into [0, 1] before weighting so the fused score stays in [0, 1].
func (h *HybridRetriever) fuse(cosine float64, content string, terms []string) float64 {
	vectorScore := (cosine + 1) / 2
	if vectorScore > 1 {
		vectorScore = 1
	}
	if vectorScore < 0 {
		vectorScore = 0
	}
	return h.cfg.VectorWeight*vectorScore + h.cfg.KeywordWeight*keywordDensity(content, terms)
}

// dedupe drops near-duplicate chunks. Input is sorted by score descending, so
// keeping the first of each duplicate group keeps the higher-scored member.
func (h *HybridRetriever) dedupe(sorted []schema.SearchResult) []schema.SearchResult {
	kept := make([]schema.SearchResult, 0, len(sorted))
	for _, r := range sorted {
		dup := false
		for _, k := range kept {
			if jaccard(r.Chunk.Content, k.Chunk.Content) >= h.cfg.DedupJaccard {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, r)
		}
	}
	return kept
}

func filterKey(filter map[string]string) string {
	if len(filter) == 0 {
		return ""
	}
	key := ""
	for _, k := range sortedKeys(filter) {
		key += k + "=" + filter[k] + ";"
	}
	return key
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
