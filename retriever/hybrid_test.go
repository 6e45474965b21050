package retriever

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/citypulse/trafficqa/cache"
	"github.com/citypulse/trafficqa/config"
	"github.com/citypulse/trafficqa/schema"
	"github.com/citypulse/trafficqa/vectorindex"
)

type constEmbedder struct {
	vec   []float32
	calls int
}

func (c *constEmbedder) GetEmbedding(_ context.Context, _ string) ([]float32, error) {
	c.calls++
	out := make([]float32, len(c.vec))
	copy(out, c.vec)
	return out, nil
}

func (c *constEmbedder) GetProviderType() string { return "const" }

func newIndex(t *testing.T, chunks []schema.Chunk) *vectorindex.FlatIndex {
	t.Helper()
	idx := vectorindex.NewFlatIndex(3)
	if err := idx.Add(chunks); err != nil {
		t.Fatalf("seed index: %v", err)
	}
	return idx
}

func TestSearch_TopKBound(t *testing.T) {
	var chunks []schema.Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, schema.Chunk{
			ID:        fmt.Sprintf("c%d", i),
			Content:   fmt.Sprintf("signal plan revision %d for corridor %d", i, i),
			Embedding: []float32{1, float32(i) * 0.01, 0},
		})
	}
	cfg := config.Default().Retrieval
	cfg.TopK = 3
	h := New(nil, newIndex(t, chunks), nil, nil, cfg)

	results, err := h.Search(context.Background(), []float32{1, 0, 0}, "signal plan", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected topK results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("results not sorted descending at %d", i)
		}
	}
	for _, r := range results {
		if r.Score < 0 || r.Score > 1 {
			t.Fatalf("score out of range: %f", r.Score)
		}
	}
}

func TestSearch_DeduplicatesNearIdentical(t *testing.T) {
	// Two copies of the same maintenance note, one with a single extra word,
	// plus a distinct chunk. The near-duplicate pair shares well over 80% of
	// its words.
	base := "detector maintenance requires isolating the loop amplifier and checking continuity on every lead before replacement"
	chunks := []schema.Chunk{
		{ID: "dup-a", Content: base, Embedding: []float32{1, 0, 0}},
		{ID: "dup-b", Content: base + " today", Embedding: []float32{0.99, 0.1, 0}},
		{ID: "other", Content: "signal retiming procedure for the harbor corridor", Embedding: []float32{0.8, 0.5, 0}},
	}
	cfg := config.Default().Retrieval
	h := New(nil, newIndex(t, chunks), nil, nil, cfg)

	results, err := h.Search(context.Background(), []float32{1, 0, 0}, "detector maintenance", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	seen := map[string]bool{}
	for _, r := range results {
		seen[r.Chunk.ID] = true
	}
	if seen["dup-a"] && seen["dup-b"] {
		t.Fatalf("expected one of the near-duplicates dropped, got %v", seen)
	}
	if !seen["other"] {
		t.Fatal("distinct chunk must survive dedup")
	}
	// The survivor must be the higher scored of the pair.
	if !seen["dup-a"] {
		t.Fatal("expected the closer duplicate to survive")
	}
}

func TestSearch_TenChunkCorpusDropsNearDuplicate(t *testing.T) {
	note := "weekly congestion summary for the central corridor covering volume trends and signal timing observations"
	var chunks []schema.Chunk
	for i := 0; i < 10; i++ {
		content := fmt.Sprintf("report %d on lane closures and detour routing near gate %d", i, i)
		vec := []float32{1, float32(10 - i), 0}
		switch i {
		case 3:
			content = note
			vec = []float32{1, 0.1, 0}
		case 7:
			content = note + " appendix"
			vec = []float32{1, 0.3, 0}
		}
		chunks = append(chunks, schema.Chunk{ID: fmt.Sprintf("c%d", i), Content: content, Embedding: vec})
	}
	cfg := config.Default().Retrieval
	cfg.TopK = 5
	h := New(nil, newIndex(t, chunks), nil, nil, cfg)

	results, err := h.Search(context.Background(), []float32{1, 0, 0}, "congestion summary", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) > 5 {
		t.Fatalf("expected at most topK results, got %d", len(results))
	}
	seen := map[string]bool{}
	for _, r := range results {
		seen[r.Chunk.ID] = true
	}
	if !seen["c3"] {
		t.Fatal("higher-scored duplicate must be kept")
	}
	if seen["c7"] {
		t.Fatal("lower-scored near-duplicate must be dropped")
	}
}

func TestSearch_ThresholdDropsWeakMatches(t *testing.T) {
	chunks := []schema.Chunk{
		{ID: "near", Content: "congestion report for central district", Embedding: []float32{1, 0, 0}},
		{ID: "far", Content: "unrelated cafeteria menu", Embedding: []float32{-1, 0, 0}},
	}
	cfg := config.Default().Retrieval
	cfg.Threshold = 0.1
	h := New(nil, newIndex(t, chunks), nil, nil, cfg)

	results, err := h.Search(context.Background(), []float32{1, 0, 0}, "congestion in central", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range results {
		if r.Chunk.ID == "far" {
			t.Fatal("opposite-direction chunk must fall below threshold")
		}
	}
}

func TestSearchText_CachesResults(t *testing.T) {
	chunks := []schema.Chunk{
		{ID: "a", Content: "signal timing plan", Embedding: []float32{1, 0, 0}},
	}
	emb := &constEmbedder{vec: []float32{1, 0, 0}}
	c := cache.New(16, time.Minute)
	h := New(emb, newIndex(t, chunks), nil, c, config.Default().Retrieval)

	first, err := h.SearchText(context.Background(), "signal timing", nil)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := h.SearchText(context.Background(), "signal timing", nil)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if emb.calls != 1 {
		t.Fatalf("cache hit must skip embedding, got %d calls", emb.calls)
	}
	if len(first) != len(second) {
		t.Fatalf("cached results differ: %d vs %d", len(first), len(second))
	}
}

func TestSearch_FilteredWithoutStoreFails(t *testing.T) {
	h := New(nil, newIndex(t, nil), nil, nil, config.Default().Retrieval)

	_, err := h.Search(context.Background(), []float32{1, 0, 0}, "q", map[string]string{"district": "north"})
	if err == nil {
		t.Fatal("expected error for filtered search without a store")
	}
}

func TestJaccard(t *testing.T) {
	if j := jaccard("a b c", "a b c"); j != 1 {
		t.Fatalf("identical texts must score 1, got %f", j)
	}
	if j := jaccard("a b c d", "a b c e"); j != 0.6 {
		t.Fatalf("expected 3/5, got %f", j)
	}
	if j := jaccard("a b", "c d"); j != 0 {
		t.Fatalf("disjoint texts must score 0, got %f", j)
	}
}

func TestKeywordDensity(t *testing.T) {
	terms := []string{"signal", "district"}

	if d := keywordDensity("no relevant words here", terms); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
	d := keywordDensity("signal timing in the district", terms)
	// 2 hits: 0.1*2 + 2/5 = 0.6
	if d < 0.59 || d > 0.61 {
		t.Fatalf("expected ~0.6, got %f", d)
	}
	if d := keywordDensity("signal signal signal", []string{"signal"}); d > 1 {
		t.Fatalf("density must cap at 1, got %f", d)
	}
}
