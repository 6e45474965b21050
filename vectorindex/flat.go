// Package vectorindex provides the vector stores behind retrieval: an exact
// brute-force index with disk persistence for small corpora, and a Milvus
// backed store for filtered search at scale.
package vectorindex

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/citypulse/trafficqa/schema"
)

const (
	vectorsSuffix = ".vec"
	chunksSuffix  = ".chunks"
	metaSuffix    = ".meta.json"
)

// indexMeta is the sidecar describing a persisted index. The three files are
// loaded as one unit; a count mismatch fails the load.
type indexMeta struct {
	Dimension  int  `json:"dimension"`
	Normalized bool `json:"normalized"`
	Count      int  `json:"count"`
}

// FlatIndex is an exact-scan vector index. Vectors are L2-normalized on
// insert so the dot product is cosine similarity. Safe for concurrent use.
type FlatIndex struct {
	mu         sync.RWMutex
	dim        int
	normalized bool
	vectors    [][]float32
	chunks     []schema.Chunk
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim, normalized: true}
}

// Len returns the number of stored chunks.
func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.chunks)
}

// Add stores chunks with their embeddings. Embeddings are copied and
// normalized; the caller's slices are not modified.
func (f *FlatIndex) Add(chunks []schema.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range chunks {
		if len(c.Embedding) != f.dim {
			return fmt.Errorf("embedding dimension %d does not match index dimension %d", len(c.Embedding), f.dim)
		}
		vec := make([]float32, f.dim)
		copy(vec, c.Embedding)
		Normalize(vec)
		f.vectors = append(f.vectors, vec)
		f.chunks = append(f.chunks, c)
	}
	return nil
}

// Search returns the topK chunks by cosine similarity to query. The query is
// normalized internally; scores are raw cosine in [-1, 1].
func (f *FlatIndex) Search(query []float32, topK int) ([]schema.SearchResult, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), f.dim)
	}
	if topK <= 0 {
		return nil, nil
	}

	q := make([]float32, f.dim)
	copy(q, query)
	Normalize(q)

	f.mu.RLock()
	defer f.mu.RUnlock()

	results := make([]schema.SearchResult, 0, len(f.chunks))
	for i := range f.chunks {
		chunk := f.chunks[i]
		results = append(results, schema.SearchResult{
			Chunk: &chunk,
			Score: float64(Dot(q, f.vectors[i])),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Save persists the index as three files sharing the path prefix: gob-encoded
// vectors, gob-encoded chunks, and a JSON metadata sidecar.
func (f *FlatIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := writeGob(path+vectorsSuffix, f.vectors); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	if err := writeGob(path+chunksSuffix, f.chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	meta := indexMeta{Dimension: f.dim, Normalized: f.normalized, Count: len(f.chunks)}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := os.WriteFile(path+metaSuffix, raw, 0o644); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return nil
}

// Load reads an index persisted by Save. The metadata sidecar is the source
// of truth for dimension and count.
func Load(path string) (*FlatIndex, error) {
	raw, err := os.ReadFile(path + metaSuffix)
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	var meta indexMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}

	var vectors [][]float32
	if err := readGob(path+vectorsSuffix, &vectors); err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	var chunks []schema.Chunk
	if err := readGob(path+chunksSuffix, &chunks); err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	if len(vectors) != meta.Count || len(chunks) != meta.Count {
		return nil, fmt.Errorf("index corrupt: meta count %d, %d vectors, %d chunks", meta.Count, len(vectors), len(chunks))
	}

	return &FlatIndex{
		dim:        meta.Dimension,
		normalized: meta.Normalized,
		vectors:    vectors,
		chunks:     chunks,
	}, nil
}

func writeGob(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gob.NewEncoder(file).Encode(v)
}

func readGob(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gob.NewDecoder(file).Decode(v)
}

// Normalize scales vec to unit length in place. Zero vectors are left as is.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
