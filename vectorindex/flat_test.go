package vectorindex

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/citypulse/trafficqa/schema"
)

func testChunks() []schema.Chunk {
	return []schema.Chunk{
		{ID: "a", Content: "signal timing plan", Embedding: []float32{1, 0, 0}},
		{ID: "b", Content: "detector maintenance", Embedding: []float32{0, 1, 0}},
		{ID: "c", Content: "timing adjustments", Embedding: []float32{0.9, 0.1, 0}},
	}
}

func TestFlatIndex_SearchRanksByCosine(t *testing.T) {
	idx := NewFlatIndex(3)
	if err := idx.Add(testChunks()); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := idx.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ID != "a" || results[1].Chunk.ID != "c" {
		t.Fatalf("unexpected ranking: %s, %s", results[0].Chunk.ID, results[1].Chunk.ID)
	}
	if results[0].Score < 0.999 {
		t.Fatalf("identical direction should score ~1, got %f", results[0].Score)
	}
}

func TestFlatIndex_RejectsDimensionMismatch(t *testing.T) {
	idx := NewFlatIndex(3)

	if err := idx.Add([]schema.Chunk{{ID: "x", Embedding: []float32{1, 0}}}); err == nil {
		t.Fatal("expected dimension error on add")
	}
	if _, err := idx.Search([]float32{1, 0}, 1); err == nil {
		t.Fatal("expected dimension error on search")
	}
}

func TestFlatIndex_SaveLoadRoundTrip(t *testing.T) {
	idx := NewFlatIndex(3)
	if err := idx.Add(testChunks()); err != nil {
		t.Fatalf("add: %v", err)
	}

	path := filepath.Join(t.TempDir(), "index")
	if err := idx.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != idx.Len() {
		t.Fatalf("expected %d chunks after load, got %d", idx.Len(), loaded.Len())
	}

	query := []float32{0.9, 0.1, 0}
	want, err := idx.Search(query, 3)
	if err != nil {
		t.Fatalf("search original: %v", err)
	}
	got, err := loaded.Search(query, 3)
	if err != nil {
		t.Fatalf("search loaded: %v", err)
	}
	for i := range want {
		if want[i].Chunk.ID != got[i].Chunk.ID {
			t.Fatalf("rank %d differs: %s vs %s", i, want[i].Chunk.ID, got[i].Chunk.ID)
		}
		if math.Abs(want[i].Score-got[i].Score) > 1e-6 {
			t.Fatalf("rank %d score differs: %f vs %f", i, want[i].Score, got[i].Score)
		}
	}
}

func TestLoad_RejectsMissingParts(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing index files")
	}
}

func TestNormalize_ZeroVectorUnchanged(t *testing.T) {
	vec := []float32{0, 0, 0}
	Normalize(vec)
	for _, v := range vec {
		if v != 0 {
			t.Fatal("zero vector must stay zero")
		}
	}
}
