package vectorindex

import (
	"context"
	"fmt"
	"strings"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/citypulse/trafficqa/common/logger"
	"github.com/citypulse/trafficqa/config"
	"github.com/citypulse/trafficqa/errs"
	"github.com/citypulse/trafficqa/schema"
)

const (
	fieldID       = "id"
	fieldContent  = "content"
	fieldVector   = "vector"
	fieldMetadata = "metadata"

	defaultSearchEf = 64
)

// FilteredStore is a vector store supporting metadata-filtered search.
type FilteredStore interface {
	Insert(ctx context.Context, chunks []schema.Chunk) error
	Search(ctx context.Context, vector []float32, filter map[string]string, topK int) ([]schema.SearchResult, error)
	Close() error
}

// MilvusStore implements FilteredStore on a Milvus collection. The collection
// schema is (id varchar, content varchar, metadata json, vector float).
type MilvusStore struct {
	client     mclient.Client
	collection string
	dim        int
	searchEf   int
}

// NewMilvusStore connects to Milvus and ensures the collection exists and is
// loaded.
func NewMilvusStore(ctx context.Context, cfg config.VectorDBConfig, dim int) (*MilvusStore, error) {
	c, err := mclient.NewClient(ctx, mclient.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, errs.NewProviderError("milvus", err)
	}

	s := &MilvusStore{
		client:     c,
		collection: cfg.Collection,
		dim:        dim,
		searchEf:   cfg.SearchEf,
	}
	if s.searchEf <= 0 {
		s.searchEf = defaultSearchEf
	}
	if err := s.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return s, nil
}

func (s *MilvusStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return errs.NewProviderError("milvus", err)
	}
	if !exists {
		sch := entity.NewSchema().
			WithName(s.collection).
			WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName(fieldMetadata).WithDataType(entity.FieldTypeJSON)).
			WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))
		if err := s.client.CreateCollection(ctx, sch, 1); err != nil {
			return errs.NewProviderError("milvus", err)
		}
		idx, err := entity.NewIndexHNSW(entity.IP, 8, 200)
		if err != nil {
			return errs.NewProviderError("milvus", err)
		}
		if err := s.client.CreateIndex(ctx, s.collection, fieldVector, idx, false); err != nil {
			return errs.NewProviderError("milvus", err)
		}
		logger.Infof("created milvus collection %s (dim=%d)", s.collection, s.dim)
	}
	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return errs.NewProviderError("milvus", err)
	}
	return nil
}

// Insert upserts chunks into the collection.
func (s *MilvusStore) Insert(ctx context.Context, chunks []schema.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, 0, len(chunks))
	contents := make([]string, 0, len(chunks))
	metas := make([][]byte, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != s.dim {
			return fmt.Errorf("embedding dimension %d does not match collection dimension %d", len(c.Embedding), s.dim)
		}
		ids = append(ids, c.ID)
		contents = append(contents, c.Content)
		metas = append(metas, encodeMetadata(c.Metadata))
		vectors = append(vectors, c.Embedding)
	}

	cols := []entity.Column{
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldContent, contents),
		entity.NewColumnJSONBytes(fieldMetadata, metas),
		entity.NewColumnFloatVector(fieldVector, s.dim, vectors),
	}
	if _, err := s.client.Upsert(ctx, s.collection, "", cols...); err != nil {
		return errs.NewProviderError("milvus", err)
	}
	return nil
}

// Search runs a filtered ANN search. Filter entries become equality terms in
// the boolean expression; an empty filter searches the whole collection.
func (s *MilvusStore) Search(ctx context.Context, vector []float32, filter map[string]string, topK int) ([]schema.SearchResult, error) {
	sp, err := entity.NewIndexHNSWSearchParam(s.searchEf)
	if err != nil {
		return nil, errs.NewProviderError("milvus", err)
	}

	results, err := s.client.Search(ctx, s.collection, nil, filterExpr(filter),
		[]string{fieldID, fieldContent, fieldMetadata},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, entity.IP, topK, sp)
	if err != nil {
		return nil, errs.NewProviderError("milvus", err)
	}

	var out []schema.SearchResult
	for _, r := range results {
		idCol := columnByName(r.Fields, fieldID)
		contentCol := columnByName(r.Fields, fieldContent)
		metaCol := columnByName(r.Fields, fieldMetadata)
		for i := 0; i < r.ResultCount; i++ {
			chunk := &schema.Chunk{}
			if idCol != nil {
				chunk.ID, _ = idCol.GetAsString(i)
			}
			if contentCol != nil {
				chunk.Content, _ = contentCol.GetAsString(i)
			}
			if metaCol != nil {
				if raw, err := metaCol.GetAsString(i); err == nil {
					chunk.Metadata = decodeMetadata(raw)
				}
			}
			out = append(out, schema.SearchResult{Chunk: chunk, Score: float64(r.Scores[i])})
		}
	}
	return out, nil
}

// Close releases the client connection.
func (s *MilvusStore) Close() error {
	return s.client.Close()
}

// filterExpr builds the boolean filter expression. Keys are sorted for a
// stable expression.
func filterExpr(filter map[string]string) string {
	if len(filter) == 0 {
		return ""
	}
	terms := make([]string, 0, len(filter))
	for _, k := range sortedKeys(filter) {
		terms = append(terms, fmt.Sprintf(`%s["%s"] == "%s"`, fieldMetadata, k, escapeExpr(filter[k])))
	}
	return strings.Join(terms, " && ")
}

func escapeExpr(v string) string {
	return strings.ReplaceAll(v, `"`, `\"`)
}

func columnByName(cols []entity.Column, name string) entity.Column {
	for _, c := range cols {
		if c.Name() == name {
			return c
		}
	}
	return nil
}
