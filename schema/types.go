package schema

import "time"

// Route identifies the destination pipeline chosen for a question.
type Route string

const (
	RouteGreeting   Route = "greeting"
	RouteStructured Route = "structured_query"
	RouteDocuments  Route = "document_search"
	RouteUnknown    Route = "unknown"
)

// RouteDecision is the immutable per-request classification result.
type RouteDecision struct {
	Route      Route             `json:"route"`
	Confidence float64           `json:"confidence"` // [0, 1]
	Reasoning  string            `json:"reasoning"`  // always populated for observability
	Scores     map[Route]float64 `json:"scores,omitempty"`
}

// QueryKind is the detected aggregation family of a structured query.
type QueryKind string

const (
	KindSelect QueryKind = "select"
	KindCount  QueryKind = "count"
	KindSum    QueryKind = "sum"
	KindAvg    QueryKind = "avg"
	KindMax    QueryKind = "max"
	KindMin    QueryKind = "min"
)

// Operator is a comparison operator in an extracted condition.
type Operator string

const (
	OpEq   Operator = "="
	OpGt   Operator = ">"
	OpLt   Operator = "<"
	OpGte  Operator = ">="
	OpLte  Operator = "<="
	OpLike Operator = "LIKE"
)

// Condition is a single WHERE clause element extracted from a question.
type Condition struct {
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// SlotSet holds the structured query elements extracted from a question.
// Built once per question and consumed immediately by the generator.
type SlotSet struct {
	Kind       QueryKind   `json:"kind"`
	Table      string      `json:"table"`
	Columns    []string    `json:"columns"` // ordered, deduplicated; ["*"] when nothing matched
	Conditions []Condition `json:"conditions,omitempty"`
	GroupBy    []string    `json:"group_by,omitempty"`
	OrderBy    []string    `json:"order_by,omitempty"`
	Limit      int         `json:"limit,omitempty"` // 0 means unset
	Confidence float64     `json:"confidence"`
}

// QuerySource records which path produced a generated query.
type QuerySource string

const (
	SourceRuleBased    QuerySource = "rule_based"
	SourceLLMGenerated QuerySource = "llm_generated"
)

// GeneratedQuery is the output of the query generator. Execution is only
// permitted when Validated is true.
type GeneratedQuery struct {
	Text       string      `json:"text"`
	Kind       QueryKind   `json:"kind"`
	Confidence float64     `json:"confidence"`
	Source     QuerySource `json:"source"`
	Validated  bool        `json:"validated"`
	Error      string      `json:"error,omitempty"`
}

// QueryResult is the outcome of executing a query against the relational
// backend. Read queries populate Columns/Rows; mutations populate
// AffectedRows.
type QueryResult struct {
	Columns      []string   `json:"columns,omitempty"`
	Rows         [][]string `json:"rows,omitempty"`
	AffectedRows int64      `json:"affected_rows,omitempty"`
	Mutation     bool       `json:"mutation"`
}

// Chunk is a document fragment with its precomputed embedding. Owned by the
// retrieval index and immutable after ingestion.
type Chunk struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Embedding []float32      `json:"embedding,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// SearchResult pairs a chunk reference with its retrieval score. Result
// lists are sorted descending by score.
type SearchResult struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}
