// Package router classifies questions into pipeline routes: greeting,
// structured query, or document retrieval. The primary router compares
// question embeddings against per-route example banks; a keyword fallback
// keeps routing available when the embedding provider is not.
package router

import (
	"context"
	"fmt"

	"github.com/citypulse/trafficqa/common/logger"
	"github.com/citypulse/trafficqa/config"
	"github.com/citypulse/trafficqa/embedding"
	"github.com/citypulse/trafficqa/metrics"
	"github.com/citypulse/trafficqa/schema"
	"github.com/citypulse/trafficqa/vectorindex"
)

// Router routes questions. Route never returns an error: degraded inputs
// produce degraded decisions, not failures.
type Router struct {
	provider embedding.Provider
	fallback *KeywordRouter
	cfg      config.RouterConfig

	banks map[schema.Route][][]float32
}

// New builds a router. The provider may be nil, in which case every question
// goes through the keyword fallback.
func New(provider embedding.Provider, cfg config.RouterConfig) *Router {
	return &Router{
		provider: provider,
		fallback: NewKeywordRouter(cfg.FallbackConfidence),
		cfg:      cfg,
	}
}

// Init embeds the per-route example banks. Call once before Route; Route
// falls back to keywords until Init succeeds.
func (r *Router) Init(ctx context.Context) error {
	if r.provider == nil {
		return fmt.Errorf("no embedding provider configured")
	}

	banks := make(map[schema.Route][][]float32)
	for route, examples := range DefaultExamples() {
		vectors := make([][]float32, 0, len(examples))
		for _, ex := range examples {
			vec, err := r.provider.GetEmbedding(ctx, ex)
			if err != nil {
				return fmt.Errorf("embed route example %q: %w", ex, err)
			}
			vectorindex.Normalize(vec)
			vectors = append(vectors, vec)
		}
		banks[route] = vectors
	}
	r.banks = banks
	logger.Infof("router initialized with %d example banks", len(banks))
	return nil
}

// Route classifies a question. Decisions always carry a populated Reasoning
// and a Scores map with every candidate route.
func (r *Router) Route(ctx context.Context, question string) schema.RouteDecision {
	d := r.route(ctx, question)
	metrics.IncRouteDecision(string(d.Route))
	return d
}

func (r *Router) route(ctx context.Context, question string) schema.RouteDecision {
	if r.provider == nil || len(r.banks) == 0 {
		return r.fallback.Route(question)
	}

	vec, err := r.provider.GetEmbedding(ctx, question)
	if err != nil {
		logger.Warnf("routing embedding failed, using keyword fallback: %v", err)
		return r.fallback.Route(question)
	}
	vectorindex.Normalize(vec)

	scores := map[schema.Route]float64{
		schema.RouteGreeting:   r.bankScore(schema.RouteGreeting, vec),
		schema.RouteStructured: r.bankScore(schema.RouteStructured, vec),
		schema.RouteDocuments:  r.bankScore(schema.RouteDocuments, vec),
	}
	return r.decide(scores)
}

// bankScore is the best cosine similarity against the route's examples,
// clamped to [0, 1].
func (r *Router) bankScore(route schema.Route, vec []float32) float64 {
	best := 0.0
	for _, example := range r.banks[route] {
		if len(example) != len(vec) {
			continue
		}
		if s := float64(vectorindex.Dot(vec, example)); s > best {
			best = s
		}
	}
	if best > 1 {
		best = 1
	}
	return best
}

// decide applies the gates in fixed order: unknown floor, greeting,
// structured over documents, documents, then degraded documents.
func (r *Router) decide(scores map[schema.Route]float64) schema.RouteDecision {
	greeting := scores[schema.RouteGreeting]
	structured := scores[schema.RouteStructured]
	documents := scores[schema.RouteDocuments]

	best := greeting
	if structured > best {
		best = structured
	}
	if documents > best {
		best = documents
	}

	d := schema.RouteDecision{Scores: scores}
	switch {
	case best < r.cfg.MinScore:
		d.Route = schema.RouteUnknown
		d.Confidence = best
		d.Reasoning = fmt.Sprintf("best similarity %.2f below minimum %.2f", best, r.cfg.MinScore)
	case greeting > r.cfg.GreetingGate && greeting >= structured && greeting >= documents:
		d.Route = schema.RouteGreeting
		d.Confidence = greeting
		d.Reasoning = fmt.Sprintf("greeting similarity %.2f above gate %.2f", greeting, r.cfg.GreetingGate)
	case structured > documents && structured > r.cfg.StructuredGate:
		d.Route = schema.RouteStructured
		d.Confidence = structured
		d.Reasoning = fmt.Sprintf("structured similarity %.2f beats documents %.2f", structured, documents)
	case documents > r.cfg.DocumentGate:
		d.Route = schema.RouteDocuments
		d.Confidence = documents
		d.Reasoning = fmt.Sprintf("document similarity %.2f above gate %.2f", documents, r.cfg.DocumentGate)
	default:
		lower := structured
		if documents < lower {
			lower = documents
		}
		d.Route = schema.RouteDocuments
		d.Confidence = lower
		d.Reasoning = fmt.Sprintf("no gate cleared, defaulting to document retrieval at %.2f", lower)
	}
	return d
}
