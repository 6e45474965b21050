package nlsql

import (
	"context"
	"strings"
	"time"

	"github.com/citypulse/trafficqa/cache"
	"github.com/citypulse/trafficqa/common/logger"
	"github.com/citypulse/trafficqa/config"
	"github.com/citypulse/trafficqa/errs"
	"github.com/citypulse/trafficqa/llm"
	"github.com/citypulse/trafficqa/metrics"
	"github.com/citypulse/trafficqa/relational"
	"github.com/citypulse/trafficqa/schema"
)

// genState tracks a generation run through its bounded lifecycle.
type genState int

const (
	stateGenerate genState = iota
	stateValidate
	stateCorrecting
	stateAccepted
	stateFailed
)

// Generator produces SQL for a question: a rule-based fast path when slot
// extraction is confident enough, otherwise LLM synthesis bounded by a
// validate/retry loop. Generate never returns a Go error; failures surface
// on the GeneratedQuery.
type Generator struct {
	extractor *Extractor
	prompts   *PromptBuilder
	provider  llm.Provider
	cache     *cache.ResultCache
	registry  *relational.Registry
	cfg       config.GeneratorConfig
}

// NewGenerator wires a generator. The provider may be nil, in which case only
// the rule-based path is available. The cache may be nil to disable caching.
func NewGenerator(registry *relational.Registry, cues CueMatcher, provider llm.Provider, resultCache *cache.ResultCache, cfg config.GeneratorConfig) *Generator {
	return &Generator{
		extractor: NewExtractor(registry, cues),
		prompts:   NewPromptBuilder(registry, cfg.MaxPromptTokens),
		provider:  provider,
		cache:     resultCache,
		registry:  registry,
		cfg:       cfg,
	}
}

// Generate turns a question into a validated SQL statement where possible.
// The schema fingerprint scopes cache entries so schema changes invalidate
// hits.
func (g *Generator) Generate(ctx context.Context, question string) schema.GeneratedQuery {
	fingerprint := g.registry.Fingerprint()
	if g.cache != nil {
		if cached, ok := g.cache.Get(question, fingerprint); ok {
			if q, ok := cached.(schema.GeneratedQuery); ok {
				logger.Debugf("generator cache hit for %q", question)
				return q
			}
		}
	}

	slots := g.extractor.Extract(question)
	var result schema.GeneratedQuery
	if slots.Confidence > g.cfg.FastPathConfidence {
		result = g.fastPath(slots)
	} else {
		result = g.llmPath(ctx, question)
	}

	metrics.IncGeneration(string(result.Source), result.Validated)
	if result.Validated && g.cache != nil {
		g.cache.Put(question, fingerprint, result, time.Duration(g.cfg.CacheTTLSeconds)*time.Second)
	}
	return result
}

// fastPath renders the slots directly. Rendered statements are validated with
// the same checks as LLM output.
func (g *Generator) fastPath(slots schema.SlotSet) schema.GeneratedQuery {
	text := Render(slots)
	q := schema.GeneratedQuery{
		Text:       text,
		Kind:       slots.Kind,
		Confidence: slots.Confidence,
		Source:     schema.SourceRuleBased,
	}
	if err := Validate(text); err != nil {
		q.Error = err.Error()
		return q
	}
	q.Validated = true
	return q
}

// llmPath runs the bounded generate/validate/correct loop. The provider is
// called at most MaxAttempts times in total, corrections included.
func (g *Generator) llmPath(ctx context.Context, question string) schema.GeneratedQuery {
	q := schema.GeneratedQuery{Source: schema.SourceLLMGenerated}
	if g.provider == nil {
		q.Error = "no llm provider configured"
		return q
	}

	state := stateGenerate
	prompt := g.prompts.Build(question)
	attempts := 0
	var lastErr string

	for state != stateAccepted && state != stateFailed {
		switch state {
		case stateGenerate, stateCorrecting:
			if attempts >= g.cfg.MaxAttempts {
				state = stateFailed
				continue
			}
			attempts++
			raw, err := g.provider.GenerateCompletion(ctx, prompt)
			if err != nil {
				logger.Warnf("llm generation attempt %d failed: %v", attempts, err)
				lastErr = err.Error()
				state = stateFailed
				continue
			}
			q.Text = SanitizeSQL(raw)
			state = stateValidate
		case stateValidate:
			if err := Validate(q.Text); err != nil {
				lastErr = err.Error()
				logger.Debugf("llm attempt %d rejected: %s", attempts, lastErr)
				prompt = g.prompts.Correction(question, q.Text, lastErr)
				state = stateCorrecting
				continue
			}
			state = stateAccepted
		}
	}

	metrics.ObserveLLMAttempts(attempts)
	if state == stateAccepted {
		q.Validated = true
		q.Kind = detectKind(q.Text)
		q.Confidence = g.cfg.FastPathConfidence
		return q
	}
	if lastErr == "" {
		lastErr = "generation exhausted retry budget"
	}
	q.Error = lastErr
	return q
}

// Execute runs a validated query against the executor. Unvalidated queries
// are refused.
func (g *Generator) Execute(ctx context.Context, exec relational.Executor, q schema.GeneratedQuery) (*schema.QueryResult, error) {
	if !q.Validated {
		return nil, errs.NewValidationError("refusing to execute unvalidated statement")
	}
	return exec.Execute(ctx, q.Text)
}

// SanitizeSQL strips the decoration LLMs wrap around SQL: markdown fences,
// leading prose before the first statement keyword, and a trailing
// semicolon.
func SanitizeSQL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```sql")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	upper := strings.ToUpper(s)
	start := len(s)
	for _, kw := range statementKeywords {
		if i := strings.Index(upper, kw); i >= 0 && i < start {
			start = i
		}
	}
	if start < len(s) {
		s = s[start:]
	}

	s = strings.TrimSuffix(strings.TrimSpace(s), ";")
	return strings.TrimSpace(s)
}

func detectKind(sql string) schema.QueryKind {
	upper := strings.ToUpper(sql)
	switch {
	case strings.Contains(upper, "COUNT("):
		return schema.KindCount
	case strings.Contains(upper, "SUM("):
		return schema.KindSum
	case strings.Contains(upper, "AVG("):
		return schema.KindAvg
	case strings.Contains(upper, "MAX("):
		return schema.KindMax
	case strings.Contains(upper, "MIN("):
		return schema.KindMin
	default:
		return schema.KindSelect
	}
}
