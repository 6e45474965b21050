package nlsql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/citypulse/trafficqa/cache"
	"github.com/citypulse/trafficqa/config"
	"github.com/citypulse/trafficqa/relational"
	"github.com/citypulse/trafficqa/schema"
)

type scriptedLLM struct {
	replies []string
	err     error
	calls   int
}

func (s *scriptedLLM) GenerateCompletion(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	idx := s.calls - 1
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	return s.replies[idx], nil
}

func (s *scriptedLLM) GetProviderType() string { return "scripted" }

func genConfig() config.GeneratorConfig {
	return config.GeneratorConfig{
		FastPathConfidence: 0.7,
		MaxAttempts:        3,
		MaxPromptTokens:    4096,
		CacheTTLSeconds:    300,
	}
}

func TestGenerator_FastPathSkipsLLM(t *testing.T) {
	mock := &scriptedLLM{replies: []string{"SELECT 1"}}
	g := NewGenerator(relational.DefaultTraffic(), nil, mock, nil, genConfig())

	q := g.Generate(context.Background(), "How many intersections are in district North?")

	if !q.Validated {
		t.Fatalf("expected validated query, got error %q", q.Error)
	}
	if q.Source != schema.SourceRuleBased {
		t.Fatalf("expected rule-based source, got %s", q.Source)
	}
	if q.Text != "SELECT COUNT(*) FROM intersections WHERE district LIKE '%North%'" {
		t.Fatalf("unexpected statement %q", q.Text)
	}
	if mock.calls != 0 {
		t.Fatalf("fast path must not touch the llm, got %d calls", mock.calls)
	}
}

func TestGenerator_LLMPathOnLowConfidence(t *testing.T) {
	mock := &scriptedLLM{replies: []string{"```sql\nSELECT * FROM devices WHERE status = 'faulty';\n```"}}
	g := NewGenerator(relational.DefaultTraffic(), nil, mock, nil, genConfig())

	q := g.Generate(context.Background(), "anything looking off out there lately")

	if !q.Validated {
		t.Fatalf("expected validated query, got error %q", q.Error)
	}
	if q.Source != schema.SourceLLMGenerated {
		t.Fatalf("expected llm source, got %s", q.Source)
	}
	if q.Text != "SELECT * FROM devices WHERE status = 'faulty'" {
		t.Fatalf("expected sanitized statement, got %q", q.Text)
	}
	if mock.calls != 1 {
		t.Fatalf("expected a single llm call, got %d", mock.calls)
	}
}

func TestGenerator_RetriesThenAccepts(t *testing.T) {
	mock := &scriptedLLM{replies: []string{
		"this is not sql at all, sorry",
		"SELECT * FROM devices WHERE kind = 'camera'",
	}}
	g := NewGenerator(relational.DefaultTraffic(), nil, mock, nil, genConfig())

	q := g.Generate(context.Background(), "tell me something about the field equipment")

	if !q.Validated {
		t.Fatalf("expected second attempt to validate, got error %q", q.Error)
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 llm calls, got %d", mock.calls)
	}
}

func TestGenerator_RetryBudgetIsBounded(t *testing.T) {
	mock := &scriptedLLM{replies: []string{"not sql, never will be"}}
	g := NewGenerator(relational.DefaultTraffic(), nil, mock, nil, genConfig())

	q := g.Generate(context.Background(), "tell me something about the field equipment")

	if q.Validated {
		t.Fatal("expected failure after exhausting retries")
	}
	if q.Error == "" {
		t.Fatal("expected error message on failed query")
	}
	if mock.calls != 3 {
		t.Fatalf("expected exactly 3 llm calls, got %d", mock.calls)
	}
}

func TestGenerator_ProviderErrorStopsLoop(t *testing.T) {
	mock := &scriptedLLM{err: errors.New("upstream unavailable")}
	g := NewGenerator(relational.DefaultTraffic(), nil, mock, nil, genConfig())

	q := g.Generate(context.Background(), "tell me something about the field equipment")

	if q.Validated {
		t.Fatal("expected failure on provider error")
	}
	if mock.calls != 1 {
		t.Fatalf("provider errors must not be retried, got %d calls", mock.calls)
	}
}

func TestGenerator_NilProvider(t *testing.T) {
	g := NewGenerator(relational.DefaultTraffic(), nil, nil, nil, genConfig())

	q := g.Generate(context.Background(), "tell me something about the field equipment")
	if q.Validated {
		t.Fatal("expected failure without a provider")
	}
	if q.Error == "" {
		t.Fatal("expected an error message")
	}
}

func TestGenerator_CachesValidatedOnly(t *testing.T) {
	c := cache.New(16, time.Minute)

	bad := &scriptedLLM{replies: []string{"nope"}}
	g := NewGenerator(relational.DefaultTraffic(), nil, bad, c, genConfig())
	q := g.Generate(context.Background(), "tell me something about the field equipment")
	if q.Validated {
		t.Fatal("setup expects a failed generation")
	}
	if c.Stats().Size != 0 {
		t.Fatal("failed generations must not be cached")
	}

	good := &scriptedLLM{replies: []string{"SELECT * FROM devices"}}
	g = NewGenerator(relational.DefaultTraffic(), nil, good, c, genConfig())
	first := g.Generate(context.Background(), "tell me something about the field equipment")
	if !first.Validated {
		t.Fatalf("expected validated query, got %q", first.Error)
	}

	second := g.Generate(context.Background(), "tell me something about the field equipment")
	if second.Text != first.Text {
		t.Fatalf("expected cached statement, got %q", second.Text)
	}
	if good.calls != 1 {
		t.Fatalf("cache hit must skip the llm, got %d calls", good.calls)
	}
}

func TestGenerator_ExecuteRefusesUnvalidated(t *testing.T) {
	g := NewGenerator(relational.DefaultTraffic(), nil, nil, nil, genConfig())

	exec, err := relational.NewSQLExecutor(config.DatabaseConfig{DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open executor: %v", err)
	}
	defer exec.Close()

	_, err = g.Execute(context.Background(), exec, schema.GeneratedQuery{Text: "SELECT 1"})
	if err == nil {
		t.Fatal("expected refusal for unvalidated query")
	}
}
