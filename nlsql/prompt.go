package nlsql

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/citypulse/trafficqa/common/logger"
	"github.com/citypulse/trafficqa/relational"
)

const promptEncoding = "cl100k_base"

var fewShots = []struct {
	question string
	sql      string
}{
	{
		"how many intersections are in district North",
		"SELECT COUNT(*) FROM intersections WHERE district LIKE '%North%'",
	},
	{
		"average vehicle volume per district",
		"SELECT i.district, AVG(f.volume) FROM flow_records f JOIN intersections i ON f.intersection_id = i.id GROUP BY i.district",
	},
	{
		"which intersection had the highest volume in 2024",
		"SELECT i.name, MAX(f.volume) FROM flow_records f JOIN intersections i ON f.intersection_id = i.id WHERE f.recorded_at LIKE '2024%' GROUP BY i.name ORDER BY MAX(f.volume) DESC LIMIT 1",
	},
}

// PromptBuilder assembles SQL-generation prompts under a token budget. When
// the full prompt exceeds the budget, sample rows are dropped first, then
// few-shot examples.
type PromptBuilder struct {
	registry  *relational.Registry
	maxTokens int
	encoder   *tiktoken.Tiktoken
}

// NewPromptBuilder builds a prompt builder. A zero maxTokens disables the
// budget.
func NewPromptBuilder(registry *relational.Registry, maxTokens int) *PromptBuilder {
	enc, err := tiktoken.GetEncoding(promptEncoding)
	if err != nil {
		logger.Warnf("prompt token counting disabled: %v", err)
		enc = nil
	}
	return &PromptBuilder{registry: registry, maxTokens: maxTokens, encoder: enc}
}

// Build renders the generation prompt for a question.
func (p *PromptBuilder) Build(question string) string {
	full := p.render(question, true, true)
	if p.fits(full) {
		return full
	}
	noSamples := p.render(question, false, true)
	if p.fits(noSamples) {
		return noSamples
	}
	return p.render(question, false, false)
}

// Correction renders the retry prompt after a rejected attempt.
func (p *PromptBuilder) Correction(question, previous, reason string) string {
	var b strings.Builder
	b.WriteString("The previous SQL statement was rejected.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	fmt.Fprintf(&b, "Rejected statement: %s\n", previous)
	fmt.Fprintf(&b, "Rejection reason: %s\n\n", reason)
	b.WriteString(p.schemaSection(false))
	b.WriteString("\nReturn a corrected SQL statement only, no explanation.")
	return b.String()
}

func (p *PromptBuilder) render(question string, samples, shots bool) string {
	var b strings.Builder
	b.WriteString("You translate questions about road traffic into SQL for SQLite.\n\n")
	b.WriteString(p.schemaSection(samples))
	if shots {
		b.WriteString("\nExamples:\n")
		for _, s := range fewShots {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", s.question, s.sql)
		}
	}
	fmt.Fprintf(&b, "\nQ: %s\n", question)
	b.WriteString("Return the SQL statement only, no explanation.")
	return b.String()
}

func (p *PromptBuilder) schemaSection(samples bool) string {
	if samples {
		return "Schema:\n" + p.registry.Describe()
	}
	var b strings.Builder
	b.WriteString("Schema:\n")
	for _, t := range p.registry.Tables() {
		cols := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, c.Name+" "+c.Type)
		}
		fmt.Fprintf(&b, "%s(%s)\n", t.Name, strings.Join(cols, ", "))
	}
	return b.String()
}

func (p *PromptBuilder) fits(prompt string) bool {
	if p.maxTokens <= 0 || p.encoder == nil {
		return true
	}
	return len(p.encoder.Encode(prompt, nil, nil)) <= p.maxTokens
}
