package nlsql

import (
	"github.com/citypulse/trafficqa/relational"
	"github.com/citypulse/trafficqa/schema"
)

// Confidence contributions of the extraction stages.
const (
	kindWeight   = 0.3
	tableWeight  = 0.3
	columnWeight = 0.4
)

// Extractor turns a question into a SlotSet against a fixed registry. It is
// pure: no I/O, no state mutation, deterministic for a given question.
type Extractor struct {
	registry *relational.Registry
	cues     CueMatcher
}

// NewExtractor builds an extractor. A nil matcher falls back to the English
// tables.
func NewExtractor(registry *relational.Registry, cues CueMatcher) *Extractor {
	if cues == nil {
		cues = NewEnglishMatcher()
	}
	return &Extractor{registry: registry, cues: cues}
}

// Extract resolves the question into slots. Confidence accumulates 0.3 for a
// detected aggregation kind, 0.3 for a table alias hit, and 0.4 when at least
// one column alias resolved (columns other than the wildcard).
func (e *Extractor) Extract(question string) schema.SlotSet {
	slots := schema.SlotSet{Kind: schema.KindSelect}

	kind, kindScore := e.cues.Classify(question)
	slots.Kind = kind
	if kindScore > 0 {
		slots.Confidence += kindWeight
	}

	table, tableHit := e.resolveTable(question)
	slots.Table = table.Name
	if tableHit {
		slots.Confidence += tableWeight
	}

	slots.Columns = e.resolveColumns(question, table)
	if len(slots.Columns) > 0 && slots.Columns[0] != "*" {
		slots.Confidence += columnWeight
	}

	slots.Conditions = e.cues.Conditions(question, table)
	slots.GroupBy, slots.OrderBy, slots.Limit = e.cues.Modifiers(question, table)
	return slots
}

// resolveTable picks the first table whose alias occurs in the question, in
// registry order; without a hit the registry primary is used.
func (e *Extractor) resolveTable(question string) (relational.Table, bool) {
	for _, t := range e.registry.Tables() {
		aliases := append([]string{t.Name}, t.Aliases...)
		if len(e.cues.MatchAliases(question, aliases)) > 0 {
			return t, true
		}
	}
	return e.registry.Primary(), false
}

// resolveColumns collects columns whose aliases occur in the question, each
// column at most once, in order of first match. Without a hit the wildcard
// is returned.
func (e *Extractor) resolveColumns(question string, table relational.Table) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, c := range table.Columns {
		if seen[c.Name] {
			continue
		}
		aliases := append([]string{c.Name}, c.Aliases...)
		if len(e.cues.MatchAliases(question, aliases)) > 0 {
			cols = append(cols, c.Name)
			seen[c.Name] = true
		}
	}
	if len(cols) == 0 {
		return []string{"*"}
	}
	return cols
}
