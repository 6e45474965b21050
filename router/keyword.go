package router

import (
	"fmt"
	"strings"

	"github.com/citypulse/trafficqa/schema"
)

// cue families for the rule-based fallback. Checked against the lowercased
// question.
var (
	greetingCues = []string{
		"hello", "hi ", "hi!", "hi?", "hey", "good morning", "good afternoon",
		"good evening", "thanks", "thank you", "goodbye", "bye",
	}
	structuredCues = []string{
		"how many", "number of", "count", "average", "total", "sum",
		"highest", "lowest", "maximum", "minimum", "top ", "per district",
		"more than", "less than",
	}
	documentCues = []string{
		"what does", "what is", "explain", "describe", "summarize", "summary",
		"procedure", "policy", "report", "study", "tell me about", "how do i",
		"how to",
	}
)

// KeywordRouter is the deterministic fallback used when no embedding
// provider is available or the provider fails. Confidence is capped by the
// configured fallback ceiling.
type KeywordRouter struct {
	confidence float64
}

// NewKeywordRouter builds the fallback router with the given confidence
// ceiling.
func NewKeywordRouter(confidence float64) *KeywordRouter {
	if confidence <= 0 || confidence > 1 {
		confidence = 0.5
	}
	return &KeywordRouter{confidence: confidence}
}

// Route classifies by cue families. Greeting cues win outright; otherwise the
// family with more hits wins; total ambiguity degrades to the document route.
func (k *KeywordRouter) Route(question string) schema.RouteDecision {
	lower := strings.ToLower(strings.TrimSpace(question))
	if lower == "hi" {
		lower = "hi "
	}

	greet := countCues(lower, greetingCues)
	structured := countCues(lower, structuredCues)
	document := countCues(lower, documentCues)

	decision := schema.RouteDecision{
		Scores: map[schema.Route]float64{
			schema.RouteGreeting:   cueScore(greet),
			schema.RouteStructured: cueScore(structured),
			schema.RouteDocuments:  cueScore(document),
		},
	}

	switch {
	case greet > 0 && structured == 0 && document == 0:
		decision.Route = schema.RouteGreeting
		decision.Confidence = k.confidence
		decision.Reasoning = "greeting cue matched"
	case structured > document:
		decision.Route = schema.RouteStructured
		decision.Confidence = k.confidence
		decision.Reasoning = fmt.Sprintf("%d structured cues vs %d document cues", structured, document)
	case document > 0:
		decision.Route = schema.RouteDocuments
		decision.Confidence = k.confidence
		decision.Reasoning = fmt.Sprintf("%d document cues matched", document)
	default:
		decision.Route = schema.RouteDocuments
		decision.Confidence = k.confidence
		decision.Reasoning = "no cue matched, defaulting to document retrieval"
	}
	return decision
}

func countCues(text string, cues []string) int {
	hits := 0
	for _, c := range cues {
		if strings.Contains(text, c) {
			hits++
		}
	}
	return hits
}

// cueScore maps a hit count into [0, 1] for the decision's score map.
func cueScore(hits int) float64 {
	s := 0.3 * float64(hits)
	if s > 1 {
		return 1
	}
	return s
}
