package retriever

import "strings"

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range tokenize(text) {
		set[w] = struct{}{}
	}
	return set
}

// jaccard is the word-set similarity of two texts. Two empty texts count as
// identical.
func jaccard(a, b string) float64 {
	sa, sb := wordSet(a), wordSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	inter := 0
	for w := range sa {
		if _, ok := sb[w]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// keywordDensity scores how strongly the chunk carries the question's
// important terms: 0.1 per distinct hit plus the hit fraction of the chunk's
// words, capped at 1.
func keywordDensity(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	words := tokenize(content)
	if len(words) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}

	hits := 0
	for _, term := range terms {
		if _, ok := set[strings.ToLower(term)]; ok {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	score := 0.1*float64(hits) + float64(hits)/float64(len(words))
	if score > 1 {
		return 1
	}
	return score
}

// questionTerms picks the important terms present in the question from the
// configured bank.
func questionTerms(question string, bank []string) []string {
	set := wordSet(question)
	var terms []string
	for _, t := range bank {
		if _, ok := set[strings.ToLower(t)]; ok {
			terms = append(terms, t)
		}
	}
	return terms
}
