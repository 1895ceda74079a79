package similarity

import (
	"math"
	"strings"
)

// Lexical scores the textual similarity of a query against content.
// Implementations return a value in [0, 1].
type Lexical func(query, text string) float64

// Vector scores the similarity of two embeddings. Implementations
// return a value in [0, 1].
type Vector func(a, b []float32) float64

// Cosine computes cosine similarity between two vectors, clamped to
// [0, 1]. Mismatched dimensions and zero vectors score 0.0 so that
// callers always receive a finite non-negative value.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0.0 || normB == 0.0 {
		return 0.0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0.0 {
		return 0.0
	}
	if sim > 1.0 {
		// Float accumulation can nudge identical vectors past 1.
		return 1.0
	}
	return sim
}

// Bigram computes lexical similarity as Jaccard overlap of character
// 2-gram sets. Comparison is case-insensitive. A query shorter than
// two runes degrades to substring containment.
func Bigram(query, text string) float64 {
	query = strings.ToLower(query)
	text = strings.ToLower(text)
	if query == text {
		return 1.0
	}

	qGrams := bigrams(query)
	if len(qGrams) == 0 {
		if query != "" && strings.Contains(text, query) {
			return 1.0
		}
		return 0.0
	}
	tGrams := bigrams(text)
	if len(tGrams) == 0 {
		return 0.0
	}

	var common int
	for g := range qGrams {
		if _, ok := tGrams[g]; ok {
			common++
		}
	}
	union := len(qGrams) + len(tGrams) - common
	return float64(common) / float64(union)
}

// bigrams returns the set of adjacent rune pairs in s.
func bigrams(s string) map[string]struct{} {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	set := make(map[string]struct{}, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		set[string(runes[i:i+2])] = struct{}{}
	}
	return set
}
