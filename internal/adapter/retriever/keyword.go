// Package retriever provides the keyword fallback used when vector search
// is unavailable or degraded. It ranks cached chunks by lexical overlap
// with the query; cheaper and cruder than semantic search, but it keeps
// the service answering while the embedding service is down.
package retriever

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var wordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\d+`)

// Match is one keyword-ranked chunk. Score is the Ochiai coefficient of
// the query and chunk token sets, in [0, 1]; higher is better.
type Match struct {
	Index int
	Score float64
}

// KeywordMatcher scores chunks by token-set overlap with the query.
type KeywordMatcher struct{}

func NewKeywordMatcher() *KeywordMatcher {
	return &KeywordMatcher{}
}

// Rank returns up to topK chunks with a nonzero overlap score, best first.
func (m *KeywordMatcher) Rank(query string, chunks []string, topK int) []Match {
	qset := tokenSet(query)
	if len(qset) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(chunks))
	for i, chunk := range chunks {
		score := ochiai(qset, tokenSet(chunk))
		if score > 0 {
			matches = append(matches, Match{Index: i, Score: score})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool { return matches[a].Score > matches[b].Score })

	if topK > 0 && topK < len(matches) {
		matches = matches[:topK]
	}
	return matches
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordPattern.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// ochiai computes |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}
