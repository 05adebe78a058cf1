// Package rank orders candidate papers by relevance to a topic query.
package rank

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/TobiSchelling/PaperDigest/internal/paper"
)

// Scorer scores each document against a query. The returned slice is
// parallel to docs.
type Scorer interface {
	Score(query string, docs []string) []float64
	Name() string
}

// RankedSet pairs papers with their scores, best first.
type RankedSet struct {
	Papers []paper.Paper
	Scores []float64
}

// Len returns the number of ranked papers.
func (s RankedSet) Len() int {
	return len(s.Papers)
}

// Top returns the first k entries. The returned slices share storage with s.
func (s RankedSet) Top(k int) RankedSet {
	if k < 0 {
		k = 0
	}
	if k > len(s.Papers) {
		k = len(s.Papers)
	}
	return RankedSet{Papers: s.Papers[:k], Scores: s.Scores[:k]}
}

// Ranker orders candidates with a pluggable Scorer.
type Ranker struct {
	scorer Scorer
}

// New creates a Ranker. A nil scorer defaults to TF-IDF cosine similarity.
func New(scorer Scorer) *Ranker {
	if scorer == nil {
		scorer = NewTFIDF(0)
	}
	return &Ranker{scorer: scorer}
}

// NewScorer builds a scorer by strategy name ("tfidf" or "bm25").
func NewScorer(strategy string, maxFeatures int, k1, b float64) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", "tfidf":
		return NewTFIDF(maxFeatures), nil
	case "bm25":
		return NewBM25(k1, b), nil
	default:
		return nil, fmt.Errorf("unknown ranking strategy %q", strategy)
	}
}

// Strategy returns the name of the configured scorer.
func (r *Ranker) Strategy() string {
	return r.scorer.Name()
}

// Rank orders candidates by descending relevance to the query terms. With no
// usable query terms it keeps the input order and scores every paper 0.
// Candidates are copied, never modified.
func (r *Ranker) Rank(queryTerms []string, candidates []paper.Paper) RankedSet {
	if len(candidates) == 0 {
		return RankedSet{Papers: []paper.Paper{}, Scores: []float64{}}
	}

	query := joinTerms(queryTerms)
	if query == "" {
		papers := make([]paper.Paper, len(candidates))
		copy(papers, candidates)
		return RankedSet{Papers: papers, Scores: make([]float64, len(candidates))}
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Title + "\n" + c.Abstract
	}

	scores := r.scorer.Score(query, docs)
	clean := make([]float64, len(candidates))
	for i := range clean {
		if i < len(scores) && !math.IsNaN(scores[i]) && !math.IsInf(scores[i], 0) {
			clean[i] = scores[i]
		}
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return clean[order[a]] > clean[order[b]]
	})

	out := RankedSet{
		Papers: make([]paper.Paper, len(order)),
		Scores: make([]float64, len(order)),
	}
	for pos, idx := range order {
		out.Papers[pos] = candidates[idx]
		out.Scores[pos] = clean[idx]
	}
	return out
}

func joinTerms(terms []string) string {
	var kept []string
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}

// FilterByTopics keeps papers whose title or abstract mentions any topic,
// case-insensitively. No topics keeps everything.
func FilterByTopics(papers []paper.Paper, topics []string) []paper.Paper {
	var needles []string
	for _, t := range topics {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			needles = append(needles, t)
		}
	}
	if len(needles) == 0 {
		return papers
	}

	kept := make([]paper.Paper, 0, len(papers))
	for _, p := range papers {
		hay := strings.ToLower(p.Title + " " + p.Abstract)
		for _, n := range needles {
			if strings.Contains(hay, n) {
				kept = append(kept, p)
				break
			}
		}
	}
	return kept
}
