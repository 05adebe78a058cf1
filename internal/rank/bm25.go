package rank

import (
	"math"

	"github.com/TobiSchelling/PaperDigest/internal/textutil"
)

const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// BM25 scores documents with Okapi BM25 over lower-case alphanumeric tokens.
type BM25 struct {
	K1 float64
	B  float64
}

// NewBM25 creates a BM25 scorer. Non-positive k1 and out-of-range b fall back
// to the usual defaults.
func NewBM25(k1, b float64) *BM25 {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b < 0 || b > 1 {
		b = DefaultB
	}
	return &BM25{K1: k1, B: b}
}

// Name implements Scorer.
func (m *BM25) Name() string { return "bm25" }

// Score implements Scorer.
func (m *BM25) Score(query string, docs []string) []float64 {
	scores := make([]float64, len(docs))
	queryTokens := textutil.Alnum(query)
	if len(queryTokens) == 0 || len(docs) == 0 {
		return scores
	}

	tfs := make([]map[string]int, len(docs))
	lengths := make([]float64, len(docs))
	df := make(map[string]int)
	var total float64
	for i, d := range docs {
		tokens := textutil.Alnum(d)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for tok := range tf {
			df[tok]++
		}
		tfs[i] = tf
		lengths[i] = float64(len(tokens))
		total += lengths[i]
	}

	avgdl := total / float64(len(docs))
	n := float64(len(docs))
	for i := range docs {
		var s float64
		for _, q := range queryTokens {
			tf := float64(tfs[i][q])
			if tf == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[q])+0.5)/(float64(df[q])+0.5))
			norm := 1.0
			if avgdl > 0 {
				norm = 1 - m.B + m.B*lengths[i]/avgdl
			}
			s += idf * tf * (m.K1 + 1) / (tf + m.K1*norm)
		}
		scores[i] = s
	}
	return scores
}
