package rank

import (
	"math"
	"sort"

	"github.com/TobiSchelling/PaperDigest/internal/textutil"
)

// DefaultMaxFeatures caps the TF-IDF vocabulary.
const DefaultMaxFeatures = 20000

// TFIDF scores documents by cosine similarity of unigram+bigram TF-IDF
// vectors fitted on the documents plus the query.
type TFIDF struct {
	MaxFeatures int
}

// NewTFIDF creates a TF-IDF scorer. maxFeatures <= 0 uses DefaultMaxFeatures.
func NewTFIDF(maxFeatures int) *TFIDF {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &TFIDF{MaxFeatures: maxFeatures}
}

// Name implements Scorer.
func (t *TFIDF) Name() string { return "tfidf" }

// Score implements Scorer.
func (t *TFIDF) Score(query string, docs []string) []float64 {
	corpus := make([][]string, 0, len(docs)+1)
	for _, d := range docs {
		corpus = append(corpus, ngrams(d))
	}
	corpus = append(corpus, ngrams(query))

	vocab := t.vocabulary(corpus)
	scores := make([]float64, len(docs))
	if len(vocab) == 0 {
		return scores
	}

	df := make(map[string]int, len(vocab))
	for _, terms := range corpus {
		seen := make(map[string]struct{})
		for _, term := range terms {
			if _, ok := vocab[term]; !ok {
				continue
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	n := float64(len(corpus))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	index := termIndex(vocab)
	queryVec := vectorize(corpus[len(corpus)-1], index, idf)
	if len(queryVec) == 0 {
		return scores
	}
	for i := range docs {
		scores[i] = dot(vectorize(corpus[i], index, idf), queryVec)
	}
	return scores
}

// vocabulary keeps the MaxFeatures most frequent terms across the corpus,
// breaking frequency ties alphabetically.
func (t *TFIDF) vocabulary(corpus [][]string) map[string]struct{} {
	freq := make(map[string]int)
	for _, terms := range corpus {
		for _, term := range terms {
			freq[term]++
		}
	}

	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	if len(terms) > t.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if freq[terms[i]] != freq[terms[j]] {
				return freq[terms[i]] > freq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:t.MaxFeatures]
	}

	vocab := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		vocab[term] = struct{}{}
	}
	return vocab
}

// ngrams returns unigrams followed by bigrams of the stop-word filtered tokens.
func ngrams(text string) []string {
	tokens := textutil.WithoutStopWords(textutil.Words(text))
	out := make([]string, 0, 2*len(tokens))
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// termIndex assigns each vocabulary term its position in sorted order.
func termIndex(vocab map[string]struct{}) map[string]int {
	terms := make([]string, 0, len(vocab))
	for term := range vocab {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
	}
	return index
}

// weight is one non-zero component of a sparse vector.
type weight struct {
	term int
	w    float64
}

// sparseVec holds non-zero components in ascending term order, so every sum
// over it runs in the same order.
type sparseVec []weight

// vectorize builds an L2-normalized TF-IDF vector.
func vectorize(terms []string, index map[string]int, idf map[string]float64) sparseVec {
	counts := make(map[int]float64)
	names := make(map[int]string)
	for _, term := range terms {
		if i, ok := index[term]; ok {
			counts[i]++
			names[i] = term
		}
	}

	vec := make(sparseVec, 0, len(counts))
	for i, tf := range counts {
		vec = append(vec, weight{term: i, w: tf * idf[names[i]]})
	}
	sort.Slice(vec, func(a, b int) bool { return vec[a].term < vec[b].term })

	var norm float64
	for _, c := range vec {
		norm += c.w * c.w
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i].w /= norm
	}
	return vec
}

func dot(a, b sparseVec) float64 {
	var sum float64
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i].term < b[j].term:
			i++
		case a[i].term > b[j].term:
			j++
		default:
			sum += a[i].w * b[j].w
			i++
			j++
		}
	}
	return sum
}
