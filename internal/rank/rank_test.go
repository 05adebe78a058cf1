package rank

import (
	"math"
	"reflect"
	"testing"

	"github.com/TobiSchelling/PaperDigest/internal/paper"
)

func candidates() []paper.Paper {
	return []paper.Paper{
		{ID: "1", Title: "Graph Neural Nets", Abstract: "Message passing on graphs for molecule property prediction."},
		{ID: "2", Title: "Diffusion Models for X", Abstract: "We train diffusion models to denoise images step by step."},
		{ID: "3", Title: "Tool Use in Language Agents", Abstract: "Agents learn tool use through reinforcement learning."},
		{ID: "4", Title: "Scaling Laws", Abstract: "Loss follows a power law in compute."},
	}
}

func scorers() []Scorer {
	return []Scorer{NewTFIDF(0), NewBM25(0, -1)}
}

func ids(papers []paper.Paper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.ID
	}
	return out
}

func TestRankEmptyCandidates(t *testing.T) {
	set := New(nil).Rank([]string{"diffusion"}, nil)
	if set.Len() != 0 || len(set.Scores) != 0 {
		t.Errorf("expected empty set, got %d papers", set.Len())
	}
}

func TestRankEmptyQueryKeepsOrder(t *testing.T) {
	in := candidates()
	for _, query := range [][]string{nil, {}, {"  ", ""}} {
		set := New(nil).Rank(query, in)
		if !reflect.DeepEqual(ids(set.Papers), ids(in)) {
			t.Errorf("query %q: expected input order, got %v", query, ids(set.Papers))
		}
		if len(set.Scores) != len(in) {
			t.Fatalf("expected %d scores, got %d", len(in), len(set.Scores))
		}
		for i, s := range set.Scores {
			if s != 0 {
				t.Errorf("score %d: expected 0, got %f", i, s)
			}
		}
	}
}

func TestRankDiffusionFirst(t *testing.T) {
	for _, sc := range scorers() {
		set := New(sc).Rank([]string{"diffusion"}, candidates())
		if set.Papers[0].ID != "2" {
			t.Errorf("%s: expected diffusion paper first, got %v", sc.Name(), ids(set.Papers))
		}
		if !(set.Scores[0] > set.Scores[1]) {
			t.Errorf("%s: expected score[0] > score[1], got %v", sc.Name(), set.Scores)
		}
	}
}

func TestRankScoresNonIncreasingAndFinite(t *testing.T) {
	queries := [][]string{{"tool use"}, {"graphs", "diffusion"}, {"power law compute"}, {"agents"}}
	for _, sc := range scorers() {
		for _, q := range queries {
			set := New(sc).Rank(q, candidates())
			for i, s := range set.Scores {
				if math.IsNaN(s) || math.IsInf(s, 0) {
					t.Errorf("%s %v: non-finite score %f", sc.Name(), q, s)
				}
				if i > 0 && s > set.Scores[i-1] {
					t.Errorf("%s %v: scores increase at %d: %v", sc.Name(), q, i, set.Scores)
				}
			}
		}
	}
}

func TestRankDeterministic(t *testing.T) {
	for _, sc := range scorers() {
		r := New(sc)
		a := r.Rank([]string{"learning", "graphs"}, candidates())
		b := r.Rank([]string{"learning", "graphs"}, candidates())
		if !reflect.DeepEqual(ids(a.Papers), ids(b.Papers)) || !reflect.DeepEqual(a.Scores, b.Scores) {
			t.Errorf("%s: ranking not deterministic", sc.Name())
		}
	}
}

func TestRankStopWordQueryIsAllTied(t *testing.T) {
	in := candidates()
	set := New(NewTFIDF(0)).Rank([]string{"the", "of which"}, in)
	if !reflect.DeepEqual(ids(set.Papers), ids(in)) {
		t.Errorf("expected input order, got %v", ids(set.Papers))
	}
	for _, s := range set.Scores {
		if s != 0 {
			t.Errorf("expected zero scores, got %v", set.Scores)
		}
	}
}

func TestRankTiesPreserveInputOrder(t *testing.T) {
	in := []paper.Paper{
		{ID: "a", Title: "Alpha", Abstract: "nothing relevant"},
		{ID: "b", Title: "Quantum", Abstract: "quantum error correction"},
		{ID: "c", Title: "Beta", Abstract: "still nothing"},
		{ID: "d", Title: "Gamma", Abstract: "unrelated words"},
	}
	for _, sc := range scorers() {
		set := New(sc).Rank([]string{"quantum"}, in)
		want := []string{"b", "a", "c", "d"}
		if !reflect.DeepEqual(ids(set.Papers), want) {
			t.Errorf("%s: expected %v, got %v", sc.Name(), want, ids(set.Papers))
		}
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	in := candidates()
	before := ids(in)
	New(nil).Rank([]string{"diffusion"}, in)
	if !reflect.DeepEqual(ids(in), before) {
		t.Error("input slice was reordered")
	}
}

func TestTFIDFVocabularyCap(t *testing.T) {
	set := New(NewTFIDF(1)).Rank([]string{"diffusion"}, candidates())
	for _, s := range set.Scores {
		if math.IsNaN(s) {
			t.Fatal("unexpected NaN with tiny vocabulary")
		}
	}
}

func TestTop(t *testing.T) {
	set := New(nil).Rank([]string{"diffusion"}, candidates())
	top := set.Top(2)
	if top.Len() != 2 || len(top.Scores) != 2 {
		t.Errorf("expected 2 entries, got %d", top.Len())
	}
	if set.Top(10).Len() != 4 {
		t.Error("expected Top to clamp to set length")
	}
	if set.Top(-1).Len() != 0 {
		t.Error("expected negative k to yield empty set")
	}
}

func TestNewScorer(t *testing.T) {
	for name, want := range map[string]string{"": "tfidf", "TFIDF": "tfidf", "bm25": "bm25"} {
		sc, err := NewScorer(name, 0, 0, 0)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", name, err)
		}
		if sc.Name() != want {
			t.Errorf("NewScorer(%q) = %s, want %s", name, sc.Name(), want)
		}
	}
	if _, err := NewScorer("pagerank", 0, 0, 0); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestFilterByTopics(t *testing.T) {
	in := candidates()
	if got := FilterByTopics(in, nil); len(got) != len(in) {
		t.Errorf("expected all papers without topics, got %d", len(got))
	}
	got := FilterByTopics(in, []string{"DIFFUSION", " tool use "})
	if !reflect.DeepEqual(ids(got), []string{"2", "3"}) {
		t.Errorf("unexpected filter result %v", ids(got))
	}
}

func TestRankRepeatable(t *testing.T) {
	want := New(nil).Rank([]string{"learning", "graphs"}, candidates())
	for i := 0; i < 200; i++ {
		got := New(nil).Rank([]string{"learning", "graphs"}, candidates())
		if !reflect.DeepEqual(got.Scores, want.Scores) || !reflect.DeepEqual(ids(got.Papers), ids(want.Papers)) {
			t.Fatalf("run %d: got %v %v, want %v %v", i, ids(got.Papers), got.Scores, ids(want.Papers), want.Scores)
		}
	}
}

func TestRankIdenticalDocumentsKeepInputOrder(t *testing.T) {
	in := []paper.Paper{
		{ID: "a", Title: "Sparse attention for long documents", Abstract: "We make attention sparse and scale transformers to long documents."},
		{ID: "b", Title: "Sparse attention for long documents", Abstract: "We make attention sparse and scale transformers to long documents."},
		{ID: "c", Title: "Protein folding", Abstract: "Structure prediction from sequence."},
	}
	for i := 0; i < 500; i++ {
		set := New(nil).Rank([]string{"sparse attention", "long documents"}, in)
		if got := ids(set.Papers); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
			t.Fatalf("run %d: expected [a b c], got %v", i, got)
		}
		if set.Scores[0] != set.Scores[1] {
			t.Fatalf("run %d: identical documents scored %v and %v", i, set.Scores[0], set.Scores[1])
		}
	}
}
