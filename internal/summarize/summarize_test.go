package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/PaperDigest/internal/paper"
)

type mockProvider struct {
	responses []string
	errs      []error
	prompts   []string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	i := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	resp := ""
	if i < len(m.responses) {
		resp = m.responses[i]
	}
	return resp, err
}

func (m *mockProvider) IsConfigured() bool { return true }

func newTestSummarizer(p *mockProvider, attempts int) (*Summarizer, *[]time.Duration) {
	s := NewSummarizer(p, Options{MaxAttempts: attempts, Backoff: time.Second})
	var waits []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return s, &waits
}

func testPaper() paper.Paper {
	return paper.Paper{
		ID:         "http://arxiv.org/abs/1",
		Title:      "Diffusion Models for X",
		Abstract:   "We train diffusion models. They work well.",
		URL:        "http://arxiv.org/abs/1",
		Categories: []string{"cs.LG"},
	}
}

func validResponse() string {
	b, _ := json.Marshal(map[string]any{
		"one_liner":         "Trains diffusion models for X.",
		"key_contributions": []string{"A new sampler"},
		"methods":           []string{"Diffusion"},
		"limitations":       []string{"Slow"},
		"why_it_matters":    "Faster generation.",
		"tags":              []string{"diffusion", "generative"},
	})
	return string(b)
}

func TestSummarizeSuccess(t *testing.T) {
	p := testPaper()
	p.IntroText = "1 Introduction\nIntro body."
	p.SummaryText = "6 Conclusion\nConclusion body."
	m := &mockProvider{responses: []string{validResponse()}}
	s, _ := newTestSummarizer(m, 3)

	sum := s.Summarize(context.Background(), p)
	if sum.Status != paper.SummaryOK {
		t.Fatalf("expected ok, got %q (%s)", sum.Status, sum.Error)
	}
	if sum.OneLiner != "Trains diffusion models for X." {
		t.Errorf("unexpected one-liner %q", sum.OneLiner)
	}
	if len(sum.Tags) != 2 || sum.Tags[0] != "diffusion" {
		t.Errorf("expected model tags, got %v", sum.Tags)
	}
	if sum.PaperID != p.ID || sum.URL != p.URL || sum.Title != p.Title {
		t.Errorf("expected paper identity copied, got %+v", sum)
	}
	if len(m.prompts) != 1 {
		t.Fatalf("expected 1 call, got %d", len(m.prompts))
	}
	for _, want := range []string{"Diffusion Models for X", "Intro body.", "Conclusion body."} {
		if !strings.Contains(m.prompts[0], want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
}

func TestPromptWithoutExtracts(t *testing.T) {
	prompt := buildPrompt(testPaper())
	if strings.Contains(prompt, "Introduction (excerpt)") || strings.Contains(prompt, "Conclusion (excerpt)") {
		t.Error("expected abstract-only prompt")
	}
	if !strings.Contains(prompt, "We train diffusion models.") {
		t.Error("expected abstract in prompt")
	}
}

func TestSummarizeRetriesThenSucceeds(t *testing.T) {
	m := &mockProvider{
		responses: []string{"", "not json", validResponse()},
		errs:      []error{errors.New("timeout")},
	}
	s, waits := newTestSummarizer(m, 3)

	sum := s.Summarize(context.Background(), testPaper())
	if sum.Status != paper.SummaryOK {
		t.Fatalf("expected ok after retries, got %q (%s)", sum.Status, sum.Error)
	}
	if len(m.prompts) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(m.prompts))
	}
	if len(*waits) != 2 || (*waits)[0] != time.Second || (*waits)[1] != 2*time.Second {
		t.Errorf("expected linear backoff, got %v", *waits)
	}
}

func TestSummarizeFailsAfterMaxAttempts(t *testing.T) {
	m := &mockProvider{responses: []string{"nope", "nope"}}
	s, _ := newTestSummarizer(m, 2)

	sum := s.Summarize(context.Background(), testPaper())
	if sum.Status != paper.SummaryFailed {
		t.Fatalf("expected failed, got %q", sum.Status)
	}
	if !strings.Contains(sum.Error, "after 2 attempts") {
		t.Errorf("unexpected error %q", sum.Error)
	}
	if sum.Title != "Diffusion Models for X" {
		t.Errorf("expected title on failed summary, got %q", sum.Title)
	}
	if len(m.prompts) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(m.prompts))
	}
}

func TestSummarizeWithoutProvider(t *testing.T) {
	s := NewSummarizer(nil, Options{})
	sum := s.Summarize(context.Background(), testPaper())
	if sum.Status != paper.SummaryOK {
		t.Fatalf("expected ok, got %q", sum.Status)
	}
	if sum.OneLiner != "We train diffusion models." {
		t.Errorf("expected first sentence, got %q", sum.OneLiner)
	}
	if len(sum.Tags) != 1 || sum.Tags[0] != "cs.LG" {
		t.Errorf("expected categories as tags, got %v", sum.Tags)
	}
	if sum.KeyContributions == nil || sum.Methods == nil || sum.Limitations == nil {
		t.Error("expected empty lists, not nil")
	}
}

func TestSummarizeTopK(t *testing.T) {
	papers := []paper.Paper{testPaper(), testPaper(), testPaper()}
	papers[1].ID = "2"
	papers[2].ID = "3"
	s := NewSummarizer(nil, Options{})

	sums, r := s.SummarizeTopK(context.Background(), papers, 2)
	if len(sums) != 2 || r.Summarized != 2 {
		t.Fatalf("expected 2 summaries, got %d (%+v)", len(sums), r)
	}
	if sums[1].PaperID != "2" {
		t.Errorf("expected order preserved, got %q", sums[1].PaperID)
	}

	sums, _ = s.SummarizeTopK(context.Background(), papers, 10)
	if len(sums) != 3 {
		t.Errorf("expected k clamped to 3, got %d", len(sums))
	}
	sums, _ = s.SummarizeTopK(context.Background(), nil, 5)
	if len(sums) != 0 {
		t.Errorf("expected none, got %d", len(sums))
	}
}
