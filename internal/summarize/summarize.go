// Package summarize turns ranked, enriched papers into structured summaries.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/PaperDigest/internal/llm"
	"github.com/TobiSchelling/PaperDigest/internal/paper"
	"github.com/TobiSchelling/PaperDigest/internal/textutil"
)

const (
	DefaultMaxAttempts = 3
	DefaultMaxTokens   = 1024
	DefaultBackoff     = 2 * time.Second

	// promptSectionChars caps each extract placed in the prompt.
	promptSectionChars = 6000
)

const summaryPrompt = `You are summarizing a research paper for a daily digest read by ML practitioners.

Title: %s

Abstract:
%s
%s
Respond with ONLY this JSON:
{
    "one_liner": "One sentence describing what the paper does",
    "key_contributions": ["contribution", "..."],
    "methods": ["method or technique", "..."],
    "limitations": ["limitation", "..."],
    "why_it_matters": "One or two sentences on why a practitioner should care",
    "tags": ["short topical tag", "..."]
}`

// ErrUnparseable is returned when a provider reply holds no usable summary.
var ErrUnparseable = errors.New("unparseable summary response")

// Options configures a Summarizer.
type Options struct {
	MaxAttempts int
	MaxTokens   int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

// Result holds the results of a summarization run.
type Result struct {
	Summarized int
	Failed     int
}

// Summarizer produces summaries through an LLM provider. A nil provider
// yields deterministic abstract-based summaries.
type Summarizer struct {
	provider    llm.Provider
	maxAttempts int
	maxTokens   int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewSummarizer creates a new summarizer.
func NewSummarizer(provider llm.Provider, opts Options) *Summarizer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	return &Summarizer{
		provider:    provider,
		maxAttempts: opts.MaxAttempts,
		maxTokens:   opts.MaxTokens,
		backoff:     opts.Backoff,
		sleep:       sleepContext,
	}
}

// SummarizeTopK summarizes the first k papers in order.
func (s *Summarizer) SummarizeTopK(ctx context.Context, papers []paper.Paper, k int) ([]paper.Summary, *Result) {
	if k > len(papers) {
		k = len(papers)
	}
	if k < 0 {
		k = 0
	}

	r := &Result{}
	out := make([]paper.Summary, 0, k)
	for _, p := range papers[:k] {
		sum := s.Summarize(ctx, p)
		if sum.Status == paper.SummaryOK {
			r.Summarized++
		} else {
			r.Failed++
		}
		out = append(out, sum)
	}

	log.Info().Int("summarized", r.Summarized).Int("failed", r.Failed).Int("top_k", k).Msg("summarization complete")
	return out, r
}

// Summarize produces the summary for one paper. Provider errors and
// unparseable replies are retried; after the last attempt the summary is
// marked failed.
func (s *Summarizer) Summarize(ctx context.Context, p paper.Paper) paper.Summary {
	if s.provider == nil {
		return abstractSummary(p)
	}

	prompt := buildPrompt(p)
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := s.sleep(ctx, s.backoff*time.Duration(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}

		sum, err := s.attempt(ctx, p, prompt)
		if err == nil {
			return sum
		}
		lastErr = err
		log.Warn().Str("paper", p.ID).Int("attempt", attempt).Err(err).Msg("summary attempt failed")
	}

	return failedSummary(p, fmt.Errorf("after %d attempts: %w", s.maxAttempts, lastErr))
}

func (s *Summarizer) attempt(ctx context.Context, p paper.Paper, prompt string) (paper.Summary, error) {
	text, err := s.provider.Generate(ctx, prompt, s.maxTokens)
	if err != nil {
		return paper.Summary{}, err
	}
	parsed := llm.ParseJSONResponse(text)
	if parsed == nil {
		return paper.Summary{}, ErrUnparseable
	}
	oneLiner := llm.StringField(parsed, "one_liner")
	if oneLiner == "" {
		return paper.Summary{}, fmt.Errorf("%w: missing one_liner", ErrUnparseable)
	}

	sum := base(p)
	sum.OneLiner = oneLiner
	sum.KeyContributions = orEmpty(llm.StringList(parsed, "key_contributions"))
	sum.Methods = orEmpty(llm.StringList(parsed, "methods"))
	sum.Limitations = orEmpty(llm.StringList(parsed, "limitations"))
	sum.WhyItMatters = llm.StringField(parsed, "why_it_matters")
	if tags := llm.StringList(parsed, "tags"); len(tags) > 0 {
		sum.Tags = tags
	}
	sum.Status = paper.SummaryOK
	return sum, nil
}

func buildPrompt(p paper.Paper) string {
	var extra strings.Builder
	if p.IntroText != "" {
		extra.WriteString("\nIntroduction (excerpt):\n")
		extra.WriteString(textutil.Head(p.IntroText, promptSectionChars))
		extra.WriteString("\n")
	}
	if p.SummaryText != "" {
		extra.WriteString("\nConclusion (excerpt):\n")
		extra.WriteString(textutil.Tail(p.SummaryText, promptSectionChars))
		extra.WriteString("\n")
	}
	return fmt.Sprintf(summaryPrompt, p.Title, p.Abstract, extra.String())
}

func base(p paper.Paper) paper.Summary {
	return paper.Summary{
		PaperID:          p.ID,
		Title:            p.Title,
		KeyContributions: []string{},
		Methods:          []string{},
		Limitations:      []string{},
		Tags:             orEmpty(append([]string(nil), p.Categories...)),
		URL:              p.URL,
	}
}

// abstractSummary builds a summary without a model: the first sentence of
// the abstract becomes the one-liner.
func abstractSummary(p paper.Paper) paper.Summary {
	sum := base(p)
	sum.OneLiner = firstSentence(p.Abstract)
	if sum.OneLiner == "" {
		sum.OneLiner = p.Title
	}
	sum.Status = paper.SummaryOK
	return sum
}

func failedSummary(p paper.Paper, err error) paper.Summary {
	sum := base(p)
	sum.Status = paper.SummaryFailed
	sum.Error = err.Error()
	return sum
}

func firstSentence(text string) string {
	text = textutil.CollapseSpace(text)
	if i := strings.Index(text, ". "); i >= 0 {
		return text[:i+1]
	}
	return text
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
