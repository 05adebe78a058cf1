// Package pipeline runs the digest workflow: fetch, rank, extract full text,
// summarize, assemble and persist.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/PaperDigest/internal/arxiv"
	"github.com/TobiSchelling/PaperDigest/internal/config"
	"github.com/TobiSchelling/PaperDigest/internal/digest"
	"github.com/TobiSchelling/PaperDigest/internal/fulltext"
	"github.com/TobiSchelling/PaperDigest/internal/llm"
	"github.com/TobiSchelling/PaperDigest/internal/paper"
	"github.com/TobiSchelling/PaperDigest/internal/rank"
	"github.com/TobiSchelling/PaperDigest/internal/summarize"
)

const previewCount = 5

// PaperSource fetches candidate papers.
type PaperSource interface {
	Fetch(ctx context.Context, topics []string, maxResults int) ([]paper.Paper, error)
}

// Extractor enriches the leading papers with introduction and conclusion text.
type Extractor interface {
	ExtractBatch(ctx context.Context, papers []paper.Paper, w fulltext.Window, limit int) *fulltext.BatchResult
}

// Request describes one run. A nil Topics falls back to the configured
// topics; an empty, non-nil Topics means no topic filter at all.
type Request struct {
	Topics     []string `json:"topics"`
	TopK       int      `json:"top_k"`
	MaxResults int      `json:"max_results"`
	LLMModel   string   `json:"llm_model,omitempty"`
	OutDir     string   `json:"out_dir,omitempty"`
	RunDate    string   `json:"run_date,omitempty"`
	DryRun     bool     `json:"dry_run,omitempty"`
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunDate   string
	Request   Request
	Steps     []StepResult
	Ranked    rank.RankedSet
	Summaries []paper.Summary
	DigestMD  string
	Files     *digest.Files
	Logs      []string
	Errors    []string
}

func (r *Result) step(s StepResult) {
	r.Steps = append(r.Steps, s)
	if s.Summary != "" {
		r.Logs = append(r.Logs, s.Name+": "+s.Summary)
	}
	if s.Err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("%s failed: %v", s.Name, s.Err))
	}
}

// Deps overrides the collaborators built from configuration.
type Deps struct {
	Source    PaperSource
	Extractor Extractor
	Provider  llm.Provider
}

// Pipeline orchestrates the six-step digest workflow.
type Pipeline struct {
	cfg        *config.Config
	source     PaperSource
	ranker     *rank.Ranker
	extractor  Extractor
	summarizer *summarize.Summarizer
}

// New creates a pipeline. Missing deps are built from cfg; a nil Provider
// produces abstract-based summaries.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	scorer, err := rank.NewScorer(cfg.Ranking.Strategy, cfg.Ranking.MaxFeatures, cfg.Ranking.K1, cfg.Ranking.B)
	if err != nil {
		return nil, err
	}

	source := deps.Source
	if source == nil {
		source = arxiv.NewClient(arxiv.Options{
			APIURL:    cfg.Arxiv.APIURL,
			Timeout:   cfg.Arxiv.Timeout,
			UserAgent: cfg.Arxiv.UserAgent,
		})
	}
	extractor := deps.Extractor
	if extractor == nil {
		extractor = fulltext.NewExtractor(fulltext.Options{
			Timeout:      cfg.Fulltext.Timeout,
			UserAgent:    cfg.Fulltext.UserAgent,
			HTMLFallback: cfg.Fulltext.HTMLFallback,
		})
	}

	return &Pipeline{
		cfg:       cfg,
		source:    source,
		ranker:    rank.New(scorer),
		extractor: extractor,
		summarizer: summarize.NewSummarizer(deps.Provider, summarize.Options{
			MaxAttempts: cfg.Summarization.MaxAttempts,
			MaxTokens:   cfg.Summarization.MaxTokens,
		}),
	}, nil
}

// Normalize fills request defaults from configuration.
func (p *Pipeline) Normalize(req Request) Request {
	if req.Topics == nil {
		req.Topics = append([]string(nil), p.cfg.Topics...)
	}
	if req.TopK <= 0 {
		req.TopK = p.cfg.Summarization.TopK
	}
	if req.MaxResults <= 0 {
		req.MaxResults = p.cfg.Arxiv.MaxResults
	}
	if req.OutDir == "" {
		req.OutDir = p.cfg.Output.DigestDir
	}
	if req.RunDate == "" {
		req.RunDate = time.Now().Format("2006-01-02")
	}
	return req
}

// Run executes the pipeline. Step failures are recorded on the result; a
// failed fetch yields an empty digest rather than aborting.
func (p *Pipeline) Run(ctx context.Context, req Request) *Result {
	req = p.Normalize(req)
	r := &Result{RunDate: req.RunDate, Request: req}

	papers := p.fetchPapers(ctx, r, req)
	p.rankPapers(r, req, papers)

	if req.DryRun {
		r.step(StepResult{Name: "FetchFullText", Summary: fmt.Sprintf("[dry-run] would fetch %d PDFs", p.fetchLimit(r, req))})
		r.step(StepResult{Name: "SummarizeTopK", Summary: fmt.Sprintf("[dry-run] would summarize %d papers", min(req.TopK, r.Ranked.Len()))})
		return r
	}

	p.fetchFullText(ctx, r, req)
	p.summarizeTopK(ctx, r, req)
	p.assembleDigest(r)
	p.persistRun(r, req)

	if err := ctx.Err(); err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("run interrupted: %v", err))
	}
	return r
}

func (p *Pipeline) fetchPapers(ctx context.Context, r *Result, req Request) []paper.Paper {
	log.Info().Msg("Step 1/6: Fetching papers...")
	papers, err := p.source.Fetch(ctx, req.Topics, req.MaxResults)
	if err != nil {
		r.step(StepResult{Name: "FetchPapers", Summary: "error; produced 0 papers.", Err: err})
		return nil
	}
	r.step(StepResult{
		Name:    "FetchPapers",
		Summary: fmt.Sprintf("fetched %d papers from arXiv (sorted by lastUpdatedDate).", len(papers)),
	})

	if p.cfg.Ranking.Prefilter {
		kept := rank.FilterByTopics(papers, req.Topics)
		r.step(StepResult{
			Name:    "FilterCandidates",
			Summary: fmt.Sprintf("kept %d/%d papers matching topics.", len(kept), len(papers)),
		})
		papers = kept
	}
	return papers
}

func (p *Pipeline) rankPapers(r *Result, req Request, papers []paper.Paper) {
	log.Info().Msg("Step 2/6: Ranking papers...")
	r.Ranked = p.ranker.Rank(req.Topics, papers)

	name := "RankPapers(" + strings.ToUpper(p.ranker.Strategy()) + ")"
	switch {
	case r.Ranked.Len() == 0:
		r.step(StepResult{Name: name, Summary: "no candidates to rank."})
	case strings.TrimSpace(strings.Join(req.Topics, "")) == "":
		r.step(StepResult{Name: name, Summary: "no topics; kept original order."})
	default:
		var preview []string
		for i := 0; i < r.Ranked.Len() && i < previewCount; i++ {
			preview = append(preview, fmt.Sprintf("%.3f :: %s", r.Ranked.Scores[i], truncate(r.Ranked.Papers[i].Title, 60)))
		}
		r.step(StepResult{
			Name:    name,
			Summary: fmt.Sprintf("ranked %d papers. Top: [%s]", r.Ranked.Len(), strings.Join(preview, "; ")),
		})
	}
}

func (p *Pipeline) fetchLimit(r *Result, req Request) int {
	return min(p.cfg.FetchLimit(req.TopK), r.Ranked.Len())
}

func (p *Pipeline) fetchFullText(ctx context.Context, r *Result, req Request) {
	log.Info().Msg("Step 3/6: Fetching full text...")
	w := p.cfg.Window()
	res := p.extractor.ExtractBatch(ctx, r.Ranked.Papers, w, p.fetchLimit(r, req))
	r.step(StepResult{
		Name: "FetchFullText",
		Summary: fmt.Sprintf("enriched %d/%d papers (head_pages=%d, tail_pages=%d, section_max_chars=%d).",
			res.Succeeded, res.Attempted, w.HeadPages, w.TailPages, w.SectionMaxChars),
	})
}

func (p *Pipeline) summarizeTopK(ctx context.Context, r *Result, req Request) {
	log.Info().Msg("Step 4/6: Summarizing papers...")
	sums, res := p.summarizer.SummarizeTopK(ctx, r.Ranked.Papers, req.TopK)
	r.Summaries = sums
	r.step(StepResult{
		Name:    "SummarizeTopK",
		Summary: fmt.Sprintf("produced %d summaries (%d failed), top_k=%d.", res.Summarized, res.Failed, req.TopK),
	})
}

func (p *Pipeline) assembleDigest(r *Result) {
	log.Info().Msg("Step 5/6: Assembling digest...")
	r.DigestMD = digest.Assemble(r.RunDate, r.Summaries)
	if len(r.Summaries) == 0 {
		r.step(StepResult{Name: "AssembleDigest", Summary: "no summaries; produced empty digest."})
		return
	}
	r.step(StepResult{Name: "AssembleDigest", Summary: fmt.Sprintf("assembled digest with %d items.", len(r.Summaries))})
}

func (p *Pipeline) persistRun(r *Result, req Request) {
	log.Info().Msg("Step 6/6: Persisting digest...")
	files, err := digest.Persist(req.OutDir, r.RunDate, r.DigestMD, p.cfg.Output.HTML)
	if err != nil {
		r.step(StepResult{Name: "PersistRun", Err: err})
		return
	}
	r.Files = files
	r.step(StepResult{Name: "PersistRun", Summary: "wrote " + files.Markdown})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
