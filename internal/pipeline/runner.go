package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/PaperDigest/internal/database"
)

// Factory builds the pipeline that serves one request, e.g. with a provider
// for the requested model.
type Factory func(req Request) (*Pipeline, error)

// Runner executes pipelines and tracks each execution as a run.
type Runner struct {
	db      *database.DB
	factory Factory

	// base outlives the HTTP request that started a background run.
	base context.Context
	wg   sync.WaitGroup
}

// NewRunner creates a runner. Background runs are cancelled with ctx.
func NewRunner(ctx context.Context, db *database.DB, factory Factory) *Runner {
	return &Runner{db: db, factory: factory, base: ctx}
}

// NewRunID returns an id of the form YYYYMMDD_xxxxxxxx.
func NewRunID(t time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return t.Format("20060102") + "_" + hex[:8]
}

// Start records a queued run and executes it in the background.
func (r *Runner) Start(req Request) (string, error) {
	id, req, err := r.create(req)
	if err != nil {
		return "", err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(r.base, id, req)
	}()
	return id, nil
}

// Execute records a run and executes it synchronously.
func (r *Runner) Execute(ctx context.Context, req Request) (string, *Result, error) {
	id, req, err := r.create(req)
	if err != nil {
		return "", nil, err
	}
	res, err := r.execute(ctx, id, req)
	return id, res, err
}

// Wait blocks until every background run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) create(req Request) (string, Request, error) {
	now := time.Now()
	if req.RunDate == "" {
		req.RunDate = now.Format("2006-01-02")
	}
	id := NewRunID(now)
	if err := r.db.CreateRun(id, req.RunDate, req); err != nil {
		return "", req, err
	}
	log.Info().Str("run", id).Strs("topics", req.Topics).Msg("run queued")
	return id, req, nil
}

func (r *Runner) execute(ctx context.Context, id string, req Request) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("run panicked: %v", p)
			r.fail(id, err, nil)
		}
	}()

	if err := r.db.MarkRunRunning(id); err != nil {
		return nil, err
	}

	p, err := r.factory(req)
	if err != nil {
		r.fail(id, err, nil)
		return nil, err
	}

	res = p.Run(ctx, req)

	if err := r.save(id, res); err != nil {
		r.fail(id, err, res.Logs)
		return res, err
	}
	if err := ctx.Err(); err != nil {
		r.fail(id, err, res.Logs)
		return res, err
	}

	if err := r.db.FinishRun(id, database.RunOutcome{
		DigestMD: res.DigestMD,
		Logs:     res.Logs,
		Errors:   res.Errors,
	}); err != nil {
		return res, err
	}
	log.Info().Str("run", id).Int("summaries", len(res.Summaries)).Int("errors", len(res.Errors)).Msg("run done")
	return res, nil
}

func (r *Runner) save(id string, res *Result) error {
	papers := make([]database.RunPaper, 0, res.Ranked.Len())
	for i, p := range res.Ranked.Papers {
		papers = append(papers, database.RunPaper{
			Rank:          i + 1,
			PaperID:       p.ID,
			Title:         p.Title,
			URL:           p.URL,
			PDFURL:        p.PDFURL,
			Score:         res.Ranked.Scores[i],
			ContentStatus: string(p.ContentStatus),
			ContentError:  p.ContentError,
		})
	}
	if err := r.db.SaveRunPapers(id, papers); err != nil {
		return fmt.Errorf("saving ranked papers: %w", err)
	}
	if err := r.db.SaveRunSummaries(id, res.Summaries); err != nil {
		return fmt.Errorf("saving summaries: %w", err)
	}
	return nil
}

func (r *Runner) fail(id string, cause error, logs []string) {
	log.Error().Str("run", id).Err(cause).Msg("run failed")
	if err := r.db.FailRun(id, cause.Error(), logs); err != nil && !errors.Is(err, database.ErrNotFound) {
		log.Error().Str("run", id).Err(err).Msg("recording run failure")
	}
}
