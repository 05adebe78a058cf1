// Package fulltext downloads paper PDFs and extracts their introduction and
// conclusion text from head and tail page windows.
package fulltext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/PaperDigest/internal/paper"
)

const (
	DefaultTimeout   = 35 * time.Second
	DefaultUserAgent = "paperdigest/0.1"

	maxDocumentBytes = 64 << 20
)

var (
	// ErrNoPDFURL means no PDF location could be derived for a paper.
	ErrNoPDFURL = errors.New("no pdf url found")
	// ErrFetch wraps transport failures and non-success responses.
	ErrFetch = errors.New("fetch failed")
	// ErrTooLarge means the response body exceeded the document size limit.
	ErrTooLarge = errors.New("document too large")
	// ErrParse wraps failures to read the body as a paginated document.
	ErrParse = errors.New("parse failed")
)

// StatusError reports a non-success HTTP response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return "unexpected status " + e.Status
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Options configures an Extractor.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	HTMLFallback bool
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Extractor fetches documents and isolates their introduction and conclusion.
type Extractor struct {
	client       *http.Client
	userAgent    string
	htmlFallback bool
	maxBytes     int64
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewExtractor creates an extractor.
func NewExtractor(opts Options) *Extractor {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Extractor{
		client:       client,
		userAgent:    ua,
		htmlFallback: opts.HTMLFallback,
		maxBytes:     maxDocumentBytes,
		sleep:        sleepContext,
	}
}

// BatchResult counts the outcomes of a batch run.
type BatchResult struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Extract enriches a single paper. Failures are recorded on the returned
// record, never returned as errors.
func (e *Extractor) Extract(ctx context.Context, p paper.Paper, w Window) paper.Paper {
	w = w.normalized()

	pdfURL := ResolvePDFURL(p)
	p.PDFURL = pdfURL
	if pdfURL == "" {
		p.MarkFailed(ErrNoPDFURL.Error())
		return p
	}

	intro, summary, err := e.extractURL(ctx, pdfURL, w)
	if err != nil {
		p.MarkFailed(err.Error())
	} else {
		p.MarkOK(intro, summary)
	}

	if w.PoliteDelay > 0 {
		_ = e.sleep(ctx, w.PoliteDelay)
	}
	return p
}

// ExtractBatch processes papers[:limit] in order, writing each result back
// into the slice. It stops between records once ctx is cancelled.
func (e *Extractor) ExtractBatch(ctx context.Context, papers []paper.Paper, w Window, limit int) *BatchResult {
	n := clamp(limit, 0, len(papers))
	r := &BatchResult{}

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			log.Warn().Int("remaining", n-i).Msg("full-text extraction cancelled")
			break
		}

		papers[i] = e.Extract(ctx, papers[i], w)
		r.Attempted++
		if papers[i].ContentStatus == paper.ContentOK {
			r.Succeeded++
			log.Debug().Str("paper", papers[i].ID).Msg("extracted sections")
		} else {
			r.Failed++
			log.Warn().Str("paper", papers[i].ID).Str("error", papers[i].ContentError).Msg("full-text extraction failed")
		}
	}

	log.Info().
		Int("ok", r.Succeeded).
		Int("attempted", r.Attempted).
		Int("head_pages", w.HeadPages).
		Int("tail_pages", w.TailPages).
		Int("section_max_chars", w.SectionMaxChars).
		Msg("full-text enrichment complete")
	return r
}

func (e *Extractor) extractURL(ctx context.Context, pdfURL string, w Window) (string, string, error) {
	body, contentType, err := e.fetch(ctx, pdfURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrFetch, err)
	}

	doc, err := e.open(body, contentType, pdfURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrParse, err)
	}

	head, tail, err := windowText(doc, w)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrParse, err)
	}

	intro := introText(splitLines(head), w.SectionMaxChars)
	summary := conclusionText(splitLines(tail), w.SectionMaxChars)
	return intro, summary, nil
}

func (e *Extractor) fetch(ctx context.Context, pdfURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > e.maxBytes {
		return nil, "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, e.maxBytes)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (e *Extractor) open(body []byte, contentType, pageURL string) (Document, error) {
	if isPDF(body, contentType) {
		return OpenPDF(body)
	}
	if e.htmlFallback && isHTML(contentType) {
		return OpenHTML(body, pageURL)
	}
	if contentType == "" {
		contentType = "unknown"
	}
	return nil, fmt.Errorf("not a pdf document (content-type %s)", contentType)
}

// windowText returns the per-page text of the head and tail windows.
func windowText(doc Document, w Window) ([]string, []string, error) {
	pages := doc.NumPages()
	cache := make(map[int]string)
	read := func(from, to int) ([]string, error) {
		out := make([]string, 0, to-from)
		for i := from; i < to; i++ {
			text, ok := cache[i]
			if !ok {
				var err error
				text, err = doc.PageText(i)
				if err != nil {
					return nil, err
				}
				cache[i] = text
			}
			out = append(out, text)
		}
		return out, nil
	}

	headFrom, headTo := headRange(w.HeadPages, pages)
	head, err := read(headFrom, headTo)
	if err != nil {
		return nil, nil, err
	}
	tailFrom, tailTo := tailRange(w.TailPages, pages)
	tail, err := read(tailFrom, tailTo)
	if err != nil {
		return nil, nil, err
	}
	return head, tail, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
