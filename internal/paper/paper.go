package paper

import "time"

// ContentStatus records the outcome of full-text extraction for a paper.
type ContentStatus string

const (
	ContentUnprocessed ContentStatus = ""
	ContentOK          ContentStatus = "ok"
	ContentFailed      ContentStatus = "failed"
)

// Paper is the normalized record of one candidate paper. It is created by the
// metadata fetcher, reordered by the ranker and enriched in place by the
// full-text extractor.
type Paper struct {
	ID          string    `json:"paper_id"`
	Source      string    `json:"source,omitempty"`
	Title       string    `json:"title"`
	Authors     []string  `json:"authors,omitempty"`
	Abstract    string    `json:"abstract"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	Categories  []string  `json:"categories,omitempty"`

	// Enrichment, zero until the extractor has processed the record.
	PDFURL        string        `json:"pdf_url,omitempty"`
	IntroText     string        `json:"intro_text,omitempty"`
	SummaryText   string        `json:"summary_text,omitempty"` // tail extract, not an LLM summary
	ContentStatus ContentStatus `json:"content_status,omitempty"`
	ContentError  string        `json:"content_error,omitempty"`
}

// MarkFailed records an extraction failure and clears any partial extracts.
func (p *Paper) MarkFailed(reason string) {
	p.IntroText = ""
	p.SummaryText = ""
	p.ContentStatus = ContentFailed
	p.ContentError = reason
}

// MarkOK stores the extracted sections.
func (p *Paper) MarkOK(intro, summary string) {
	p.IntroText = intro
	p.SummaryText = summary
	p.ContentStatus = ContentOK
	p.ContentError = ""
}

// Processed reports whether full-text extraction has run on the record.
func (p Paper) Processed() bool {
	return p.ContentStatus != ContentUnprocessed
}

// SummaryStatus is the outcome of summarizing a paper.
type SummaryStatus string

const (
	SummaryOK     SummaryStatus = "ok"
	SummaryFailed SummaryStatus = "failed"
)

// Summary is the structured summary produced for one paper.
type Summary struct {
	PaperID          string        `json:"paper_id"`
	Title            string        `json:"title"`
	OneLiner         string        `json:"one_liner"`
	KeyContributions []string      `json:"key_contributions"`
	Methods          []string      `json:"methods"`
	Limitations      []string      `json:"limitations"`
	WhyItMatters     string        `json:"why_it_matters"`
	Tags             []string      `json:"tags"`
	URL              string        `json:"url"`
	Status           SummaryStatus `json:"status"`
	Error            string        `json:"error,omitempty"`
}
