// Package arxiv fetches recently updated papers from the arXiv Atom API.
package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed/atom"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/PaperDigest/internal/paper"
	"github.com/TobiSchelling/PaperDigest/internal/textutil"
)

const (
	DefaultAPIURL     = "http://export.arxiv.org/api/query"
	DefaultMaxResults = 20
	DefaultTimeout    = 20 * time.Second

	source = "arxiv"
)

// Queries used when no topic is given, and when every topic is blank.
const (
	defaultQuery = "cat:cs.AI OR cat:cs.LG OR cat:cs.CL OR cat:cs.CV OR cat:cs.IR"
	blankQuery   = "cat:cs.AI OR cat:cs.LG OR cat:cs.CL"
)

// Options configures a Client.
type Options struct {
	APIURL     string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// Client queries the arXiv API.
type Client struct {
	apiURL    string
	userAgent string
	http      *http.Client
	parser    *atom.Parser
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiURL:    apiURL,
		userAgent: opts.UserAgent,
		http:      hc,
		parser:    &atom.Parser{},
	}
}

// BuildQuery turns topics into an arXiv search_query. Each topic is matched
// against titles and abstracts; topics are combined with OR.
func BuildQuery(topics []string) string {
	if len(topics) == 0 {
		return defaultQuery
	}
	var parts []string
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf(`ti:"%s" OR abs:"%s"`, t, t))
	}
	if len(parts) == 0 {
		return blankQuery
	}
	return strings.Join(parts, " OR ")
}

// Fetch returns up to maxResults papers sorted by last update, newest first.
// Entries without a title or abstract are skipped, as are duplicate IDs.
func (c *Client) Fetch(ctx context.Context, topics []string, maxResults int) ([]paper.Paper, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	q := url.Values{}
	q.Set("search_query", BuildQuery(topics))
	q.Set("sortBy", "lastUpdatedDate")
	q.Set("sortOrder", "descending")
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned status %d", resp.StatusCode)
	}

	feed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse arxiv feed: %w", err)
	}

	papers := make([]paper.Paper, 0, len(feed.Entries))
	seen := make(map[string]struct{}, len(feed.Entries))
	for _, entry := range feed.Entries {
		p, ok := parseEntry(entry)
		if !ok {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		papers = append(papers, p)
	}

	log.Info().Int("papers", len(papers)).Int("entries", len(feed.Entries)).Msg("fetched papers from arXiv")
	return papers, nil
}

// parseEntry maps an Atom entry to a Paper. The Atom parser is used directly
// because arXiv marks its PDF link rel="related", which the generic feed
// translation drops.
func parseEntry(entry *atom.Entry) (paper.Paper, bool) {
	if entry == nil {
		return paper.Paper{}, false
	}
	id := strings.TrimSpace(entry.ID)
	title := cleanText(entry.Title)
	abstract := cleanText(entry.Summary)
	if abstract == "" && entry.Content != nil {
		abstract = cleanText(entry.Content.Value)
	}
	if title == "" || abstract == "" {
		return paper.Paper{}, false
	}

	var link, pdfURL string
	for _, l := range entry.Links {
		if l == nil {
			continue
		}
		href := strings.TrimSpace(l.Href)
		switch {
		case href == "":
		case l.Title == "pdf" || l.Type == "application/pdf" || strings.Contains(href, "/pdf/"):
			if pdfURL == "" {
				pdfURL = href
			}
		case (l.Rel == "" || l.Rel == "alternate") && link == "":
			link = href
		}
	}
	if link == "" {
		link = id
	}
	if id == "" {
		id = link
	}

	p := paper.Paper{
		ID:       id,
		Source:   source,
		Title:    title,
		Abstract: abstract,
		URL:      link,
		PDFURL:   pdfURL,
	}
	for _, a := range entry.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
		}
	}
	var terms []string
	for _, c := range entry.Categories {
		if c != nil {
			terms = append(terms, c.Term)
		}
	}
	p.Categories = nonEmpty(terms)
	if entry.PublishedParsed != nil {
		p.PublishedAt = entry.PublishedParsed.UTC()
	}
	if entry.UpdatedParsed != nil {
		p.UpdatedAt = entry.UpdatedParsed.UTC()
	}
	return p, true
}

// cleanText strips markup and collapses whitespace.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	}
	return textutil.CollapseSpace(s)
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
