package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mmcdole/gofeed/atom"
)

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>arXiv Query</title>
  <id>http://arxiv.org/api/query</id>
  <updated>2026-02-06T00:00:00-05:00</updated>
  <entry>
    <id>http://arxiv.org/abs/2602.00001v1</id>
    <updated>2026-02-05T18:00:00Z</updated>
    <published>2026-02-04T18:00:00Z</published>
    <title>Diffusion Models
      for Widgets</title>
    <summary>  We train &lt;b&gt;diffusion&lt;/b&gt; models
      on widgets.  </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/2602.00001v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2602.00001v1" rel="related" type="application/pdf"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.AI" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2602.00001v1</id>
    <updated>2026-02-05T18:00:00Z</updated>
    <title>Duplicate</title>
    <summary>Same id again.</summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2602.00002v1</id>
    <updated>2026-02-05T17:00:00Z</updated>
    <title>No abstract here</title>
    <summary></summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2602.00003v2</id>
    <updated>2026-02-05T16:00:00Z</updated>
    <title>Tool Use in Agents</title>
    <summary>Agents learn tool use.</summary>
    <link href="http://arxiv.org/abs/2602.00003v2" rel="alternate" type="text/html"/>
  </entry>
</feed>`

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		topics []string
		want   string
	}{
		{nil, defaultQuery},
		{[]string{" ", ""}, blankQuery},
		{[]string{"diffusion"}, `ti:"diffusion" OR abs:"diffusion"`},
		{[]string{" tool use ", "rag"}, `ti:"tool use" OR abs:"tool use" OR ti:"rag" OR abs:"rag"`},
	}
	for _, tt := range tests {
		if got := BuildQuery(tt.topics); got != tt.want {
			t.Errorf("BuildQuery(%q): expected %q, got %q", tt.topics, tt.want, got)
		}
	}
}

func TestFetch(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(atomFixture))
	}))
	defer srv.Close()

	c := NewClient(Options{APIURL: srv.URL, UserAgent: "digest-test"})
	papers, err := c.Fetch(context.Background(), []string{"diffusion"}, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"max_results=7", "sortBy=lastUpdatedDate", "sortOrder=descending", "start=0", "search_query="} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("expected query to contain %q, got %q", want, gotQuery)
		}
	}
	if gotUA != "digest-test" {
		t.Errorf("expected user agent, got %q", gotUA)
	}

	if len(papers) != 2 {
		t.Fatalf("expected 2 papers, got %d: %+v", len(papers), papers)
	}

	p := papers[0]
	if p.ID != "http://arxiv.org/abs/2602.00001v1" {
		t.Errorf("unexpected id %q", p.ID)
	}
	if p.Title != "Diffusion Models for Widgets" {
		t.Errorf("expected collapsed title, got %q", p.Title)
	}
	if p.Abstract != "We train diffusion models on widgets." {
		t.Errorf("expected stripped abstract, got %q", p.Abstract)
	}
	if p.Source != "arxiv" {
		t.Errorf("expected source arxiv, got %q", p.Source)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Ada Lovelace" {
		t.Errorf("unexpected authors %v", p.Authors)
	}
	if len(p.Categories) != 2 || p.Categories[0] != "cs.LG" {
		t.Errorf("unexpected categories %v", p.Categories)
	}
	if p.URL != "http://arxiv.org/abs/2602.00001v1" {
		t.Errorf("unexpected url %q", p.URL)
	}
	if p.PDFURL != "http://arxiv.org/pdf/2602.00001v1" {
		t.Errorf("expected pdf link, got %q", p.PDFURL)
	}
	if p.UpdatedAt.IsZero() || p.PublishedAt.IsZero() {
		t.Error("expected parsed timestamps")
	}

	if papers[1].PDFURL != "" {
		t.Errorf("expected no pdf link for second paper, got %q", papers[1].PDFURL)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(Options{APIURL: srv.URL}).Fetch(context.Background(), nil, 5)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("expected 503 error, got %v", err)
	}
}

func TestCleanText(t *testing.T) {
	if got := cleanText("  a\n  b <i>c</i> &amp; d "); got != "a b c & d" {
		t.Errorf("unexpected %q", got)
	}
	if got := cleanText("   "); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestParseEntryRelatedPDFLink(t *testing.T) {
	entry := &atom.Entry{
		ID:      "http://arxiv.org/abs/2602.00009v1",
		Title:   "Sparse Attention",
		Summary: "Attention, but sparse.",
		Links: []*atom.Link{
			{Href: "https://arxiv.org/pdf/2602.00009v1", Rel: "related", Title: "pdf"},
			{Href: "https://doi.org/10.0/xyz", Rel: "related", Title: "doi"},
			{Href: "https://arxiv.org/abs/2602.00009v1", Rel: "alternate", Type: "text/html"},
		},
		Categories: []*atom.Category{{Term: "cs.CL"}, {Term: " "}},
	}

	p, ok := parseEntry(entry)
	if !ok {
		t.Fatal("expected entry to be kept")
	}
	if p.PDFURL != "https://arxiv.org/pdf/2602.00009v1" {
		t.Errorf("expected related pdf link, got %q", p.PDFURL)
	}
	if p.URL != "https://arxiv.org/abs/2602.00009v1" {
		t.Errorf("expected alternate link as url, got %q", p.URL)
	}
	if len(p.Categories) != 1 || p.Categories[0] != "cs.CL" {
		t.Errorf("unexpected categories %v", p.Categories)
	}
}

func TestParseEntryDropsIncomplete(t *testing.T) {
	if _, ok := parseEntry(&atom.Entry{ID: "x", Title: "Only a title"}); ok {
		t.Error("expected entry without abstract to be dropped")
	}
	if _, ok := parseEntry(nil); ok {
		t.Error("expected nil entry to be dropped")
	}
}
