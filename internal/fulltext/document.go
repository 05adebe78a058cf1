package fulltext

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"

	"github.com/TobiSchelling/PaperDigest/internal/textutil"
)

// Document is a paginated text source.
type Document interface {
	NumPages() int
	PageText(i int) (string, error)
}

// pdfDocument reads pages from a PDF.
type pdfDocument struct {
	r *pdf.Reader
}

// OpenPDF parses a PDF held in memory.
func OpenPDF(data []byte) (doc Document, err error) {
	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &pdfDocument{r: r}, nil
}

func (d *pdfDocument) NumPages() int {
	return d.r.NumPage()
}

// PageText returns the text of page i (zero-based), one line per text row,
// top to bottom.
func (d *pdfDocument) PageText(i int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page %d: %v", i+1, r)
		}
	}()

	page := d.r.Page(i + 1)
	if page.V.IsNull() {
		return "", nil
	}
	lines := layoutLines(page.Content().Text)
	return textutil.Normalize(strings.Join(lines, "\n")), nil
}

// textDocument is a document whose pages are already plain text.
type textDocument []string

// NewTextDocument wraps plain-text pages as a Document.
func NewTextDocument(pages ...string) Document {
	return textDocument(pages)
}

func (d textDocument) NumPages() int { return len(d) }

func (d textDocument) PageText(i int) (string, error) {
	if i < 0 || i >= len(d) {
		return "", fmt.Errorf("page %d out of range", i+1)
	}
	return d[i], nil
}

// OpenHTML extracts readable article text from an HTML page and exposes it as
// a single-page document.
func OpenHTML(data []byte, pageURL string) (Document, error) {
	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(data), parsed)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("no readable content")
	}
	return NewTextDocument(textutil.Normalize(text)), nil
}

func isPDF(data []byte, contentType string) bool {
	if bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], " \t\r\n"), []byte("%PDF")) {
		return true
	}
	return strings.Contains(strings.ToLower(contentType), "application/pdf")
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
