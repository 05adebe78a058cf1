package fulltext

import (
	"strings"

	"github.com/TobiSchelling/PaperDigest/internal/paper"
)

// ResolvePDFURL picks the PDF location for a paper: the explicit PDF URL,
// else the abstract URL rewritten to its PDF form, else the same rewrite of
// the identifier. It returns "" when nothing usable exists.
func ResolvePDFURL(p paper.Paper) string {
	if u := strings.TrimSpace(p.PDFURL); u != "" {
		return u
	}
	if u := absToPDF(p.URL); u != "" {
		return u
	}
	return absToPDF(p.ID)
}

func absToPDF(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "/abs/") {
		return ""
	}
	return strings.ReplaceAll(raw, "/abs/", "/pdf/") + ".pdf"
}
