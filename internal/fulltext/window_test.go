package fulltext

import (
	"testing"

	"github.com/TobiSchelling/PaperDigest/internal/paper"
)

func TestRangesClampToPageCount(t *testing.T) {
	tests := []struct {
		head, tail, pages int
		headFrom, headTo  int
		tailFrom, tailTo  int
	}{
		{8, 4, 3, 0, 3, 0, 3},
		{8, 4, 20, 0, 8, 16, 20},
		{0, 0, 5, 0, 0, 5, 5},
		{-1, -2, 5, 0, 0, 5, 5},
		{3, 3, 0, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		hf, ht := headRange(tt.head, tt.pages)
		tf, tl := tailRange(tt.tail, tt.pages)
		if hf != tt.headFrom || ht != tt.headTo {
			t.Errorf("head(%d, %d): expected [%d,%d), got [%d,%d)", tt.head, tt.pages, tt.headFrom, tt.headTo, hf, ht)
		}
		if tf != tt.tailFrom || tl != tt.tailTo {
			t.Errorf("tail(%d, %d): expected [%d,%d), got [%d,%d)", tt.tail, tt.pages, tt.tailFrom, tt.tailTo, tf, tl)
		}
	}
}

func TestWindowTextShortDocument(t *testing.T) {
	doc := NewTextDocument("p1", "p2", "p3")
	head, tail, err := windowText(doc, DefaultWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(head) != 3 || len(tail) != 3 {
		t.Fatalf("expected all 3 pages in both windows, got head=%d tail=%d", len(head), len(tail))
	}
	if head[0] != "p1" || tail[2] != "p3" {
		t.Errorf("unexpected page order: head=%v tail=%v", head, tail)
	}
}

func TestWindowNormalized(t *testing.T) {
	w := Window{HeadPages: -3, TailPages: -1, SectionMaxChars: -5, PoliteDelay: -1}.normalized()
	if w != (Window{}) {
		t.Errorf("expected zero window, got %+v", w)
	}
}

func TestResolvePDFURL(t *testing.T) {
	tests := []struct {
		name string
		p    paper.Paper
		want string
	}{
		{"explicit", paper.Paper{PDFURL: "https://x/pdf/1.pdf", URL: "https://arxiv.org/abs/2"}, "https://x/pdf/1.pdf"},
		{"from url", paper.Paper{URL: "https://arxiv.org/abs/2401.00001v2"}, "https://arxiv.org/pdf/2401.00001v2.pdf"},
		{"from id", paper.Paper{ID: "http://arxiv.org/abs/2401.00002v1", URL: "https://example.com/paper"}, "http://arxiv.org/pdf/2401.00002v1.pdf"},
		{"none", paper.Paper{ID: "2401.00003", URL: "https://example.com/paper"}, ""},
		{"blank explicit", paper.Paper{PDFURL: "  ", URL: "https://arxiv.org/abs/3"}, "https://arxiv.org/pdf/3.pdf"},
	}
	for _, tt := range tests {
		if got := ResolvePDFURL(tt.p); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}
