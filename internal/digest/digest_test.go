package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/PaperDigest/internal/paper"
)

func TestAssembleEmpty(t *testing.T) {
	got := Assemble("2026-02-06", nil)
	want := "# AI Paper Digest (2026-02-06)\n\nNo new papers found.\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestAssembleSections(t *testing.T) {
	got := Assemble("2026-02-06", []paper.Summary{
		{
			Title:            "Diffusion Models for X",
			URL:              "http://arxiv.org/abs/1",
			Tags:             []string{"cs.LG", "diffusion"},
			OneLiner:         "Trains diffusion models.",
			WhyItMatters:     "Faster sampling.",
			KeyContributions: []string{"A sampler"},
			Status:           paper.SummaryOK,
		},
		{Title: "", Status: paper.SummaryFailed, Error: "after 3 attempts: timeout"},
	})

	for _, want := range []string{
		"# AI Paper Digest (2026-02-06)",
		"## 1. Diffusion Models for X\n",
		"- Link: http://arxiv.org/abs/1\n",
		"- Tags: cs.LG, diffusion\n",
		"- One-liner: Trains diffusion models.\n",
		"- Why it matters: Faster sampling.\n",
		"  - A sampler\n",
		"## 2. Untitled\n",
		"- Summary unavailable: after 3 attempts: timeout\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected digest to contain %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "No new papers found.") {
		t.Error("expected no empty marker")
	}
}

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML("Digest <1>", "# Title\n\n- Link: https://example.com\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(page, "<h1>Title</h1>") {
		t.Errorf("expected heading in html, got %s", page)
	}
	if !strings.Contains(page, `<a href="https://example.com">`) {
		t.Errorf("expected linkified url, got %s", page)
	}
	if !strings.Contains(page, "<title>Digest &lt;1&gt;</title>") {
		t.Errorf("expected escaped title, got %s", page)
	}
}

func TestPersist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	files, err := Persist(dir, "2026/02/06", "# Digest\n", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(files.Markdown) != "digest_2026-02-06.md" {
		t.Errorf("unexpected markdown path %q", files.Markdown)
	}
	data, err := os.ReadFile(files.Markdown)
	if err != nil || string(data) != "# Digest\n" {
		t.Errorf("unexpected markdown content %q (%v)", data, err)
	}
	if _, err := os.Stat(files.HTML); err != nil {
		t.Errorf("expected html file: %v", err)
	}
}

func TestPersistMarkdownOnly(t *testing.T) {
	files, err := Persist(t.TempDir(), "2026-02-06", "x", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files.HTML != "" {
		t.Errorf("expected no html file, got %q", files.HTML)
	}
}
