// Package digest renders summaries into the Markdown digest and writes it to
// disk.
package digest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/PaperDigest/internal/paper"
)

const emptyDigest = "No new papers found."

var md = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// Assemble renders the Markdown digest for runDate.
func Assemble(runDate string, summaries []paper.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# AI Paper Digest (%s)\n\n", runDate)

	if len(summaries) == 0 {
		b.WriteString(emptyDigest + "\n")
		return b.String()
	}

	for i, s := range summaries {
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "## %d. %s\n", i+1, title)
		if s.URL != "" {
			fmt.Fprintf(&b, "- Link: %s\n", s.URL)
		}
		if len(s.Tags) > 0 {
			fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(s.Tags, ", "))
		}
		if s.OneLiner != "" {
			fmt.Fprintf(&b, "- One-liner: %s\n", s.OneLiner)
		}
		if s.WhyItMatters != "" {
			fmt.Fprintf(&b, "- Why it matters: %s\n", s.WhyItMatters)
		}
		if s.Status == paper.SummaryFailed {
			fmt.Fprintf(&b, "- Summary unavailable: %s\n", s.Error)
		}
		if len(s.KeyContributions) > 0 {
			b.WriteString("- Key contributions:\n")
			for _, c := range s.KeyContributions {
				fmt.Fprintf(&b, "  - %s\n", c)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHTML converts a Markdown digest into a standalone HTML page.
func RenderHTML(title, markdown string) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		htmlEscape(title), body.String()), nil
}

// Files lists the paths written by Persist.
type Files struct {
	Markdown string
	HTML     string
}

// Persist writes digest_DATE.md into dir, plus digest_DATE.html when withHTML
// is set. Slashes in runDate become dashes.
func Persist(dir, runDate, markdown string, withHTML bool) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating digest dir: %w", err)
	}

	name := "digest_" + SafeDate(runDate)
	files := &Files{Markdown: filepath.Join(dir, name+".md")}
	if err := os.WriteFile(files.Markdown, []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("writing digest: %w", err)
	}

	if withHTML {
		page, err := RenderHTML("AI Paper Digest "+runDate, markdown)
		if err != nil {
			return nil, err
		}
		files.HTML = filepath.Join(dir, name+".html")
		if err := os.WriteFile(files.HTML, []byte(page), 0o644); err != nil {
			return nil, fmt.Errorf("writing html digest: %w", err)
		}
	}
	return files, nil
}

// SafeDate makes a run date usable in a file name.
func SafeDate(runDate string) string {
	return strings.NewReplacer("/", "-", `\`, "-").Replace(runDate)
}

func htmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}
