package fulltext

import (
	"strings"
	"unicode/utf8"

	"github.com/TobiSchelling/PaperDigest/internal/textutil"
)

const (
	fallbackHeadLines = 1500
	fallbackTailLines = 1200
)

// splitLines joins page texts and splits them into lines.
func splitLines(pages []string) []string {
	text := strings.Join(pages, "\n")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// introText extracts the introduction from the head window lines.
func introText(lines []string, maxChars int) string {
	if text := sliceSpan(lines, scanHeadings(lines).introSpan(), maxChars); text != "" {
		return text
	}
	return fallbackIntro(lines, maxChars)
}

// conclusionText extracts the conclusion from the tail window lines.
func conclusionText(lines []string, maxChars int) string {
	if text := sliceSpan(lines, scanHeadings(lines).conclusionSpan(), maxChars); text != "" {
		return text
	}
	return fallbackConclusion(lines, maxChars)
}

func sliceSpan(lines []string, s span, maxChars int) string {
	if !s.found {
		return ""
	}
	end := s.end
	if end < 0 || end > len(lines) {
		end = len(lines)
	}
	if s.start >= end {
		return ""
	}
	chunk := strings.TrimSpace(strings.Join(lines[s.start:end], "\n"))
	return textutil.Head(chunk, maxChars)
}

// fallbackIntro keeps word-bearing lines from the start of the window until
// the cap is reached.
func fallbackIntro(lines []string, maxChars int) string {
	if len(lines) > fallbackHeadLines {
		lines = lines[:fallbackHeadLines]
	}
	var out []string
	size := 0
	for _, ln := range lines {
		if textutil.HasWord(ln) {
			if len(out) > 0 {
				size++
			}
			out = append(out, ln)
			size += utf8.RuneCountInString(ln)
		}
		if size >= maxChars {
			break
		}
	}
	return strings.TrimSpace(textutil.Head(strings.Join(out, "\n"), maxChars))
}

// fallbackConclusion keeps word-bearing lines from the end of the window and
// returns the last maxChars characters.
func fallbackConclusion(lines []string, maxChars int) string {
	if len(lines) > fallbackTailLines {
		lines = lines[len(lines)-fallbackTailLines:]
	}
	var out []string
	for _, ln := range lines {
		if textutil.HasWord(ln) {
			out = append(out, ln)
		}
	}
	return strings.TrimSpace(textutil.Tail(strings.Join(out, "\n"), maxChars))
}
