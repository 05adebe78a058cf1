package fulltext

import (
	"regexp"
	"strings"
)

var numberedHeadingRe = regexp.MustCompile(`^\s*(\d+(\.\d+)*)\s+([A-Z][A-Za-z0-9\-\s]{2,})\s*$`)

var canonicalHeadings = map[string]struct{}{
	"introduction": {},
	"conclusion":   {},
	"conclusions":  {},
	"summary":      {},
	"discussion":   {},
	"abstract":     {},
	"references":   {},
}

var (
	introNames      = []string{"introduction"}
	conclusionNames = []string{"conclusion", "conclusions", "summary", "discussion"}
	referenceNames  = []string{"references", "bibliography"}
)

// heading is a detected section heading.
type heading struct {
	line  int
	title string // lower-cased
}

// headings is the ordered list of headings found in one window.
type headings []heading

// scanHeadings classifies every line once and returns the headings in line
// order.
func scanHeadings(lines []string) headings {
	var out headings
	for i, line := range lines {
		l := strings.TrimSpace(line)
		if l == "" {
			continue
		}
		low := strings.ToLower(l)
		if _, ok := canonicalHeadings[low]; ok {
			out = append(out, heading{line: i, title: low})
			continue
		}
		if m := numberedHeadingRe.FindStringSubmatch(l); m != nil {
			out = append(out, heading{line: i, title: strings.ToLower(strings.TrimSpace(m[3]))})
		}
	}
	return out
}

// first returns the line of the first heading whose title contains any of
// names.
func (hs headings) first(names ...string) (int, bool) {
	for _, h := range hs {
		for _, n := range names {
			if strings.Contains(h.title, n) {
				return h.line, true
			}
		}
	}
	return 0, false
}

// nextAfter returns the line of the first heading strictly after line.
func (hs headings) nextAfter(line int) (int, bool) {
	for _, h := range hs {
		if h.line > line {
			return h.line, true
		}
	}
	return 0, false
}

// span is a half-open line range. end < 0 means the end of the window.
type span struct {
	start, end int
	found      bool
}

func (hs headings) introSpan() span {
	start, ok := hs.first(introNames...)
	if !ok {
		return span{}
	}
	end, ok := hs.nextAfter(start)
	if !ok {
		end = -1
	}
	return span{start: start, end: end, found: true}
}

func (hs headings) conclusionSpan() span {
	start, ok := hs.first(conclusionNames...)
	if !ok {
		return span{}
	}
	end, ok := hs.nextAfter(start)
	if !ok {
		end = -1
		if ref, found := hs.first(referenceNames...); found && ref > start {
			end = ref
		}
	}
	return span{start: start, end: end, found: true}
}
