// Package textutil holds the tokenizing and trimming helpers shared by the
// ranker and the full-text extractor.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var wordRe = regexp.MustCompile(`[A-Za-z][A-Za-z0-9\-]+`)

// Words splits text into lower-cased tokens of two or more word characters
// (letters, digits, underscore).
func Words(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// Alnum splits text into lower-cased alphanumeric tokens of any length.
func Alnum(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
}

// WithoutStopWords drops English stop words, preserving order.
func WithoutStopWords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, stop := stopWords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

// IsStopWord reports whether token is an English stop word.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// HasWord reports whether line contains at least one alphabetic word token.
func HasWord(line string) bool {
	return wordRe.MatchString(line)
}

// Head returns the first max runes of s.
func Head(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	i := 0
	for pos := range s {
		if i == max {
			return s[:pos]
		}
		i++
	}
	return s
}

// Tail returns the last max runes of s.
func Tail(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := utf8.RuneCountInString(s)
	if n <= max {
		return s
	}
	skip := n - max
	i := 0
	for pos := range s {
		if i == skip {
			return s[pos:]
		}
		i++
	}
	return ""
}

// Normalize applies NFKC so ligatures and full-width forms extracted from
// PDFs compare equal to their plain spellings.
func Normalize(s string) string {
	return norm.NFKC.String(s)
}

// CollapseSpace replaces every whitespace run with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
