package fulltext

import "time"

// Default window values.
const (
	DefaultHeadPages       = 8
	DefaultTailPages       = 4
	DefaultSectionMaxChars = 60000
	DefaultPoliteDelay     = 500 * time.Millisecond
)

// Window bounds how much of a document is read and how much text is kept.
type Window struct {
	HeadPages       int
	TailPages       int
	SectionMaxChars int
	PoliteDelay     time.Duration
}

// DefaultWindow returns the default extraction window.
func DefaultWindow() Window {
	return Window{
		HeadPages:       DefaultHeadPages,
		TailPages:       DefaultTailPages,
		SectionMaxChars: DefaultSectionMaxChars,
		PoliteDelay:     DefaultPoliteDelay,
	}
}

func (w Window) normalized() Window {
	if w.HeadPages < 0 {
		w.HeadPages = 0
	}
	if w.TailPages < 0 {
		w.TailPages = 0
	}
	if w.SectionMaxChars < 0 {
		w.SectionMaxChars = 0
	}
	if w.PoliteDelay < 0 {
		w.PoliteDelay = 0
	}
	return w
}

// headRange returns the half-open page range [0, n) of the head window.
func headRange(head, pageCount int) (int, int) {
	return 0, clamp(head, 0, pageCount)
}

// tailRange returns the half-open page range of the tail window.
func tailRange(tail, pageCount int) (int, int) {
	n := clamp(tail, 0, pageCount)
	return pageCount - n, pageCount
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
