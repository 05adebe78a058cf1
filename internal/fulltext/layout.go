package fulltext

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// lineTolerance is the fraction of the font size two glyph baselines may
	// differ by and still share a line.
	lineTolerance = 0.5
	// wordGap is the fraction of the font size a horizontal gap must exceed
	// to count as a word break.
	wordGap = 0.15

	defaultFontSize = 10.0
)

// layoutLines rebuilds text lines from positioned glyphs: glyphs are grouped
// by baseline, lines run top to bottom, glyphs within a line left to right.
// Glyphs at the same position keep their content-stream order.
func layoutLines(glyphs []pdf.Text) []string {
	if len(glyphs) == 0 {
		return nil
	}
	sorted := make([]pdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var lines []string
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sameLine(sorted[start], sorted[i]) {
			continue
		}
		lines = append(lines, joinGlyphs(sorted[start:i]))
		start = i
	}
	return lines
}

func sameLine(top, g pdf.Text) bool {
	size := math.Max(fontSize(top), fontSize(g))
	return top.Y-g.Y <= size*lineTolerance
}

// joinGlyphs orders one line's glyphs by X and inserts a space wherever the
// gap after a glyph is wide enough to be a word break.
func joinGlyphs(line []pdf.Text) string {
	sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })

	var b strings.Builder
	for i, g := range line {
		if i > 0 {
			prev := line[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > fontSize(g)*wordGap && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(g.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
	}
	return strings.TrimRight(b.String(), " ")
}

func fontSize(g pdf.Text) float64 {
	if s := math.Abs(g.FontSize); s > 0 {
		return s
	}
	return defaultFontSize
}
