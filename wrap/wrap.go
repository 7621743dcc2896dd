// Package wrap breaks a single logical line of text into physical lines that
// fit a column budget, honoring CJK punctuation placement rules.
package wrap

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/folio/width"
	"golang.org/x/text/unicode/norm"
)

// TabWidth is the number of columns a tab expands to.
const TabWidth = 4

const ideographicSpace = '　'

// Normalize prepares a line for wrapping: it composes the line to NFC,
// expands tabs to TabWidth spaces and replaces ideographic spaces with two
// ASCII spaces.
func Normalize(line string) string {
	if line == "" {
		return line
	}
	line = norm.NFC.String(line)
	if !strings.ContainsRune(line, '\t') && !strings.ContainsRune(line, ideographicSpace) {
		return line
	}

	var b strings.Builder
	b.Grow(len(line))
	for _, r := range line {
		out, n := expansion(r)
		for range n {
			b.WriteRune(out)
		}
	}
	return b.String()
}

// Origin is the range of source runes a normalized rune stands for.
// The columns of an expanded tab or ideographic space after the first, and
// combining marks that survive composition, get an empty range at the end
// of their source.
type Origin struct {
	Start, End int
}

// NormalizeOrigins normalizes line like Normalize and also returns the
// origin of every rune of the result, in order. Origins are relative to the
// start of line and never decrease.
func NormalizeOrigins(line string) (string, []Origin) {
	var (
		b       strings.Builder
		origins []Origin
		pos     int
	)
	b.Grow(len(line))
	for rest := line; rest != ""; {
		n := norm.NFC.NextBoundaryInString(rest, true)
		if n <= 0 {
			n = len(rest)
		}
		seg := rest[:n]
		rest = rest[n:]

		start, end := pos, pos+utf8.RuneCountInString(seg)
		for _, r := range norm.NFC.String(seg) {
			out, n := expansion(r)
			for range n {
				b.WriteRune(out)
				origins = append(origins, Origin{Start: start, End: end})
				start = end
			}
		}
		pos = end
	}
	return b.String(), origins
}

// expansion returns the rune r is written as and how many times.
func expansion(r rune) (rune, int) {
	switch r {
	case '\t':
		return ' ', TabWidth
	case ideographicSpace:
		return ' ', 2
	default:
		return r, 1
	}
}

// Line normalizes line and wraps it to at most w columns. See Split.
func Line(line string, w int) []string {
	return Split(Normalize(line), w)
}

// Split wraps an already normalized line greedily to at most w columns.
//
// A rune that may not start a line is kept on the current line even if that
// overflows the budget. A rune that may not end a line is carried over to
// the next line together with the rune that caused the break. A rune wider
// than the whole budget is placed alone on its own line. The result is never
// empty; an empty line yields a single empty string.
func Split(line string, w int) []string {
	if w < 1 {
		w = 1
	}
	if line == "" {
		return []string{""}
	}

	var (
		lines []string
		cur   []rune
		curW  int
	)
	for _, r := range line {
		rw := width.Rune(r)
		if len(cur) == 0 || curW+rw <= w {
			cur = append(cur, r)
			curW += rw
			continue
		}
		if width.NoLineStart(r) {
			cur = append(cur, r)
			curW += rw
			continue
		}

		// Opening punctuation must not dangle at the end of a line.
		last := cur[len(cur)-1]
		if len(cur) > 1 && width.NoLineEnd(last) && width.Rune(last)+rw <= w {
			lines = append(lines, string(cur[:len(cur)-1]))
			cur = []rune{last, r}
			curW = width.Rune(last) + rw
			continue
		}

		lines = append(lines, string(cur))
		cur = []rune{r}
		curW = rw
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}
