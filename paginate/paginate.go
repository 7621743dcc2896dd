// Package paginate turns book text into fixed-size pages of display lines.
//
// Pagination is a total, deterministic function of the content, the page
// Metrics and the Strategy: the same inputs always produce the same pages,
// and no input is rejected. Empty content yields a single page holding one
// empty line.
package paginate

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/folio/wrap"
)

// Page is an ordered list of display lines. Empty lines are spacing rows.
// Pages are never modified once produced.
type Page []string

// String joins the lines of the page with newlines.
func (p Page) String() string {
	return strings.Join(p, "\n")
}

// Span is the range of rune offsets in the source content covered by the
// content lines of a page. End is exclusive. Pages holding only spacing rows
// have an empty span.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Result is the outcome of paginating one piece of content.
type Result struct {
	Pages []Page `json:"pages"`
	// Spans runs parallel to Pages.
	Spans []Span `json:"spans"`
}

// TotalPages returns the number of pages.
func (r Result) TotalPages() int {
	return len(r.Pages)
}

// Page returns page n, if it exists.
func (r Result) Page(n int) (Page, bool) {
	if n < 0 || n >= len(r.Pages) {
		return nil, false
	}
	return r.Pages[n], true
}

// Empty returns the result for empty content: one page with one empty line.
func Empty() Result {
	return Result{
		Pages: []Page{{""}},
		Spans: []Span{{}},
	}
}

// Paginate splits content into pages.
//
// Lines are wrapped at m.CharsPerLine. With the Dynamic strategy
// m.LineSpacing blank rows follow every wrapped line but a paragraph's last,
// and m.ParagraphSpacing blank rows separate paragraphs when they fit on the
// current page; otherwise the next paragraph starts a new page.
func Paginate(content string, m Metrics, s Strategy) Result {
	switch s {
	case Compact:
		m.LineSpacing, m.ParagraphSpacing = 0, 0
	case Dynamic:
	}

	paras := SplitParagraphs(content)
	if len(paras) == 0 {
		return Empty()
	}

	cols := max(1, m.CharsPerLine)
	lineSpacing := max(0, m.LineSpacing)
	paraSpacing := max(0, m.ParagraphSpacing)
	a := assembler{limit: m.EffectiveLines()}

	for pi, p := range paras {
		rows := wrapParagraph(p, cols)
		for i, r := range rows {
			a.addContent(r)
			if i == len(rows)-1 {
				continue
			}
			for range lineSpacing {
				a.addBlank()
			}
		}

		if pi == len(paras)-1 || paraSpacing == 0 {
			continue
		}
		if a.room() >= paraSpacing {
			for range paraSpacing {
				a.addBlank()
			}
		} else {
			a.flush()
		}
	}
	a.flush()

	return Result{Pages: a.pages, Spans: a.spans}
}

// row is one wrapped physical line and the source range it came from.
type row struct {
	text       string
	start, end int
}

// wrapParagraph wraps every line of p and maps each physical line back to
// rune offsets in the source. A row made only of the trailing columns of an
// expanded tab gets an empty range.
func wrapParagraph(p Paragraph, cols int) []row {
	var rows []row
	offset := p.Offset
	for _, line := range strings.Split(p.Text, "\n") {
		srcLen := utf8.RuneCountInString(line)
		line = strings.TrimSuffix(line, "\r")

		normalized, origins := wrap.NormalizeOrigins(line)
		i := 0
		for _, seg := range wrap.Split(normalized, cols) {
			n := utf8.RuneCountInString(seg)
			r := row{text: seg, start: offset, end: offset}
			if n > 0 {
				r.start = offset + origins[i].Start
				r.end = offset + origins[i+n-1].End
			}
			rows = append(rows, r)
			i += n
		}
		offset += srcLen + 1 // newline
	}
	return rows
}

// assembler collects rows into pages of at most limit rows. Capacity is
// always checked before a row is added.
type assembler struct {
	limit int

	cur        Page
	hasContent bool
	start, end int
	lastEnd    int

	pages []Page
	spans []Span
}

func (a *assembler) room() int {
	return a.limit - len(a.cur)
}

func (a *assembler) addContent(r row) {
	if a.room() <= 0 {
		a.flush()
	}
	a.cur = append(a.cur, r.text)
	if !a.hasContent {
		a.start = r.start
		a.hasContent = true
	}
	a.end = r.end
	a.lastEnd = r.end
}

// addBlank appends a spacing row. A spacing row that would leave a page
// without room for content is dropped, so no page holds only blank rows.
func (a *assembler) addBlank() {
	if a.room() <= 0 {
		a.flush()
	}
	if !a.hasContent && len(a.cur)+1 >= a.limit {
		return
	}
	a.cur = append(a.cur, "")
}

func (a *assembler) flush() {
	if len(a.cur) == 0 {
		return
	}
	span := Span{Start: a.lastEnd, End: a.lastEnd}
	if a.hasContent {
		span = Span{Start: a.start, End: a.end}
	}
	a.pages = append(a.pages, a.cur)
	a.spans = append(a.spans, span)
	a.cur = nil
	a.hasContent = false
}

// FindPage returns the index of the page holding the rune at offset in the
// source content. Offsets that fall between pages belong to the following
// page, negative offsets to the first page and offsets past the end of the
// content to the last page.
func FindPage(r Result, offset int) int {
	if len(r.Pages) == 0 {
		return 0
	}
	offset = max(0, offset)
	for i, s := range r.Spans {
		if s.End > offset {
			return i
		}
	}
	return len(r.Pages) - 1
}
