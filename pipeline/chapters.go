package pipeline

import (
	"slices"

	"github.com/sahilm/fuzzy"

	"github.com/charmbracelet/folio/paginate"
)

// Chapter is a titled range of rune offsets in the content. End is
// exclusive; a zero End means the chapter runs until the next one starts.
type Chapter struct {
	Title string
	Start int
	End   int
}

// ChapterMatch is a chapter found by title search.
type ChapterMatch struct {
	Index   int
	Chapter Chapter
	// Matched holds the byte indexes of the title that matched the query.
	Matched []int
}

// normalizeChapters sorts chapters by start and closes open-ended ranges at
// the start of the following chapter, or at the end of the content.
func normalizeChapters(chapters []Chapter, contentLen int) []Chapter {
	if len(chapters) == 0 {
		return nil
	}
	out := slices.Clone(chapters)
	slices.SortStableFunc(out, func(a, b Chapter) int { return a.Start - b.Start })
	for i := range out {
		out[i].Start = max(0, out[i].Start)
		if out[i].End > out[i].Start {
			continue
		}
		out[i].End = contentLen
		if i+1 < len(out) {
			out[i].End = out[i+1].Start
		}
		out[i].End = max(out[i].End, out[i].Start)
	}
	return out
}

// chapterIndex returns the chapter a page belongs to: the chapter holding
// the first rune of the page, or failing that the first chapter whose range
// overlaps the page. It returns -1 when no chapter applies.
func chapterIndex(chapters []Chapter, span paginate.Span) int {
	for i, c := range chapters {
		if c.Start <= span.Start && span.Start < c.End {
			return i
		}
	}
	for i, c := range chapters {
		if c.Start < span.End && span.Start < c.End {
			return i
		}
	}
	return -1
}

func chapterTitle(chapters []Chapter, r paginate.Result, n int) string {
	if len(chapters) == 0 || n < 0 || n >= len(r.Spans) {
		return ""
	}
	if i := chapterIndex(chapters, r.Spans[n]); i >= 0 {
		return chapters[i].Title
	}
	return ""
}

type chapterSource []Chapter

func (s chapterSource) String(i int) string { return s[i].Title }
func (s chapterSource) Len() int            { return len(s) }

func findChapters(chapters []Chapter, query string) []ChapterMatch {
	var out []ChapterMatch
	for _, m := range fuzzy.FindFrom(query, chapterSource(chapters)) {
		out = append(out, ChapterMatch{
			Index:   m.Index,
			Chapter: chapters[m.Index],
			Matched: m.MatchedIndexes,
		})
	}
	return out
}
