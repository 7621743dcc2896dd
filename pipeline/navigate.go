package pipeline

import (
	"github.com/charmbracelet/folio/paginate"
)

// NextPage moves to the following page. It reports whether the position
// changed.
func (p *Pipeline) NextPage() bool {
	return p.move(func(cur, _ int) int { return cur + 1 })
}

// PrevPage moves to the preceding page. It reports whether the position
// changed.
func (p *Pipeline) PrevPage() bool {
	return p.move(func(cur, _ int) int { return cur - 1 })
}

// GotoPage moves to page n, clamped to the valid range. It reports whether
// the position changed.
func (p *Pipeline) GotoPage(n int) bool {
	return p.move(func(int, int) int { return n })
}

func (p *Pipeline) move(to func(cur, total int) int) bool {
	p.mu.Lock()
	total := p.result.TotalPages()
	next := max(0, min(to(p.current, total), total-1))
	moved := next != p.current
	p.current = next
	p.mu.Unlock()

	if moved {
		p.preload()
	}
	return moved
}

// CurrentIndex returns the index of the current page.
func (p *Pipeline) CurrentIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// TotalPages returns the number of pages of the loaded content.
func (p *Pipeline) TotalPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result.TotalPages()
}

// Progress returns how far into the content the reader is, in (0, 1]. It is
// 0 when no content is loaded.
func (p *Pipeline) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := p.result.TotalPages()
	if !p.loaded || total == 0 {
		return 0
	}
	return float64(p.current+1) / float64(total)
}

// CurrentPage returns the rendered current page. Pages the preloader has
// not prepared yet are rendered on demand.
func (p *Pipeline) CurrentPage() string {
	p.mu.Lock()
	key, v, n, r := p.key, p.variant, p.current, p.result
	render := p.renderWith(p.metrics, p.chapters, r)
	p.mu.Unlock()

	if key != "" {
		if e, ok := p.cache.Get(key); ok && e.Variant == v && e.IsRendered(n) {
			return e.Rendered[n]
		}
	}
	page, _ := r.Page(n)
	out := render(page, n)
	if key != "" {
		p.cache.SetRendered(key, v, n, out)
	}
	return out
}

// CurrentLines returns the unrendered lines of the current page.
func (p *Pipeline) CurrentLines() paginate.Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	page, _ := p.result.Page(p.current)
	return page
}

// RecordReadingTime records how long the reader spent on a page.
func (p *Pipeline) RecordReadingTime(page int, seconds float64) {
	p.telemetry.Record(page, seconds)
}

// Paginate returns the pages of content under the current metrics. It does
// not change the loaded content.
func (p *Pipeline) Paginate(content string) []paginate.Page {
	p.mu.Lock()
	m, s := p.metrics, p.settings.Strategy
	p.mu.Unlock()

	_, e := p.fetch(content, m, s)
	return e.Result.Pages
}

// PageCount returns the number of pages content takes under the current
// metrics.
func (p *Pipeline) PageCount(content string) int {
	return len(p.Paginate(content))
}

// PageContent returns page n of content under the current metrics.
func (p *Pipeline) PageContent(content string, n int) (paginate.Page, bool) {
	pages := p.Paginate(content)
	if n < 0 || n >= len(pages) {
		return nil, false
	}
	return pages[n], true
}

// FindPageByPosition returns the page of content holding the rune at
// offset under the current metrics.
func (p *Pipeline) FindPageByPosition(content string, offset int) int {
	p.mu.Lock()
	m, s := p.metrics, p.settings.Strategy
	p.mu.Unlock()

	_, e := p.fetch(content, m, s)
	return paginate.FindPage(e.Result, offset)
}

// Chapters returns the chapters of the loaded content.
func (p *Pipeline) Chapters() []Chapter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Chapter(nil), p.chapters...)
}

// ChapterForPage returns the chapter page n belongs to.
func (p *Pipeline) ChapterForPage(n int) (Chapter, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 0 || n >= len(p.result.Spans) {
		return Chapter{}, false
	}
	i := chapterIndex(p.chapters, p.result.Spans[n])
	if i < 0 {
		return Chapter{}, false
	}
	return p.chapters[i], true
}

// CurrentChapter returns the chapter of the current page.
func (p *Pipeline) CurrentChapter() (Chapter, bool) {
	return p.ChapterForPage(p.CurrentIndex())
}

// PageForChapter returns the page on which chapter i starts.
func (p *Pipeline) PageForChapter(i int) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.chapters) {
		return 0, false
	}
	return paginate.FindPage(p.result, p.chapters[i].Start), true
}

// FindChapter searches chapter titles for query, best match first.
func (p *Pipeline) FindChapter(query string) []ChapterMatch {
	return findChapters(p.Chapters(), query)
}
