// Package pipeline ties pagination, caching and preloading together behind
// a stateful reader: it holds the content, the viewport and the reading
// position, and keeps the pages correct as any of them change.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"

	"github.com/charmbracelet/folio/cache"
	"github.com/charmbracelet/folio/paginate"
	"github.com/charmbracelet/folio/preload"
)

// Default viewport, in cells.
const (
	DefaultWidth  = 80
	DefaultHeight = 24
)

// State is the pagination state of a Pipeline.
type State int

// Pipeline states.
const (
	Idle State = iota
	Paginating
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Paginating:
		return "paginating"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Settings are the reader preferences that affect pagination.
type Settings struct {
	Layout   paginate.Layout
	Strategy paginate.Strategy
	// MaxPreload bounds how many pages ahead are prepared.
	MaxPreload int
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		Layout:     paginate.DefaultLayout(),
		Strategy:   paginate.Dynamic,
		MaxPreload: preload.DefaultMaxPages,
	}
}

// Notifier is told when asynchronously prepared content has been installed.
type Notifier interface {
	ContentReady()
}

// NotifyFunc adapts a function to a Notifier.
type NotifyFunc func()

// ContentReady calls f.
func (f NotifyFunc) ContentReady() { f() }

// Pipeline is a paginated view over one piece of content. All methods are
// safe for concurrent use.
type Pipeline struct {
	logger    *log.Logger
	cache     *cache.Cache
	scheduler *preload.Scheduler
	telemetry *preload.Telemetry
	notifier  Notifier
	renderer  *Renderer

	mu       sync.Mutex
	width    int
	height   int
	settings Settings
	metrics  paginate.Metrics
	state    State
	loaded   bool
	content  string
	chapters []Chapter
	// variant names how pages of the loaded content are rendered.
	variant string
	key     cache.Key
	result  paginate.Result
	current int
	// seq changes whenever the content or the metrics change. Background
	// work only installs its result if seq is unchanged.
	seq uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCache sets the pagination cache.
func WithCache(c *cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithScheduler sets the scheduler used for background work.
func WithScheduler(s *preload.Scheduler) Option {
	return func(p *Pipeline) { p.scheduler = s }
}

// WithTelemetry sets the reading history used to predict pages.
func WithTelemetry(t *preload.Telemetry) Option {
	return func(p *Pipeline) { p.telemetry = t }
}

// WithNotifier sets the receiver of ContentReady notifications.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSettings sets the initial settings.
func WithSettings(s Settings) Option {
	return func(p *Pipeline) { p.settings = s }
}

// WithViewport sets the initial viewport size in cells.
func WithViewport(width, height int) Option {
	return func(p *Pipeline) {
		p.width, p.height = width, height
	}
}

// WithRenderer sets the page renderer.
func WithRenderer(r *Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// New returns an idle pipeline. Missing collaborators are created with
// their defaults; the pipeline owns them from then on and releases them in
// Shutdown.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:   log.Default(),
		width:    DefaultWidth,
		height:   DefaultHeight,
		settings: DefaultSettings(),
		result:   paginate.Empty(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithPrefix("pipeline")
	if p.cache == nil {
		p.cache = cache.New(cache.WithLogger(p.logger))
	}
	if p.scheduler == nil {
		p.scheduler = preload.NewScheduler(preload.WithLogger(p.logger))
	}
	if p.telemetry == nil {
		p.telemetry = preload.NewTelemetry(preload.DefaultHistory)
	}
	if p.renderer == nil {
		p.renderer = NewRenderer()
	}
	p.metrics = paginate.CalculateMetrics(p.width, p.height, p.settings.Layout)
	return p
}

// Shutdown stops background work and closes the cache.
func (p *Pipeline) Shutdown() error {
	p.scheduler.Supersede()
	p.scheduler.Shutdown()
	return p.cache.Close()
}

// SetContent replaces the content and paginates it synchronously. The
// reading position moves to the first page.
func (p *Pipeline) SetContent(content string, chapters ...Chapter) {
	p.scheduler.Supersede()

	p.mu.Lock()
	p.seq++
	p.state = Paginating
	m, s := p.metrics, p.settings.Strategy
	chapters = normalizeChapters(chapters, utf8.RuneCountInString(content))

	v := p.renderVariant(chapters)

	key, e := p.fetch(content, m, s)
	e = p.switchVariant(key, e, v)
	p.install(content, chapters, v, key, e.Result, 0)
	if !e.IsRendered(0) {
		out := p.renderWith(m, chapters, e.Result)(e.Result.Pages[0], 0)
		p.cache.SetRendered(key, v, 0, out)
	}
	p.mu.Unlock()

	p.logger.Debug("content set", "pages", e.Result.TotalPages(), "metrics", m)
	p.preload()
}

// AsyncPaginateAndRender replaces the content in the background: it
// paginates, renders every page, installs the result and notifies the
// Notifier. Work still in flight is superseded. When the content is the
// one already loaded, the reading position is kept.
//
// The only errors returned are submission errors.
func (p *Pipeline) AsyncPaginateAndRender(content string, chapters ...Chapter) error {
	return p.paginateAsync(content, chapters, nil)
}

// paginateAsync implements AsyncPaginateAndRender. If the work cannot be
// submitted and nothing else changed meanwhile, rollback runs with p.mu
// held.
func (p *Pipeline) paginateAsync(content string, chapters []Chapter, rollback func()) error {
	p.scheduler.Supersede()

	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.state = Paginating
	m, s := p.metrics, p.settings.Strategy
	anchor := 0
	if p.loaded && p.content == content {
		anchor = p.result.Spans[p.current].Start
	}
	chapters = normalizeChapters(chapters, utf8.RuneCountInString(content))
	v := p.renderVariant(chapters)
	p.mu.Unlock()

	_, err := p.scheduler.Submit("paginate", func(ctx context.Context) error {
		return p.paginateAndRender(ctx, seq, content, chapters, v, m, s, anchor)
	})
	if err != nil {
		p.mu.Lock()
		if p.seq == seq {
			// Superseded work will not install anything either.
			p.state = Idle
			if p.loaded {
				p.state = Ready
			}
			if rollback != nil {
				rollback()
			}
		}
		p.mu.Unlock()
	}
	return err
}

func (p *Pipeline) paginateAndRender(ctx context.Context, seq uint64, content string, chapters []Chapter, v string, m paginate.Metrics, s paginate.Strategy, anchor int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pagination failed", "panic", r)
			p.mu.Lock()
			if p.seq == seq {
				p.install(content, chapters, v, "", paginate.Empty(), 0)
			}
			p.mu.Unlock()
			p.notify()
			err = nil
		}
	}()

	key, e := p.fetch(content, m, s)
	e = e.ForVariant(v)
	render := p.renderWith(m, chapters, e.Result)
	for n, page := range e.Result.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.IsRendered(n) {
			e.Rendered[n] = render(page, n)
		}
	}
	p.cache.Set(key, e, 0)

	p.mu.Lock()
	if p.seq != seq {
		p.mu.Unlock()
		return nil
	}
	p.install(content, chapters, v, key, e.Result, paginate.FindPage(e.Result, anchor))
	p.mu.Unlock()

	p.logger.Debug("content ready", "pages", e.Result.TotalPages(), "metrics", m)
	p.notify()
	return nil
}

// Resize changes the viewport and repaginates loaded content in the
// background.
func (p *Pipeline) Resize(width, height int) error {
	p.mu.Lock()
	if width == p.width && height == p.height {
		p.mu.Unlock()
		return nil
	}
	prevWidth, prevHeight := p.width, p.height
	p.width, p.height = width, height
	return p.reconfigureLocked(func() {
		p.width, p.height = prevWidth, prevHeight
	})
}

// UpdateConfig applies new settings and repaginates loaded content in the
// background.
func (p *Pipeline) UpdateConfig(s Settings) error {
	p.mu.Lock()
	if s == p.settings {
		p.mu.Unlock()
		return nil
	}
	prev := p.settings
	p.settings = s
	return p.reconfigureLocked(func() { p.settings = prev })
}

// reconfigureLocked must be called with p.mu held, after the viewport or
// the settings changed. It releases it. When the repagination cannot be
// submitted, undo reverts the change so that the metrics keep describing
// the installed pages.
func (p *Pipeline) reconfigureLocked(undo func()) error {
	prev := p.metrics
	p.metrics = paginate.CalculateMetrics(p.width, p.height, p.settings.Layout)
	p.seq++
	if !p.loaded {
		p.mu.Unlock()
		return nil
	}
	content, chapters := p.content, p.chapters
	p.mu.Unlock()

	return p.paginateAsync(content, chapters, func() {
		undo()
		p.metrics = prev
	})
}

// install must be called with p.mu held.
func (p *Pipeline) install(content string, chapters []Chapter, variant string, key cache.Key, r paginate.Result, current int) {
	p.content = content
	p.chapters = chapters
	p.variant = variant
	p.key = key
	p.result = r
	p.current = max(0, min(current, r.TotalPages()-1))
	p.loaded = true
	p.state = Ready
}

// fetch returns the cached entry for content or paginates it. A panic during
// pagination degrades to a single empty page.
func (p *Pipeline) fetch(content string, m paginate.Metrics, s paginate.Strategy) (cache.Key, cache.Entry) {
	key := cache.Fingerprint(content, m, s)
	if e, ok := p.cache.Get(key); ok {
		return key, e
	}
	e := cache.NewEntry(p.paginate(content, m, s))
	p.cache.Set(key, e, 0)
	return key, e
}

func (p *Pipeline) paginate(content string, m paginate.Metrics, s paginate.Strategy) (r paginate.Result) {
	defer func() {
		if err := recover(); err != nil {
			p.logger.Error("pagination failed", "panic", err, "metrics", m)
			r = paginate.Empty()
		}
	}()
	return paginate.Paginate(content, m, s)
}

func (p *Pipeline) renderWith(m paginate.Metrics, chapters []Chapter, r paginate.Result) preload.RenderFunc {
	return func(page paginate.Page, n int) string {
		return p.renderer.Render(page, m, chapterTitle(chapters, r, n))
	}
}

// renderVariant names the rendering of pages for chapters: the chapter
// titles and where they fall, and the styling of the renderer.
func (p *Pipeline) renderVariant(chapters []Chapter) string {
	h := xxhash.New()
	_, _ = h.WriteString(p.renderer.Signature())
	for _, c := range chapters {
		_, _ = fmt.Fprintf(h, "\x00%d:%d:%s", c.Start, c.End, c.Title)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// switchVariant makes the entry under key hold pages of variant v,
// dropping pages rendered for another one.
func (p *Pipeline) switchVariant(key cache.Key, e cache.Entry, v string) cache.Entry {
	if e.Variant == v {
		return e
	}
	e = e.ForVariant(v)
	p.cache.Set(key, e, 0)
	return e
}

func (p *Pipeline) notify() {
	if p.notifier != nil {
		p.notifier.ContentReady()
	}
}

// preload hands the pages predicted after the current one to the scheduler.
func (p *Pipeline) preload() {
	p.mu.Lock()
	if !p.loaded || p.state != Ready {
		p.mu.Unlock()
		return
	}
	pages := preload.Predict(p.current, p.result.TotalPages(), p.telemetry.Samples(), p.settings.MaxPreload)
	key, v := p.key, p.variant
	render := p.renderWith(p.metrics, p.chapters, p.result)
	p.mu.Unlock()

	if len(pages) == 0 {
		return
	}
	if _, err := p.scheduler.Submit("warm", preload.Warm(p.cache, key, v, pages, render)); err != nil {
		p.logger.Debug("preload skipped", "err", err)
	}
}

// State returns the pagination state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Metrics returns the page metrics in effect.
func (p *Pipeline) Metrics() paginate.Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// Settings returns the settings in effect.
func (p *Pipeline) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// Telemetry returns the reading history.
func (p *Pipeline) Telemetry() *preload.Telemetry {
	return p.telemetry
}
