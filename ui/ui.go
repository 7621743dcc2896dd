package ui

import (
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/editor"

	"github.com/charmbracelet/folio/pipeline"
	"github.com/charmbracelet/folio/utils"
)

const statusBarHeight = 1

type state int

const (
	stateBrowse state = iota
	stateSearch
)

type (
	contentReadyMsg         struct{}
	statusMessageTimeoutMsg int
	editorFinishedMsg       struct {
		content  string
		chapters []pipeline.Chapter
		err      error
	}
)

// Notifier forwards pipeline notifications to a running program. Until a
// program is attached notifications are dropped.
type Notifier struct {
	mu   sync.Mutex
	prog *tea.Program
}

// ContentReady implements pipeline.Notifier.
func (n *Notifier) ContentReady() {
	n.mu.Lock()
	prog := n.prog
	n.mu.Unlock()
	if prog != nil {
		prog.Send(contentReadyMsg{})
	}
}

func (n *Notifier) attach(prog *tea.Program) {
	n.mu.Lock()
	n.prog = prog
	n.mu.Unlock()
}

// NewProgram returns a new Tea program that pages through content. The
// pipeline should have been created with n as its notifier.
func NewProgram(cfg Config, p *pipeline.Pipeline, n *Notifier, content string, chapters []pipeline.Chapter) *tea.Program {
	log.Debug("Starting folio TUI", "path", cfg.Path)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	prog := tea.NewProgram(newModel(cfg, p, content, chapters), opts...)
	if n != nil {
		n.attach(prog)
	}
	return prog
}

type model struct {
	cfg      Config
	pipeline *pipeline.Pipeline
	content  string
	chapters []pipeline.Chapter
	keys     keyMap
	spinner  spinner.Model
	search   textinput.Model
	state    state

	width  int
	height int

	// Content was handed to the pipeline.
	loaded bool
	// The pipeline reported a paginated result at least once.
	ready    bool
	spinning bool
	showHelp bool

	statusMessage    string
	statusMessageSeq int
	err              error

	pageOpened time.Time
	now        func() time.Time
}

func newModel(cfg Config, p *pipeline.Pipeline, content string, chapters []pipeline.Chapter) model {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(spinnerStyle),
	)

	ti := textinput.New()
	ti.Prompt = " Find chapter: "
	ti.PromptStyle = logoStyle
	ti.CharLimit = 80

	return model{
		cfg:      cfg,
		pipeline: p,
		content:  content,
		chapters: chapters,
		keys:     newKeyMap(),
		spinner:  sp,
		search:   ti,
		spinning: true,
		now:      time.Now,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w, h := m.pageSize()
		if err := m.pipeline.Resize(w, h); err != nil {
			return m, m.showStatusMessage("Resize failed: " + err.Error())
		}
		if !m.loaded {
			m.loaded = true
			if err := m.pipeline.AsyncPaginateAndRender(m.content, m.chapters...); err != nil {
				m.err = err
				return m, nil
			}
		}
		return m, m.startSpinner()

	case contentReadyMsg:
		m.ready = true
		m.pageOpened = m.now()
		return m, nil

	case spinner.TickMsg:
		if m.ready && m.pipeline.State() != pipeline.Paginating {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMessageTimeoutMsg:
		if int(msg) == m.statusMessageSeq {
			m.statusMessage = ""
		}
		return m, nil

	case editorFinishedMsg:
		if msg.err != nil {
			log.Error("editor failed", "err", msg.err)
			return m, m.showStatusMessage("Editor failed: " + msg.err.Error())
		}
		m.content, m.chapters = msg.content, msg.chapters
		if err := m.pipeline.AsyncPaginateAndRender(m.content, m.chapters...); err != nil {
			return m, m.showStatusMessage("Reload failed: " + err.Error())
		}
		return m, m.startSpinner()

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelDown:
			m.turn(m.pipeline.NextPage)
		case tea.MouseButtonWheelUp:
			m.turn(m.pipeline.PrevPage)
		}
		return m, nil

	case tea.KeyMsg:
		if m.state == stateSearch {
			return m.updateSearch(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.recordReadingTime(m.pipeline.CurrentIndex())
		return m, tea.Quit
	case key.Matches(msg, m.keys.Next):
		m.turn(m.pipeline.NextPage)
	case key.Matches(msg, m.keys.Prev):
		m.turn(m.pipeline.PrevPage)
	case key.Matches(msg, m.keys.First):
		m.turn(func() bool { return m.pipeline.GotoPage(0) })
	case key.Matches(msg, m.keys.Last):
		m.turn(func() bool { return m.pipeline.GotoPage(m.pipeline.TotalPages() - 1) })
	case key.Matches(msg, m.keys.NextChapter):
		return m, m.jumpChapter(1)
	case key.Matches(msg, m.keys.PrevChapter):
		return m, m.jumpChapter(-1)
	case key.Matches(msg, m.keys.Search):
		if len(m.pipeline.Chapters()) == 0 {
			return m, m.showStatusMessage("No chapters")
		}
		m.state = stateSearch
		m.search.Reset()
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Copy):
		text := m.pipeline.CurrentLines().String()
		if err := clipboard.WriteAll(text); err != nil {
			log.Debug("clipboard unavailable", "err", err)
			return m, m.showStatusMessage("Could not copy page")
		}
		return m, m.showStatusMessage("Copied page to clipboard")
	case key.Matches(msg, m.keys.Edit):
		return m, m.openEditor()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.state = stateBrowse
		m.search.Blur()
		return m, nil
	case tea.KeyEnter:
		m.state = stateBrowse
		m.search.Blur()
		matches := m.pipeline.FindChapter(m.search.Value())
		if len(matches) == 0 {
			return m, m.showStatusMessage("No chapter matches")
		}
		best := matches[0]
		if page, ok := m.pipeline.PageForChapter(best.Index); ok {
			m.turn(func() bool { return m.pipeline.GotoPage(page) })
		}
		return m, m.showStatusMessage(best.Chapter.Title)
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// turn runs a navigation and charges the time spent on the page left to
// the reading telemetry.
func (m *model) turn(move func() bool) {
	prev := m.pipeline.CurrentIndex()
	if move() {
		m.recordReadingTime(prev)
	}
}

func (m *model) recordReadingTime(page int) {
	now := m.now()
	if m.cfg.RecordReadingTime && !m.pageOpened.IsZero() {
		m.pipeline.RecordReadingTime(page, now.Sub(m.pageOpened).Seconds())
	}
	m.pageOpened = now
}

// jumpChapter moves delta chapters away from the current one. Going back
// from inside a chapter lands on its first page.
func (m *model) jumpChapter(delta int) tea.Cmd {
	chapters := m.pipeline.Chapters()
	if len(chapters) == 0 {
		return m.showStatusMessage("No chapters")
	}

	target := 0
	if cur, ok := m.pipeline.CurrentChapter(); ok {
		i := slices.Index(chapters, cur)
		target = i + delta
		if delta < 0 {
			if first, ok := m.pipeline.PageForChapter(i); ok && first < m.pipeline.CurrentIndex() {
				target = i
			}
		}
	} else if delta < 0 {
		return nil
	}

	page, ok := m.pipeline.PageForChapter(target)
	if !ok {
		return nil
	}
	m.turn(func() bool { return m.pipeline.GotoPage(page) })
	return nil
}

func (m *model) openEditor() tea.Cmd {
	path := m.cfg.Path
	if path == "" || path == "-" {
		return m.showStatusMessage("Nothing to edit")
	}
	c, err := editor.Cmd("folio", path)
	if err != nil {
		return m.showStatusMessage("Could not open editor")
	}
	return tea.ExecProcess(c, func(err error) tea.Msg {
		if err != nil {
			return editorFinishedMsg{err: err}
		}
		content, chapters, err := readBook(path)
		return editorFinishedMsg{content: content, chapters: chapters, err: err}
	})
}

func readBook(path string) (string, []pipeline.Chapter, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err //nolint:wrapcheck
	}
	content := string(utils.RemoveFrontmatter(b))
	return content, utils.DetectChapters(content), nil
}

func (m *model) showStatusMessage(msg string) tea.Cmd {
	m.statusMessage = msg
	m.statusMessageSeq++
	seq := m.statusMessageSeq
	return tea.Tick(m.cfg.StatusTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg(seq)
	})
}

func (m *model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// pageSize returns the viewport handed to the pipeline.
func (m model) pageSize() (int, int) {
	w, h := m.width, m.height
	if !m.cfg.HideStatusBar {
		h -= statusBarHeight
	}
	if m.cfg.PageWidth > 0 {
		w = min(w, m.cfg.PageWidth)
	}
	if m.cfg.PageHeight > 0 {
		h = min(h, m.cfg.PageHeight)
	}
	return max(w, 1), max(h, 1)
}

func (m model) View() string {
	if m.err != nil {
		return errorView(m.err)
	}
	if !m.ready {
		return " " + m.spinner.View() + loadingStyle(" Paginating…")
	}

	var b strings.Builder
	lines := strings.Split(m.pipeline.CurrentPage(), "\n")
	if m.showHelp {
		help := strings.Split(m.helpView(), "\n")
		lines = append(lines[:max(0, len(lines)-len(help))], help...)
	}
	b.WriteString(strings.Join(lines, "\n"))

	if !m.cfg.HideStatusBar {
		b.WriteString("\n")
		switch m.state {
		case stateSearch:
			b.WriteString(m.search.View())
		default:
			m.statusBarView(&b)
		}
	}
	return b.String()
}

func errorView(err error) string {
	return "\n" + errorStyle("ERROR") + " " + err.Error() + "\n\n" +
		loadingStyle("  Press q to quit.")
}
