package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/truncate"

	"github.com/charmbracelet/folio/pipeline"
)

const (
	ellipsis       = "…"
	helpKeyColumn  = 11
	helpGap        = 4
	helpIndent     = 2
	minPaceSamples = 3
)

func folioLogoView(text string) string {
	return logoStyle.Render(text)
}

func (m model) statusBarView(b *strings.Builder) {
	showStatusMessage := m.statusMessage != ""

	// Logo
	logo := folioLogoView(" Folio ")

	// Spinner while pages are being laid out
	var statusIndicator string
	if m.pipeline.State() == pipeline.Paginating {
		statusIndicator = statusBarNoteStyle(" ") + m.spinner.View()
	}

	// Page position
	position := fmt.Sprintf(" %s/%s %3.f%% ",
		humanize.Comma(int64(m.pipeline.CurrentIndex()+1)),
		humanize.Comma(int64(m.pipeline.TotalPages())),
		m.pipeline.Progress()*100,
	)
	position = statusBarPositionStyle(position)

	// "Help" note
	helpNote := statusBarHelpStyle(" ? Help ")

	// Note
	note := m.statusMessage
	if !showStatusMessage {
		note = m.noteView()
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(statusIndicator)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)

	// Empty space
	padding := max(0,
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(statusIndicator)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)
	note += strings.Repeat(" ", padding)
	if showStatusMessage {
		note = statusBarMessageStyle(note)
	} else {
		note = statusBarNoteStyle(note)
	}

	fmt.Fprintf(b, "%s%s%s%s%s",
		logo,
		statusIndicator,
		note,
		position,
		helpNote,
	)
}

// noteView names what is being read: the current chapter, or else the
// file, followed by the estimated reading time left.
func (m model) noteView() string {
	note := m.cfg.Path
	if ch, ok := m.pipeline.CurrentChapter(); ok {
		note = ch.Title
	}
	if note == "" || note == "-" {
		note = "(stdin)"
	}
	if left := m.timeLeftView(); left != "" {
		note += " · " + left
	}
	return note
}

// timeLeftView estimates the reading time left from the reading pace.
func (m model) timeLeftView() string {
	t := m.pipeline.Telemetry()
	if t.Len() < minPaceSamples {
		return ""
	}
	ppm := t.PagesPerMinute()
	if ppm <= 0 {
		return ""
	}
	remaining := m.pipeline.TotalPages() - m.pipeline.CurrentIndex() - 1
	if remaining <= 0 {
		return ""
	}
	d := time.Duration(float64(remaining) / ppm * float64(time.Minute))
	now := m.now()
	return humanize.RelTime(now, now.Add(d), "left", "")
}

func (m model) helpView() string {
	var cols [2][]string
	for i, bindings := range m.keys.helpColumns() {
		for _, kb := range bindings {
			h := kb.Help()
			cols[i] = append(cols[i], fmt.Sprintf("%-*s%s", helpKeyColumn, h.Key, h.Desc))
		}
	}

	colWidth := 0
	for _, row := range cols[0] {
		colWidth = max(colWidth, ansi.PrintableRuneWidth(row))
	}

	rows := max(len(cols[0]), len(cols[1]))
	var b strings.Builder
	b.WriteString("\n")
	for i := range rows {
		left, right := cell(cols[0], i), cell(cols[1], i)
		fmt.Fprintf(&b, "%-*s%s", colWidth+helpGap, left, right)
		if i < rows-1 {
			b.WriteString("\n")
		}
	}
	s := indent.String(b.String(), helpIndent)

	// Fill up empty cells with spaces for background coloring
	if m.width > 0 {
		lines := strings.Split(s, "\n")
		for i := range lines {
			n := max(m.width-ansi.PrintableRuneWidth(lines[i]), 0)
			lines[i] += strings.Repeat(" ", n)
		}
		s = strings.Join(lines, "\n")
	}

	return helpViewStyle(s)
}

func cell(col []string, i int) string {
	if i < len(col) {
		return col[i]
	}
	return ""
}
