package pipeline

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/truncate"

	"github.com/charmbracelet/folio/paginate"
)

const ellipsis = "…"

// Renderer turns a page into the text shown in the viewport: margins around
// the content and the current chapter title in the top margin.
type Renderer struct {
	TitleStyle lipgloss.Style
}

// Signature identifies the output of r. It is a sample title as r draws
// it, so it changes with the style and with the color profile in effect.
func (r *Renderer) Signature() string {
	return r.TitleStyle.Render("Aa")
}

// NewRenderer returns a renderer with the default styles.
func NewRenderer() *Renderer {
	return &Renderer{
		TitleStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}).
			Italic(true),
	}
}

// Render lays out page p for metrics m. The result always has
// m.ContentHeight rows of content plus the margin rows.
//
// The title is drawn in the first row of the top margin. Content rows are
// never given up for it: with no top margin the title is not shown.
func (r *Renderer) Render(p paginate.Page, m paginate.Metrics, title string) string {
	var b strings.Builder

	for i := range m.Margins.Top {
		if i == 0 && title != "" {
			w := max(1, m.ContainerWidth-m.Margins.Left-m.Margins.Right)
			title = truncate.StringWithTail(title, uint(w), ellipsis)
			b.WriteString(indent.String(r.TitleStyle.Render(title), uint(m.Margins.Left)))
		}
		b.WriteByte('\n')
	}

	rows := make([]string, max(len(p), m.ContentHeight))
	copy(rows, p)
	body := strings.Join(rows, "\n")
	if m.Margins.Left > 0 {
		body = indent.String(body, uint(m.Margins.Left))
	}
	b.WriteString(body)

	for range m.Margins.Bottom {
		b.WriteByte('\n')
	}
	return b.String()
}
