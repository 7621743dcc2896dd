package paginate

import "fmt"

// DefaultFontSize is used when a layout carries no font size.
const DefaultFontSize = 14

// When spacing is enabled, pages keep at least this many rows.
const minEffectiveLines = 5

// Margins are the blank columns and rows around the page content.
type Margins struct {
	Left   int `mapstructure:"left" yaml:"left"`
	Right  int `mapstructure:"right" yaml:"right"`
	Top    int `mapstructure:"top" yaml:"top"`
	Bottom int `mapstructure:"bottom" yaml:"bottom"`
}

// Layout holds the user-facing settings that shape a page.
type Layout struct {
	FontSize         int     `mapstructure:"font_size" yaml:"font_size"`
	LineSpacing      int     `mapstructure:"line_spacing" yaml:"line_spacing"`
	ParagraphSpacing int     `mapstructure:"paragraph_spacing" yaml:"paragraph_spacing"`
	Margins          Margins `mapstructure:"margins" yaml:"margins"`
}

// DefaultLayout returns the layout used when no settings are supplied.
func DefaultLayout() Layout {
	return Layout{
		FontSize:         DefaultFontSize,
		LineSpacing:      0,
		ParagraphSpacing: 1,
		Margins:          Margins{Left: 2, Right: 2, Top: 1, Bottom: 1},
	}
}

// Metrics are the numbers pagination works with, derived from a viewport
// size and a Layout. Metrics is a value: a settings change produces a new
// one.
type Metrics struct {
	ContainerWidth   int
	ContainerHeight  int
	Margins          Margins
	ContentWidth     int
	ContentHeight    int
	CharsPerLine     int
	LinesPerPage     int
	FontSize         int
	LineSpacing      int
	ParagraphSpacing int
}

// CalculateMetrics derives page metrics for a container of the given size
// in columns and rows. Content dimensions never drop below 1 and negative
// settings are treated as 0.
func CalculateMetrics(containerWidth, containerHeight int, l Layout) Metrics {
	l = l.clamped()
	contentWidth := max(1, containerWidth-l.Margins.Left-l.Margins.Right)
	contentHeight := max(1, containerHeight-l.Margins.Top-l.Margins.Bottom)

	return Metrics{
		ContainerWidth:   containerWidth,
		ContainerHeight:  containerHeight,
		Margins:          l.Margins,
		ContentWidth:     contentWidth,
		ContentHeight:    contentHeight,
		CharsPerLine:     contentWidth,
		LinesPerPage:     contentHeight,
		FontSize:         l.FontSize,
		LineSpacing:      l.LineSpacing,
		ParagraphSpacing: l.ParagraphSpacing,
	}
}

func (l Layout) clamped() Layout {
	if l.FontSize <= 0 {
		l.FontSize = DefaultFontSize
	}
	l.LineSpacing = max(0, l.LineSpacing)
	l.ParagraphSpacing = max(0, l.ParagraphSpacing)
	l.Margins.Left = max(0, l.Margins.Left)
	l.Margins.Right = max(0, l.Margins.Right)
	l.Margins.Top = max(0, l.Margins.Top)
	l.Margins.Bottom = max(0, l.Margins.Bottom)
	return l
}

// Layout returns the settings the metrics were computed from.
func (m Metrics) Layout() Layout {
	return Layout{
		FontSize:         m.FontSize,
		LineSpacing:      m.LineSpacing,
		ParagraphSpacing: m.ParagraphSpacing,
		Margins:          m.Margins,
	}
}

// EffectiveLines is the number of rows a page may hold. When spacing is
// enabled some rows are reserved for the inserted blank rows, but a page is
// never cut below five rows (or LinesPerPage, if that is smaller).
func (m Metrics) EffectiveLines() int {
	lines := max(1, m.LinesPerPage)
	spacing := max(0, m.LineSpacing) + max(0, m.ParagraphSpacing)
	if spacing == 0 {
		return lines
	}
	effective := lines - min(lines/4, spacing)
	if floor := min(minEffectiveLines, lines); effective < floor {
		effective = floor
	}
	return effective
}

func (m Metrics) String() string {
	return fmt.Sprintf("%dx%d content=%dx%d spacing=%d/%d",
		m.ContainerWidth, m.ContainerHeight,
		m.ContentWidth, m.ContentHeight,
		m.LineSpacing, m.ParagraphSpacing)
}
