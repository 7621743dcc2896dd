package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/charmbracelet/folio/paginate"
)

// Key identifies a pagination result: a fingerprint of the content together
// with every metrics field and the strategy. Two keys are equal only when
// pagination would be guaranteed to produce the same result.
type Key string

// Fingerprint returns the cache key for paginating content with m and s.
func Fingerprint(content string, m paginate.Metrics, s paginate.Strategy) Key {
	return Key(fmt.Sprintf("%016x-%d/%dx%d/%d.%d.%d.%d/%dx%d/%d/%d.%d/%s",
		xxhash.Sum64String(content), len(content),
		m.ContainerWidth, m.ContainerHeight,
		m.Margins.Left, m.Margins.Right, m.Margins.Top, m.Margins.Bottom,
		m.CharsPerLine, m.LinesPerPage,
		m.FontSize,
		m.LineSpacing, m.ParagraphSpacing,
		s,
	))
}
