package paginate

import (
	"fmt"
	"strings"
)

// Strategy selects how wrapped lines are assembled into pages.
type Strategy int

// Available strategies.
const (
	// Dynamic honors line and paragraph spacing.
	Dynamic Strategy = iota
	// Compact ignores all spacing and packs lines densely. It is handy for
	// quick page estimates.
	Compact
)

func (s Strategy) String() string {
	switch s {
	case Dynamic:
		return "dynamic"
	case Compact:
		return "compact"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy returns the strategy with the given name. The empty string
// selects Dynamic.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "dynamic":
		return Dynamic, nil
	case "compact":
		return Compact, nil
	default:
		return Dynamic, fmt.Errorf("unknown pagination strategy %q", name)
	}
}
