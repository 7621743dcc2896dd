package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	// Path of the book being read, shown in the status bar.
	Path string
	// PageWidth and PageHeight fix the page size. Zero follows the
	// terminal.
	PageWidth   int
	PageHeight  int
	EnableMouse bool

	// Record how long each page is read to tune preloading.
	RecordReadingTime bool          `env:"FOLIO_UI_READING_TIME" envDefault:"true"`
	StatusTimeout     time.Duration `env:"FOLIO_UI_STATUS_TIMEOUT" envDefault:"3s"`
	// For debugging the UI
	HideStatusBar bool `env:"FOLIO_UI_HIDE_STATUS_BAR"`
}
