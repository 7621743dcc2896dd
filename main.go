package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/charmbracelet/folio/cache"
	"github.com/charmbracelet/folio/config"
	"github.com/charmbracelet/folio/pipeline"
	"github.com/charmbracelet/folio/preload"
	"github.com/charmbracelet/folio/ui"
	"github.com/charmbracelet/folio/utils"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	pager      bool
	printMode  bool
	pageNumber int
	mouse      bool

	manager *config.Manager

	rootCmd = &cobra.Command{
		Use:   "folio [SOURCE]",
		Short: "Read long texts page by page on the CLI",
		Long: paragraph(
			fmt.Sprintf("\nRead books and long texts in the terminal, %s.", keyword("one page at a time")),
		),
		Example:          paragraph("folio book.txt\nfolio --print --page 3 book.txt\ncat book.txt | folio"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
		RunE: execute,
	}
)

// source provides a readable text source.
type source struct {
	reader io.ReadCloser
	URL    string
}

// sourceFromArg parses an argument and creates a readable source for it.
func sourceFromArg(arg string) (*source, error) {
	// from stdin
	if arg == "-" {
		return &source{reader: os.Stdin, URL: "-"}, nil
	}

	// a file:
	st, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", arg)
	}
	r, err := os.Open(arg)
	u, _ := filepath.Abs(arg)
	return &source{r, u}, err
}

// readSource reads a whole source and finds its chapters.
func readSource(src *source) (string, []pipeline.Chapter, error) {
	b, err := io.ReadAll(src.reader)
	if err != nil {
		return "", nil, err
	}
	content := string(utils.RemoveFrontmatter(b))
	return content, utils.DetectChapters(content), nil
}

func loadConfig(cmd *cobra.Command) error {
	dirs, err := config.DefaultDirs()
	if err != nil {
		return err
	}
	manager, err = config.NewManager(viper.GetViper(), configFile, dirs...)
	if err != nil {
		return err
	}
	cfg := manager.Get()
	log.SetLevel(cfg.Level())

	mouse = viper.GetBool("mouse")
	pager = viper.GetBool("pager")

	if pageNumber < 0 {
		return fmt.Errorf("invalid page number: %d", pageNumber)
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	// Plain text when stdout is not a terminal and no TUI will run
	if !isTerminal {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	log.Debug("configuration loaded", "file", manager.FileUsed(), "command", cmd.Name())
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, err
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	var src *source
	switch {
	case len(args) == 1:
		s, err := sourceFromArg(args[0])
		if err != nil {
			return err
		}
		src = s
	default:
		// if stdin is a pipe then use stdin for input. note that you can
		// also explicitly use a - to read from stdin.
		yes, err := stdinIsPipe()
		if err != nil {
			return err
		}
		if !yes {
			return errors.New("missing source: pass a file or pipe text to folio")
		}
		src = &source{reader: os.Stdin, URL: "-"}
	}
	defer src.reader.Close() //nolint:errcheck

	content, chapters, err := readSource(src)
	if err != nil {
		return err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if printMode || pageNumber > 0 || pager || !isTerminal || src.URL == "-" {
		return executeCLI(cmd, content, chapters, os.Stdout)
	}
	return runTUI(src.URL, content, chapters)
}

// newPipeline builds a pipeline and its collaborators from the
// configuration.
func newPipeline(cfg *config.Config, width, height int, n pipeline.Notifier) *pipeline.Pipeline {
	logger := log.Default()

	cacheOpts := []cache.Option{
		cache.WithCapacity(cfg.Cache.Capacity),
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithLogger(logger),
	}
	if cfg.Cache.Persist {
		path := cfg.Cache.Path
		if path == "" {
			path = config.DefaultCachePath()
		}
		store, err := cache.OpenSQLite(utils.ExpandPath(path))
		if err != nil {
			log.Warn("Could not open page cache, continuing without it", "err", err)
		} else {
			cacheOpts = append(cacheOpts, cache.WithStore(store))
		}
	}

	opts := []pipeline.Option{
		pipeline.WithCache(cache.New(cacheOpts...)),
		pipeline.WithScheduler(preload.NewScheduler(
			preload.WithWorkers(cfg.Preload.Workers),
			preload.WithQueueSize(cfg.Preload.Queue),
			preload.WithLogger(logger),
		)),
		pipeline.WithTelemetry(preload.NewTelemetry(cfg.Preload.History)),
		pipeline.WithSettings(cfg.ToSettings()),
		pipeline.WithLogger(logger),
		pipeline.WithViewport(width, height),
	}
	if n != nil {
		opts = append(opts, pipeline.WithNotifier(n))
	}
	return pipeline.New(opts...)
}

// printSize returns the page size used outside the TUI.
func printSize(cfg *config.Config) (int, int) {
	w, h := cfg.Width, cfg.Height
	if tw, th, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		if w == 0 {
			w = tw
		}
		if h == 0 {
			h = th
		}
	}
	if w == 0 {
		w = pipeline.DefaultWidth
	}
	if h == 0 {
		h = pipeline.DefaultHeight
	}
	return w, h
}

func executeCLI(_ *cobra.Command, content string, chapters []pipeline.Chapter, w io.Writer) error {
	cfg := manager.Get()
	width, height := printSize(cfg)

	p := newPipeline(cfg, width, height, nil)
	defer func() { _ = p.Shutdown() }()
	p.SetContent(content, chapters...)

	var out strings.Builder
	if err := writePages(&out, p, pageNumber); err != nil {
		return err
	}

	// display
	if pager {
		pa := utils.GetPagerCommand("PAGER")
		c := exec.Command(pa[0], pa[1:]...) // nolint:gosec
		c.Stdin = strings.NewReader(out.String())
		c.Stdout = os.Stdout
		return c.Run()
	}

	fmt.Fprint(w, out.String()) //nolint: errcheck
	return nil
}

// writePages writes page n, counted from 1, or every page when n is 0.
func writePages(w io.Writer, p *pipeline.Pipeline, n int) error {
	total := p.TotalPages()
	if n > total {
		return fmt.Errorf("page %d out of range: the text has %d pages", n, total)
	}

	first, last := 0, total-1
	if n > 0 {
		first, last = n-1, n-1
	}
	for i := first; i <= last; i++ {
		p.GotoPage(i)
		page := p.CurrentPage()

		// trim lines
		lines := strings.Split(page, "\n")
		for j, l := range lines {
			lines[j] = strings.TrimRight(l, " ")
		}
		if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, pageFooter.Render(footer(i+1, total))); err != nil {
			return err
		}
	}
	return nil
}

func footer(n, total int) string {
	return fmt.Sprintf("── %d/%d ──", n, total)
}

func runTUI(path string, content string, chapters []pipeline.Chapter) error {
	// Read environment to get debugging stuff
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg := manager.Get()
	uiCfg.Path = path
	uiCfg.PageWidth = cfg.Width
	uiCfg.PageHeight = cfg.Height
	uiCfg.EnableMouse = mouse

	n := &ui.Notifier{}
	p := newPipeline(cfg, pipeline.DefaultWidth, pipeline.DefaultHeight, n)
	defer func() { _ = p.Shutdown() }()

	manager.OnChange(func(c *config.Config) {
		log.SetLevel(c.Level())
		if err := p.UpdateConfig(c.ToSettings()); err != nil {
			log.Warn("Could not apply configuration change", "err", err)
		}
	})
	if manager.FileUsed() != "" {
		manager.WatchConfig()
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(uiCfg, p, n, content, chapters).Run(); err != nil {
		return err
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", config.DefaultFile()))
	rootCmd.PersistentFlags().IntP("width", "w", 0, "page width in cells (default: terminal width)")
	rootCmd.PersistentFlags().Int("height", 0, "page height in cells (default: terminal height)")
	rootCmd.PersistentFlags().StringP("strategy", "s", "dynamic", "pagination strategy: dynamic or compact")
	rootCmd.PersistentFlags().Int("line-spacing", 0, "blank rows between lines")
	rootCmd.PersistentFlags().Int("paragraph-spacing", 1, "blank rows between paragraphs")
	rootCmd.Flags().BoolVarP(&printMode, "print", "P", false, "print pages instead of starting the TUI")
	rootCmd.Flags().IntVar(&pageNumber, "page", 0, "print a single page, counted from 1")
	rootCmd.Flags().BoolVarP(&pager, "pager", "p", false, "display with pager")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel (TUI-mode only)")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("width", rootCmd.PersistentFlags().Lookup("width"))
	_ = viper.BindPFlag("height", rootCmd.PersistentFlags().Lookup("height"))
	_ = viper.BindPFlag("strategy", rootCmd.PersistentFlags().Lookup("strategy"))
	_ = viper.BindPFlag("line_spacing", rootCmd.PersistentFlags().Lookup("line-spacing"))
	_ = viper.BindPFlag("paragraph_spacing", rootCmd.PersistentFlags().Lookup("paragraph-spacing"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("pager", rootCmd.Flags().Lookup("pager"))

	rootCmd.AddCommand(configCmd, manCmd, statsCmd)
}
