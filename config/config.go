// Package config loads reader settings from a YAML file, the environment and
// command line flags, and reloads them when the file changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/charmbracelet/folio/cache"
	"github.com/charmbracelet/folio/paginate"
	"github.com/charmbracelet/folio/pipeline"
	"github.com/charmbracelet/folio/preload"
)

// AppName names the config, cache and log directories.
const AppName = "folio"

// FileName is the name of the config file.
const FileName = "folio.yml"

// Config is the full set of user settings.
type Config struct {
	// Width and Height fix the page size in cells. Zero means the size of
	// the terminal.
	Width            int              `mapstructure:"width" yaml:"width"`
	Height           int              `mapstructure:"height" yaml:"height"`
	FontSize         int              `mapstructure:"font_size" yaml:"font_size"`
	LineSpacing      int              `mapstructure:"line_spacing" yaml:"line_spacing"`
	ParagraphSpacing int              `mapstructure:"paragraph_spacing" yaml:"paragraph_spacing"`
	Margins          paginate.Margins `mapstructure:"margins" yaml:"margins"`
	Strategy         string           `mapstructure:"strategy" yaml:"strategy"`
	Cache            CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Preload          PreloadConfig    `mapstructure:"preload" yaml:"preload"`
	LogLevel         string           `mapstructure:"log_level" yaml:"log_level"`
}

// CacheConfig configures the pagination cache.
type CacheConfig struct {
	Capacity int           `mapstructure:"capacity" yaml:"capacity"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// Persist keeps paginated books on disk between runs.
	Persist bool   `mapstructure:"persist" yaml:"persist"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// PreloadConfig configures background page preparation.
type PreloadConfig struct {
	Workers  int `mapstructure:"workers" yaml:"workers"`
	Queue    int `mapstructure:"queue" yaml:"queue"`
	MaxPages int `mapstructure:"max_pages" yaml:"max_pages"`
	History  int `mapstructure:"history" yaml:"history"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	l := paginate.DefaultLayout()
	return &Config{
		FontSize:         l.FontSize,
		LineSpacing:      l.LineSpacing,
		ParagraphSpacing: l.ParagraphSpacing,
		Margins:          l.Margins,
		Strategy:         paginate.Dynamic.String(),
		Cache: CacheConfig{
			Capacity: cache.DefaultCapacity,
			TTL:      cache.DefaultTTL,
		},
		Preload: PreloadConfig{
			Workers:  preload.DefaultWorkers,
			Queue:    preload.DefaultQueueSize,
			MaxPages: preload.DefaultMaxPages,
			History:  preload.DefaultHistory,
		},
		LogLevel: "info",
	}
}

// Validate reports every setting that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, fmt.Errorf("page size must not be negative: %dx%d", c.Width, c.Height))
	}
	if c.LineSpacing < 0 || c.ParagraphSpacing < 0 {
		errs = append(errs, errors.New("spacing must not be negative"))
	}
	if m := c.Margins; m.Left < 0 || m.Right < 0 || m.Top < 0 || m.Bottom < 0 {
		errs = append(errs, errors.New("margins must not be negative"))
	}
	if _, err := paginate.ParseStrategy(c.Strategy); err != nil {
		errs = append(errs, err)
	}
	if c.Cache.Capacity < 1 {
		errs = append(errs, fmt.Errorf("cache capacity must be at least 1, got %d", c.Cache.Capacity))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL))
	}
	if c.Preload.Workers < 1 || c.Preload.Queue < 1 {
		errs = append(errs, errors.New("preload needs at least one worker and one queue slot"))
	}
	if c.Preload.MaxPages < 0 || c.Preload.History < 0 {
		errs = append(errs, errors.New("preload limits must not be negative"))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	return errors.Join(errs...)
}

// Layout returns the page layout described by the settings.
func (c *Config) Layout() paginate.Layout {
	return paginate.Layout{
		FontSize:         c.FontSize,
		LineSpacing:      c.LineSpacing,
		ParagraphSpacing: c.ParagraphSpacing,
		Margins:          c.Margins,
	}
}

// ToSettings converts the config to pipeline settings. Unknown strategies
// fall back to the default; Validate reports them.
func (c *Config) ToSettings() pipeline.Settings {
	s, _ := paginate.ParseStrategy(c.Strategy)
	return pipeline.Settings{
		Layout:     c.Layout(),
		Strategy:   s,
		MaxPreload: c.Preload.MaxPages,
	}
}

// Level returns the configured log level, or info.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v      *viper.Viper
	logger *log.Logger

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager loads settings into v. When cfgFile is empty the config is
// looked up as folio.yml in dirs; a missing file is not an error.
func NewManager(v *viper.Viper, cfgFile string, dirs ...string) (*Manager, error) {
	cm := &Manager{
		v:      v,
		logger: log.WithPrefix("config"),
	}
	if err := cm.initViper(cfgFile, dirs); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cm.config = cfg
	return cm, nil
}

// initViper sets up viper with defaults and the config file.
func (cm *Manager) initViper(cfgFile string, dirs []string) error {
	v := cm.v
	d := DefaultConfig()
	v.SetDefault("width", d.Width)
	v.SetDefault("height", d.Height)
	v.SetDefault("font_size", d.FontSize)
	v.SetDefault("line_spacing", d.LineSpacing)
	v.SetDefault("paragraph_spacing", d.ParagraphSpacing)
	v.SetDefault("margins.left", d.Margins.Left)
	v.SetDefault("margins.right", d.Margins.Right)
	v.SetDefault("margins.top", d.Margins.Top)
	v.SetDefault("margins.bottom", d.Margins.Bottom)
	v.SetDefault("strategy", d.Strategy)
	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.persist", d.Cache.Persist)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("preload.workers", d.Preload.Workers)
	v.SetDefault("preload.queue", d.Preload.Queue)
	v.SetDefault("preload.max_pages", d.Preload.MaxPages)
	v.SetDefault("preload.history", d.Preload.History)
	v.SetDefault("log_level", d.LogLevel)

	// Environment variables with FOLIO_ prefix, e.g. FOLIO_CACHE_TTL.
	v.SetEnvPrefix(AppName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if cfgFile != "" && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	cm.logger.Debug("using configuration file", "path", v.ConfigFileUsed())
	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration.
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// FileUsed returns the path of the config file that was read, if any.
func (cm *Manager) FileUsed() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. Changes that do not
// validate are logged and ignored.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			cm.logger.Warn("ignoring configuration change", "path", e.Name, "err", err)
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		cm.logger.Debug("configuration reloaded", "path", e.Name)
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// DefaultDirs returns the directories searched for the config file, most
// specific first.
func DefaultDirs() ([]string, error) {
	dirs, err := gap.NewScope(gap.User, AppName).ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if c := os.Getenv("FOLIO_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

// DefaultFile returns where a new config file is created.
func DefaultFile() string {
	path, _ := gap.NewScope(gap.User, AppName).ConfigPath(FileName)
	return path
}

// DefaultCachePath returns the location of the persistent page cache.
func DefaultCachePath() string {
	path, _ := gap.NewScope(gap.User, AppName).CacheDir()
	return filepath.Join(path, "pages.db")
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# folio configuration
# width/height: page size in cells, 0 uses the terminal size
# strategy: "dynamic" honors spacing, "compact" ignores it
# cache.persist keeps paginated books in cache.path between runs

`)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	return os.WriteFile(path, append(header, data...), 0o644)
}
