package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"bpmsync/internal/template"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WatchDir string `toml:"watch_dir"`
	LogDir   string `toml:"log_dir"`
}

// Player contains the VLC HTTP remote-control endpoint.
type Player struct {
	URL              string `toml:"url"`
	Password         string `toml:"password"`
	RequestTimeoutMS int    `toml:"request_timeout_ms"`
}

// Sync contains timing and threshold settings for the rate control loop.
type Sync struct {
	TempoField      string  `toml:"tempo_field"`
	PollIntervalMS  int     `toml:"poll_interval_ms"`
	ErrorIntervalMS int     `toml:"error_interval_ms"`
	DriftThreshold  float64 `toml:"drift_threshold"`
}

// Watch contains status-file watching settings.
type Watch struct {
	// Encoding is the text encoding of the status files: "utf-8" or "utf-16".
	// A byte order mark in the file always takes precedence.
	Encoding string `toml:"encoding"`
	// MatchMode selects template placeholder matching: "longest" or "shortest".
	MatchMode string `toml:"match_mode"`
	// Prime parses registered files already present at startup.
	Prime bool `toml:"prime"`
}

// API contains the local control API settings. An empty bind disables it.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Journal contains the rate adjustment journal settings.
type Journal struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"` // Default: <log_dir>/adjustments.db
	RetentionDays int    `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for bpmsync.
//
// Configuration sections by subsystem:
//   - Paths: watched status directory and log directory
//   - Player: VLC HTTP interface address and password
//   - Sync: tempo field, loop intervals, and drift threshold
//   - Watch: status file encoding, template match mode, startup priming
//   - Templates: status filename to placeholder template mapping
//   - API: local control API bind address and token
//   - Journal: SQLite audit of issued rate commands
//   - Logging: log format, level, and rotation
type Config struct {
	Paths     Paths             `toml:"paths"`
	Player    Player            `toml:"player"`
	Sync      Sync              `toml:"sync"`
	Watch     Watch             `toml:"watch"`
	Templates map[string]string `toml:"templates"`
	API       API               `toml:"api"`
	Journal   Journal           `toml:"journal"`
	Logging   Logging           `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// A file that declares [templates] replaces the default mapping.
		cfg.Templates = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if cfg.Templates == nil {
			cfg.Templates = defaultTemplates()
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("bpmsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the watch and log directories. A watch path that
// exists but is not a directory is a configuration error.
func (c *Config) EnsureDirectories() error {
	if info, err := os.Stat(c.Paths.WatchDir); err == nil && !info.IsDir() {
		return fmt.Errorf("paths.watch_dir %q is not a directory", c.Paths.WatchDir)
	}
	for _, dir := range []string{c.Paths.WatchDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Journal.Enabled {
		if err := os.MkdirAll(filepath.Dir(c.Journal.Path), 0o755); err != nil {
			return fmt.Errorf("create journal directory: %w", err)
		}
	}
	return nil
}

// PollInterval returns the wait between sync iterations.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Sync.PollIntervalMS) * time.Millisecond
}

// ErrorInterval returns the wait after a failed player status fetch.
func (c *Config) ErrorInterval() time.Duration {
	return time.Duration(c.Sync.ErrorIntervalMS) * time.Millisecond
}

// RequestTimeout returns the bound applied to every player request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Player.RequestTimeoutMS) * time.Millisecond
}

// MatchMode returns the parsed template match mode.
func (c *Config) MatchMode() template.MatchMode {
	mode, _ := template.ParseMatchMode(c.Watch.MatchMode)
	return mode
}

// CompileTemplates compiles every configured template keyed by filename.
func (c *Config) CompileTemplates() (map[string]*template.Template, error) {
	compiled := make(map[string]*template.Template, len(c.Templates))
	for _, name := range c.TemplateFiles() {
		tmpl, err := template.Compile(c.Templates[name], template.WithMatchMode(c.MatchMode()))
		if err != nil {
			return nil, fmt.Errorf("templates.%q: %w", name, err)
		}
		compiled[name] = tmpl
	}
	return compiled, nil
}

// TemplateFiles returns the registered status filenames in sorted order.
func (c *Config) TemplateFiles() []string {
	names := make([]string, 0, len(c.Templates))
	for name := range c.Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
