package testsupport

import (
	"path/filepath"
	"testing"

	"bpmsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t            testing.TB
	baseDir      string
	cfg          *config.Config
	templatesSet bool
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WatchDir = filepath.Join(base, "watch")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Journal.Path = filepath.Join(base, "logs", "adjustments.db")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Sync.PollIntervalMS = 10
	cfgVal.Sync.ErrorIntervalMS = 10
	cfgVal.Player.RequestTimeoutMS = 1000

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithPlayerURL points the test config at a fake player.
func WithPlayerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Player.URL = url
	}
}

// WithPlayerPassword sets the player password.
func WithPlayerPassword(password string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Player.Password = password
	}
}

// WithTemplate registers a status file template, replacing the defaults on
// first use.
func WithTemplate(filename, tmpl string) ConfigOption {
	return func(b *configBuilder) {
		if !b.templatesSet {
			b.cfg.Templates = map[string]string{}
			b.templatesSet = true
		}
		b.cfg.Templates[filename] = tmpl
	}
}

// WithTemplates replaces the template mapping.
func WithTemplates(templates map[string]string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Templates = make(map[string]string, len(templates))
		b.templatesSet = true
		for name, tmpl := range templates {
			b.cfg.Templates[name] = tmpl
		}
	}
}

// WithoutJournal disables the adjustment journal.
func WithoutJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// WithAPIToken requires bearer authentication on the control API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WatchDir)
}
