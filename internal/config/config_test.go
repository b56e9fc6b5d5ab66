package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"bpmsync/internal/config"
	"bpmsync/internal/template"
)

func TestLoadDefaultConfigExpandsPathsAndUsesEnvPassword(t *testing.T) {
	t.Setenv("VLC_PASSWORD", "vlcpass")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWatch := filepath.Join(tempHome, ".local", "share", "bpmsync", "watch")
	if cfg.Paths.WatchDir != wantWatch {
		t.Fatalf("unexpected watch dir: got %q want %q", cfg.Paths.WatchDir, wantWatch)
	}
	if cfg.Player.Password != "vlcpass" {
		t.Fatalf("expected password from env, got %q", cfg.Player.Password)
	}
	if cfg.Player.URL != "http://localhost:8080" {
		t.Fatalf("unexpected player url: %q", cfg.Player.URL)
	}
	if cfg.PollInterval() != 2*time.Second || cfg.ErrorInterval() != 3*time.Second {
		t.Fatalf("unexpected intervals: poll=%s error=%s", cfg.PollInterval(), cfg.ErrorInterval())
	}
	if cfg.RequestTimeout() != 3*time.Second {
		t.Fatalf("unexpected request timeout: %s", cfg.RequestTimeout())
	}
	if cfg.Sync.DriftThreshold != 0.01 {
		t.Fatalf("unexpected drift threshold: %v", cfg.Sync.DriftThreshold)
	}
	if cfg.Journal.Path != filepath.Join(cfg.Paths.LogDir, "adjustments.db") {
		t.Fatalf("unexpected journal path: %q", cfg.Journal.Path)
	}
	if _, ok := cfg.Templates[config.DefaultStatusFile]; !ok {
		t.Fatalf("expected default template for %s", config.DefaultStatusFile)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WatchDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "bpmsync.toml")

	type payload struct {
		Paths struct {
			WatchDir string `toml:"watch_dir"`
			LogDir   string `toml:"log_dir"`
		} `toml:"paths"`
		Player struct {
			URL      string `toml:"url"`
			Password string `toml:"password"`
		} `toml:"player"`
		Sync struct {
			TempoField     string  `toml:"tempo_field"`
			PollIntervalMS int     `toml:"poll_interval_ms"`
			DriftThreshold float64 `toml:"drift_threshold"`
		} `toml:"sync"`
		Templates map[string]string `toml:"templates"`
	}
	custom := payload{}
	custom.Paths.WatchDir = filepath.Join(tempDir, "watch")
	custom.Paths.LogDir = filepath.Join(tempDir, "logs")
	custom.Player.URL = "http://127.0.0.1:9090/"
	custom.Player.Password = "secret"
	custom.Sync.TempoField = "bpm"
	custom.Sync.PollIntervalMS = 250
	custom.Sync.DriftThreshold = 0.02
	custom.Templates = map[string]string{"status.txt": "%title% %bpm%"}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q to exist, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Player.URL != "http://127.0.0.1:9090" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Player.URL)
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.ErrorInterval() != 3*time.Second {
		t.Fatalf("expected default error interval, got %s", cfg.ErrorInterval())
	}
	if len(cfg.Templates) != 1 {
		t.Fatalf("expected custom templates to replace defaults, got %v", cfg.Templates)
	}

	compiled, err := cfg.CompileTemplates()
	if err != nil {
		t.Fatalf("CompileTemplates returned error: %v", err)
	}
	if !compiled["status.txt"].Has("bpm") {
		t.Fatal("expected compiled template to declare bpm")
	}
}

func TestLoadRejectsMalformedTemplate(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bpmsync.toml")
	content := `[templates]
"deck_status.txt" = "%title% %master_bpm"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "deck_status.txt") {
		t.Fatalf("expected template error naming the file, got %v", err)
	}
}

func TestValidateRequiresTempoPlaceholder(t *testing.T) {
	cfg := config.Default()
	cfg.Templates = map[string]string{"deck.txt": "%title% %bpm%"}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "master_bpm") {
		t.Fatalf("expected missing tempo placeholder error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"player scheme":   func(c *config.Config) { c.Player.URL = "ftp://localhost" },
		"player host":     func(c *config.Config) { c.Player.URL = "http://" },
		"threshold zero":  func(c *config.Config) { c.Sync.DriftThreshold = 0 },
		"threshold large": func(c *config.Config) { c.Sync.DriftThreshold = 1.5 },
		"poll interval":   func(c *config.Config) { c.Sync.PollIntervalMS = 0 },
		"encoding":        func(c *config.Config) { c.Watch.Encoding = "latin1" },
		"match mode":      func(c *config.Config) { c.Watch.MatchMode = "greedy" },
		"no templates":    func(c *config.Config) { c.Templates = nil },
		"retention":       func(c *config.Config) { c.Journal.RetentionDays = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEnsureDirectoriesRejectsFileWatchPath(t *testing.T) {
	base := t.TempDir()
	filePath := filepath.Join(base, "not-a-dir")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cfg := config.Default()
	cfg.Paths.WatchDir = filePath
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err == nil {
		t.Fatal("expected error for non-directory watch path")
	}
}

func TestMatchModeFromConfig(t *testing.T) {
	cfg := config.Default()
	if cfg.MatchMode() != template.MatchLongest {
		t.Fatalf("expected longest by default, got %s", cfg.MatchMode())
	}
	cfg.Watch.MatchMode = "shortest"
	if cfg.MatchMode() != template.MatchShortest {
		t.Fatalf("expected shortest, got %s", cfg.MatchMode())
	}
}

func TestCreateSampleLoads(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Sync.TempoField != "master_bpm" {
		t.Fatalf("unexpected tempo field: %q", cfg.Sync.TempoField)
	}
}
