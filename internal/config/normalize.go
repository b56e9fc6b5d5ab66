package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePlayer()
	c.normalizeSync()
	c.normalizeWatch()
	c.normalizeTemplates()
	c.normalizeAPI()
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		c.Paths.WatchDir = defaultWatchDir
	}
	if c.Paths.WatchDir, err = expandPath(strings.TrimSpace(c.Paths.WatchDir)); err != nil {
		return fmt.Errorf("paths.watch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePlayer() {
	c.Player.URL = strings.TrimRight(strings.TrimSpace(c.Player.URL), "/")
	if c.Player.URL == "" {
		c.Player.URL = defaultPlayerURL
	}
	if c.Player.Password == "" {
		if value, ok := os.LookupEnv("VLC_PASSWORD"); ok {
			c.Player.Password = value
		}
	}
	if c.Player.RequestTimeoutMS <= 0 {
		c.Player.RequestTimeoutMS = defaultRequestTimeoutMS
	}
}

func (c *Config) normalizeSync() {
	c.Sync.TempoField = strings.TrimSpace(c.Sync.TempoField)
	if c.Sync.TempoField == "" {
		c.Sync.TempoField = defaultTempoField
	}
	if c.Sync.PollIntervalMS <= 0 {
		c.Sync.PollIntervalMS = defaultPollIntervalMS
	}
	if c.Sync.ErrorIntervalMS <= 0 {
		c.Sync.ErrorIntervalMS = defaultErrorIntervalMS
	}
	if c.Sync.DriftThreshold == 0 {
		c.Sync.DriftThreshold = defaultDriftThreshold
	}
}

func (c *Config) normalizeWatch() {
	c.Watch.Encoding = strings.ToLower(strings.TrimSpace(c.Watch.Encoding))
	switch c.Watch.Encoding {
	case "", "utf8", "utf-8":
		c.Watch.Encoding = "utf-8"
	case "utf16", "utf-16":
		c.Watch.Encoding = "utf-16"
	}
	c.Watch.MatchMode = strings.ToLower(strings.TrimSpace(c.Watch.MatchMode))
	if c.Watch.MatchMode == "" {
		c.Watch.MatchMode = defaultMatchMode
	}
}

func (c *Config) normalizeTemplates() {
	if len(c.Templates) == 0 {
		return
	}
	normalized := make(map[string]string, len(c.Templates))
	for name, tmpl := range c.Templates {
		normalized[filepath.Base(strings.TrimSpace(name))] = tmpl
	}
	c.Templates = normalized
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("BPMSYNC_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeJournal() error {
	var err error
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = filepath.Join(c.Paths.LogDir, defaultJournalFile)
	}
	if c.Journal.Path, err = expandPath(strings.TrimSpace(c.Journal.Path)); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}
