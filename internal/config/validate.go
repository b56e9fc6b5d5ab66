package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"bpmsync/internal/template"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePlayer(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateTemplates(); err != nil {
		return err
	}
	if c.Journal.RetentionDays < 0 {
		return errors.New("journal.retention_days must be zero or positive")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		return errors.New("paths.watch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validatePlayer() error {
	parsed, err := url.Parse(c.Player.URL)
	if err != nil {
		return fmt.Errorf("player.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("player.url must use http or https, got %q", c.Player.URL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("player.url must include a host, got %q", c.Player.URL)
	}
	return nil
}

func (c *Config) validateSync() error {
	if err := ensurePositiveMap(map[string]int{
		"player.request_timeout_ms": c.Player.RequestTimeoutMS,
		"sync.poll_interval_ms":     c.Sync.PollIntervalMS,
		"sync.error_interval_ms":    c.Sync.ErrorIntervalMS,
	}); err != nil {
		return err
	}
	threshold := c.Sync.DriftThreshold
	if math.IsNaN(threshold) || threshold <= 0 || threshold >= 1 {
		return errors.New("sync.drift_threshold must be between 0 and 1 (exclusive)")
	}
	return nil
}

func (c *Config) validateWatch() error {
	switch c.Watch.Encoding {
	case "utf-8", "utf-16":
	default:
		return fmt.Errorf("watch.encoding: unsupported value %q (use utf-8 or utf-16)", c.Watch.Encoding)
	}
	if _, err := template.ParseMatchMode(c.Watch.MatchMode); err != nil {
		return fmt.Errorf("watch.match_mode: %w", err)
	}
	return nil
}

func (c *Config) validateTemplates() error {
	if len(c.Templates) == 0 {
		return errors.New("templates must map at least one status file to a template")
	}
	compiled, err := c.CompileTemplates()
	if err != nil {
		return err
	}
	for _, tmpl := range compiled {
		if tmpl.Has(c.Sync.TempoField) {
			return nil
		}
	}
	return fmt.Errorf("no template declares the %%%s%% placeholder required by sync.tempo_field", c.Sync.TempoField)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
