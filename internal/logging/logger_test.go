package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bpmsync/internal/config"
	"bpmsync/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesRotatingFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg, "session-1")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("rate updated", logging.Float64("new_rate", 1.1))

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if !strings.Contains(content, "rate updated") {
		t.Fatalf("expected message in log file, got %q", content)
	}
	if !strings.Contains(content, "new_rate=1.1") {
		t.Fatalf("expected attribute in log file, got %q", content)
	}
	if !strings.Contains(content, "session_id=session-1") {
		t.Fatalf("expected session id in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndAttrs(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "watcher").Info("file update detected",
		logging.String(logging.FieldFilename, "deck status.txt"),
		logging.Int("field_count", 3),
	)

	content := readLog(t, logPath)
	if !strings.Contains(content, " INFO watcher: file update detected") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, `filename="deck status.txt"`) {
		t.Fatalf("expected quoted filename, got %q", content)
	}
	if strings.Contains(content, "component=") {
		t.Fatalf("component should be rendered as prefix only, got %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("tracking tempo")

	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerUsesStableKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "player status query failed", "player_status_failed")

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" {
		t.Fatalf("unexpected level: %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
	if entry[logging.FieldEventType] != "player_status_failed" {
		t.Fatalf("unexpected event type: %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldImpact] == nil || entry[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default impact and hint, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestTeeLoggerDuplicatesOutput(t *testing.T) {
	var first, second bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&first, nil))
	tee := logging.TeeLogger(base, slog.NewJSONHandler(&second, nil))

	tee.Info("hello")

	if !strings.Contains(first.String(), "hello") || !strings.Contains(second.String(), "hello") {
		t.Fatalf("expected both handlers to receive the record: %q / %q", first.String(), second.String())
	}
}

func TestErrorWithContextKeepsExplicitHint(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.ErrorWithContext(logger, "rate update failed", "rate_update_failed",
		logging.String(logging.FieldErrorHint, "check the VLC password"),
	)

	if strings.Count(buf.String(), logging.FieldErrorHint) != 1 {
		t.Fatalf("expected a single error_hint, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "check the VLC password") {
		t.Fatalf("expected explicit hint, got %q", buf.String())
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("ignored")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger must not be enabled")
	}
}
