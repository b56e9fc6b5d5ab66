package daemonrun_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"bpmsync/internal/daemonrun"
	"bpmsync/internal/logging"
	"bpmsync/internal/testsupport"
	"bpmsync/internal/vlc"
)

func TestRunRequiresConfig(t *testing.T) {
	if err := daemonrun.Run(context.Background(), nil, daemonrun.Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestRunWritesPIDAndStopsOnCancel(t *testing.T) {
	player := testsupport.NewFakePlayer(t, vlc.StatePaused, 1.0)
	cfg := testsupport.NewConfig(t, testsupport.WithPlayerURL(player.URL()))
	cfg.Logging.Format = "json"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- daemonrun.Run(ctx, cfg, daemonrun.Options{Diagnostic: true})
	}()

	pidPath := filepath.Join(cfg.Paths.LogDir, daemonrun.PIDFileName)
	deadline := time.Now().Add(3 * time.Second)
	for {
		content, err := os.ReadFile(pidPath)
		if err == nil && strings.TrimSpace(string(content)) == strconv.Itoa(os.Getpid()) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("pid file not written: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file to be removed, got %v", err)
	}
	logContent, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, want := range []string{"preflight_passed", "bpmsync daemon started", "session_id"} {
		if !strings.Contains(string(logContent), want) {
			t.Fatalf("expected %q in log, got %s", want, logContent)
		}
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.Paths.LogDir, "debug", "bpmsync-*.log"))
	if len(matches) != 1 {
		t.Fatalf("expected one diagnostic log, got %v", matches)
	}
}
