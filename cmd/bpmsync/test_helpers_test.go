package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"bpmsync/internal/config"
	"bpmsync/internal/daemon"
	"bpmsync/internal/logging"
	"bpmsync/internal/testsupport"
	"bpmsync/internal/vlc"
)

const deckFile = "deck.txt"

type cliTestEnv struct {
	cfg        *config.Config
	player     *testsupport.FakePlayer
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	player := testsupport.NewFakePlayer(t, vlc.StatePlaying, 1.0)
	base := []testsupport.ConfigOption{
		testsupport.WithPlayerURL(player.URL()),
		testsupport.WithTemplate(deckFile, "%title% %master_bpm%"),
	}
	cfg := testsupport.NewConfig(t, append(base, opts...)...)
	t.Setenv("HOME", testsupport.BaseDir(cfg))

	env := &cliTestEnv{
		cfg:        cfg,
		player:     player,
		configPath: filepath.Join(testsupport.BaseDir(cfg), "bpmsync.toml"),
	}
	writeTestConfig(t, env.configPath, cfg)
	return env
}

// startDaemon runs a daemon in-process and points the config file at its
// control API listener.
func (env *cliTestEnv) startDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(env.cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = d.Close()
	})

	env.cfg.API.Bind = d.APIAddress()
	writeTestConfig(t, env.configPath, env.cfg)
	return d
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
