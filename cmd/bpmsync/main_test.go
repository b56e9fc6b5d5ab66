package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bpmsync/internal/journal"
	"bpmsync/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	target := filepath.Join(dir, "conf", "bpmsync.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "deck_status.txt")
	requireContains(t, out, "Tempo field: master_bpm")
}

func TestConfigValidateRejectsMissingTempoField(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[templates]\n\"deck.txt\" = \"%title%\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "master_bpm") {
		t.Fatalf("expected tempo field validation error, got %v", err)
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteStatusFile(t, env.cfg.Paths.WatchDir, deckFile, "Intro 128\n")

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Watch directory")
	requireContains(t, out, "VLC")
	requireContains(t, out, "All required checks passed")
}

func TestCheckCommandFailsWhenPlayerDown(t *testing.T) {
	env := setupCLITestEnv(t)
	env.player.Server.Close()

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected check to fail with unreachable player")
	}
	requireContains(t, out, "FAIL")
	requireContains(t, err.Error(), "VLC")
}

func TestParseCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteStatusFile(t, env.cfg.Paths.WatchDir, deckFile, "Song A 128.0\n")

	out, _, err := runCLI(t, []string{"parse", deckFile}, env.configPath)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	requireContains(t, out, `"Song A"`)
	requireContains(t, out, `tempo field master_bpm = "128.0"`)

	out, _, err = runCLI(t, []string{"parse", deckFile, "--render"}, env.configPath)
	if err != nil {
		t.Fatalf("parse --render: %v", err)
	}
	if strings.TrimSpace(out) != "Song A 128.0" {
		t.Fatalf("unexpected render output %q", out)
	}

	if _, _, err := runCLI(t, []string{"parse", "other.txt"}, env.configPath); err == nil {
		t.Fatal("expected error for unregistered file")
	}
}

func TestHistoryCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No adjustments recorded")

	store := testsupport.MustOpenJournal(t, env.cfg)
	if _, err := store.Record(context.Background(), journal.Entry{
		At:           time.Now(),
		PreviousRate: 1.0,
		TargetRate:   1.1,
		ObservedBPM:  132,
		ReferenceBPM: 120,
		Drift:        0.1,
	}); err != nil {
		t.Fatalf("seed journal: %v", err)
	}

	out, _, err = runCLI(t, []string{"history", "--limit", "5"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "1.1000")
	requireContains(t, out, "132.00")
	requireContains(t, out, "10.00%")
}

func TestHistoryCommandJournalDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutJournal())
	if _, _, err := runCLI(t, []string{"history"}, env.configPath); err == nil {
		t.Fatal("expected error when journal disabled")
	}
}

func TestStatusAndResetCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	d := env.startDaemon(t)

	testsupport.WriteStatusFile(t, env.cfg.Paths.WatchDir, deckFile, "Opener 120\n")
	waitFor(t, 2*time.Second, func() bool {
		return d.Status(context.Background()).Sync.ReferenceBPM == 120
	})

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "Running")
	requireContains(t, out, "120.00 BPM")
	requireContains(t, out, "master_bpm *")
	requireContains(t, out, "Synced")

	out, _, err = runCLI(t, []string{"reset"}, env.configPath)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	requireContains(t, out, "was 120.00 BPM")
}

func TestStatusCommandDaemonNotRunning(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.API.Bind = "127.0.0.1:1"
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "bpmsync run") {
		t.Fatalf("expected daemon unavailable hint, got %v", err)
	}
}

func TestStateLabel(t *testing.T) {
	cases := map[string]string{"synced": "Synced", "tracking": "Tracking", "": "Unknown"}
	for input, want := range cases {
		if got := stateLabel(input); got != want {
			t.Errorf("stateLabel(%q) = %q, want %q", input, got, want)
		}
	}
}
