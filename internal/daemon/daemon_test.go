package daemon_test

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bpmsync/internal/config"
	"bpmsync/internal/daemon"
	"bpmsync/internal/journal"
	"bpmsync/internal/logging"
	"bpmsync/internal/syncengine"
	"bpmsync/internal/testsupport"
	"bpmsync/internal/vlc"
)

const deckFile = "deck.txt"

func testConfig(t *testing.T, player *testsupport.FakePlayer, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	base := []testsupport.ConfigOption{
		testsupport.WithPlayerURL(player.URL()),
		testsupport.WithTemplate(deckFile, "BPM %master_bpm%"),
	}
	return testsupport.NewConfig(t, append(base, opts...)...)
}

func newDaemon(t *testing.T, cfg *config.Config, opts ...daemon.Option) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(cfg, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestDaemonStartStop(t *testing.T) {
	player := testsupport.NewFakePlayer(t, vlc.StatePlaying, 1.0)
	cfg := testConfig(t, player)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running || !status.WatcherRunning {
		t.Fatalf("expected daemon and watcher running, got %+v", status)
	}
	if status.LockFilePath != filepath.Join(cfg.Paths.LogDir, daemon.LockFileName) {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if status.StartedAt.IsZero() {
		t.Fatal("expected start time to be recorded")
	}
	if d.APIAddress() == "" {
		t.Fatal("expected api server to be listening")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running || status.WatcherRunning {
		t.Fatal("expected daemon to be stopped")
	}
	if d.APIAddress() != "" {
		t.Fatal("expected api server to be stopped")
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	d.Stop()
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	player := testsupport.NewFakePlayer(t, vlc.StatePlaying, 1.0)
	cfg := testConfig(t, player, testsupport.WithoutJournal())
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := second.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestDaemonCorrectsRateFromStatusFile(t *testing.T) {
	player := testsupport.NewFakePlayer(t, vlc.StatePlaying, 1.0)
	cfg := testConfig(t, player)
	d := newDaemon(t, cfg, daemon.WithSessionID("session-e2e"))

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	testsupport.WriteStatusFile(t, cfg.Paths.WatchDir, deckFile, "BPM 120\n")
	waitFor(t, 2*time.Second, func() bool {
		return d.Status(ctx).Sync.ReferenceBPM == 120
	})
	if len(player.Commands()) != 0 {
		t.Fatalf("capturing the reference must not issue commands, got %v", player.Commands())
	}

	testsupport.WriteStatusFile(t, cfg.Paths.WatchDir, deckFile, "BPM 132\n")
	waitFor(t, 2*time.Second, func() bool {
		return len(player.Commands()) > 0
	})
	if got := player.Commands()[0]; math.Abs(got-1.1) > 1e-9 {
		t.Fatalf("expected rate 1.1, got %v", got)
	}

	status := d.Status(ctx)
	if status.Fields["master_bpm"] != "132" {
		t.Fatalf("unexpected fields %v", status.Fields)
	}
	waitFor(t, 2*time.Second, func() bool {
		return d.Status(ctx).Sync.State == syncengine.StateSynced
	})

	entries, err := d.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) == 0 || entries[0].SessionID != "session-e2e" {
		t.Fatalf("expected journal entry tagged with session, got %+v", entries)
	}
	if math.Abs(entries[0].TargetRate-1.1) > 1e-9 || entries[0].ReferenceBPM != 120 {
		t.Fatalf("unexpected journal entry %+v", entries[0])
	}
}

func TestDaemonPrimesExistingFiles(t *testing.T) {
	player := testsupport.NewFakePlayer(t, vlc.StatePaused, 1.0)
	cfg := testConfig(t, player)
	testsupport.WriteStatusFile(t, cfg.Paths.WatchDir, deckFile, "BPM 124\n")
	d := newDaemon(t, cfg)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := d.Status(context.Background()).Fields["master_bpm"]; got != "124" {
		t.Fatalf("expected primed field, got %q", got)
	}
}

func TestDaemonResetReturnsPreviousReference(t *testing.T) {
	player := testsupport.NewFakePlayer(t, vlc.StatePlaying, 1.0)
	cfg := testConfig(t, player)
	d := newDaemon(t, cfg)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	testsupport.WriteStatusFile(t, cfg.Paths.WatchDir, deckFile, "BPM 126\n")
	waitFor(t, 2*time.Second, func() bool {
		return d.Status(ctx).Sync.ReferenceBPM == 126
	})

	d.Stop()
	if previous := d.Reset(); previous != 126 {
		t.Fatalf("expected previous reference 126, got %v", previous)
	}
	if d.Status(ctx).Sync.HasReference() {
		t.Fatal("expected reference to be cleared")
	}
}

func TestDaemonHistoryWithoutJournal(t *testing.T) {
	player := testsupport.NewFakePlayer(t, vlc.StatePlaying, 1.0)
	d := newDaemon(t, testConfig(t, player, testsupport.WithoutJournal()))

	if _, err := d.History(context.Background(), 5); err != daemon.ErrJournalDisabled {
		t.Fatalf("expected ErrJournalDisabled, got %v", err)
	}
	if d.Status(context.Background()).JournalPath != "" {
		t.Fatal("expected empty journal path")
	}
}

func TestNewPrunesExpiredJournalEntries(t *testing.T) {
	player := testsupport.NewFakePlayer(t, vlc.StatePlaying, 1.0)
	cfg := testConfig(t, player)
	cfg.Journal.RetentionDays = 7
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	ctx := context.Background()
	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	now := time.Now().UTC()
	for _, at := range []time.Time{now.AddDate(0, 0, -30), now.Add(-time.Hour)} {
		if _, err := store.Record(ctx, journal.Entry{At: at, PreviousRate: 1, TargetRate: 1.05}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d := newDaemon(t, cfg)
	entries, err := d.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after pruning, got %d", len(entries))
	}
	if entries[0].At.Before(now.AddDate(0, 0, -7)) {
		t.Fatalf("expired entry survived: %v", entries[0].At)
	}
}

func TestNewKeepsJournalWhenRetentionDisabled(t *testing.T) {
	player := testsupport.NewFakePlayer(t, vlc.StatePlaying, 1.0)
	cfg := testConfig(t, player)
	cfg.Journal.RetentionDays = 0
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()
	if _, err := store.Record(ctx, journal.Entry{At: time.Now().AddDate(-1, 0, 0), PreviousRate: 1, TargetRate: 0.95}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	d := newDaemon(t, cfg)
	entries, err := d.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected old entry kept, got %d entries", len(entries))
	}
}

func TestNewRejectsNilConfig(t *testing.T) {
	if _, err := daemon.New(nil, logging.NewNop()); err == nil {
		t.Fatal("expected error for nil config")
	}
}
