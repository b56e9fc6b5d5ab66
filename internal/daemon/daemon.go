package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"bpmsync/internal/config"
	"bpmsync/internal/fieldstore"
	"bpmsync/internal/journal"
	"bpmsync/internal/logging"
	"bpmsync/internal/syncengine"
	"bpmsync/internal/template"
	"bpmsync/internal/vlc"
	"bpmsync/internal/watcher"
)

// LockFileName is the single-instance lock created inside the log directory.
const LockFileName = "bpmsync.lock"

// ErrJournalDisabled indicates the adjustment journal is not configured.
var ErrJournalDisabled = errors.New("adjustment journal disabled")

// Daemon coordinates the watcher and sync loop and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	sessionID string

	fields  *fieldstore.Store
	watcher *watcher.Watcher
	engine  *syncengine.Engine
	journal *journal.Store
	api     *apiServer
	player  syncengine.Player

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	startedMu sync.RWMutex
	startedAt time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	SessionID      string
	StartedAt      time.Time
	PlayerURL      string
	LockFilePath   string
	JournalPath    string
	WatcherRunning bool
	WatchDir       string
	WatchedFiles   []string
	TempoField     string
	Sync           syncengine.Snapshot
	Fields         map[string]string
}

// Option customizes daemon construction.
type Option func(*Daemon)

// WithPlayer replaces the VLC client built from configuration.
func WithPlayer(player syncengine.Player) Option {
	return func(d *Daemon) {
		d.player = player
	}
}

// WithSessionID tags journal entries with the given session identifier.
func WithSessionID(id string) Option {
	return func(d *Daemon) {
		d.sessionID = id
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, LockFileName)
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}

	templates, err := cfg.CompileTemplates()
	if err != nil {
		return nil, err
	}
	d.fields = fieldstore.New(declaredFields(templates)...)

	d.watcher, err = watcher.New(cfg.Paths.WatchDir, templates, d.fields, logger, watcher.WithEncoding(cfg.Watch.Encoding))
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if d.player == nil {
		d.player = vlc.NewFromConfig(cfg)
	}

	var engineOpts []syncengine.Option
	if cfg.Journal.Enabled {
		d.journal, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		d.pruneJournal(cfg.Journal.RetentionDays)
		engineOpts = append(engineOpts, syncengine.WithRecorder(&journalRecorder{store: d.journal, sessionID: d.sessionID}))
	}
	d.engine = syncengine.New(d.player, d.fields, syncengine.SettingsFromConfig(cfg), logger, engineOpts...)
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// pruneJournal drops journal entries older than retentionDays. Zero keeps
// everything. Failures are logged and do not block startup.
func (d *Daemon) pruneJournal(retentionDays int) {
	if d.journal == nil || retentionDays <= 0 {
		return
	}
	ctx := context.Background()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed, err := d.journal.Prune(ctx, cutoff)
	if err != nil {
		logging.WarnWithContext(d.logger, "journal prune failed", "journal_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the journal database path and permissions"),
			logging.String(logging.FieldImpact, "old adjustments kept until the next start"),
		)
		return
	}
	remaining, err := d.journal.Count(ctx)
	if err != nil {
		remaining = -1
	}
	d.logger.Info("journal pruned",
		logging.String(logging.FieldEventType, "journal_pruned"),
		logging.Int("retention_days", retentionDays),
		logging.Int64("removed", removed),
		logging.Int("remaining", remaining),
	)
}

// declaredFields returns the sorted union of placeholder names across templates.
func declaredFields(templates map[string]*template.Template) []string {
	seen := make(map[string]struct{})
	for _, tmpl := range templates {
		for _, name := range tmpl.Fields() {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start acquires the daemon lock and launches the watcher, control API, and sync loop.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bpmsync daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.watcher.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start watcher: %w", err)
	}
	if d.cfg.Watch.Prime {
		primed := d.watcher.Prime()
		d.logger.Info("status files primed", logging.Int("file_count", primed))
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.watcher.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.engine.Run(runCtx); err != nil {
			logging.ErrorWithContext(d.logger, "sync loop exited", "sync_loop_failed", logging.Error(err))
		}
	}()

	d.cancel = cancel
	d.startedMu.Lock()
	d.startedAt = time.Now()
	d.startedMu.Unlock()
	d.running.Store(true)
	d.logger.Info("bpmsync daemon started",
		logging.String("lock", d.lockPath),
		logging.String("watch_dir", d.watcher.Dir()),
		logging.String("player_url", d.cfg.Player.URL),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.watcher.Stop()
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("bpmsync daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		err := d.journal.Close()
		d.journal = nil
		return err
	}
	return nil
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddress returns the control API listen address, or "" when disabled or stopped.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Reset clears the sync engine's reference tempo and returns the previous one.
func (d *Daemon) Reset() float64 {
	previous := d.engine.Status().ReferenceBPM
	d.engine.Reset()
	return previous
}

// History returns up to limit recent journal entries, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]journal.Entry, error) {
	if d.journal == nil {
		return nil, ErrJournalDisabled
	}
	return d.journal.Recent(ctx, limit)
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	d.startedMu.RLock()
	startedAt := d.startedAt
	d.startedMu.RUnlock()

	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		SessionID:      d.sessionID,
		PlayerURL:      d.cfg.Player.URL,
		LockFilePath:   d.lockPath,
		WatcherRunning: d.watcher.Running(),
		WatchDir:       d.watcher.Dir(),
		WatchedFiles:   d.watcher.Files(),
		TempoField:     d.engine.Settings().TempoField,
		Sync:           d.engine.Status(),
		Fields:         d.fields.Snapshot(),
	}
	if status.Running {
		status.StartedAt = startedAt
	}
	if d.journal != nil {
		status.JournalPath = d.journal.Path()
	}
	return status
}
