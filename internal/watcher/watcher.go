package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/text/encoding"

	"bpmsync/internal/config"
	"bpmsync/internal/logging"
	"bpmsync/internal/template"
)

// maxStatusFileSize bounds a single status file read.
const maxStatusFileSize = 1 << 20

// Updater receives extracted fields.
type Updater interface {
	Update(fields map[string]string) error
}

// Option customizes a Watcher.
type Option func(*Watcher) error

// WithEncoding sets the text encoding used when no byte order mark is present.
func WithEncoding(name string) Option {
	return func(w *Watcher) error {
		decoder, err := newDecoder(name)
		if err != nil {
			return err
		}
		w.decoder = decoder
		return nil
	}
}

// Watcher dispatches status file changes to their templates.
type Watcher struct {
	dir       string
	templates map[string]*template.Template
	store     Updater
	logger    *slog.Logger
	decoder   *encoding.Decoder

	// decodeMu guards decoder, which keeps transformation state.
	decodeMu sync.Mutex

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	quit    chan struct{}
	done    chan struct{}
	running bool
}

// New constructs a watcher for dir. templates maps bare filenames to the
// template that describes them.
func New(dir string, templates map[string]*template.Template, store Updater, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	if dir == "" {
		return nil, errors.New("watch directory not configured")
	}
	if len(templates) == 0 {
		return nil, errors.New("no status file templates configured")
	}
	decoder, err := newDecoder(EncodingUTF8)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		dir:       filepath.Clean(dir),
		templates: make(map[string]*template.Template, len(templates)),
		store:     store,
		logger:    logging.NewComponentLogger(logger, "watcher"),
		decoder:   decoder,
	}
	for name, tmpl := range templates {
		if tmpl == nil {
			return nil, fmt.Errorf("template for %q is nil", name)
		}
		w.templates[filepath.Base(name)] = tmpl
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// NewFromConfig builds a watcher from the [paths], [watch] and [templates]
// sections.
func NewFromConfig(cfg *config.Config, store Updater, logger *slog.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	templates, err := cfg.CompileTemplates()
	if err != nil {
		return nil, err
	}
	return New(cfg.Paths.WatchDir, templates, store, logger, WithEncoding(cfg.Watch.Encoding))
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Files returns the registered filenames in sorted order.
func (w *Watcher) Files() []string {
	names := make([]string, 0, len(w.templates))
	for name := range w.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start subscribes to filesystem notifications for the watched directory.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("stat watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path %q is not a directory", w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.fsw = fsw
	w.quit = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true

	go w.loop(ctx, fsw, w.quit, w.done)

	w.logger.Info("status file watcher started",
		logging.String(logging.FieldEventType, "watcher_started"),
		logging.String("watch_dir", w.dir),
		logging.Int("registered_files", len(w.templates)),
	)
	return nil
}

// Stop unsubscribes and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.quit)
	fsw := w.fsw
	done := w.done
	w.fsw = nil
	w.quit = nil
	w.done = nil
	w.running = false
	w.mu.Unlock()

	_ = fsw.Close()
	<-done

	w.logger.Info("status file watcher stopped",
		logging.String(logging.FieldEventType, "watcher_stopped"),
	)
}

// Running reports whether the watcher is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(w.logger, "file watcher error", "watcher_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the watch directory and inotify limits"),
				logging.String(logging.FieldImpact, "status updates may be missed until the next write"),
			)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if filepath.Clean(filepath.Dir(event.Name)) != w.dir {
		return
	}
	name := filepath.Base(event.Name)
	if _, ok := w.templates[name]; !ok {
		return
	}
	w.logger.Info("status file update detected",
		logging.String(logging.FieldEventType, "file_update_detected"),
		logging.String(logging.FieldFilename, name),
		logging.String("op", event.Op.String()),
	)
	_ = w.HandleFile(name)
}

// Prime parses every registered file already present in the watched
// directory and returns how many were merged into the store.
func (w *Watcher) Prime() int {
	merged := 0
	for _, name := range w.Files() {
		info, err := os.Stat(filepath.Join(w.dir, name))
		if err != nil || info.IsDir() {
			continue
		}
		if w.HandleFile(name) == nil {
			merged++
		}
	}
	if merged > 0 {
		w.logger.Info("primed fields from existing status files",
			logging.String(logging.FieldEventType, "watcher_primed"),
			logging.Int("files", merged),
		)
	}
	return merged
}

// HandleFile parses the registered file name and merges its fields into the
// store. Notifications and Prime both go through it; failures are logged and
// leave the store untouched.
func (w *Watcher) HandleFile(name string) error {
	name = filepath.Base(name)
	fields, err := w.Extract(name)
	if err != nil {
		if errors.Is(err, template.ErrNoMatch) {
			logging.WarnWithContext(w.logger, "status file did not match template", "parse_failed",
				logging.String(logging.FieldFilename, name),
				logging.String(logging.FieldErrorHint, "compare the file contents with the configured template"),
				logging.String(logging.FieldImpact, "previous field values kept"),
			)
			return err
		}
		logging.WarnWithContext(w.logger, "status file unreadable", "file_read_failed",
			logging.String(logging.FieldFilename, name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the file may be mid-write; it is read again on the next change"),
			logging.String(logging.FieldImpact, "previous field values kept"),
		)
		return err
	}

	if w.store != nil {
		if err := w.store.Update(fields); err != nil {
			logging.WarnWithContext(w.logger, "extracted fields rejected by store", "fields_rejected",
				logging.String(logging.FieldFilename, name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "declare every template field in the configuration"),
			)
			return err
		}
	}

	w.logger.Info("status fields extracted",
		logging.String(logging.FieldEventType, "fields_extracted"),
		logging.String(logging.FieldFilename, name),
		logging.Int("field_count", len(fields)),
	)
	return nil
}

// Extract reads, decodes and parses a registered file without touching the
// store.
func (w *Watcher) Extract(name string) (map[string]string, error) {
	name = filepath.Base(name)
	tmpl, ok := w.templates[name]
	if !ok {
		return nil, fmt.Errorf("no template registered for %q", name)
	}
	text, err := w.readText(filepath.Join(w.dir, name))
	if err != nil {
		return nil, err
	}
	fields, err := tmpl.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return fields, nil
}

func (w *Watcher) readText(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open status file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat status file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	raw, err := io.ReadAll(io.LimitReader(file, maxStatusFileSize))
	if err != nil {
		return "", fmt.Errorf("read status file: %w", err)
	}

	w.decodeMu.Lock()
	defer w.decodeMu.Unlock()
	return decodeText(w.decoder, raw)
}
