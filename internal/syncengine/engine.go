package syncengine

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"bpmsync/internal/config"
	"bpmsync/internal/logging"
	"bpmsync/internal/vlc"
)

const (
	// minPlayerRate guards the drift division against a zero or near-zero rate.
	minPlayerRate = 1e-6
	// driftTolerance is the relative slack applied to the drift threshold so a
	// drift that equals the threshold in decimal terms does not trigger a
	// command. It only absorbs float64 rounding error.
	driftTolerance = 1e-12
	// repeatedFailureThreshold is the number of consecutive status failures
	// after which they are reported as errors instead of warnings.
	repeatedFailureThreshold = 5
)

// Player is the subset of the player client used by the engine.
type Player interface {
	GetStatus(ctx context.Context) (vlc.Status, error)
	SetRate(ctx context.Context, rate float64) error
}

// FieldSource provides atomic single-field reads of extracted status fields.
type FieldSource interface {
	Get(name string) (string, bool)
}

// Adjustment describes an applied rate command.
type Adjustment struct {
	At           time.Time
	PreviousRate float64
	TargetRate   float64
	ObservedBPM  float64
	ReferenceBPM float64
	Drift        float64
}

// Recorder receives every applied adjustment.
type Recorder interface {
	RecordAdjustment(ctx context.Context, adj Adjustment) error
}

// Settings holds loop timing and threshold values.
type Settings struct {
	TempoField     string
	PollInterval   time.Duration
	ErrorInterval  time.Duration
	DriftThreshold float64
}

// DefaultSettings returns the built-in loop settings.
func DefaultSettings() Settings {
	return Settings{
		TempoField:     "master_bpm",
		PollInterval:   2 * time.Second,
		ErrorInterval:  3 * time.Second,
		DriftThreshold: 0.01,
	}
}

// SettingsFromConfig reads loop settings from the [sync] section.
func SettingsFromConfig(cfg *config.Config) Settings {
	settings := DefaultSettings()
	if cfg == nil {
		return settings
	}
	if field := strings.TrimSpace(cfg.Sync.TempoField); field != "" {
		settings.TempoField = field
	}
	if interval := cfg.PollInterval(); interval > 0 {
		settings.PollInterval = interval
	}
	if interval := cfg.ErrorInterval(); interval > 0 {
		settings.ErrorInterval = interval
	}
	if cfg.Sync.DriftThreshold > 0 {
		settings.DriftThreshold = cfg.Sync.DriftThreshold
	}
	return settings
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRecorder attaches an adjustment recorder.
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine runs the rate reconciliation loop.
type Engine struct {
	player   Player
	fields   FieldSource
	settings Settings
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time

	mu                  sync.RWMutex
	generation          uint64
	state               State
	referenceBPM        float64
	observedBPM         float64
	playerRate          float64
	targetRate          float64
	frameRate           float64
	lastErr             error
	adjustments         int
	lastAdjustment      time.Time
	updatedAt           time.Time
	consecutiveFailures int
}

// New constructs an engine in the Idle state without a reference tempo.
func New(player Player, fields FieldSource, settings Settings, logger *slog.Logger, opts ...Option) *Engine {
	defaults := DefaultSettings()
	if strings.TrimSpace(settings.TempoField) == "" {
		settings.TempoField = defaults.TempoField
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = defaults.PollInterval
	}
	if settings.ErrorInterval <= 0 {
		settings.ErrorInterval = defaults.ErrorInterval
	}
	if settings.DriftThreshold <= 0 {
		settings.DriftThreshold = defaults.DriftThreshold
	}
	e := &Engine{
		player:   player,
		fields:   fields,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "sync"),
		now:      time.Now,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings returns the effective loop settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Reset clears the reference tempo. The next valid observation becomes the
// new reference.
func (e *Engine) Reset() {
	e.mu.Lock()
	previous := e.referenceBPM
	e.generation++
	e.referenceBPM = 0
	e.targetRate = 0
	if e.state == StateSynced {
		e.state = StateTracking
	}
	e.updatedAt = e.now()
	e.mu.Unlock()

	e.logger.Info("reference tempo reset",
		logging.String(logging.FieldEventType, "reference_reset"),
		logging.Float64("previous_reference_bpm", previous),
	)
}

// Step runs one iteration of the control loop and returns the wait before
// the next one.
func (e *Engine) Step(ctx context.Context) time.Duration {
	status, err := e.player.GetStatus(ctx)
	if err != nil {
		e.handleStatusFailure(err)
		return e.settings.ErrorInterval
	}
	e.recordStatus(status)

	if !status.Playing() {
		e.transition(StateStopped, logging.String("player_state", status.State))
		return e.settings.PollInterval
	}

	observed, ok := e.observedTempo()
	if !ok {
		e.transition(StateTracking)
		return e.settings.PollInterval
	}

	e.mu.Lock()
	e.observedBPM = observed
	generation := e.generation
	reference := e.referenceBPM
	captured := reference <= 0
	if captured {
		e.referenceBPM = observed
		reference = observed
	}
	e.mu.Unlock()
	if captured {
		e.logger.Info("reference tempo captured",
			logging.String(logging.FieldEventType, "reference_captured"),
			logging.Float64("reference_bpm", observed),
			logging.Float64("player_rate", status.Rate),
		)
	}
	if !e.transitionIfCurrent(generation, StateSynced) {
		return e.settings.PollInterval
	}

	if status.Rate <= minPlayerRate {
		logging.WarnWithContext(e.logger, "player rate too small for drift computation", "invalid_player_rate",
			logging.Float64("player_rate", status.Rate),
			logging.String(logging.FieldErrorHint, "check the playback speed in VLC"),
			logging.String(logging.FieldImpact, "rate correction skipped this cycle"),
		)
		return e.settings.PollInterval
	}

	target := observed / reference
	drift := math.Abs(target-status.Rate) / status.Rate

	e.mu.Lock()
	current := e.generation == generation
	if current {
		e.targetRate = target
	}
	e.mu.Unlock()
	if !current {
		return e.settings.PollInterval
	}

	if drift <= e.settings.DriftThreshold*(1+driftTolerance) {
		e.logger.Debug("drift within threshold",
			logging.Float64("drift", drift),
			logging.Float64("target_rate", target),
			logging.Float64("player_rate", status.Rate),
		)
		return e.settings.PollInterval
	}

	e.applyRate(ctx, Adjustment{
		PreviousRate: status.Rate,
		TargetRate:   target,
		ObservedBPM:  observed,
		ReferenceBPM: reference,
		Drift:        drift,
	}, status.FrameRate)
	return e.settings.PollInterval
}

func (e *Engine) applyRate(ctx context.Context, adj Adjustment, frameRate float64) {
	if err := e.player.SetRate(ctx, adj.TargetRate); err != nil {
		e.setLastError(err)
		logging.ErrorWithContext(e.logger, "rate update failed", "rate_update_failed",
			logging.Error(err),
			logging.Float64("target_rate", adj.TargetRate),
			logging.String(logging.FieldErrorHint, "check the VLC HTTP interface and password"),
		)
		return
	}

	adj.At = e.now()
	e.mu.Lock()
	e.playerRate = adj.TargetRate
	e.adjustments++
	e.lastAdjustment = adj.At
	e.lastErr = nil
	e.mu.Unlock()

	e.logger.Info("rate updated",
		logging.String(logging.FieldEventType, "rate_updated"),
		logging.Float64("old_rate", adj.PreviousRate),
		logging.Float64("new_rate", adj.TargetRate),
		logging.Float64("drift", adj.Drift),
		logging.Float64("observed_bpm", adj.ObservedBPM),
		logging.Float64("reference_bpm", adj.ReferenceBPM),
		logging.Float64("frame_rate", frameRate),
	)

	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordAdjustment(ctx, adj); err != nil {
		logging.WarnWithContext(e.logger, "failed to record rate adjustment", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the journal database path and permissions"),
			logging.String(logging.FieldImpact, "adjustment missing from history"),
		)
	}
}

func (e *Engine) handleStatusFailure(err error) {
	e.mu.Lock()
	e.consecutiveFailures++
	failures := e.consecutiveFailures
	e.lastErr = err
	e.mu.Unlock()
	e.transition(StateIdle)

	attrs := []logging.Attr{
		logging.Error(err),
		logging.Int("consecutive_failures", failures),
		logging.Duration("retry_in", e.settings.ErrorInterval),
		logging.String(logging.FieldErrorHint, "check that VLC is running with the HTTP interface enabled"),
	}
	if failures >= repeatedFailureThreshold && failures%repeatedFailureThreshold == 0 {
		logging.ErrorWithContext(e.logger, "player status query keeps failing", "player_status_failed", attrs...)
		return
	}
	logging.WarnWithContext(e.logger, "player status query failed", "player_status_failed", attrs...)
}

func (e *Engine) recordStatus(status vlc.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.consecutiveFailures > 0 {
		e.lastErr = nil
	}
	e.consecutiveFailures = 0
	e.playerRate = status.Rate
	e.frameRate = status.FrameRate
}

// observedTempo reads the tempo field. Missing, empty, non-numeric,
// non-finite, and non-positive values are treated as absent.
func (e *Engine) observedTempo() (float64, bool) {
	if e.fields == nil {
		return 0, false
	}
	raw, ok := e.fields.Get(e.settings.TempoField)
	if !ok {
		return 0, false
	}
	return ParseTempo(raw)
}

// ParseTempo converts a tempo string into a positive finite value.
func ParseTempo(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, false
	}
	return value, true
}

func (e *Engine) transition(next State, attrs ...logging.Attr) {
	e.mu.Lock()
	previous := e.setStateLocked(next)
	e.mu.Unlock()
	e.logTransition(previous, next, attrs...)
}

// transitionIfCurrent moves to next only when no Reset has happened since
// generation was read. It reports whether the transition was applied.
func (e *Engine) transitionIfCurrent(generation uint64, next State) bool {
	e.mu.Lock()
	if e.generation != generation {
		e.mu.Unlock()
		e.logger.Debug("reference reset during cycle; skipping correction")
		return false
	}
	previous := e.setStateLocked(next)
	e.mu.Unlock()
	e.logTransition(previous, next)
	return true
}

func (e *Engine) setStateLocked(next State) State {
	previous := e.state
	e.state = next
	e.updatedAt = e.now()
	return previous
}

func (e *Engine) logTransition(previous, next State, attrs ...logging.Attr) {
	if previous == next {
		return
	}
	args := append([]logging.Attr{
		logging.String("from", previous.String()),
		logging.String(logging.FieldState, next.String()),
	}, attrs...)
	e.logger.Info("sync state changed", logging.Args(args...)...)
}

func (e *Engine) setLastError(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}
