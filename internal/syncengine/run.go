package syncengine

import (
	"context"
	"time"

	"bpmsync/internal/logging"
)

// Run executes Step until ctx is cancelled. It returns nil on cancellation.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("sync loop started",
		logging.String("tempo_field", e.settings.TempoField),
		logging.Duration("poll_interval", e.settings.PollInterval),
		logging.Duration("error_interval", e.settings.ErrorInterval),
		logging.Float64("drift_threshold", e.settings.DriftThreshold),
	)
	defer e.logger.Info("sync loop stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		wait := e.Step(ctx)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
