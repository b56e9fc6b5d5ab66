package daemon

import (
	"context"

	"bpmsync/internal/journal"
	"bpmsync/internal/syncengine"
)

// journalRecorder persists engine adjustments tagged with the daemon session.
type journalRecorder struct {
	store     *journal.Store
	sessionID string
}

func (r *journalRecorder) RecordAdjustment(ctx context.Context, adj syncengine.Adjustment) error {
	_, err := r.store.Record(ctx, journal.Entry{
		At:           adj.At,
		SessionID:    r.sessionID,
		PreviousRate: adj.PreviousRate,
		TargetRate:   adj.TargetRate,
		ObservedBPM:  adj.ObservedBPM,
		ReferenceBPM: adj.ReferenceBPM,
		Drift:        adj.Drift,
	})
	return err
}
