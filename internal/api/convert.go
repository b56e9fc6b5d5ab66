package api

import (
	"time"

	"bpmsync/internal/journal"
	"bpmsync/internal/syncengine"
)

// FromSnapshot converts an engine snapshot into its transport form.
func FromSnapshot(snapshot syncengine.Snapshot, tempoField string) SyncStatus {
	return SyncStatus{
		State:          snapshot.State.String(),
		TempoField:     tempoField,
		ReferenceBPM:   snapshot.ReferenceBPM,
		ObservedBPM:    snapshot.ObservedBPM,
		PlayerRate:     snapshot.PlayerRate,
		TargetRate:     snapshot.TargetRate,
		FrameRate:      snapshot.FrameRate,
		Adjustments:    snapshot.Adjustments,
		LastAdjustment: FormatTime(snapshot.LastAdjustment),
		LastError:      snapshot.LastError,
		UpdatedAt:      FormatTime(snapshot.UpdatedAt),
	}
}

// FromJournalEntries converts journal entries into transport form.
func FromJournalEntries(entries []journal.Entry) []Adjustment {
	out := make([]Adjustment, 0, len(entries))
	for _, entry := range entries {
		out = append(out, Adjustment{
			ID:           entry.ID,
			At:           FormatTime(entry.At),
			SessionID:    entry.SessionID,
			PreviousRate: entry.PreviousRate,
			TargetRate:   entry.TargetRate,
			ObservedBPM:  entry.ObservedBPM,
			ReferenceBPM: entry.ReferenceBPM,
			Drift:        entry.Drift,
		})
	}
	return out
}

// FormatTime renders t for API payloads; the zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses a timestamp produced by FormatTime.
func ParseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
