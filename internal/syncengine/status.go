package syncengine

import "time"

// Snapshot is a point-in-time view of the engine.
type Snapshot struct {
	State          State
	ReferenceBPM   float64
	ObservedBPM    float64
	PlayerRate     float64
	TargetRate     float64
	FrameRate      float64
	LastError      string
	Adjustments    int
	LastAdjustment time.Time
	UpdatedAt      time.Time
}

// HasReference reports whether a reference tempo is established.
func (s Snapshot) HasReference() bool {
	return s.ReferenceBPM > 0
}

// Status returns the latest engine information.
func (e *Engine) Status() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snapshot := Snapshot{
		State:          e.state,
		ReferenceBPM:   e.referenceBPM,
		ObservedBPM:    e.observedBPM,
		PlayerRate:     e.playerRate,
		TargetRate:     e.targetRate,
		FrameRate:      e.frameRate,
		Adjustments:    e.adjustments,
		LastAdjustment: e.lastAdjustment,
		UpdatedAt:      e.updatedAt,
	}
	if e.lastErr != nil {
		snapshot.LastError = e.lastErr.Error()
	}
	return snapshot
}
