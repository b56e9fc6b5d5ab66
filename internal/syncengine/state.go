package syncengine

// State is the engine's position in the sync state machine.
type State int

const (
	// StateIdle means no player status has been obtained yet, or the last
	// fetch failed.
	StateIdle State = iota
	// StateStopped means the player answered but is not playing.
	StateStopped
	// StateTracking means the player is playing and the engine waits for a
	// usable tempo.
	StateTracking
	// StateSynced means a reference tempo exists and the rate is being corrected.
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStopped:
		return "stopped"
	case StateTracking:
		return "tracking"
	case StateSynced:
		return "synced"
	default:
		return "unknown"
	}
}
