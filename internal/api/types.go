package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DaemonStatus aggregates runtime information about the daemon.
type DaemonStatus struct {
	Running      bool              `json:"running"`
	PID          int               `json:"pid"`
	SessionID    string            `json:"sessionId,omitempty"`
	StartedAt    string            `json:"startedAt,omitempty"`
	PlayerURL    string            `json:"playerUrl"`
	LockFilePath string            `json:"lockFilePath"`
	JournalPath  string            `json:"journalPath,omitempty"`
	Watcher      WatcherStatus     `json:"watcher"`
	Sync         SyncStatus        `json:"sync"`
	Fields       map[string]string `json:"fields"`
}

// WatcherStatus summarizes the status file watcher.
type WatcherStatus struct {
	Running bool     `json:"running"`
	Dir     string   `json:"dir"`
	Files   []string `json:"files"`
}

// SyncStatus mirrors the sync engine snapshot.
type SyncStatus struct {
	State          string  `json:"state"`
	TempoField     string  `json:"tempoField"`
	ReferenceBPM   float64 `json:"referenceBpm"`
	ObservedBPM    float64 `json:"observedBpm"`
	PlayerRate     float64 `json:"playerRate"`
	TargetRate     float64 `json:"targetRate"`
	FrameRate      float64 `json:"frameRate"`
	Adjustments    int     `json:"adjustments"`
	LastAdjustment string  `json:"lastAdjustment,omitempty"`
	LastError      string  `json:"lastError,omitempty"`
	UpdatedAt      string  `json:"updatedAt,omitempty"`
}

// ResetResponse is returned after the reference tempo was cleared.
type ResetResponse struct {
	Reset                bool    `json:"reset"`
	PreviousReferenceBPM float64 `json:"previousReferenceBpm"`
}

// Adjustment is a journal entry in transport form.
type Adjustment struct {
	ID           int64   `json:"id"`
	At           string  `json:"at"`
	SessionID    string  `json:"sessionId,omitempty"`
	PreviousRate float64 `json:"previousRate"`
	TargetRate   float64 `json:"targetRate"`
	ObservedBPM  float64 `json:"observedBpm"`
	ReferenceBPM float64 `json:"referenceBpm"`
	Drift        float64 `json:"drift"`
}

// HistoryResponse lists recent adjustments, newest first.
type HistoryResponse struct {
	Adjustments []Adjustment `json:"adjustments"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
