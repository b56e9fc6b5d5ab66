package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering and alerting.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldSessionID is the standardized structured logging key for daemon session identifiers.
	FieldSessionID = "session_id"
	// FieldFilename is the standardized key for watched status filenames.
	FieldFilename = "filename"
	// FieldState is the standardized key for sync engine states.
	FieldState = "sync_state"
)
