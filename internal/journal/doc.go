// Package journal records every playback rate command in a SQLite database.
//
// The journal is an audit trail only: entries are appended as the sync engine
// issues rate changes and read back by the history command. Nothing here is
// used to restore sync state after a restart; the reference tempo always comes
// from the first valid observation of a new session.
//
// The schema is versioned through a single-row schema_version table. A
// database created by a different schema version is rejected with
// ErrSchemaMismatch rather than migrated in place.
package journal
