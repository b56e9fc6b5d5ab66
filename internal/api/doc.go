// Package api defines wire-format types for the local control API and a
// small HTTP client the CLI uses to talk to a running daemon.
//
// # Key Types
//
// DaemonStatus: daemon running state, watcher state, the latest extracted
// fields, and a SyncStatus.
//
// SyncStatus: sync engine state, reference tempo, and last observed and
// applied rates.
//
// Adjustment/HistoryResponse: journal entries for rate commands.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Engine states are exposed as lowercase
// strings. Timestamps use RFC3339 with milliseconds and are omitted when zero.
package api
