// Package daemon coordinates the long-running bpmsync process.
//
// It wires configuration, the field store, the status file watcher, the sync
// engine, the optional adjustment journal, and the control API into a single
// lifecycle with flock-based locking to prevent multiple instances.
//
// Keep orchestration logic here: parsing belongs to the watcher and template
// packages and rate decisions to the sync engine, while the daemon focuses on
// startup, shutdown, and high level coordination.
package daemon
