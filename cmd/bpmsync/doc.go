// Command bpmsync keeps VLC's playback rate in step with the master tempo
// reported by DJ software status files.
//
// `bpmsync run` starts the daemon in the foreground. The remaining commands
// inspect configuration (`config`, `check`, `parse`), talk to a running daemon
// over the local control API (`status`, `reset`), or read the adjustment
// journal (`history`).
package main
