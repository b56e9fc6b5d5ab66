// Package preflight provides readiness checks for the filesystem paths,
// templates and player endpoint bpmsync depends on.
//
// These checks run in two contexts:
//   - The daemon logs RunAll results at startup so misconfiguration shows up
//     before the first sync iteration.
//   - The CLI "bpmsync check" command renders the same results as a table and
//     exits non-zero when a required check fails.
//
// A failed check never stops the daemon: the watch directory and player may
// become available after startup and the loops retry on their own cadence.
package preflight
