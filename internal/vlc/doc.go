// Package vlc talks to the VLC HTTP remote-control interface.
//
// Client issues the two requests the sync loop needs: a status query against
// /requests/status.json and the rate command sent through the same endpoint.
// Every request carries basic auth with an empty user name and the configured
// password, and is bounded by a per-request timeout. The client never logs;
// callers decide how failures are reported and retried.
package vlc
