// Package syncengine keeps the player's playback rate proportional to the
// master tempo published by the DJ software.
//
// The first valid tempo observed while the player is playing becomes the
// reference tempo. Every later iteration computes target = observed/reference
// and sends a rate command only when the relative drift against the player's
// current rate exceeds the configured threshold. The reference survives
// pauses and player outages; only Reset or a process restart clears it.
//
// Step performs one iteration and returns how long the caller should wait
// before the next one, so tests drive the state machine without sleeping.
// Run loops over Step until its context is cancelled.
package syncengine
