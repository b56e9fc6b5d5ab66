// Package watcher feeds status files written by the DJ software into the
// shared field store.
//
// A Watcher subscribes to filesystem notifications for a single directory
// (non-recursive). Create and Write events for a filename registered in the
// template mapping trigger a read, a decode into UTF-8, a template parse and
// an atomic merge into the store. Every other file and event kind is ignored.
// Files that cannot be read or do not match their template are logged and
// skipped; the fields previously extracted from them stay in the store.
package watcher
