// Package job defines the raw video job snapshot exchanged with the API and
// persisted by the registry.
//
// Snapshots are kept as untyped JSON objects rather than structs so that any
// field the API adds later survives a save/load round trip unchanged. Helpers
// expose the handful of fields the rest of the tool interprets (id, status)
// and the terminal-status check that ends polling.
package job
