// Package device holds the authoritative state of every controllable
// appliance in the home.
//
// The Registry is the single writer: all state changes flow through
// Registry.Apply, which merges a partial Patch into the stored device,
// clamps level and temperature to their policy bounds, and persists the
// result before updating the in-memory cache. Reads are served from the
// cache and preserve registration order.
//
// Persistence is abstracted behind the Repository interface with a SQLite
// implementation; tests substitute an in-memory mock.
package device
