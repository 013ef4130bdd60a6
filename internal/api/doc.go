// Package api provides the HTTP REST API and WebSocket server for the
// hearthside core.
//
// It exposes device state, energy snapshots, caregiver management, command
// execution, and the audit trail to user interfaces, plus a WebSocket hub
// broadcasting device, energy, and audit events in real time.
//
// The server follows the same lifecycle as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
