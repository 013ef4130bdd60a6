// Package remote bridges the control core to MQTT clients outside the
// process: wall panels, companion apps, and other services on the broker.
//
// Inbound: command requests on hearthside/command/request are executed
// through the access controller, so remote callers get exactly the same
// permission enforcement as the HTTP API, and outcomes are published on
// hearthside/command/result.
//
// Outbound: device state changes and energy snapshots are mirrored to
// retained topics, so a client connecting at any time immediately sees the
// current picture.
package remote
