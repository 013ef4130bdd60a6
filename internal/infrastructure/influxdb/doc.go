// Package influxdb records energy telemetry in InfluxDB v2.
//
// The Client wraps the official client with connection management and
// batched non-blocking writes. It implements energy.Sink, so the energy
// monitor can stream snapshots straight into the bucket: one point per
// household snapshot plus per-device share points.
package influxdb
