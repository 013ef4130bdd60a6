package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hearthside/hearthside-core/internal/energy"
)

// RecordEnergy writes an energy snapshot: one point for household totals
// and one per-device point for each appliance's share. Implements
// energy.Sink; writes are batched and sent asynchronously.
func (c *Client) RecordEnergy(_ context.Context, snap energy.Snapshot) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"energy_snapshot",
		map[string]string{"tier": string(snap.Tier)},
		map[string]interface{}{
			"total_watts":       snap.TotalWatts,
			"daily_kwh":         snap.DailyKWh,
			"monthly_cost":      snap.MonthlyCost,
			"projected_savings": snap.ProjectedSavings,
		},
		snap.TakenAt,
	))

	for _, share := range snap.Shares {
		c.writeAPI.WritePoint(write.NewPoint(
			"device_energy",
			map[string]string{
				"device_id": share.DeviceID,
				"room":      share.Room,
			},
			map[string]interface{}{
				"watts":     share.Watts,
				"share_pct": share.SharePct,
				"is_on":     share.IsOn,
			},
			snap.TakenAt,
		))
	}
}

// WriteDeviceMetric records a single device measurement, such as a
// temperature setpoint change.
func (c *Client) WriteDeviceMetric(deviceID, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"device_metrics",
		map[string]string{
			"device_id":   deviceID,
			"measurement": measurement,
		},
		map[string]interface{}{"value": value},
		time.Now(),
	))
}

// WritePoint writes a custom point for measurements the helpers do not
// cover.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
