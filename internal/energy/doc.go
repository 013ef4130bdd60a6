// Package energy derives household power usage from device state.
//
// Compute is a pure function over a device list and a tariff: total draw,
// daily kWh, projected monthly cost and savings, a usage tier, and
// per-device shares. The Monitor samples the registry on an interval and
// fans snapshots out to sinks (time series storage, the event hub, the
// remote bridge).
package energy
